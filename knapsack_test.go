// Integration tests across key generation, encryption, and serialization.
package knapsack_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	knapsack "github.com/BackendStack21/knapsack-go"
	"github.com/BackendStack21/knapsack-go/cipher"
	"github.com/BackendStack21/knapsack-go/codec"
	"github.com/BackendStack21/knapsack-go/core"
	"github.com/BackendStack21/knapsack-go/keys"
)

// TestRoundtrip tests key generation, encryption, and decryption.
func TestRoundtrip(t *testing.T) {
	messages := []string{"word", "attack at dawn", "ATTACK AT DAWN", "", "Grüße, señor"}

	kp, err := keys.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}

	for _, msg := range messages {
		t.Run(msg, func(t *testing.T) {
			ct, err := cipher.Encrypt(&kp.PublicKey, msg)
			if err != nil {
				t.Fatalf("Encrypt failed: %v", err)
			}
			if len(ct) != len([]rune(msg)) {
				t.Errorf("ciphertext length = %d, want %d", len(ct), len([]rune(msg)))
			}

			got, err := cipher.DecryptStrict(ct, &kp.PrivateKey)
			if err != nil {
				t.Fatalf("DecryptStrict failed: %v", err)
			}
			if got != msg {
				t.Errorf("roundtrip = %q, want %q", got, msg)
			}
		})
	}
}

// TestFixedKeyVector checks the worked example end to end.
func TestFixedKeyVector(t *testing.T) {
	sk := &knapsack.PrivateKey{
		Sequence:   knapsack.Sequence{2, 7, 11, 21, 42, 89, 180, 354},
		Multiplier: 588,
		Modulus:    881,
	}
	if err := core.ValidatePrivateKey(sk); err != nil {
		t.Fatalf("ValidatePrivateKey failed: %v", err)
	}

	pk, err := keys.GeneratePublicKey(sk)
	if err != nil {
		t.Fatalf("GeneratePublicKey failed: %v", err)
	}
	want := knapsack.Sequence{295, 592, 301, 14, 28, 353, 120, 236}
	if pk.Sequence != want {
		t.Fatalf("public key = %v, want %v", pk.Sequence, want)
	}

	ct, err := cipher.Encrypt(pk, "a")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if len(ct) != 1 || ct[0] != 1129 {
		t.Fatalf("Encrypt(\"a\") = %v, want [1129]", ct)
	}

	msg, err := cipher.Decrypt(ct, sk)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if msg != "a" {
		t.Errorf("Decrypt = %q, want \"a\"", msg)
	}
}

// TestSerializedKeyRoundtrip encrypts with a key that went through the text
// and JSON codecs.
func TestSerializedKeyRoundtrip(t *testing.T) {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair failed: %v", err)
	}
	msg := "attack at dawn"

	pk, err := codec.ParsePublicKey(codec.MarshalPublicKey(&kp.PublicKey))
	if err != nil {
		t.Fatalf("ParsePublicKey failed: %v", err)
	}
	ct, err := cipher.Encrypt(pk, msg)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	ct, err = codec.ParseCiphertext(codec.MarshalCiphertext(ct))
	if err != nil {
		t.Fatalf("ParseCiphertext failed: %v", err)
	}

	data, err := codec.MarshalKeyPairJSON(codec.NewKeyPairExport(kp, time.Unix(0, 0)))
	if err != nil {
		t.Fatalf("MarshalKeyPairJSON failed: %v", err)
	}
	export, err := codec.UnmarshalKeyPairJSON(data)
	if err != nil {
		t.Fatalf("UnmarshalKeyPairJSON failed: %v", err)
	}
	restored, err := export.KeyPair()
	if err != nil {
		t.Fatalf("KeyPair failed: %v", err)
	}

	got, err := cipher.DecryptStrict(ct, &restored.PrivateKey)
	if err != nil {
		t.Fatalf("DecryptStrict failed: %v", err)
	}
	if got != msg {
		t.Errorf("roundtrip = %q, want %q", got, msg)
	}
}

// TestWrongKeyDoesNotDecrypt uses an unrelated private key.
func TestWrongKeyDoesNotDecrypt(t *testing.T) {
	seedA := []byte("an example seed with plenty of distinct bytes: A")
	seedB := []byte("an example seed with plenty of distinct bytes: B")
	kpA, err := keys.GenerateKeyPairFromSeed(seedA)
	if err != nil {
		t.Fatal(err)
	}
	kpB, err := keys.GenerateKeyPairFromSeed(seedB)
	if err != nil {
		t.Fatal(err)
	}
	if kpA.PrivateKey == kpB.PrivateKey {
		t.Fatal("different seeds produced the same key")
	}

	msg := "the quick brown fox jumps over the lazy dog"
	ct, err := cipher.Encrypt(&kpA.PublicKey, msg)
	if err != nil {
		t.Fatal(err)
	}
	got, err := cipher.Decrypt(ct, &kpB.PrivateKey)
	if err == nil && got == msg {
		t.Error("message decrypted under the wrong key")
	}
}

func TestEncodingRangeError(t *testing.T) {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	_, err = cipher.Encrypt(&kp.PublicKey, "ok→no")
	if !errors.Is(err, knapsack.ErrEncodingRange) {
		t.Fatalf("expected ErrEncodingRange, got %v", err)
	}
	var rangeErr *knapsack.EncodingRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected *EncodingRangeError, got %T", err)
	}
	if rangeErr.Position != 2 || rangeErr.Char != '→' {
		t.Errorf("got position %d char %q", rangeErr.Position, rangeErr.Char)
	}
}

// TestConcurrentKeyGeneration exercises the generators from many goroutines.
func TestConcurrentKeyGeneration(t *testing.T) {
	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kp, err := keys.GenerateKeyPair()
			if err != nil {
				errs <- err
				return
			}
			if err := core.ValidateKeyPair(kp); err != nil {
				errs <- err
				return
			}
			ct, err := cipher.Encrypt(&kp.PublicKey, "word")
			if err != nil {
				errs <- err
				return
			}
			msg, err := cipher.DecryptStrict(ct, &kp.PrivateKey)
			if err != nil {
				errs <- err
				return
			}
			if msg != "word" {
				errs <- errors.New("roundtrip mismatch: " + msg)
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestKeyGenerationErrorMatching(t *testing.T) {
	cause := errors.New("boom")
	err := error(&knapsack.KeyGenerationError{Reason: "no coprime multiplier", Err: cause})
	if !errors.Is(err, knapsack.ErrKeyGeneration) {
		t.Error("KeyGenerationError should match ErrKeyGeneration")
	}
	if !errors.Is(err, cause) {
		t.Error("KeyGenerationError should unwrap to its cause")
	}
	if errors.Is(err, knapsack.ErrDecoding) {
		t.Error("KeyGenerationError should not match ErrDecoding")
	}

	decErr := error(&knapsack.DecodingError{Position: 1, Value: 1, Reason: "residue 5"})
	if !errors.Is(decErr, knapsack.ErrDecoding) {
		t.Error("DecodingError should match ErrDecoding")
	}
}

func TestSequenceSum(t *testing.T) {
	s := knapsack.Sequence{2, 7, 11, 21, 42, 89, 180, 354}
	if got := s.Sum(); got != 706 {
		t.Errorf("Sum = %d, want 706", got)
	}
	big := knapsack.Sequence{^uint32(0), ^uint32(0), 0, 0, 0, 0, 0, 0}
	if got := big.Sum(); got != 2*uint64(^uint32(0)) {
		t.Errorf("Sum overflowed: %d", got)
	}
}
