package cipher

import (
	"errors"
	"reflect"
	"testing"

	knapsack "github.com/BackendStack21/knapsack-go"
	"github.com/BackendStack21/knapsack-go/arith"
	"github.com/BackendStack21/knapsack-go/keys"
	"github.com/BackendStack21/knapsack-go/utils"
)

var (
	vectorPublic = &knapsack.PublicKey{
		Sequence: knapsack.Sequence{295, 592, 301, 14, 28, 353, 120, 236},
	}
	vectorPrivate = &knapsack.PrivateKey{
		Sequence:   knapsack.Sequence{2, 7, 11, 21, 42, 89, 180, 354},
		Multiplier: 588,
		Modulus:    881,
	}
)

func TestEncrypt(t *testing.T) {
	ct, err := Encrypt(vectorPublic, "a")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	if !reflect.DeepEqual(ct, knapsack.Ciphertext{1129}) {
		t.Errorf("Encrypt(\"a\") = %v, want [1129]", ct)
	}
}

func TestDecrypt(t *testing.T) {
	msg, err := Decrypt(knapsack.Ciphertext{1129}, vectorPrivate)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if msg != "a" {
		t.Errorf("Decrypt([1129]) = %q, want \"a\"", msg)
	}
}

func TestRoundTrip(t *testing.T) {
	messages := []string{
		"word",
		"attack at dawn",
		"ATTACK AT DAWN",
		"",
		"\x00\x01\x7f\x80\xfe\xff",
		"café crème, naïve façade",
	}

	for i := 0; i < 25; i++ {
		kp, err := keys.GenerateKeyPair()
		if err != nil {
			t.Fatalf("GenerateKeyPair failed: %v", err)
		}
		for _, m := range messages {
			ct, err := Encrypt(&kp.PublicKey, m)
			if err != nil {
				t.Fatalf("Encrypt(%q) failed: %v", m, err)
			}
			if len(ct) != len([]rune(m)) {
				t.Fatalf("ciphertext length %d, want %d", len(ct), len([]rune(m)))
			}
			got, err := DecryptStrict(ct, &kp.PrivateKey)
			if err != nil {
				t.Fatalf("DecryptStrict failed: %v", err)
			}
			if got != m {
				t.Fatalf("round trip: got %q, want %q (key %+v)", got, m, kp)
			}
		}
	}
}

func TestRoundTrip_AllCodePoints(t *testing.T) {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	all := make([]rune, 256)
	for i := range all {
		all[i] = rune(i)
	}
	m := string(all)

	ct, err := Encrypt(&kp.PublicKey, m)
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}
	got, err := Decrypt(ct, &kp.PrivateKey)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if got != m {
		t.Error("round trip over all 256 code points failed")
	}
}

func TestEncrypt_Deterministic(t *testing.T) {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	ct1, err := Encrypt(&kp.PublicKey, "same message")
	if err != nil {
		t.Fatal(err)
	}
	ct2, err := Encrypt(&kp.PublicKey, "same message")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(ct1, ct2) {
		t.Errorf("Encrypt is not deterministic: %v vs %v", ct1, ct2)
	}
}

func TestEncrypt_OutOfRange(t *testing.T) {
	_, err := Encrypt(vectorPublic, "ok€")
	if !errors.Is(err, knapsack.ErrEncodingRange) {
		t.Fatalf("expected ErrEncodingRange, got %v", err)
	}
	var rangeErr *knapsack.EncodingRangeError
	if !errors.As(err, &rangeErr) {
		t.Fatalf("expected *EncodingRangeError, got %T", err)
	}
	if rangeErr.Position != 2 || rangeErr.Char != '€' {
		t.Errorf("error reports position %d char %q, want 2 '€'", rangeErr.Position, rangeErr.Char)
	}
}

func TestDecryptStrict_Tampered(t *testing.T) {
	// 1 is not reachable: 1 * 442 mod 881 = 442 leaves residue 442-354-42-21-11-7-2 = 5.
	_, err := DecryptStrict(knapsack.Ciphertext{1129, 1}, vectorPrivate)
	if !errors.Is(err, knapsack.ErrDecoding) {
		t.Fatalf("expected ErrDecoding, got %v", err)
	}
	var decErr *knapsack.DecodingError
	if !errors.As(err, &decErr) || decErr.Position != 1 {
		t.Errorf("expected DecodingError at position 1, got %v", err)
	}

	// The lenient decoder still produces a character for the same input.
	msg, err := Decrypt(knapsack.Ciphertext{1129, 1}, vectorPrivate)
	if err != nil {
		t.Fatalf("Decrypt failed: %v", err)
	}
	if len([]rune(msg)) != 2 || msg[0] != 'a' {
		t.Errorf("Decrypt = %q", msg)
	}
}

func TestDecrypt_NotInvertible(t *testing.T) {
	sk := *vectorPrivate
	sk.Multiplier = 881 * 2
	_, err := Decrypt(knapsack.Ciphertext{1129}, &sk)
	if !errors.Is(err, arith.ErrNotInvertible) {
		t.Errorf("expected ErrNotInvertible, got %v", err)
	}
}

func TestBytesRoundTrip(t *testing.T) {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	data := []byte{0, 1, 2, 0x80, 0xff, 'x'}
	ct, err := EncryptBytes(&kp.PublicKey, data)
	if err != nil {
		t.Fatalf("EncryptBytes failed: %v", err)
	}
	got, err := DecryptBytes(ct, &kp.PrivateKey)
	if err != nil {
		t.Fatalf("DecryptBytes failed: %v", err)
	}
	if !reflect.DeepEqual(got, data) {
		t.Errorf("DecryptBytes = %v, want %v", got, data)
	}
}

func TestEncodeDecodeBlock(t *testing.T) {
	for _, tc := range []struct {
		b    byte
		want uint32
	}{{0, 0}, {0x80, 295}, {0x01, 236}, {'a', 1129}} {
		got, err := EncodeBlock(vectorPublic, tc.b)
		if err != nil || got != tc.want {
			t.Errorf("EncodeBlock(%#x) = %d, %v; want %d", tc.b, got, err, tc.want)
		}
	}

	for v := 0; v < 256; v++ {
		var target uint64
		for i, x := range vectorPrivate.Sequence {
			if v&(1<<(knapsack.BlockSize-1-i)) != 0 {
				target += uint64(x)
			}
		}
		b, rest := DecodeBlock(vectorPrivate.Sequence, target)
		if int(b) != v || rest != 0 {
			t.Fatalf("DecodeBlock(%d) = %d, %d; want %d, 0", target, b, rest, v)
		}
	}
}

func BenchmarkEncrypt(b *testing.B) {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		b.Fatal(err)
	}
	msg := "The quick brown fox jumps over the lazy dog"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Encrypt(&kp.PublicKey, msg)
	}
}

func BenchmarkDecrypt(b *testing.B) {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		b.Fatal(err)
	}
	ct, err := Encrypt(&kp.PublicKey, "The quick brown fox jumps over the lazy dog")
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Decrypt(ct, &kp.PrivateKey)
	}
}

func TestEncrypt_OverflowingPublicKey(t *testing.T) {
	// Elements near 2^31, as derived from a modulus above 2^29.
	pk := &knapsack.PublicKey{
		Sequence: knapsack.Sequence{1 << 31, 1<<31 + 7, 3, 5, 9, 17, 33, 65},
	}

	if _, err := EncodeBlock(pk, 0xff); !errors.Is(err, utils.ErrOverflow) {
		t.Errorf("EncodeBlock(0xff) should overflow, got %v", err)
	}
	// Only one large element selected: fits.
	if got, err := EncodeBlock(pk, 0x7f); err != nil || got != 1<<31+7+3+5+9+17+33+65 {
		t.Errorf("EncodeBlock(0x7f) = %d, %v", got, err)
	}

	if _, err := Encrypt(pk, "aÿ"); !errors.Is(err, utils.ErrOverflow) {
		t.Errorf("Encrypt should report ErrOverflow, got %v", err)
	}
	if _, err := EncryptBytes(pk, []byte{0xff}); !errors.Is(err, utils.ErrOverflow) {
		t.Errorf("EncryptBytes should report ErrOverflow, got %v", err)
	}
	if _, err := EncryptBytes(nil, []byte{1}); err == nil {
		t.Error("EncryptBytes should reject a nil public key")
	}
}
