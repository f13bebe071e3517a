package codec

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	knapsack "github.com/BackendStack21/knapsack-go"
	"github.com/BackendStack21/knapsack-go/core"
	"github.com/BackendStack21/knapsack-go/keys"
	"github.com/BackendStack21/knapsack-go/utils"
)

// KeyPairExport is the JSON document written by `knapsack-cli keygen --format json`.
type KeyPairExport struct {
	KeyID       string   `json:"key_id"`
	PrivateKey  []uint32 `json:"private_key"`
	Multiplier  uint32   `json:"multiplier"`
	Modulus     uint32   `json:"modulus"`
	PublicKey   []uint32 `json:"public_key"`
	Fingerprint string   `json:"fingerprint"`
	CreatedAt   string   `json:"created_at"`
	KeyHMAC     string   `json:"key_hmac,omitempty"` // integrity check, see cmd/knapsack-cli
}

// PublicKeyExport carries only the public half.
type PublicKeyExport struct {
	KeyID       string   `json:"key_id,omitempty"`
	PublicKey   []uint32 `json:"public_key"`
	Fingerprint string   `json:"fingerprint"`
}

// CiphertextExport is the JSON form of a ciphertext.
type CiphertextExport struct {
	Fingerprint string   `json:"fingerprint,omitempty"` // public key used to encrypt
	Ciphertext  []uint32 `json:"ciphertext"`
}

// NewKeyPairExport wraps kp with a fresh random key ID and creation time.
func NewKeyPairExport(kp *knapsack.KeyPair, createdAt time.Time) *KeyPairExport {
	return &KeyPairExport{
		KeyID:       uuid.New().String(),
		PrivateKey:  append([]uint32(nil), kp.PrivateKey.Sequence[:]...),
		Multiplier:  kp.PrivateKey.Multiplier,
		Modulus:     kp.PrivateKey.Modulus,
		PublicKey:   append([]uint32(nil), kp.PublicKey.Sequence[:]...),
		Fingerprint: keys.Fingerprint(&kp.PublicKey),
		CreatedAt:   createdAt.UTC().Format(time.RFC3339),
	}
}

// KeyPair converts the export back, validating every key invariant and the
// key ID.
func (e *KeyPairExport) KeyPair() (*knapsack.KeyPair, error) {
	kp, err := e.Decode()
	if err != nil {
		return nil, err
	}
	if err := core.ValidateKeyPair(kp); err != nil {
		return nil, err
	}
	return kp, nil
}

// Decode converts the export back checking only its shape: the key ID and
// the sequence lengths. Key invariants are left to the caller.
func (e *KeyPairExport) Decode() (*knapsack.KeyPair, error) {
	if e.KeyID != "" {
		if _, err := uuid.Parse(e.KeyID); err != nil {
			return nil, fmt.Errorf("%w: key_id: %v", ErrMalformed, err)
		}
	}
	kp := &knapsack.KeyPair{}
	if err := fillSequence(&kp.PrivateKey.Sequence, e.PrivateKey, "private_key"); err != nil {
		return nil, err
	}
	if err := fillSequence(&kp.PublicKey.Sequence, e.PublicKey, "public_key"); err != nil {
		return nil, err
	}
	kp.PrivateKey.Multiplier = e.Multiplier
	kp.PrivateKey.Modulus = e.Modulus
	return kp, nil
}

// PublicKeyExport returns the public half of e.
func (e *KeyPairExport) PublicKeyExport() *PublicKeyExport {
	return &PublicKeyExport{KeyID: e.KeyID, PublicKey: e.PublicKey, Fingerprint: e.Fingerprint}
}

// MarshalKeyPairJSON renders an export as indented JSON.
func MarshalKeyPairJSON(e *KeyPairExport) ([]byte, error) {
	return json.MarshalIndent(e, "", "  ")
}

// UnmarshalKeyPairJSON parses a key pair document.
func UnmarshalKeyPairJSON(data []byte) (*KeyPairExport, error) {
	var e KeyPairExport
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &e, nil
}

// UnmarshalPublicKeyJSON reads the public_key field of either a key pair or a
// public key document.
func UnmarshalPublicKeyJSON(data []byte) (*knapsack.PublicKey, error) {
	var e PublicKeyExport
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	pk := &knapsack.PublicKey{}
	if err := fillSequence(&pk.Sequence, e.PublicKey, "public_key"); err != nil {
		return nil, err
	}
	return pk, nil
}

// UnmarshalCiphertextJSON parses a ciphertext document.
func UnmarshalCiphertextJSON(data []byte) (knapsack.Ciphertext, error) {
	e, err := UnmarshalCiphertextExport(data)
	if err != nil {
		return nil, err
	}
	return knapsack.Ciphertext(e.Ciphertext), nil
}

// UnmarshalCiphertextExport parses a ciphertext document, keeping the
// fingerprint of the key it was encrypted for.
func UnmarshalCiphertextExport(data []byte) (*CiphertextExport, error) {
	var e CiphertextExport
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if e.Ciphertext == nil {
		return nil, fmt.Errorf("%w: missing ciphertext field", ErrMalformed)
	}
	if err := utils.CheckLength(len(e.Ciphertext), utils.MaxMessageLength); err != nil {
		return nil, fmt.Errorf("ciphertext: %w", err)
	}
	return &e, nil
}

func fillSequence(dst *knapsack.Sequence, src []uint32, field string) error {
	if len(src) != knapsack.BlockSize {
		return fmt.Errorf("%w: %s has %d values, expected %d", ErrMalformed, field, len(src), knapsack.BlockSize)
	}
	copy(dst[:], src)
	return nil
}
