package knapsack

import (
	"errors"
	"fmt"
)

var (
	// ErrEncodingRange is matched by every *EncodingRangeError.
	ErrEncodingRange = errors.New("character outside 8-bit range")

	// ErrDecoding is matched by every *DecodingError.
	ErrDecoding = errors.New("ciphertext element cannot be decoded")

	// ErrKeyGeneration is matched by every *KeyGenerationError.
	ErrKeyGeneration = errors.New("key generation failed")
)

// EncodingRangeError reports a character whose code point does not fit in a
// single block.
type EncodingRangeError struct {
	Position int  // rune index in the message
	Char     rune // offending character
}

func (e *EncodingRangeError) Error() string {
	return fmt.Sprintf("character %q (U+%04X) at position %d does not fit in %d bits",
		e.Char, e.Char, e.Position, BlockSize)
}

// Is makes errors.Is(err, ErrEncodingRange) work.
func (e *EncodingRangeError) Is(target error) bool { return target == ErrEncodingRange }

// DecodingError reports a ciphertext element that does not reconstruct to a
// character under the given private key.
type DecodingError struct {
	Position int    // index in the ciphertext
	Value    uint32 // ciphertext element
	Reason   string
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("ciphertext element %d at position %d: %s", e.Value, e.Position, e.Reason)
}

// Is makes errors.Is(err, ErrDecoding) work.
func (e *DecodingError) Is(target error) bool { return target == ErrDecoding }

// KeyGenerationError reports key material that violates a key invariant.
type KeyGenerationError struct {
	Reason string
	Err    error
}

func (e *KeyGenerationError) Error() string {
	if e.Err != nil {
		return "key generation: " + e.Reason + ": " + e.Err.Error()
	}
	return "key generation: " + e.Reason
}

// Unwrap returns the underlying cause, if any.
func (e *KeyGenerationError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrKeyGeneration) work.
func (e *KeyGenerationError) Is(target error) bool { return target == ErrKeyGeneration }
