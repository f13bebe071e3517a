// This file contains overflow-checked arithmetic and length limits used when
// building keys and parsing untrusted input.

package utils

import (
	"errors"
	"math"
)

const (
	// MaxMessageLength is the maximum number of characters accepted for one
	// encryption and the maximum ciphertext length accepted by parsers.
	MaxMessageLength = 1 << 20 // 1M characters

	// MaxInputFileSize bounds files read by the CLI.
	MaxInputFileSize = 16 * 1024 * 1024 // 16 MB
)

var (
	// ErrOverflow indicates an integer overflow occurred.
	ErrOverflow = errors.New("integer overflow")

	// ErrExceedsLimit indicates a value exceeds the allowed limit.
	ErrExceedsLimit = errors.New("value exceeds allowed limit")

	// ErrInvalidLength indicates an invalid length value.
	ErrInvalidLength = errors.New("invalid length")
)

// SafeAdd adds two uint32 values and returns ErrOverflow on wrap-around.
func SafeAdd(a, b uint32) (uint32, error) {
	if a > math.MaxUint32-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// SafeMultiply multiplies two uint32 values and returns ErrOverflow if the
// product does not fit.
func SafeMultiply(a, b uint32) (uint32, error) {
	p := uint64(a) * uint64(b)
	if p > math.MaxUint32 {
		return 0, ErrOverflow
	}
	return uint32(p), nil
}

// CheckLength validates that length is within [0, maxAllowed].
func CheckLength(length, maxAllowed int) error {
	if length < 0 {
		return ErrInvalidLength
	}
	if length > maxAllowed {
		return ErrExceedsLimit
	}
	return nil
}
