// Package utils provides randomness, hashing, and safe arithmetic helpers for
// the knapsack cryptosystem.
package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"io"
	"runtime"
)

// RandReader is the default entropy source for key generation.
var RandReader io.Reader = rand.Reader

// SecureRandomBytes reads n bytes from RandReader.
func SecureRandomBytes(n int) ([]byte, error) {
	return RandomBytesFrom(RandReader, n)
}

// RandomBytesFrom reads exactly n bytes from r.
func RandomBytesFrom(r io.Reader, n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrInvalidLength
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// RandomIntFrom returns a uniform integer in [0, max) drawn from r.
// It uses rejection sampling to ensure a uniform distribution.
func RandomIntFrom(r io.Reader, max int) (int, error) {
	if max <= 0 {
		return 0, errors.New("max must be positive")
	}
	if max == 1 {
		return 0, nil
	}

	// Calculate number of bytes needed
	bitsNeeded := 0
	for m := max - 1; m > 0; m >>= 1 {
		bitsNeeded++
	}
	bytesNeeded := (bitsNeeded + 7) / 8
	mask := (1 << bitsNeeded) - 1

	buf := make([]byte, bytesNeeded)
	for {
		if _, err := io.ReadFull(r, buf); err != nil {
			return 0, err
		}

		var value int
		for i := 0; i < bytesNeeded; i++ {
			value = (value << 8) | int(buf[i])
		}
		value &= mask

		if value < max {
			return value, nil
		}
	}
}

// RandomRange returns a uniform integer in [lo, hi) drawn from r.
func RandomRange(r io.Reader, lo, hi uint32) (uint32, error) {
	if hi <= lo {
		return 0, errors.New("empty range")
	}
	v, err := RandomIntFrom(r, int(hi-lo))
	if err != nil {
		return 0, err
	}
	return lo + uint32(v), nil
}

// ValidateSeedEntropy checks if a seed has sufficient entropy.
// It performs basic statistical tests to reject obviously weak seeds (e.g., all zeros, sequential).
// This is a sanity check, not a rigorous randomness test.
func ValidateSeedEntropy(seed []byte) error {
	if len(seed) < 32 {
		return errors.New("seed must be at least 32 bytes")
	}

	first := seed[0]
	allSame := true
	for i := 1; i < len(seed); i++ {
		if seed[i] != first {
			allSame = false
			break
		}
	}
	if allSame {
		return errors.New("seed has low entropy: all bytes are identical")
	}

	isAscending := true
	isDescending := true
	for i := 1; i < len(seed); i++ {
		if seed[i] != byte((int(seed[i-1])+1)%256) {
			isAscending = false
		}
		if seed[i] != byte((int(seed[i-1])-1+256)%256) {
			isDescending = false
		}
		if !isAscending && !isDescending {
			break
		}
	}
	if isAscending || isDescending {
		return errors.New("seed has low entropy: sequential pattern detected")
	}

	unique := make(map[byte]struct{})
	for _, b := range seed {
		unique[b] = struct{}{}
		if len(unique) >= 8 {
			break
		}
	}
	if len(unique) < 8 {
		return errors.New("seed has low entropy: insufficient byte diversity")
	}

	return nil
}

// ConstantTimeEqual compares two byte slices in constant time.
// This function leaks only the length of the slices.
func ConstantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Zeroize overwrites a byte slice with zeros.
// runtime.KeepAlive keeps the compiler from eliminating the stores.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// ZeroizeUint32 overwrites a uint32 slice with zeros.
func ZeroizeUint32(s []uint32) {
	for i := range s {
		s[i] = 0
	}
	runtime.KeepAlive(s)
}
