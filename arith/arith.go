// Package arith provides the prime and modular arithmetic behind key
// generation and decryption.
package arith

import (
	"errors"
	"math"

	"github.com/BackendStack21/knapsack-go/utils"
)

var (
	// ErrNotInvertible is returned when a has no inverse modulo n.
	ErrNotInvertible = errors.New("value is not invertible modulo n")

	// ErrInvalidModulus is returned for moduli smaller than 2.
	ErrInvalidModulus = errors.New("modulus must be at least 2")
)

// IsPrime checks if a number is prime using trial division.
// Key moduli are at most a few thousand, so this is fast enough.
func IsPrime(n uint32) bool {
	if n < 2 {
		return false
	}
	if n == 2 {
		return true
	}
	if n%2 == 0 {
		return false
	}
	for i := uint64(3); i*i <= uint64(n); i += 2 {
		if uint64(n)%i == 0 {
			return false
		}
	}
	return true
}

// NextPrime returns the smallest prime >= n.
func NextPrime(n uint32) (uint32, error) {
	for !IsPrime(n) {
		if n == math.MaxUint32 {
			return 0, utils.ErrOverflow
		}
		n++
	}
	return n, nil
}

// GCD returns the greatest common divisor of a and b.
func GCD(a, b uint32) uint32 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// ModInverse computes the modular multiplicative inverse a^(-1) mod n using
// the extended Euclidean algorithm. The result lies in [0, n).
func ModInverse(a, n uint32) (uint32, error) {
	if n < 2 {
		return 0, ErrInvalidModulus
	}
	oldR, r := int64(a%n), int64(n)
	oldS, s := int64(1), int64(0)

	for r != 0 {
		q := oldR / r
		oldR, r = r, oldR-q*r
		oldS, s = s, oldS-q*s
	}
	// oldR is gcd(a, n)
	if oldR != 1 {
		return 0, ErrNotInvertible
	}

	for oldS < 0 {
		oldS += int64(n)
	}
	return uint32(oldS), nil
}
