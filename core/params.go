// Package core provides the key generation parameters and the invariant
// checks for knapsack keys.
package core

import (
	"errors"
	"fmt"
	"math"

	knapsack "github.com/BackendStack21/knapsack-go"
	"github.com/BackendStack21/knapsack-go/arith"
	"github.com/BackendStack21/knapsack-go/utils"
)

// MaxModulus is the largest modulus for which the sum of a full block of
// public key elements, each below the modulus, still fits in a uint32.
const MaxModulus = math.MaxUint32/knapsack.BlockSize + 1

// Params are the sampling ranges used by key generation. All ranges are
// half-open, [Min, Max).
type Params struct {
	// First sequence element.
	StartMin uint32 `json:"start_min"`
	StartMax uint32 `json:"start_max"`

	// Gap between an element and the sum of all elements before it.
	IncrementMin uint32 `json:"increment_min"`
	IncrementMax uint32 `json:"increment_max"`

	// Trapdoor multiplier.
	MultiplierMin uint32 `json:"multiplier_min"`
	MultiplierMax uint32 `json:"multiplier_max"`
}

// DefaultParams is the parameter set used by keys.GenerateKeyPair.
var DefaultParams = Params{
	StartMin:      2,
	StartMax:      10,
	IncrementMin:  1,
	IncrementMax:  10,
	MultiplierMin: 2,
	MultiplierMax: 1000,
}

// ValidateParams validates the parameter set for consistency.
func ValidateParams(p Params) error {
	if p.StartMin == 0 {
		return errors.New("sequence start must be positive")
	}
	if p.StartMax <= p.StartMin {
		return errors.New("sequence start range is empty")
	}
	if p.IncrementMin == 0 {
		return errors.New("sequence increment must be positive")
	}
	if p.IncrementMax <= p.IncrementMin {
		return errors.New("sequence increment range is empty")
	}
	if p.MultiplierMin < 2 {
		return errors.New("multiplier must be at least 2")
	}
	if p.MultiplierMax <= p.MultiplierMin {
		return errors.New("multiplier range is empty")
	}
	if worst := WorstCaseSum(p); worst >= MaxModulus {
		return fmt.Errorf("largest possible sequence sum %d leaves no modulus at or below %d: %w", worst, uint64(MaxModulus), utils.ErrOverflow)
	}
	return nil
}

// WorstCaseSum returns the largest sequence sum key generation can draw
// under p.
func WorstCaseSum(p Params) uint64 {
	if p.StartMax == 0 || p.IncrementMax == 0 {
		return 0
	}
	sum := uint64(p.StartMax - 1)
	for i := 1; i < knapsack.BlockSize; i++ {
		sum += sum + uint64(p.IncrementMax-1)
	}
	return sum
}

// IsSuperincreasing reports whether every element is positive and strictly
// greater than the sum of all elements before it.
func IsSuperincreasing(seq knapsack.Sequence) bool {
	var sum uint64
	for _, x := range seq {
		if uint64(x) <= sum {
			return false
		}
		sum += uint64(x)
	}
	return true
}

// ValidatePrivateKey checks every private key invariant: superincreasing
// sequence, prime modulus above the sequence sum and at most MaxModulus, and
// a multiplier coprime to the modulus.
func ValidatePrivateKey(sk *knapsack.PrivateKey) error {
	if sk == nil {
		return errors.New("nil private key")
	}
	if !IsSuperincreasing(sk.Sequence) {
		return fmt.Errorf("sequence %v is not superincreasing", sk.Sequence)
	}
	if sk.Modulus < 2 {
		return fmt.Errorf("modulus %d is not prime", sk.Modulus)
	}
	if _, err := utils.SafeMultiply(knapsack.BlockSize, sk.Modulus-1); err != nil {
		return fmt.Errorf("modulus %d exceeds %d: %w", sk.Modulus, uint64(MaxModulus), err)
	}
	if !arith.IsPrime(sk.Modulus) {
		return fmt.Errorf("modulus %d is not prime", sk.Modulus)
	}
	if uint64(sk.Modulus) <= sk.Sequence.Sum() {
		return fmt.Errorf("modulus %d does not exceed sequence sum %d", sk.Modulus, sk.Sequence.Sum())
	}
	if sk.Multiplier == 0 || arith.GCD(sk.Multiplier, sk.Modulus) != 1 {
		return fmt.Errorf("multiplier %d is not coprime to modulus %d", sk.Multiplier, sk.Modulus)
	}
	return nil
}

// ValidatePublicKey checks that every element is reduced modulo the private
// key's modulus and matches private[i] * a mod n.
func ValidatePublicKey(sk *knapsack.PrivateKey, pk *knapsack.PublicKey) error {
	if sk == nil || pk == nil {
		return errors.New("nil key")
	}
	for i, x := range sk.Sequence {
		want := uint32(uint64(x) * uint64(sk.Multiplier) % uint64(sk.Modulus))
		if pk.Sequence[i] != want {
			return fmt.Errorf("public key element %d is %d, expected %d", i, pk.Sequence[i], want)
		}
	}
	return nil
}

// ValidateKeyPair validates both halves of a key pair and their relation.
func ValidateKeyPair(kp *knapsack.KeyPair) error {
	if kp == nil {
		return errors.New("nil key pair")
	}
	if err := ValidatePrivateKey(&kp.PrivateKey); err != nil {
		return err
	}
	return ValidatePublicKey(&kp.PrivateKey, &kp.PublicKey)
}
