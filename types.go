// Package knapsack implements the Merkle–Hellman knapsack public-key cryptosystem.
//
// A private key is a superincreasing sequence together with a multiplier and a
// prime modulus. The public key is the sequence scrambled by modular
// multiplication. Each 8-bit character is encrypted as the subset sum of the
// public key selected by its bits, and decrypted by undoing the multiplication
// and solving the now easy superincreasing subset-sum problem greedily.
//
// WARNING: Merkle–Hellman has been broken since 1982 (Shamir's attack and
// lattice reduction). It is provided for study only. DO NOT use it to protect
// real data.
package knapsack

// Version of the knapsack Go implementation.
const Version = "1.0.0"

// BlockSize is the number of key elements, which is also the number of bits
// encoded per character.
const BlockSize = 8

// =============================================================================
// Key Types
// =============================================================================

// Sequence is an ordered block of key elements. Index i corresponds to bit i
// of a codeword counted from the most significant bit.
type Sequence [BlockSize]uint32

// Sum returns the sum of all elements.
func (s Sequence) Sum() uint64 {
	var sum uint64
	for _, x := range s {
		sum += uint64(x)
	}
	return sum
}

// PrivateKey is the trapdoor: a superincreasing sequence plus the multiplier
// and modulus that disguise it.
type PrivateKey struct {
	Sequence   Sequence `json:"sequence"`
	Multiplier uint32   `json:"multiplier"` // a, coprime to Modulus
	Modulus    uint32   `json:"modulus"`    // n, prime and > sum(Sequence)
}

// PublicKey is the disguised sequence, public[i] = private[i] * a mod n.
type PublicKey struct {
	Sequence Sequence `json:"sequence"`
}

// KeyPair contains both halves of a key.
type KeyPair struct {
	PrivateKey PrivateKey
	PublicKey  PublicKey
}

// Ciphertext holds one subset sum per encrypted character.
type Ciphertext []uint32
