// Package keys generates Merkle–Hellman key pairs.
//
// Every generator takes the entropy source explicitly as an io.Reader. The
// convenience wrappers use utils.RandReader, and GenerateKeyPairFromSeed
// expands a seed with SHAKE256 so key generation can be reproduced exactly.
package keys

import (
	"encoding/hex"
	"errors"
	"io"

	knapsack "github.com/BackendStack21/knapsack-go"
	"github.com/BackendStack21/knapsack-go/arith"
	"github.com/BackendStack21/knapsack-go/core"
	"github.com/BackendStack21/knapsack-go/utils"
)

// Domain separation strings for seed expansion and key fingerprints.
const (
	DomainSeed        = "knapsack-keygen-seed-v1"
	DomainFingerprint = "knapsack-pk-fingerprint-v1"
)

// maxMultiplierDraws bounds the rejection loop for a multiplier coprime to
// the modulus.
const maxMultiplierDraws = 64

// GenerateKeyPair generates a key pair from utils.RandReader with the
// default parameters.
func GenerateKeyPair() (*knapsack.KeyPair, error) {
	return GenerateKeyPairFrom(utils.RandReader)
}

// GenerateKeyPairFrom generates a key pair with the default parameters,
// drawing all randomness from r.
func GenerateKeyPairFrom(r io.Reader) (*knapsack.KeyPair, error) {
	return GenerateKeyPairWithParams(r, core.DefaultParams)
}

// GenerateKeyPairFromSeed generates a deterministic key pair from seed.
func GenerateKeyPairFromSeed(seed []byte) (*knapsack.KeyPair, error) {
	if len(seed) < 32 {
		return nil, errors.New("seed must be at least 32 bytes")
	}
	if err := utils.ValidateSeedEntropy(seed); err != nil {
		return nil, err
	}
	return GenerateKeyPairFrom(utils.NewShakeReader(DomainSeed, seed))
}

// GenerateKeyPairWithParams builds the private key, derives the public key,
// and validates the result.
func GenerateKeyPairWithParams(r io.Reader, params core.Params) (*knapsack.KeyPair, error) {
	sk, err := GeneratePrivateKeyWithParams(r, params)
	if err != nil {
		return nil, err
	}
	pk, err := GeneratePublicKey(sk)
	if err != nil {
		return nil, err
	}

	kp := &knapsack.KeyPair{PrivateKey: *sk, PublicKey: *pk}
	if err := core.ValidateKeyPair(kp); err != nil {
		return nil, &knapsack.KeyGenerationError{Reason: "invalid key pair", Err: err}
	}
	dumpKeyPair(kp)
	return kp, nil
}

// GenerateSuperincreasingSequence draws a superincreasing sequence with the
// default parameters: the first element in [2, 10), every later element the
// running sum plus a gap in [1, 10).
func GenerateSuperincreasingSequence(r io.Reader) (knapsack.Sequence, error) {
	return generateSequence(r, core.DefaultParams)
}

func generateSequence(r io.Reader, params core.Params) (knapsack.Sequence, error) {
	var seq knapsack.Sequence

	start, err := utils.RandomRange(r, params.StartMin, params.StartMax)
	if err != nil {
		return seq, err
	}
	seq[0] = start
	sum := start

	for i := 1; i < knapsack.BlockSize; i++ {
		gap, err := utils.RandomRange(r, params.IncrementMin, params.IncrementMax)
		if err != nil {
			return seq, err
		}
		next, err := utils.SafeAdd(sum, gap)
		if err != nil {
			return seq, &knapsack.KeyGenerationError{Reason: "sequence element overflows", Err: err}
		}
		seq[i] = next
		if sum, err = utils.SafeAdd(sum, next); err != nil {
			return seq, &knapsack.KeyGenerationError{Reason: "sequence sum overflows", Err: err}
		}
	}

	logf("sequence %v (sum %d)", seq, sum)
	return seq, nil
}

// GeneratePrivateKey draws a superincreasing sequence, picks the smallest
// prime above its sum as the modulus, and draws a multiplier in [2, 1000)
// coprime to that modulus.
func GeneratePrivateKey(r io.Reader) (*knapsack.PrivateKey, error) {
	return GeneratePrivateKeyWithParams(r, core.DefaultParams)
}

// GeneratePrivateKeyWithParams is GeneratePrivateKey with explicit sampling
// ranges.
func GeneratePrivateKeyWithParams(r io.Reader, params core.Params) (*knapsack.PrivateKey, error) {
	if err := core.ValidateParams(params); err != nil {
		return nil, &knapsack.KeyGenerationError{Reason: "invalid params", Err: err}
	}

	seq, err := generateSequence(r, params)
	if err != nil {
		return nil, err
	}

	sum := seq.Sum()
	if sum >= 1<<32-1 {
		return nil, &knapsack.KeyGenerationError{Reason: "sequence sum leaves no room for a modulus", Err: utils.ErrOverflow}
	}
	// The modulus must be strictly greater than the sum, so a prime sum is skipped.
	n, err := arith.NextPrime(uint32(sum) + 1)
	if err != nil {
		return nil, &knapsack.KeyGenerationError{Reason: "no prime modulus above sequence sum", Err: err}
	}

	var a uint32
	for attempt := 0; ; attempt++ {
		if attempt == maxMultiplierDraws {
			return nil, &knapsack.KeyGenerationError{Reason: "no multiplier coprime to the modulus"}
		}
		a, err = utils.RandomRange(r, params.MultiplierMin, params.MultiplierMax)
		if err != nil {
			return nil, err
		}
		if arith.GCD(a, n) == 1 {
			break
		}
		logf("multiplier %d shares a factor with modulus %d, redrawing", a, n)
	}

	sk := &knapsack.PrivateKey{Sequence: seq, Multiplier: a, Modulus: n}
	if err := core.ValidatePrivateKey(sk); err != nil {
		return nil, &knapsack.KeyGenerationError{Reason: "invalid private key", Err: err}
	}
	logf("modulus %d, multiplier %d", n, a)
	return sk, nil
}

// GeneratePublicKey computes public[i] = private[i] * a mod n. The private
// sequence must be superincreasing; primality of the modulus is not checked
// here.
func GeneratePublicKey(sk *knapsack.PrivateKey) (*knapsack.PublicKey, error) {
	if sk == nil {
		return nil, errors.New("nil private key")
	}
	if !core.IsSuperincreasing(sk.Sequence) {
		return nil, &knapsack.KeyGenerationError{Reason: "private sequence is not superincreasing"}
	}
	if sk.Modulus == 0 {
		return nil, &knapsack.KeyGenerationError{Reason: "zero modulus"}
	}

	pk := &knapsack.PublicKey{}
	a, n := uint64(sk.Multiplier), uint64(sk.Modulus)
	for i, x := range sk.Sequence {
		pk.Sequence[i] = uint32(uint64(x) * a % n)
	}
	return pk, nil
}

// Fingerprint returns a short identifier for a public key: the first 16
// bytes of a domain-separated SHA3-256 digest, hex encoded.
func Fingerprint(pk *knapsack.PublicKey) string {
	buf := make([]byte, 0, 4*knapsack.BlockSize)
	for _, x := range pk.Sequence {
		buf = append(buf, byte(x>>24), byte(x>>16), byte(x>>8), byte(x))
	}
	return hex.EncodeToString(utils.HashWithDomain(DomainFingerprint, buf)[:16])
}
