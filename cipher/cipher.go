// Package cipher implements Merkle–Hellman encryption and decryption.
//
// Each character is one block: its code point is written as an 8-bit
// codeword, most significant bit first, and encrypted as the sum of the
// public key elements selected by the set bits.
package cipher

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	knapsack "github.com/BackendStack21/knapsack-go"
	"github.com/BackendStack21/knapsack-go/arith"
	"github.com/BackendStack21/knapsack-go/utils"
)

// maxCodePoint is the largest code point that fits in one block.
const maxCodePoint = 1<<knapsack.BlockSize - 1

// EncodeBlock returns the subset sum of pk selected by the bits of b, or
// utils.ErrOverflow if the sum does not fit in a uint32. Keys generated by
// this module never overflow; the check guards keys read from elsewhere.
func EncodeBlock(pk *knapsack.PublicKey, b byte) (uint32, error) {
	var sum uint32
	for i, w := range pk.Sequence {
		if b&(1<<(knapsack.BlockSize-1-i)) == 0 {
			continue
		}
		var err error
		if sum, err = utils.SafeAdd(sum, w); err != nil {
			return 0, err
		}
	}
	return sum, nil
}

// DecodeBlock solves the superincreasing subset-sum problem for target by
// scanning the sequence from the largest element down. It returns the
// codeword and whatever part of target could not be covered, which is zero
// for every valid encoding.
func DecodeBlock(seq knapsack.Sequence, target uint64) (byte, uint64) {
	var b byte
	for i := knapsack.BlockSize - 1; i >= 0; i-- {
		if target >= uint64(seq[i]) {
			target -= uint64(seq[i])
			b |= 1 << (knapsack.BlockSize - 1 - i)
		}
	}
	return b, target
}

// Encrypt encrypts message one character per ciphertext element. Characters
// above U+00FF are rejected with an *knapsack.EncodingRangeError.
func Encrypt(pk *knapsack.PublicKey, message string) (knapsack.Ciphertext, error) {
	if pk == nil {
		return nil, errors.New("nil public key")
	}
	n := utf8.RuneCountInString(message)
	if err := utils.CheckLength(n, utils.MaxMessageLength); err != nil {
		return nil, err
	}

	ct := make(knapsack.Ciphertext, 0, n)
	pos := 0
	for _, r := range message {
		if r < 0 || r > maxCodePoint {
			return nil, &knapsack.EncodingRangeError{Position: pos, Char: r}
		}
		c, err := EncodeBlock(pk, byte(r))
		if err != nil {
			return nil, fmt.Errorf("character %d: %w", pos, err)
		}
		ct = append(ct, c)
		pos++
	}
	return ct, nil
}

// EncryptBytes encrypts raw bytes, one ciphertext element per byte.
func EncryptBytes(pk *knapsack.PublicKey, data []byte) (knapsack.Ciphertext, error) {
	if pk == nil {
		return nil, errors.New("nil public key")
	}
	if err := utils.CheckLength(len(data), utils.MaxMessageLength); err != nil {
		return nil, err
	}
	ct := make(knapsack.Ciphertext, len(data))
	for i, b := range data {
		c, err := EncodeBlock(pk, b)
		if err != nil {
			return nil, fmt.Errorf("byte %d: %w", i, err)
		}
		ct[i] = c
	}
	return ct, nil
}

// Decrypt recovers the message encrypted under the public key matching sk.
// Elements that are not valid encodings still decode deterministically to
// some character; use DecryptStrict to reject them.
func Decrypt(ct knapsack.Ciphertext, sk *knapsack.PrivateKey) (string, error) {
	return decrypt(ct, sk, false)
}

// DecryptStrict is Decrypt, but an element whose subset sum cannot be fully
// reconstructed from the private sequence is reported as a
// *knapsack.DecodingError.
func DecryptStrict(ct knapsack.Ciphertext, sk *knapsack.PrivateKey) (string, error) {
	return decrypt(ct, sk, true)
}

// DecryptBytes recovers raw bytes encrypted with EncryptBytes. Like
// DecryptStrict, it rejects elements that are not valid encodings.
func DecryptBytes(ct knapsack.Ciphertext, sk *knapsack.PrivateKey) ([]byte, error) {
	out := make([]byte, len(ct))
	err := decryptEach(ct, sk, true, func(i int, b byte) error {
		out[i] = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decrypt(ct knapsack.Ciphertext, sk *knapsack.PrivateKey, strict bool) (string, error) {
	var sb strings.Builder
	sb.Grow(len(ct))
	err := decryptEach(ct, sk, strict, func(i int, b byte) error {
		r := rune(b)
		if !utf8.ValidRune(r) {
			return &knapsack.DecodingError{Position: i, Value: ct[i], Reason: "decoded value is not a Unicode scalar"}
		}
		sb.WriteRune(r)
		return nil
	})
	if err != nil {
		return "", err
	}
	return sb.String(), nil
}

// decryptEach computes the inverse once and hands every decoded codeword to
// emit in ciphertext order.
func decryptEach(ct knapsack.Ciphertext, sk *knapsack.PrivateKey, strict bool, emit func(int, byte) error) error {
	if sk == nil {
		return errors.New("nil private key")
	}
	inv, err := arith.ModInverse(sk.Multiplier, sk.Modulus)
	if err != nil {
		return err
	}
	n := uint64(sk.Modulus)

	for i, c := range ct {
		cc := uint64(c) % n * uint64(inv) % n
		b, rest := DecodeBlock(sk.Sequence, cc)
		if strict && rest != 0 {
			return &knapsack.DecodingError{Position: i, Value: c, Reason: "not a subset sum of the private sequence"}
		}
		if err := emit(i, b); err != nil {
			return err
		}
	}
	return nil
}
