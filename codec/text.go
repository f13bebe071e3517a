// Package codec reads and writes keys and ciphertext.
//
// The text forms are whitespace-separated decimal integers:
//
//	private key:  s0 s1 ... s7
//	              a n
//	public key:   p0 p1 ... p7
//	ciphertext:   c0 c1 ... ck
//
// The JSON form bundles a whole key pair with metadata.
package codec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	knapsack "github.com/BackendStack21/knapsack-go"
	"github.com/BackendStack21/knapsack-go/utils"
)

// ErrMalformed is wrapped by every parse error.
var ErrMalformed = errors.New("malformed input")

// MarshalPrivateKey renders sk as two lines.
func MarshalPrivateKey(sk *knapsack.PrivateKey) string {
	return joinUint32(sk.Sequence[:]) + "\n" +
		strconv.FormatUint(uint64(sk.Multiplier), 10) + " " +
		strconv.FormatUint(uint64(sk.Modulus), 10) + "\n"
}

// MarshalPublicKey renders pk as one line.
func MarshalPublicKey(pk *knapsack.PublicKey) string {
	return joinUint32(pk.Sequence[:]) + "\n"
}

// MarshalKeyPair renders the private key lines followed by the public key line.
func MarshalKeyPair(kp *knapsack.KeyPair) string {
	return MarshalPrivateKey(&kp.PrivateKey) + MarshalPublicKey(&kp.PublicKey)
}

// MarshalCiphertext renders ct as one line.
func MarshalCiphertext(ct knapsack.Ciphertext) string {
	return joinUint32(ct) + "\n"
}

// ParsePrivateKey reads the first two non-empty lines of data. Trailing
// lines, such as the public key written by MarshalKeyPair, are ignored.
func ParsePrivateKey(data string) (*knapsack.PrivateKey, error) {
	lines := nonEmptyLines(data)
	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: private key needs a sequence line and a multiplier/modulus line", ErrMalformed)
	}

	seq, err := parseSequence(lines[0])
	if err != nil {
		return nil, fmt.Errorf("private key sequence: %w", err)
	}
	trapdoor, err := parseUint32s(lines[1])
	if err != nil {
		return nil, fmt.Errorf("private key multiplier/modulus: %w", err)
	}
	if len(trapdoor) != 2 {
		return nil, fmt.Errorf("%w: expected multiplier and modulus, got %d values", ErrMalformed, len(trapdoor))
	}

	return &knapsack.PrivateKey{Sequence: seq, Multiplier: trapdoor[0], Modulus: trapdoor[1]}, nil
}

// ParsePublicKey reads the last non-empty line of data, so both a bare
// public key and a MarshalKeyPair document are accepted.
func ParsePublicKey(data string) (*knapsack.PublicKey, error) {
	lines := nonEmptyLines(data)
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: empty public key", ErrMalformed)
	}
	seq, err := parseSequence(lines[len(lines)-1])
	if err != nil {
		return nil, fmt.Errorf("public key: %w", err)
	}
	return &knapsack.PublicKey{Sequence: seq}, nil
}

// ParseKeyPair reads the three-line document written by MarshalKeyPair.
func ParseKeyPair(data string) (*knapsack.KeyPair, error) {
	lines := nonEmptyLines(data)
	if len(lines) != 3 {
		return nil, fmt.Errorf("%w: key pair needs 3 lines, got %d", ErrMalformed, len(lines))
	}
	sk, err := ParsePrivateKey(data)
	if err != nil {
		return nil, err
	}
	pk, err := ParsePublicKey(lines[2])
	if err != nil {
		return nil, err
	}
	return &knapsack.KeyPair{PrivateKey: *sk, PublicKey: *pk}, nil
}

// ParseCiphertext reads all integers in data, across any number of lines.
func ParseCiphertext(data string) (knapsack.Ciphertext, error) {
	fields := strings.Fields(data)
	if err := utils.CheckLength(len(fields), utils.MaxMessageLength); err != nil {
		return nil, fmt.Errorf("ciphertext: %w", err)
	}
	values, err := parseFields(fields)
	if err != nil {
		return nil, fmt.Errorf("ciphertext: %w", err)
	}
	return knapsack.Ciphertext(values), nil
}

func parseSequence(line string) (knapsack.Sequence, error) {
	var seq knapsack.Sequence
	values, err := parseUint32s(line)
	if err != nil {
		return seq, err
	}
	if len(values) != knapsack.BlockSize {
		return seq, fmt.Errorf("%w: expected %d values, got %d", ErrMalformed, knapsack.BlockSize, len(values))
	}
	copy(seq[:], values)
	return seq, nil
}

func parseUint32s(line string) ([]uint32, error) {
	return parseFields(strings.Fields(line))
}

func parseFields(fields []string) ([]uint32, error) {
	values := make([]uint32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: token %d %q is not a 32-bit unsigned integer", ErrMalformed, i, f)
		}
		values[i] = uint32(v)
	}
	return values, nil
}

func joinUint32(values []uint32) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatUint(uint64(v), 10)
	}
	return strings.Join(parts, " ")
}

func nonEmptyLines(data string) []string {
	var lines []string
	for _, l := range strings.Split(data, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
