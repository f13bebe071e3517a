// Package main provides the knapsack-cli command line interface for
// Merkle–Hellman key generation, encryption, and decryption.
package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/davecgh/go-spew/spew"

	knapsack "github.com/BackendStack21/knapsack-go"
	"github.com/BackendStack21/knapsack-go/arith"
	"github.com/BackendStack21/knapsack-go/cipher"
	"github.com/BackendStack21/knapsack-go/codec"
	"github.com/BackendStack21/knapsack-go/core"
	"github.com/BackendStack21/knapsack-go/keys"
	"github.com/BackendStack21/knapsack-go/utils"
)

const (
	version = "1.0.0"
	appName = "knapsack-cli"
)

// OutputFormat represents the output format for keys and ciphertext
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// CLIConfig holds CLI configuration
type CLIConfig struct {
	OutputFormat OutputFormat
	OutputFile   string
	InputFile    string
	Verbose      bool
	Timing       bool
}

// InspectReport is printed by the inspect command
type InspectReport struct {
	Valid       bool   `json:"valid"`
	Error       string `json:"error,omitempty"`
	Fingerprint string `json:"fingerprint"`
	SequenceSum uint64 `json:"sequence_sum"`
	Multiplier  uint32 `json:"multiplier"`
	Modulus     uint32 `json:"modulus"`
	Inverse     uint32 `json:"inverse,omitempty"`
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	switch command {
	case "help", "--help", "-h":
		printUsage()
	case "version", "--version", "-v":
		fmt.Printf("%s version %s\n", appName, version)
		fmt.Printf("knapsack library version %s\n", knapsack.Version)
	case "keygen", "keys":
		handleKeygen(os.Args[2:])
	case "encrypt", "enc":
		handleEncrypt(os.Args[2:])
	case "decrypt", "dec":
		handleDecrypt(os.Args[2:])
	case "inspect":
		handleInspect(os.Args[2:])
	case "benchmark":
		handleBenchmark(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Merkle-Hellman knapsack cryptosystem CLI

USAGE:
    %s <COMMAND> [OPTIONS]

COMMANDS:
    keygen      Generate a private and public key
    encrypt     Encrypt text with a public key
    decrypt     Decrypt ciphertext with a private key
    inspect     Validate a key file and print its fingerprint
    benchmark   Run performance benchmarks
    version     Show version information
    help        Show this help message

OPTIONS:
    --format <text|json>    Output format (default: text)
    --output <file>         Output file (default: stdout)
    --timing                Show timing information
    --verbose               Verbose output

KEYGEN OPTIONS:
    --seed <hex>            Derive the key pair from a seed (at least 32 bytes)
    --public-output <file>  Also write the public key alone

ENCRYPT OPTIONS:
    --public-key <file>     Public key file (text or JSON)
    --key "<p0 ... p7>"     Public key given inline
    --message <text>        Message to encrypt
    --input <file>          Read the message from a file (default: stdin);
                            one trailing newline is dropped

DECRYPT OPTIONS:
    --private-key <file>    Private key file (text or JSON)
    --key "<s0 ... s7>" -a <multiplier> -n <modulus>
                            Private key given inline
    --ciphertext <file>     Ciphertext file (text or JSON)
    --cipher "<c0 c1 ...>"  Ciphertext given inline
    --strict                Reject values that are not valid encodings

EXAMPLES:
    %s keygen --output key.txt --public-output pub.txt
    %s encrypt --public-key pub.txt --message "attack at dawn" --output ct.txt
    %s decrypt --private-key key.txt --ciphertext ct.txt
    %s encrypt --key "295 592 301 14 28 353 120 236" --message a
    %s decrypt --key "2 7 11 21 42 89 180 354" -a 588 -n 881 --cipher "1129"
    %s inspect --private-key key.txt --verbose
`, appName, appName, appName, appName, appName, appName, appName, appName)
}

// ============================================================================
// Commands
// ============================================================================

// generateKeyHMAC computes HMAC-SHA256 of the private key keyed with the
// public key. It only detects accidental corruption of a key file: the public
// key is not secret, so anyone can forge the value.
func generateKeyHMAC(kp *knapsack.KeyPair) string {
	h := hmac.New(sha256.New, []byte(codec.MarshalPublicKey(&kp.PublicKey)))
	h.Write([]byte(codec.MarshalPrivateKey(&kp.PrivateKey)))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func verifyKeyHMAC(kp *knapsack.KeyPair, encoded string) error {
	got, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("invalid key_hmac: %w", err)
	}
	want, _ := base64.StdEncoding.DecodeString(generateKeyHMAC(kp))
	if !utils.ConstantTimeEqual(got, want) {
		return fmt.Errorf("key file integrity check failed")
	}
	return nil
}

func handleKeygen(args []string) {
	config := parseConfig(args)
	seedHex := getArg(args, "--seed", "-s")
	publicOutput := getArg(args, "--public-output", "-po")

	start := time.Now()
	var kp *knapsack.KeyPair
	var err error
	if seedHex != "" {
		seed, decErr := hex.DecodeString(seedHex)
		if decErr != nil {
			fmt.Fprintf(os.Stderr, "Invalid seed hex: %v\n", decErr)
			os.Exit(1)
		}
		kp, err = keys.GenerateKeyPairFromSeed(seed)
		utils.Zeroize(seed)
	} else {
		kp, err = keys.GenerateKeyPair()
	}
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error generating key pair: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Key generation took: %v\n", elapsed)
	}

	var output, publicOnly []byte
	switch config.OutputFormat {
	case FormatJSON:
		export := codec.NewKeyPairExport(kp, time.Now())
		export.KeyHMAC = generateKeyHMAC(kp)
		output, err = codec.MarshalKeyPairJSON(export)
		if err == nil {
			publicOnly, err = json.MarshalIndent(export.PublicKeyExport(), "", "  ")
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
			os.Exit(1)
		}
	default:
		output = []byte(codec.MarshalKeyPair(kp))
		publicOnly = []byte(codec.MarshalPublicKey(&kp.PublicKey))
	}

	writeOutput(output, config.OutputFile)
	if publicOutput != "" {
		writeOutput(publicOnly, publicOutput)
	}

	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Generated key pair\n")
		fmt.Fprintf(os.Stderr, "Fingerprint: %s\n", keys.Fingerprint(&kp.PublicKey))
		fmt.Fprintf(os.Stderr, "Modulus: %d, sequence sum: %d\n", kp.PrivateKey.Modulus, kp.PrivateKey.Sequence.Sum())
	}
	wipePrivateKey(&kp.PrivateKey)
}

func handleEncrypt(args []string) {
	config := parseConfig(args)
	pkFile := getArg(args, "--public-key", "-pk")
	inlineKey := getArg(args, "--key", "-k")
	message := getArg(args, "--message", "-m")

	var pk *knapsack.PublicKey
	var err error
	switch {
	case pkFile != "":
		pk, err = loadPublicKeyFromFile(pkFile)
	case inlineKey != "":
		pk, err = codec.ParsePublicKey(inlineKey)
	default:
		fmt.Fprintf(os.Stderr, "Error: --public-key or --key is required\n")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading public key: %v\n", err)
		os.Exit(1)
	}

	// Get message from argument, file, or stdin
	if message == "" && !hasFlag(args, "--message", "-m") {
		var msgBytes []byte
		if config.InputFile != "" {
			msgBytes, err = readLimitedFile(config.InputFile)
		} else {
			msgBytes, err = io.ReadAll(io.LimitReader(os.Stdin, utils.MaxInputFileSize))
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading message: %v\n", err)
			os.Exit(1)
		}
		// A single trailing newline, as left by editors and echo, is not part of the message.
		message = strings.TrimSuffix(string(msgBytes), "\n")
	}

	start := time.Now()
	ct, err := cipher.Encrypt(pk, message)
	elapsed := time.Since(start)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error encrypting: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Encryption took: %v\n", elapsed)
	}

	var output []byte
	switch config.OutputFormat {
	case FormatJSON:
		export := codec.CiphertextExport{
			Fingerprint: keys.Fingerprint(pk),
			Ciphertext:  ct,
		}
		output, err = json.MarshalIndent(export, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
			os.Exit(1)
		}
	default:
		output = []byte(codec.MarshalCiphertext(ct))
	}

	writeOutput(output, config.OutputFile)

	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Encryption successful\n")
		fmt.Fprintf(os.Stderr, "Encrypted %d characters with key %s\n", len(ct), keys.Fingerprint(pk))
	}
}

func handleDecrypt(args []string) {
	config := parseConfig(args)
	skFile := getArg(args, "--private-key", "-sk")
	inlineKey := getArg(args, "--key", "-k")
	ctFile := getArg(args, "--ciphertext", "-ct")
	inlineCipher := getArg(args, "--cipher", "-c")
	strict := hasFlag(args, "--strict", "")

	var sk *knapsack.PrivateKey
	var err error
	switch {
	case skFile != "":
		sk, err = loadPrivateKeyFromFile(skFile)
	case inlineKey != "":
		a := getArg(args, "--multiplier", "-a")
		n := getArg(args, "--modulus", "-n")
		if a == "" || n == "" {
			fmt.Fprintf(os.Stderr, "Error: --key requires -a <multiplier> and -n <modulus>\n")
			os.Exit(1)
		}
		sk, err = codec.ParsePrivateKey(inlineKey + "\n" + a + " " + n)
	default:
		fmt.Fprintf(os.Stderr, "Error: --private-key or --key is required\n")
		os.Exit(1)
	}
	if err == nil {
		err = core.ValidatePrivateKey(sk)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading private key: %v\n", err)
		os.Exit(1)
	}

	var ct knapsack.Ciphertext
	var ctFingerprint string
	switch {
	case ctFile != "":
		ct, ctFingerprint, err = loadCiphertextFromFile(ctFile)
	case inlineCipher != "":
		ct, err = codec.ParseCiphertext(inlineCipher)
	default:
		fmt.Fprintf(os.Stderr, "Error: --ciphertext or --cipher is required\n")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading ciphertext: %v\n", err)
		os.Exit(1)
	}
	if ctFingerprint != "" {
		if err := checkFingerprint(sk, ctFingerprint); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	start := time.Now()
	var message string
	if strict {
		message, err = cipher.DecryptStrict(ct, sk)
	} else {
		message, err = cipher.Decrypt(ct, sk)
	}
	elapsed := time.Since(start)
	wipePrivateKey(sk)

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error decrypting: %v\n", err)
		os.Exit(1)
	}

	if config.Timing {
		fmt.Fprintf(os.Stderr, "Decryption took: %v\n", elapsed)
	}

	writeOutput([]byte(message), config.OutputFile)

	if config.Verbose {
		fmt.Fprintf(os.Stderr, "Decryption successful\n")
		fmt.Fprintf(os.Stderr, "Decrypted %d characters\n", len(ct))
	}
}

func handleInspect(args []string) {
	config := parseConfig(args)
	skFile := getArg(args, "--private-key", "-sk")

	if skFile == "" {
		fmt.Fprintf(os.Stderr, "Error: --private-key is required\n")
		os.Exit(1)
	}

	kp, err := readKeyPairFile(skFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading key pair: %v\n", err)
		os.Exit(1)
	}

	report := InspectReport{
		Valid:       true,
		Fingerprint: keys.Fingerprint(&kp.PublicKey),
		SequenceSum: kp.PrivateKey.Sequence.Sum(),
		Multiplier:  kp.PrivateKey.Multiplier,
		Modulus:     kp.PrivateKey.Modulus,
	}
	if err := core.ValidateKeyPair(kp); err != nil {
		report.Valid = false
		report.Error = err.Error()
	} else if inv, err := arith.ModInverse(kp.PrivateKey.Multiplier, kp.PrivateKey.Modulus); err == nil {
		report.Inverse = inv
	}

	output, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling output: %v\n", err)
		os.Exit(1)
	}

	writeOutput(output, config.OutputFile)

	if config.Verbose {
		spew.Fdump(os.Stderr, kp)
	}
	wipePrivateKey(&kp.PrivateKey)
	if !report.Valid {
		os.Exit(2)
	}
}

func handleBenchmark(args []string) {
	iterationsStr := getArg(args, "--iterations", "-n")

	iterations := 1000
	if iterationsStr != "" {
		_, _ = fmt.Sscanf(iterationsStr, "%d", &iterations)
	}

	if iterations < 1 {
		iterations = 1
	}

	fmt.Printf("Merkle-Hellman Benchmark Results\n")
	fmt.Printf("================================\n")
	fmt.Printf("Iterations: %d\n\n", iterations)

	var keygenTotal time.Duration
	var kp *knapsack.KeyPair
	for i := 0; i < iterations; i++ {
		start := time.Now()
		var err error
		kp, err = keys.GenerateKeyPair()
		keygenTotal += time.Since(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Keygen error: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("  KeyGen:  %v (avg)\n", keygenTotal/time.Duration(iterations))

	testMessage := strings.Repeat("Hello, knapsack! ", 10)
	var encryptTotal time.Duration
	var ct knapsack.Ciphertext
	for i := 0; i < iterations; i++ {
		start := time.Now()
		var err error
		ct, err = cipher.Encrypt(&kp.PublicKey, testMessage)
		encryptTotal += time.Since(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Encrypt error: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("  Encrypt: %v (avg, %d chars)\n", encryptTotal/time.Duration(iterations), len(ct))

	var decryptTotal time.Duration
	for i := 0; i < iterations; i++ {
		start := time.Now()
		msg, err := cipher.Decrypt(ct, &kp.PrivateKey)
		decryptTotal += time.Since(start)
		if err != nil || msg != testMessage {
			fmt.Fprintf(os.Stderr, "Decrypt error: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("  Decrypt: %v (avg)\n", decryptTotal/time.Duration(iterations))

	payload, err := utils.SecureRandomBytes(256)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Random payload error: %v\n", err)
		os.Exit(1)
	}
	var bytesTotal time.Duration
	for i := 0; i < iterations; i++ {
		start := time.Now()
		ct, err := cipher.EncryptBytes(&kp.PublicKey, payload)
		if err == nil {
			var out []byte
			out, err = cipher.DecryptBytes(ct, &kp.PrivateKey)
			if err == nil && !utils.ConstantTimeEqual(out, payload) {
				err = fmt.Errorf("payload mismatch")
			}
		}
		bytesTotal += time.Since(start)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Bytes round trip error: %v\n", err)
			os.Exit(1)
		}
	}
	fmt.Printf("  Bytes:   %v (avg round trip, %d random bytes)\n", bytesTotal/time.Duration(iterations), len(payload))

	fmt.Println()
	fmt.Println("Benchmark complete!")
}

// ============================================================================
// Utility Functions
// ============================================================================

func parseConfig(args []string) CLIConfig {
	config := CLIConfig{
		OutputFormat: FormatText,
	}

	format := getArg(args, "--format", "-f")
	switch format {
	case "text":
		config.OutputFormat = FormatText
	case "json":
		config.OutputFormat = FormatJSON
	case "":
		// No format specified, use default
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid format '%s'. Must be one of: text, json\n", format)
		os.Exit(1)
	}

	config.OutputFile = getArg(args, "--output", "-o")
	config.InputFile = getArg(args, "--input", "-i")
	config.Verbose = hasFlag(args, "--verbose", "-v")
	config.Timing = hasFlag(args, "--timing", "-t")

	return config
}

func getArg(args []string, long, short string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == long || (short != "" && args[i] == short) {
			return args[i+1]
		}
	}
	return ""
}

func hasFlag(args []string, long, short string) bool {
	for _, arg := range args {
		if arg == long || (short != "" && arg == short) {
			return true
		}
	}
	return false
}

// readLimitedFile reads a file after checking its size.
func readLimitedFile(filename string) ([]byte, error) {
	info, err := os.Stat(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.Size() > utils.MaxInputFileSize {
		return nil, fmt.Errorf("input file too large: %d > %d bytes", info.Size(), utils.MaxInputFileSize)
	}
	return os.ReadFile(filename)
}

func isJSON(data []byte) bool {
	trimmed := strings.TrimSpace(string(data))
	return strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed))
}

// readKeyPairFile reads a key pair from a JSON export or from the three-line
// text written by keygen. A two-line private key file is also accepted; its
// public key is derived when the private sequence allows it. Only the format
// and the JSON key_hmac are checked: key invariants are left to the caller.
func readKeyPairFile(filename string) (*knapsack.KeyPair, error) {
	data, err := readLimitedFile(filename)
	if err != nil {
		return nil, err
	}

	if isJSON(data) {
		export, err := codec.UnmarshalKeyPairJSON(data)
		if err != nil {
			return nil, err
		}
		kp, err := export.Decode()
		if err != nil {
			return nil, err
		}
		if export.KeyHMAC != "" {
			if err := verifyKeyHMAC(kp, export.KeyHMAC); err != nil {
				return nil, err
			}
		}
		return kp, nil
	}

	if kp, err := codec.ParseKeyPair(string(data)); err == nil {
		return kp, nil
	}
	sk, err := codec.ParsePrivateKey(string(data))
	if err != nil {
		return nil, err
	}
	kp := &knapsack.KeyPair{PrivateKey: *sk}
	if pk, err := keys.GeneratePublicKey(sk); err == nil {
		kp.PublicKey = *pk
	}
	return kp, nil
}

func loadPrivateKeyFromFile(filename string) (*knapsack.PrivateKey, error) {
	kp, err := readKeyPairFile(filename)
	if err != nil {
		return nil, err
	}
	return &kp.PrivateKey, nil
}

func loadPublicKeyFromFile(filename string) (*knapsack.PublicKey, error) {
	data, err := readLimitedFile(filename)
	if err != nil {
		return nil, err
	}
	if isJSON(data) {
		return codec.UnmarshalPublicKeyJSON(data)
	}
	return codec.ParsePublicKey(string(data))
}

// loadCiphertextFromFile also returns the fingerprint of the key a JSON
// ciphertext was encrypted for; text ciphertexts carry none.
func loadCiphertextFromFile(filename string) (knapsack.Ciphertext, string, error) {
	data, err := readLimitedFile(filename)
	if err != nil {
		return nil, "", err
	}
	if isJSON(data) {
		e, err := codec.UnmarshalCiphertextExport(data)
		if err != nil {
			return nil, "", err
		}
		return knapsack.Ciphertext(e.Ciphertext), e.Fingerprint, nil
	}
	ct, err := codec.ParseCiphertext(string(data))
	return ct, "", err
}

// checkFingerprint rejects a ciphertext encrypted for a different key than sk.
func checkFingerprint(sk *knapsack.PrivateKey, want string) error {
	pk, err := keys.GeneratePublicKey(sk)
	if err != nil {
		return err
	}
	if got := keys.Fingerprint(pk); got != want {
		return fmt.Errorf("ciphertext was encrypted for key %s, but the private key belongs to %s", want, got)
	}
	return nil
}

// wipePrivateKey clears private key material once a command is done with it.
func wipePrivateKey(sk *knapsack.PrivateKey) {
	utils.ZeroizeUint32(sk.Sequence[:])
	sk.Multiplier, sk.Modulus = 0, 0
}

func writeOutput(data []byte, filename string) {
	if filename != "" {
		// Key files hold private material: owner read-write only.
		f, err := os.OpenFile(filename, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating output file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()

		if _, err := f.Write(data); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}

		if err := os.Chmod(filename, 0600); err != nil {
			fmt.Fprintf(os.Stderr, "Error setting file permissions: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Println(strings.TrimSuffix(string(data), "\n"))
	}
}
