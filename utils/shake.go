package utils

import (
	"io"

	"golang.org/x/crypto/sha3"
)

// NewShakeReader returns an endless deterministic byte stream: the SHAKE256
// output for the domain-separated seed. It is used to make key generation
// reproducible from a seed.
func NewShakeReader(domain string, seed []byte) io.Reader {
	h := sha3.NewShake256()
	writeDomain(h, domain)
	h.Write(seed)
	return h
}

// HashWithDomain computes a domain-separated SHA3-256 hash.
// It prefixes the data with the length of the domain string and the domain string itself.
// Panics if domain is longer than 255 bytes.
func HashWithDomain(domain string, data []byte) []byte {
	h := sha3.New256()
	writeDomain(h, domain)
	h.Write(data)
	return h.Sum(nil)
}

func writeDomain(w io.Writer, domain string) {
	domainBytes := []byte(domain)
	if len(domainBytes) > 255 {
		panic("domain string must be at most 255 bytes")
	}
	w.Write([]byte{byte(len(domainBytes))})
	w.Write(domainBytes)
}
