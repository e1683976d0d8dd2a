package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Algorithm names the hash used for both the proof digest and the HMAC.
// The identifier travels inside every challenge.
type Algorithm string

const (
	SHA256     Algorithm = "SHA-256"
	SHA384     Algorithm = "SHA-384"
	SHA512     Algorithm = "SHA-512"
	SHA3_256   Algorithm = "SHA3-256"
	BLAKE2b256 Algorithm = "BLAKE2B-256"
)

func blake2b256() hash.Hash {
	// New256 only fails for keys longer than 64 bytes.
	h, _ := blake2b.New256(nil)
	return h
}

var hashes = map[Algorithm]func() hash.Hash{
	SHA256:     sha256.New,
	SHA384:     sha512.New384,
	SHA512:     sha512.New,
	SHA3_256:   sha3.New256,
	BLAKE2b256: blake2b256,
}

// ParseAlgorithm is case-insensitive and tolerates a missing dash ("sha256").
func ParseAlgorithm(s string) (Algorithm, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	for a := range hashes {
		if norm == string(a) || norm == strings.ReplaceAll(string(a), "-", "") {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
}

func (a Algorithm) hasher() (func() hash.Hash, error) {
	h, ok := hashes[a]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, string(a))
	}
	return h, nil
}

// Digest is the proof-of-work function: hex(H(salt ‖ decimal(number))).
// Solvers and the server must agree on it byte for byte.
func Digest(a Algorithm, salt string, number int64) (string, error) {
	newHash, err := a.hasher()
	if err != nil {
		return "", err
	}
	return digest(newHash, salt, number), nil
}

func digest(newHash func() hash.Hash, salt string, number int64) string {
	h := newHash()
	h.Write([]byte(salt))
	h.Write(strconv.AppendInt(make([]byte, 0, 20), number, 10))
	return hex.EncodeToString(h.Sum(nil))
}

func sign(newHash func() hash.Hash, key []byte, challenge string) string {
	m := hmac.New(newHash, key)
	m.Write([]byte(challenge))
	return hex.EncodeToString(m.Sum(nil))
}
