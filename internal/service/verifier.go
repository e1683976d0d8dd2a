package service

import (
	"crypto/hmac"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/dayanaadylkhanova/powgate/internal/entity"
)

// Verifier checks solutions without any state of its own, apart from the
// optional replay guard.
type Verifier struct {
	key []byte
	settings
}

func NewVerifier(key string, opts ...Option) (*Verifier, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty hmac key", ErrConfiguration)
	}
	s := defaultSettings()
	for _, o := range opts {
		o(&s)
	}
	if s.maxNumber <= 0 {
		return nil, fmt.Errorf("%w: max number %d", ErrConfiguration, s.maxNumber)
	}
	return &Verifier{key: []byte(key), settings: s}, nil
}

func reject(reason error) error {
	return fmt.Errorf("%w: %w", ErrRejected, reason)
}

// Verify returns nil when sol answers a challenge this server signed and the
// challenge is still live. Checks run in a fixed order: signature, expiry,
// proof, range, replay. Every failure wraps ErrRejected.
func (v *Verifier) Verify(sol entity.Solution) error {
	alg, err := ParseAlgorithm(sol.Algorithm)
	if err != nil {
		return reject(err)
	}
	if sol.Challenge == "" || sol.Salt == "" || sol.Signature == "" {
		return reject(ErrMalformed)
	}
	newHash, err := alg.hasher()
	if err != nil {
		return reject(err)
	}

	want := sign(newHash, v.key, sol.Challenge)
	if !hmac.Equal([]byte(want), []byte(strings.ToLower(sol.Signature))) {
		return reject(ErrInvalidSignature)
	}

	params, err := parseSalt(sol.Salt)
	if err != nil {
		return reject(err)
	}
	if v.now().After(time.Unix(params.expires, 0)) {
		return reject(ErrExpired)
	}

	got := digest(newHash, sol.Salt, sol.Number)
	if subtle.ConstantTimeCompare([]byte(got), []byte(strings.ToLower(sol.Challenge))) != 1 {
		return reject(ErrInvalidProof)
	}

	maxNumber := v.maxNumber
	if params.hasMax {
		maxNumber = params.max
	}
	if sol.Number < 0 || sol.Number > maxNumber {
		return reject(ErrOutOfRange)
	}

	if v.guard != nil && !v.guard.Claim(strings.ToLower(sol.Signature), time.Unix(params.expires, 0)) {
		return reject(ErrReplayed)
	}
	return nil
}
