package service

import (
	"crypto/rand"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/dayanaadylkhanova/powgate/internal/entity"
)

// IssueOptions overrides the issuer defaults for one challenge. Zero fields keep the defaults.
type IssueOptions struct {
	Algorithm Algorithm
	MaxNumber int64
	Expires   time.Time
}

// Issuer creates signed challenges. It holds only immutable settings and is
// safe for concurrent use.
type Issuer struct {
	key []byte
	settings
}

func NewIssuer(key string, opts ...Option) (*Issuer, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty hmac key", ErrConfiguration)
	}
	s := defaultSettings()
	for _, o := range opts {
		o(&s)
	}
	if _, err := s.algorithm.hasher(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
	}
	if s.maxNumber <= 0 || s.maxNumber == math.MaxInt64 {
		return nil, fmt.Errorf("%w: max number %d", ErrConfiguration, s.maxNumber)
	}
	if s.ttl <= 0 {
		return nil, fmt.Errorf("%w: ttl %s", ErrConfiguration, s.ttl)
	}
	return &Issuer{key: []byte(key), settings: s}, nil
}

func (i *Issuer) NewChallenge(opts IssueOptions) (entity.Challenge, error) {
	now := i.now()

	alg := opts.Algorithm
	if alg == "" {
		alg = i.algorithm
	}
	newHash, err := alg.hasher()
	if err != nil {
		return entity.Challenge{}, err
	}

	maxNumber := opts.MaxNumber
	if maxNumber == 0 {
		maxNumber = i.maxNumber
	}
	if maxNumber < 0 || maxNumber == math.MaxInt64 {
		return entity.Challenge{}, fmt.Errorf("%w: max number %d", ErrConfiguration, maxNumber)
	}

	expires := opts.Expires
	if expires.IsZero() {
		expires = now.Add(i.ttl)
	}
	// expiry is carried in whole seconds, floored
	if !time.Unix(expires.Unix(), 0).After(now) {
		return entity.Challenge{}, fmt.Errorf("%w: expiry %s is not in the future", ErrConfiguration, expires.Format(time.RFC3339))
	}

	secret, err := rand.Int(i.rand, big.NewInt(maxNumber+1))
	if err != nil {
		return entity.Challenge{}, fmt.Errorf("draw secret number: %w", err)
	}
	salt, err := newSalt(i.rand, expires, maxNumber)
	if err != nil {
		return entity.Challenge{}, err
	}

	challenge := digest(newHash, salt, secret.Int64())
	return entity.Challenge{
		Algorithm: string(alg),
		Challenge: challenge,
		Salt:      salt,
		Signature: sign(newHash, i.key, challenge),
		MaxNumber: maxNumber,
	}, nil
}
