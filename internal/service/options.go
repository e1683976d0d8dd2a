package service

import (
	"crypto/rand"
	"io"
	"time"
)

const (
	DefaultMaxNumber int64 = 100_000
	DefaultTTL             = 5 * time.Minute
	DefaultAlgorithm       = SHA256
)

// ReplayGuard remembers accepted challenges. Claim returns false when key was
// already claimed and has not yet expired.
type ReplayGuard interface {
	Claim(key string, until time.Time) bool
}

type settings struct {
	algorithm Algorithm
	maxNumber int64
	ttl       time.Duration
	now       func() time.Time
	rand      io.Reader
	guard     ReplayGuard
}

func defaultSettings() settings {
	return settings{
		algorithm: DefaultAlgorithm,
		maxNumber: DefaultMaxNumber,
		ttl:       DefaultTTL,
		now:       time.Now,
		rand:      rand.Reader,
	}
}

// Option tunes an Issuer or a Verifier. Options that make no sense for one of
// them are ignored there.
type Option func(*settings)

func WithAlgorithm(a Algorithm) Option { return func(s *settings) { s.algorithm = a } }

func WithMaxNumber(n int64) Option { return func(s *settings) { s.maxNumber = n } }

func WithTTL(d time.Duration) Option { return func(s *settings) { s.ttl = d } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(s *settings) { s.now = now } }

// WithRand replaces crypto/rand as the source of salts and secret numbers.
func WithRand(r io.Reader) Option { return func(s *settings) { s.rand = r } }

// WithReplayGuard makes a Verifier reject a second use of the same challenge.
func WithReplayGuard(g ReplayGuard) Option { return func(s *settings) { s.guard = g } }
