package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dayanaadylkhanova/powgate/internal/service"
	"gopkg.in/yaml.v3"
)

// InsecureDevKey is the placeholder signing key. It is only ever used when
// AllowInsecureDefaults is set.
const InsecureDevKey = "insecure-development-key-do-not-use"

const minKeyLen = 16

var (
	ErrMissingKey  = errors.New("HMAC_KEY is not set")
	ErrInsecureKey = errors.New("HMAC_KEY is the development placeholder")
)

type Config struct {
	ListenAddr            string        `yaml:"listen_addr"`
	HMACKey               string        `yaml:"hmac_key"`
	AllowInsecureDefaults bool          `yaml:"allow_insecure_defaults"`
	PoWAlgorithm          string        `yaml:"pow_algorithm"`
	PoWMaxNumber          int64         `yaml:"pow_max_number"`
	PoWTTL                time.Duration `yaml:"pow_ttl"`
	ReplayProtection      bool          `yaml:"replay_protection"`
	ReplayCacheSize       int           `yaml:"replay_cache_size"`
	InboxDSN              string        `yaml:"inbox_dsn"`
	LogLevel              string        `yaml:"log_level"`
	ShutdownWait          time.Duration `yaml:"shutdown_wait"`
}

func Defaults() Config {
	return Config{
		ListenAddr:      ":8080",
		PoWAlgorithm:    string(service.DefaultAlgorithm),
		PoWMaxNumber:    service.DefaultMaxNumber,
		PoWTTL:          service.DefaultTTL,
		ReplayCacheSize: 100_000,
		LogLevel:        "info",
		ShutdownWait:    5 * time.Second,
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoi(s string, def int) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func atoi64(s string, def int64) int64 {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	return def
}

func duration(s string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func boolean(s string, def bool) bool {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return def
}

// Load reads CONFIG_FILE (YAML) if set, then the environment. Environment wins.
func Load() (Config, error) {
	cfg := Defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.ListenAddr = getenv("LISTEN_ADDR", c.ListenAddr)
	c.HMACKey = getenv("HMAC_KEY", c.HMACKey)
	c.AllowInsecureDefaults = boolean(os.Getenv("ALLOW_INSECURE_DEFAULTS"), c.AllowInsecureDefaults)
	c.PoWAlgorithm = getenv("POW_ALGORITHM", c.PoWAlgorithm)
	c.PoWMaxNumber = atoi64(os.Getenv("POW_MAX_NUMBER"), c.PoWMaxNumber)
	c.PoWTTL = duration(os.Getenv("POW_TTL"), c.PoWTTL)
	c.ReplayProtection = boolean(os.Getenv("REPLAY_PROTECTION"), c.ReplayProtection)
	c.ReplayCacheSize = atoi(os.Getenv("REPLAY_CACHE_SIZE"), c.ReplayCacheSize)
	c.InboxDSN = getenv("INBOX_DSN", c.InboxDSN)
	c.LogLevel = getenv("LOG_LEVEL", c.LogLevel)
	c.ShutdownWait = duration(os.Getenv("SHUTDOWN_WAIT"), c.ShutdownWait)
}

// ResolveKey applies the signing key policy. The placeholder is returned only
// when no key is configured and insecure defaults are explicitly allowed;
// insecure reports that the caller must warn loudly.
func (c Config) ResolveKey() (key string, insecure bool, err error) {
	switch {
	case c.HMACKey == "" && c.AllowInsecureDefaults:
		return InsecureDevKey, true, nil
	case c.HMACKey == "":
		return "", false, fmt.Errorf("%w: %w", service.ErrConfiguration, ErrMissingKey)
	case c.HMACKey == InsecureDevKey && !c.AllowInsecureDefaults:
		return "", false, fmt.Errorf("%w: %w", service.ErrConfiguration, ErrInsecureKey)
	}
	return c.HMACKey, c.HMACKey == InsecureDevKey || len(c.HMACKey) < minKeyLen, nil
}

func (c Config) Validate() error {
	var errs []error
	if _, _, err := c.ResolveKey(); err != nil {
		errs = append(errs, err)
	}
	if _, err := service.ParseAlgorithm(c.PoWAlgorithm); err != nil {
		errs = append(errs, err)
	}
	if c.PoWMaxNumber <= 0 {
		errs = append(errs, fmt.Errorf("POW_MAX_NUMBER must be positive, got %d", c.PoWMaxNumber))
	}
	if c.PoWTTL <= 0 {
		errs = append(errs, fmt.Errorf("POW_TTL must be positive, got %s", c.PoWTTL))
	}
	if c.ReplayProtection && c.ReplayCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("REPLAY_CACHE_SIZE must be positive, got %d", c.ReplayCacheSize))
	}
	if strings.TrimSpace(c.ListenAddr) == "" {
		errs = append(errs, errors.New("LISTEN_ADDR is empty"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", service.ErrConfiguration, errors.Join(errs...))
}
