// Package config loads gh-store configuration.
//
// Precedence, highest first: the --config flag, $GH_STORE_CONFIG, a
// .ghstore/config.yml found by walking up from the working directory, the
// XDG default ~/.config/gh-store/config.yml, built-in defaults.
// Individual values can be overridden with GH_STORE_* environment
// variables (GH_STORE_STORE_BASE_LABEL and friends).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ErrConfig is the parent of configuration failures.
var ErrConfig = errors.New("configuration error")

// Defaults.
const (
	DefaultBaseLabel            = "stored-object"
	DefaultUIDPrefix            = "UID:"
	DefaultProcessedReaction    = "+1"
	DefaultInitialStateReaction = "rocket"
	DefaultMaxAttempts          = 3
	DefaultBackoffFactor        = 2
	DefaultMaxRequestsPerHour   = 1000
)

// Config is the resolved gh-store configuration.
type Config struct {
	Store StoreConfig `mapstructure:"store"`

	// Path is where the config was loaded from; empty when running on
	// defaults only.
	Path string `mapstructure:"-"`
}

// StoreConfig mirrors the store: section of config.yml.
type StoreConfig struct {
	BaseLabel string          `mapstructure:"base_label"`
	UIDPrefix string          `mapstructure:"uid_prefix"`
	Reactions ReactionsConfig `mapstructure:"reactions"`
	Retries   RetriesConfig   `mapstructure:"retries"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ReactionsConfig names the reactions used as consumption markers.
type ReactionsConfig struct {
	Processed    string `mapstructure:"processed"`
	InitialState string `mapstructure:"initial_state"`
}

// RetriesConfig is the rate-limit retry budget.
type RetriesConfig struct {
	MaxAttempts   int `mapstructure:"max_attempts"`
	BackoffFactor int `mapstructure:"backoff_factor"`
}

// RateLimitConfig is advisory; the engine does not enforce it.
type RateLimitConfig struct {
	MaxRequestsPerHour int `mapstructure:"max_requests_per_hour"`
}

// LogConfig controls diagnostic output.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load resolves configuration. flagPath is the --config value; empty
// means discover.
func Load(flagPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GH_STORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := flagPath
	if path == "" {
		path = os.Getenv("GH_STORE_CONFIG")
	}
	if path == "" {
		path = discoverConfigFile()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if flagPath != "" || !os.IsNotExist(underlying(err)) {
				return nil, fmt.Errorf("reading config %s: %w", path, err)
			}
			path = ""
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.Path = path
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.base_label", DefaultBaseLabel)
	v.SetDefault("store.uid_prefix", DefaultUIDPrefix)
	v.SetDefault("store.reactions.processed", DefaultProcessedReaction)
	v.SetDefault("store.reactions.initial_state", DefaultInitialStateReaction)
	v.SetDefault("store.retries.max_attempts", DefaultMaxAttempts)
	v.SetDefault("store.retries.backoff_factor", DefaultBackoffFactor)
	v.SetDefault("store.rate_limit.max_requests_per_hour", DefaultMaxRequestsPerHour)
	v.SetDefault("store.log.level", "info")
	v.SetDefault("store.log.format", "text")
}

func (c *Config) validate() error {
	if c.Store.BaseLabel == "" {
		return fmt.Errorf("store.base_label must not be empty: %w", ErrConfig)
	}
	if c.Store.UIDPrefix == "" {
		return fmt.Errorf("store.uid_prefix must not be empty: %w", ErrConfig)
	}
	if c.Store.Retries.MaxAttempts <= 0 {
		return fmt.Errorf("store.retries.max_attempts must be positive, got %d: %w", c.Store.Retries.MaxAttempts, ErrConfig)
	}
	if c.Store.Retries.BackoffFactor <= 0 {
		return fmt.Errorf("store.retries.backoff_factor must be positive, got %d: %w", c.Store.Retries.BackoffFactor, ErrConfig)
	}
	return nil
}

// discoverConfigFile looks for .ghstore/config.yml walking up from the
// working directory, then falls back to the XDG location.
func discoverConfigFile() string {
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, ".ghstore", "config.yml")
			if fileExists(candidate) {
				return candidate
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidate := filepath.Join(home, ".config", "gh-store", "config.yml")
		if fileExists(candidate) {
			return candidate
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func underlying(err error) error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return pathErr
	}
	return err
}

// ResolveToken picks the API token: the --token flag, then
// GH_STORE_TOKEN, then GITHUB_TOKEN.
func ResolveToken(flagToken string) (string, error) {
	if flagToken != "" {
		return flagToken, nil
	}
	if t := os.Getenv("GH_STORE_TOKEN"); t != "" {
		return t, nil
	}
	if t := os.Getenv("GITHUB_TOKEN"); t != "" {
		return t, nil
	}
	return "", fmt.Errorf("no token: set --token, GH_STORE_TOKEN, or GITHUB_TOKEN: %w", ErrConfig)
}

// SplitRepo parses an owner/name slug.
func SplitRepo(repo string) (owner, name string, err error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("repository must be owner/name, got %q: %w", repo, ErrConfig)
	}
	return owner, name, nil
}
