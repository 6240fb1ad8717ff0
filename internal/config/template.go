package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape written by WriteDefault. Kept separate
// from Config so yaml tags stay with the file format.
type fileConfig struct {
	Repository string          `yaml:"repository,omitempty"`
	Store      fileStoreConfig `yaml:"store"`
}

type fileStoreConfig struct {
	BaseLabel string `yaml:"base_label"`
	UIDPrefix string `yaml:"uid_prefix"`
	Reactions struct {
		Processed    string `yaml:"processed"`
		InitialState string `yaml:"initial_state"`
	} `yaml:"reactions"`
	Retries struct {
		MaxAttempts   int `yaml:"max_attempts"`
		BackoffFactor int `yaml:"backoff_factor"`
	} `yaml:"retries"`
	RateLimit struct {
		MaxRequestsPerHour int `yaml:"max_requests_per_hour"`
	} `yaml:"rate_limit"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
}

// WriteDefault writes a starter config file at path, refusing to clobber
// an existing one. repo and baseLabel override the template defaults when
// non-empty.
func WriteDefault(path, repo, baseLabel string) error {
	if fileExists(path) {
		return fmt.Errorf("config file %s already exists: %w", path, ErrConfig)
	}

	var fc fileConfig
	fc.Repository = repo
	fc.Store.BaseLabel = DefaultBaseLabel
	if baseLabel != "" {
		fc.Store.BaseLabel = baseLabel
	}
	fc.Store.UIDPrefix = DefaultUIDPrefix
	fc.Store.Reactions.Processed = DefaultProcessedReaction
	fc.Store.Reactions.InitialState = DefaultInitialStateReaction
	fc.Store.Retries.MaxAttempts = DefaultMaxAttempts
	fc.Store.Retries.BackoffFactor = DefaultBackoffFactor
	fc.Store.RateLimit.MaxRequestsPerHour = DefaultMaxRequestsPerHour
	fc.Store.Log.Level = "info"
	fc.Store.Log.Format = "text"

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Repository returns the repository slug from the config file at path,
// if one is recorded there. Load does not carry it because the --repo
// flag and environment normally supply it.
func Repository(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return ""
	}
	return fc.Repository
}
