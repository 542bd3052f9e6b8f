// Copyright 2026 The Kubefs Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for kubefs.
//
// Configuration is loaded from a single YAML file passed with the
// --config flag. There are no fallbacks or automatic discovery; flags
// override file values, and the file is optional. This keeps the
// effective configuration deterministic and auditable.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the kubefs configuration.
type Config struct {
	// Kubeconfig is an explicit kubeconfig path. Empty uses the
	// standard client-go loading rules.
	Kubeconfig string `yaml:"kubeconfig"`

	// Context overrides the kubeconfig's current context.
	Context string `yaml:"context"`

	// Mount configures the FUSE mount.
	Mount MountConfig `yaml:"mount"`

	// Cache configures freshness and eviction.
	Cache CacheConfig `yaml:"cache"`
}

// MountConfig configures the FUSE mount.
type MountConfig struct {
	// FSName is the filesystem name shown by mount(8).
	FSName string `yaml:"fsname"`

	// AllowOther permits other users to access the mount. Requires
	// user_allow_other in /etc/fuse.conf.
	AllowOther bool `yaml:"allow_other"`
}

// CacheConfig configures the view cache.
type CacheConfig struct {
	// DirTTL is how long a directory listing counts as fresh.
	DirTTL Duration `yaml:"dir_ttl"`

	// FileTTL is how long file contents count as fresh.
	FileTTL Duration `yaml:"file_ttl"`

	// IdleEviction drops entries unused for this long.
	IdleEviction Duration `yaml:"idle_eviction"`

	// RequestTimeout bounds each cluster API call.
	RequestTimeout Duration `yaml:"request_timeout"`
}

// Duration is a time.Duration that unmarshals from YAML strings like
// "5s" or "2m30s", or from plain integer nanoseconds.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var text string
	if err := value.Decode(&text); err == nil {
		parsed, err := time.ParseDuration(text)
		if err != nil {
			return fmt.Errorf("parsing duration %q: %w", text, err)
		}
		*d = Duration(parsed)
		return nil
	}
	var nanoseconds int64
	if err := value.Decode(&nanoseconds); err != nil {
		return fmt.Errorf("duration must be a string like \"5s\" or integer nanoseconds")
	}
	*d = Duration(nanoseconds)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the default configuration. Zero cache durations
// mean "use the viewcache defaults".
func Default() *Config {
	return &Config{
		Mount: MountConfig{
			FSName: "kubefs",
		},
		Cache: CacheConfig{
			DirTTL:         Duration(5 * time.Second),
			FileTTL:        Duration(30 * time.Second),
			IdleEviction:   Duration(5 * time.Minute),
			RequestTimeout: Duration(10 * time.Second),
		},
	}
}

// LoadFile loads configuration from a YAML file, merging over the
// defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Mount.FSName == "" {
		errs = append(errs, fmt.Errorf("mount.fsname is required"))
	}
	if c.Cache.DirTTL < 0 || c.Cache.FileTTL < 0 {
		errs = append(errs, fmt.Errorf("cache TTLs must not be negative"))
	}
	if c.Cache.IdleEviction < 0 {
		errs = append(errs, fmt.Errorf("cache.idle_eviction must not be negative"))
	}
	if c.Cache.RequestTimeout < 0 {
		errs = append(errs, fmt.Errorf("cache.request_timeout must not be negative"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
