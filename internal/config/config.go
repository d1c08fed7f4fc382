// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML configuration file.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/goccy/go-yaml"

	"github.com/conectividadeproj/conectividade-mcp/internal/dataset"
	"github.com/conectividadeproj/conectividade-mcp/internal/registry"
	"github.com/conectividadeproj/conectividade-mcp/internal/snapshot"
	"github.com/conectividadeproj/conectividade-mcp/internal/source"
)

// ErrInvalid reports a configuration that fails validation.
var ErrInvalid = errors.New("config: invalid configuration")

//go:embed schema.cue
var schemaSource string

// Config is the root of the configuration file.
type Config struct {
	Source    Source    `yaml:"source" json:"source"`
	Snapshot  Snapshot  `yaml:"snapshot" json:"snapshot"`
	Registry  Registry  `yaml:"registry" json:"registry"`
	Normalize Normalize `yaml:"normalize" json:"normalize"`
	Keys      Keys      `yaml:"keys" json:"keys"`
	Export    Export    `yaml:"export" json:"export"`
	Server    Server    `yaml:"server" json:"server"`
	Log       Log       `yaml:"log" json:"log"`
}

type Source struct {
	URL               string `yaml:"url" json:"url"`
	TimeoutSeconds    int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	MaxAttempts       int    `yaml:"max_attempts" json:"max_attempts"`
	RetryDelaySeconds *int   `yaml:"retry_delay_seconds" json:"retry_delay_seconds"`
	Backoff           string `yaml:"backoff" json:"backoff"`
	MaxBodyMB         int    `yaml:"max_body_mb" json:"max_body_mb"`
}

type Snapshot struct {
	Backend       string `yaml:"backend" json:"backend"`
	Path          string `yaml:"path" json:"path"`
	MaxAgeHours   int    `yaml:"max_age_hours" json:"max_age_hours"`
	FallbackStale *bool  `yaml:"fallback_stale" json:"fallback_stale"`
}

type Registry struct {
	Path  string `yaml:"path" json:"path"`
	Sheet string `yaml:"sheet" json:"sheet"`
}

type Normalize struct {
	// VocabularyPath replaces the built-in vocabulary when set.
	VocabularyPath string `yaml:"vocabulary_path" json:"vocabulary_path"`
}

type Keys struct {
	MunicipalityWidth *int `yaml:"municipality_width" json:"municipality_width"`
}

type Export struct {
	Dir string `yaml:"dir" json:"dir"`
}

type Server struct {
	Addr string `yaml:"addr" json:"addr"`
	// RefreshSchedule is a cron expression; empty disables scheduled refresh.
	RefreshSchedule string `yaml:"refresh_schedule" json:"refresh_schedule"`
}

type Log struct {
	Level       string `yaml:"level" json:"level"`
	Development bool   `yaml:"development" json:"development"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	c := &Config{}
	c.defaults()
	return c
}

func (c *Config) defaults() {
	if c.Source.URL == "" {
		c.Source.URL = source.DefaultURL
	}
	if c.Source.TimeoutSeconds == 0 {
		c.Source.TimeoutSeconds = 120
	}
	if c.Source.MaxAttempts == 0 {
		c.Source.MaxAttempts = 3
	}
	if c.Source.RetryDelaySeconds == nil {
		c.Source.RetryDelaySeconds = intPtr(3)
	}
	if c.Source.Backoff == "" {
		c.Source.Backoff = string(source.BackoffFixed)
	}
	if c.Source.MaxBodyMB == 0 {
		c.Source.MaxBodyMB = 256
	}
	if c.Snapshot.Backend == "" {
		c.Snapshot.Backend = snapshot.BackendFile
	}
	if c.Snapshot.Path == "" {
		c.Snapshot.Path = "bases/api_cache.json"
	}
	if c.Snapshot.FallbackStale == nil {
		c.Snapshot.FallbackStale = boolPtr(true)
	}
	if c.Registry.Path == "" {
		c.Registry.Path = "bases/adesoes_2025_2028.xlsx"
	}
	if c.Registry.Sheet == "" {
		c.Registry.Sheet = registry.DefaultSheet
	}
	if c.Keys.MunicipalityWidth == nil {
		c.Keys.MunicipalityWidth = intPtr(dataset.DefaultMunicipalityWidth)
	}
	if c.Export.Dir == "" {
		c.Export.Dir = "bases"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Load reads path, applies defaults and validates the result. A missing
// file yields the defaults.
func Load(path string) (*Config, error) {
	c := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.UnmarshalWithOptions(data, c, yaml.DisallowUnknownField()); err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
			}
		}
	}
	c.defaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks c against the embedded CUE schema.
func (c *Config) Validate() error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	v := schema.LookupPath(cue.ParsePath("#Config")).Unify(ctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// SourceConfig converts the source section.
func (c *Config) SourceConfig() source.Config {
	return source.Config{
		URL:      c.Source.URL,
		Timeout:  time.Duration(c.Source.TimeoutSeconds) * time.Second,
		MaxBytes: int64(c.Source.MaxBodyMB) * 1024 * 1024,
		Retry: source.RetryPolicy{
			MaxAttempts: c.Source.MaxAttempts,
			Delay:       time.Duration(*c.Source.RetryDelaySeconds) * time.Second,
			Backoff:     source.Backoff(c.Source.Backoff),
		},
	}
}

// SnapshotPolicy converts the freshness settings.
func (c *Config) SnapshotPolicy() snapshot.Policy {
	return snapshot.Policy{
		MaxAge:        time.Duration(c.Snapshot.MaxAgeHours) * time.Hour,
		FallbackStale: *c.Snapshot.FallbackStale,
	}
}

// RegistryConfig converts the registry section.
func (c *Config) RegistryConfig() registry.Config {
	return registry.Config{
		Path:     c.Registry.Path,
		Sheet:    c.Registry.Sheet,
		KeyWidth: *c.Keys.MunicipalityWidth,
	}
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }
