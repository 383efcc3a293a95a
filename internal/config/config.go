// Package config loads the attractor runtime's YAML configuration and
// decodes the graph parser's raw string attribute bags into the typed
// fields handlers consume.
package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/attractor-run/attractor/pkg/checkpoint"
	"github.com/attractor-run/attractor/pkg/observability"
)

// LoggingConfig controls the ambient slog setup (pkg/logger).
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // "simple", "verbose", or a custom slog format
}

// SetDefaults fills unset optional fields.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "simple"
	}
}

// JournalConfig controls the SQLite event/status journal (internal/journal).
type JournalConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty" mapstructure:"enabled"`
	Path    string `yaml:"path,omitempty" mapstructure:"path"`
}

// SetDefaults fills unset optional fields. The journal defaults on,
// mirroring checkpoint.Config's on-by-default stance.
func (c *JournalConfig) SetDefaults() {
	if c.Enabled == nil {
		v := true
		c.Enabled = &v
	}
	if c.Path == "" {
		c.Path = "attractor-journal.db"
	}
}

// IsEnabled reports whether the journal should be opened.
func (c *JournalConfig) IsEnabled() bool {
	return c == nil || c.Enabled == nil || *c.Enabled
}

// Config is the top-level runtime configuration document.
type Config struct {
	Logging       LoggingConfig        `yaml:"logging,omitempty"`
	Checkpoint    checkpoint.Config    `yaml:"checkpoint,omitempty"`
	Journal       JournalConfig        `yaml:"journal,omitempty"`
	Observability observability.Config `yaml:"observability,omitempty"`
}

// SetDefaults fills in every unset optional field across the document.
func (c *Config) SetDefaults() {
	c.Logging.SetDefaults()
	c.Checkpoint.SetDefaults()
	c.Journal.SetDefaults()
	c.Observability.SetDefaults()
}

// Validate checks the document for errors after defaults are applied.
func (c *Config) Validate() error {
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	return nil
}

// Load reads and parses the YAML document at path, applying defaults and
// validating the result. A missing file is not an error: Load returns a
// defaulted, empty Config so a run without a config file still works.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	body, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.SetDefaults()
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(body, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// NodeOverrides is the set of node/edge attribute fields handlers read
// back out of a graph.Node's raw string Attributes bag (the upstream
// parser hands over everything as strings per spec §6).
type NodeOverrides struct {
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
	MaxRetries     int  `mapstructure:"max_retries"`
	GoalGate       bool `mapstructure:"goal_gate"`
	AllowPartial   bool `mapstructure:"allow_partial"`
}

// DecodeNodeAttributes decodes a raw string attribute map into typed
// NodeOverrides, using mapstructure's weakly-typed conversion so
// string-encoded booleans ("true") and integers ("30") from the parser
// convert without a hand-written per-field parser.
func DecodeNodeAttributes(attrs map[string]string) (NodeOverrides, error) {
	var out NodeOverrides
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &out,
	})
	if err != nil {
		return out, fmt.Errorf("config: build decoder: %w", err)
	}
	if err := decoder.Decode(attrs); err != nil {
		return out, fmt.Errorf("config: decode node attributes: %w", err)
	}
	return out, nil
}
