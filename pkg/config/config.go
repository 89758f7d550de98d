// Package config resolves server configuration once at the process
// boundary, from the environment and an optional YAML file. The
// pipelines receive the resolved values explicitly and never read the
// environment themselves.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opencode-ops/eventgate/pkg/signing"
)

// Config holds server configuration.
type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// SigningKey enables HMAC verification when non-empty.
	SigningKey string `yaml:"signing_key"`
	// SignerID is the provenance label for pipeline-computed signatures.
	SignerID string `yaml:"signer_id"`
	// SigningMode overrides the environment-dependent default mode.
	SigningMode string `yaml:"signing_mode"`
	// ReplaySeedEnabled is advisory, surfaced in simulation reports.
	ReplaySeedEnabled bool `yaml:"replay_seed_enabled"`
	// Production shifts the default signing mode to
	// require-valid-signature.
	Production bool `yaml:"production"`

	StorePath string `yaml:"store_path"`
}

// Load resolves configuration: YAML file first (when
// OPENCODE_CONFIG_FILE is set), then environment variables on top.
func Load() (*Config, error) {
	cfg := &Config{
		Port:      "8080",
		LogLevel:  "INFO",
		SignerID:  "eventgate",
		StorePath: "telemetry_events.json",
	}

	if path := os.Getenv("OPENCODE_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "PORT")
	setString(&cfg.LogLevel, "LOG_LEVEL")
	setString(&cfg.SigningKey, "OPENCODE_EVENT_SIGNING_KEY")
	setString(&cfg.SignerID, "OPENCODE_SIGNER_ID")
	setString(&cfg.SigningMode, "OPENCODE_EVENT_SIGNING_MODE")
	setString(&cfg.StorePath, "OPENCODE_EVENT_STORE_PATH")

	if v := os.Getenv("OPENCODE_REPLAY_SEED"); v != "" {
		cfg.ReplaySeedEnabled = v != "0" && v != "false"
	}
	if v := os.Getenv("OPENCODE_ENV"); v != "" {
		cfg.Production = v == "production"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// DefaultMode resolves the process-wide signing mode from the
// configured override and the production flag.
func (c *Config) DefaultMode() signing.Mode {
	return signing.ResolveMode("", c.SigningMode, c.Production)
}

// SigningEnabled reports whether a verification key is configured.
func (c *Config) SigningEnabled() bool {
	return c.SigningKey != ""
}
