// Copyright 2026 The Agora Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Agora client tools.
//
// Configuration is loaded from a single file specified by:
//   - AGORA_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections
// (development, staging, production) that override base values when
// the environment matches.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the configuration for a realtime client.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Server configures the realtime endpoint.
	Server ServerConfig `yaml:"server"`

	// Topics lists discussion topics to join on connect.
	Topics []string `yaml:"topics"`

	// Timing configures the client's timer windows.
	Timing TimingConfig `yaml:"timing"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *Overrides `yaml:"development,omitempty"`
	Staging     *Overrides `yaml:"staging,omitempty"`
	Production  *Overrides `yaml:"production,omitempty"`
}

// Overrides contains fields that can be overridden per environment.
type Overrides struct {
	Server *ServerConfig `yaml:"server,omitempty"`
	Timing *TimingConfig `yaml:"timing,omitempty"`
}

// ServerConfig configures the realtime endpoint.
type ServerConfig struct {
	// URL is the websocket endpoint (e.g., "wss://agora.example/realtime").
	URL string `yaml:"url"`

	// Token is the connection credential. Prefer AGORA_TOKEN in the
	// environment over embedding credentials in the file; a non-empty
	// environment value wins.
	Token string `yaml:"token"`

	// Codec selects the wire codec: "json" (default) or "cbor".
	Codec string `yaml:"codec"`
}

// TimingConfig configures the client's timer windows. Zero values use
// the library defaults.
type TimingConfig struct {
	// FlushWindow is the score-delta coalescing window.
	FlushWindow time.Duration `yaml:"flush_window"`

	// TypingTTL is the typing-signal inactivity window.
	TypingTTL time.Duration `yaml:"typing_ttl"`

	// PingInterval is the websocket keepalive interval.
	PingInterval time.Duration `yaml:"ping_interval"`
}

// Load loads configuration from the AGORA_CONFIG environment variable.
//
// There are no fallbacks or defaults — if AGORA_CONFIG is not set,
// this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("AGORA_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("AGORA_CONFIG environment variable not set; " +
			"set it to the path of your agora.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth, with one exception:
// a non-empty AGORA_TOKEN environment value replaces server.token so
// credentials can stay out of files.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{Environment: Development}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()

	if token := os.Getenv("AGORA_TOKEN"); token != "" {
		cfg.Server.Token = token
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *Overrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}
	if overrides.Server != nil {
		mergeServer(&c.Server, overrides.Server)
	}
	if overrides.Timing != nil {
		mergeTiming(&c.Timing, overrides.Timing)
	}
}

// mergeServer copies non-zero override fields onto the base.
func mergeServer(base, override *ServerConfig) {
	if override.URL != "" {
		base.URL = override.URL
	}
	if override.Token != "" {
		base.Token = override.Token
	}
	if override.Codec != "" {
		base.Codec = override.Codec
	}
}

// mergeTiming copies non-zero override fields onto the base.
func mergeTiming(base, override *TimingConfig) {
	if override.FlushWindow != 0 {
		base.FlushWindow = override.FlushWindow
	}
	if override.TypingTTL != 0 {
		base.TypingTTL = override.TypingTTL
	}
	if override.PingInterval != 0 {
		base.PingInterval = override.PingInterval
	}
}

// validate checks the loaded configuration for usability.
func (c *Config) validate() error {
	if c.Server.URL == "" {
		return fmt.Errorf("server.url is required")
	}
	switch c.Server.Codec {
	case "", "json", "cbor":
	default:
		return fmt.Errorf("server.codec must be \"json\" or \"cbor\", got %q", c.Server.Codec)
	}
	switch c.Environment {
	case Development, Staging, Production:
	default:
		return fmt.Errorf("unknown environment %q", c.Environment)
	}
	return nil
}
