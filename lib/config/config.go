// Copyright 2026 The Doorkeep Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Doorkeep.
//
// Configuration is loaded from a single YAML file specified by the
// DOORKEEP_CONFIG environment variable or the --config flag. There
// are no fallbacks or automatic discovery — configuration is
// deterministic and auditable, with no hidden overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvVar is the environment variable naming the config file.
const EnvVar = "DOORKEEP_CONFIG"

// Config is the master configuration for the Doorkeep bot.
type Config struct {
	// HomeserverURL is the base URL of the Matrix homeserver
	// (e.g., "https://matrix.example.org").
	HomeserverURL string `yaml:"homeserver_url"`

	// Room is the watched room, as either a room ID ("!abc:server")
	// or an alias ("#club:server"). Aliases are resolved at startup.
	Room string `yaml:"room"`

	// RulesURL is the rules document link included in every consent
	// poll question.
	RulesURL string `yaml:"rules_url"`

	// StateDir is the directory holding session.json (the bot's
	// saved Matrix session).
	StateDir string `yaml:"state_dir"`

	// AdminSocket is the Unix socket path for the read-only admin
	// protocol. Empty disables the socket.
	AdminSocket string `yaml:"admin_socket,omitempty"`

	// ChallengeWindow overrides the time a newcomer has to answer
	// the consent poll. Zero means the default (30 minutes). This is
	// a deployment-wide setting — the window is never varied per
	// challenge.
	ChallengeWindow Duration `yaml:"challenge_window,omitempty"`
}

// Duration is a time.Duration that unmarshals from YAML strings in
// time.ParseDuration format (e.g., "30m", "1h30m").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Locate returns the config file path from the explicit flag value,
// falling back to the DOORKEEP_CONFIG environment variable. Returns
// an error if neither is set.
func Locate(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if fromEnv := os.Getenv(EnvVar); fromEnv != "" {
		return fromEnv, nil
	}
	return "", fmt.Errorf("no config file: set %s or pass --config", EnvVar)
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var loaded Config
	if err := yaml.Unmarshal(data, &loaded); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := loaded.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &loaded, nil
}

// Validate checks that required fields are present and well-formed.
func (c *Config) Validate() error {
	if c.HomeserverURL == "" {
		return fmt.Errorf("homeserver_url is required")
	}
	if _, err := url.Parse(c.HomeserverURL); err != nil {
		return fmt.Errorf("invalid homeserver_url %q: %w", c.HomeserverURL, err)
	}

	if c.Room == "" {
		return fmt.Errorf("room is required")
	}
	if !strings.HasPrefix(c.Room, "!") && !strings.HasPrefix(c.Room, "#") {
		return fmt.Errorf("room must be a room ID (!...) or alias (#...), got %q", c.Room)
	}

	if c.RulesURL == "" {
		return fmt.Errorf("rules_url is required")
	}

	if c.StateDir == "" {
		return fmt.Errorf("state_dir is required")
	}

	if c.ChallengeWindow < 0 {
		return fmt.Errorf("challenge_window must not be negative")
	}
	return nil
}
