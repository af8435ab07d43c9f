// Package cliconfig loads and validates configuration for the eventship
// CLI, merging defaults, a TOML config file, EVENTSHIP_* environment
// variables, and command-line flags, in increasing precedence.
package cliconfig

import (
	"fmt"
	"strconv"
	"time"
)

// Config holds CLI configuration for eventship.
type Config struct {
	Endpoint   string
	DefaultKey string
	KeyField   string
	Protocol   string

	Compression string

	MaxBatchEvents int
	MaxBatchBytes  int
	MaxBatchAge    time.Duration

	MaxPayloadBytes  int
	BuildConcurrency int

	SendWorkers  int
	SendAttempts int
	HTTPTimeout  time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		DefaultKey:       "default",
		KeyField:         "api_key",
		Protocol:         "http",
		Compression:      "gzip",
		MaxBatchEvents:   1000,
		MaxBatchBytes:    1 << 20, // 1MB
		MaxBatchAge:      5 * time.Second,
		MaxPayloadBytes:  4 << 20, // 4MB
		BuildConcurrency: 8,
		SendWorkers:      4,
		SendAttempts:     3,
		HTTPTimeout:      15 * time.Second,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint is required")
	}

	// Ensure no trailing slash
	if c.Endpoint[len(c.Endpoint)-1] == '/' {
		c.Endpoint = c.Endpoint[:len(c.Endpoint)-1]
	}

	if c.DefaultKey == "" {
		return fmt.Errorf("default-key is required")
	}
	if c.MaxBatchEvents <= 0 {
		return fmt.Errorf("max batch events must be positive")
	}
	if c.MaxPayloadBytes <= 0 {
		return fmt.Errorf("max payload bytes must be positive")
	}
	if c.BuildConcurrency <= 0 {
		return fmt.Errorf("build concurrency must be positive")
	}
	if c.SendWorkers <= 0 {
		return fmt.Errorf("send workers must be positive")
	}

	return nil
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setIntFromString parses and sets an int value if non-empty and flag not changed.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", flag, err)
	}
	*dst = n
	return nil
}

// setDuration parses and sets a duration value if non-empty and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", flag, err)
	}
	*dst = d
	return nil
}
