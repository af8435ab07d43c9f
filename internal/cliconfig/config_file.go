package cliconfig

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Endpoint         string `toml:"endpoint"`
	DefaultKey       string `toml:"default_key"`
	KeyField         string `toml:"key_field"`
	Protocol         string `toml:"protocol"`
	Compression      string `toml:"compression"`
	MaxBatchEvents   int    `toml:"max_batch_events"`
	MaxBatchBytes    int    `toml:"max_batch_bytes"`
	MaxBatchAge      string `toml:"max_batch_age"`
	MaxPayloadBytes  int    `toml:"max_payload_bytes"`
	BuildConcurrency int    `toml:"build_concurrency"`
	SendWorkers      int    `toml:"send_workers"`
	SendAttempts     int    `toml:"send_attempts"`
	HTTPTimeout      string `toml:"http_timeout"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.eventship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".eventship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("endpoint", fc.Endpoint, &cfg.Endpoint)
	s.setString("default-key", fc.DefaultKey, &cfg.DefaultKey)
	s.setString("key-field", fc.KeyField, &cfg.KeyField)
	s.setString("protocol", fc.Protocol, &cfg.Protocol)
	s.setString("compression", fc.Compression, &cfg.Compression)

	s.setInt("max-batch-events", fc.MaxBatchEvents, &cfg.MaxBatchEvents)
	s.setInt("max-batch-bytes", fc.MaxBatchBytes, &cfg.MaxBatchBytes)
	s.setInt("max-payload-bytes", fc.MaxPayloadBytes, &cfg.MaxPayloadBytes)
	s.setInt("build-concurrency", fc.BuildConcurrency, &cfg.BuildConcurrency)
	s.setInt("send-workers", fc.SendWorkers, &cfg.SendWorkers)
	s.setInt("send-attempts", fc.SendAttempts, &cfg.SendAttempts)

	if err := s.setDuration("max-batch-age", fc.MaxBatchAge, &cfg.MaxBatchAge); err != nil {
		return err
	}
	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
