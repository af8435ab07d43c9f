package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (EVENTSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns an error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("endpoint", os.Getenv("EVENTSHIP_ENDPOINT"), &cfg.Endpoint)
	s.setString("default-key", os.Getenv("EVENTSHIP_DEFAULT_KEY"), &cfg.DefaultKey)
	s.setString("key-field", os.Getenv("EVENTSHIP_KEY_FIELD"), &cfg.KeyField)
	s.setString("protocol", os.Getenv("EVENTSHIP_PROTOCOL"), &cfg.Protocol)
	s.setString("compression", os.Getenv("EVENTSHIP_COMPRESSION"), &cfg.Compression)

	if err := s.setIntFromString("max-batch-events", os.Getenv("EVENTSHIP_MAX_BATCH_EVENTS"), &cfg.MaxBatchEvents); err != nil {
		return err
	}
	if err := s.setIntFromString("max-batch-bytes", os.Getenv("EVENTSHIP_MAX_BATCH_BYTES"), &cfg.MaxBatchBytes); err != nil {
		return err
	}
	if err := s.setIntFromString("max-payload-bytes", os.Getenv("EVENTSHIP_MAX_PAYLOAD_BYTES"), &cfg.MaxPayloadBytes); err != nil {
		return err
	}
	if err := s.setIntFromString("build-concurrency", os.Getenv("EVENTSHIP_BUILD_CONCURRENCY"), &cfg.BuildConcurrency); err != nil {
		return err
	}
	if err := s.setIntFromString("send-workers", os.Getenv("EVENTSHIP_SEND_WORKERS"), &cfg.SendWorkers); err != nil {
		return err
	}
	if err := s.setIntFromString("send-attempts", os.Getenv("EVENTSHIP_SEND_ATTEMPTS"), &cfg.SendAttempts); err != nil {
		return err
	}

	if err := s.setDuration("max-batch-age", os.Getenv("EVENTSHIP_MAX_BATCH_AGE"), &cfg.MaxBatchAge); err != nil {
		return err
	}
	if err := s.setDuration("timeout", os.Getenv("EVENTSHIP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}

	return nil
}
