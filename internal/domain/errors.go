package domain

import "errors"

// Domain errors represent error conditions in the eventship domain.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("eventship: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("eventship: not running")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("eventship: invalid configuration")

	// ErrSerialize is returned when an event payload cannot be serialized.
	// Request construction aborts for the remaining events of the call.
	ErrSerialize = errors.New("eventship: serialization failed")

	// ErrCodec is returned when the configured codec fails to compress a
	// request body. Distinct from ErrSerialize so callers can tell the two
	// failure modes apart.
	ErrCodec = errors.New("eventship: codec failed")
)
