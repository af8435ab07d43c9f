package telemetry

// Noop implements ports.Telemetry by discarding all signals.
type Noop struct{}

// NewNoop creates a no-op telemetry emitter.
func NewNoop() Noop {
	return Noop{}
}

// EventsDropped discards the signal.
func (Noop) EventsDropped(count int, reason string) {}

// RequestBuildFailed discards the signal.
func (Noop) RequestBuildFailed(err error, events int) {}
