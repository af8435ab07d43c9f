// Package telemetry provides implementations of the telemetry signal port.
package telemetry

import (
	"github.com/rs/zerolog"
)

// ZerologEmitter implements ports.Telemetry by writing structured signals to
// a zerolog logger. Emission is fire-and-forget.
type ZerologEmitter struct {
	logger   zerolog.Logger
	protocol string
}

// NewZerologEmitter creates an emitter tagging every signal with the
// pipeline's protocol name.
func NewZerologEmitter(logger zerolog.Logger, protocol string) *ZerologEmitter {
	return &ZerologEmitter{logger: logger, protocol: protocol}
}

// EventsDropped reports events discarded with a terminal disposition.
func (e *ZerologEmitter) EventsDropped(count int, reason string) {
	e.logger.Warn().
		Str("protocol", e.protocol).
		Int("count", count).
		Str("reason", reason).
		Msg("events dropped")
}

// RequestBuildFailed reports a failed request-builder invocation.
func (e *ZerologEmitter) RequestBuildFailed(err error, events int) {
	e.logger.Error().
		Str("protocol", e.protocol).
		Int("events", events).
		Err(err).
		Msg("request build failed")
}
