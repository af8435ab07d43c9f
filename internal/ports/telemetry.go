package ports

// Drop reasons reported to the telemetry sink.
const (
	// DropReasonTooLarge marks an event whose encoding alone exceeds the
	// payload cap.
	DropReasonTooLarge = "event too large to encode"
)

// Telemetry is the fire-and-forget signal sink for pipeline incidents. The
// pipeline never emits success signals; delivery confirmation belongs to the
// dispatch driver.
type Telemetry interface {
	// EventsDropped reports events discarded with a terminal disposition.
	EventsDropped(count int, reason string)

	// RequestBuildFailed reports a failed builder invocation and the
	// number of events it covered.
	RequestBuildFailed(err error, events int)
}
