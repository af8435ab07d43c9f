package domain

import "sync"

// Disposition is the terminal fate of an event, reported to its finalizers
// exactly once.
type Disposition int

const (
	// DispositionDelivered means the event was included in a wire request
	// that the dispatch driver confirmed as accepted.
	DispositionDelivered Disposition = iota

	// DispositionDropped means the event was discarded on purpose, e.g.
	// because its encoding alone exceeded the payload cap.
	DispositionDropped

	// DispositionErrored means the event was lost to a failure: a build
	// error, a rejected request, or pipeline cancellation.
	DispositionErrored
)

// String returns a human-readable name for the disposition.
func (d Disposition) String() string {
	switch d {
	case DispositionDelivered:
		return "delivered"
	case DispositionDropped:
		return "dropped"
	case DispositionErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// AckFunc receives the terminal disposition of an event.
type AckFunc func(Disposition)

// Finalizer is an acknowledgement handle tied to an event. It is resolved at
// most once; later resolutions are ignored. Finalizers travel with the event
// through the pipeline and are transferred to the wire request that consumes
// the event.
type Finalizer struct {
	once sync.Once
	ack  AckFunc
}

// NewFinalizer creates a finalizer that invokes ack with the terminal
// disposition. A nil ack yields a finalizer that tracks resolution only.
func NewFinalizer(ack AckFunc) *Finalizer {
	return &Finalizer{ack: ack}
}

// Resolve reports the terminal disposition. Only the first call has effect.
func (f *Finalizer) Resolve(d Disposition) {
	f.once.Do(func() {
		if f.ack != nil {
			f.ack(d)
		}
	})
}

// Finalizers is a set of acknowledgement handles with bulk resolution.
type Finalizers []*Finalizer

// Resolve resolves every finalizer in the set with the given disposition.
func (fs Finalizers) Resolve(d Disposition) {
	for _, f := range fs {
		f.Resolve(d)
	}
}

// Event is a single structured record moving through the pipeline.
//
// The pipeline exclusively owns an event from the moment it is pulled from
// the source until its finalizers are either transferred to a wire request
// or resolved with a terminal failure disposition.
type Event struct {
	// Fields is the structured payload, serialized as a JSON object.
	Fields map[string]any

	// Key is the optional routing metadata. Empty means "no key"; the
	// partitioner substitutes the configured default.
	Key string

	finalizers Finalizers
}

// NewEvent creates an event with the given payload and no routing key.
func NewEvent(fields map[string]any) *Event {
	return &Event{Fields: fields}
}

// AddFinalizer attaches an acknowledgement handle to the event.
func (e *Event) AddFinalizer(f *Finalizer) {
	e.finalizers = append(e.finalizers, f)
}

// OnAck attaches a callback invoked with the event's terminal disposition.
func (e *Event) OnAck(ack AckFunc) {
	e.AddFinalizer(NewFinalizer(ack))
}

// TakeFinalizers moves the event's finalizers to the caller. After the call
// the event holds none; ownership is single-writer by construction.
func (e *Event) TakeFinalizers() Finalizers {
	fs := e.finalizers
	e.finalizers = nil
	return fs
}
