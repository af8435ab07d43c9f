package domain

// WireRequest is the terminal artifact of the pipeline: a bounded, optionally
// compressed payload with the finalizers of every event it consumed.
//
// Invariant: every event that contributed to a wire request has had its
// finalizers moved into the request. Resolving the request resolves them all.
type WireRequest struct {
	// Key is the partition key the request is routed by.
	Key string

	// Body is the payload handed to the dispatch driver, compressed when
	// Compressed is true.
	Body []byte

	// Codec names the compression codec applied to Body.
	Codec string

	// Compressed reports whether Body differs from the serialized form.
	Compressed bool

	// UncompressedBytes is the serialized container length before
	// compression.
	UncompressedBytes int

	// EventCount is the number of events serialized into Body.
	EventCount int

	// ByteSize carries the aggregated size accounting of the consumed
	// events, for driver telemetry.
	ByteSize CountByteSize

	finalizers Finalizers
}

// AttachFinalizers transfers finalizer ownership from a consumed event to
// the request.
func (r *WireRequest) AttachFinalizers(fs Finalizers) {
	r.finalizers = append(r.finalizers, fs...)
}

// Resolve reports the terminal disposition to every attached finalizer.
// The dispatch driver must call this exactly once per accepted request.
func (r *WireRequest) Resolve(d Disposition) {
	r.finalizers.Resolve(d)
}
