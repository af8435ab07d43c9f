package domain

import "time"

// Batch is an ordered group of events sharing one partition key.
//
// The batcher closes a batch by estimated size, so EstimatedBytes may exceed
// the hard payload cap; the serializer enforces the cap on actual bytes.
type Batch struct {
	// Key is the partition key shared by every event in the batch.
	Key string

	// Events holds the batch members in admission order.
	Events []*Event

	// EstimatedBytes is the cumulative estimated encoded size.
	EstimatedBytes int

	// FirstAdmitted is when the first event entered the batch, used for
	// the age bound.
	FirstAdmitted time.Time
}

// NewBatch creates an empty batch for the given key.
func NewBatch(key string) *Batch {
	return &Batch{Key: key}
}

// Add appends an event with its estimated encoded size.
func (b *Batch) Add(e *Event, estimatedBytes int) {
	if len(b.Events) == 0 {
		b.FirstAdmitted = time.Now()
	}
	b.Events = append(b.Events, e)
	b.EstimatedBytes += estimatedBytes
}

// Size returns the number of events in the batch.
func (b *Batch) Size() int {
	return len(b.Events)
}

// Empty returns true if the batch has no events.
func (b *Batch) Empty() bool {
	return len(b.Events) == 0
}

// Age returns how long ago the first event was admitted.
func (b *Batch) Age(now time.Time) time.Duration {
	if b.Empty() {
		return 0
	}
	return now.Sub(b.FirstAdmitted)
}

// ResolveAll resolves the finalizers of every event still owned by the
// batch. Used when a batch is abandoned, e.g. on pipeline cancellation.
func (b *Batch) ResolveAll(d Disposition) {
	for _, e := range b.Events {
		e.TakeFinalizers().Resolve(d)
	}
}
