package encode

import (
	"encoding/json"
	"fmt"

	"github.com/bft-labs/eventship/internal/domain"
)

// QueuedEvent pairs an event with its precomputed size estimate so the
// estimate is not recomputed on every serializer pass.
type QueuedEvent struct {
	Event         *domain.Event
	EstimatedSize int
}

// Queue is a FIFO of events awaiting serialization. The serializer pushes an
// unfit event back to the front so admission order is preserved across
// passes.
type Queue struct {
	items []QueuedEvent
}

// NewQueue creates a queue with capacity for n events.
func NewQueue(n int) *Queue {
	return &Queue{items: make([]QueuedEvent, 0, n)}
}

// PushBack appends an event to the queue.
func (q *Queue) PushBack(item QueuedEvent) {
	q.items = append(q.items, item)
}

// PushFront returns an event to the head of the queue.
func (q *Queue) PushFront(item QueuedEvent) {
	q.items = append([]QueuedEvent{item}, q.items...)
}

// PopFront removes and returns the head of the queue.
// The queue must not be empty.
func (q *Queue) PopFront() QueuedEvent {
	item := q.items[0]
	q.items = q.items[1:]
	return item
}

// Len returns the number of queued events.
func (q *Queue) Len() int {
	return len(q.items)
}

// Empty returns true if no events are queued.
func (q *Queue) Empty() bool {
	return len(q.items) == 0
}

// Drain removes and returns all queued events.
func (q *Queue) Drain() []QueuedEvent {
	items := q.items
	q.items = nil
	return items
}

// SerializeWithCapacity serializes queued events into a JSON array whose
// length stays below maxBytes.
//
// It is a single left-to-right greedy pass: each event is provisionally
// appended to the buffer; if the buffer would meet or exceed the cap, the
// buffer is truncated back to its length before the event, the event returns
// to the head of the queue, and the pass stops. No re-ordering, no
// look-ahead, no repacking.
//
// Returns the serialized events in admission order, the buffer, and the
// exact/estimated size accounting. Events that did not fit remain queued. An
// empty serialized slice with a non-empty queue means the head event alone
// cannot fit; deciding its fate is the caller's responsibility.
func SerializeWithCapacity(q *Queue, maxBytes int) ([]*domain.Event, []byte, domain.CountByteSize, error) {
	var byteSize domain.CountByteSize

	// Size the buffer from the estimates, plus brackets and commas.
	totalEstimated := 1
	for _, item := range q.items {
		totalEstimated += item.EstimatedSize + 1
	}
	buf := make([]byte, 0, totalEstimated)
	serialized := make([]*domain.Event, 0, q.Len())

	buf = append(buf, '[')
	first := true
	for !q.Empty() {
		item := q.PopFront()

		// Checkpoint so the buffer can be rolled back if the event
		// does not fit.
		checkpoint := len(buf)
		if first {
			first = false
		} else {
			buf = append(buf, ',')
		}

		enc, err := json.Marshal(item.Event.Fields)
		if err != nil {
			// Return the events committed so far so the caller can
			// settle their finalizers; the failing event stays queued.
			q.PushFront(item)
			return serialized, nil, byteSize, fmt.Errorf("%w: %v", domain.ErrSerialize, err)
		}
		buf = append(buf, enc...)

		if len(buf) >= maxBytes {
			buf = buf[:checkpoint]
			q.PushFront(item)
			break
		}

		byteSize.Add(len(enc), item.EstimatedSize)
		serialized = append(serialized, item.Event)
	}
	buf = append(buf, ']')

	return serialized, buf, byteSize, nil
}
