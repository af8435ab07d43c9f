package batch

import "github.com/bft-labs/eventship/internal/domain"

// Partitioner assigns each event to a batching lane.
//
// Partitioning is pure and total: an event with routing metadata is batched
// by that key, and an event without any shares the configured default key.
// The default is an ordinary key, not a sentinel — downstream stages never
// treat it specially.
type Partitioner struct {
	// DefaultKey is used for events with no routing metadata.
	DefaultKey string
}

// Partition returns the batching key for an event.
func (p Partitioner) Partition(e *domain.Event) string {
	if e.Key != "" {
		return e.Key
	}
	return p.DefaultKey
}
