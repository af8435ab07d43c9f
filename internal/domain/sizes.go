package domain

// CountByteSize aggregates event counts and byte totals for a group of
// serialized events. Estimated sizes are the cheap pre-serialization
// estimates used for batching decisions; Bytes is the exact measured length
// recorded only after an event was committed to a buffer. The two are kept
// separate because estimation must stay O(1) per event.
type CountByteSize struct {
	// Events is the number of serialized events.
	Events int

	// Bytes is the exact serialized byte total.
	Bytes int

	// EstimatedBytes is the sum of the events' size estimates.
	EstimatedBytes int
}

// Add records one serialized event.
func (c *CountByteSize) Add(exact, estimated int) {
	c.Events++
	c.Bytes += exact
	c.EstimatedBytes += estimated
}

// Merge folds another accumulator into this one.
func (c *CountByteSize) Merge(other CountByteSize) {
	c.Events += other.Events
	c.Bytes += other.Bytes
	c.EstimatedBytes += other.EstimatedBytes
}
