package batch

import (
	"context"
	"time"

	"github.com/bft-labs/eventship/internal/domain"
	"github.com/bft-labs/eventship/internal/encode"
)

// Config bounds open batches. A batch closes as soon as admitting the next
// event would exceed MaxEvents or MaxBytes, or when MaxAge elapses since its
// first event, whichever happens first. Zero MaxBytes disables the byte
// bound; zero MaxAge disables the age bound.
type Config struct {
	// MaxEvents is the maximum number of events per batch.
	MaxEvents int

	// MaxBytes is the maximum cumulative estimated encoded size per
	// batch. Estimates are approximate, so a closed batch may still
	// exceed the hard payload cap; the serializer enforces that.
	MaxBytes int

	// MaxAge is the longest a batch may stay open after its first event.
	MaxAge time.Duration
}

// Batcher groups a partitioned event stream into bounded batches, one open
// batch per partition key. Keys are batched independently; within a key,
// batches preserve admission order.
type Batcher struct {
	cfg         Config
	partitioner Partitioner
	open        map[string]*domain.Batch
}

// NewBatcher creates a batcher with the given bounds and partitioner.
func NewBatcher(cfg Config, partitioner Partitioner) *Batcher {
	return &Batcher{
		cfg:         cfg,
		partitioner: partitioner,
		open:        make(map[string]*domain.Batch),
	}
}

// Run consumes events from in and emits closed batches on out until in
// closes, then flushes every open batch and closes out. A final partial
// batch per key is always flushed, never silently dropped.
//
// On context cancellation, events still owned by the batcher are resolved
// with an errored disposition before returning, so finalizers never leak.
func (b *Batcher) Run(ctx context.Context, in <-chan *domain.Event, out chan<- *domain.Batch) error {
	defer close(out)

	for {
		timerC, stop := b.ageTimer()

		select {
		case <-ctx.Done():
			stop()
			b.abandon()
			return ctx.Err()

		case ev, ok := <-in:
			stop()
			if !ok {
				return b.flushAll(ctx, out)
			}
			if err := b.admit(ctx, ev, out); err != nil {
				b.abandon()
				return err
			}

		case <-timerC:
			stop()
			if err := b.flushExpired(ctx, out); err != nil {
				b.abandon()
				return err
			}
		}
	}
}

// ageTimer returns a channel that fires when the oldest open batch reaches
// the age bound, or a nil channel when no bound applies.
func (b *Batcher) ageTimer() (<-chan time.Time, func()) {
	if b.cfg.MaxAge <= 0 || len(b.open) == 0 {
		return nil, func() {}
	}
	oldest := time.Time{}
	for _, batch := range b.open {
		if oldest.IsZero() || batch.FirstAdmitted.Before(oldest) {
			oldest = batch.FirstAdmitted
		}
	}
	timer := time.NewTimer(time.Until(oldest.Add(b.cfg.MaxAge)))
	return timer.C, func() { timer.Stop() }
}

// admit routes an event to its key's open batch, closing batches as bounds
// require. A single event whose estimate alone exceeds MaxBytes is still
// admitted as the sole member of its batch; the hard cap is enforced at
// serialization, not here.
func (b *Batcher) admit(ctx context.Context, ev *domain.Event, out chan<- *domain.Batch) error {
	key := b.partitioner.Partition(ev)
	estimated := encode.EstimatedEventSize(ev)

	cur := b.open[key]
	if cur != nil && b.cfg.MaxBytes > 0 && cur.EstimatedBytes+estimated > b.cfg.MaxBytes {
		if err := b.emit(ctx, key, out); err != nil {
			return err
		}
		cur = nil
	}
	if cur == nil {
		cur = domain.NewBatch(key)
		b.open[key] = cur
	}
	cur.Add(ev, estimated)

	if cur.Size() >= b.cfg.MaxEvents || (b.cfg.MaxBytes > 0 && cur.EstimatedBytes >= b.cfg.MaxBytes) {
		return b.emit(ctx, key, out)
	}
	return nil
}

// flushExpired emits every open batch that has reached the age bound.
func (b *Batcher) flushExpired(ctx context.Context, out chan<- *domain.Batch) error {
	now := time.Now()
	for key, batch := range b.open {
		if batch.Age(now) >= b.cfg.MaxAge {
			if err := b.emit(ctx, key, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// flushAll emits every open batch. Called when the upstream stream ends.
func (b *Batcher) flushAll(ctx context.Context, out chan<- *domain.Batch) error {
	for key := range b.open {
		if err := b.emit(ctx, key, out); err != nil {
			return err
		}
	}
	return nil
}

// emit hands a closed batch downstream, honoring backpressure.
func (b *Batcher) emit(ctx context.Context, key string, out chan<- *domain.Batch) error {
	batch := b.open[key]
	delete(b.open, key)
	if batch == nil || batch.Empty() {
		return nil
	}
	select {
	case out <- batch:
		return nil
	case <-ctx.Done():
		batch.ResolveAll(domain.DispositionErrored)
		return ctx.Err()
	}
}

// abandon resolves the finalizers of every event still held open.
func (b *Batcher) abandon() {
	for key, batch := range b.open {
		batch.ResolveAll(domain.DispositionErrored)
		delete(b.open, key)
	}
}
