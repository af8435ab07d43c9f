// Package build constructs wire requests from batches of events.
package build

import (
	"fmt"

	"github.com/bft-labs/eventship/internal/domain"
	"github.com/bft-labs/eventship/internal/encode"
	"github.com/bft-labs/eventship/internal/ports"
)

// RequestBuilder turns a batch of events into one or more wire requests,
// each respecting the payload cap.
type RequestBuilder struct {
	transformer ports.Transformer
	codec       ports.Codec
	telemetry   ports.Telemetry
	maxPayload  int
}

// NewRequestBuilder creates a builder. transformer may be nil when no
// payload rewriting is configured.
func NewRequestBuilder(transformer ports.Transformer, codec ports.Codec, telemetry ports.Telemetry, maxPayloadBytes int) *RequestBuilder {
	return &RequestBuilder{
		transformer: transformer,
		codec:       codec,
		telemetry:   telemetry,
		maxPayload:  maxPayloadBytes,
	}
}

// BuildRequests transforms the events, then repeatedly serializes the
// remaining queue into capped containers until it drains. Each pass yields
// one wire request with the consumed events' finalizers moved in. A pass
// that serializes nothing means the head event alone cannot fit: that event
// is dropped with a terminal disposition and one telemetry signal, and
// processing continues with the rest of the queue.
//
// On a serialization or codec error the remaining queue, the current pass's
// events, and any requests built earlier in this call are all resolved as
// errored, and the error is returned. Finalizers resolve exactly once on
// every path.
func (rb *RequestBuilder) BuildRequests(events []*domain.Event, key string) ([]*domain.WireRequest, error) {
	// Transform events and precompute their estimated sizes.
	queue := encode.NewQueue(len(events))
	for _, ev := range events {
		if rb.transformer != nil {
			rb.transformer.Transform(ev)
		}
		queue.PushBack(encode.QueuedEvent{
			Event:         ev,
			EstimatedSize: encode.EstimatedEventSize(ev),
		})
	}

	var requests []*domain.WireRequest
	for !queue.Empty() {
		serialized, buf, byteSize, err := encode.SerializeWithCapacity(queue, rb.maxPayload)
		if err != nil {
			rb.fail(requests, serialized, queue)
			return nil, err
		}

		if len(serialized) == 0 {
			// The head event alone exceeds the cap. Drop it so the
			// pass after this one makes progress.
			head := queue.PopFront()
			head.Event.TakeFinalizers().Resolve(domain.DispositionDropped)
			rb.telemetry.EventsDropped(1, ports.DropReasonTooLarge)
			continue
		}

		request, err := rb.finishRequest(buf, serialized, byteSize, key)
		if err != nil {
			rb.fail(requests, serialized, queue)
			return nil, err
		}
		requests = append(requests, request)
	}

	return requests, nil
}

// finishRequest compresses the container and assembles the wire request,
// transferring finalizer ownership from the consumed events.
func (rb *RequestBuilder) finishRequest(buf []byte, events []*domain.Event, byteSize domain.CountByteSize, key string) (*domain.WireRequest, error) {
	body, err := rb.codec.Compress(buf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCodec, err)
	}

	request := &domain.WireRequest{
		Key:               key,
		Body:              body,
		Codec:             rb.codec.Name(),
		Compressed:        rb.codec.Compressed(),
		UncompressedBytes: len(buf),
		EventCount:        len(events),
		ByteSize:          byteSize,
	}
	for _, ev := range events {
		request.AttachFinalizers(ev.TakeFinalizers())
	}
	return request, nil
}

// fail resolves every finalizer this call still owns: requests built but not
// returned, events serialized in the failing pass, and the unconsumed queue.
func (rb *RequestBuilder) fail(built []*domain.WireRequest, serialized []*domain.Event, queue *encode.Queue) {
	for _, request := range built {
		request.Resolve(domain.DispositionErrored)
	}
	for _, ev := range serialized {
		ev.TakeFinalizers().Resolve(domain.DispositionErrored)
	}
	for _, item := range queue.Drain() {
		item.Event.TakeFinalizers().Resolve(domain.DispositionErrored)
	}
}
