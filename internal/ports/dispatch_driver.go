package ports

import (
	"context"

	"github.com/bft-labs/eventship/internal/domain"
)

// ResponseClass is the driver's classification of a dispatch attempt.
type ResponseClass int

const (
	// ResponseAccepted means the downstream service accepted the request.
	ResponseAccepted ResponseClass = iota

	// ResponseRetryable means the attempt failed transiently (network
	// error, throttling, server error) and may be retried.
	ResponseRetryable

	// ResponseRejected means the downstream service refused the request
	// and a retry cannot succeed.
	ResponseRejected
)

// String returns a human-readable name for the response class.
func (c ResponseClass) String() string {
	switch c {
	case ResponseAccepted:
		return "accepted"
	case ResponseRetryable:
		return "retryable"
	case ResponseRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// DispatchDriver consumes the stream of built wire requests. The driver owns
// network transport, retry/backoff policy, and backpressure: the pipeline
// blocks handing off a request until the driver accepts it.
//
// Contract: the driver resolves the finalizers of every request it accepts
// exactly once, success or failure. Run returns after the requests channel
// closes and all in-flight dispatches have settled.
type DispatchDriver interface {
	Run(ctx context.Context, requests <-chan *domain.WireRequest) error
}
