// Package http implements the dispatch driver port over HTTP.
package http

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/bft-labs/eventship/internal/domain"
	"github.com/bft-labs/eventship/internal/ports"
)

// Default driver configuration values.
const (
	DefaultWorkers     = 4
	DefaultMaxAttempts = 3
	DefaultKeyHeader   = "X-Api-Key"
)

// Config contains configuration for the HTTP dispatch driver.
type Config struct {
	// Endpoint is the URL wire request bodies are POSTed to.
	Endpoint string

	// Protocol tags log output for this driver instance.
	Protocol string

	// KeyHeader carries the request's routing key, e.g. an API key
	// header. Defaults to "X-Api-Key".
	KeyHeader string

	// Workers is the number of concurrent dispatchers. Independent of
	// the pipeline's build concurrency.
	Workers int

	// MaxAttempts bounds delivery attempts per request, including the
	// first.
	MaxAttempts int

	// BackoffInitial and BackoffMax shape the retry backoff.
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// Driver implements ports.DispatchDriver over HTTP. It consumes the wire
// request stream with a fixed worker pool, retries retryable failures with
// jittered exponential backoff, and resolves every request's finalizers
// exactly once.
type Driver struct {
	cfg    Config
	client ports.HTTPClient
	logger ports.Logger
}

// NewDriver creates an HTTP dispatch driver.
func NewDriver(cfg Config, client ports.HTTPClient, logger ports.Logger) *Driver {
	if cfg.KeyHeader == "" {
		cfg.KeyHeader = DefaultKeyHeader
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = DefaultBackoffInitial
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = DefaultBackoffMax
	}
	return &Driver{cfg: cfg, client: client, logger: logger}
}

// Run consumes requests until the channel closes, then waits for in-flight
// dispatches to settle and reports the delivered totals.
//
// Each worker owns one backoff: it grows across consecutive failures even
// between requests, so a struggling endpoint is not hammered at the initial
// interval by every new request, and resets once a delivery succeeds.
func (d *Driver) Run(ctx context.Context, requests <-chan *domain.WireRequest) error {
	var mu sync.Mutex
	var delivered domain.CountByteSize

	var wg sync.WaitGroup
	for i := 0; i < d.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			back := newBackoff(d.cfg.BackoffInitial, d.cfg.BackoffMax)
			var workerDelivered domain.CountByteSize
			for request := range requests {
				if d.dispatch(ctx, request, back) {
					workerDelivered.Merge(request.ByteSize)
				}
			}
			mu.Lock()
			delivered.Merge(workerDelivered)
			mu.Unlock()
		}()
	}
	wg.Wait()

	d.logger.Info("dispatch finished",
		ports.Str("protocol", d.cfg.Protocol),
		ports.Int("delivered_events", delivered.Events),
		ports.Int("delivered_bytes", delivered.Bytes),
	)
	return nil
}

// dispatch delivers one request, retrying retryable failures, and resolves
// its finalizers with the terminal disposition. Returns true when the
// request was delivered.
func (d *Driver) dispatch(ctx context.Context, request *domain.WireRequest, back *backoff) bool {
	for attempt := 1; ; attempt++ {
		class, err := d.send(ctx, request)

		switch class {
		case ports.ResponseAccepted:
			d.logger.Debug("request delivered",
				ports.Str("protocol", d.cfg.Protocol),
				ports.Int("events", request.EventCount),
				ports.Int("bytes", len(request.Body)),
				ports.Int("attempt", attempt),
			)
			request.Resolve(domain.DispositionDelivered)
			back.Reset()
			return true

		case ports.ResponseRejected:
			d.logger.Error("request rejected",
				ports.Err(err),
				ports.Str("protocol", d.cfg.Protocol),
				ports.Int("events", request.EventCount),
			)
			request.Resolve(domain.DispositionErrored)
			return false
		}

		if attempt >= d.cfg.MaxAttempts {
			d.logger.Error("request failed, attempts exhausted",
				ports.Err(err),
				ports.Str("protocol", d.cfg.Protocol),
				ports.Int("events", request.EventCount),
				ports.Int("attempts", attempt),
			)
			request.Resolve(domain.DispositionErrored)
			return false
		}

		d.logger.Warn("request failed, retrying",
			ports.Err(err),
			ports.Str("protocol", d.cfg.Protocol),
			ports.Int("attempt", attempt),
		)
		if err := back.Sleep(ctx); err != nil {
			request.Resolve(domain.DispositionErrored)
			return false
		}
	}
}

// send performs one delivery attempt and classifies the outcome.
func (d *Driver) send(ctx context.Context, request *domain.WireRequest) (ports.ResponseClass, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.cfg.Endpoint, bytes.NewReader(request.Body))
	if err != nil {
		return ports.ResponseRejected, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(d.cfg.KeyHeader, request.Key)
	if request.Compressed {
		req.Header.Set("Content-Encoding", request.Codec)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return ports.ResponseRetryable, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode/100 == 2:
		return ports.ResponseAccepted, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode/100 == 5:
		return ports.ResponseRetryable, fmt.Errorf("server returned %d", resp.StatusCode)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ports.ResponseRejected, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(body))
	}
}
