// Package eventship converts an unbounded stream of structured events into a
// bounded sequence of network-ready requests, grouped by routing key and
// capped by both event count and serialized byte size, while preserving
// exactly-once acknowledgement semantics back to upstream producers.
//
// Example usage:
//
//	cfg := eventship.DefaultConfig()
//	driver := eventship.NewHTTPDriver(eventship.HTTPDriverConfig{
//	    Endpoint: "https://intake.example.com/v1/events",
//	}, nil, logger)
//
//	shipper, err := eventship.New(cfg, driver, eventship.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := shipper.Start(context.Background()); err != nil {
//	    log.Fatal(err)
//	}
//
//	ev := eventship.NewEvent(map[string]any{"message": "hello"})
//	ev.OnAck(func(d eventship.Disposition) { fmt.Println("fate:", d) })
//	shipper.Enqueue(ev)
//
//	if err := shipper.Stop(); err != nil {
//	    log.Fatal(err)
//	}
package eventship

import (
	"context"
	"net/http"
	"sync"
	"time"

	httpadapter "github.com/bft-labs/eventship/internal/adapters/http"
	"github.com/bft-labs/eventship/internal/adapters/telemetry"
	"github.com/bft-labs/eventship/internal/app"
	"github.com/bft-labs/eventship/internal/batch"
	"github.com/bft-labs/eventship/internal/build"
	"github.com/bft-labs/eventship/internal/domain"
	"github.com/bft-labs/eventship/internal/ports"
	"github.com/bft-labs/eventship/pkg/log"
)

// Re-exported domain and port types for embedding applications.
type (
	// Event is a single structured record shipped by the pipeline.
	Event = domain.Event

	// Disposition is the terminal fate reported to an event's finalizers.
	Disposition = domain.Disposition

	// AckFunc receives an event's terminal disposition.
	AckFunc = domain.AckFunc

	// WireRequest is the built artifact handed to the dispatch driver.
	WireRequest = domain.WireRequest

	// DispatchDriver consumes the wire request stream.
	DispatchDriver = ports.DispatchDriver

	// Codec compresses request bodies.
	Codec = ports.Codec

	// Transformer rewrites event payloads before serialization.
	Transformer = ports.Transformer

	// Telemetry receives drop and build-failure signals.
	Telemetry = ports.Telemetry

	// Logger is the structured logging abstraction.
	Logger = log.Logger

	// HTTPDriverConfig configures the bundled HTTP dispatch driver.
	HTTPDriverConfig = httpadapter.Config
)

// Terminal dispositions.
const (
	Delivered = domain.DispositionDelivered
	Dropped   = domain.DispositionDropped
	Errored   = domain.DispositionErrored
)

// NewEvent creates an event with the given payload and no routing key.
func NewEvent(fields map[string]any) *Event {
	return domain.NewEvent(fields)
}

// NewHTTPDriver creates the bundled HTTP dispatch driver. A nil client uses
// http.DefaultClient; a nil logger discards log output.
func NewHTTPDriver(cfg HTTPDriverConfig, client ports.HTTPClient, logger Logger) DispatchDriver {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return httpadapter.NewDriver(cfg, client, logger)
}

// Config holds the configuration for the shipping pipeline.
// Use DefaultConfig() to get a Config with sensible defaults.
type Config struct {
	// DefaultKey is the partition key for events with no routing metadata.
	DefaultKey string

	// Protocol tags log and telemetry output.
	Protocol string

	// MaxBatchEvents, MaxBatchBytes, and MaxBatchAge bound open batches.
	MaxBatchEvents int
	MaxBatchBytes  int
	MaxBatchAge    time.Duration

	// MaxPayloadBytes is the hard serialized-container cap per request.
	MaxPayloadBytes int

	// BuildConcurrency caps concurrent request-builder invocations.
	BuildConcurrency int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		DefaultKey:       "default",
		Protocol:         "http",
		MaxBatchEvents:   app.DefaultMaxBatchEvents,
		MaxBatchBytes:    app.DefaultMaxBatchBytes,
		MaxBatchAge:      app.DefaultMaxBatchAge,
		MaxPayloadBytes:  app.DefaultMaxPayloadBytes,
		BuildConcurrency: app.DefaultBuildConcurrency,
	}
}

// Option configures optional behavior of a Shipper.
type Option func(*options)

type options struct {
	logger      log.Logger
	codec       ports.Codec
	transformer ports.Transformer
	telemetry   ports.Telemetry
	buffer      int
}

func defaultOptions() options {
	return options{
		logger: log.NewNoopLogger(),
		codec:  identityCodec{},
		buffer: 64,
	}
}

// WithLogger sets a custom logger. Defaults to a no-op logger.
func WithLogger(logger Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithCodec sets the compression codec for request bodies.
// Defaults to the identity codec (no compression).
func WithCodec(codec Codec) Option {
	return func(o *options) { o.codec = codec }
}

// WithTransformer sets the per-event payload transform.
func WithTransformer(t Transformer) Option {
	return func(o *options) { o.transformer = t }
}

// WithTelemetry sets the telemetry signal sink. Defaults to a no-op sink.
func WithTelemetry(t Telemetry) Option {
	return func(o *options) { o.telemetry = t }
}

// WithBuffer sets the event intake buffer size.
func WithBuffer(n int) Option {
	return func(o *options) { o.buffer = n }
}

// identityCodec is the default no-compression codec.
type identityCodec struct{}

func (identityCodec) Name() string                         { return "none" }
func (identityCodec) Compressed() bool                     { return false }
func (identityCodec) Compress(data []byte) ([]byte, error) { return data, nil }

// Shipper is an embeddable shipping pipeline. Use New() to create an
// instance, Start() to begin shipping, Enqueue() to submit events, and
// Stop() to flush and shut down.
type Shipper struct {
	pipeline *app.Pipeline

	mu      sync.RWMutex
	running bool
	events  chan *domain.Event
	done    chan struct{}
	runErr  error
}

// normalize fills config defaults and rejects values the pipeline cannot
// run with.
func (c *Config) normalize() error {
	if c.DefaultKey == "" {
		c.DefaultKey = "default"
	}
	if c.MaxBatchEvents <= 0 || c.MaxPayloadBytes <= 0 {
		return domain.ErrInvalidConfig
	}
	return nil
}

// newPipeline assembles the pipeline shared by New and Run. cfg must be
// normalized first.
func newPipeline(cfg Config, driver DispatchDriver, opts []Option) (*app.Pipeline, options) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.telemetry == nil {
		o.telemetry = telemetry.NewNoop()
	}

	builder := build.NewRequestBuilder(o.transformer, o.codec, o.telemetry, cfg.MaxPayloadBytes)
	pipeline := app.NewPipeline(app.PipelineConfig{
		DefaultKey: cfg.DefaultKey,
		Batch: batch.Config{
			MaxEvents: cfg.MaxBatchEvents,
			MaxBytes:  cfg.MaxBatchBytes,
			MaxAge:    cfg.MaxBatchAge,
		},
		MaxPayloadBytes:  cfg.MaxPayloadBytes,
		BuildConcurrency: cfg.BuildConcurrency,
		Protocol:         cfg.Protocol,
	}, builder, driver, o.logger, o.telemetry)
	return pipeline, o
}

// New creates a Shipper with the given configuration and dispatch driver.
func New(cfg Config, driver DispatchDriver, opts ...Option) (*Shipper, error) {
	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	pipeline, o := newPipeline(cfg, driver, opts)
	return &Shipper{
		pipeline: pipeline,
		events:   make(chan *domain.Event, o.buffer),
		done:     make(chan struct{}),
	}, nil
}

// Start begins shipping in a background goroutine.
// Returns ErrAlreadyRunning if the shipper is already started.
func (s *Shipper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return domain.ErrAlreadyRunning
	}
	s.running = true

	go func() {
		defer close(s.done)
		s.runErr = s.pipeline.Run(ctx, s.events)
	}()
	return nil
}

// Enqueue submits an event to the pipeline, blocking when the intake buffer
// is full. Returns ErrNotRunning if the shipper is stopped.
func (s *Shipper) Enqueue(e *Event) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		return domain.ErrNotRunning
	}
	select {
	case s.events <- e:
		return nil
	case <-s.done:
		// Pipeline exited (context canceled) without a Stop call.
		return domain.ErrNotRunning
	}
}

// Stop closes the intake, waits for open batches to flush and in-flight
// requests to settle, and returns the pipeline's error, if any.
// Returns ErrNotRunning if the shipper was not started.
func (s *Shipper) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	s.running = false
	close(s.events)
	s.mu.Unlock()

	<-s.done
	return s.runErr
}

// Run ships events from the source channel until it closes, then flushes and
// returns. It is the one-shot alternative to New/Start/Stop for callers that
// already own an event channel. The configuration is validated the same way
// New validates it.
func Run(ctx context.Context, cfg Config, source <-chan *Event, driver DispatchDriver, opts ...Option) error {
	if err := cfg.normalize(); err != nil {
		return err
	}

	pipeline, _ := newPipeline(cfg, driver, opts)
	return pipeline.Run(ctx, source)
}
