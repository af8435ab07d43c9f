// Package app wires the pipeline stages together: partitioned batching,
// concurrency-limited request building, and handoff to the dispatch driver.
package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/eventship/internal/batch"
	"github.com/bft-labs/eventship/internal/build"
	"github.com/bft-labs/eventship/internal/domain"
	"github.com/bft-labs/eventship/internal/ports"
)

// Default pipeline configuration values.
const (
	DefaultBuildConcurrency = 8
	DefaultMaxBatchEvents   = 1000
	DefaultMaxBatchBytes    = 1 << 20
	DefaultMaxBatchAge      = 5 * time.Second
	DefaultMaxPayloadBytes  = 4 << 20
)

// PipelineConfig contains configuration for the shipping pipeline.
type PipelineConfig struct {
	// DefaultKey is the partition key for events with no routing
	// metadata.
	DefaultKey string

	// Batch bounds open batches per partition key.
	Batch batch.Config

	// MaxPayloadBytes is the hard serialized-container cap per request.
	MaxPayloadBytes int

	// BuildConcurrency caps concurrent request-builder invocations. It is
	// independent of the dispatch driver's own concurrency so CPU-bound
	// building and network-bound dispatch cannot starve each other.
	BuildConcurrency int

	// Protocol tags log and telemetry output for this pipeline instance.
	Protocol string
}

// Pipeline is the output stage of the shipping pipeline: it consumes an
// event stream and streams built wire requests to the dispatch driver.
type Pipeline struct {
	cfg       PipelineConfig
	builder   *build.RequestBuilder
	driver    ports.DispatchDriver
	logger    ports.Logger
	telemetry ports.Telemetry
}

// NewPipeline creates a pipeline with the given dependencies.
func NewPipeline(
	cfg PipelineConfig,
	builder *build.RequestBuilder,
	driver ports.DispatchDriver,
	logger ports.Logger,
	telemetry ports.Telemetry,
) *Pipeline {
	if cfg.BuildConcurrency <= 0 {
		cfg.BuildConcurrency = DefaultBuildConcurrency
	}
	return &Pipeline{
		cfg:       cfg,
		builder:   builder,
		driver:    driver,
		logger:    logger,
		telemetry: telemetry,
	}
}

// Run executes the pipeline until the event stream closes or the context is
// canceled.
//
// Stages run concurrently and propagate backpressure through their channels:
// the batcher blocks when builders are saturated, and builders block until
// the driver accepts their requests. When the stream ends, open batches
// flush and in-flight builds complete before Run returns.
func (p *Pipeline) Run(ctx context.Context, events <-chan *domain.Event) error {
	batches := make(chan *domain.Batch)
	requests := make(chan *domain.WireRequest)

	batcher := batch.NewBatcher(p.cfg.Batch, batch.Partitioner{DefaultKey: p.cfg.DefaultKey})

	var batchErr error
	var stageWG sync.WaitGroup
	stageWG.Add(2)

	go func() {
		defer stageWG.Done()
		batchErr = batcher.Run(ctx, events, batches)
	}()

	go func() {
		defer stageWG.Done()
		p.buildRequests(ctx, batches, requests)
	}()

	driverErr := p.driver.Run(ctx, requests)
	stageWG.Wait()

	p.logger.Info("pipeline stopped", ports.Str("protocol", p.cfg.Protocol))

	if driverErr != nil {
		return driverErr
	}
	return batchErr
}

// buildRequests fans batches out to builder goroutines, at most
// BuildConcurrency in flight. Admission is a counting permit, not a lock
// over data: builders share nothing but the permit pool and the outbound
// channel. Requests from one batch keep their construction order; ordering
// across batches is not guaranteed. A failed build is telemetered and
// skipped — it never stalls or kills the stages around it.
func (p *Pipeline) buildRequests(ctx context.Context, batches <-chan *domain.Batch, requests chan<- *domain.WireRequest) {
	defer close(requests)

	permits := make(chan struct{}, p.cfg.BuildConcurrency)
	var wg sync.WaitGroup

	for b := range batches {
		permits <- struct{}{}
		wg.Add(1)
		go func(b *domain.Batch) {
			defer wg.Done()
			defer func() { <-permits }()
			p.buildOne(ctx, b, requests)
		}(b)
	}
	wg.Wait()
}

// buildOne builds the requests for a single batch and streams them out.
func (p *Pipeline) buildOne(ctx context.Context, b *domain.Batch, requests chan<- *domain.WireRequest) {
	built, err := p.builder.BuildRequests(b.Events, b.Key)
	if err != nil {
		p.logger.Error("request build failed",
			ports.Err(err),
			ports.Int("events", b.Size()),
			ports.Str("protocol", p.cfg.Protocol),
		)
		p.telemetry.RequestBuildFailed(err, b.Size())
		return
	}

	for _, request := range built {
		select {
		case requests <- request:
		case <-ctx.Done():
			request.Resolve(domain.DispositionErrored)
		}
	}
}
