package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"github.com/bft-labs/eventship"
	"github.com/bft-labs/eventship/internal/adapters/codec"
	"github.com/bft-labs/eventship/internal/adapters/telemetry"
	"github.com/bft-labs/eventship/internal/cliconfig"
	"github.com/bft-labs/eventship/pkg/log"
)

const longHelp = `
Ship newline-delimited JSON events to an HTTP ingest endpoint.

Events are read from stdin (or --input), partitioned by a configurable
routing-key field, batched by count, size, and age, packed into byte-capped
compressed requests, and dispatched with bounded concurrency. Configure via
file, environment (EVENTSHIP_*), or flags.
`

var exampleUsage = strings.TrimSpace(`
  tail -F app.ndjson | eventship --endpoint https://intake.example.com/v1/events
  eventship --config $HOME/.eventship/config.toml --input events.ndjson
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string
	var inputPath string
	var verbose bool

	root := &cobra.Command{
		Use:     "eventship",
		Short:   "Ship newline-delimited JSON events to an HTTP ingest endpoint",
		Long:    strings.TrimSpace(longHelp),
		Example: exampleUsage,
		Version: fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Load config file first (default $HOME/.eventship/config.toml),
			// then env, then flag overrides.
			cfgFile := cfgPath
			if cfgFile == "" {
				cfgFile = cliconfig.DefaultConfigPath()
			}

			changed := map[string]bool{}
			cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

			if cfgFile != "" && cliconfig.FileExists(cfgFile) {
				fc, err := cliconfig.LoadFileConfig(cfgFile)
				if err != nil {
					return fmt.Errorf("load config: %w", err)
				}
				if err := cliconfig.ApplyFileConfig(&cfg, fc, changed); err != nil {
					return err
				}
			}

			if err := cliconfig.ApplyEnvConfig(&cfg, changed); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			return run(cmd.Context(), cfg, cfgFile, inputPath, verbose)
		},
	}

	flags := root.Flags()
	flags.StringVar(&cfgPath, "config", "", "path to TOML config file")
	flags.StringVar(&inputPath, "input", "-", "NDJSON input file, or - for stdin")
	flags.StringVar(&cfg.Endpoint, "endpoint", cfg.Endpoint, "ingest endpoint URL")
	flags.StringVar(&cfg.DefaultKey, "default-key", cfg.DefaultKey, "routing key for events without one")
	flags.StringVar(&cfg.KeyField, "key-field", cfg.KeyField, "event field carrying the routing key")
	flags.StringVar(&cfg.Protocol, "protocol", cfg.Protocol, "protocol name for telemetry tagging")
	flags.StringVar(&cfg.Compression, "compression", cfg.Compression, "codec: none, gzip, zstd, lz4")
	flags.IntVar(&cfg.MaxBatchEvents, "max-batch-events", cfg.MaxBatchEvents, "max events per batch")
	flags.IntVar(&cfg.MaxBatchBytes, "max-batch-bytes", cfg.MaxBatchBytes, "max estimated bytes per batch")
	flags.DurationVar(&cfg.MaxBatchAge, "max-batch-age", cfg.MaxBatchAge, "max age of an open batch")
	flags.IntVar(&cfg.MaxPayloadBytes, "max-payload-bytes", cfg.MaxPayloadBytes, "hard serialized payload cap")
	flags.IntVar(&cfg.BuildConcurrency, "build-concurrency", cfg.BuildConcurrency, "concurrent request builds")
	flags.IntVar(&cfg.SendWorkers, "send-workers", cfg.SendWorkers, "concurrent dispatch workers")
	flags.IntVar(&cfg.SendAttempts, "send-attempts", cfg.SendAttempts, "delivery attempts per request")
	flags.DurationVar(&cfg.HTTPTimeout, "timeout", cfg.HTTPTimeout, "HTTP request timeout")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	if err := root.ExecuteContext(mainContext()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// mainContext returns a context canceled on SIGINT/SIGTERM.
func mainContext() context.Context {
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

func run(ctx context.Context, cfg cliconfig.Config, cfgFile, inputPath string, verbose bool) error {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zl := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).With().Timestamp().Logger()
	logger := log.NewZerologAdapterWithLogger(zl)

	compressor, err := codec.Parse(cfg.Compression)
	if err != nil {
		return err
	}

	driver := eventship.NewHTTPDriver(eventship.HTTPDriverConfig{
		Endpoint:    cfg.Endpoint,
		Protocol:    cfg.Protocol,
		Workers:     cfg.SendWorkers,
		MaxAttempts: cfg.SendAttempts,
	}, &http.Client{Timeout: cfg.HTTPTimeout}, logger)

	// Config changes are picked up on restart; the watcher just surfaces
	// that a restart is needed.
	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		watcher := cliconfig.NewWatcher(cfgFile, func(cliconfig.FileConfig) {
			logger.Info("config changed on disk, restart to apply",
				log.String("path", cfgFile))
		}, logger)
		if err := watcher.Start(ctx); err != nil {
			logger.Warn("config watcher disabled", log.Err(err))
		} else {
			defer watcher.Stop()
		}
	}

	input := os.Stdin
	if inputPath != "" && inputPath != "-" {
		f, err := os.Open(inputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		input = f
	}

	events := make(chan *eventship.Event)
	readErr := make(chan error, 1)
	go func() {
		defer close(events)
		readErr <- readEvents(ctx, input, cfg.KeyField, events)
	}()

	shipCfg := eventship.DefaultConfig()
	shipCfg.DefaultKey = cfg.DefaultKey
	shipCfg.Protocol = cfg.Protocol
	shipCfg.MaxBatchEvents = cfg.MaxBatchEvents
	shipCfg.MaxBatchBytes = cfg.MaxBatchBytes
	shipCfg.MaxBatchAge = cfg.MaxBatchAge
	shipCfg.MaxPayloadBytes = cfg.MaxPayloadBytes
	shipCfg.BuildConcurrency = cfg.BuildConcurrency

	err = eventship.Run(ctx, shipCfg, events, driver,
		eventship.WithLogger(logger),
		eventship.WithCodec(compressor),
		eventship.WithTelemetry(telemetry.NewZerologEmitter(zl, cfg.Protocol)),
	)
	if rerr := <-readErr; err == nil {
		err = rerr
	}
	if errors.Is(err, context.Canceled) {
		// Signal-driven shutdown is a clean exit.
		return nil
	}
	return err
}

// readEvents parses NDJSON lines into events, lifting the routing-key field
// out of the payload.
func readEvents(ctx context.Context, input *os.File, keyField string, events chan<- *eventship.Event) error {
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var fields map[string]any
		if err := json.Unmarshal(line, &fields); err != nil {
			// Malformed lines ship as raw messages instead of being
			// silently skipped.
			fields = map[string]any{"message": string(line)}
		}

		ev := eventship.NewEvent(fields)
		if keyField != "" {
			if key, ok := fields[keyField].(string); ok && key != "" {
				ev.Key = key
				delete(fields, keyField)
			}
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
