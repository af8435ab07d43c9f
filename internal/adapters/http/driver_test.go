package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bft-labs/eventship/internal/domain"
	"github.com/bft-labs/eventship/pkg/log"
)

func testDriver(endpoint string, maxAttempts int) *Driver {
	return NewDriver(Config{
		Endpoint:       endpoint,
		Protocol:       "test",
		MaxAttempts:    maxAttempts,
		Workers:        1,
		BackoffInitial: time.Millisecond,
		BackoffMax:     5 * time.Millisecond,
	}, http.DefaultClient, log.NewNoopLogger())
}

func wireRequest(body, key string) (*domain.WireRequest, <-chan domain.Disposition) {
	resolved := make(chan domain.Disposition, 1)
	ev := domain.NewEvent(map[string]any{"message": "m"})
	ev.OnAck(func(d domain.Disposition) { resolved <- d })

	req := &domain.WireRequest{
		Key:        key,
		Body:       []byte(body),
		Codec:      "none",
		EventCount: 1,
	}
	req.AttachFinalizers(ev.TakeFinalizers())
	return req, resolved
}

func runOne(t *testing.T, d *Driver, req *domain.WireRequest) {
	t.Helper()
	requests := make(chan *domain.WireRequest, 1)
	requests <- req
	close(requests)
	if err := d.Run(context.Background(), requests); err != nil {
		t.Fatal(err)
	}
}

func TestDriver_Delivers(t *testing.T) {
	var gotBody []byte
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Clone()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	req, resolved := wireRequest(`[{"message":"m"}]`, "secret-key")
	runOne(t, testDriver(srv.URL, 3), req)

	if d := <-resolved; d != domain.DispositionDelivered {
		t.Errorf("disposition = %v, want delivered", d)
	}
	if string(gotBody) != `[{"message":"m"}]` {
		t.Errorf("body = %s", gotBody)
	}
	if gotHeader.Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", gotHeader.Get("Content-Type"))
	}
	if gotHeader.Get("X-Api-Key") != "secret-key" {
		t.Errorf("key header = %q", gotHeader.Get("X-Api-Key"))
	}
	if gotHeader.Get("Content-Encoding") != "" {
		t.Errorf("unexpected content encoding %q for identity codec", gotHeader.Get("Content-Encoding"))
	}
}

func TestDriver_SetsContentEncoding(t *testing.T) {
	var gotEncoding string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotEncoding = r.Header.Get("Content-Encoding")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, resolved := wireRequest("compressed-bytes", "k")
	req.Codec = "gzip"
	req.Compressed = true
	runOne(t, testDriver(srv.URL, 3), req)

	<-resolved
	if gotEncoding != "gzip" {
		t.Errorf("content encoding = %q, want gzip", gotEncoding)
	}
}

func TestDriver_RejectedIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	req, resolved := wireRequest("[]", "k")
	runOne(t, testDriver(srv.URL, 5), req)

	if d := <-resolved; d != domain.DispositionErrored {
		t.Errorf("disposition = %v, want errored", d)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Errorf("attempts = %d, want 1 for a rejection", n)
	}
}

func TestDriver_RetriesThenDelivers(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	req, resolved := wireRequest("[]", "k")
	runOne(t, testDriver(srv.URL, 5), req)

	if d := <-resolved; d != domain.DispositionDelivered {
		t.Errorf("disposition = %v, want delivered", d)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestDriver_AttemptsExhausted(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	req, resolved := wireRequest("[]", "k")
	runOne(t, testDriver(srv.URL, 3), req)

	if d := <-resolved; d != domain.DispositionErrored {
		t.Errorf("disposition = %v, want errored", d)
	}
	if n := atomic.LoadInt32(&calls); n != 3 {
		t.Errorf("attempts = %d, want 3", n)
	}
}

func TestDriver_CancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDriver(Config{
		Endpoint:       srv.URL,
		Workers:        1,
		MaxAttempts:    10,
		BackoffInitial: time.Hour,
		BackoffMax:     time.Hour,
	}, http.DefaultClient, log.NewNoopLogger())

	req, resolved := wireRequest("[]", "k")
	requests := make(chan *domain.WireRequest, 1)
	requests <- req
	close(requests)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, requests) }()

	// Let the first attempt fail and the worker enter backoff.
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop on cancellation")
	}
	select {
	case disp := <-resolved:
		if disp != domain.DispositionErrored {
			t.Errorf("disposition = %v, want errored", disp)
		}
	default:
		t.Error("finalizer not resolved on cancellation")
	}
}

func TestDriver_WorkerPoolDrains(t *testing.T) {
	var mu sync.Mutex
	received := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		received++
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDriver(Config{Endpoint: srv.URL, Workers: 3, MaxAttempts: 1}, http.DefaultClient, log.NewNoopLogger())

	requests := make(chan *domain.WireRequest, 10)
	resolvedChans := make([]<-chan domain.Disposition, 0, 10)
	for i := 0; i < 10; i++ {
		req, resolved := wireRequest("[]", "k")
		requests <- req
		resolvedChans = append(resolvedChans, resolved)
	}
	close(requests)

	if err := d.Run(context.Background(), requests); err != nil {
		t.Fatal(err)
	}

	mu.Lock()
	if received != 10 {
		t.Errorf("received = %d, want 10", received)
	}
	mu.Unlock()
	for i, resolved := range resolvedChans {
		select {
		case disp := <-resolved:
			if disp != domain.DispositionDelivered {
				t.Errorf("request %d disposition = %v, want delivered", i, disp)
			}
		default:
			t.Errorf("request %d not resolved", i)
		}
	}
}

// captureLogger records info-level output so tests can assert on the
// driver's summary reporting.
type captureLogger struct {
	mu     sync.Mutex
	infos  []string
	fields map[string]any
}

func (c *captureLogger) Debug(msg string, fields ...log.Field) {}
func (c *captureLogger) Warn(msg string, fields ...log.Field)  {}
func (c *captureLogger) Error(msg string, fields ...log.Field) {}

func (c *captureLogger) Info(msg string, fields ...log.Field) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.infos = append(c.infos, msg)
	if c.fields == nil {
		c.fields = map[string]any{}
	}
	for _, f := range fields {
		c.fields[f.Key] = f.Value
	}
}

func TestDriver_ReportsDeliveredTotals(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	logger := &captureLogger{}
	d := NewDriver(Config{Endpoint: srv.URL, Workers: 2, MaxAttempts: 1}, http.DefaultClient, logger)

	requests := make(chan *domain.WireRequest, 3)
	for i := 0; i < 3; i++ {
		req, _ := wireRequest("[]", "k")
		req.ByteSize = domain.CountByteSize{Events: 2, Bytes: 40, EstimatedBytes: 38}
		requests <- req
	}
	close(requests)

	if err := d.Run(context.Background(), requests); err != nil {
		t.Fatal(err)
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()
	found := false
	for _, msg := range logger.infos {
		if msg == "dispatch finished" {
			found = true
		}
	}
	if !found {
		t.Fatalf("no summary logged, got %v", logger.infos)
	}
	if got := logger.fields["delivered_events"]; got != 6 {
		t.Errorf("delivered_events = %v, want 6", got)
	}
	if got := logger.fields["delivered_bytes"]; got != 120 {
		t.Errorf("delivered_bytes = %v, want 120", got)
	}
}

func TestDriver_BackoffResetsAfterDelivery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := testDriver(srv.URL, 3)

	// Grow the worker's backoff as consecutive failures would.
	back := newBackoff(time.Millisecond, time.Second)
	if err := back.Sleep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if back.current == time.Millisecond {
		t.Fatal("backoff did not grow")
	}

	req, resolved := wireRequest("[]", "k")
	if !d.dispatch(context.Background(), req, back) {
		t.Fatal("dispatch did not deliver")
	}
	if disp := <-resolved; disp != domain.DispositionDelivered {
		t.Fatalf("disposition = %v, want delivered", disp)
	}
	if back.current != time.Millisecond {
		t.Errorf("backoff = %v after delivery, want reset to initial", back.current)
	}
}

func TestNewDriver_Defaults(t *testing.T) {
	d := NewDriver(Config{Endpoint: "http://localhost"}, http.DefaultClient, log.NewNoopLogger())
	if d.cfg.Workers != DefaultWorkers {
		t.Errorf("workers = %d, want %d", d.cfg.Workers, DefaultWorkers)
	}
	if d.cfg.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("attempts = %d, want %d", d.cfg.MaxAttempts, DefaultMaxAttempts)
	}
	if d.cfg.KeyHeader != DefaultKeyHeader {
		t.Errorf("key header = %q, want %q", d.cfg.KeyHeader, DefaultKeyHeader)
	}
	if d.cfg.BackoffInitial != DefaultBackoffInitial || d.cfg.BackoffMax != DefaultBackoffMax {
		t.Errorf("backoff = %v/%v, want defaults", d.cfg.BackoffInitial, d.cfg.BackoffMax)
	}
}
