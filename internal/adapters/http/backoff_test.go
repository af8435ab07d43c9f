package http

import (
	"context"
	"testing"
	"time"
)

func TestBackoff_DoublesUpToMax(t *testing.T) {
	b := newBackoff(time.Millisecond, 4*time.Millisecond)
	ctx := context.Background()

	wants := []time.Duration{
		2 * time.Millisecond,
		4 * time.Millisecond,
		4 * time.Millisecond, // capped
	}
	for i, want := range wants {
		if err := b.Sleep(ctx); err != nil {
			t.Fatal(err)
		}
		if b.current != want {
			t.Errorf("after sleep %d: current = %v, want %v", i+1, b.current, want)
		}
	}
}

func TestBackoff_Reset(t *testing.T) {
	b := newBackoff(time.Millisecond, time.Second)
	if err := b.Sleep(context.Background()); err != nil {
		t.Fatal(err)
	}
	b.Reset()
	if b.current != time.Millisecond {
		t.Errorf("current = %v, want initial", b.current)
	}
}

func TestBackoff_CanceledContext(t *testing.T) {
	b := newBackoff(time.Hour, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if err := b.Sleep(ctx); err != context.Canceled {
		t.Errorf("Sleep() = %v, want context.Canceled", err)
	}
	if time.Since(start) > time.Second {
		t.Error("Sleep did not return promptly on canceled context")
	}
}
