package encode

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/bft-labs/eventship/internal/domain"
)

// eventWithEncodedSize builds an event whose JSON encoding is exactly n
// bytes: {"message":"..."} is 14 bytes of framing around the message.
func eventWithEncodedSize(t *testing.T, n int) *domain.Event {
	t.Helper()
	if n < 14 {
		t.Fatalf("cannot build %d-byte event", n)
	}
	ev := domain.NewEvent(map[string]any{"message": strings.Repeat("x", n-14)})

	enc, err := json.Marshal(ev.Fields)
	if err != nil {
		t.Fatal(err)
	}
	if len(enc) != n {
		t.Fatalf("encoded size = %d, want %d", len(enc), n)
	}
	return ev
}

func queueOf(events ...*domain.Event) *Queue {
	q := NewQueue(len(events))
	for _, ev := range events {
		q.PushBack(QueuedEvent{Event: ev, EstimatedSize: EstimatedEventSize(ev)})
	}
	return q
}

func TestSerializeWithCapacity_AllFit(t *testing.T) {
	q := queueOf(
		domain.NewEvent(map[string]any{"message": "one"}),
		domain.NewEvent(map[string]any{"message": "two"}),
	)

	serialized, buf, byteSize, err := SerializeWithCapacity(q, 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	if len(serialized) != 2 {
		t.Fatalf("serialized = %d events, want 2", len(serialized))
	}
	if !q.Empty() {
		t.Errorf("queue left = %d, want 0", q.Len())
	}
	if byteSize.Events != 2 {
		t.Errorf("accumulator events = %d, want 2", byteSize.Events)
	}

	// The buffer must be a valid JSON array preserving admission order.
	var decoded []map[string]any
	if err := json.Unmarshal(buf, &decoded); err != nil {
		t.Fatalf("invalid container: %v", err)
	}
	if decoded[0]["message"] != "one" || decoded[1]["message"] != "two" {
		t.Errorf("order not preserved: %v", decoded)
	}
}

// Three 40-byte events against a 100-byte cap: the first two fit (82 bytes
// with bracket and comma), the third stays queued for the next pass.
func TestSerializeWithCapacity_GreedyCutoff(t *testing.T) {
	q := queueOf(
		eventWithEncodedSize(t, 40),
		eventWithEncodedSize(t, 40),
		eventWithEncodedSize(t, 40),
	)

	serialized, buf, byteSize, err := SerializeWithCapacity(q, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(serialized) != 2 {
		t.Fatalf("serialized = %d events, want 2", len(serialized))
	}
	if q.Len() != 1 {
		t.Fatalf("queue left = %d, want 1", q.Len())
	}
	// '[' + 40 + ',' + 40 + ']' = 83 bytes, under the cap.
	if len(buf) != 83 {
		t.Errorf("buffer = %d bytes, want 83", len(buf))
	}
	if len(buf) >= 100 {
		t.Errorf("buffer = %d bytes, cap breached", len(buf))
	}
	if byteSize.Bytes != 80 {
		t.Errorf("exact bytes = %d, want 80", byteSize.Bytes)
	}
	if !bytes.HasPrefix(buf, []byte("[")) || !bytes.HasSuffix(buf, []byte("]")) {
		t.Errorf("container not delimited: %q", buf)
	}
}

// An event whose encoding alone exceeds the cap yields an empty pass with
// the event back at the head. The serializer reports it; dropping is the
// caller's call.
func TestSerializeWithCapacity_NothingFits(t *testing.T) {
	big := eventWithEncodedSize(t, 150)
	q := queueOf(big, eventWithEncodedSize(t, 40))

	serialized, buf, _, err := SerializeWithCapacity(q, 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(serialized) != 0 {
		t.Fatalf("serialized = %d events, want 0", len(serialized))
	}
	if q.Len() != 2 {
		t.Fatalf("queue left = %d, want 2", q.Len())
	}
	if head := q.PopFront(); head.Event != big {
		t.Error("oversize event not back at the head")
	}
	if string(buf) != "[]" {
		t.Errorf("buffer = %q, want empty container", buf)
	}
}

func TestSerializeWithCapacity_MarshalError(t *testing.T) {
	bad := domain.NewEvent(map[string]any{"ch": make(chan int)})
	q := queueOf(domain.NewEvent(map[string]any{"ok": true}))
	q.PushBack(QueuedEvent{Event: bad, EstimatedSize: 8})

	_, _, _, err := SerializeWithCapacity(q, 1<<20)
	if err == nil {
		t.Fatal("expected error for unserializable payload")
	}
	if !errors.Is(err, domain.ErrSerialize) {
		t.Errorf("error = %v, want ErrSerialize", err)
	}
	// The failing event stays queued so the caller can account for it.
	if q.Len() != 1 {
		t.Errorf("queue left = %d, want 1", q.Len())
	}
}

func TestQueue_FIFO(t *testing.T) {
	a := domain.NewEvent(map[string]any{"n": 1})
	b := domain.NewEvent(map[string]any{"n": 2})
	c := domain.NewEvent(map[string]any{"n": 3})

	q := NewQueue(3)
	q.PushBack(QueuedEvent{Event: a})
	q.PushBack(QueuedEvent{Event: b})

	if got := q.PopFront(); got.Event != a {
		t.Error("PopFront returned wrong event")
	}
	q.PushFront(QueuedEvent{Event: c})
	if got := q.PopFront(); got.Event != c {
		t.Error("PushFront did not place event at head")
	}
	if got := q.PopFront(); got.Event != b {
		t.Error("order lost after PushFront")
	}
	if !q.Empty() {
		t.Error("queue should be empty")
	}
}
