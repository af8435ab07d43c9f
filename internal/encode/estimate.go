package encode

import (
	"time"

	"github.com/bft-labs/eventship/internal/domain"
)

// Rough per-value costs for types whose JSON length is not knowable without
// encoding. Estimates only steer batch closing; the serializer enforces the
// real cap.
const (
	estimatedNumberSize  = 12
	estimatedTimeSize    = 32
	estimatedUnknownSize = 16
	estimatedNullSize    = 4
)

// EstimatedEventSize returns the approximate JSON-encoded length of an
// event's payload. It walks the value tree without serializing anything.
func EstimatedEventSize(e *domain.Event) int {
	return EstimatedSize(e.Fields)
}

// EstimatedSize returns the approximate JSON-encoded length of a value.
func EstimatedSize(v any) int {
	switch val := v.(type) {
	case nil:
		return estimatedNullSize
	case string:
		return len(val) + 2
	case []byte:
		// Encoded as base64, roughly 4/3 of the raw length.
		return len(val)*4/3 + 2
	case bool:
		if val {
			return 4
		}
		return 5
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return estimatedNumberSize
	case time.Time:
		return estimatedTimeSize
	case map[string]any:
		// Braces plus per-entry quotes, colon, and comma.
		n := 2
		for k, item := range val {
			n += len(k) + 4 + EstimatedSize(item)
		}
		return n
	case []any:
		n := 2
		for _, item := range val {
			n += EstimatedSize(item) + 1
		}
		return n
	default:
		return estimatedUnknownSize
	}
}
