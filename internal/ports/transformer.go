package ports

import "github.com/bft-labs/eventship/internal/domain"

// Transformer rewrites an event's payload fields before size estimation and
// serialization. Transforms run synchronously, once per event, and must not
// touch the event's finalizers or routing key.
type Transformer interface {
	Transform(e *domain.Event)
}

// TransformerFunc adapts a function to the Transformer interface.
type TransformerFunc func(e *domain.Event)

// Transform calls f(e).
func (f TransformerFunc) Transform(e *domain.Event) {
	f(e)
}

// ChainTransformers composes transformers, applied in order.
func ChainTransformers(ts ...Transformer) Transformer {
	return TransformerFunc(func(e *domain.Event) {
		for _, t := range ts {
			t.Transform(e)
		}
	})
}
