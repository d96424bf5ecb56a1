package bus

import "context"

// HeaderPropagator abstracts injecting tracing context into headers.
// Implementations may bridge to OpenTelemetry or any other propagation standard.
// This keeps adapters decoupled from concrete tracing libraries (code-to-interface).
// Implementors should mutate the provided headers map by inserting keys that
// carry the context across process boundaries. Implementations must be safe for concurrent use.
type HeaderPropagator interface {
	Inject(ctx context.Context, headers map[string]string)
}

// NopHeaderPropagator is a no-op implementation useful for tests or when tracing is disabled.
type NopHeaderPropagator struct{}

func (NopHeaderPropagator) Inject(ctx context.Context, headers map[string]string) {
	_ = ctx
	_ = headers
}

// Inject runs p over headers when p is non-nil.
func Inject(ctx context.Context, p HeaderPropagator, headers map[string]string) {
	if p == nil || ctx == nil {
		return
	}

	p.Inject(ctx, headers)
}
