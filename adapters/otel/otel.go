// Package otel bridges OpenTelemetry context propagation to bus headers.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	cbus "github.com/next-trace/scg-contracts/contract/bus"
)

// Propagator injects W3C trace context (traceparent, tracestate) and baggage into headers.
type Propagator struct {
	p propagation.TextMapPropagator
}

var _ cbus.HeaderPropagator = Propagator{}

// New returns a Propagator using W3C TraceContext and Baggage.
func New() Propagator {
	return Propagator{p: propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	)}
}

// NewWith wraps an arbitrary TextMapPropagator, such as otel.GetTextMapPropagator().
func NewWith(p propagation.TextMapPropagator) Propagator { return Propagator{p: p} }

func (p Propagator) Inject(ctx context.Context, headers map[string]string) {
	if p.p == nil || headers == nil {
		return
	}

	p.p.Inject(ctx, propagation.MapCarrier(headers))
}

// Extract returns ctx carrying the remote span context found in headers.
func (p Propagator) Extract(ctx context.Context, headers map[string]string) context.Context {
	if p.p == nil {
		return ctx
	}

	return p.p.Extract(ctx, propagation.MapCarrier(headers))
}

// TraceIDs returns the hex trace and span IDs of the span in ctx, or empty strings.
func TraceIDs(ctx context.Context) (traceID, spanID string) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return "", ""
	}

	return sc.TraceID().String(), sc.SpanID().String()
}
