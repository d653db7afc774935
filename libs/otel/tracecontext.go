package otelx

import (
	"context"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StoredTrace is a span context flattened to its W3C header values, so it can
// sit in a table row and be restored by whichever worker picks the row up.
type StoredTrace struct {
	Parent string
	State  string
}

// Rows always hold W3C values, whatever global propagator is installed.
var w3c = propagation.TraceContext{}

// CaptureTrace reads the span context of ctx. The result is zero when ctx
// carries no valid span.
func CaptureTrace(ctx context.Context) StoredTrace {
	if !trace.SpanContextFromContext(ctx).IsValid() {
		return StoredTrace{}
	}
	carrier := propagation.MapCarrier{}
	w3c.Inject(ctx, carrier)
	return StoredTrace{Parent: carrier.Get("traceparent"), State: carrier.Get("tracestate")}
}

// Context returns ctx with the stored span as remote parent. A zero or
// malformed value leaves ctx unchanged.
func (s StoredTrace) Context(ctx context.Context) context.Context {
	if s.Parent == "" {
		return ctx
	}
	return w3c.Extract(ctx, propagation.MapCarrier{"traceparent": s.Parent, "tracestate": s.State})
}
