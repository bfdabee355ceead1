// Package telemetry threads structured logging, metrics, and tracing through
// every Brain component behind small interfaces so tests can substitute
// lightweight stubs and production wires Clue/OpenTelemetry.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging used throughout the Brain.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter, timer, and gauge helpers for instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so Brain code stays agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
	Span(ctx context.Context) Span
}

// Span represents an in-flight tracing span.
type Span interface {
	End(opts ...trace.SpanEndOption)
	AddEvent(name string, attrs ...any)
	SetStatus(code codes.Code, description string)
	RecordError(err error, opts ...trace.EventOption)
}

// Set bundles a Logger, Metrics recorder, and Tracer so components can take a
// single dependency instead of three. Nil fields are filled with noop
// implementations by NewSet.
type Set struct {
	Log     Logger
	Metrics Metrics
	Tracer  Tracer
}

// NewSet fills any nil field with a noop implementation, mirroring the
// teacher runtime's pattern of always providing usable defaults.
func NewSet(log Logger, metrics Metrics, tracer Tracer) Set {
	if log == nil {
		log = NewNoopLogger()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	return Set{Log: log, Metrics: metrics, Tracer: tracer}
}
