// Package telemetry defines the logging, metrics, and tracing interfaces
// used throughout the loader/registry core, plus no-op and Clue/OTEL-backed
// implementations.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Logger captures structured logging. Implementations typically delegate
// to Clue but the interface is intentionally small so tests can supply
// lightweight stubs.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter and histogram helpers for loader/registry
// instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so core code stays agnostic of the
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

// Observability bundles the three signals so a loader registry can pass
// one value around instead of three.
type Observability struct {
	Logger  Logger
	Metrics Metrics
	Tracer  Tracer
}

// NewObservability fills unset fields with no-op implementations.
func NewObservability(logger Logger, metrics Metrics, tracer Tracer) *Observability {
	if logger == nil {
		logger = NewNoopLogger()
	}
	if metrics == nil {
		metrics = NewNoopMetrics()
	}
	if tracer == nil {
		tracer = NewNoopTracer()
	}
	return &Observability{Logger: logger, Metrics: metrics, Tracer: tracer}
}
