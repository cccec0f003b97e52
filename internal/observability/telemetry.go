// Package observability defines the Logger, Metrics, and Tracer interfaces
// the rest of Git-Iris depends on, mirroring the teacher's runtime/agent/telemetry
// package: Noop implementations for tests and minimal embeddings, and real
// implementations backed by zap (in place of the teacher's clue-backed
// logger, which depends on goa.design/clue) and OpenTelemetry metrics/traces
// (kept as-is — clue's Metrics/Tracer were themselves thin OTEL wrappers).
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Logger is the structured logging surface used throughout the runtime.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, msg string, fields ...any)
	Error(ctx context.Context, msg string, fields ...any)
}

// Metrics is the counters/timers/gauges surface.
type Metrics interface {
	IncCounter(name string, tags ...string)
	RecordTimer(name string, ms float64, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Span is one traced unit of work.
type Span interface {
	End()
	AddEvent(name string, attrs ...attribute.KeyValue)
	SetStatus(err error)
	RecordError(err error)
}

// Tracer starts spans.
type Tracer interface {
	Start(ctx context.Context, name string) (context.Context, Span)
}

// --- Noop implementations -------------------------------------------------

// NoopLogger discards every call. Used as the default when no Logger is
// configured, and in tests that don't care about log output.
type NoopLogger struct{}

func (NoopLogger) Debug(context.Context, string, ...any) {}
func (NoopLogger) Info(context.Context, string, ...any)  {}
func (NoopLogger) Warn(context.Context, string, ...any)  {}
func (NoopLogger) Error(context.Context, string, ...any) {}

// NoopMetrics discards every call.
type NoopMetrics struct{}

func (NoopMetrics) IncCounter(string, ...string)          {}
func (NoopMetrics) RecordTimer(string, float64, ...string) {}
func (NoopMetrics) RecordGauge(string, float64, ...string) {}

// NoopTracer returns a span that does nothing.
type NoopTracer struct{}

type noopSpan struct{}

func (noopSpan) End()                                  {}
func (noopSpan) AddEvent(string, ...attribute.KeyValue) {}
func (noopSpan) SetStatus(error)                        {}
func (noopSpan) RecordError(error)                      {}

func (NoopTracer) Start(ctx context.Context, _ string) (context.Context, Span) {
	return ctx, noopSpan{}
}

// --- zap-backed Logger -----------------------------------------------------

// ZapLogger adapts a *zap.Logger to the Logger interface.
type ZapLogger struct {
	z *zap.Logger
}

// NewZapLogger wraps z. A nil z falls back to zap.NewNop().
func NewZapLogger(z *zap.Logger) *ZapLogger {
	if z == nil {
		z = zap.NewNop()
	}
	return &ZapLogger{z: z}
}

func toZapFields(fields []any) []zap.Field {
	out := make([]zap.Field, 0, len(fields)/2)
	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok {
			continue
		}
		out = append(out, zap.Any(key, fields[i+1]))
	}
	return out
}

func (l *ZapLogger) Debug(_ context.Context, msg string, fields ...any) {
	l.z.Debug(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Info(_ context.Context, msg string, fields ...any) {
	l.z.Info(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Warn(_ context.Context, msg string, fields ...any) {
	l.z.Warn(msg, toZapFields(fields)...)
}

func (l *ZapLogger) Error(_ context.Context, msg string, fields ...any) {
	l.z.Error(msg, toZapFields(fields)...)
}

// --- OpenTelemetry-backed Metrics -------------------------------------------

// OtelMetrics records counters/timers/gauges through an OTEL meter.
type OtelMetrics struct {
	meter    metric.Meter
	counters map[string]metric.Float64Counter
	timers   map[string]metric.Float64Histogram
	gauges   map[string]metric.Float64Gauge
}

// NewOtelMetrics builds an OtelMetrics instance using the global meter
// provider under the given instrumentation name.
func NewOtelMetrics(instrumentationName string) *OtelMetrics {
	return &OtelMetrics{
		meter:    otel.Meter(instrumentationName),
		counters: map[string]metric.Float64Counter{},
		timers:   map[string]metric.Float64Histogram{},
		gauges:   map[string]metric.Float64Gauge{},
	}
}

func attrsFromTags(tags []string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(tags)/2)
	for i := 0; i+1 < len(tags); i += 2 {
		attrs = append(attrs, attribute.String(tags[i], tags[i+1]))
	}
	return attrs
}

func (m *OtelMetrics) IncCounter(name string, tags ...string) {
	c, ok := m.counters[name]
	if !ok {
		var err error
		c, err = m.meter.Float64Counter(name)
		if err != nil {
			return
		}
		m.counters[name] = c
	}
	c.Add(context.Background(), 1, metric.WithAttributes(attrsFromTags(tags)...))
}

func (m *OtelMetrics) RecordTimer(name string, ms float64, tags ...string) {
	h, ok := m.timers[name]
	if !ok {
		var err error
		h, err = m.meter.Float64Histogram(name)
		if err != nil {
			return
		}
		m.timers[name] = h
	}
	h.Record(context.Background(), ms, metric.WithAttributes(attrsFromTags(tags)...))
}

func (m *OtelMetrics) RecordGauge(name string, value float64, tags ...string) {
	g, ok := m.gauges[name]
	if !ok {
		var err error
		g, err = m.meter.Float64Gauge(name)
		if err != nil {
			return
		}
		m.gauges[name] = g
	}
	g.Record(context.Background(), value, metric.WithAttributes(attrsFromTags(tags)...))
}

// --- OpenTelemetry-backed Tracer ---------------------------------------------

// OtelTracer starts spans through an OTEL tracer.
type OtelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer builds an OtelTracer using the global tracer provider under
// the given instrumentation name.
func NewOtelTracer(instrumentationName string) *OtelTracer {
	return &OtelTracer{tracer: otel.Tracer(instrumentationName)}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End() { s.span.End() }

func (s otelSpan) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

func (s otelSpan) SetStatus(err error) {
	if err != nil {
		s.span.SetStatus(codes.Error, err.Error())
		return
	}
	s.span.SetStatus(codes.Ok, "")
}

func (s otelSpan) RecordError(err error) {
	s.span.RecordError(err)
}

func (t *OtelTracer) Start(ctx context.Context, name string) (context.Context, Span) {
	spanCtx, span := t.tracer.Start(ctx, name)
	return spanCtx, otelSpan{span: span}
}
