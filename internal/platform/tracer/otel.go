package tracer

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "kycgate"

// OTelTracer adapts an OpenTelemetry tracer to Tracer.
type OTelTracer struct {
	tracer trace.Tracer
}

type OTelOption func(*OTelTracer)

// WithOTelTracer replaces the tracer taken from the global provider.
func WithOTelTracer(t trace.Tracer) OTelOption {
	return func(o *OTelTracer) { o.tracer = t }
}

// NewOTel traces through the globally registered provider unless an explicit
// tracer is supplied.
func NewOTel(opts ...OTelOption) *OTelTracer {
	t := &OTelTracer{tracer: otel.Tracer(instrumentationName)}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewNoop is the services' default: spans are created and dropped.
func NewNoop() *OTelTracer {
	return NewOTel(WithOTelTracer(tracenoop.NewTracerProvider().Tracer(instrumentationName)))
}

func (t *OTelTracer) Start(ctx context.Context, name string, attrs ...Attribute) (context.Context, Span) {
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(convert(attrs)...))
	return ctx, otelSpan{span}
}

type otelSpan struct {
	span trace.Span
}

func (s otelSpan) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}
	s.span.End()
}

func (s otelSpan) SetAttributes(attrs ...Attribute) {
	s.span.SetAttributes(convert(attrs)...)
}

func (s otelSpan) AddEvent(name string, attrs ...Attribute) {
	s.span.AddEvent(name, trace.WithAttributes(convert(attrs)...))
}

// convert drops attributes whose value type OpenTelemetry cannot carry.
func convert(attrs []Attribute) []attribute.KeyValue {
	if len(attrs) == 0 {
		return nil
	}
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, a := range attrs {
		switch v := a.Value.(type) {
		case string:
			out = append(out, attribute.String(a.Key, v))
		case bool:
			out = append(out, attribute.Bool(a.Key, v))
		case int:
			out = append(out, attribute.Int(a.Key, v))
		case int64:
			out = append(out, attribute.Int64(a.Key, v))
		}
	}
	return out
}

var _ Tracer = (*OTelTracer)(nil)
