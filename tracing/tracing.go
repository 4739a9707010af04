package tracing

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const serviceName = "impulse"

// TracerConfig represents the tracer configuration.
type TracerConfig struct {
	// Enabled exports spans when set, otherwise spans are no-ops.
	Enabled bool
	// Writer is where spans are exported to, stdout by default.
	Writer io.Writer
	// Version is the reported service version.
	Version string
}

// Tracer starts spans for service operations.
type Tracer struct {
	cfg      *TracerConfig
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewTracer initializes a tracer. A disabled tracer starts no-op spans.
func NewTracer(cfg *TracerConfig) (*Tracer, error) {
	if !cfg.Enabled {
		return &Tracer{
			cfg:    cfg,
			tracer: noop.NewTracerProvider().Tracer(serviceName),
		}, nil
	}

	if cfg.Writer == nil {
		cfg.Writer = os.Stdout
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(cfg.Writer))
	if err != nil {
		return nil, fmt.Errorf("creating span exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating trace resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return &Tracer{
		cfg:      cfg,
		provider: provider,
		tracer:   provider.Tracer(serviceName),
	}, nil
}

// Start starts a span with the provided name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Enabled returns whether spans are exported.
func (t *Tracer) Enabled() bool {
	return t.provider != nil
}

// Shutdown flushes pending spans and stops the exporter.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}

	return t.provider.Shutdown(ctx)
}

// TraceFields returns the trace and span ids of the span in the provided context.
func TraceFields(ctx context.Context) (string, string, bool) {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return "", "", false
	}

	return span.SpanContext().TraceID().String(), span.SpanContext().SpanID().String(), true
}
