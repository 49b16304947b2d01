package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/run-bigpig/chatmod/pkg/logging"
)

// OTelTracer implements tracing using OpenTelemetry
type OTelTracer struct {
	tracer   trace.Tracer
	enabled  bool
	shutdown func(context.Context) error
}

// OTelConfig contains configuration for OpenTelemetry
type OTelConfig struct {
	// Enabled determines whether OpenTelemetry tracing is enabled
	Enabled bool

	// ServiceName is the name of the service
	ServiceName string

	// CollectorEndpoint is the endpoint of the OpenTelemetry collector
	CollectorEndpoint string
}

// NewOTelTracer creates a new OpenTelemetry tracer exporting over OTLP/gRPC
func NewOTelTracer(config OTelConfig) (*OTelTracer, error) {
	if !config.Enabled {
		return &OTelTracer{enabled: false}, nil
	}

	ctx := context.Background()
	exporter, err := otlptrace.New(
		ctx,
		otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(config.CollectorEndpoint),
			otlptracegrpc.WithInsecure(),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	t := NewOTelTracerFromProvider(tp, config.ServiceName)
	t.shutdown = tp.Shutdown
	return t, nil
}

// NewOTelTracerFromProvider creates an enabled tracer on an existing provider
func NewOTelTracerFromProvider(tp trace.TracerProvider, name string) *OTelTracer {
	return &OTelTracer{
		tracer:  tp.Tracer(name),
		enabled: true,
	}
}

// Enabled reports whether spans are recorded
func (t *OTelTracer) Enabled() bool {
	return t.enabled
}

// StartSpan starts a new span
func (t *OTelTracer) StartSpan(ctx context.Context, name string, attributes map[string]string) (context.Context, trace.Span) {
	if !t.enabled {
		return ctx, trace.SpanFromContext(ctx)
	}

	attrs := make([]attribute.KeyValue, 0, len(attributes)+1)
	for k, v := range attributes {
		attrs = append(attrs, attribute.String(k, v))
	}

	if turnID, ok := logging.TurnID(ctx); ok {
		attrs = append(attrs, attribute.String("turn_id", turnID))
	}

	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan ends a span
func (t *OTelTracer) EndSpan(span trace.Span, err error) {
	if !t.enabled {
		return
	}

	if err != nil {
		span.RecordError(err)
	}
	span.End()
}

// Shutdown flushes and stops the exporter, if this tracer owns one
func (t *OTelTracer) Shutdown(ctx context.Context) error {
	if t.shutdown == nil {
		return nil
	}
	return t.shutdown(ctx)
}
