// Package telemetry installs the OpenTelemetry tracer provider that receives the spans of
// the runtime and transport packages.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// shutdownTimeout bounds the final flush of buffered spans.
const shutdownTimeout = 6 * time.Second

type TracerOption func(d *customTracer)

func WithOTLPEndpoint(endpoint string) TracerOption {
	return func(d *customTracer) {
		d.endpoint = endpoint
	}
}

func WithOTLPInsecure() TracerOption {
	return func(d *customTracer) {
		d.insecure = true
	}
}

func WithAttributes(attributes ...attribute.KeyValue) TracerOption {
	return func(d *customTracer) {
		d.attributes = attributes
	}
}

func WithSamplingRatio(samplingRatio float64) TracerOption {
	return func(d *customTracer) {
		d.samplingRatio = samplingRatio
	}
}

type customTracer struct {
	endpoint   string
	insecure   bool
	attributes []attribute.KeyValue

	samplingRatio float64
}

// NewTracerProvider builds a provider exporting spans over OTLP/gRPC and installs it, with
// the W3C trace context propagator, as the global provider.
func NewTracerProvider(opts ...TracerOption) (*sdktrace.TracerProvider, error) {
	tracer := &customTracer{}
	for _, opt := range opts {
		opt(tracer)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(tracer.attributes...),
	)
	if err != nil {
		return nil, err
	}

	exporterOptions := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(tracer.endpoint),
	}
	if tracer.insecure {
		exporterOptions = append(exporterOptions, otlptracegrpc.WithInsecure())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	exp, err := otlptracegrpc.New(ctx, exporterOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to establish a connection with the otlp exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(tracer.samplingRatio)),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(sdktrace.NewBatchSpanProcessor(exp)),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))

	otel.SetTracerProvider(tp)

	return tp, nil
}

// MustNewTracerProvider is like NewTracerProvider but panics on error.
func MustNewTracerProvider(opts ...TracerOption) *sdktrace.TracerProvider {
	tp, err := NewTracerProvider(opts...)
	if err != nil {
		panic(err)
	}
	return tp
}

// Shutdown flushes the buffered spans of tp and stops it.
func Shutdown(tp *sdktrace.TracerProvider) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return errors.Join(tp.ForceFlush(ctx), tp.Shutdown(ctx))
}

// DisableTracing installs a provider that drops every span.
func DisableTracing() {
	otel.SetTracerProvider(noop.NewTracerProvider())
}

func TraceError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
