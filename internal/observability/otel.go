// Package observability configures OpenTelemetry tracing for the gateway.
// Traces are exported over OTLP gRPC; propagation uses W3C trace context
// plus baggage so correlation survives hops through proxies and webhooks.
package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"google.golang.org/grpc/credentials"

	"github.com/noventa/go-user-gateway/internal/config"
)

// Tests swap these out to avoid dialing a collector.
var (
	otlpClientFn = otlptracegrpc.NewClient

	traceExporterFn = func(ctx context.Context, client otlptrace.Client) (*otlptrace.Exporter, error) {
		return otlptrace.New(ctx, client)
	}

	gatewayResourceFn = func(ctx context.Context, serviceName, version string) (*resource.Resource, error) {
		return resource.New(ctx, resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		))
	}
)

// clientOptions translates cfg into gRPC client options. An insecure
// endpoint is only meant for local collectors; anything else gets the
// system TLS roots.
func clientOptions(cfg config.OTELConfig) []otlptracegrpc.Option {
	opts := []otlptracegrpc.Option{
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
	}
	if cfg.Insecure {
		return append(opts, otlptracegrpc.WithInsecure())
	}
	creds := credentials.NewClientTLSFromCert(nil, "")
	return append(opts, otlptracegrpc.WithTLSCredentials(creds))
}

// Setup installs the global tracer provider and propagators from cfg and
// returns a shutdown function. When tracing is disabled the returned shutdown
// is a no-op and globals are left untouched.
func Setup(ctx context.Context, cfg config.OTELConfig, version string) (func(context.Context) error, error) {
	if !cfg.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	client := otlpClientFn(clientOptions(cfg)...)
	exp, err := traceExporterFn(ctx, client)
	if err != nil {
		return nil, err
	}

	res, err := gatewayResourceFn(ctx, cfg.ServiceName, version)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))

	return tp.Shutdown, nil
}
