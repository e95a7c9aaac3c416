package observability

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracegrpc "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// initTracer installs the global tracer provider. With telemetry disabled it
// still registers a never-sampling provider so instrumented code paths stay
// cheap no-ops instead of nil checks.
func initTracer(ctx context.Context, cfg *Config) (*sdktrace.TracerProvider, error) {
	var tp *sdktrace.TracerProvider

	if cfg.Enabled {
		exporter, err := newTraceExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("observability: create trace exporter: %w", err)
		}
		res, err := buildResource(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("observability: build resource: %w", err)
		}
		tp = sdktrace.NewTracerProvider(
			sdktrace.WithSampler(resolveSampler(cfg)),
			sdktrace.WithResource(res),
			sdktrace.WithBatcher(exporter),
		)
	} else {
		tp = sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.NeverSample()))
	}

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

func newTraceExporter(ctx context.Context, cfg *Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterProtocol {
	case protocolHTTP:
		endpoint, err := endpointWithSignalPath(cfg.ExporterEndpoint, "/v1/traces")
		if err != nil {
			return nil, err
		}
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
		if strings.HasPrefix(endpoint, "http://") {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case protocolGRPC:
		host, insecure, err := splitGRPCEndpoint(cfg.ExporterEndpoint)
		if err != nil {
			return nil, err
		}
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(host)}
		if insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter protocol %q", cfg.ExporterProtocol)
	}
}

// splitGRPCEndpoint reduces a configured gRPC endpoint to host:port and
// reports whether the connection should skip TLS. A bare host:port with no
// scheme is treated as insecure, matching the collector's default setup.
func splitGRPCEndpoint(raw string) (string, bool, error) {
	endpoint := strings.TrimSpace(raw)
	if endpoint == "" {
		return "", false, fmt.Errorf("endpoint cannot be empty")
	}
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	if parsed.Host == "" {
		return "", false, fmt.Errorf("endpoint must include host")
	}
	switch parsed.Scheme {
	case "http", "grpc":
		return parsed.Host, true, nil
	case "https", "grpcs":
		return parsed.Host, false, nil
	default:
		return "", false, fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
}

func resolveSampler(cfg *Config) sdktrace.Sampler {
	switch strings.ToLower(strings.TrimSpace(cfg.TracesSampler)) {
	case "always_off":
		return sdktrace.NeverSample()
	case "traceidratio":
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.TracesSamplerArg))
	case "parentbased_always_on":
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	default:
		return sdktrace.AlwaysSample()
	}
}

func buildResource(ctx context.Context, cfg *Config) (*resource.Resource, error) {
	attrs := []attribute.KeyValue{
		attribute.String(resourceServiceNameKey, cfg.ServiceName),
	}
	for key, value := range cfg.ResourceAttributes {
		if strings.EqualFold(key, resourceServiceNameKey) {
			continue
		}
		attrs = append(attrs, attribute.String(key, value))
	}

	return resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithProcess(),
		resource.WithOS(),
		resource.WithContainer(),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
		resource.WithAttributes(attrs...),
	)
}
