package observability

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	otlpmetricgrpc "go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otlpmetrichttp "go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// initMeter installs the global meter provider. Disabled telemetry gets a
// provider with no readers, so counters registered by the search and MCP
// surfaces keep working without exporting anything.
func initMeter(ctx context.Context, cfg *Config) (*sdkmetric.MeterProvider, error) {
	var mp *sdkmetric.MeterProvider

	if cfg.Enabled {
		exporter, err := newMetricExporter(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("observability: create metric exporter: %w", err)
		}
		res, err := buildResource(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("observability: build resource: %w", err)
		}
		mp = sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
				sdkmetric.WithInterval(cfg.MetricExportInterval))),
		)
	} else {
		mp = sdkmetric.NewMeterProvider()
	}

	otel.SetMeterProvider(mp)
	return mp, nil
}

func newMetricExporter(ctx context.Context, cfg *Config) (sdkmetric.Exporter, error) {
	switch cfg.ExporterProtocol {
	case protocolHTTP:
		endpoint, err := endpointWithSignalPath(cfg.ExporterEndpoint, "/v1/metrics")
		if err != nil {
			return nil, err
		}
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpointURL(endpoint)}
		if strings.HasPrefix(endpoint, "http://") {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	case protocolGRPC:
		host, insecure, err := splitGRPCEndpoint(cfg.ExporterEndpoint)
		if err != nil {
			return nil, err
		}
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(host)}
		if insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported exporter protocol %q", cfg.ExporterProtocol)
	}
}
