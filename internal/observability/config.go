package observability

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/searchmux/searchmux/internal/types"
)

const (
	defaultServiceName     = "searchmux"
	protocolHTTP           = "http/protobuf"
	protocolGRPC           = "grpc"
	resourceServiceNameKey = "service.name"
)

// Config holds the OpenTelemetry settings resolved from the root
// configuration. Zero values fall back to sane defaults during validation.
type Config struct {
	Enabled              bool
	ServiceName          string
	ExporterEndpoint     string
	ExporterProtocol     string
	ResourceAttributes   map[string]string
	TracesSampler        string
	TracesSamplerArg     float64
	MetricExportInterval time.Duration
}

// Init wires up tracing and metrics from the root configuration and returns
// the shutdown hook the caller defers. On error the returned hook is a no-op
// so callers can defer it unconditionally.
func Init(rootCfg *types.Config) (ShutdownFunc, error) {
	noop := func(context.Context) error { return nil }

	cfg, err := loadConfig(rootCfg)
	if err != nil {
		return noop, err
	}

	ctx := context.Background()

	tp, err := initTracer(ctx, cfg)
	if err != nil {
		return noop, err
	}

	mp, err := initMeter(ctx, cfg)
	if err != nil {
		// Flush whatever the tracer buffered before bailing out.
		_ = newShutdownFunc(tp, nil)(ctx)
		return noop, err
	}

	return newShutdownFunc(tp, mp), nil
}

func loadConfig(cfg *types.Config) (*Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("observability: nil root configuration")
	}

	attrs, err := parseResourceAttributes(cfg.OTelResourceAttributes)
	if err != nil {
		return nil, fmt.Errorf("observability: parse resource attributes: %w", err)
	}

	otelCfg := &Config{
		Enabled:            cfg.OTelEnabled,
		ServiceName:        strings.TrimSpace(cfg.OTelServiceName),
		ExporterEndpoint:   strings.TrimSpace(cfg.OTelExporterOTLPEndpoint),
		ExporterProtocol:   strings.TrimSpace(cfg.OTelExporterOTLPProtocol),
		ResourceAttributes: attrs,
		TracesSampler:      strings.TrimSpace(cfg.OTelTracesSampler),
		TracesSamplerArg:   cfg.OTelTracesSamplerArg,
	}

	if err := otelCfg.validate(); err != nil {
		return nil, err
	}
	return otelCfg, nil
}

// validate fills in defaults and rejects combinations the exporters would
// choke on later, so misconfiguration surfaces at startup rather than on the
// first export.
func (c *Config) validate() error {
	if c.ServiceName == "" {
		c.ServiceName = defaultServiceName
	}
	c.ExporterProtocol = strings.ToLower(strings.TrimSpace(c.ExporterProtocol))
	if c.ExporterProtocol == "" {
		c.ExporterProtocol = protocolHTTP
	}
	if c.TracesSampler == "" {
		c.TracesSampler = "always_on"
	}
	if c.MetricExportInterval <= 0 {
		c.MetricExportInterval = 60 * time.Second
	}

	if !c.Enabled {
		c.ensureResourceDefaults()
		return nil
	}

	if c.ExporterEndpoint == "" {
		return fmt.Errorf("observability: OTLP exporter endpoint is required when telemetry is enabled")
	}

	switch c.ExporterProtocol {
	case protocolHTTP:
		if !strings.HasPrefix(c.ExporterEndpoint, "http://") && !strings.HasPrefix(c.ExporterEndpoint, "https://") {
			return fmt.Errorf("observability: http/protobuf endpoint must include an http or https scheme")
		}
		parsed, err := url.Parse(c.ExporterEndpoint)
		if err != nil {
			return fmt.Errorf("observability: invalid OTLP exporter endpoint: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("observability: http/protobuf endpoint must include a host")
		}
	case protocolGRPC:
		if strings.Contains(c.ExporterEndpoint, "://") {
			parsed, err := url.Parse(c.ExporterEndpoint)
			if err != nil {
				return fmt.Errorf("observability: invalid OTLP exporter endpoint for grpc: %w", err)
			}
			if parsed.Host == "" {
				return fmt.Errorf("observability: grpc endpoint with a scheme must include a host")
			}
		} else if !strings.Contains(c.ExporterEndpoint, ":") {
			return fmt.Errorf("observability: grpc endpoint should be host:port")
		}
	default:
		return fmt.Errorf("observability: unsupported OTLP exporter protocol %q", c.ExporterProtocol)
	}

	if c.TracesSamplerArg < 0 {
		return fmt.Errorf("observability: traces sampler argument must be non-negative")
	}
	if strings.EqualFold(c.TracesSampler, "traceidratio") {
		if c.TracesSamplerArg <= 0 || c.TracesSamplerArg > 1 {
			return fmt.Errorf("observability: traceidratio sampler argument must be in (0, 1]")
		}
	}

	c.ensureResourceDefaults()
	return nil
}

func parseResourceAttributes(input string) (map[string]string, error) {
	attrs := make(map[string]string)
	if strings.TrimSpace(input) == "" {
		return attrs, nil
	}

	for _, pair := range strings.Split(input, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, fmt.Errorf("invalid resource attribute %q", pair)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("resource attribute key cannot be empty")
		}
		attrs[key] = strings.TrimSpace(value)
	}
	return attrs, nil
}

func (c *Config) ensureResourceDefaults() {
	if c.ResourceAttributes == nil {
		c.ResourceAttributes = make(map[string]string)
	}
	if _, ok := c.ResourceAttributes[resourceServiceNameKey]; !ok && c.ServiceName != "" {
		c.ResourceAttributes[resourceServiceNameKey] = c.ServiceName
	}
}
