package metrics

import (
	"context"
	"log"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	otelMetricsOnce       sync.Once
	otelRegistrationError error
)

// InitOTelMetrics registers an observable gauge that reports cumulative
// invocation totals from the store. Call after observability.Init().
func InitOTelMetrics() error {
	otelMetricsOnce.Do(func() {
		meter := otel.Meter("searchmux/metrics")

		_, err := meter.Int64ObservableGauge(
			"searchmux.invocations.total",
			metric.WithDescription("Cumulative total invocations by mode (mcp, search, serve)"),
			metric.WithUnit("{invocations}"),
			metric.WithInt64Callback(invocationCallback),
		)
		if err != nil {
			log.Printf("metrics: failed to create invocation gauge: %v", err)
			otelRegistrationError = err
			return
		}
	})
	return otelRegistrationError
}

func invocationCallback(_ context.Context, observer metric.Int64Observer) error {
	stats := GetStats()
	if stats == nil {
		for _, mode := range []Mode{ModeMCP, ModeSearch, ModeServe} {
			observer.Observe(0, metric.WithAttributes(
				attribute.String("mode", string(mode)),
			))
		}
		return nil
	}

	for mode, count := range stats {
		observer.Observe(count, metric.WithAttributes(
			attribute.String("mode", string(mode)),
		))
	}
	return nil
}

// ResetOTelForTesting resets the OTel initialization state. Tests only.
func ResetOTelForTesting() {
	otelMetricsOnce = sync.Once{}
	otelRegistrationError = nil
}
