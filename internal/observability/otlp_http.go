package observability

import (
	"fmt"
	"net/url"
	"strings"
)

// endpointWithSignalPath appends the per-signal OTLP path (/v1/traces or
// /v1/metrics) to a configured HTTP endpoint unless it is already there.
// Query parameters and fragments on the endpoint are preserved.
func endpointWithSignalPath(endpoint string, suffix string) (string, error) {
	if strings.TrimSpace(endpoint) == "" {
		return "", fmt.Errorf("endpoint cannot be empty")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}

	signalPath := "/" + strings.Trim(strings.TrimSpace(suffix), "/")
	current := strings.TrimSuffix(parsed.Path, "/")
	switch {
	case current == "":
		parsed.Path = signalPath
	case strings.HasSuffix(current, signalPath):
		parsed.Path = current
	default:
		parsed.Path = current + signalPath
	}

	return parsed.String(), nil
}
