package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	env "github.com/netflix/go-env"

	"github.com/searchmux/searchmux/internal/types"
)

// Type alias for Config
type Config = types.Config

// Load loads configuration from environment variables. A .env file in the
// working directory is honored when present but is never required.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Parse MCPAllowedIPs from comma-separated string
	if config.MCPAllowedIPsStr != "" {
		ips := strings.Split(config.MCPAllowedIPsStr, ",")
		config.MCPAllowedIPs = make([]string, 0, len(ips))
		for _, ip := range ips {
			if trimmed := strings.TrimSpace(ip); trimmed != "" {
				config.MCPAllowedIPs = append(config.MCPAllowedIPs, trimmed)
			}
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	// Orchestration knobs are clamped rather than rejected; a bad value
	// degrades to a safe default instead of breaking startup.
	if config.SearchTimeoutSeconds < 1 {
		config.SearchTimeoutSeconds = 1
	}
	if config.SearchTimeoutSeconds > 300 {
		config.SearchTimeoutSeconds = 300
	}

	if config.MaxParallelTools < 1 {
		config.MaxParallelTools = 1
	}
	if config.MaxParallelTools > 20 {
		config.MaxParallelTools = 20
	}

	if config.DefaultMaxResults < 1 {
		config.DefaultMaxResults = 1
	}
	if config.DefaultMaxResults > 50 {
		config.DefaultMaxResults = 50
	}

	if config.SelectionThreshold < 0 {
		config.SelectionThreshold = 0
	}
	if config.SelectionThreshold >= 1.0 {
		config.SelectionThreshold = 0.3
	}

	if config.PerToolResultCeiling < 1 {
		config.PerToolResultCeiling = 1
	}
	if config.PerToolResultCeiling > 20 {
		config.PerToolResultCeiling = 20
	}

	if config.RetryAttempts < 0 {
		config.RetryAttempts = 0
	}
	if config.RetryAttempts > 10 {
		config.RetryAttempts = 10
	}

	if config.ProviderRateLimit <= 0 {
		config.ProviderRateLimit = 5.0
	}
	if config.ProviderRateBurst <= 0 {
		config.ProviderRateBurst = int(config.ProviderRateLimit) * 2
	}

	// Validate the knowledge provider configuration only when the endpoint
	// is set; an absent endpoint simply removes that provider.
	if config.OpenSearchEndpoint != "" {
		if err := validateOpenSearchConfig(config); err != nil {
			return fmt.Errorf("OpenSearch configuration validation failed: %w", err)
		}
	}

	if config.MCPServerEnabled {
		if err := validateMCPConfig(config); err != nil {
			return fmt.Errorf("MCP server configuration validation failed: %w", err)
		}
	}

	if config.HTTPServerPort < 1 || config.HTTPServerPort > 65535 {
		return fmt.Errorf("HTTP_SERVER_PORT must be between 1 and 65535")
	}

	return nil
}

// validateOpenSearchConfig validates knowledge-provider specific configuration
func validateOpenSearchConfig(config *Config) error {
	parsedURL, err := url.Parse(config.OpenSearchEndpoint)
	if err != nil {
		return fmt.Errorf("invalid OPENSEARCH_ENDPOINT URL format: %w", err)
	}

	if parsedURL.Scheme == "" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT must include scheme (http:// or https://)")
	}

	if !strings.HasPrefix(parsedURL.Scheme, "http") {
		return fmt.Errorf("OPENSEARCH_ENDPOINT scheme must be http or https")
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT must include a valid host")
	}

	if config.OpenSearchIndex == "" {
		return fmt.Errorf("OPENSEARCH_INDEX cannot be empty when OpenSearch is configured")
	}

	if config.OpenSearchRateLimit <= 0 {
		return fmt.Errorf("OPENSEARCH_RATE_LIMIT must be greater than 0")
	}
	if config.OpenSearchRateLimit > 1000 {
		return fmt.Errorf("OPENSEARCH_RATE_LIMIT cannot exceed 1000 requests/second")
	}

	if config.OpenSearchRateBurst <= 0 {
		return fmt.Errorf("OPENSEARCH_RATE_BURST must be greater than 0")
	}

	if config.OpenSearchRequestTimeout <= 0 {
		return fmt.Errorf("OPENSEARCH_REQUEST_TIMEOUT must be greater than 0")
	}

	return nil
}

// validateMCPConfig validates MCP server-specific configuration
func validateMCPConfig(config *Config) error {
	if config.MCPServerPort < 1 || config.MCPServerPort > 65535 {
		return fmt.Errorf("MCP_SERVER_PORT must be between 1 and 65535")
	}

	if config.MCPServerHost == "" {
		return fmt.Errorf("MCP_SERVER_HOST cannot be empty")
	}

	return nil
}
