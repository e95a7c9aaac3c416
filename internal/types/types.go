package types

import (
	"errors"
	"fmt"
	"time"
)

// PlanningError means no tool could be selected at all. It is the only
// failure that aborts an orchestration call.
type PlanningError struct {
	Reason string
}

func (e *PlanningError) Error() string {
	return fmt.Sprintf("planning failed: %s", e.Reason)
}

// ProviderError is one backend's I/O, auth, or parse failure. It is absorbed
// into that tool's outcome and never affects sibling units.
type ProviderError struct {
	Tool    string
	Message string
	Cause   error
}

func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("provider %s: %s: %v", e.Tool, e.Message, e.Cause)
	}
	return fmt.Sprintf("provider %s: %s", e.Tool, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// ErrEmptyResult marks a valid call that legitimately returned nothing.
// It triggers query reformulation and is never conflated with ProviderError.
var ErrEmptyResult = errors.New("search returned no results")

// ErrNoResultsFound is the terminal "everything came back empty or failed"
// condition. It is reported in the response envelope, not propagated.
var ErrNoResultsFound = errors.New("no results found")

// IsPlanningError reports whether err is fatal to the whole orchestration.
func IsPlanningError(err error) bool {
	var pe *PlanningError
	return errors.As(err, &pe)
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Orchestration
	SearchTimeoutSeconds   int     `json:"search_timeout_seconds" env:"SEARCH_TIMEOUT_SECONDS,default=30"`
	MaxParallelTools       int     `json:"max_parallel_tools" env:"MAX_PARALLEL_TOOLS,default=4"`
	EnableParallelSearch   bool    `json:"enable_parallel_search" env:"ENABLE_PARALLEL_SEARCH,default=true"`
	DefaultMaxResults      int     `json:"default_max_results" env:"DEFAULT_MAX_SEARCH_RESULTS,default=10"`
	SelectionThreshold     float64 `json:"selection_threshold" env:"TOOL_SELECTION_THRESHOLD,default=0.3"`
	PerToolResultCeiling   int     `json:"per_tool_result_ceiling" env:"PER_TOOL_RESULT_CEILING,default=10"`
	RetryAttempts          int     `json:"retry_attempts" env:"SEARCH_RETRY_ATTEMPTS,default=3"`
	RetryBaseDelay         time.Duration `json:"retry_base_delay" env:"SEARCH_RETRY_BASE_DELAY,default=500ms"`
	IntentTaxonomyPath     string  `json:"intent_taxonomy_path" env:"INTENT_TAXONOMY_PATH"`

	// Provider credentials. An absent key removes that provider from the
	// registry; it is never a hard error.
	NewsAPIKey            string `json:"-" env:"NEWS_API_KEY"`
	SemanticScholarAPIKey string `json:"-" env:"SEMANTIC_SCHOLAR_API_KEY"`
	PatentSearchEnabled   bool   `json:"patent_search_enabled" env:"PATENT_SEARCH_ENABLED,default=true"`
	ExpertSearchEnabled   bool   `json:"expert_search_enabled" env:"EXPERT_SEARCH_ENABLED,default=true"`
	WebSearchEnabled      bool   `json:"web_search_enabled" env:"WEB_SEARCH_ENABLED,default=true"`

	// Provider HTTP behaviour
	ProviderTimeout   time.Duration `json:"provider_timeout" env:"PROVIDER_TIMEOUT,default=15s"`
	ProviderRateLimit float64       `json:"provider_rate_limit" env:"PROVIDER_RATE_LIMIT,default=5.0"`
	ProviderRateBurst int           `json:"provider_rate_burst" env:"PROVIDER_RATE_BURST,default=10"`
	ProviderUserAgent string        `json:"provider_user_agent" env:"PROVIDER_USER_AGENT,default=searchmux/1.0"`

	// Internal knowledge index (optional OpenSearch-backed provider)
	OpenSearchEndpoint        string        `json:"opensearch_endpoint" env:"OPENSEARCH_ENDPOINT"`
	OpenSearchIndex           string        `json:"opensearch_index" env:"OPENSEARCH_INDEX,default=searchmux-knowledge"`
	OpenSearchUsername        string        `json:"-" env:"OPENSEARCH_USERNAME"`
	OpenSearchPassword        string        `json:"-" env:"OPENSEARCH_PASSWORD"`
	OpenSearchInsecureSkipTLS bool          `json:"opensearch_insecure_skip_tls" env:"OPENSEARCH_INSECURE_SKIP_TLS,default=false"`
	OpenSearchRequestTimeout  time.Duration `json:"opensearch_request_timeout" env:"OPENSEARCH_REQUEST_TIMEOUT,default=10s"`
	OpenSearchRateLimit       float64       `json:"opensearch_rate_limit" env:"OPENSEARCH_RATE_LIMIT,default=10.0"`
	OpenSearchRateBurst       int           `json:"opensearch_rate_burst" env:"OPENSEARCH_RATE_BURST,default=20"`

	// MCP server
	MCPServerEnabled bool   `json:"mcp_server_enabled" env:"MCP_SERVER_ENABLED,default=false"`
	MCPServerHost    string `json:"mcp_server_host" env:"MCP_SERVER_HOST,default=127.0.0.1"`
	MCPServerPort    int    `json:"mcp_server_port" env:"MCP_SERVER_PORT,default=8765"`
	MCPAllowedIPsStr string `json:"-" env:"MCP_ALLOWED_IPS"`
	MCPAllowedIPs    []string `json:"mcp_allowed_ips"`

	// HTTP API server
	HTTPServerHost string `json:"http_server_host" env:"HTTP_SERVER_HOST,default=127.0.0.1"`
	HTTPServerPort int    `json:"http_server_port" env:"HTTP_SERVER_PORT,default=8080"`

	// OpenTelemetry
	OTelEnabled              bool    `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string  `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=searchmux"`
	OTelExporterOTLPEndpoint string  `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string  `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string  `json:"-" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string  `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64 `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}

// ParallelEnabled reports whether the dispatcher may fan units out
// concurrently. When false the identical plan runs sequentially.
func (c *Config) ParallelEnabled() bool {
	return c.EnableParallelSearch && c.MaxParallelTools > 1
}
