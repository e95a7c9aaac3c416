package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/searchmux/searchmux/internal/providers"
	"github.com/searchmux/searchmux/internal/types"
)

// providerSearchResponse is the payload of a raw provider tool call
type providerSearchResponse struct {
	Provider      string               `json:"provider"`
	Category      types.ToolCategory   `json:"category"`
	Query         string               `json:"query"`
	ResultCount   int                  `json:"result_count"`
	Results       []types.SearchResult `json:"results"`
	ExecutionTime string               `json:"execution_time"`
}

// ProviderToolAdapter exposes a single search provider as a raw MCP tool,
// bypassing query analysis and planning
type ProviderToolAdapter struct {
	provider   providers.Provider
	logger     *log.Logger
	maxResults int
}

// NewProviderToolAdapter creates a raw tool adapter for one provider
func NewProviderToolAdapter(provider providers.Provider, defaultMaxResults int) (*ProviderToolAdapter, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider cannot be nil")
	}
	if defaultMaxResults <= 0 {
		defaultMaxResults = 10
	}

	return &ProviderToolAdapter{
		provider:   provider,
		logger:     log.New(os.Stdout, "[ProviderTool] ", log.LstdFlags),
		maxResults: defaultMaxResults,
	}, nil
}

// InternalName returns the registry name for this tool
func (pta *ProviderToolAdapter) InternalName() string {
	return "search_" + pta.provider.Name()
}

// GetToolDefinition returns the MCP tool definition for the wrapped provider
func (pta *ProviderToolAdapter) GetToolDefinition() types.MCPToolDefinition {
	schemaMap := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query to send directly to the provider",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of results to return",
				"default":     pta.maxResults,
				"minimum":     1,
				"maximum":     50,
			},
			"params": map[string]interface{}{
				"type":        "object",
				"description": "Provider specific parameters such as from_date, year_filter or min_citations",
			},
		},
		"required": []string{"query"},
	}

	var inputSchema *jsonschema.Schema
	schemaBytes, err := json.Marshal(schemaMap)
	if err == nil {
		inputSchema = &jsonschema.Schema{}
		_ = json.Unmarshal(schemaBytes, inputSchema)
	}

	return types.MCPToolDefinition{
		Name:        pta.InternalName(),
		Description: fmt.Sprintf("Search the %s provider (%s) directly without orchestration", pta.provider.Name(), pta.provider.Category()),
		InputSchema: inputSchema,
	}
}

// HandleToolCall executes the wrapped provider
func (pta *ProviderToolAdapter) HandleToolCall(ctx context.Context, params map[string]interface{}) (*types.MCPToolCallResult, error) {
	query, providerParams, err := pta.parseParams(params)
	if err != nil {
		return CreateToolCallErrorResult(fmt.Sprintf("Invalid parameters: %v", err)), err
	}

	pta.logger.Printf("Executing provider %s for query: %q", pta.provider.Name(), query)

	start := time.Now()
	results, err := pta.provider.Execute(ctx, query, providerParams)
	if err != nil {
		errorMsg := fmt.Sprintf("Provider %s failed: %v", pta.provider.Name(), err)
		pta.logger.Printf("%s", errorMsg)
		return CreateToolCallErrorResult(errorMsg), err
	}

	response := providerSearchResponse{
		Provider:      pta.provider.Name(),
		Category:      pta.provider.Category(),
		Query:         query,
		ResultCount:   len(results),
		Results:       results,
		ExecutionTime: time.Since(start).String(),
	}

	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to serialize response: %v", err)
		return CreateToolCallErrorResult(errorMsg), err
	}

	pta.logger.Printf("Provider %s returned %d results in %v", pta.provider.Name(), len(results), time.Since(start))

	return CreateToolCallResult(string(responseJSON)), nil
}

func (pta *ProviderToolAdapter) parseParams(params map[string]interface{}) (string, map[string]interface{}, error) {
	queryInterface, ok := params["query"]
	if !ok {
		return "", nil, fmt.Errorf("query parameter is required")
	}
	query, ok := queryInterface.(string)
	if !ok {
		return "", nil, fmt.Errorf("query must be a string")
	}
	if query == "" {
		return "", nil, fmt.Errorf("query cannot be empty")
	}

	providerParams := make(map[string]interface{})
	if rawParams, ok := params["params"]; ok {
		if m, ok := rawParams.(map[string]interface{}); ok {
			for k, v := range m {
				providerParams[k] = v
			}
		}
	}

	maxResults := pta.maxResults
	if maxResultsInterface, ok := params["max_results"]; ok {
		switch v := maxResultsInterface.(type) {
		case float64:
			maxResults = int(v)
		case int:
			maxResults = v
		default:
			return "", nil, fmt.Errorf("max_results must be a number")
		}
		if maxResults <= 0 {
			return "", nil, fmt.Errorf("max_results must be positive")
		}
	}
	providerParams["max_results"] = maxResults

	return query, providerParams, nil
}
