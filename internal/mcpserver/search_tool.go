package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/searchmux/searchmux/internal/metrics"
	"github.com/searchmux/searchmux/internal/orchestrator"
	"github.com/searchmux/searchmux/internal/types"
)

// Searcher runs an orchestrated multi-provider search.
type Searcher interface {
	Search(ctx context.Context, req orchestrator.Request) *types.OrchestrationResponse
}

// IntelligentSearchToolAdapter exposes the search orchestrator as an MCP tool
type IntelligentSearchToolAdapter struct {
	searcher   Searcher
	logger     *log.Logger
	maxResults int
}

// NewIntelligentSearchToolAdapter creates a new adapter for the orchestrated search tool
func NewIntelligentSearchToolAdapter(searcher Searcher, defaultMaxResults int) (*IntelligentSearchToolAdapter, error) {
	if searcher == nil {
		return nil, fmt.Errorf("searcher cannot be nil")
	}
	if defaultMaxResults <= 0 {
		defaultMaxResults = 10
	}

	return &IntelligentSearchToolAdapter{
		searcher:   searcher,
		logger:     log.New(os.Stdout, "[IntelligentSearchTool] ", log.LstdFlags),
		maxResults: defaultMaxResults,
	}, nil
}

// GetToolDefinition returns the MCP tool definition for intelligent search
func (ista *IntelligentSearchToolAdapter) GetToolDefinition() types.MCPToolDefinition {
	schemaMap := map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"query": map[string]interface{}{
				"type":        "string",
				"description": "Search query to analyze and route across the registered search providers",
			},
			"max_results": map[string]interface{}{
				"type":        "integer",
				"description": "Maximum number of ranked results to return",
				"default":     ista.maxResults,
				"minimum":     1,
				"maximum":     50,
			},
			"agent_type": map[string]interface{}{
				"type":        "string",
				"description": "Identifier of the calling agent, recorded in response metadata",
			},
			"user_preferences": map[string]interface{}{
				"type":        "object",
				"description": "Optional planning preferences such as preferred_tools or selection_threshold",
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
		Name:        "intelligent_search",
		Description: "Analyze a query, select the best search providers, run them concurrently, and return merged ranked results",
		InputSchema: inputSchema,
	}
}

// HandleToolCall executes the intelligent search tool
func (ista *IntelligentSearchToolAdapter) HandleToolCall(ctx context.Context, params map[string]interface{}) (*types.MCPToolCallResult, error) {
	metrics.RecordInvocation(metrics.ModeMCP)

	req, err := ista.parseParams(params)
	if err != nil {
		return CreateToolCallErrorResult(fmt.Sprintf("Invalid parameters: %v", err)), err
	}

	ista.logger.Printf("Executing intelligent search for query: %q (max_results=%d)", req.Query, req.MaxResults)

	response := ista.searcher.Search(ctx, req)

	responseJSON, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		errorMsg := fmt.Sprintf("Failed to serialize response: %v", err)
		return CreateToolCallErrorResult(errorMsg), err
	}

	if !response.Success {
		ista.logger.Printf("Search returned no results: %s", response.Error)
		return &types.MCPToolCallResult{
			Content: []types.MCPContent{{Type: "text", Text: string(responseJSON)}},
			IsError: true,
		}, nil
	}

	ista.logger.Printf("Search completed, %d results across %d dispatched providers",
		len(response.Results), len(response.Metadata.ToolsUsed))

	return CreateToolCallResult(string(responseJSON)), nil
}

// parseParams extracts and validates parameters from an MCP tool call
func (ista *IntelligentSearchToolAdapter) parseParams(params map[string]interface{}) (orchestrator.Request, error) {
	req := orchestrator.Request{
		MaxResults: ista.maxResults,
	}

	queryInterface, ok := params["query"]
	if !ok {
		return req, fmt.Errorf("query parameter is required")
	}
	query, ok := queryInterface.(string)
	if !ok {
		return req, fmt.Errorf("query must be a string")
	}
	if query == "" {
		return req, fmt.Errorf("query cannot be empty")
	}
	req.Query = query

	if maxResultsInterface, ok := params["max_results"]; ok {
		switch v := maxResultsInterface.(type) {
		case float64:
			req.MaxResults = int(v)
		case int:
			req.MaxResults = v
		default:
			return req, fmt.Errorf("max_results must be a number")
		}
		if req.MaxResults <= 0 {
			return req, fmt.Errorf("max_results must be positive")
		}
	}

	if agentTypeInterface, ok := params["agent_type"]; ok {
		if agentType, ok := agentTypeInterface.(string); ok {
			req.AgentType = agentType
		}
	}

	if prefsInterface, ok := params["user_preferences"]; ok {
		if prefs, ok := prefsInterface.(map[string]interface{}); ok {
			req.Preferences = prefs
		}
	}

	return req, nil
}
