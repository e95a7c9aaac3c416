package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/searchmux/searchmux/internal/orchestrator"
	"github.com/searchmux/searchmux/internal/types"
)

type fakeSearcher struct {
	lastRequest orchestrator.Request
	response    *types.OrchestrationResponse
}

func (f *fakeSearcher) Search(ctx context.Context, req orchestrator.Request) *types.OrchestrationResponse {
	f.lastRequest = req
	if f.response != nil {
		return f.response
	}
	return &types.OrchestrationResponse{
		Success: true,
		Query:   req.Query,
		Results: []types.SearchResult{
			{Title: "Result", URL: "https://example.com", SourceTool: "duckduckgo", FinalScore: 0.8},
		},
		Metadata: types.OrchestrationMetadata{ToolsUsed: []string{"duckduckgo"}},
	}
}

func TestIntelligentSearchToolDefinition(t *testing.T) {
	adapter, err := NewIntelligentSearchToolAdapter(&fakeSearcher{}, 10)
	if err != nil {
		t.Fatalf("NewIntelligentSearchToolAdapter failed: %v", err)
	}

	def := adapter.GetToolDefinition()
	if def.Name != "intelligent_search" {
		t.Fatalf("unexpected tool name: %s", def.Name)
	}
	if err := ValidateToolDefinition(def); err != nil {
		t.Fatalf("definition should validate: %v", err)
	}
	schema, ok := def.InputSchema.(*jsonschema.Schema)
	if !ok || schema == nil || len(schema.Required) != 1 || schema.Required[0] != "query" {
		t.Fatalf("expected query to be the only required property")
	}
}

func TestIntelligentSearchToolCall(t *testing.T) {
	searcher := &fakeSearcher{}
	adapter, err := NewIntelligentSearchToolAdapter(searcher, 10)
	if err != nil {
		t.Fatalf("NewIntelligentSearchToolAdapter failed: %v", err)
	}

	params := map[string]interface{}{
		"query":       "solid state batteries",
		"max_results": float64(5),
		"agent_type":  "research",
		"user_preferences": map[string]interface{}{
			"preferred_tools": []interface{}{"semanticscholar"},
		},
	}

	result, err := adapter.HandleToolCall(context.Background(), params)
	if err != nil {
		t.Fatalf("HandleToolCall failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success result, got %+v", result)
	}

	if searcher.lastRequest.Query != "solid state batteries" {
		t.Fatalf("query not forwarded: %q", searcher.lastRequest.Query)
	}
	if searcher.lastRequest.MaxResults != 5 {
		t.Fatalf("max_results not forwarded: %d", searcher.lastRequest.MaxResults)
	}
	if searcher.lastRequest.AgentType != "research" {
		t.Fatalf("agent_type not forwarded: %q", searcher.lastRequest.AgentType)
	}
	if searcher.lastRequest.Preferences == nil {
		t.Fatal("preferences not forwarded")
	}

	var response types.OrchestrationResponse
	if err := json.Unmarshal([]byte(result.Content[0].Text), &response); err != nil {
		t.Fatalf("result content is not a valid response envelope: %v", err)
	}
	if !response.Success || len(response.Results) != 1 {
		t.Fatalf("unexpected response payload: %+v", response)
	}
}

func TestIntelligentSearchToolDefaultMaxResults(t *testing.T) {
	searcher := &fakeSearcher{}
	adapter, err := NewIntelligentSearchToolAdapter(searcher, 7)
	if err != nil {
		t.Fatalf("NewIntelligentSearchToolAdapter failed: %v", err)
	}

	if _, err := adapter.HandleToolCall(context.Background(), map[string]interface{}{"query": "q"}); err != nil {
		t.Fatalf("HandleToolCall failed: %v", err)
	}
	if searcher.lastRequest.MaxResults != 7 {
		t.Fatalf("expected default max results 7, got %d", searcher.lastRequest.MaxResults)
	}
}

func TestIntelligentSearchToolInvalidParams(t *testing.T) {
	adapter, err := NewIntelligentSearchToolAdapter(&fakeSearcher{}, 10)
	if err != nil {
		t.Fatalf("NewIntelligentSearchToolAdapter failed: %v", err)
	}

	cases := []map[string]interface{}{
		{},
		{"query": 42},
		{"query": ""},
		{"query": "ok", "max_results": "many"},
		{"query": "ok", "max_results": float64(0)},
	}
	for _, params := range cases {
		result, err := adapter.HandleToolCall(context.Background(), params)
		if err == nil {
			t.Fatalf("expected error for params %v", params)
		}
		if result == nil || !result.IsError {
			t.Fatalf("expected error result for params %v", params)
		}
	}
}

func TestIntelligentSearchToolNoResults(t *testing.T) {
	searcher := &fakeSearcher{
		response: &types.OrchestrationResponse{
			Success: false,
			Query:   "nothing",
			Error:   "no results found",
		},
	}
	adapter, err := NewIntelligentSearchToolAdapter(searcher, 10)
	if err != nil {
		t.Fatalf("NewIntelligentSearchToolAdapter failed: %v", err)
	}

	result, err := adapter.HandleToolCall(context.Background(), map[string]interface{}{"query": "nothing"})
	if err != nil {
		t.Fatalf("no-result searches should not surface a transport error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error-flagged result for unsuccessful search")
	}
	if !strings.Contains(result.Content[0].Text, "no results found") {
		t.Fatalf("expected envelope with error message, got %s", result.Content[0].Text)
	}
}

type fakeProvider struct {
	name     string
	category types.ToolCategory
	results  []types.SearchResult
	err      error

	lastQuery  string
	lastParams map[string]interface{}
}

func (f *fakeProvider) Name() string                  { return f.name }
func (f *fakeProvider) Category() types.ToolCategory  { return f.category }
func (f *fakeProvider) Execute(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error) {
	f.lastQuery = query
	f.lastParams = params
	return f.results, f.err
}

func TestProviderToolCall(t *testing.T) {
	provider := &fakeProvider{
		name:     "duckduckgo",
		category: types.CategoryWeb,
		results: []types.SearchResult{
			{Title: "Hit", URL: "https://example.com", BaseRelevance: 0.9},
		},
	}

	adapter, err := NewProviderToolAdapter(provider, 10)
	if err != nil {
		t.Fatalf("NewProviderToolAdapter failed: %v", err)
	}

	if adapter.InternalName() != "search_duckduckgo" {
		t.Fatalf("unexpected internal name: %s", adapter.InternalName())
	}
	if err := ValidateToolDefinition(adapter.GetToolDefinition()); err != nil {
		t.Fatalf("definition should validate: %v", err)
	}

	params := map[string]interface{}{
		"query":       "go concurrency",
		"max_results": float64(3),
		"params":      map[string]interface{}{"region": "us-en"},
	}
	result, err := adapter.HandleToolCall(context.Background(), params)
	if err != nil {
		t.Fatalf("HandleToolCall failed: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success result, got %+v", result)
	}

	if provider.lastQuery != "go concurrency" {
		t.Fatalf("query not forwarded: %q", provider.lastQuery)
	}
	if provider.lastParams["max_results"] != 3 {
		t.Fatalf("max_results not injected: %v", provider.lastParams)
	}
	if provider.lastParams["region"] != "us-en" {
		t.Fatalf("provider params not forwarded: %v", provider.lastParams)
	}

	var response providerSearchResponse
	if err := json.Unmarshal([]byte(result.Content[0].Text), &response); err != nil {
		t.Fatalf("result content is not valid JSON: %v", err)
	}
	if response.Provider != "duckduckgo" || response.ResultCount != 1 {
		t.Fatalf("unexpected response payload: %+v", response)
	}
}

func TestProviderToolCallError(t *testing.T) {
	provider := &fakeProvider{
		name:     "newsapi",
		category: types.CategoryNews,
		err:      errors.New("rate limited"),
	}

	adapter, err := NewProviderToolAdapter(provider, 10)
	if err != nil {
		t.Fatalf("NewProviderToolAdapter failed: %v", err)
	}

	result, err := adapter.HandleToolCall(context.Background(), map[string]interface{}{"query": "q"})
	if err == nil {
		t.Fatal("expected provider error to propagate")
	}
	if result == nil || !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(result.Content[0].Text, "rate limited") {
		t.Fatalf("expected error message in content, got %s", result.Content[0].Text)
	}
}
