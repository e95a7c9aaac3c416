package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/searchmux/searchmux/internal/orchestrator"
	"github.com/searchmux/searchmux/internal/providers"
	"github.com/searchmux/searchmux/internal/types"
)

type stubSearcher struct {
	lastRequest orchestrator.Request
	response    *types.OrchestrationResponse
}

func (s *stubSearcher) Search(ctx context.Context, req orchestrator.Request) *types.OrchestrationResponse {
	s.lastRequest = req
	if s.response != nil {
		return s.response
	}
	return &types.OrchestrationResponse{
		Success: true,
		Query:   req.Query,
		Results: []types.SearchResult{
			{Title: "Result", URL: "https://example.com", SourceTool: "duckduckgo", FinalScore: 0.9},
		},
		Metadata: types.OrchestrationMetadata{ToolsUsed: []string{"duckduckgo"}},
	}
}

type stubProvider struct {
	name     string
	category types.ToolCategory
}

func (p *stubProvider) Name() string                 { return p.name }
func (p *stubProvider) Category() types.ToolCategory { return p.category }
func (p *stubProvider) Execute(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error) {
	return nil, nil
}

func newTestServer(t *testing.T, searcher Searcher) *Server {
	t.Helper()

	registry := providers.NewRegistry()
	registry.Register(&stubProvider{name: "duckduckgo", category: types.CategoryWeb})
	registry.Register(&stubProvider{name: "semanticscholar", category: types.CategoryAcademic})

	srv, err := NewServer(DefaultServerConfig(), searcher, registry, nil)
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	return srv
}

func TestHandleSearch(t *testing.T) {
	searcher := &stubSearcher{}
	srv := newTestServer(t, searcher)

	body := `{"query":"battery technology","max_results":5,"agent_type":"research"}`
	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(body))
	rec := httptest.NewRecorder()

	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if searcher.lastRequest.Query != "battery technology" {
		t.Fatalf("query not forwarded: %q", searcher.lastRequest.Query)
	}
	if searcher.lastRequest.MaxResults != 5 {
		t.Fatalf("max_results not forwarded: %d", searcher.lastRequest.MaxResults)
	}

	var response types.OrchestrationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !response.Success || len(response.Results) != 1 {
		t.Fatalf("unexpected response: %+v", response)
	}
}

func TestHandleSearchValidation(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{})
	routes := srv.setupRoutes()

	cases := []struct {
		name string
		body string
	}{
		{"invalid json", `{"query":`},
		{"missing query", `{}`},
		{"blank query", `{"query":"   "}`},
		{"negative max_results", `{"query":"q","max_results":-1}`},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(tc.body))
		rec := httptest.NewRecorder()
		routes.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestHandleSearchMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestHandleSearchNoResults(t *testing.T) {
	searcher := &stubSearcher{
		response: &types.OrchestrationResponse{
			Success: false,
			Query:   "nothing",
			Error:   "no results found",
		},
	}
	srv := newTestServer(t, searcher)

	req := httptest.NewRequest(http.MethodPost, "/api/search", strings.NewReader(`{"query":"nothing"}`))
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("empty result sets should still return 200, got %d", rec.Code)
	}

	var response types.OrchestrationResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if response.Success || response.Error != "no results found" {
		t.Fatalf("unexpected response: %+v", response)
	}
}

func TestHandleProviders(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var payload struct {
		Providers []providerInfo `json:"providers"`
		Count     int            `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if payload.Count != 2 || len(payload.Providers) != 2 {
		t.Fatalf("expected 2 providers, got %+v", payload)
	}
	if payload.Providers[0].Name != "duckduckgo" || payload.Providers[0].Category != types.CategoryWeb {
		t.Fatalf("unexpected first provider: %+v", payload.Providers[0])
	}
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &stubSearcher{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.setupRoutes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"healthy"`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}
