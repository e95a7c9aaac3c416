package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/searchmux/searchmux/internal/metrics"
	"github.com/searchmux/searchmux/internal/orchestrator"
	"github.com/searchmux/searchmux/internal/types"
)

const maxRequestBytes = 1 << 20

// searchRequest is the body of POST /api/search
type searchRequest struct {
	Query       string                 `json:"query"`
	MaxResults  int                    `json:"max_results,omitempty"`
	AgentType   string                 `json:"agent_type,omitempty"`
	Preferences map[string]interface{} `json:"user_preferences,omitempty"`
}

// providerInfo is one entry of GET /api/providers
type providerInfo struct {
	Name     string             `json:"name"`
	Category types.ToolCategory `json:"category"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleSearch handles the search API
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req searchRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := decoder.Decode(&req); err != nil {
		s.writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		s.writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "query is required"})
		return
	}
	if req.MaxResults < 0 {
		s.writeJSONStatus(w, http.StatusBadRequest, errorResponse{Error: "max_results must not be negative"})
		return
	}

	metrics.RecordInvocation(metrics.ModeServe)

	response := s.searcher.Search(r.Context(), orchestrator.Request{
		Query:       req.Query,
		MaxResults:  req.MaxResults,
		AgentType:   req.AgentType,
		Preferences: req.Preferences,
	})

	// Empty result sets still return the full envelope with success=false
	s.writeJSON(w, response)
}

// handleProviders handles the provider listing API
func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	infos := make([]providerInfo, 0, s.registry.Len())
	for _, name := range s.registry.Names() {
		provider, ok := s.registry.Get(name)
		if !ok {
			continue
		}
		infos = append(infos, providerInfo{
			Name:     provider.Name(),
			Category: provider.Category(),
		})
	}

	s.writeJSON(w, map[string]interface{}{
		"providers": infos,
		"count":     len(infos),
	})
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"providers": s.registry.Len(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("Failed to encode JSON: %v", err)
	}
}

func (s *Server) writeJSONStatus(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("Failed to encode JSON: %v", err)
	}
}
