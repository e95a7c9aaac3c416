// Package providers defines the search adapter contract and the registry the
// planner selects tools from. Each adapter wraps one external backend, owns
// its HTTP session and rate limiter, and converts raw payloads into the
// shared result schema. A malformed raw item is dropped, never fatal; a
// failed call is surfaced as an error so the dispatcher can classify it.
package providers

import (
	"context"
	"log"
	"os"
	"sort"

	"github.com/searchmux/searchmux/internal/planner"
	"github.com/searchmux/searchmux/internal/types"
)

// Provider is the adapter contract every backend implements.
type Provider interface {
	// Name uniquely identifies the tool inside a plan.
	Name() string
	// Category drives planner weighting and ranking policy.
	Category() types.ToolCategory
	// Execute runs one search. A zero-length result with nil error is a
	// legitimate empty response. Adapters must not hide total failure
	// behind an empty list; unrecoverable conditions return an error.
	Execute(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error)
}

// Registry holds the providers available to the planner for one process.
type Registry struct {
	providers map[string]Provider
	order     []string
	logger    *log.Logger
}

func NewRegistry() *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		logger:    log.New(os.Stdout, "[Registry] ", log.LstdFlags),
	}
}

// Register adds a provider. A duplicate name replaces the earlier entry.
func (r *Registry) Register(p Provider) {
	if _, exists := r.providers[p.Name()]; !exists {
		r.order = append(r.order, p.Name())
	}
	r.providers[p.Name()] = p
	r.logger.Printf("registered provider %s (category=%s)", p.Name(), p.Category())
}

// Get returns the named provider.
func (r *Registry) Get(name string) (Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Candidates lists registered tools in registration order for the planner.
func (r *Registry) Candidates() []planner.Candidate {
	candidates := make([]planner.Candidate, 0, len(r.order))
	for _, name := range r.order {
		p := r.providers[name]
		candidates = append(candidates, planner.Candidate{Name: p.Name(), Category: p.Category()})
	}
	return candidates
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len reports how many providers are registered.
func (r *Registry) Len() int {
	return len(r.providers)
}

// clampSnippet shortens s to at most limit characters without splitting a
// multi-byte rune in the middle.
func clampSnippet(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}

// BuildRegistry assembles the default provider set from configuration.
// A provider whose API key or endpoint is absent is simply not registered;
// the plan just has fewer candidates.
func BuildRegistry(cfg *types.Config) (*Registry, error) {
	registry := NewRegistry()
	doer := newHTTPDoer(cfg)

	if cfg.WebSearchEnabled {
		registry.Register(NewDuckDuckGo(doer))
	}
	if cfg.NewsAPIKey != "" {
		registry.Register(NewNewsAPI(doer, cfg.NewsAPIKey))
	}

	scholar := newScholarClient(doer, cfg.SemanticScholarAPIKey)
	registry.Register(NewSemanticScholar(scholar))
	if cfg.ExpertSearchEnabled {
		registry.Register(NewExpertFinder(scholar))
	}
	if cfg.PatentSearchEnabled {
		registry.Register(NewGooglePatents(doer))
	}

	if cfg.OpenSearchEndpoint != "" {
		knowledge, err := NewKnowledge(cfg)
		if err != nil {
			return nil, err
		}
		registry.Register(knowledge)
	}

	return registry, nil
}
