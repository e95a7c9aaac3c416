package providers

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	opensearch "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	"golang.org/x/time/rate"

	"github.com/searchmux/searchmux/internal/types"
)

// Knowledge searches an internal OpenSearch index of curated documents with
// a BM25 multi_match query. Registered only when an endpoint is configured.
type Knowledge struct {
	client      *opensearchapi.Client
	rateLimiter *rate.Limiter
	index       string
	timeout     time.Duration
	logger      *log.Logger
}

func NewKnowledge(cfg *types.Config) (*Knowledge, error) {
	if cfg.OpenSearchEndpoint == "" {
		return nil, fmt.Errorf("opensearch endpoint is required")
	}

	rateLimit := cfg.OpenSearchRateLimit
	if rateLimit <= 0 {
		rateLimit = 10.0
	}
	burst := cfg.OpenSearchRateBurst
	if burst <= 0 {
		burst = 20
	}
	timeout := cfg.OpenSearchRequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.OpenSearchInsecureSkipTLS,
		},
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 5,
		IdleConnTimeout:     90 * time.Second,
	}

	client, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: []string{cfg.OpenSearchEndpoint},
			Username:  cfg.OpenSearchUsername,
			Password:  cfg.OpenSearchPassword,
			Transport: transport,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}

	return &Knowledge{
		client:      client,
		rateLimiter: rate.NewLimiter(rate.Limit(rateLimit), burst),
		index:       cfg.OpenSearchIndex,
		timeout:     timeout,
		logger:      log.New(os.Stdout, "[Knowledge] ", log.LstdFlags),
	}, nil
}

func (k *Knowledge) Name() string                 { return "knowledge" }
func (k *Knowledge) Category() types.ToolCategory { return types.CategoryKnowledge }

// knowledgeDoc is the indexed document schema.
type knowledgeDoc struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	URL       string `json:"url"`
	Category  string `json:"category"`
	UpdatedAt string `json:"updated_at"`
}

func (k *Knowledge) Execute(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error) {
	maxResults := intParam(params, "max_results", 10)

	if err := k.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()

	searchBody := map[string]interface{}{
		"size": maxResults,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"title^2", "content"},
				"type":   "best_fields",
			},
		},
	}
	bodyJSON, err := json.Marshal(searchBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search body: %w", err)
	}

	resp, err := k.client.Search(ctx, &opensearchapi.SearchReq{
		Indices: []string{k.index},
		Body:    strings.NewReader(string(bodyJSON)),
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge search failed: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("received nil response from OpenSearch")
	}

	maxScore := 0.0
	for _, hit := range resp.Hits.Hits {
		if float64(hit.Score) > maxScore {
			maxScore = float64(hit.Score)
		}
	}

	results := make([]types.SearchResult, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		if formatted := k.FormatResult(hit.Source, float64(hit.Score), maxScore); formatted != nil {
			results = append(results, *formatted)
		}
	}

	k.logger.Printf("query %q matched %d documents in %dms", query, len(results), resp.Took)
	return results, nil
}

// FormatResult converts one indexed document. The BM25 score is normalized
// against the best score in the same response.
func (k *Knowledge) FormatResult(source json.RawMessage, score, maxScore float64) *types.SearchResult {
	var doc knowledgeDoc
	if err := json.Unmarshal(source, &doc); err != nil {
		return nil
	}
	if doc.Title == "" || doc.URL == "" {
		return nil
	}

	snippet := clampSnippet(doc.Content, 300)

	var publishedAt *time.Time
	if doc.UpdatedAt != "" {
		if t, err := time.Parse(time.RFC3339, doc.UpdatedAt); err == nil {
			publishedAt = &t
		}
	}

	base := 0.0
	if maxScore > 0 {
		base = score / maxScore
	}

	result := &types.SearchResult{
		Title:         doc.Title,
		URL:           doc.URL,
		Snippet:       strings.TrimSpace(snippet),
		SourceName:    "Knowledge Base",
		SourceTool:    k.Name(),
		Category:      types.CategoryKnowledge,
		PublishedAt:   publishedAt,
		BaseRelevance: base,
	}
	if doc.Category != "" {
		result.ProviderMetadata = map[string]interface{}{"category": doc.Category}
	}
	return result
}
