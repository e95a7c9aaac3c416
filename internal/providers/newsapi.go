package providers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/searchmux/searchmux/internal/types"
)

const newsAPIEndpoint = "https://newsapi.org/v2/everything"

// NewsAPI searches recent news articles. Registered only when an API key is
// configured.
type NewsAPI struct {
	doer    *httpDoer
	apiKey  string
	baseURL string
	logger  *log.Logger
	now     func() time.Time
}

func NewNewsAPI(doer *httpDoer, apiKey string) *NewsAPI {
	return &NewsAPI{
		doer:    doer,
		apiKey:  apiKey,
		baseURL: newsAPIEndpoint,
		logger:  log.New(os.Stdout, "[NewsAPI] ", log.LstdFlags),
		now:     time.Now,
	}
}

func (n *NewsAPI) Name() string                 { return "newsapi" }
func (n *NewsAPI) Category() types.ToolCategory { return types.CategoryNews }

type newsArticle struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
	PublishedAt string `json:"publishedAt"`
	Source      struct {
		Name string `json:"name"`
	} `json:"source"`
	Author string `json:"author"`
}

type newsResponse struct {
	Status       string        `json:"status"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
	TotalResults int           `json:"totalResults"`
	Articles     []newsArticle `json:"articles"`
}

func (n *NewsAPI) Execute(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error) {
	maxResults := intParam(params, "max_results", 10)

	values := url.Values{}
	values.Set("q", query)
	values.Set("pageSize", fmt.Sprintf("%d", maxResults))
	values.Set("language", "en")
	if from := stringParam(params, "from_date"); from != "" {
		values.Set("from", from)
	}
	if sortBy := stringParam(params, "sort_by"); sortBy != "" {
		values.Set("sortBy", sortBy)
	}

	var resp newsResponse
	headers := map[string]string{"X-Api-Key": n.apiKey}
	if err := n.doer.getJSON(ctx, n.baseURL+"?"+values.Encode(), headers, &resp); err != nil {
		return nil, fmt.Errorf("newsapi fetch: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("newsapi error %s: %s", resp.Code, resp.Message)
	}

	results := make([]types.SearchResult, 0, len(resp.Articles))
	for _, article := range resp.Articles {
		if formatted := n.FormatResult(article); formatted != nil {
			results = append(results, *formatted)
		}
		if len(results) >= maxResults {
			break
		}
	}

	n.logger.Printf("query %q returned %d/%d articles", query, len(results), resp.TotalResults)
	return results, nil
}

// FormatResult converts one article, dropping removed or untitled entries.
func (n *NewsAPI) FormatResult(article newsArticle) *types.SearchResult {
	if article.Title == "" || article.URL == "" || article.Title == "[Removed]" {
		return nil
	}

	var publishedAt *time.Time
	if article.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, article.PublishedAt); err == nil {
			publishedAt = &t
		}
	}

	result := &types.SearchResult{
		Title:         article.Title,
		URL:           article.URL,
		Snippet:       strings.TrimSpace(article.Description),
		SourceName:    article.Source.Name,
		SourceTool:    n.Name(),
		Category:      types.CategoryNews,
		PublishedAt:   publishedAt,
		BaseRelevance: n.freshness(publishedAt),
	}
	if article.Author != "" {
		result.ProviderMetadata = map[string]interface{}{"author": article.Author}
	}
	return result
}

// freshness buckets article age into a relevance score. Newer is better;
// undated articles score lowest.
func (n *NewsAPI) freshness(publishedAt *time.Time) float64 {
	if publishedAt == nil {
		return 0.2
	}
	age := n.now().Sub(*publishedAt)
	switch {
	case age <= 6*time.Hour:
		return 1.0
	case age <= 24*time.Hour:
		return 0.8
	case age <= 72*time.Hour:
		return 0.6
	case age <= 168*time.Hour:
		return 0.4
	default:
		return 0.2
	}
}

func stringParam(params map[string]interface{}, key string) string {
	if params == nil {
		return ""
	}
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}
