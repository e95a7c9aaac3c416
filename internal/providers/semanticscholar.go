package providers

import (
	"context"
	"fmt"
	"log"
	"math"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/searchmux/searchmux/internal/types"
)

const scholarAPIBase = "https://api.semanticscholar.org/graph/v1"

const paperFields = "title,abstract,url,year,publicationDate,citationCount,influentialCitationCount,isOpenAccess,venue"
const authorFields = "name,url,affiliations,hIndex,citationCount,paperCount"

// scholarClient is shared by the paper and expert adapters so they use one
// session, one key, and one rate budget against the same API.
type scholarClient struct {
	doer    *httpDoer
	apiKey  string
	baseURL string
}

func newScholarClient(doer *httpDoer, apiKey string) *scholarClient {
	return &scholarClient{doer: doer, apiKey: apiKey, baseURL: scholarAPIBase}
}

func (c *scholarClient) get(ctx context.Context, path string, values url.Values, out interface{}) error {
	headers := map[string]string{}
	if c.apiKey != "" {
		headers["x-api-key"] = c.apiKey
	}
	return c.doer.getJSON(ctx, c.baseURL+path+"?"+values.Encode(), headers, out)
}

// SemanticScholar searches the academic paper graph.
type SemanticScholar struct {
	client *scholarClient
	logger *log.Logger
	now    func() time.Time
}

func NewSemanticScholar(client *scholarClient) *SemanticScholar {
	return &SemanticScholar{
		client: client,
		logger: log.New(os.Stdout, "[SemanticScholar] ", log.LstdFlags),
		now:    time.Now,
	}
}

func (s *SemanticScholar) Name() string                 { return "semanticscholar" }
func (s *SemanticScholar) Category() types.ToolCategory { return types.CategoryAcademic }

type scholarPaper struct {
	Title                    string `json:"title"`
	Abstract                 string `json:"abstract"`
	URL                      string `json:"url"`
	Year                     int    `json:"year"`
	PublicationDate          string `json:"publicationDate"`
	CitationCount            int    `json:"citationCount"`
	InfluentialCitationCount int    `json:"influentialCitationCount"`
	IsOpenAccess             bool   `json:"isOpenAccess"`
	Venue                    string `json:"venue"`
}

type paperSearchResponse struct {
	Total int            `json:"total"`
	Data  []scholarPaper `json:"data"`
}

func (s *SemanticScholar) Execute(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error) {
	maxResults := intParam(params, "max_results", 10)

	values := url.Values{}
	values.Set("query", query)
	values.Set("limit", fmt.Sprintf("%d", maxResults))
	values.Set("fields", paperFields)
	if yearFilter := stringParam(params, "year_filter"); yearFilter != "" {
		values.Set("year", yearFilter)
	}
	if minCitations := intParam(params, "min_citations", 0); minCitations > 0 {
		values.Set("minCitationCount", fmt.Sprintf("%d", minCitations))
	}

	var resp paperSearchResponse
	if err := s.client.get(ctx, "/paper/search", values, &resp); err != nil {
		return nil, fmt.Errorf("semantic scholar fetch: %w", err)
	}

	results := make([]types.SearchResult, 0, len(resp.Data))
	for _, paper := range resp.Data {
		if formatted := s.FormatResult(paper); formatted != nil {
			results = append(results, *formatted)
		}
		if len(results) >= maxResults {
			break
		}
	}

	s.logger.Printf("query %q matched %d papers (total=%d)", query, len(results), resp.Total)
	return results, nil
}

// FormatResult converts one paper. Papers without a title or URL are dropped.
func (s *SemanticScholar) FormatResult(paper scholarPaper) *types.SearchResult {
	if paper.Title == "" || paper.URL == "" {
		return nil
	}

	snippet := clampSnippet(strings.TrimSpace(paper.Abstract), 300)

	var publishedAt *time.Time
	if paper.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", paper.PublicationDate); err == nil {
			publishedAt = &t
		}
	}

	return &types.SearchResult{
		Title:         paper.Title,
		URL:           paper.URL,
		Snippet:       snippet,
		SourceName:    "Semantic Scholar",
		SourceTool:    s.Name(),
		Category:      types.CategoryAcademic,
		PublishedAt:   publishedAt,
		BaseRelevance: s.paperRelevance(paper),
		ProviderMetadata: map[string]interface{}{
			"citation_count": paper.CitationCount,
			"year":           paper.Year,
			"venue":          paper.Venue,
			"open_access":    paper.IsOpenAccess,
		},
	}
}

// paperRelevance blends citation impact with recency and publication
// quality signals. Citation weight saturates so one mega-cited paper does
// not drown everything else.
func (s *SemanticScholar) paperRelevance(paper scholarPaper) float64 {
	score := math.Min(math.Log10(float64(paper.CitationCount)+1)*0.2, 0.4)

	if paper.InfluentialCitationCount > 5 {
		score += 0.1
	}

	currentYear := s.now().Year()
	switch {
	case paper.Year >= currentYear-2:
		score += 0.2
	case paper.Year >= currentYear-5:
		score += 0.1
	}

	if paper.IsOpenAccess {
		score += 0.1
	}
	if paper.Venue != "" {
		score += 0.1
	}

	if score > 1 {
		score = 1
	}
	return score
}

// ExpertFinder surfaces researchers instead of papers, using the author
// search endpoint of the same academic graph.
type ExpertFinder struct {
	client *scholarClient
	logger *log.Logger
}

func NewExpertFinder(client *scholarClient) *ExpertFinder {
	return &ExpertFinder{
		client: client,
		logger: log.New(os.Stdout, "[ExpertFinder] ", log.LstdFlags),
	}
}

func (e *ExpertFinder) Name() string                 { return "expertfinder" }
func (e *ExpertFinder) Category() types.ToolCategory { return types.CategoryExpert }

type scholarAuthor struct {
	Name          string   `json:"name"`
	URL           string   `json:"url"`
	Affiliations  []string `json:"affiliations"`
	HIndex        int      `json:"hIndex"`
	CitationCount int      `json:"citationCount"`
	PaperCount    int      `json:"paperCount"`
}

type authorSearchResponse struct {
	Total int             `json:"total"`
	Data  []scholarAuthor `json:"data"`
}

func (e *ExpertFinder) Execute(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error) {
	maxResults := intParam(params, "max_results", 10)

	values := url.Values{}
	values.Set("query", query)
	values.Set("limit", fmt.Sprintf("%d", maxResults))
	values.Set("fields", authorFields)

	var resp authorSearchResponse
	if err := e.client.get(ctx, "/author/search", values, &resp); err != nil {
		return nil, fmt.Errorf("expert search fetch: %w", err)
	}

	results := make([]types.SearchResult, 0, len(resp.Data))
	for _, author := range resp.Data {
		if formatted := e.FormatResult(author); formatted != nil {
			results = append(results, *formatted)
		}
		if len(results) >= maxResults {
			break
		}
	}

	e.logger.Printf("query %q matched %d authors", query, len(results))
	return results, nil
}

// FormatResult converts one author profile into the shared schema.
func (e *ExpertFinder) FormatResult(author scholarAuthor) *types.SearchResult {
	if author.Name == "" || author.URL == "" {
		return nil
	}

	snippet := fmt.Sprintf("%d papers, %d citations, h-index %d",
		author.PaperCount, author.CitationCount, author.HIndex)
	if len(author.Affiliations) > 0 {
		snippet = strings.Join(author.Affiliations, "; ") + ". " + snippet
	}

	return &types.SearchResult{
		Title:         author.Name,
		URL:           author.URL,
		Snippet:       snippet,
		SourceName:    "Semantic Scholar Authors",
		SourceTool:    e.Name(),
		Category:      types.CategoryExpert,
		BaseRelevance: authorRelevance(author),
		ProviderMetadata: map[string]interface{}{
			"h_index":        author.HIndex,
			"citation_count": author.CitationCount,
			"paper_count":    author.PaperCount,
		},
	}
}

// authorRelevance favors sustained impact (h-index) over raw citations.
func authorRelevance(author scholarAuthor) float64 {
	hScore := math.Min(float64(author.HIndex)/50.0, 1.0)
	cScore := math.Min(math.Log10(float64(author.CitationCount)+1)/6.0, 1.0)
	return 0.7*hScore + 0.3*cScore
}
