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

const patentsEndpoint = "https://patents.google.com/xhr/query"

// GooglePatents searches the public patent registry through the same JSON
// endpoint the web UI uses.
type GooglePatents struct {
	doer    *httpDoer
	baseURL string
	logger  *log.Logger
	now     func() time.Time
}

func NewGooglePatents(doer *httpDoer) *GooglePatents {
	return &GooglePatents{
		doer:    doer,
		baseURL: patentsEndpoint,
		logger:  log.New(os.Stdout, "[GooglePatents] ", log.LstdFlags),
		now:     time.Now,
	}
}

func (g *GooglePatents) Name() string                 { return "googlepatents" }
func (g *GooglePatents) Category() types.ToolCategory { return types.CategoryPatent }

type patentHit struct {
	PublicationNumber string `json:"publication_number"`
	Title             string `json:"title"`
	Snippet           string `json:"snippet"`
	PublicationDate   string `json:"publication_date"`
	Assignee          string `json:"assignee"`
	Inventor          string `json:"inventor"`
}

type patentQueryResponse struct {
	Results struct {
		TotalNumResults int `json:"total_num_results"`
		Cluster         []struct {
			Result []struct {
				Patent patentHit `json:"patent"`
				Rank   int       `json:"rank"`
			} `json:"result"`
		} `json:"cluster"`
	} `json:"results"`
}

func (g *GooglePatents) Execute(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error) {
	maxResults := intParam(params, "max_results", 10)

	// The endpoint expects the UI query string nested inside the url param.
	inner := "q=" + url.QueryEscape(query)
	searchURL := g.baseURL + "?url=" + url.QueryEscape(inner)

	var resp patentQueryResponse
	if err := g.doer.getJSON(ctx, searchURL, nil, &resp); err != nil {
		return nil, fmt.Errorf("patent fetch: %w", err)
	}

	results := make([]types.SearchResult, 0, maxResults)
	rank := 0
	for _, cluster := range resp.Results.Cluster {
		for _, hit := range cluster.Result {
			if formatted := g.formatResult(hit.Patent, rank); formatted != nil {
				results = append(results, *formatted)
			}
			rank++
			if len(results) >= maxResults {
				break
			}
		}
		if len(results) >= maxResults {
			break
		}
	}

	g.logger.Printf("query %q matched %d patents (total=%d)", query, len(results), resp.Results.TotalNumResults)
	return results, nil
}

// FormatResult converts one patent hit as if it were the first-ranked one.
func (g *GooglePatents) FormatResult(hit patentHit) *types.SearchResult {
	return g.formatResult(hit, 0)
}

func (g *GooglePatents) formatResult(hit patentHit, rank int) *types.SearchResult {
	if hit.PublicationNumber == "" || hit.Title == "" {
		return nil
	}

	var publishedAt *time.Time
	if hit.PublicationDate != "" {
		if t, err := time.Parse("2006-01-02", hit.PublicationDate); err == nil {
			publishedAt = &t
		}
	}

	return &types.SearchResult{
		Title:         cleanPatentText(hit.Title),
		URL:           fmt.Sprintf("https://patents.google.com/patent/%s/en", hit.PublicationNumber),
		Snippet:       cleanPatentText(hit.Snippet),
		SourceName:    "Google Patents",
		SourceTool:    g.Name(),
		Category:      types.CategoryPatent,
		PublishedAt:   publishedAt,
		BaseRelevance: g.patentRelevance(rank, publishedAt, hit.Assignee),
		ProviderMetadata: map[string]interface{}{
			"publication_number": hit.PublicationNumber,
			"assignee":           hit.Assignee,
			"inventor":           hit.Inventor,
		},
	}
}

func (g *GooglePatents) patentRelevance(rank int, publishedAt *time.Time, assignee string) float64 {
	score := 0.6 / (1.0 + 0.15*float64(rank))
	if publishedAt != nil && g.now().Sub(*publishedAt) <= 5*365*24*time.Hour {
		score += 0.2
	}
	if assignee != "" {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// cleanPatentText strips the embedded highlight markup the endpoint returns.
func cleanPatentText(s string) string {
	s = strings.ReplaceAll(s, "<b>", "")
	s = strings.ReplaceAll(s, "</b>", "")
	return strings.TrimSpace(s)
}
