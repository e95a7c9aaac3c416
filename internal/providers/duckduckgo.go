package providers

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/searchmux/searchmux/internal/types"
)

const duckDuckGoEndpoint = "https://html.duckduckgo.com/html/"

// DuckDuckGo is the general-purpose web adapter. It scrapes the HTML search
// endpoint, which needs no API key.
type DuckDuckGo struct {
	doer    *httpDoer
	baseURL string
	logger  *log.Logger
}

func NewDuckDuckGo(doer *httpDoer) *DuckDuckGo {
	return &DuckDuckGo{
		doer:    doer,
		baseURL: duckDuckGoEndpoint,
		logger:  log.New(os.Stdout, "[DuckDuckGo] ", log.LstdFlags),
	}
}

func (d *DuckDuckGo) Name() string                 { return "duckduckgo" }
func (d *DuckDuckGo) Category() types.ToolCategory { return types.CategoryWeb }

// rawWebResult is one scraped search hit before formatting.
type rawWebResult struct {
	Title   string
	URL     string
	Snippet string
	Rank    int
	Query   string
}

func (d *DuckDuckGo) Execute(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error) {
	maxResults := intParam(params, "max_results", 10)

	searchURL := d.baseURL + "?q=" + url.QueryEscape(query)
	doc, err := d.doer.getDocument(ctx, searchURL)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo fetch: %w", err)
	}

	results := make([]types.SearchResult, 0, maxResults)
	doc.Find("div.result").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		anchor := sel.Find("a.result__a").First()
		href, _ := anchor.Attr("href")
		raw := rawWebResult{
			Title:   strings.TrimSpace(anchor.Text()),
			URL:     resolveRedirect(href),
			Snippet: strings.TrimSpace(sel.Find(".result__snippet").First().Text()),
			Rank:    i,
			Query:   query,
		}
		if formatted := d.FormatResult(raw); formatted != nil {
			results = append(results, *formatted)
		}
		return len(results) < maxResults
	})

	d.logger.Printf("query %q returned %d results", query, len(results))
	return results, nil
}

// FormatResult converts one scraped hit into the shared schema. A hit with
// no usable title or URL is dropped.
func (d *DuckDuckGo) FormatResult(raw rawWebResult) *types.SearchResult {
	if raw.Title == "" || raw.URL == "" {
		return nil
	}
	if !strings.HasPrefix(raw.URL, "http") {
		return nil
	}
	return &types.SearchResult{
		Title:         raw.Title,
		URL:           raw.URL,
		Snippet:       raw.Snippet,
		SourceName:    "DuckDuckGo",
		SourceTool:    d.Name(),
		Category:      types.CategoryWeb,
		BaseRelevance: webRelevance(raw),
	}
}

// webRelevance scores a general web hit from its rank, how many query terms
// appear in the title and snippet, and snippet substance.
func webRelevance(raw rawWebResult) float64 {
	rankScore := 1.0 / (1.0 + 0.1*float64(raw.Rank))

	haystack := strings.ToLower(raw.Title + " " + raw.Snippet)
	terms := strings.Fields(strings.ToLower(raw.Query))
	matched := 0
	for _, t := range terms {
		if strings.Contains(haystack, t) {
			matched++
		}
	}
	overlap := 0.0
	if len(terms) > 0 {
		overlap = float64(matched) / float64(len(terms))
	}

	snippetFactor := float64(len(raw.Snippet)) / 200.0
	if snippetFactor > 1 {
		snippetFactor = 1
	}

	score := 0.5*rankScore + 0.35*overlap + 0.15*snippetFactor
	if score > 1 {
		score = 1
	}
	return score
}

// resolveRedirect unwraps the uddg redirect links the HTML endpoint emits.
func resolveRedirect(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := parsed.Query().Get("uddg"); target != "" {
		if decoded, err := url.QueryUnescape(target); err == nil {
			return decoded
		}
		return target
	}
	return href
}

// intParam reads an integer provider parameter, tolerating the float64 shape
// JSON decoding produces.
func intParam(params map[string]interface{}, key string, fallback int) int {
	if params == nil {
		return fallback
	}
	switch v := params[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return fallback
}
