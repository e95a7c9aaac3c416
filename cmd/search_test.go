package cmd

import (
	"strings"
	"testing"
	"time"

	"github.com/searchmux/searchmux/internal/types"
)

func TestFormatSearchResponse(t *testing.T) {
	response := &types.OrchestrationResponse{
		Success: true,
		Query:   "battery technology",
		Analysis: types.AnalysisSummary{
			MainTopic:     "battery technology",
			TemporalScope: types.TemporalRecent,
		},
		Results: []types.SearchResult{
			{
				Title:      "Solid state batteries",
				URL:        "https://example.com/solid-state",
				Snippet:    "An overview of solid state battery research.",
				SourceTool: "semanticscholar",
				FinalScore: 0.91,
			},
			{
				Title:      "Battery news",
				URL:        "https://news.example.com/batteries",
				SourceTool: "newsapi",
				FinalScore: 0.74,
			},
		},
		Metadata: types.OrchestrationMetadata{
			ToolsUsed:         []string{"newsapi", "semanticscholar"},
			ExecutionStrategy: "parallel",
			ExecutionTime:     1200 * time.Millisecond,
		},
	}

	out := formatSearchResponse(response)

	for _, want := range []string{
		"Query: battery technology",
		"Providers: newsapi, semanticscholar",
		"Results (2):",
		"[0.910] Solid state batteries",
		"https://example.com/solid-state (semanticscholar)",
		"An overview of solid state battery research.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatSearchResponseNoResults(t *testing.T) {
	response := &types.OrchestrationResponse{
		Success: false,
		Query:   "nothing",
		Error:   "no results found",
	}

	out := formatSearchResponse(response)
	if !strings.Contains(out, "No results: no results found") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestTruncateSnippet(t *testing.T) {
	if got := truncateSnippet("short", 10); got != "short" {
		t.Fatalf("short strings should pass through, got %q", got)
	}

	long := strings.Repeat("a", 200)
	got := truncateSnippet(long, 160)
	if len([]rune(got)) != 163 || !strings.HasSuffix(got, "...") {
		t.Fatalf("unexpected truncation: %d runes", len([]rune(got)))
	}
}
