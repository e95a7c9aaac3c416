package rank

import (
	"fmt"
	"testing"

	"github.com/searchmux/searchmux/internal/types"
)

func result(tool, url string, base float64) types.SearchResult {
	return types.SearchResult{
		Title:         "title " + url,
		URL:           url,
		SourceTool:    tool,
		BaseRelevance: base,
	}
}

func planEntry(tool string, priority float64) types.ExecutionPlanEntry {
	return types.ExecutionPlanEntry{ToolName: tool, Priority: priority}
}

func TestOnlySuccessContributes(t *testing.T) {
	a := NewAggregator(DefaultPolicy())
	plan := []types.ExecutionPlanEntry{
		planEntry("web", 1.0),
		planEntry("news", 0.8),
		planEntry("academic", 0.9),
	}
	outcomes := map[string]types.ToolOutcome{
		"web": {ToolName: "web", Status: types.OutcomeSuccess, Results: []types.SearchResult{
			result("web", "https://a.example.com/1", 0.5),
		}},
		"news":     {ToolName: "news", Status: types.OutcomeError, Error: "boom", Results: []types.SearchResult{result("news", "https://b.example.com/1", 0.9)}},
		"academic": {ToolName: "academic", Status: types.OutcomeEmpty},
	}

	ranked := a.Aggregate(plan, outcomes, 10)
	if len(ranked) != 1 {
		t.Fatalf("got %d results, want 1 (only success outcomes count)", len(ranked))
	}
	if ranked[0].SourceTool != "web" {
		t.Errorf("unexpected source: %s", ranked[0].SourceTool)
	}
}

func TestDedupKeepsHigherPriorityTool(t *testing.T) {
	a := NewAggregator(DefaultPolicy())
	plan := []types.ExecutionPlanEntry{
		planEntry("news", 0.6),
		planEntry("web", 1.0),
	}
	outcomes := map[string]types.ToolOutcome{
		"news": {ToolName: "news", Status: types.OutcomeSuccess, Results: []types.SearchResult{
			result("news", "https://www.example.com/story/", 0.9),
		}},
		"web": {ToolName: "web", Status: types.OutcomeSuccess, Results: []types.SearchResult{
			result("web", "https://example.com/story", 0.4),
		}},
	}

	ranked := a.Aggregate(plan, outcomes, 10)
	if len(ranked) != 1 {
		t.Fatalf("got %d results, want 1 after dedup", len(ranked))
	}
	if ranked[0].SourceTool != "web" {
		t.Errorf("kept %s instance, want the higher-priority web one", ranked[0].SourceTool)
	}
}

func TestScoreBlendAndBounds(t *testing.T) {
	a := NewAggregator(DefaultPolicy())
	plan := []types.ExecutionPlanEntry{planEntry("web", 0.5)}
	outcomes := map[string]types.ToolOutcome{
		"web": {ToolName: "web", Status: types.OutcomeSuccess, Results: []types.SearchResult{
			result("web", "https://example.com/a", 0.8),
			result("web", "https://example.com/b", 3.0),
			result("web", "https://example.com/c", -1.0),
		}},
	}

	ranked := a.Aggregate(plan, outcomes, 10)
	want := 0.7*0.8 + 0.3*0.5
	if diff := ranked[1].FinalScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("final score = %f, want %f", ranked[1].FinalScore, want)
	}
	for _, r := range ranked {
		if r.FinalScore < 0 || r.FinalScore > 1 {
			t.Errorf("final score %f out of [0,1]", r.FinalScore)
		}
	}
}

func TestSortedAndTruncated(t *testing.T) {
	a := NewAggregator(DefaultPolicy())
	plan := []types.ExecutionPlanEntry{planEntry("web", 1.0)}
	results := make([]types.SearchResult, 8)
	for i := range results {
		results[i] = result("web", fmt.Sprintf("https://example.com/%d", i), float64(i)*0.1)
	}
	outcomes := map[string]types.ToolOutcome{
		"web": {ToolName: "web", Status: types.OutcomeSuccess, Results: results},
	}

	ranked := a.Aggregate(plan, outcomes, 5)
	if len(ranked) != 5 {
		t.Fatalf("got %d results, want 5", len(ranked))
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].FinalScore > ranked[i-1].FinalScore {
			t.Errorf("results not sorted at %d: %f > %f", i, ranked[i].FinalScore, ranked[i-1].FinalScore)
		}
	}
}

func TestStableTieBreakOnDiscoveryOrder(t *testing.T) {
	a := NewAggregator(DefaultPolicy())
	plan := []types.ExecutionPlanEntry{planEntry("web", 1.0)}
	outcomes := map[string]types.ToolOutcome{
		"web": {ToolName: "web", Status: types.OutcomeSuccess, Results: []types.SearchResult{
			result("web", "https://example.com/first", 0.5),
			result("web", "https://example.com/second", 0.5),
		}},
	}

	ranked := a.Aggregate(plan, outcomes, 10)
	if ranked[0].URL != "https://example.com/first" {
		t.Errorf("tie not broken by discovery order: %s first", ranked[0].URL)
	}
}

func TestDeterministic(t *testing.T) {
	a := NewAggregator(DefaultPolicy())
	plan := []types.ExecutionPlanEntry{
		planEntry("web", 1.0),
		planEntry("academic", 0.9),
		planEntry("news", 0.7),
	}
	outcomes := map[string]types.ToolOutcome{
		"web":      {ToolName: "web", Status: types.OutcomeSuccess, Results: []types.SearchResult{result("web", "https://example.com/w", 0.6)}},
		"academic": {ToolName: "academic", Status: types.OutcomeSuccess, Results: []types.SearchResult{result("academic", "https://example.com/a", 0.8)}},
		"news":     {ToolName: "news", Status: types.OutcomeSuccess, Results: []types.SearchResult{result("news", "https://example.com/n", 0.8)}},
	}

	first := a.Aggregate(plan, outcomes, 10)
	for i := 0; i < 20; i++ {
		again := a.Aggregate(plan, outcomes, 10)
		if len(again) != len(first) {
			t.Fatalf("result count changed on run %d", i)
		}
		for j := range first {
			if first[j].URL != again[j].URL || first[j].FinalScore != again[j].FinalScore {
				t.Fatalf("output changed on run %d at position %d", i, j)
			}
		}
	}
}

func TestNormalizeURL(t *testing.T) {
	cases := []struct{ in, want string }{
		{"https://WWW.Example.com/Path/", "https://example.com/Path"},
		{"https://example.com/path#frag", "https://example.com/path"},
		{"https://example.com/path?q=1", "https://example.com/path?q=1"},
		{"https://example.com", "https://example.com"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeURL(tc.in); got != tc.want {
			t.Errorf("NormalizeURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
