package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/searchmux/searchmux/internal/providers"
	"github.com/searchmux/searchmux/internal/reformulate"
	"github.com/searchmux/searchmux/internal/types"
)

type fakeProvider struct {
	name     string
	category types.ToolCategory
	execute  func(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error)
}

func (f *fakeProvider) Name() string                 { return f.name }
func (f *fakeProvider) Category() types.ToolCategory { return f.category }
func (f *fakeProvider) Execute(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error) {
	return f.execute(ctx, query, params)
}

type fakeSource map[string]*fakeProvider

func (s fakeSource) Get(name string) (providers.Provider, bool) {
	p, ok := s[name]
	return p, ok
}

func resultsFor(tool string, n int) []types.SearchResult {
	out := make([]types.SearchResult, n)
	for i := range out {
		out[i] = types.SearchResult{
			Title:      fmt.Sprintf("%s result %d", tool, i),
			URL:        fmt.Sprintf("https://%s.example.com/%d", tool, i),
			SourceTool: tool,
		}
	}
	return out
}

func staticProvider(name string, category types.ToolCategory, n int) *fakeProvider {
	return &fakeProvider{
		name:     name,
		category: category,
		execute: func(ctx context.Context, query string, params map[string]interface{}) ([]types.SearchResult, error) {
			return resultsFor(name, n), nil
		},
	}
}

func planFor(tools ...string) []types.ExecutionPlanEntry {
	plan := make([]types.ExecutionPlanEntry, 0, len(tools))
	for _, tool := range tools {
		plan = append(plan, types.ExecutionPlanEntry{
			ToolName:          tool,
			Category:          types.CategoryWeb,
			ReformulatedQuery: "test query",
			MaxResults:        5,
			Priority:          1.0,
		})
	}
	return plan
}

func testDispatcher(source fakeSource) *Dispatcher {
	cfg := &types.Config{
		SearchTimeoutSeconds: 5,
		MaxParallelTools:     4,
		EnableParallelSearch: true,
		RetryAttempts:        3,
		RetryBaseDelay:       time.Millisecond,
	}
	return New(cfg, source, reformulate.NewDefault())
}

func TestExactlyNOutcomes(t *testing.T) {
	source := fakeSource{
		"web":  staticProvider("web", types.CategoryWeb, 3),
		"news": {name: "news", category: types.CategoryNews, execute: func(ctx context.Context, q string, p map[string]interface{}) ([]types.SearchResult, error) {
			return nil, errors.New("connection refused")
		}},
		"academic": {name: "academic", category: types.CategoryAcademic, execute: func(ctx context.Context, q string, p map[string]interface{}) ([]types.SearchResult, error) {
			return nil, nil
		}},
	}
	d := testDispatcher(source)

	outcomes := d.ExecutePlan(context.Background(), planFor("web", "news", "academic"))
	if len(outcomes) != 3 {
		t.Fatalf("got %d outcomes, want 3", len(outcomes))
	}
	for _, tool := range []string{"web", "news", "academic"} {
		if _, ok := outcomes[tool]; !ok {
			t.Errorf("missing outcome for %s", tool)
		}
	}
}

func TestErrorIsolation(t *testing.T) {
	source := fakeSource{
		"web": staticProvider("web", types.CategoryWeb, 2),
		"news": {name: "news", category: types.CategoryNews, execute: func(ctx context.Context, q string, p map[string]interface{}) ([]types.SearchResult, error) {
			return nil, errors.New("dial tcp: connection refused")
		}},
	}
	d := testDispatcher(source)

	outcomes := d.ExecutePlan(context.Background(), planFor("web", "news"))
	if outcomes["news"].Status != types.OutcomeError {
		t.Errorf("news status = %s, want error", outcomes["news"].Status)
	}
	if outcomes["news"].Error == "" {
		t.Error("news outcome missing error message")
	}
	if outcomes["web"].Status != types.OutcomeSuccess {
		t.Errorf("web status = %s, want success", outcomes["web"].Status)
	}
	if len(outcomes["web"].Results) != 2 {
		t.Errorf("web results = %d, want 2", len(outcomes["web"].Results))
	}
}

func TestEmptyTriggersReformulation(t *testing.T) {
	calls := []string{}
	source := fakeSource{
		"academic": {name: "academic", category: types.CategoryAcademic, execute: func(ctx context.Context, q string, p map[string]interface{}) ([]types.SearchResult, error) {
			calls = append(calls, q)
			if len(calls) >= 2 {
				return resultsFor("academic", 3), nil
			}
			return nil, nil
		}},
	}
	cfg := &types.Config{
		SearchTimeoutSeconds: 5,
		MaxParallelTools:     1,
		EnableParallelSearch: false,
		RetryAttempts:        3,
		RetryBaseDelay:       time.Millisecond,
	}
	d := New(cfg, source, reformulate.NewDefault())

	plan := []types.ExecutionPlanEntry{{
		ToolName:          "academic",
		Category:          types.CategoryAcademic,
		ReformulatedQuery: "quantum computing research",
		MaxResults:        5,
	}}
	outcomes := d.ExecutePlan(context.Background(), plan)

	outcome := outcomes["academic"]
	if outcome.Status != types.OutcomeSuccess {
		t.Fatalf("status = %s, want success", outcome.Status)
	}
	if len(outcome.Results) != 3 {
		t.Errorf("results = %d, want 3", len(outcome.Results))
	}
	if outcome.ReformulationUsed == "" {
		t.Error("reformulation_used not recorded")
	}
	if outcome.Attempts != 2 {
		t.Errorf("attempts = %d, want 2", outcome.Attempts)
	}
	if len(calls) != 2 {
		t.Errorf("provider called %d times, want 2", len(calls))
	}
	if calls[1] == calls[0] {
		t.Error("retry reused the original query")
	}
}

func TestAllEmptyEndsEmpty(t *testing.T) {
	calls := 0
	source := fakeSource{
		"web": {name: "web", category: types.CategoryWeb, execute: func(ctx context.Context, q string, p map[string]interface{}) ([]types.SearchResult, error) {
			calls++
			return []types.SearchResult{}, nil
		}},
	}
	d := testDispatcher(source)

	outcomes := d.ExecutePlan(context.Background(), planFor("web"))
	outcome := outcomes["web"]
	if outcome.Status != types.OutcomeEmpty {
		t.Fatalf("status = %s, want empty (never error)", outcome.Status)
	}
	// Original attempt plus up to the retry budget of reformulations.
	if calls < 2 || calls > 4 {
		t.Errorf("provider called %d times", calls)
	}
}

func TestGlobalTimeout(t *testing.T) {
	slow := func(ctx context.Context, q string, p map[string]interface{}) ([]types.SearchResult, error) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(10 * time.Second):
			return resultsFor("slow", 1), nil
		}
	}
	source := fakeSource{
		"web":  {name: "web", category: types.CategoryWeb, execute: slow},
		"news": {name: "news", category: types.CategoryNews, execute: slow},
	}
	cfg := &types.Config{
		SearchTimeoutSeconds: 1,
		MaxParallelTools:     4,
		EnableParallelSearch: true,
		RetryAttempts:        3,
		RetryBaseDelay:       time.Millisecond,
	}
	d := New(cfg, source, reformulate.NewDefault())
	d.timeout = 50 * time.Millisecond

	start := time.Now()
	outcomes := d.ExecutePlan(context.Background(), planFor("web", "news"))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("batch did not respect deadline, took %v", elapsed)
	}

	if len(outcomes) != 2 {
		t.Fatalf("got %d outcomes, want 2", len(outcomes))
	}
	for tool, outcome := range outcomes {
		if outcome.Status != types.OutcomeTimeout {
			t.Errorf("%s status = %s, want timeout", tool, outcome.Status)
		}
	}
}

func TestSequentialMatchesParallel(t *testing.T) {
	source := fakeSource{
		"web":      staticProvider("web", types.CategoryWeb, 3),
		"academic": staticProvider("academic", types.CategoryAcademic, 2),
		"news": {name: "news", category: types.CategoryNews, execute: func(ctx context.Context, q string, p map[string]interface{}) ([]types.SearchResult, error) {
			return nil, errors.New("boom")
		}},
	}
	plan := planFor("web", "academic", "news")

	parallelCfg := &types.Config{
		SearchTimeoutSeconds: 5,
		MaxParallelTools:     4,
		EnableParallelSearch: true,
		RetryAttempts:        2,
		RetryBaseDelay:       time.Millisecond,
	}
	sequentialCfg := &types.Config{
		SearchTimeoutSeconds: 5,
		MaxParallelTools:     4,
		EnableParallelSearch: false,
		RetryAttempts:        2,
		RetryBaseDelay:       time.Millisecond,
	}

	p := New(parallelCfg, source, reformulate.NewDefault())
	s := New(sequentialCfg, source, reformulate.NewDefault())
	if p.Strategy() != "parallel" || s.Strategy() != "sequential" {
		t.Fatalf("strategies = %s/%s", p.Strategy(), s.Strategy())
	}

	parallelOut := p.ExecutePlan(context.Background(), plan)
	sequentialOut := s.ExecutePlan(context.Background(), plan)

	if len(parallelOut) != len(sequentialOut) {
		t.Fatalf("outcome counts differ: %d vs %d", len(parallelOut), len(sequentialOut))
	}
	for tool, po := range parallelOut {
		so := sequentialOut[tool]
		if po.Status != so.Status {
			t.Errorf("%s status differs: %s vs %s", tool, po.Status, so.Status)
		}
		if len(po.Results) != len(so.Results) {
			t.Errorf("%s result count differs: %d vs %d", tool, len(po.Results), len(so.Results))
		}
	}
}

func TestUnregisteredToolIsError(t *testing.T) {
	d := testDispatcher(fakeSource{})
	outcomes := d.ExecutePlan(context.Background(), planFor("ghost"))
	if outcomes["ghost"].Status != types.OutcomeError {
		t.Errorf("status = %s, want error", outcomes["ghost"].Status)
	}
}

func TestMaxResultsParamInjected(t *testing.T) {
	var seen interface{}
	source := fakeSource{
		"web": {name: "web", category: types.CategoryWeb, execute: func(ctx context.Context, q string, p map[string]interface{}) ([]types.SearchResult, error) {
			seen = p["max_results"]
			return resultsFor("web", 1), nil
		}},
	}
	d := testDispatcher(source)

	plan := planFor("web")
	plan[0].MaxResults = 7
	d.ExecutePlan(context.Background(), plan)
	if seen != 7 {
		t.Errorf("max_results param = %v, want 7", seen)
	}
}
