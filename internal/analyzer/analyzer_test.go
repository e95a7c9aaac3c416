package analyzer

import (
	"strings"
	"testing"

	"github.com/searchmux/searchmux/internal/types"
)

func TestAnalyzeAlwaysReturnsAtLeastOneIntent(t *testing.T) {
	a := NewAnalyzer(nil)

	queries := []string{
		"",
		"   ",
		"xyzzy",
		"latest research on battery technology",
		"what is quantum computing",
		"!!!???",
		strings.Repeat("very long query ", 200),
		"日本語のクエリ",
	}

	for _, q := range queries {
		analysis := a.Analyze(q)
		if len(analysis.Intents) == 0 {
			t.Fatalf("query %q produced no intents", q)
		}
		if analysis.ComplexityScore < 0 || analysis.ComplexityScore > 1 {
			t.Fatalf("query %q complexity %f out of range", q, analysis.ComplexityScore)
		}
	}
}

func TestAnalyzeDetectsAcademicAndNewsIntents(t *testing.T) {
	a := NewAnalyzer(nil)

	analysis := a.Analyze("latest research on battery technology")

	if !analysis.HasIntent(types.IntentAcademic) {
		t.Fatalf("expected academic intent, got %v", analysis.Intents)
	}
	if !analysis.HasIntent(types.IntentNews) {
		t.Fatalf("expected news intent, got %v", analysis.Intents)
	}
	if analysis.TemporalScope != types.TemporalRecent {
		t.Fatalf("expected recent temporal scope, got %s", analysis.TemporalScope)
	}
	if !analysis.RequiresRecent {
		t.Fatalf("expected requires_recent for a 'latest' query")
	}
	if !analysis.RequiresFactual {
		t.Fatalf("expected requires_factual for an academic query")
	}
}

func TestAnalyzeDefaultsToGeneralIntent(t *testing.T) {
	a := NewAnalyzer(nil)

	analysis := a.Analyze("pineapple pizza toppings")

	if len(analysis.Intents) != 1 || analysis.Intents[0] != types.IntentGeneral {
		t.Fatalf("expected only general intent, got %v", analysis.Intents)
	}
	if analysis.TemporalScope != types.TemporalAllTime {
		t.Fatalf("expected all_time scope, got %s", analysis.TemporalScope)
	}
}

func TestAnalyzeTemporalPrecedence(t *testing.T) {
	a := NewAnalyzer(nil)

	// "latest" matches the recent bucket even though "history" also appears;
	// recent has higher precedence.
	analysis := a.Analyze("latest history of rome")
	if analysis.TemporalScope != types.TemporalRecent {
		t.Fatalf("expected recent to win precedence, got %s", analysis.TemporalScope)
	}

	analysis = a.Analyze("history of rome")
	if analysis.TemporalScope != types.TemporalHistorical {
		t.Fatalf("expected historical scope, got %s", analysis.TemporalScope)
	}
}

func TestAnalyzeIsDeterministic(t *testing.T) {
	a := NewAnalyzer(nil)
	query := "compare solar panel efficiency research 2020 vs latest news"

	first := a.Analyze(query)
	for i := 0; i < 10; i++ {
		next := a.Analyze(query)
		if len(next.Intents) != len(first.Intents) {
			t.Fatalf("intent count changed between runs")
		}
		for j := range next.Intents {
			if next.Intents[j] != first.Intents[j] {
				t.Fatalf("intent order changed between runs: %v vs %v", first.Intents, next.Intents)
			}
		}
		if next.ComplexityScore != first.ComplexityScore {
			t.Fatalf("complexity changed between runs")
		}
		for j := range next.Keywords {
			if next.Keywords[j] != first.Keywords[j] {
				t.Fatalf("keyword order changed between runs")
			}
		}
	}
}

func TestAnalyzeMainTopicStripsQuestionWords(t *testing.T) {
	a := NewAnalyzer(nil)

	analysis := a.Analyze("what is the capital of france")
	if analysis.MainTopic != "capital france" {
		t.Fatalf("unexpected main topic: %q", analysis.MainTopic)
	}
}

func TestCustomTaxonomyOverridesIntentPatterns(t *testing.T) {
	spec := &TaxonomySpec{
		IntentPatterns: map[string][]string{
			string(types.IntentTechnical): {`\bkubernetes\b`},
		},
	}
	tax, err := NewTaxonomy(spec)
	if err != nil {
		t.Fatalf("taxonomy build failed: %v", err)
	}

	a := NewAnalyzer(tax)

	analysis := a.Analyze("kubernetes operator")
	if !analysis.HasIntent(types.IntentTechnical) {
		t.Fatalf("expected technical intent from custom taxonomy, got %v", analysis.Intents)
	}

	// The default academic patterns were replaced wholesale.
	analysis = a.Analyze("peer-reviewed research paper")
	if analysis.HasIntent(types.IntentAcademic) {
		t.Fatalf("custom taxonomy should not detect academic intent")
	}
}

func TestNewTaxonomyRejectsInvalidPattern(t *testing.T) {
	spec := &TaxonomySpec{
		IntentPatterns: map[string][]string{
			"news": {`\b(unclosed`},
		},
	}
	if _, err := NewTaxonomy(spec); err == nil {
		t.Fatalf("expected error for invalid regex")
	}
}

func TestComplexityOrdering(t *testing.T) {
	a := NewAnalyzer(nil)

	simple := a.Analyze("what is water")
	complexQ := a.Analyze("compare peer-reviewed research methodology on transformer architectures versus convolutional networks for medical imaging")

	if simple.ComplexityScore >= complexQ.ComplexityScore {
		t.Fatalf("expected definition query (%f) to score below academic comparison (%f)",
			simple.ComplexityScore, complexQ.ComplexityScore)
	}
}
