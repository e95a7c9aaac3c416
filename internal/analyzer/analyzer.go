package analyzer

import (
	"regexp"
	"sort"
	"strings"

	"github.com/searchmux/searchmux/internal/types"
)

const (
	maxKeywords       = 10
	maxTopicWords     = 4
	wordCountDivisor  = 20.0
	keywordDivisor    = 15.0
	lengthWeight      = 0.3
	diversityWeight   = 0.3
	intentWeightShare = 0.4
)

var wordPattern = regexp.MustCompile(`\b\w{3,}\b`)

// Analyzer maps raw query text to a structured QueryAnalysis. It is a pure
// function of its taxonomy: total, deterministic, and it never fails.
type Analyzer struct {
	tax *Taxonomy
}

// NewAnalyzer creates an analyzer over the given taxonomy. A nil taxonomy
// falls back to the built-in defaults.
func NewAnalyzer(tax *Taxonomy) *Analyzer {
	if tax == nil {
		tax = DefaultTaxonomy()
	}
	return &Analyzer{tax: tax}
}

// Analyze inspects a query and produces its structured analysis.
func (a *Analyzer) Analyze(query string) types.QueryAnalysis {
	lowered := strings.ToLower(query)

	keywords := a.extractKeywords(lowered)
	intents := a.detectIntents(lowered)
	scope := a.temporalScope(lowered)

	return types.QueryAnalysis{
		Query:           query,
		MainTopic:       a.extractMainTopic(query),
		Keywords:        keywords,
		Intents:         intents,
		TemporalScope:   scope,
		ComplexityScore: a.complexityScore(query, keywords, intents),
		RequiresRecent:  a.requiresRecent(scope, intents),
		RequiresFactual: a.requiresFactual(lowered, intents),
	}
}

// extractMainTopic strips question and filler words and keeps the first few
// remaining words.
func (a *Analyzer) extractMainTopic(query string) string {
	cleaned := a.tax.questionWords.ReplaceAllString(query, "")
	cleaned = a.tax.fillerWords.ReplaceAllString(cleaned, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	words := strings.Fields(cleaned)
	if len(words) == 0 {
		if len(query) > 50 {
			return query[:50]
		}
		return query
	}
	if len(words) > maxTopicWords {
		words = words[:maxTopicWords]
	}
	return strings.Join(words, " ")
}

func (a *Analyzer) extractKeywords(lowered string) []string {
	words := wordPattern.FindAllString(lowered, -1)

	seen := make(map[string]struct{}, len(words))
	keywords := make([]string, 0, len(words))
	for _, w := range words {
		if _, stop := a.tax.stopWords[w]; stop {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		keywords = append(keywords, w)
	}

	// Longer words are usually more specific. The sort is stable so equal
	// lengths keep query order and the result stays deterministic.
	sort.SliceStable(keywords, func(i, j int) bool {
		return len(keywords[i]) > len(keywords[j])
	})

	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

func (a *Analyzer) detectIntents(lowered string) []types.Intent {
	// Iterate in a fixed order so the resulting intent list is stable
	// regardless of map iteration order.
	ordered := []types.Intent{
		types.IntentAcademic,
		types.IntentNews,
		types.IntentTechnical,
		types.IntentBusiness,
		types.IntentDefinition,
		types.IntentComparison,
		types.IntentRecentEvents,
	}

	var detected []types.Intent
	for _, intent := range ordered {
		for _, re := range a.tax.intentPatterns[intent] {
			if re.MatchString(lowered) {
				detected = append(detected, intent)
				break
			}
		}
	}

	if len(detected) == 0 {
		detected = append(detected, types.IntentGeneral)
	}
	return detected
}

// temporalScope checks buckets in fixed precedence; the first match wins.
func (a *Analyzer) temporalScope(lowered string) types.TemporalScope {
	for _, bucket := range a.tax.temporalBuckets {
		for _, keyword := range bucket.keywords {
			if strings.Contains(lowered, keyword) {
				return bucket.scope
			}
		}
	}
	return types.TemporalAllTime
}

func (a *Analyzer) complexityScore(query string, keywords []string, intents []types.Intent) float64 {
	score := 0.0

	wordCount := float64(len(strings.Fields(query)))
	score += minFloat(wordCount/wordCountDivisor, lengthWeight)

	score += minFloat(float64(len(keywords))/keywordDivisor, diversityWeight)

	maxIntent := 0.0
	for _, intent := range intents {
		w, ok := a.tax.intentWeights[intent]
		if !ok {
			w = 0.2
		}
		if w > maxIntent {
			maxIntent = w
		}
	}
	score += maxIntent * intentWeightShare

	return minFloat(score, 1.0)
}

func (a *Analyzer) requiresRecent(scope types.TemporalScope, intents []types.Intent) bool {
	if scope == types.TemporalRecent || scope == types.TemporalCurrentYear {
		return true
	}
	for _, intent := range intents {
		if intent == types.IntentNews || intent == types.IntentRecentEvents {
			return true
		}
	}
	return false
}

func (a *Analyzer) requiresFactual(lowered string, intents []types.Intent) bool {
	for _, intent := range intents {
		if intent == types.IntentAcademic || intent == types.IntentBusiness {
			return true
		}
	}
	for _, keyword := range a.tax.factualKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
