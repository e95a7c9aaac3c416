package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/searchmux/searchmux/internal/types"
)

// Taxonomy is the immutable pattern configuration the analyzer works from.
// It is constructed once and injected, so tests can substitute custom
// taxonomies without touching shared state.
type Taxonomy struct {
	intentPatterns  map[types.Intent][]*regexp.Regexp
	intentWeights   map[types.Intent]float64
	temporalBuckets []temporalBucket
	stopWords       map[string]struct{}
	questionWords   *regexp.Regexp
	fillerWords     *regexp.Regexp
	factualKeywords []string
}

type temporalBucket struct {
	scope    types.TemporalScope
	keywords []string
}

// TaxonomySpec is the serializable form a Taxonomy is built from.
type TaxonomySpec struct {
	IntentPatterns  map[string][]string `yaml:"intent_patterns" json:"intent_patterns"`
	IntentWeights   map[string]float64  `yaml:"intent_weights" json:"intent_weights"`
	TemporalBuckets []struct {
		Scope    string   `yaml:"scope" json:"scope"`
		Keywords []string `yaml:"keywords" json:"keywords"`
	} `yaml:"temporal_buckets" json:"temporal_buckets"`
	StopWords       []string `yaml:"stop_words" json:"stop_words"`
	FactualKeywords []string `yaml:"factual_keywords" json:"factual_keywords"`
}

var defaultStopWords = []string{
	"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for",
	"of", "with", "by", "is", "are", "was", "were", "be", "been", "have",
	"has", "had", "do", "does", "did", "will", "would", "could", "should",
	"what", "when", "where", "why", "how", "who", "which",
}

var defaultFactualKeywords = []string{
	"data", "statistics", "numbers", "facts", "evidence", "study", "research",
}

// DefaultTaxonomy builds the built-in intent and temporal pattern tables.
// Year-sensitive keywords are resolved against the wall clock once, at
// construction time, so the analyzer itself stays deterministic.
func DefaultTaxonomy() *Taxonomy {
	return buildDefaultTaxonomy(time.Now())
}

func buildDefaultTaxonomy(now time.Time) *Taxonomy {
	year := now.Year()
	thisYear := strconv.Itoa(year)
	lastYear := strconv.Itoa(year - 1)

	patterns := map[types.Intent][]string{
		types.IntentAcademic: {
			`\b(research|study|paper|journal|academic|scholar|citation|peer.?review)\b`,
			`\b(hypothesis|methodology|experiment|findings|publication)\b`,
			`\b(university|college|professor|phd|doctorate|thesis)\b`,
		},
		types.IntentNews: {
			`\b(news|latest|recent|breaking|current|today|yesterday)\b`,
			`\b(headline|reporter|journalist|media|press)\b`,
			`\b(announcement|development|update|report)\b`,
		},
		types.IntentTechnical: {
			`\b(code|programming|software|algorithm|technical|api|framework)\b`,
			`\b(documentation|tutorial|implementation|debug|error)\b`,
			`\b(python|javascript|java|golang|typescript|react|node)\b`,
		},
		types.IntentBusiness: {
			`\b(business|company|market|industry|revenue|profit|investment)\b`,
			`\b(strategy|management|leadership|entrepreneur|startup)\b`,
			`\b(financial|economic|budget|cost|pricing|sales)\b`,
		},
		types.IntentDefinition: {
			`\b(what is|define|definition|meaning|explain|explanation)\b`,
			`\b(how to|how do|step by step|guide|tutorial)\b`,
		},
		types.IntentComparison: {
			`\b(vs|versus|compare|comparison|difference|better|best)\b`,
			`\b(pros and cons|advantages|disadvantages|alternative)\b`,
		},
		types.IntentRecentEvents: {
			`\b(` + thisYear + `|` + lastYear + `|recent|latest|new|current|today|this year)\b`,
			`\b(update|development|change|trend|innovation)\b`,
		},
	}

	compiled := make(map[types.Intent][]*regexp.Regexp, len(patterns))
	for intent, exprs := range patterns {
		for _, expr := range exprs {
			compiled[intent] = append(compiled[intent], regexp.MustCompile(expr))
		}
	}

	return &Taxonomy{
		intentPatterns: compiled,
		intentWeights: map[types.Intent]float64{
			types.IntentDefinition:   0.1,
			types.IntentGeneral:      0.2,
			types.IntentNews:         0.3,
			types.IntentBusiness:     0.4,
			types.IntentRecentEvents: 0.4,
			types.IntentTechnical:    0.5,
			types.IntentComparison:   0.6,
			types.IntentAcademic:     0.8,
		},
		temporalBuckets: []temporalBucket{
			{
				scope: types.TemporalRecent,
				keywords: []string{
					"recent", "latest", "new", "current", "today", "yesterday",
					"this week", "this month", "breaking", thisYear,
				},
			},
			{
				scope:    types.TemporalCurrentYear,
				keywords: []string{thisYear, "this year", "current year", "now", "modern"},
			},
			{
				scope: types.TemporalHistorical,
				keywords: []string{
					"history", "historical", "past", "old", "ancient", "traditional",
					"origin", "evolution", "development over time",
				},
			},
		},
		stopWords:       toSet(defaultStopWords),
		questionWords:   regexp.MustCompile(`(?i)\b(what|how|when|where|why|who|which|is|are|was|were|do|does|did|can|could|should|would|will)\b`),
		fillerWords:     regexp.MustCompile(`(?i)\b(the|a|an|in|on|at|to|for|of|with|by)\b`),
		factualKeywords: defaultFactualKeywords,
	}
}

// NewTaxonomy builds a taxonomy from a spec, falling back to built-in
// defaults for any section the spec leaves empty.
func NewTaxonomy(spec *TaxonomySpec) (*Taxonomy, error) {
	tax := buildDefaultTaxonomy(time.Now())
	if spec == nil {
		return tax, nil
	}

	if len(spec.IntentPatterns) > 0 {
		compiled := make(map[types.Intent][]*regexp.Regexp, len(spec.IntentPatterns))
		for name, exprs := range spec.IntentPatterns {
			intent := types.Intent(name)
			for _, expr := range exprs {
				re, err := regexp.Compile(expr)
				if err != nil {
					return nil, fmt.Errorf("invalid pattern for intent %q: %w", name, err)
				}
				compiled[intent] = append(compiled[intent], re)
			}
		}
		tax.intentPatterns = compiled
	}

	if len(spec.IntentWeights) > 0 {
		weights := make(map[types.Intent]float64, len(spec.IntentWeights))
		for name, w := range spec.IntentWeights {
			weights[types.Intent(name)] = w
		}
		tax.intentWeights = weights
	}

	if len(spec.TemporalBuckets) > 0 {
		buckets := make([]temporalBucket, 0, len(spec.TemporalBuckets))
		for _, b := range spec.TemporalBuckets {
			buckets = append(buckets, temporalBucket{
				scope:    types.TemporalScope(b.Scope),
				keywords: b.Keywords,
			})
		}
		tax.temporalBuckets = buckets
	}

	if len(spec.StopWords) > 0 {
		tax.stopWords = toSet(spec.StopWords)
	}
	if len(spec.FactualKeywords) > 0 {
		tax.factualKeywords = spec.FactualKeywords
	}

	return tax, nil
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
