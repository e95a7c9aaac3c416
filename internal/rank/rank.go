// Package rank merges tool outcomes into the final ordered result list.
// Successful outcomes are flattened, deduplicated by normalized URL, scored
// by a blend of provider base relevance and plan priority, then truncated.
package rank

import (
	"net/url"
	"sort"
	"strings"

	"github.com/searchmux/searchmux/internal/types"
)

// Policy holds the relevance blend weights. They are explicit and tunable,
// not baked into the scoring loop.
type Policy struct {
	BaseWeight     float64
	PriorityWeight float64
}

// DefaultPolicy weights provider relevance over plan priority.
func DefaultPolicy() Policy {
	return Policy{BaseWeight: 0.7, PriorityWeight: 0.3}
}

// Aggregator ranks outcomes. Safe for concurrent use.
type Aggregator struct {
	policy Policy
}

func NewAggregator(policy Policy) *Aggregator {
	if policy.BaseWeight <= 0 && policy.PriorityWeight <= 0 {
		policy = DefaultPolicy()
	}
	return &Aggregator{policy: policy}
}

// Aggregate produces the final ranked list. The plan supplies both the
// discovery order and each tool's priority; outcomes with any status other
// than success contribute nothing. Deterministic for fixed inputs.
func (a *Aggregator) Aggregate(plan []types.ExecutionPlanEntry, outcomes map[string]types.ToolOutcome, maxResults int) []types.SearchResult {
	if maxResults <= 0 {
		maxResults = 10
	}

	type entry struct {
		result types.SearchResult
		order  int
	}

	byURL := make(map[string]int)
	flattened := make([]entry, 0)
	order := 0

	for _, planned := range plan {
		outcome, ok := outcomes[planned.ToolName]
		if !ok || outcome.Status != types.OutcomeSuccess {
			continue
		}
		for _, result := range outcome.Results {
			result.ToolPriority = planned.Priority
			result.FinalScore = a.score(result)

			key := NormalizeURL(result.URL)
			if key == "" {
				continue
			}
			if idx, dup := byURL[key]; dup {
				// Keep the instance found through the higher-priority tool.
				if result.ToolPriority > flattened[idx].result.ToolPriority {
					flattened[idx].result = result
				}
				continue
			}
			byURL[key] = len(flattened)
			flattened = append(flattened, entry{result: result, order: order})
			order++
		}
	}

	sort.SliceStable(flattened, func(i, j int) bool {
		if flattened[i].result.FinalScore != flattened[j].result.FinalScore {
			return flattened[i].result.FinalScore > flattened[j].result.FinalScore
		}
		return flattened[i].order < flattened[j].order
	})

	if len(flattened) > maxResults {
		flattened = flattened[:maxResults]
	}

	ranked := make([]types.SearchResult, len(flattened))
	for i, e := range flattened {
		ranked[i] = e.result
	}
	return ranked
}

func (a *Aggregator) score(result types.SearchResult) float64 {
	base := clamp01(result.BaseRelevance)
	priority := clamp01(result.ToolPriority)
	return clamp01(a.policy.BaseWeight*base + a.policy.PriorityWeight*priority)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// NormalizeURL produces the deduplication identity for a result URL:
// lowercased scheme and host, no www prefix, no fragment, no trailing slash.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return strings.ToLower(strings.TrimSuffix(raw, "/"))
	}
	host := strings.ToLower(parsed.Host)
	host = strings.TrimPrefix(host, "www.")
	path := strings.TrimSuffix(parsed.Path, "/")
	normalized := strings.ToLower(parsed.Scheme) + "://" + host + path
	if parsed.RawQuery != "" {
		normalized += "?" + parsed.RawQuery
	}
	return normalized
}
