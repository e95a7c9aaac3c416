// Package planner turns a query analysis and the set of registered provider
// tools into a weighted execution plan. Tool weights start from per-category
// priors, receive additive boosts for matched intents and temporal scope, and
// are normalized so the strongest selected tool carries priority 1.0.
package planner

import (
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/searchmux/searchmux/internal/types"
)

const (
	defaultThreshold      = 0.3
	defaultPerToolCeiling = 10
)

// Candidate describes one registered tool the planner may select. The
// registry provides these so the planner never touches live adapters.
type Candidate struct {
	Name     string
	Category types.ToolCategory
}

// Overrides tune a single plan without rebuilding the planner. Zero values
// mean "use the planner's defaults".
type Overrides struct {
	Threshold      float64
	PerToolCeiling int
	// WeightBoost adds to a named tool's raw weight before normalization.
	WeightBoost map[string]float64
}

// basePriors is the prior weight each tool category starts from before any
// intent or temporal boost is applied.
var basePriors = map[types.ToolCategory]float64{
	types.CategoryWeb:       0.5,
	types.CategoryAcademic:  0.3,
	types.CategoryNews:      0.2,
	types.CategoryKnowledge: 0.25,
	types.CategoryPatent:    0.15,
	types.CategoryExpert:    0.15,
}

// intentBoosts maps a matched intent to additive per-category weight boosts.
var intentBoosts = map[types.Intent]map[types.ToolCategory]float64{
	types.IntentAcademic: {
		types.CategoryAcademic:  0.6,
		types.CategoryExpert:    0.5,
		types.CategoryKnowledge: 0.2,
		types.CategoryPatent:    0.2,
	},
	types.IntentNews: {
		types.CategoryNews: 0.6,
	},
	types.IntentRecentEvents: {
		types.CategoryNews: 0.5,
	},
	types.IntentTechnical: {
		types.CategoryWeb:       0.3,
		types.CategoryPatent:    0.3,
		types.CategoryKnowledge: 0.3,
		types.CategoryAcademic:  0.2,
	},
	types.IntentBusiness: {
		types.CategoryNews:   0.3,
		types.CategoryWeb:    0.2,
		types.CategoryPatent: 0.2,
	},
	types.IntentDefinition: {
		types.CategoryWeb:       0.3,
		types.CategoryKnowledge: 0.2,
	},
	types.IntentComparison: {
		types.CategoryWeb:      0.2,
		types.CategoryAcademic: 0.1,
	},
	types.IntentGeneral: {
		types.CategoryWeb: 0.2,
	},
}

// temporalBoosts maps the detected temporal scope to additive boosts.
var temporalBoosts = map[types.TemporalScope]map[types.ToolCategory]float64{
	types.TemporalRecent: {
		types.CategoryNews: 0.3,
		types.CategoryWeb:  0.1,
	},
	types.TemporalCurrentYear: {
		types.CategoryNews: 0.2,
	},
	types.TemporalHistorical: {
		types.CategoryAcademic: 0.2,
		types.CategoryPatent:   0.1,
	},
}

// Planner builds execution plans. Safe for concurrent use.
type Planner struct {
	threshold float64
	ceiling   int
	logger    *log.Logger
	now       func() time.Time
}

// New creates a planner with the configured selection threshold and per-tool
// result ceiling. Out-of-range values fall back to defaults.
func New(cfg *types.Config) *Planner {
	threshold := cfg.SelectionThreshold
	if threshold <= 0 || threshold >= 1 {
		threshold = defaultThreshold
	}
	ceiling := cfg.PerToolResultCeiling
	if ceiling <= 0 {
		ceiling = defaultPerToolCeiling
	}
	return &Planner{
		threshold: threshold,
		ceiling:   ceiling,
		logger:    log.New(os.Stdout, "[Planner] ", log.LstdFlags),
		now:       time.Now,
	}
}

// CreatePlan selects and weights tools for one orchestration call. The
// returned entries are ordered by descending priority, ties broken by tool
// name so the plan is deterministic. An empty candidate registry is the only
// fatal condition.
func (p *Planner) CreatePlan(analysis types.QueryAnalysis, available []Candidate, maxTotalResults int, overrides *Overrides) ([]types.ExecutionPlanEntry, error) {
	if len(available) == 0 {
		return nil, &types.PlanningError{Reason: "no search tools registered"}
	}
	if maxTotalResults <= 0 {
		maxTotalResults = 10
	}

	threshold := p.threshold
	ceiling := p.ceiling
	if overrides != nil {
		if overrides.Threshold > 0 && overrides.Threshold < 1 {
			threshold = overrides.Threshold
		}
		if overrides.PerToolCeiling > 0 {
			ceiling = overrides.PerToolCeiling
		}
	}

	weights := p.scoreCandidates(analysis, available, overrides)

	// Normalize so the strongest candidate sits at exactly 1.0.
	maxWeight := 0.0
	for _, w := range weights {
		if w > maxWeight {
			maxWeight = w
		}
	}
	if maxWeight > 0 {
		for name := range weights {
			weights[name] = weights[name] / maxWeight
		}
	}

	selected := make([]Candidate, 0, len(available))
	for _, c := range available {
		if weights[c.Name] > threshold {
			selected = append(selected, c)
		}
	}
	if len(selected) == 0 {
		fallback := fallbackCandidate(available, weights)
		weights[fallback.Name] = 1.0
		selected = append(selected, fallback)
		p.logger.Printf("no tool cleared threshold %.2f, falling back to %s", threshold, fallback.Name)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		wi, wj := weights[selected[i].Name], weights[selected[j].Name]
		if wi != wj {
			return wi > wj
		}
		return selected[i].Name < selected[j].Name
	})

	entries := make([]types.ExecutionPlanEntry, 0, len(selected))
	for _, c := range selected {
		priority := weights[c.Name]
		entries = append(entries, types.ExecutionPlanEntry{
			ToolName:          c.Name,
			Category:          c.Category,
			ReformulatedQuery: p.reformulateFor(analysis, c.Category),
			MaxResults:        toolBudget(maxTotalResults, len(selected), priority, ceiling),
			Priority:          priority,
			ProviderParams:    p.paramsFor(analysis, c.Category),
		})
	}

	p.logger.Printf("planned %d/%d tools for topic %q (intents=%v)", len(entries), len(available), analysis.MainTopic, analysis.Intents)
	return entries, nil
}

func (p *Planner) scoreCandidates(analysis types.QueryAnalysis, available []Candidate, overrides *Overrides) map[string]float64 {
	weights := make(map[string]float64, len(available))
	for _, c := range available {
		w := basePriors[c.Category]
		for _, intent := range analysis.Intents {
			w += intentBoosts[intent][c.Category]
		}
		w += temporalBoosts[analysis.TemporalScope][c.Category]
		if overrides != nil {
			w += overrides.WeightBoost[c.Name]
		}
		if w < 0 {
			w = 0
		}
		weights[c.Name] = w
	}
	return weights
}

// fallbackCandidate picks the general-purpose tool used when nothing clears
// the threshold. Prefers a web-category tool, otherwise the heaviest one.
func fallbackCandidate(available []Candidate, weights map[string]float64) Candidate {
	for _, c := range available {
		if c.Category == types.CategoryWeb {
			return c
		}
	}
	best := available[0]
	for _, c := range available[1:] {
		if weights[c.Name] > weights[best.Name] {
			best = c
		}
	}
	return best
}

// toolBudget splits the overall result budget across selected tools, giving
// higher-priority tools a proportionally larger share.
func toolBudget(maxTotal, selectedCount int, priority float64, ceiling int) int {
	base := float64(maxTotal) / float64(selectedCount)
	budget := int(base * (1 + priority))
	if budget < 1 {
		budget = 1
	}
	if budget > ceiling {
		budget = ceiling
	}
	return budget
}

// reformulateFor builds the tool-facing query from the user query using a
// category template. The dispatcher's retry variants are a separate concern.
func (p *Planner) reformulateFor(analysis types.QueryAnalysis, category types.ToolCategory) string {
	query := analysis.Query
	lower := strings.ToLower(query)
	switch category {
	case types.CategoryAcademic, types.CategoryExpert:
		if !strings.Contains(lower, "research") && !strings.Contains(lower, "study") {
			return query + " research"
		}
	case types.CategoryNews:
		if analysis.RequiresRecent && !strings.Contains(lower, "latest") && !strings.Contains(lower, "current") {
			return "latest " + query
		}
	case types.CategoryPatent:
		if !strings.Contains(lower, "patent") {
			return query + " patent"
		}
	}
	return query
}

// paramsFor derives provider-specific parameters from the analysis, such as
// date windows for news and year filters for academic search.
func (p *Planner) paramsFor(analysis types.QueryAnalysis, category types.ToolCategory) map[string]interface{} {
	now := p.now()
	params := map[string]interface{}{}
	switch category {
	case types.CategoryNews:
		switch analysis.TemporalScope {
		case types.TemporalRecent:
			params["from_date"] = now.AddDate(0, 0, -7).Format("2006-01-02")
		case types.TemporalCurrentYear:
			params["from_date"] = fmt.Sprintf("%d-01-01", now.Year())
		default:
			params["from_date"] = now.AddDate(0, -1, 0).Format("2006-01-02")
		}
		if analysis.RequiresRecent {
			params["sort_by"] = "publishedAt"
		} else {
			params["sort_by"] = "relevancy"
		}
	case types.CategoryAcademic, types.CategoryExpert:
		switch analysis.TemporalScope {
		case types.TemporalRecent, types.TemporalCurrentYear:
			params["year_filter"] = fmt.Sprintf("%d-", now.Year()-1)
		case types.TemporalHistorical:
			// No lower bound; old literature is the point.
		default:
			params["year_filter"] = fmt.Sprintf("%d-", now.Year()-5)
		}
		if analysis.RequiresFactual {
			params["min_citations"] = 5
		}
	}
	if len(params) == 0 {
		return nil
	}
	return params
}
