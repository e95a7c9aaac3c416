// Package orchestrator composes the analyzer, planner, dispatcher, and
// ranker into one search call. It is the only entry point the serving
// surfaces use.
package orchestrator

import (
	"context"
	"log"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/searchmux/searchmux/internal/analyzer"
	"github.com/searchmux/searchmux/internal/dispatch"
	"github.com/searchmux/searchmux/internal/planner"
	"github.com/searchmux/searchmux/internal/providers"
	"github.com/searchmux/searchmux/internal/rank"
	"github.com/searchmux/searchmux/internal/types"
)

var searchTracer = otel.Tracer("searchmux/orchestrator")

// preferredToolBoost is added to a tool's raw weight when the caller lists
// it in the preferred_tools preference.
const preferredToolBoost = 0.5

// Request is one orchestration call.
type Request struct {
	Query       string
	MaxResults  int
	AgentType   string
	Preferences map[string]interface{}
}

// Orchestrator wires the pipeline together. Safe for concurrent use.
type Orchestrator struct {
	cfg        *types.Config
	analyzer   *analyzer.Analyzer
	planner    *planner.Planner
	dispatcher *dispatch.Dispatcher
	aggregator *rank.Aggregator
	registry   *providers.Registry
	logger     *log.Logger
}

func New(cfg *types.Config, a *analyzer.Analyzer, p *planner.Planner, d *dispatch.Dispatcher, r *rank.Aggregator, registry *providers.Registry) *Orchestrator {
	return &Orchestrator{
		cfg:        cfg,
		analyzer:   a,
		planner:    p,
		dispatcher: d,
		aggregator: r,
		registry:   registry,
		logger:     log.New(os.Stdout, "[Orchestrator] ", log.LstdFlags),
	}
}

// Search runs the full pipeline. It never returns an error to the caller;
// every failure mode is folded into the response envelope, and the metadata
// always explains which tools ran and how each one ended.
func (o *Orchestrator) Search(ctx context.Context, req Request) *types.OrchestrationResponse {
	ctx, span := searchTracer.Start(ctx, "orchestrator.search")
	defer span.End()

	start := time.Now()
	executionID := uuid.New().String()

	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = o.cfg.DefaultMaxResults
	}
	if maxResults <= 0 {
		maxResults = 10
	}

	analysis := o.analyzer.Analyze(req.Query)
	response := &types.OrchestrationResponse{
		Query: req.Query,
		Analysis: types.AnalysisSummary{
			MainTopic:       analysis.MainTopic,
			Intents:         analysis.Intents,
			TemporalScope:   analysis.TemporalScope,
			ComplexityScore: analysis.ComplexityScore,
		},
		Metadata: types.OrchestrationMetadata{
			ExecutionID:       executionID,
			AgentType:         req.AgentType,
			ExecutionStrategy: o.dispatcher.Strategy(),
			Outcomes:          map[string]types.OutcomeSummary{},
		},
	}

	span.SetAttributes(
		attribute.String("search.execution_id", executionID),
		attribute.String("search.main_topic", analysis.MainTopic),
		attribute.String("search.temporal_scope", string(analysis.TemporalScope)),
		attribute.Int("search.max_results", maxResults),
	)

	plan, err := o.planner.CreatePlan(analysis, o.registry.Candidates(), maxResults, overridesFrom(req.Preferences))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "planning_failed")
		o.logger.Printf("planning failed for execution %s: %v", executionID, err)
		response.Error = err.Error()
		response.Metadata.ExecutionTime = time.Since(start)
		return response
	}

	outcomes := o.dispatcher.ExecutePlan(ctx, plan)
	response.Results = o.aggregator.Aggregate(plan, outcomes, maxResults)

	// tools_used names every tool the plan dispatched, succeeded or not;
	// the outcomes map records how each of them ended.
	toolsUsed := make([]string, 0, len(outcomes))
	succeeded := 0
	for name, outcome := range outcomes {
		response.Metadata.Outcomes[name] = types.OutcomeSummary{
			Status:            outcome.Status,
			ReformulationUsed: outcome.ReformulationUsed,
		}
		toolsUsed = append(toolsUsed, name)
		if outcome.Status == types.OutcomeSuccess {
			succeeded++
		}
	}
	sort.Strings(toolsUsed)
	response.Metadata.ToolsUsed = toolsUsed
	response.Metadata.TotalSources = len(response.Results)
	response.Metadata.ExecutionTime = time.Since(start)

	response.Success = len(response.Results) > 0
	if !response.Success {
		response.Error = types.ErrNoResultsFound.Error()
		span.SetStatus(codes.Error, "no_results")
	}

	span.SetAttributes(
		attribute.Int("search.result_count", len(response.Results)),
		attribute.Int("search.tools_planned", len(plan)),
		attribute.Int("search.tools_succeeded", succeeded),
	)
	o.logger.Printf("execution %s: %d results from %d/%d tools in %v",
		executionID, len(response.Results), succeeded, len(plan), response.Metadata.ExecutionTime)

	return response
}

// overridesFrom maps caller preferences onto plan overrides. Unknown keys
// are ignored.
func overridesFrom(prefs map[string]interface{}) *planner.Overrides {
	if len(prefs) == 0 {
		return nil
	}
	overrides := &planner.Overrides{}

	if raw, ok := prefs["preferred_tools"]; ok {
		boost := map[string]float64{}
		switch tools := raw.(type) {
		case []string:
			for _, t := range tools {
				boost[t] = preferredToolBoost
			}
		case []interface{}:
			for _, t := range tools {
				if name, ok := t.(string); ok {
					boost[name] = preferredToolBoost
				}
			}
		}
		if len(boost) > 0 {
			overrides.WeightBoost = boost
		}
	}

	if raw, ok := prefs["selection_threshold"]; ok {
		if v, ok := raw.(float64); ok && v > 0 && v < 1 {
			overrides.Threshold = v
		}
	}

	if overrides.WeightBoost == nil && overrides.Threshold == 0 {
		return nil
	}
	return overrides
}
