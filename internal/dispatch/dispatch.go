// Package dispatch executes an execution plan against the provider registry.
// Every plan entry becomes one unit of work; units run concurrently under one
// collective deadline, and each unit always terminates in exactly one
// outcome. A provider's failure never cancels its siblings.
package dispatch

import (
	"context"
	"errors"
	"log"
	"math"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/searchmux/searchmux/internal/providers"
	"github.com/searchmux/searchmux/internal/reformulate"
	"github.com/searchmux/searchmux/internal/types"
)

// ProviderSource resolves plan entries to live adapters.
type ProviderSource interface {
	Get(name string) (providers.Provider, bool)
}

// Dispatcher runs plans. Safe for concurrent use.
type Dispatcher struct {
	providers    ProviderSource
	reformulator reformulate.Reformulator
	timeout      time.Duration
	maxParallel  int
	parallel     bool
	retryBudget  int
	retryDelay   time.Duration
	logger       *log.Logger
	sleep        func(ctx context.Context, d time.Duration) error
}

// New creates a dispatcher from configuration. A nil reformulator disables
// empty-result retries.
func New(cfg *types.Config, providers ProviderSource, reformulator reformulate.Reformulator) *Dispatcher {
	timeout := time.Duration(cfg.SearchTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxParallel := cfg.MaxParallelTools
	if maxParallel <= 0 {
		maxParallel = 4
	}
	retryBudget := cfg.RetryAttempts
	if retryBudget < 0 {
		retryBudget = 0
	}
	retryDelay := cfg.RetryBaseDelay
	if retryDelay <= 0 {
		retryDelay = 500 * time.Millisecond
	}
	return &Dispatcher{
		providers:    providers,
		reformulator: reformulator,
		timeout:      timeout,
		maxParallel:  maxParallel,
		parallel:     cfg.ParallelEnabled(),
		retryBudget:  retryBudget,
		retryDelay:   retryDelay,
		logger:       log.New(os.Stdout, "[Dispatcher] ", log.LstdFlags),
		sleep:        sleepCtx,
	}
}

// Strategy reports how ExecutePlan will schedule units.
func (d *Dispatcher) Strategy() string {
	if d.parallel {
		return "parallel"
	}
	return "sequential"
}

// ExecutePlan runs every entry of the plan and returns exactly one outcome
// per planned tool. The batch shares one deadline; units still running when
// it elapses are recorded as timed out with whatever they produced so far.
func (d *Dispatcher) ExecutePlan(ctx context.Context, plan []types.ExecutionPlanEntry) map[string]types.ToolOutcome {
	if len(plan) == 0 {
		return map[string]types.ToolOutcome{}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	outcomes := make([]types.ToolOutcome, len(plan))

	if d.parallel {
		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(d.maxParallel)
		for i, entry := range plan {
			i, entry := i, entry
			g.Go(func() error {
				outcomes[i] = d.runUnit(gCtx, entry)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, entry := range plan {
			outcomes[i] = d.runUnit(ctx, entry)
		}
	}

	byTool := make(map[string]types.ToolOutcome, len(plan))
	for _, outcome := range outcomes {
		byTool[outcome.ToolName] = outcome
	}
	return byTool
}

// runUnit drives one tool to a terminal outcome. Errors and timeouts are
// absorbed here; nothing escapes to sibling units.
func (d *Dispatcher) runUnit(ctx context.Context, entry types.ExecutionPlanEntry) types.ToolOutcome {
	start := time.Now()
	outcome := types.ToolOutcome{ToolName: entry.ToolName}

	provider, ok := d.providers.Get(entry.ToolName)
	if !ok {
		outcome.Status = types.OutcomeError
		outcome.Error = "provider not registered"
		outcome.Latency = time.Since(start)
		return outcome
	}

	params := cloneParams(entry.ProviderParams)
	params["max_results"] = entry.MaxResults

	queries := []string{entry.ReformulatedQuery}
	if d.reformulator != nil {
		variants := d.reformulator.Candidates(entry.ReformulatedQuery, entry.Category)
		if len(variants) > d.retryBudget {
			variants = variants[:d.retryBudget]
		}
		queries = append(queries, variants...)
	}

	for attempt, query := range queries {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))) * d.retryDelay
			if err := d.sleep(ctx, delay); err != nil {
				outcome.Status = types.OutcomeTimeout
				outcome.Error = "deadline elapsed during retry backoff"
				break
			}
		}

		outcome.Attempts = attempt + 1
		results, err := provider.Execute(ctx, query, params)

		if err != nil {
			if deadlineHit(ctx, err) {
				outcome.Status = types.OutcomeTimeout
				outcome.Error = err.Error()
			} else {
				providerErr := &types.ProviderError{Tool: entry.ToolName, Message: "search call failed", Cause: err}
				outcome.Status = types.OutcomeError
				outcome.Error = providerErr.Error()
				d.logger.Printf("tool %s failed on attempt %d: %v", entry.ToolName, attempt+1, err)
			}
			break
		}

		if len(results) > 0 {
			outcome.Status = types.OutcomeSuccess
			outcome.Results = results
			if attempt > 0 {
				outcome.ReformulationUsed = query
				d.logger.Printf("tool %s recovered with reformulation %q after %d attempts", entry.ToolName, query, attempt+1)
			}
			break
		}

		// Legitimate empty response. Keep trying reformulations.
		outcome.Status = types.OutcomeEmpty
	}

	if outcome.Status == types.OutcomeEmpty {
		outcome.Error = types.ErrEmptyResult.Error()
	}

	outcome.Latency = time.Since(start)
	return outcome
}

// deadlineHit reports whether err is the batch deadline rather than a
// provider failure of its own.
func deadlineHit(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func cloneParams(params map[string]interface{}) map[string]interface{} {
	cloned := make(map[string]interface{}, len(params)+1)
	for k, v := range params {
		cloned[k] = v
	}
	return cloned
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
