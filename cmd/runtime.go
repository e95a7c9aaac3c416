package cmd

import (
	"fmt"
	"log"

	"github.com/searchmux/searchmux/internal/analyzer"
	"github.com/searchmux/searchmux/internal/dispatch"
	"github.com/searchmux/searchmux/internal/orchestrator"
	"github.com/searchmux/searchmux/internal/planner"
	"github.com/searchmux/searchmux/internal/providers"
	"github.com/searchmux/searchmux/internal/rank"
	"github.com/searchmux/searchmux/internal/reformulate"
	"github.com/searchmux/searchmux/internal/types"
)

// buildSearchStack assembles the orchestration pipeline from configuration
func buildSearchStack(cfg *types.Config) (*orchestrator.Orchestrator, *providers.Registry, error) {
	registry, err := providers.BuildRegistry(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build provider registry: %w", err)
	}
	if registry.Len() == 0 {
		return nil, nil, fmt.Errorf("no search providers enabled; check provider configuration")
	}

	taxonomy := analyzer.DefaultTaxonomy()
	if cfg.IntentTaxonomyPath != "" {
		taxonomy, err = analyzer.LoadTaxonomyFile(cfg.IntentTaxonomyPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load taxonomy from %s: %w", cfg.IntentTaxonomyPath, err)
		}
		log.Printf("Loaded intent taxonomy overrides from %s", cfg.IntentTaxonomyPath)
	}

	orch := orchestrator.New(
		cfg,
		analyzer.NewAnalyzer(taxonomy),
		planner.New(cfg),
		dispatch.New(cfg, registry, reformulate.NewDefault()),
		rank.NewAggregator(rank.DefaultPolicy()),
		registry,
	)

	return orch, registry, nil
}
