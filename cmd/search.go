package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/cobra"

	appconfig "github.com/searchmux/searchmux/internal/config"
	"github.com/searchmux/searchmux/internal/metrics"
	"github.com/searchmux/searchmux/internal/orchestrator"
	"github.com/searchmux/searchmux/internal/types"
)

var (
	searchQuery          string
	searchMaxResults     int
	searchAgentType      string
	searchOutputJSON     bool
	searchPreferredTools []string
	searchThreshold      float64
	searchTimeout        int
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one orchestrated search across all configured providers",
	Long: `
Analyze a query, select matching providers, run them concurrently, and print
the merged ranked results.

Examples:
  # Basic search
  searchmux search -q "latest research on battery technology"

  # JSON output with a result cap
  searchmux search -q "what is quantum computing" --max-results 5 --json

  # Bias planning toward specific providers
  searchmux search -q "neural networks" --preferred-tools semanticscholar,googlepatents
`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVarP(&searchQuery, "query", "q", "", "Text query to search for (required)")
	searchCmd.Flags().IntVarP(&searchMaxResults, "max-results", "k", 0, "Maximum number of ranked results (defaults to config)")
	searchCmd.Flags().StringVar(&searchAgentType, "agent-type", "cli", "Caller identifier recorded in response metadata")
	searchCmd.Flags().BoolVarP(&searchOutputJSON, "json", "j", false, "Output the full response envelope as JSON")
	searchCmd.Flags().StringSliceVar(&searchPreferredTools, "preferred-tools", nil, "Providers to boost during planning")
	searchCmd.Flags().Float64Var(&searchThreshold, "threshold", 0, "Override the provider selection threshold (0.0-1.0)")
	searchCmd.Flags().IntVar(&searchTimeout, "timeout", 0, "Search timeout in seconds (defaults to config)")

	_ = searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if cmd.Flags().Changed("timeout") {
		cfg.SearchTimeoutSeconds = searchTimeout
	}

	orch, _, err := buildSearchStack(cfg)
	if err != nil {
		return err
	}

	metrics.RecordInvocation(metrics.ModeSearch)

	req := orchestrator.Request{
		Query:      searchQuery,
		MaxResults: searchMaxResults,
		AgentType:  searchAgentType,
	}
	if len(searchPreferredTools) > 0 || cmd.Flags().Changed("threshold") {
		req.Preferences = make(map[string]interface{})
		if len(searchPreferredTools) > 0 {
			req.Preferences["preferred_tools"] = searchPreferredTools
		}
		if cmd.Flags().Changed("threshold") {
			req.Preferences["selection_threshold"] = searchThreshold
		}
	}

	log.Printf("Searching for: %s", searchQuery)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.SearchTimeoutSeconds+5)*time.Second)
	defer cancel()

	response := orch.Search(ctx, req)

	if searchOutputJSON {
		encoded, err := json.MarshalIndent(response, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
		fmt.Println(string(encoded))
	} else {
		fmt.Print(formatSearchResponse(response))
	}

	if !response.Success {
		return fmt.Errorf("search failed: %s", response.Error)
	}
	return nil
}

// formatSearchResponse renders a response envelope for terminal output
func formatSearchResponse(response *types.OrchestrationResponse) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Query: %s\n", response.Query)
	fmt.Fprintf(&b, "Topic: %s, temporal scope: %s\n", response.Analysis.MainTopic, response.Analysis.TemporalScope)
	if len(response.Metadata.ToolsUsed) > 0 {
		fmt.Fprintf(&b, "Providers: %s\n", strings.Join(response.Metadata.ToolsUsed, ", "))
	}
	fmt.Fprintf(&b, "Execution: %s (%s)\n", response.Metadata.ExecutionTime, response.Metadata.ExecutionStrategy)

	if !response.Success {
		fmt.Fprintf(&b, "\nNo results: %s\n", response.Error)
		return b.String()
	}

	fmt.Fprintf(&b, "\nResults (%d):\n", len(response.Results))
	for i, result := range response.Results {
		fmt.Fprintf(&b, "%2d. [%.3f] %s\n", i+1, result.FinalScore, result.Title)
		fmt.Fprintf(&b, "    %s (%s)\n", result.URL, result.SourceTool)
		if result.Snippet != "" {
			fmt.Fprintf(&b, "    %s\n", truncateSnippet(result.Snippet, 160))
		}
	}

	return b.String()
}

func truncateSnippet(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
