package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/searchmux/searchmux/internal/metrics"
)

var statsOutputJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cumulative invocation counts per entry point",
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVarP(&statsOutputJSON, "json", "j", false, "Output in JSON format")
}

func runStats(cmd *cobra.Command, args []string) error {
	if err := metrics.Init(); err != nil {
		return fmt.Errorf("failed to open metrics store: %w", err)
	}
	defer func() {
		_ = metrics.Close()
	}()

	stats := metrics.GetStats()
	if stats == nil {
		stats = map[metrics.Mode]int64{}
	}

	if statsOutputJSON {
		encoded, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode stats: %w", err)
		}
		fmt.Println(string(encoded))
		return nil
	}

	fmt.Println("Invocation counts:")
	for _, mode := range []metrics.Mode{metrics.ModeSearch, metrics.ModeServe, metrics.ModeMCP} {
		fmt.Printf("  %-8s %d\n", mode, stats[mode])
	}
	return nil
}
