package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "searchmux",
	Short: "searchmux - intelligent multi-provider search orchestration",
	Long: `searchmux analyzes a query, picks the best search providers for it
(web, news, academic papers, patents, experts, internal knowledge), runs them
concurrently with per-provider budgets and retries, and merges the results
into a single relevance-ranked list.

The orchestrator is exposed three ways: a one-shot CLI search, a JSON HTTP
API, and an MCP (Model Context Protocol) server for agent clients.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(providersCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mcpServerCmd)
	rootCmd.AddCommand(statsCmd)
}
