package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appconfig "github.com/searchmux/searchmux/internal/config"
	"github.com/searchmux/searchmux/internal/mcpserver"
	"github.com/searchmux/searchmux/internal/observability"
)

var (
	mcpServerHost string
	mcpServerPort int
	mcpAllowedIPs []string
)

var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start the MCP (Model Context Protocol) server",
	Long: `
Start an MCP server that exposes the search orchestrator as tools for
MCP-compatible clients like Claude Desktop, IDEs, and agent frameworks.

The server provides an "intelligent_search" tool that runs the full
analyze/plan/dispatch/rank pipeline, plus one raw "search_<provider>" tool
per enabled provider for direct access without orchestration.

Examples:
  searchmux mcp-server                               # Default settings
  searchmux mcp-server --port 9000                   # Custom port
  searchmux mcp-server --allowed-ips "192.168.1.0/24"
`,
	RunE: runMCPServer,
}

func init() {
	mcpServerCmd.Flags().StringVar(&mcpServerHost, "host", "", "Server host address (defaults to config)")
	mcpServerCmd.Flags().IntVar(&mcpServerPort, "port", 0, "Server port (defaults to config)")
	mcpServerCmd.Flags().StringSliceVar(&mcpAllowedIPs, "allowed-ips", nil, "Comma-separated list of allowed IP addresses/ranges")
}

func runMCPServer(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		cfg.MCPServerHost = mcpServerHost
	}
	if cmd.Flags().Changed("port") {
		cfg.MCPServerPort = mcpServerPort
	}
	if cmd.Flags().Changed("allowed-ips") {
		cfg.MCPAllowedIPs = mcpAllowedIPs
	}

	logger := log.New(os.Stdout, "[MCP Server] ", log.LstdFlags)

	shutdownObservability, err := observability.Init(cfg)
	if err != nil {
		logger.Printf("Observability init failed, continuing without exporters: %v", err)
	} else {
		defer func() {
			if err := shutdownObservability(context.Background()); err != nil {
				logger.Printf("Observability shutdown error: %v", err)
			}
		}()
	}

	orch, registry, err := buildSearchStack(cfg)
	if err != nil {
		return err
	}
	logger.Printf("Search stack ready with %d providers", registry.Len())

	server, err := mcpserver.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	if err := server.RegisterSearchTools(orch, registry); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Printf("MCP server running, press Ctrl+C to stop")
	<-sigChan

	logger.Printf("Shutdown signal received")
	if err := server.Stop(); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	return nil
}
