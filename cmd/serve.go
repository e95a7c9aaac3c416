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
	"github.com/searchmux/searchmux/internal/httpapi"
	"github.com/searchmux/searchmux/internal/observability"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the JSON HTTP API server",
	Long: `
Start an HTTP server exposing the search orchestrator:

  POST /api/search     run an orchestrated search
  GET  /api/providers  list enabled providers
  GET  /health         health check

Examples:
  searchmux serve
  searchmux serve --host 0.0.0.0 --port 9090
`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "", "Server host address (defaults to config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Server port (defaults to config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := appconfig.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.Flags().Changed("host") {
		cfg.HTTPServerHost = serveHost
	}
	if cmd.Flags().Changed("port") {
		cfg.HTTPServerPort = servePort
	}

	logger := log.New(os.Stdout, "[httpapi] ", log.LstdFlags)

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

	serverConfig := httpapi.DefaultServerConfig()
	serverConfig.Host = cfg.HTTPServerHost
	serverConfig.Port = cfg.HTTPServerPort

	server, err := httpapi.NewServer(serverConfig, orch, registry, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Printf("Shutdown signal received")
		cancel()
	}()

	return server.Run(ctx)
}
