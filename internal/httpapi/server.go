package httpapi

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/searchmux/searchmux/internal/orchestrator"
	"github.com/searchmux/searchmux/internal/providers"
	"github.com/searchmux/searchmux/internal/types"
)

// Searcher runs an orchestrated multi-provider search.
type Searcher interface {
	Search(ctx context.Context, req orchestrator.Request) *types.OrchestrationResponse
}

// ServerConfig holds the HTTP API server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Host:            "localhost",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		IdleTimeout:     120 * time.Second,
		ShutdownTimeout: 30 * time.Second,
	}
}

// Server exposes the search orchestrator over a small JSON HTTP API
type Server struct {
	config       *ServerConfig
	searcher     Searcher
	registry     *providers.Registry
	httpServer   *http.Server
	logger       *log.Logger
	cancelFunc   context.CancelFunc
	shutdownOnce sync.Once
}

// NewServer creates a new HTTP API server
func NewServer(serverConfig *ServerConfig, searcher Searcher, registry *providers.Registry, logger *log.Logger) (*Server, error) {
	if serverConfig == nil {
		serverConfig = DefaultServerConfig()
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher cannot be nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("provider registry cannot be nil")
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[httpapi] ", log.LstdFlags)
	}

	return &Server{
		config:   serverConfig,
		searcher: searcher,
		registry: registry,
		logger:   logger,
	}, nil
}

// Run starts the server and blocks until the context is cancelled
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel
	defer cancel()

	mux := s.setupRoutes()
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Host, s.config.Port),
		Handler:      s.loggingMiddleware(mux),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  s.config.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("Starting search API server at http://%s:%d", s.config.Host, s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-errChan:
		return err
	}
}

// shutdown performs graceful shutdown
func (s *Server) shutdown() error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.logger.Println("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			shutdownErr = fmt.Errorf("server shutdown error: %w", err)
		}
	})
	return shutdownErr
}

// setupRoutes configures HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/providers", s.handleProviders)
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		s.logger.Printf("%s %s", r.Method, r.URL.Path)

		next.ServeHTTP(w, r)

		s.logger.Printf("%s %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}
