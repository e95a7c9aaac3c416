package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/searchmux/searchmux/internal/providers"
	"github.com/searchmux/searchmux/internal/types"
)

const serverVersion = "1.0.0"

// Server wraps the MCP SDK server with tool registration and IP auth
type Server struct {
	sdkServer  *mcp.Server
	httpServer *http.Server

	config       *types.Config
	toolRegistry *ToolRegistry
	ipAuth       *IPAuthMiddleware

	logger       *log.Logger
	shutdownChan chan struct{}
	wg           sync.WaitGroup
	mutex        sync.RWMutex
	isRunning    bool

	ctx        context.Context
	cancelFunc context.CancelFunc
}

// NewServer creates a new MCP server instance
func NewServer(config *types.Config) (*Server, error) {
	if config == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	impl := &mcp.Implementation{
		Name:    "searchmux-mcp-server",
		Version: serverVersion,
	}

	s := &Server{
		sdkServer:    mcp.NewServer(impl, nil),
		config:       config,
		toolRegistry: NewToolRegistry(),
		logger:       log.New(os.Stdout, "[MCPServer] ", log.LstdFlags),
		shutdownChan: make(chan struct{}),
	}
	s.ctx, s.cancelFunc = context.WithCancel(context.Background())

	if len(config.MCPAllowedIPs) > 0 {
		ipAuth, err := NewIPAuthMiddleware(config.MCPAllowedIPs, true)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize IP authentication: %w", err)
		}
		s.ipAuth = ipAuth
	}

	return s, nil
}

// GetToolRegistry returns the tool registry
func (s *Server) GetToolRegistry() *ToolRegistry {
	return s.toolRegistry
}

// RegisterSearchTools registers the orchestrated search tool and one raw tool
// per configured provider
func (s *Server) RegisterSearchTools(searcher Searcher, registry *providers.Registry) error {
	searchAdapter, err := NewIntelligentSearchToolAdapter(searcher, s.config.DefaultMaxResults)
	if err != nil {
		return fmt.Errorf("failed to create intelligent search tool: %w", err)
	}
	if err := s.registerTool("intelligent_search", searchAdapter.GetToolDefinition(), searchAdapter.HandleToolCall); err != nil {
		return err
	}

	for _, name := range registry.Names() {
		provider, ok := registry.Get(name)
		if !ok {
			continue
		}
		adapter, err := NewProviderToolAdapter(provider, s.config.PerToolResultCeiling)
		if err != nil {
			return fmt.Errorf("failed to create tool for provider %s: %w", name, err)
		}
		if err := s.registerTool(adapter.InternalName(), adapter.GetToolDefinition(), adapter.HandleToolCall); err != nil {
			return err
		}
	}

	s.logger.Printf("Registered %d tools", s.toolRegistry.ToolCount())
	return nil
}

// registerTool registers a tool in the registry and bridges it to the SDK server
func (s *Server) registerTool(internalName string, definition types.MCPToolDefinition, handler ToolHandler) error {
	if err := ValidateToolDefinition(definition); err != nil {
		return fmt.Errorf("tool definition validation failed for %s: %w", internalName, err)
	}

	if err := s.toolRegistry.RegisterTool(internalName, definition, handler); err != nil {
		return err
	}

	// The registry may have renamed the tool through environment variables
	registered, err := s.toolRegistry.GetTool(s.toolRegistry.GetToolNameMapping()[internalName])
	if err != nil {
		return err
	}

	sdkTool := &mcp.Tool{
		Name:        registered.Name,
		Description: registered.Description,
		InputSchema: registered.InputSchema,
	}
	s.sdkServer.AddTool(sdkTool, s.createSDKHandler(registered.Name))

	return nil
}

// createSDKHandler bridges the registry execution path to the SDK handler signature
func (s *Server) createSDKHandler(toolName string) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := make(map[string]interface{})
		if req.Params.Arguments != nil {
			if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool arguments: %w", err)
			}
		}

		start := time.Now()
		result, err := s.toolRegistry.ExecuteTool(ctx, toolName, params)

		attrs := []attribute.KeyValue{attribute.String("tool.name", toolName)}
		errType := ""
		if err != nil {
			errType = "execution"
		} else if result != nil && result.IsError {
			errType = "tool"
		}
		recordMCPMetrics(ctx, attrs, time.Since(start), errType)

		if err != nil && result == nil {
			return nil, err
		}

		return convertToSDKResult(result), nil
	}
}

// convertToSDKResult converts a registry tool result to the SDK result type
func convertToSDKResult(result *types.MCPToolCallResult) *mcp.CallToolResult {
	if result == nil {
		return &mcp.CallToolResult{}
	}

	var content []mcp.Content
	for _, c := range result.Content {
		if c.Type == "text" {
			content = append(content, &mcp.TextContent{Text: c.Text})
		}
	}

	return &mcp.CallToolResult{
		Content: content,
		IsError: result.IsError,
	}
}

// Start starts the MCP server
func (s *Server) Start() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.isRunning {
		return fmt.Errorf("server is already running")
	}

	serverAddr := fmt.Sprintf("%s:%d", s.config.MCPServerHost, s.config.MCPServerPort)
	s.logger.Printf("Starting MCP server on %s", serverAddr)

	mux := http.NewServeMux()

	getServer := func(r *http.Request) *mcp.Server { return s.sdkServer }
	mux.Handle("/", mcp.NewStreamableHTTPHandler(getServer, nil))
	mux.HandleFunc("/health", s.handleHealthCheck)

	var handler http.Handler = mux
	if s.ipAuth != nil {
		handler = s.ipAuth.Middleware(handler)
		s.logger.Printf("IP authentication middleware enabled")
	}
	handler = s.loggingMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:           serverAddr,
		Handler:        handler,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   30 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("HTTP server error: %v", err)
		}
	}()

	s.isRunning = true
	s.logger.Printf("MCP server started successfully")
	return nil
}

// Stop gracefully stops the MCP server
func (s *Server) Stop() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if !s.isRunning {
		return fmt.Errorf("server is not running")
	}

	s.logger.Printf("Stopping MCP server...")

	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Printf("Graceful shutdown failed: %v, forcing immediate shutdown", err)
			if err := s.httpServer.Close(); err != nil {
				s.logger.Printf("Failed to close HTTP server: %v", err)
			}
		}
	}

	s.cancelFunc()
	close(s.shutdownChan)
	s.wg.Wait()

	s.isRunning = false
	s.logger.Printf("MCP server stopped successfully")
	return nil
}

// IsRunning returns whether the server is currently running
func (s *Server) IsRunning() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.isRunning
}

// WaitForShutdown blocks until the server is shut down
func (s *Server) WaitForShutdown() {
	<-s.shutdownChan
}

// handleHealthCheck handles health check requests
func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := fmt.Sprintf(`{"status":"healthy","version":"%s","running":%v,"tools":%d}`,
		serverVersion, s.IsRunning(), s.toolRegistry.ToolCount())
	if _, err := w.Write([]byte(response)); err != nil {
		s.logger.Printf("Failed to write response: %v", err)
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += int64(n)
	return n, err
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lrw, r)

		forwarded := strings.Join(r.Header.Values("X-Forwarded-For"), ",")
		s.logger.Printf(
			"Request: %s %s status=%d bytes=%d duration=%s remote=%s forwarded=%s user_agent=%q",
			r.Method,
			r.URL.Path,
			lrw.status,
			lrw.size,
			time.Since(start),
			r.RemoteAddr,
			forwarded,
			r.Header.Get("User-Agent"),
		)
	})
}
