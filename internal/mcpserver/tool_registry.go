package mcpserver

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/searchmux/searchmux/internal/types"
)

// ToolHandler executes one tool call with already-decoded parameters.
type ToolHandler func(ctx context.Context, params map[string]interface{}) (*types.MCPToolCallResult, error)

type toolEntry struct {
	definition types.MCPToolDefinition
	handler    ToolHandler
}

// ToolRegistry maps tool names to handlers and owns the per-deployment
// renaming scheme. Tools are registered under an internal name; the name
// exposed to MCP clients can differ when MCP_TOOL_NAME_* or MCP_TOOL_PREFIX
// environment variables are set.
type ToolRegistry struct {
	tools       map[string]*toolEntry
	toolNameMap map[string]string
	mutex       sync.RWMutex
	logger      *log.Logger
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		tools:       make(map[string]*toolEntry),
		toolNameMap: make(map[string]string),
		logger:      log.New(os.Stdout, "[ToolRegistry] ", log.LstdFlags),
	}
}

// RegisterTool adds a tool under its internal name. The definition's Name
// field is overwritten with the configured (possibly renamed) name before it
// is stored. Both the internal and the configured name must be unique.
func (tr *ToolRegistry) RegisterTool(internalName string, definition types.MCPToolDefinition, handler ToolHandler) error {
	if internalName == "" {
		return fmt.Errorf("internal tool name cannot be empty")
	}
	if handler == nil {
		return fmt.Errorf("tool handler cannot be nil")
	}

	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	if _, exists := tr.tools[internalName]; exists {
		return fmt.Errorf("tool with internal name '%s' already registered", internalName)
	}

	configuredName := configuredToolName(internalName)
	definition.Name = configuredName
	if tr.findByConfiguredName(configuredName) != nil {
		return fmt.Errorf("tool with name '%s' already registered", configuredName)
	}

	tr.tools[internalName] = &toolEntry{definition: definition, handler: handler}
	tr.toolNameMap[internalName] = configuredName

	tr.logger.Printf("Registered tool: %s (internal: %s)", configuredName, internalName)
	return nil
}

// ExecuteTool runs the handler registered under the configured toolName. The
// handler runs in its own goroutine so a stuck backend cannot outlive the
// caller's context; on cancellation the error result is returned immediately
// and the goroutine is abandoned.
func (tr *ToolRegistry) ExecuteTool(ctx context.Context, toolName string, params map[string]interface{}) (*types.MCPToolCallResult, error) {
	tr.mutex.RLock()
	entry := tr.findByConfiguredName(toolName)
	tr.mutex.RUnlock()

	if entry == nil {
		return nil, fmt.Errorf("tool '%s' not found", toolName)
	}

	type execResult struct {
		result *types.MCPToolCallResult
		err    error
	}
	resultCh := make(chan execResult, 1)

	go func() {
		res, err := entry.handler(ctx, params)
		resultCh <- execResult{result: res, err: err}
	}()

	select {
	case <-ctx.Done():
		err := ctx.Err()
		tr.logger.Printf("Tool %s cancelled: %v", toolName, err)
		return CreateToolCallErrorResult(fmt.Sprintf("Tool execution cancelled: %v", err)), err
	case exec := <-resultCh:
		if exec.err != nil {
			tr.logger.Printf("Tool %s failed: %v", toolName, exec.err)
			return CreateToolCallErrorResult(fmt.Sprintf("Tool execution failed: %v", exec.err)), exec.err
		}
		return exec.result, nil
	}
}

// GetTool returns the stored definition for a configured tool name.
func (tr *ToolRegistry) GetTool(toolName string) (*types.MCPToolDefinition, error) {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	if entry := tr.findByConfiguredName(toolName); entry != nil {
		def := entry.definition
		return &def, nil
	}
	return nil, fmt.Errorf("tool '%s' not found", toolName)
}

func (tr *ToolRegistry) HasTool(toolName string) bool {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()
	return tr.findByConfiguredName(toolName) != nil
}

func (tr *ToolRegistry) ToolCount() int {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()
	return len(tr.tools)
}

// GetToolNameMapping returns a copy of the internal-to-configured name map.
func (tr *ToolRegistry) GetToolNameMapping() map[string]string {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	mapping := make(map[string]string, len(tr.toolNameMap))
	for internal, configured := range tr.toolNameMap {
		mapping[internal] = configured
	}
	return mapping
}

// findByConfiguredName requires the caller to hold tr.mutex.
func (tr *ToolRegistry) findByConfiguredName(toolName string) *toolEntry {
	for _, entry := range tr.tools {
		if entry.definition.Name == toolName {
			return entry
		}
	}
	return nil
}

// configuredToolName resolves the externally visible name for a tool.
// Precedence: MCP_TOOL_NAME_<INTERNAL_UPPER>, then MCP_TOOL_NAME_<internal>,
// then MCP_TOOL_PREFIX prepended, then the internal name as-is.
func configuredToolName(internalName string) string {
	if name := os.Getenv("MCP_TOOL_NAME_" + strings.ToUpper(internalName)); name != "" {
		return name
	}
	if name := os.Getenv("MCP_TOOL_NAME_" + internalName); name != "" {
		return name
	}
	if prefix := os.Getenv("MCP_TOOL_PREFIX"); prefix != "" {
		return prefix + internalName
	}
	return internalName
}

// ValidateToolDefinition rejects definitions the SDK would accept but a
// client could not meaningfully call.
func ValidateToolDefinition(definition types.MCPToolDefinition) error {
	if definition.Name == "" {
		return fmt.Errorf("tool name cannot be empty")
	}
	if definition.Description == "" {
		return fmt.Errorf("tool description cannot be empty")
	}
	if definition.InputSchema == nil {
		return fmt.Errorf("tool input schema cannot be nil")
	}
	return nil
}

// CreateToolCallResult wraps text content in a successful call result.
func CreateToolCallResult(content string) *types.MCPToolCallResult {
	return &types.MCPToolCallResult{
		Content: []types.MCPContent{{Type: "text", Text: content}},
	}
}

// CreateToolCallErrorResult wraps an error message in an IsError result.
func CreateToolCallErrorResult(errorMsg string) *types.MCPToolCallResult {
	return &types.MCPToolCallResult{
		Content: []types.MCPContent{{Type: "text", Text: errorMsg}},
		IsError: true,
	}
}
