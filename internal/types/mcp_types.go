package types

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MCPToolDefinition is an alias to the SDK Tool type.
type MCPToolDefinition = mcp.Tool

// MCPToolRequest is an alias to the SDK CallToolRequest type.
type MCPToolRequest = mcp.CallToolRequest

// MCPToolCallResult represents the result of a tool call.
type MCPToolCallResult struct {
	Content []MCPContent `json:"content"`
	IsError bool         `json:"isError,omitempty"`
}

// MCPContent is one content item of a tool result.
type MCPContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// IntelligentSearchRequest represents parameters for the orchestrated
// multi-provider search tool.
type IntelligentSearchRequest struct {
	Query      string                 `json:"query"`
	MaxResults int                    `json:"max_results,omitempty"`
	AgentType  string                 `json:"agent_type,omitempty"`
	Prefs      map[string]interface{} `json:"user_preferences,omitempty"`
}

// ProviderSearchRequest represents parameters for one raw provider tool.
type ProviderSearchRequest struct {
	Query      string                 `json:"query"`
	MaxResults int                    `json:"max_results,omitempty"`
	Params     map[string]interface{} `json:"params,omitempty"`
}

// NewMCPContent creates a new MCP text content item using SDK types.
func NewMCPContent(text string) *mcp.TextContent {
	return &mcp.TextContent{
		Text: text,
	}
}
