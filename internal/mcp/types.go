package mcp

import (
	"encoding/json"

	"gitingest-mcp/server/internal/tools"
)

// ProtocolVersion is announced when the client does not ask for one.
const ProtocolVersion = "2025-03-26"

// Implementation identifies a client or server in the initialize handshake.
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerInfo names this server.
type ServerInfo = Implementation

// InitializeParams is what a client sends with initialize. Client
// capabilities are accepted but not interpreted.
type InitializeParams struct {
	ProtocolVersion string          `json:"protocolVersion"`
	Capabilities    json.RawMessage `json:"capabilities,omitempty"`
	ClientInfo      Implementation  `json:"clientInfo"`
}

type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// ListCapability advertises a list-style feature. The lists never change at
// runtime.
type ListCapability struct {
	ListChanged bool `json:"listChanged"`
}

type ServerCapabilities struct {
	Tools   *ListCapability `json:"tools,omitempty"`
	Prompts *ListCapability `json:"prompts,omitempty"`
}

type ToolsListResult struct {
	Tools []tools.Tool `json:"tools"`
}

type ToolCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type PromptsListResult struct {
	Prompts []PromptInfo `json:"prompts"`
}

type PromptInfo struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

// PromptArgument always carries required, false included.
type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required"`
}

type PromptsGetParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// PromptsGetResult is the prompt definition together with its rendered
// messages.
type PromptsGetResult struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments"`
	Messages    []PromptMessage  `json:"messages"`
}

type PromptMessage struct {
	Role    string      `json:"role"`
	Content TextContent `json:"content"`
}

type TextContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}
