// Package mcp dispatches MCP JSON-RPC methods to the tool registry and the
// prompt catalog.
package mcp

import (
	"context"
	"encoding/json"
	"runtime/debug"
	"strings"

	"github.com/go-faster/errors"
	logger "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"gitingest-mcp/server/internal/apperr"
	"gitingest-mcp/server/internal/jsonrpc"
	"gitingest-mcp/server/internal/middleware"
	"gitingest-mcp/server/internal/prompts"
	"gitingest-mcp/server/internal/telemetry"
	"gitingest-mcp/server/internal/tools"
)

// Method names.
const (
	MethodInitialize              = "initialize"
	MethodInitialized             = "initialized"
	MethodNotificationInitialized = "notifications/initialized"
	MethodPing                    = "ping"
	MethodToolsList               = "tools/list"
	MethodToolsCall               = "tools/call"
	MethodPromptsList             = "prompts/list"
	MethodPromptsGet              = "prompts/get"

	notificationPrefix = "notifications/"
)

// ToolRegistry lists and runs tools.
type ToolRegistry interface {
	List() []tools.Tool
	Call(ctx context.Context, name string, params map[string]any) (*tools.ToolCallResult, error)
}

// PromptCatalog lists and renders prompts.
type PromptCatalog interface {
	List() []prompts.Prompt
	Get(name string, args map[string]any) (*prompts.Rendered, error)
}

type Handler struct {
	tools   ToolRegistry
	prompts PromptCatalog
	info    ServerInfo
	tracer  trace.Tracer
}

// NewHandler creates a dispatcher over registry and catalog.
func NewHandler(registry ToolRegistry, catalog PromptCatalog, info ServerInfo) *Handler {
	return &Handler{
		tools:   registry,
		prompts: catalog,
		info:    info,
	}
}

// WithTracer sets the tracer used for method spans.
func (h *Handler) WithTracer(t trace.Tracer) *Handler {
	h.tracer = t
	return h
}

// Handle runs req and builds its response envelope. Every failure, including
// a panic below this point, becomes an error response carrying the request
// id, null when the request had none. Only a successful notification gets no
// response.
func (h *Handler) Handle(ctx context.Context, req *jsonrpc.Request) (resp *jsonrpc.Response) {
	ctx, span := telemetry.StartSpan(ctx, h.tracer, "mcp."+req.Method)
	span.SetAttributes(telemetry.AttrMethod.String(req.Method))
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			logger.WithFields(logger.Fields{
				"method":     req.Method,
				"request_id": middleware.GetRequestID(ctx),
			}).Errorf("panic in %s: %v\n%s", req.Method, rec, debug.Stack())
			err := errors.Errorf("internal error: %v", rec)
			telemetry.RecordError(span, err)
			resp = h.respond(req, nil, err)
		}
	}()

	result, err := h.ProcessRequest(ctx, req)
	telemetry.RecordError(span, err)
	return h.respond(req, result, err)
}

func (h *Handler) respond(req *jsonrpc.Request, result any, err error) *jsonrpc.Response {
	if err != nil {
		return jsonrpc.NewError(req.ID, errorCode(err), err.Error())
	}
	if isNotification(req) {
		return nil
	}
	return jsonrpc.NewResult(req.ID, result)
}

// isNotification reports whether req is a lifecycle notification. Other
// requests without an id are still answered.
func isNotification(req *jsonrpc.Request) bool {
	if req.ID != nil {
		return false
	}
	return req.Method == MethodInitialized || strings.HasPrefix(req.Method, notificationPrefix)
}

// errorCode maps an error to its JSON-RPC code. Only an unrecognized method
// is reported as such; everything else is an internal error.
func errorCode(err error) int {
	if apperr.KindOf(err) == apperr.KindUnknownMethod {
		return jsonrpc.MethodNotFound
	}
	return jsonrpc.InternalError
}

// ProcessRequest routes a JSON-RPC request to the appropriate handler.
func (h *Handler) ProcessRequest(ctx context.Context, req *jsonrpc.Request) (any, error) {
	switch req.Method {
	case MethodInitialize:
		return h.handleInitialize(req)
	case MethodInitialized, MethodNotificationInitialized:
		return struct{}{}, nil
	case MethodPing:
		return struct{}{}, nil
	case MethodToolsList:
		return &ToolsListResult{Tools: h.tools.List()}, nil
	case MethodToolsCall:
		return h.handleToolCall(ctx, req)
	case MethodPromptsList:
		return h.handlePromptsList(), nil
	case MethodPromptsGet:
		return h.handlePromptsGet(req)
	default:
		if strings.HasPrefix(req.Method, notificationPrefix) {
			return struct{}{}, nil
		}
		return nil, apperr.UnknownMethod(req.Method)
	}
}

// decodeParams unmarshals req.Params into v. Absent params leave v zero.
func decodeParams(req *jsonrpc.Request, v any) error {
	if len(req.Params) == 0 || string(req.Params) == "null" {
		return nil
	}
	if err := json.Unmarshal(req.Params, v); err != nil {
		return apperr.InvalidInput("Invalid params: %v", err)
	}
	return nil
}

func (h *Handler) handleInitialize(req *jsonrpc.Request) (*InitializeResult, error) {
	var params InitializeParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	logger.WithFields(logger.Fields{
		"client":         params.ClientInfo.Name,
		"client_version": params.ClientInfo.Version,
		"protocol":       params.ProtocolVersion,
	}).Info("client initialized")

	version := params.ProtocolVersion
	if version == "" {
		version = ProtocolVersion
	}
	return &InitializeResult{
		ProtocolVersion: version,
		Capabilities: ServerCapabilities{
			Tools:   &ListCapability{},
			Prompts: &ListCapability{},
		},
		ServerInfo: h.info,
	}, nil
}

func (h *Handler) handleToolCall(ctx context.Context, req *jsonrpc.Request) (*tools.ToolCallResult, error) {
	var params ToolCallParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, apperr.InvalidInput("tool name is required")
	}
	return h.tools.Call(ctx, params.Name, params.Arguments)
}

func convertArguments(args []prompts.Argument) []PromptArgument {
	out := make([]PromptArgument, 0, len(args))
	for _, a := range args {
		out = append(out, PromptArgument{Name: a.Name, Description: a.Description, Required: a.Required})
	}
	return out
}

func (h *Handler) handlePromptsList() *PromptsListResult {
	list := h.prompts.List()
	infos := make([]PromptInfo, 0, len(list))
	for _, p := range list {
		infos = append(infos, PromptInfo{
			Name:        p.Name,
			Description: p.Description,
			Arguments:   convertArguments(p.Arguments),
		})
	}
	return &PromptsListResult{Prompts: infos}
}

func (h *Handler) handlePromptsGet(req *jsonrpc.Request) (*PromptsGetResult, error) {
	var params PromptsGetParams
	if err := decodeParams(req, &params); err != nil {
		return nil, err
	}
	if params.Name == "" {
		return nil, apperr.InvalidInput("prompt name is required")
	}

	rendered, err := h.prompts.Get(params.Name, params.Arguments)
	if err != nil {
		return nil, err
	}

	messages := make([]PromptMessage, 0, len(rendered.Messages))
	for _, m := range rendered.Messages {
		messages = append(messages, PromptMessage{
			Role:    m.Role,
			Content: TextContent{Type: "text", Text: m.Text},
		})
	}
	return &PromptsGetResult{
		Name:        rendered.Prompt.Name,
		Description: rendered.Prompt.Description,
		Arguments:   convertArguments(rendered.Prompt.Arguments),
		Messages:    messages,
	}, nil
}
