// Package tools holds the MCP tool definitions the server exposes and runs
// them with schema validation and call logging.
package tools

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"gitingest-mcp/server/internal/apperr"
	"gitingest-mcp/server/internal/middleware"
	"gitingest-mcp/server/internal/observability"
	"gitingest-mcp/server/internal/telemetry"
)

// Handler is one callable tool.
type Handler interface {
	Definition() Tool
	Call(ctx context.Context, params map[string]any) (*ToolCallResult, error)
}

// Registry maps tool names to handlers. It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	tracer   trace.Tracer
}

// NewRegistry creates a registry holding handlers.
func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	for _, h := range handlers {
		r.Register(h)
	}
	return r
}

// WithTracer sets the tracer used for tool call spans.
func (r *Registry) WithTracer(t trace.Tracer) *Registry {
	r.tracer = t
	return r
}

// Register adds h, replacing any handler of the same name.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[h.Definition().Name] = h
}

// List returns the tool definitions sorted by name.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Tool, 0, len(r.handlers))
	for _, h := range r.handlers {
		out = append(out, h.Definition())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Call validates params against the tool's schema and runs it. Unknown names
// fail with apperr UnknownTool.
func (r *Registry) Call(ctx context.Context, name string, params map[string]any) (res *ToolCallResult, err error) {
	r.mu.RLock()
	h, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, apperr.UnknownTool(name)
	}

	ctx, span := telemetry.StartSpan(ctx, r.tracer, "tools.Call")
	span.SetAttributes(telemetry.AttrTool.String(name))
	start := time.Now()
	defer func() {
		status, errMsg := "success", ""
		if err != nil {
			status, errMsg = "error", err.Error()
		}
		observability.LogToolCall(middleware.GetRequestID(ctx), name, time.Since(start).Milliseconds(), status, errMsg)
		telemetry.RecordError(span, err)
		span.End()
	}()

	validated, err := ValidateParams(h.Definition().InputSchema, params)
	if err != nil {
		return nil, err
	}
	return h.Call(ctx, validated)
}
