package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by spans.
const (
	AttrRepository   = attribute.Key("repo.name")
	AttrBranch       = attribute.Key("repo.branch")
	AttrSubdirectory = attribute.Key("repo.subdirectory")
	AttrPatterns     = attribute.Key("ingest.include_patterns")
	AttrFallback     = attribute.Key("analysis.fallback")
	AttrFileCount    = attribute.Key("analysis.file_count")
	AttrTokens       = attribute.Key("analysis.estimated_tokens")
	AttrMethod       = attribute.Key("rpc.method")
	AttrTool         = attribute.Key("mcp.tool")
)

// StartSpan starts a span on tracer, or returns the current span when tracer
// is nil.
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, name, opts...)
}

// RecordError marks span as failed. The status text stays generic; the error
// itself is attached as an event.
func RecordError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "operation failed")
	}
}
