package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const AnalyzerMeterName = "gitingest-mcp/analyzer"

// Analysis outcomes recorded on gitingest_analyze_requests.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeTimeout      = "timeout"
	OutcomeError        = "error"
)

// AnalyzerMetrics holds the instruments recorded per repository analysis.
// A nil *AnalyzerMetrics records nothing.
type AnalyzerMetrics struct {
	requests  metric.Int64Counter
	fallbacks metric.Int64Counter
	duration  metric.Float64Histogram
	tokens    metric.Int64Histogram
}

// NewAnalyzerMetrics creates the instruments on provider. A nil provider
// yields nil metrics.
func NewAnalyzerMetrics(provider metric.MeterProvider) (*AnalyzerMetrics, error) {
	if provider == nil {
		return nil, nil
	}
	meter := provider.Meter(AnalyzerMeterName)

	requests, err := meter.Int64Counter(
		"gitingest_analyze_requests",
		metric.WithDescription("Repository analyses by outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	fallbacks, err := meter.Int64Counter(
		"gitingest_analyze_fallbacks",
		metric.WithDescription("Analyses that degraded to README-only content"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram(
		"gitingest_analyze_duration",
		metric.WithDescription("Duration of repository analyses"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.5, 1, 2.5, 5, 10, 30, 60, 120, 300),
	)
	if err != nil {
		return nil, err
	}

	tokens, err := meter.Int64Histogram(
		"gitingest_analyze_estimated_tokens",
		metric.WithDescription("Estimated token count of returned content"),
		metric.WithUnit("{token}"),
		metric.WithExplicitBucketBoundaries(1024, 8192, 32768, 65536, 131072, 262144, 524288),
	)
	if err != nil {
		return nil, err
	}

	return &AnalyzerMetrics{
		requests:  requests,
		fallbacks: fallbacks,
		duration:  duration,
		tokens:    tokens,
	}, nil
}

// RecordAnalysis records one finished analysis.
func (m *AnalyzerMetrics) RecordAnalysis(ctx context.Context, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.requests.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordFallback counts a README-only retry.
func (m *AnalyzerMetrics) RecordFallback(ctx context.Context) {
	if m == nil {
		return
	}
	m.fallbacks.Add(ctx, 1)
}

// RecordTokens records the token estimate of a returned result.
func (m *AnalyzerMetrics) RecordTokens(ctx context.Context, tokens int) {
	if m == nil {
		return
	}
	m.tokens.Record(ctx, int64(tokens))
}
