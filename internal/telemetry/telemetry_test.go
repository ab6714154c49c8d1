package telemetry

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewDisabled(t *testing.T) {
	tel, err := New(context.Background(), Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	assert.Nil(t, tel.MetricsHandler())
	assert.NotNil(t, tel.Tracer("test"))
	assert.NotNil(t, tel.MeterProvider())
}

func TestMetricsEndpointExposesAnalyzerMetrics(t *testing.T) {
	tel, err := New(context.Background(), Config{MetricsEnabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	m, err := NewAnalyzerMetrics(tel.MeterProvider())
	require.NoError(t, err)
	m.RecordAnalysis(context.Background(), OutcomeSuccess, 2*time.Second)
	m.RecordFallback(context.Background())
	m.RecordTokens(context.Background(), 1000)

	handler := tel.MetricsHandler()
	require.NotNil(t, handler)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "gitingest_analyze_requests")
	assert.Contains(t, string(body), "gitingest_analyze_fallbacks")
	assert.Contains(t, string(body), `outcome="success"`)
}

func TestNilAnalyzerMetrics(t *testing.T) {
	m, err := NewAnalyzerMetrics(nil)
	require.NoError(t, err)
	assert.Nil(t, m)

	assert.NotPanics(t, func() {
		m.RecordAnalysis(context.Background(), OutcomeError, time.Second)
		m.RecordFallback(context.Background())
		m.RecordTokens(context.Background(), 1)
	})
}

func TestStartSpanNilTracer(t *testing.T) {
	ctx := context.Background()
	gotCtx, span := StartSpan(ctx, nil, "noop")
	assert.Equal(t, ctx, gotCtx)
	assert.False(t, span.SpanContext().IsValid())
}

func TestRecordError(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := StartSpan(context.Background(), tp.Tracer("test"), "op")
	RecordError(span, errors.New("boom"))
	RecordError(span, nil)
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "operation failed", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}

func TestHTTPMetricsMiddleware(t *testing.T) {
	tel, err := New(context.Background(), Config{MetricsEnabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })

	m, err := NewHTTPMetrics(tel.MeterProvider())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	tel.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Contains(t, body, "gitingest_http_requests")
	assert.Contains(t, body, `status_code="200"`)
	assert.Contains(t, body, `method="GET"`)
}

func TestNilHTTPMetricsPassesThrough(t *testing.T) {
	var m *HTTPMetrics
	called := false
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}
