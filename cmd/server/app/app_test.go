package app

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/dig"

	"gitingest-mcp/server/internal/analyzer"
	"gitingest-mcp/server/internal/config"
	"gitingest-mcp/server/internal/ingest"
	"gitingest-mcp/server/internal/mcp"
	"gitingest-mcp/server/internal/middleware"
	"gitingest-mcp/server/internal/prompts"
	"gitingest-mcp/server/internal/telemetry"
	"gitingest-mcp/server/internal/tools"
	"gitingest-mcp/server/internal/tools/analyzerepo"
)

func testRouter(t *testing.T, secret string) http.Handler {
	t.Helper()

	tel, err := telemetry.New(context.Background(), telemetry.Config{MetricsEnabled: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tel.Shutdown(context.Background()) })
	httpMetrics, err := telemetry.NewHTTPMetrics(tel.MeterProvider())
	require.NoError(t, err)

	ing := ingest.Func(func(context.Context, *ingest.Request) (*ingest.Output, error) {
		return &ingest.Output{Summary: "Repository: o/r", Tree: "└── README.md\n", Content: "hi"}, nil
	})
	catalog, err := prompts.Default()
	require.NoError(t, err)
	handler := mcp.NewHandler(
		tools.NewRegistry(analyzerepo.New(analyzer.New(ing, analyzer.Config{}))),
		catalog,
		mcp.ServerInfo{Name: "gitingest-mcp", Version: "test"},
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return newRouter(routerDeps{
		handler:     handler,
		telemetry:   tel,
		httpMetrics: httpMetrics,
		auth:        middleware.NewAuthenticator(secret),
		limiter:     middleware.NewRateLimiter(ctx, 100),
	})
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	testRouter(t, "").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"status":"ok","service":"gitingest-mcp"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func postRPC(h http.Handler, path, body, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMCPEndpoints(t *testing.T) {
	h := testRouter(t, "")
	for _, path := range []string{MCPPath, LegacyMCPPath} {
		t.Run(path, func(t *testing.T) {
			rec := postRPC(h, path, `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "analyze_repo", gjson.Get(rec.Body.String(), "result.tools.0.name").String())
		})
	}
}

func TestMCPRequestWithoutID(t *testing.T) {
	h := testRouter(t, "")

	rec := postRPC(h, MCPPath, `{"jsonrpc":"2.0","method":"tools/list"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	doc := rec.Body.String()
	assert.Equal(t, gjson.Null, gjson.Get(doc, "id").Type)
	assert.Len(t, gjson.Get(doc, "result.tools").Array(), 1)

	rec = postRPC(h, MCPPath, `{"jsonrpc":"2.0","method":"tools/call","params":{"name":"analyze_repo","arguments":{}}}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "missing required parameter(s): url", gjson.Get(rec.Body.String(), "error.message").String())

	rec = postRPC(h, MCPPath, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, "")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestMCPToolCallOverHTTP(t *testing.T) {
	rec := postRPC(testRouter(t, ""), MCPPath,
		`{"jsonrpc":"2.0","id":"c","method":"tools/call","params":{"name":"analyze_repo","arguments":{"url":"https://github.com/o/r"}}}`, "")
	require.Equal(t, http.StatusOK, rec.Code)

	text := gjson.Get(rec.Body.String(), "result.content.0.text").String()
	assert.Equal(t, "o/r", gjson.Get(text, "summary.repo_name").String())
	assert.Contains(t, gjson.Get(text, "metadata.include_patterns").String(), "*.md")
}

func TestMCPRequiresTokenWhenAuthEnabled(t *testing.T) {
	h := testRouter(t, "secret")
	body := `{"jsonrpc":"2.0","id":1,"method":"ping"}`

	rec := postRPC(h, MCPPath, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := middleware.NewAuthenticator("secret").Sign("alice", time.Minute)
	require.NoError(t, err)
	rec = postRPC(h, MCPPath, body, token)
	assert.Equal(t, http.StatusOK, rec.Code)

	health := httptest.NewRecorder()
	h.ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	h := testRouter(t, "")
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gitingest_http_requests")
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, MCPPath, nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec := httptest.NewRecorder()
	testRouter(t, "secret").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func clearConfigEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{"PORT", "GITHUB_TOKEN", "GITINGEST_AUTH_SECRET", "GITINGEST_OTEL_ENDPOINT", "GITINGEST_TOKEN_PASSING"} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func TestRegisterProviders(t *testing.T) {
	clearConfigEnv(t)
	cfg, err := config.Load(viper.New(), "")
	require.NoError(t, err)

	container := dig.New()
	require.NoError(t, RegisterProviders(container, cfg))

	err = container.Invoke(func(h *mcp.Handler, a *analyzer.Analyzer, auth *middleware.Authenticator, tel *telemetry.Telemetry) {
		assert.NotNil(t, h)
		assert.NotNil(t, a)
		assert.False(t, auth.Enabled())
		assert.NotNil(t, tel.MetricsHandler())
		_ = tel.Shutdown(context.Background())
	})
	require.NoError(t, err)
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, Version, gjson.Get(out, "version").String())
	assert.NotEmpty(t, gjson.Get(out, "go").String())

	out, err = run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "gitingest-mcp "+Version))
}

func TestTokenCommand(t *testing.T) {
	clearConfigEnv(t)

	out, err := run(t, "token", "--subject", "alice", "--auth-secret", "s3cret", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := middleware.NewAuthenticator("s3cret").Verify(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)

	t.Setenv("GITINGEST_AUTH_SECRET", "from-env")
	out, err = run(t, "token", "--subject", "bob")
	require.NoError(t, err)
	_, err = middleware.NewAuthenticator("from-env").Verify(strings.TrimSpace(out))
	assert.NoError(t, err)
}

func TestTokenCommandWithoutSecret(t *testing.T) {
	clearConfigEnv(t)
	_, err := run(t, "token", "--subject", "alice")
	assert.Error(t, err)
}

func TestAnalyzeRequiresURL(t *testing.T) {
	clearConfigEnv(t)
	_, err := run(t, "analyze")
	assert.Error(t, err)
}

func TestInvalidConfigFails(t *testing.T) {
	clearConfigEnv(t)
	t.Setenv("GITINGEST_TOKEN_PASSING", "header")
	_, err := run(t, "token", "--subject", "alice", "--auth-secret", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token_passing")
}
