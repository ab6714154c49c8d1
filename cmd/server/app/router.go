package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-faster/jx"

	"gitingest-mcp/server/internal/mcp"
	"gitingest-mcp/server/internal/middleware"
	"gitingest-mcp/server/internal/telemetry"
)

// MCP endpoint paths.
const (
	MCPPath       = "/mcp"
	LegacyMCPPath = "/v1/mcp"
)

// routerDeps are the components the HTTP surface is built from.
type routerDeps struct {
	handler     *mcp.Handler
	telemetry   *telemetry.Telemetry
	httpMetrics *telemetry.HTTPMetrics
	auth        *middleware.Authenticator
	limiter     *middleware.RateLimiter
}

// newRouter builds the HTTP surface: health and metrics are public, the MCP
// endpoints sit behind authentication and rate limiting.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		chimw.RealIP,
		middleware.RequestID,
		middleware.Recovery,
		middleware.AccessLog,
		d.httpMetrics.Middleware,
		middleware.CORS,
	)

	r.Get("/health", healthHandler)
	if mh := d.telemetry.MetricsHandler(); mh != nil {
		r.Method(http.MethodGet, "/metrics", mh)
	}

	r.Group(func(r chi.Router) {
		r.Use(d.auth.Middleware, d.limiter.Middleware)
		r.Handle(MCPPath, middleware.Transport(d.handler, MCPPath))
		r.Handle(LegacyMCPPath, middleware.Transport(d.handler, LegacyMCPPath))
	})
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.ObjStart()
	e.FieldStart("status")
	e.Str("ok")
	e.FieldStart("service")
	e.Str(telemetry.DefaultServiceName)
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(e.Bytes())
}
