package app

import (
	"context"

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

const tracerName = "gitingest-mcp"

// RegisterProviders registers the server components with the DIG container.
func RegisterProviders(container *dig.Container, cfg *config.Config) error {
	providers := []any{
		func() *config.Config { return cfg },
		newTelemetry,
		newAnalyzerMetrics,
		newHTTPMetrics,
		newIngestor,
		newAnalyzer,
		newToolRegistry,
		prompts.Default,
		newHandler,
		newAuthenticator,
	}
	for _, p := range providers {
		if err := container.Provide(p); err != nil {
			return err
		}
	}
	return nil
}

func newTelemetry(cfg *config.Config) (*telemetry.Telemetry, error) {
	return telemetry.New(context.Background(), telemetry.Config{
		ServiceName:    telemetry.DefaultServiceName,
		ServiceVersion: Version,
		Endpoint:       cfg.OTelEndpoint,
		Insecure:       cfg.OTelInsecure,
		MetricsEnabled: cfg.MetricsEnabled,
	})
}

func newAnalyzerMetrics(tel *telemetry.Telemetry) (*telemetry.AnalyzerMetrics, error) {
	return telemetry.NewAnalyzerMetrics(tel.MeterProvider())
}

func newHTTPMetrics(tel *telemetry.Telemetry) (*telemetry.HTTPMetrics, error) {
	return telemetry.NewHTTPMetrics(tel.MeterProvider())
}

func newIngestor(cfg *config.Config) ingest.Ingestor {
	return ingest.NewGitIngestor(cfg.IngestOptions())
}

func newAnalyzer(ing ingest.Ingestor, cfg *config.Config, tel *telemetry.Telemetry, m *telemetry.AnalyzerMetrics) *analyzer.Analyzer {
	return analyzer.New(ing, cfg.AnalyzerConfig(),
		analyzer.WithTracer(tel.Tracer(tracerName)),
		analyzer.WithMetrics(m),
	)
}

func newToolRegistry(a *analyzer.Analyzer, tel *telemetry.Telemetry) *tools.Registry {
	return tools.NewRegistry(analyzerepo.New(a)).WithTracer(tel.Tracer(tracerName))
}

func newHandler(registry *tools.Registry, catalog *prompts.Catalog, tel *telemetry.Telemetry) *mcp.Handler {
	info := mcp.ServerInfo{Name: telemetry.DefaultServiceName, Version: Version}
	return mcp.NewHandler(registry, catalog, info).WithTracer(tel.Tracer(tracerName))
}

func newAuthenticator(cfg *config.Config) *middleware.Authenticator {
	return middleware.NewAuthenticator(cfg.AuthSecret)
}
