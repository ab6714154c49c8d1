// Package analyzer turns a GitHub URL into an AnalysisResult: it resolves the
// branch and subdirectory, scopes the credential, drives the ingestor under a
// deadline and applies the size policy.
package analyzer

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	logger "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"

	"gitingest-mcp/server/internal/apperr"
	"gitingest-mcp/server/internal/credential"
	"gitingest-mcp/server/internal/githuburl"
	"gitingest-mcp/server/internal/ingest"
	"gitingest-mcp/server/internal/invoke"
	"gitingest-mcp/server/internal/telemetry"
)

const (
	DefaultBranch  = "main"
	DefaultTimeout = 120 * time.Second
)

// TokenPassing selects how the credential reaches the ingestor.
type TokenPassing string

const (
	// TokenPassingExplicit hands the credential to the ingestor with the request.
	TokenPassingExplicit TokenPassing = "explicit"
	// TokenPassingEnv installs the credential as GITHUB_TOKEN for the duration
	// of the analysis.
	TokenPassingEnv TokenPassing = "env"
)

// Config holds the analyzer defaults.
type Config struct {
	DefaultBranch string
	Timeout       time.Duration
	Policy        SizePolicy
	TokenPassing  TokenPassing
	// DefaultToken authenticates requests that carry no token.
	DefaultToken string
}

func (c *Config) setDefaults() {
	if c.DefaultBranch == "" {
		c.DefaultBranch = DefaultBranch
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.TokenPassing == "" {
		c.TokenPassing = TokenPassingExplicit
	}
}

// Request is one analysis call. Only URL is required.
type Request struct {
	URL          string
	Subdirectory string
	Token        string
	Branch       string
	// Timeout bounds each ingestion pass. Zero uses Config.Timeout.
	Timeout time.Duration
	// IncludePatterns is a comma-separated list, or "all".
	IncludePatterns string
	// ReadmeOnly restricts ingestion to README files and disables the retry.
	ReadmeOnly bool
}

// Analyzer is safe for concurrent use.
type Analyzer struct {
	ingestor ingest.Ingestor
	cfg      Config
	tracer   trace.Tracer
	metrics  *telemetry.AnalyzerMetrics
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithTracer sets the tracer used for analysis spans.
func WithTracer(t trace.Tracer) Option {
	return func(a *Analyzer) { a.tracer = t }
}

// WithMetrics sets the analysis metrics.
func WithMetrics(m *telemetry.AnalyzerMetrics) Option {
	return func(a *Analyzer) { a.metrics = m }
}

// New creates an Analyzer over ing.
func New(ing ingest.Ingestor, cfg Config, opts ...Option) *Analyzer {
	cfg.setDefaults()
	a := &Analyzer{ingestor: ing, cfg: cfg}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze runs one analysis. A malformed URL fails with apperr InvalidInput
// before the environment or the network is touched. Ingestion failures come
// back as Timeout or OperationFailed after the credential scope has closed.
func (a *Analyzer) Analyze(ctx context.Context, req *Request) (res *Result, err error) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, a.tracer, "analyzer.Analyze")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
		a.metrics.RecordAnalysis(ctx, outcomeOf(err), time.Since(start))
	}()

	ref, err := githuburl.Parse(req.URL)
	if err != nil {
		return nil, err
	}

	subdir := strings.Trim(req.Subdirectory, "/")
	if subdir == "" {
		subdir = ref.Subdirectory
	}

	branch := req.Branch
	if branch == "" {
		branch = ref.Branch
	}
	workingURL := ref.URL("", "")
	if branch != "" || subdir != "" {
		if branch == "" {
			branch = a.cfg.DefaultBranch
		}
		workingURL = ref.URL(branch, subdir)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = a.cfg.Timeout
	}

	patterns := SelectPatterns(req.ReadmeOnly, req.IncludePatterns)

	span.SetAttributes(
		telemetry.AttrRepository.String(ref.FullName()),
		telemetry.AttrBranch.String(branch),
		telemetry.AttrSubdirectory.String(subdir),
		telemetry.AttrPatterns.String(PatternLabel(patterns)),
	)

	log := logger.WithFields(logger.Fields{
		"repo":     ref.FullName(),
		"branch":   branch,
		"subdir":   subdir,
		"patterns": PatternLabel(patterns),
		"timeout":  timeout.String(),
	})
	log.Info("analyzer: analyzing repository")

	token := req.Token
	if token == "" {
		token = a.cfg.DefaultToken
	}
	explicitToken, envToken := token, ""
	if a.cfg.TokenPassing == TokenPassingEnv {
		explicitToken, envToken = "", token
	}

	run := func(ctx context.Context, patterns []string) (*ingest.Output, error) {
		return invoke.Do(ctx, timeout, func(ctx context.Context) (*ingest.Output, error) {
			out, err := a.ingestor.Ingest(ctx, &ingest.Request{
				URL:             workingURL,
				IncludePatterns: patterns,
				Token:           explicitToken,
			})
			if err == nil && out == nil {
				err = errors.New("ingestor returned no output")
			}
			return out, err
		})
	}

	var oc *outcome
	err = credential.Scope(envToken, func() error {
		var policyErr error
		oc, policyErr = a.cfg.Policy.apply(ctx, run, patterns, req.ReadmeOnly)
		return policyErr
	})
	if err != nil {
		log.WithError(err).Warn("analyzer: analysis failed")
		return nil, err
	}

	if oc.wasFallback {
		a.metrics.RecordFallback(ctx)
		log.WithField("reason", oc.fallbackReason).Info("analyzer: fell back to README-only content")
	}

	res = &Result{
		Summary: Summary{
			RepoName:        ref.FullName(),
			Description:     oc.output.Summary,
			FileCount:       countNonBlankLines(oc.output.Tree),
			EstimatedTokens: a.cfg.Policy.EstimateTokens(oc.output.Tree, oc.output.Content),
		},
		Tree:    oc.output.Tree,
		Content: oc.output.Content,
		Metadata: Metadata{
			SourceURL:       workingURL,
			IncludePatterns: PatternLabel(oc.patterns),
			WasFallback:     oc.wasFallback,
			FallbackReason:  oc.fallbackReason,
		},
	}

	span.SetAttributes(
		telemetry.AttrFallback.Bool(res.Metadata.WasFallback),
		telemetry.AttrFileCount.Int(res.Summary.FileCount),
		telemetry.AttrTokens.Int(res.Summary.EstimatedTokens),
	)
	a.metrics.RecordTokens(ctx, res.Summary.EstimatedTokens)
	log.WithFields(logger.Fields{
		"files":  res.Summary.FileCount,
		"tokens": res.Summary.EstimatedTokens,
	}).Info("analyzer: analysis complete")

	return res, nil
}

func countNonBlankLines(s string) int {
	n := 0
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeSuccess
	case errors.Is(err, apperr.ErrInvalidInput):
		return telemetry.OutcomeInvalidInput
	case errors.Is(err, apperr.ErrTimeout):
		return telemetry.OutcomeTimeout
	default:
		return telemetry.OutcomeError
	}
}
