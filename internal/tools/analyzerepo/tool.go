// Package analyzerepo exposes the repository analyzer as the analyze_repo
// tool.
package analyzerepo

import (
	"context"
	"math"
	"time"

	"gitingest-mcp/server/internal/analyzer"
	"gitingest-mcp/server/internal/apperr"
	"gitingest-mcp/server/internal/tools"
)

const Name = "analyze_repo"

// Argument names.
const (
	ArgURL             = "url"
	ArgSubdirectory    = "subdirectory"
	ArgGitHubToken     = "github_token"
	ArgDefaultBranch   = "default_branch"
	ArgIncludePatterns = "include_patterns"
	ArgReadmeOnly      = "readme_only"
	ArgTimeoutSeconds  = "timeout_seconds"
)

// maxTimeoutSeconds is the largest timeout a time.Duration can hold.
var maxTimeoutSeconds = float64(math.MaxInt64 / int64(time.Second))

// Analyzer runs one repository analysis.
type Analyzer interface {
	Analyze(ctx context.Context, req *analyzer.Request) (*analyzer.Result, error)
}

// Tool is the analyze_repo handler.
type Tool struct {
	analyzer Analyzer
}

// New creates the tool over a.
func New(a Analyzer) *Tool {
	return &Tool{analyzer: a}
}

// Definition implements tools.Handler.
func (t *Tool) Definition() tools.Tool {
	return tools.Tool{
		Name:        Name,
		Description: "Analyze a GitHub repository and return its directory structure, statistics and file content.",
		InputSchema: tools.InputSchema{
			Type: "object",
			Properties: map[string]tools.Property{
				ArgURL: {
					Type:        "string",
					Description: "GitHub repository URL, e.g. https://github.com/owner/repo",
				},
				ArgSubdirectory: {
					Type:        "string",
					Description: "Optional: analyze only this subdirectory",
				},
				ArgGitHubToken: {
					Type:        "string",
					Description: "Optional: GitHub token for private repositories",
				},
				ArgDefaultBranch: {
					Type:        "string",
					Description: "Optional: branch to analyze (defaults to main)",
				},
				ArgIncludePatterns: {
					Type:        "string",
					Description: `Optional: comma-separated file patterns such as "*.md,*.go", or "all" for every file. Defaults to documentation files`,
				},
				ArgReadmeOnly: {
					Type:        "boolean",
					Description: "Optional: only read README files",
					Default:     false,
				},
				ArgTimeoutSeconds: {
					Type:        "number",
					Description: "Optional: timeout in seconds for each ingestion pass",
				},
			},
			Required: []string{ArgURL},
		},
		Annotations: tools.AnnotateReadOnlyRemote,
	}
}

// Call implements tools.Handler.
func (t *Tool) Call(ctx context.Context, params map[string]any) (*tools.ToolCallResult, error) {
	req := &analyzer.Request{
		URL:             tools.StringArg(params, ArgURL),
		Subdirectory:    tools.StringArg(params, ArgSubdirectory),
		Token:           tools.StringArg(params, ArgGitHubToken),
		Branch:          tools.StringArg(params, ArgDefaultBranch),
		IncludePatterns: tools.StringArg(params, ArgIncludePatterns),
		ReadmeOnly:      tools.BoolArg(params, ArgReadmeOnly),
	}
	if secs := tools.NumberArg(params, ArgTimeoutSeconds); secs != 0 {
		if secs < 0 {
			return nil, apperr.InvalidInput("parameter %q must be positive", ArgTimeoutSeconds)
		}
		if secs > maxTimeoutSeconds {
			return nil, apperr.InvalidInput("parameter %q must be at most %.0f", ArgTimeoutSeconds, maxTimeoutSeconds)
		}
		req.Timeout = time.Duration(secs * float64(time.Second))
	}

	res, err := t.analyzer.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	return tools.TextResult(res.Text()), nil
}
