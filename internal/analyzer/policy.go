package analyzer

import (
	"context"
	"strings"
	"unicode/utf8"

	"gitingest-mcp/server/internal/ingest"
)

const (
	DefaultCharsPerToken = 3
	DefaultTokenLimit    = 262144

	// FallbackReason is reported when the README-only retry was taken.
	FallbackReason = "content exceeded token limit"

	// AllPatterns disables include filtering.
	AllPatterns = "all"
)

var (
	// ReadmePatterns restricts ingestion to README files.
	ReadmePatterns = []string{"README*", "readme*"}

	// DocPatterns is used when the caller names no patterns.
	DocPatterns = []string{"*.md", "*.mdx", "*.rst", "*.txt", "*.adoc"}
)

// SizePolicy bounds the amount of content returned to a caller.
type SizePolicy struct {
	CharsPerToken int
	TokenLimit    int
}

// DefaultSizePolicy returns the 3 chars/token, 262144 token policy.
func DefaultSizePolicy() SizePolicy {
	return SizePolicy{CharsPerToken: DefaultCharsPerToken, TokenLimit: DefaultTokenLimit}
}

func (p SizePolicy) ratio() int {
	if p.CharsPerToken <= 0 {
		return DefaultCharsPerToken
	}
	return p.CharsPerToken
}

func (p SizePolicy) limit() int {
	if p.TokenLimit <= 0 {
		return DefaultTokenLimit
	}
	return p.TokenLimit
}

// EstimateTokens approximates the token count of tree plus content.
func (p SizePolicy) EstimateTokens(tree, content string) int {
	return (utf8.RuneCountInString(tree) + utf8.RuneCountInString(content)) / p.ratio()
}

// Exceeds reports whether tokens is over the ceiling.
func (p SizePolicy) Exceeds(tokens int) bool {
	return tokens > p.limit()
}

// SelectPatterns picks the include patterns for the first pass. readmeOnly
// wins over caller patterns, which win over "all" (nil, no filter), which
// wins over DocPatterns.
func SelectPatterns(readmeOnly bool, patterns string) []string {
	if readmeOnly {
		return clonePatterns(ReadmePatterns)
	}
	patterns = strings.TrimSpace(patterns)
	if strings.EqualFold(patterns, AllPatterns) {
		return nil
	}
	if list := ingest.SplitPatterns(patterns); len(list) > 0 {
		return list
	}
	return clonePatterns(DocPatterns)
}

// PatternLabel renders a pattern list the way results report it.
func PatternLabel(patterns []string) string {
	if len(patterns) == 0 {
		return AllPatterns
	}
	return strings.Join(patterns, ",")
}

func clonePatterns(p []string) []string {
	return append([]string(nil), p...)
}

// ingestPass runs one ingestion with the given include patterns.
type ingestPass func(ctx context.Context, patterns []string) (*ingest.Output, error)

// outcome is the output the policy settled on.
type outcome struct {
	output         *ingest.Output
	patterns       []string
	wasFallback    bool
	fallbackReason string
}

// apply runs the first pass and, when its estimate is over the ceiling and
// readmeOnly was not requested, one README-only retry. The retry's output
// stands even if it is still over the ceiling.
func (p SizePolicy) apply(ctx context.Context, run ingestPass, patterns []string, readmeOnly bool) (*outcome, error) {
	out, err := run(ctx, patterns)
	if err != nil {
		return nil, err
	}
	if readmeOnly || !p.Exceeds(p.EstimateTokens(out.Tree, out.Content)) {
		return &outcome{output: out, patterns: patterns}, nil
	}

	readme := clonePatterns(ReadmePatterns)
	out, err = run(ctx, readme)
	if err != nil {
		return nil, err
	}
	return &outcome{
		output:         out,
		patterns:       readme,
		wasFallback:    true,
		fallbackReason: FallbackReason,
	}, nil
}
