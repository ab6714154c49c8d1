// Package ingest turns a GitHub repository into a summary, a directory tree
// listing and the concatenated text of its files.
package ingest

//go:generate mockgen -destination=mocks/mock_ingestor.go -package=mocks -source=ingestor.go Ingestor

import (
	"context"
)

// Request describes one ingestion pass.
type Request struct {
	// URL is a fully-qualified GitHub URL, optionally carrying
	// /tree/<branch>/<subdirectory>.
	URL string
	// IncludePatterns restricts which files are read. Nil means all files.
	IncludePatterns []string
	// Token authenticates the clone. Empty means anonymous, unless the
	// ingestor is configured to read the process environment.
	Token string
}

// Output is the triple produced by an ingestion pass.
type Output struct {
	Summary string
	Tree    string
	Content string
}

// Ingestor walks a repository and extracts its structure and content.
// Implementations must stop work when ctx is cancelled.
type Ingestor interface {
	Ingest(ctx context.Context, req *Request) (*Output, error)
}

// Func adapts a plain function to Ingestor.
type Func func(ctx context.Context, req *Request) (*Output, error)

// Ingest calls f.
func (f Func) Ingest(ctx context.Context, req *Request) (*Output, error) {
	return f(ctx, req)
}
