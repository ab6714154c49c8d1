package analyzer

import (
	"github.com/go-faster/jx"
)

// Summary describes the analysed repository.
type Summary struct {
	RepoName        string
	Description     string
	FileCount       int
	EstimatedTokens int
}

// Metadata records how the result was produced.
type Metadata struct {
	SourceURL       string
	IncludePatterns string
	WasFallback     bool
	FallbackReason  string
}

// Result is the outcome of one analysis.
type Result struct {
	Summary  Summary
	Tree     string
	Content  string
	Metadata Metadata
}

// Encode writes r as a JSON object with snake_case keys.
func (r *Result) Encode(e *jx.Encoder) {
	e.ObjStart()

	e.FieldStart("summary")
	e.ObjStart()
	e.FieldStart("repo_name")
	e.Str(r.Summary.RepoName)
	e.FieldStart("description")
	e.Str(r.Summary.Description)
	e.FieldStart("file_count")
	e.Int(r.Summary.FileCount)
	e.FieldStart("estimated_tokens")
	e.Int(r.Summary.EstimatedTokens)
	e.ObjEnd()

	e.FieldStart("tree")
	e.Str(r.Tree)
	e.FieldStart("content")
	e.Str(r.Content)

	e.FieldStart("metadata")
	e.ObjStart()
	e.FieldStart("source_url")
	e.Str(r.Metadata.SourceURL)
	e.FieldStart("include_patterns")
	e.Str(r.Metadata.IncludePatterns)
	e.FieldStart("was_fallback")
	e.Bool(r.Metadata.WasFallback)
	e.FieldStart("fallback_reason")
	if r.Metadata.FallbackReason == "" {
		e.Null()
	} else {
		e.Str(r.Metadata.FallbackReason)
	}
	e.ObjEnd()

	e.ObjEnd()
}

// Text renders r as indented JSON, the form returned to tool callers.
func (r *Result) Text() string {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	e.SetIdent(2)
	r.Encode(e)
	return e.String()
}
