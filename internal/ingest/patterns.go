package ingest

import (
	"path"
	"strings"

	"github.com/go-faster/errors"
	"github.com/gobwas/glob"
)

// PatternSet matches repository-relative paths against include patterns.
// A nil or empty set matches everything.
type PatternSet struct {
	raw   []string
	globs []glob.Glob
}

// CompilePatterns compiles shell-style patterns such as "*.md" or "README*".
// A pattern matches when it matches either the full relative path or the
// file's base name.
func CompilePatterns(patterns []string) (*PatternSet, error) {
	ps := &PatternSet{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid include pattern %q", p)
		}
		ps.raw = append(ps.raw, p)
		ps.globs = append(ps.globs, g)
	}
	return ps, nil
}

// SplitPatterns splits a comma-separated pattern list, dropping blanks.
func SplitPatterns(list string) []string {
	var out []string
	for _, p := range strings.Split(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Match reports whether rel is included.
func (ps *PatternSet) Match(rel string) bool {
	if ps == nil || len(ps.globs) == 0 {
		return true
	}
	base := path.Base(rel)
	for _, g := range ps.globs {
		if g.Match(rel) || g.Match(base) {
			return true
		}
	}
	return false
}

// String returns the comma-joined patterns, or "all" for an empty set.
func (ps *PatternSet) String() string {
	if ps == nil || len(ps.raw) == 0 {
		return "all"
	}
	return strings.Join(ps.raw, ",")
}
