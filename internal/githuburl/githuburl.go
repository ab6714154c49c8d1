// Package githuburl extracts repository coordinates from GitHub URLs.
package githuburl

import (
	"regexp"
	"strings"

	"gitingest-mcp/server/internal/apperr"
)

const baseURL = "https://github.com"

// Only github.com hosts are recognized. The branch segment after /tree/ is
// consumed but never validated against the repository.
var repoPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/?#]+)(?:/tree/([^/?#]+)(?:/([^?#]*))?)?`)

// Reference identifies a repository and an optional location inside it.
type Reference struct {
	Owner        string
	Repo         string
	Branch       string // from /tree/<branch>/..., empty if absent
	Subdirectory string // path after the branch segment, empty if absent
}

// FullName returns "owner/repo".
func (r Reference) FullName() string {
	return r.Owner + "/" + r.Repo
}

// URL recombines the reference with branch and subdirectory into a browsable
// GitHub URL. The tree segment is only emitted when branch is set.
func (r Reference) URL(branch, subdirectory string) string {
	u := baseURL + "/" + r.FullName()
	if branch == "" {
		return u
	}
	u += "/tree/" + branch
	if sub := strings.Trim(subdirectory, "/"); sub != "" {
		u += "/" + sub
	}
	return u
}

// Parse extracts the repository reference from raw. It fails with an
// InvalidInput error when raw has no github.com/<owner>/<repo> segment.
func Parse(raw string) (Reference, error) {
	m := repoPattern.FindStringSubmatch(raw)
	if m == nil {
		return Reference{}, apperr.InvalidInput("Invalid GitHub URL: %s", raw)
	}

	repo := strings.TrimSuffix(m[2], ".git")
	if repo == "" {
		return Reference{}, apperr.InvalidInput("Invalid GitHub URL: %s", raw)
	}

	return Reference{
		Owner:        m[1],
		Repo:         repo,
		Branch:       m[3],
		Subdirectory: strings.TrimRight(m[4], "/"),
	}, nil
}
