package githuburl

import (
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitingest-mcp/server/internal/apperr"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		url        string
		wantFull   string
		wantBranch string
		wantSubdir string
	}{
		{"basic", "https://github.com/owner/repo", "owner/repo", "", ""},
		{"no scheme", "github.com/owner/repo", "owner/repo", "", ""},
		{"trailing slash", "https://github.com/owner/repo/", "owner/repo", "", ""},
		{"dot git", "https://github.com/owner/repo.git", "owner/repo", "", ""},
		{"query string", "https://github.com/owner/repo?tab=readme", "owner/repo", "", ""},
		{"subdirectory", "https://github.com/owner/repo/tree/main/src", "owner/repo", "main", "src"},
		{"nested subdirectory", "https://github.com/owner/repo/tree/dev/pkg/api/", "owner/repo", "dev", "pkg/api"},
		{"tree without path", "https://github.com/owner/repo/tree/main", "owner/repo", "main", ""},
		{"tree with slash only", "https://github.com/owner/repo/tree/main/", "owner/repo", "main", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := Parse(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFull, ref.FullName())
			assert.Equal(t, tt.wantBranch, ref.Branch)
			assert.Equal(t, tt.wantSubdir, ref.Subdirectory)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, raw := range []string{"not-a-url", "https://example.com/repo", "https://github.com/owner", ""} {
		t.Run(raw, func(t *testing.T) {
			_, err := Parse(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
			assert.Contains(t, err.Error(), "Invalid GitHub URL")
		})
	}
}

func TestReferenceURL(t *testing.T) {
	ref := Reference{Owner: "owner", Repo: "repo"}

	assert.Equal(t, "https://github.com/owner/repo", ref.URL("", ""))
	assert.Equal(t, "https://github.com/owner/repo", ref.URL("", "ignored"))
	assert.Equal(t, "https://github.com/owner/repo/tree/main", ref.URL("main", ""))
	assert.Equal(t, "https://github.com/owner/repo/tree/main/docs/guide", ref.URL("main", "/docs/guide/"))
}
