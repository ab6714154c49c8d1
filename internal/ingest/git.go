package ingest

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
	logger "github.com/sirupsen/logrus"

	"gitingest-mcp/server/internal/credential"
	"gitingest-mcp/server/internal/githuburl"
)

const (
	DefaultMaxFiles    = 10 * 1000
	DefaultMaxFileSize = 1024 * 1024

	// GitHub accepts any username alongside a token for HTTPS clones.
	tokenUsername = "x-access-token"
)

// GitOptions configures GitIngestor.
type GitOptions struct {
	// MaxFiles caps the number of files read per pass. Zero uses DefaultMaxFiles.
	MaxFiles int
	// MaxFileSize skips bodies of larger files. Zero uses DefaultMaxFileSize.
	MaxFileSize int64
	// EnvToken makes the ingestor fall back to the GITHUB_TOKEN environment
	// variable when a request carries no token.
	EnvToken bool
	// CloneURL overrides how a reference becomes a clone URL. Tests point it at
	// a local repository.
	CloneURL func(ref githuburl.Reference) string
}

// GitIngestor clones a repository into memory with a shallow, single-branch
// clone and walks its worktree.
type GitIngestor struct {
	opts GitOptions
}

// NewGitIngestor creates a GitIngestor.
func NewGitIngestor(opts GitOptions) *GitIngestor {
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = DefaultMaxFiles
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = DefaultMaxFileSize
	}
	if opts.CloneURL == nil {
		opts.CloneURL = func(ref githuburl.Reference) string {
			return "https://github.com/" + ref.FullName() + ".git"
		}
	}
	return &GitIngestor{opts: opts}
}

// Ingest clones req.URL and returns its summary, tree and content.
func (g *GitIngestor) Ingest(ctx context.Context, req *Request) (*Output, error) {
	ref, err := githuburl.Parse(req.URL)
	if err != nil {
		return nil, err
	}

	patterns, err := CompilePatterns(req.IncludePatterns)
	if err != nil {
		return nil, err
	}

	cloneOptions := &git.CloneOptions{
		URL:          g.opts.CloneURL(ref),
		Depth:        1,
		SingleBranch: true,
		Tags:         git.NoTags,
	}
	if ref.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(ref.Branch)
	}

	token := req.Token
	if token == "" && g.opts.EnvToken {
		token = credential.FromEnv()
	}
	if token != "" {
		cloneOptions.Auth = &githttp.BasicAuth{
			Username: tokenUsername,
			Password: token,
		}
	}

	log := logger.WithFields(logger.Fields{
		"repo":   ref.FullName(),
		"branch": ref.Branch,
		"subdir": ref.Subdirectory,
	})
	log.Debug("ingest: cloning repository")

	// go-git wants separate filesystems for the storer and the checked out files.
	worktreeFS := memfs.New()
	repo, err := git.CloneContext(ctx, memory.NewStorage(), worktreeFS, cloneOptions)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to clone %s", ref.FullName())
	}

	branch := ref.Branch
	if head, err := repo.Head(); err == nil && head.Name().IsBranch() {
		branch = head.Name().Short()
	}

	snap, err := collect(ctx, worktreeFS, ref.Subdirectory, patterns, walkLimits{
		maxFiles:    g.opts.MaxFiles,
		maxFileSize: g.opts.MaxFileSize,
	})
	if err != nil {
		return nil, err
	}
	log.WithField("files", len(snap.files)).Debug("ingest: walk complete")

	// Walked paths already start with the subdirectory.
	label := strings.ToLower(ref.Owner + "-" + ref.Repo)

	return &Output{
		Summary: renderSummary(summaryInfo{
			repo:      ref.FullName(),
			branch:    branch,
			subdir:    ref.Subdirectory,
			patterns:  patterns.String(),
			files:     len(snap.files),
			truncated: snap.truncated,
		}),
		Tree:    renderTree(label, snap.files),
		Content: renderContent(snap.files),
	}, nil
}
