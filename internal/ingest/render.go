package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

const fileSeparator = "================================================"

// errFileLimit stops a walk once enough files were collected.
var errFileLimit = errors.New("file limit reached")

// walkLimits bounds a single filesystem walk.
type walkLimits struct {
	maxFiles    int
	maxFileSize int64
}

// fileEntry is one included file.
type fileEntry struct {
	rel     string
	size    int64
	content string
	note    string // set instead of content when the file was not read
}

// snapshot is what a walk over a checked-out worktree collected.
type snapshot struct {
	root      string
	files     []fileEntry
	truncated bool
}

// collect walks fs below root and reads every file accepted by patterns.
func collect(ctx context.Context, fs billy.Filesystem, root string, patterns *PatternSet, limits walkLimits) (*snapshot, error) {
	root = strings.Trim(root, "/")
	start := "/"
	if root != "" {
		start = "/" + root
		info, err := fs.Stat(start)
		if err != nil {
			return nil, errors.Wrapf(err, "subdirectory %q not found", root)
		}
		if !info.IsDir() {
			// A single file was requested.
			start = path.Dir(start)
		}
	}

	snap := &snapshot{root: root}
	walkErr := util.Walk(fs, start, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() {
			if info.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		rel := strings.TrimPrefix(p, "/")
		if root != "" && rel != root && !strings.HasPrefix(rel, root+"/") {
			return nil
		}
		if !patterns.Match(rel) {
			return nil
		}
		if limits.maxFiles > 0 && len(snap.files) >= limits.maxFiles {
			snap.truncated = true
			return errFileLimit
		}

		entry, err := readEntry(fs, p, rel, info.Size(), limits.maxFileSize)
		if err != nil {
			return err
		}
		if entry != nil {
			snap.files = append(snap.files, *entry)
		}
		return nil
	})
	if walkErr != nil && !errors.Is(walkErr, errFileLimit) {
		return nil, errors.Wrap(walkErr, "walk repository")
	}

	sort.Slice(snap.files, func(i, j int) bool { return snap.files[i].rel < snap.files[j].rel })
	return snap, nil
}

// readEntry reads one file. Binary files are skipped (nil entry).
func readEntry(fs billy.Filesystem, p, rel string, size, maxSize int64) (*fileEntry, error) {
	if maxSize > 0 && size > maxSize {
		return &fileEntry{rel: rel, size: size, note: fmt.Sprintf("[skipped: %d bytes exceeds the %d byte limit]", size, maxSize)}, nil
	}

	f, err := fs.Open(p)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", rel)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", rel)
	}
	if isBinary(data) {
		return nil, nil
	}
	return &fileEntry{rel: rel, size: size, content: string(data)}, nil
}

func isBinary(data []byte) bool {
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0 || !utf8.Valid(head)
}

// treeNode is a directory or file in the rendered listing.
type treeNode struct {
	name     string
	children map[string]*treeNode
}

func (n *treeNode) child(name string) *treeNode {
	if n.children == nil {
		n.children = make(map[string]*treeNode)
	}
	c, ok := n.children[name]
	if !ok {
		c = &treeNode{name: name}
		n.children[name] = c
	}
	return c
}

// renderTree draws the included files as an indented tree under label, one
// entry per line.
func renderTree(label string, files []fileEntry) string {
	if len(files) == 0 {
		return ""
	}
	root := &treeNode{name: label}
	for _, f := range files {
		node := root
		for _, part := range strings.Split(f.rel, "/") {
			node = node.child(part)
		}
	}

	var b strings.Builder
	b.WriteString(label + "/\n")
	writeChildren(&b, root, "")
	return strings.TrimRight(b.String(), "\n")
}

func writeChildren(b *strings.Builder, n *treeNode, prefix string) {
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)

	for i, name := range names {
		c := n.children[name]
		connector, next := "├── ", "│   "
		if i == len(names)-1 {
			connector, next = "└── ", "    "
		}
		if len(c.children) > 0 {
			b.WriteString(prefix + connector + name + "/\n")
			writeChildren(b, c, prefix+next)
			continue
		}
		b.WriteString(prefix + connector + name + "\n")
	}
}

// renderContent concatenates file bodies, each under a FILE header.
func renderContent(files []fileEntry) string {
	var b strings.Builder
	for _, f := range files {
		b.WriteString(fileSeparator + "\n")
		b.WriteString("FILE: " + f.rel + "\n")
		b.WriteString(fileSeparator + "\n")
		if f.note != "" {
			b.WriteString(f.note)
		} else {
			b.WriteString(f.content)
		}
		b.WriteString("\n\n")
	}
	return b.String()
}

// summaryInfo is what the summary header reports.
type summaryInfo struct {
	repo      string
	branch    string
	subdir    string
	patterns  string
	files     int
	truncated bool
}

func renderSummary(s summaryInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", s.repo)
	if s.branch != "" {
		fmt.Fprintf(&b, "Branch: %s\n", s.branch)
	}
	if s.subdir != "" {
		fmt.Fprintf(&b, "Subdirectory: %s\n", s.subdir)
	}
	fmt.Fprintf(&b, "Include patterns: %s\n", s.patterns)
	fmt.Fprintf(&b, "Files analyzed: %d", s.files)
	if s.truncated {
		b.WriteString(" (file limit reached, listing truncated)")
	}
	return b.String()
}
