// Package vcs reads revision information from the project's git repository:
// the current HEAD hash and the files changed since a recorded revision.
package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrNotRepository is returned when the project is not inside a git work tree.
var ErrNotRepository = errors.New("not a git repository")

// Repo is a git work tree opened at a project root. The root may sit below
// the work tree root, as a monorepo sub-project does; prefix is its
// slash-separated path inside the work tree, empty at the top.
type Repo struct {
	repo   *git.Repository
	prefix string
}

// Open opens the repository containing root, searching parent directories.
func Open(root string) (*Repo, error) {
	r, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotRepository, err)
	}
	repo := &Repo{repo: r}
	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening work tree: %w", err)
	}
	top := wt.Filesystem.Root()
	rel, err := filepath.Rel(realPath(top), realPath(root))
	if err != nil {
		return nil, fmt.Errorf("locating %s in work tree %s: %w", root, top, err)
	}
	rel = filepath.ToSlash(rel)
	if rel == ".." || strings.HasPrefix(rel, "../") {
		return nil, fmt.Errorf("%s is outside work tree %s", root, top)
	}
	if rel != "." {
		repo.prefix = rel
	}
	return repo, nil
}

// Prefix is the project root's path inside the work tree.
func (r *Repo) Prefix() string {
	return r.prefix
}

func realPath(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		p = abs
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}
	return filepath.Clean(p)
}

// Head returns the full hash of the HEAD commit.
func (r *Repo) Head(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ref, err := r.repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolving HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

// ChangedSince returns the sorted, de-duplicated paths that differ between
// rev and HEAD, plus uncommitted changes in the work tree. Only paths under
// the project root are returned, relative to it.
func (r *Repo) ChangedSince(ctx context.Context, rev string) ([]string, error) {
	fromTree, err := r.treeAt(rev)
	if err != nil {
		return nil, err
	}
	ref, err := r.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}
	toTree, err := r.treeAt(ref.Hash().String())
	if err != nil {
		return nil, err
	}
	changes, err := object.DiffTreeWithOptions(ctx, fromTree, toTree, object.DefaultDiffTreeOptions)
	if err != nil {
		return nil, fmt.Errorf("diffing %s..HEAD: %w", rev, err)
	}

	seen := map[string]bool{}
	add := func(name string) {
		if rel, ok := r.relative(name); ok {
			seen[rel] = true
		}
	}
	for _, c := range changes {
		if c.From.Name != "" {
			add(c.From.Name)
		}
		if c.To.Name != "" {
			add(c.To.Name)
		}
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("opening work tree: %w", err)
	}
	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("reading work tree status: %w", err)
	}
	for path, fs := range status {
		if fs.Worktree != git.Unmodified || fs.Staging != git.Unmodified {
			add(path)
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	sort.Strings(files)
	return files, nil
}

// relative maps a work tree path to the project root, rejecting paths
// outside it.
func (r *Repo) relative(name string) (string, bool) {
	if r.prefix == "" {
		return name, true
	}
	rest, ok := strings.CutPrefix(name, r.prefix+"/")
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

func (r *Repo) treeAt(rev string) (*object.Tree, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(rev))
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", rev, err)
	}
	commit, err := r.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("reading commit %s: %w", rev, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading tree of %s: %w", rev, err)
	}
	return tree, nil
}
