package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitFiles(t *testing.T, repo *git.Repository, root string, files map[string]string) string {
	t.Helper()
	wt, err := repo.Worktree()
	require.NoError(t, err)
	for name, body := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	hash, err := wt.Commit("change", &git.CommitOptions{
		Author: &object.Signature{Name: "dev", Email: "dev@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestHeadAndChangedSince(t *testing.T) {
	root := t.TempDir()
	raw, err := git.PlainInit(root, false)
	require.NoError(t, err)

	first := commitFiles(t, raw, root, map[string]string{"src/a.go": "a", "src/b.go": "b"})
	second := commitFiles(t, raw, root, map[string]string{"src/b.go": "b2", "src/c.go": "c"})

	require.NoError(t, os.WriteFile(filepath.Join(root, "src", "a.go"), []byte("a-dirty"), 0o644))

	repo, err := Open(root)
	require.NoError(t, err)
	assert.Empty(t, repo.Prefix())
	ctx := context.Background()

	head, err := repo.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, second, head)

	changed, err := repo.ChangedSince(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.go", "src/b.go", "src/c.go"}, changed)

	_, err = repo.ChangedSince(ctx, "0000000000000000000000000000000000000000")
	assert.Error(t, err)
}

func TestChangedSinceInSubproject(t *testing.T) {
	root := t.TempDir()
	raw, err := git.PlainInit(root, false)
	require.NoError(t, err)

	first := commitFiles(t, raw, root, map[string]string{
		"app/src/a.go": "a", "app/src/b.go": "b", "app/src/c.go": "c", "app/src/d.go": "d", "other/x.go": "x",
	})
	commitFiles(t, raw, root, map[string]string{
		"app/src/a.go": "a2", "app/src/b.go": "b2", "app/src/c.go": "c2", "app/src/d.go": "d2", "other/x.go": "x2",
	})
	require.NoError(t, os.WriteFile(filepath.Join(root, "other", "x.go"), []byte("x-dirty"), 0o644))

	repo, err := Open(filepath.Join(root, "app"))
	require.NoError(t, err)
	assert.Equal(t, "app", repo.Prefix())

	changed, err := repo.ChangedSince(context.Background(), first)
	require.NoError(t, err)
	assert.Equal(t, []string{"src/a.go", "src/b.go", "src/c.go", "src/d.go"}, changed)
}

func TestOpenNotRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}
