package enum

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// setupTestGitRepo creates a repository with one commit holding files.
func setupTestGitRepo(t *testing.T, files map[string]string) string {
	t.Helper()

	tmpDir := t.TempDir()
	repo, err := git.PlainInit(tmpDir, false)
	require.NoError(t, err)

	for name, content := range files {
		writeFile(t, filepath.Join(tmpDir, filepath.FromSlash(name)), content)
	}

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.AddWithOptions(&git.AddOptions{All: true}))

	_, err = wt.Commit("Initial commit", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "Test User",
			Email: "test@example.com",
			When:  time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC),
		},
	})
	require.NoError(t, err)
	return tmpDir
}

func TestGitEnumerator(t *testing.T) {
	repoPath := setupTestGitRepo(t, map[string]string{
		"file1.txt":         "card 4111111111111111",
		"file2.txt":         "another file",
		"subdir/nested.txt": "nested content",
		"dup.txt":           "another file",
	})

	var paths []string
	err := NewGitEnumerator(Config{Root: repoPath}).Enumerate(context.Background(), func(src Source) error {
		paths = append(paths, src.Path())

		gitProv, ok := src.Provenance.(types.GitProvenance)
		require.True(t, ok, "expected GitProvenance, got %T", src.Provenance)
		assert.Equal(t, repoPath, gitProv.RepoPath)
		require.NotNil(t, gitProv.Commit)
		assert.Equal(t, "test@example.com", gitProv.Commit.AuthorEmail)
		assert.Equal(t, "Initial commit", gitProv.Commit.Message)

		rc, err := src.Open()
		require.NoError(t, err)
		defer rc.Close()
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, src.Size, int64(len(data)))
		return nil
	})
	require.NoError(t, err)

	// dup.txt shares a blob with file2.txt and is yielded once.
	sort.Strings(paths)
	assert.Len(t, paths, 3)
	assert.Contains(t, paths, "file1.txt")
	assert.Contains(t, paths, "subdir/nested.txt")
}

func TestGitEnumerator_Filters(t *testing.T) {
	repoPath := setupTestGitRepo(t, map[string]string{
		"keep.txt":      "keep",
		"big.txt":       "this one is too large",
		"lib.DLL":       "dll",
		".env":          "hidden",
		"vendor/x.txt":  "vendored",
		".github/a.yml": "hidden dir",
	})

	cfg := Config{
		Root:              repoPath,
		MaxFileSize:       10,
		ExcludeExtensions: []string{".dll"},
		ExcludeGlobs:      []string{"vendor/**"},
	}
	var paths []string
	err := NewGitEnumerator(cfg).Enumerate(context.Background(), func(src Source) error {
		paths = append(paths, src.Path())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.txt"}, paths)
}

func TestGitEnumerator_Extract(t *testing.T) {
	zipped := string(buildZip(t, map[string]string{"inner.txt": testPAN}))
	repoPath := setupTestGitRepo(t, map[string]string{"cards.zip": zipped})

	var paths []string
	err := NewGitEnumerator(Config{Root: repoPath, ExtractArchives: "zip"}).Enumerate(context.Background(), func(src Source) error {
		paths = append(paths, src.Path())
		assert.Equal(t, "archive", src.Provenance.Kind())
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{repoPath + ":cards.zip:inner.txt"}, paths)
}

func TestGitEnumerator_NotARepo(t *testing.T) {
	err := NewGitEnumerator(Config{Root: t.TempDir()}).Enumerate(context.Background(), func(Source) error { return nil })
	assert.Error(t, err)
}

func TestGitEnumerator_ContextCancellation(t *testing.T) {
	repoPath := setupTestGitRepo(t, map[string]string{"a.txt": "a", "b.txt": "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewGitEnumerator(Config{Root: repoPath}).Enumerate(ctx, func(Source) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHasHiddenElement(t *testing.T) {
	assert.True(t, hasHiddenElement(".env"))
	assert.True(t, hasHiddenElement("a/.git/config"))
	assert.False(t, hasHiddenElement("a/b/c.txt"))
	assert.False(t, hasHiddenElement("./a"))
}

func TestGitEnumerator_IgnoresWorkingTree(t *testing.T) {
	repoPath := setupTestGitRepo(t, map[string]string{"a.txt": "committed"})
	require.NoError(t, os.WriteFile(filepath.Join(repoPath, "a.txt"), []byte("modified"), 0644))

	_, contents := collect(t, NewGitEnumerator(Config{Root: repoPath}), "")
	assert.Equal(t, "committed", contents["a.txt"])
}
