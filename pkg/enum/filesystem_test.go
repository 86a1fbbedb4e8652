package enum

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praetorian-inc/panscan/pkg/types"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// collect runs an enumerator and returns the yielded paths relative to root,
// sorted, along with each source's content.
func collect(t *testing.T, e Enumerator, root string) ([]string, map[string]string) {
	t.Helper()
	var mu sync.Mutex
	var paths []string
	contents := make(map[string]string)

	err := e.Enumerate(context.Background(), func(src Source) error {
		rc, err := src.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return err
		}

		p := src.Path()
		if root != "" {
			if rel, err := filepath.Rel(root, p); err == nil {
				p = filepath.ToSlash(rel)
			}
		}
		mu.Lock()
		paths = append(paths, p)
		contents[p] = string(data)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	sort.Strings(paths)
	return paths, contents
}

func TestFilesystemEnumerator(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "file1.txt"), "hello world")
	writeFile(t, filepath.Join(tmpDir, "file2.txt"), "card 4111111111111111")
	writeFile(t, filepath.Join(tmpDir, "subdir", "subfile.txt"), "nested content")

	e := NewFilesystemEnumerator(Config{Root: tmpDir, IncludeHidden: true})

	var mu sync.Mutex
	var sources []Source
	err := e.Enumerate(context.Background(), func(src Source) error {
		mu.Lock()
		sources = append(sources, src)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	require.Len(t, sources, 3)

	for _, src := range sources {
		assert.Equal(t, "file", src.Provenance.Kind())
		info, err := os.Stat(src.Path())
		require.NoError(t, err)
		assert.Equal(t, info.Size(), src.Size)
		assert.False(t, src.Times.Modified.IsZero(), "mtime for %s", src.Path())

		fp, ok := src.Provenance.(types.FileProvenance)
		require.True(t, ok)
		assert.Equal(t, src.Times, fp.Times)
	}
}

func TestFilesystemEnumerator_SingleFile(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "only.txt")
	writeFile(t, path, "content")

	paths, contents := collect(t, NewFilesystemEnumerator(Config{Root: path}), "")
	assert.Equal(t, []string{path}, paths)
	assert.Equal(t, "content", contents[path])
}

func TestFilesystemEnumerator_HiddenFiles(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "visible.txt"), "visible")
	writeFile(t, filepath.Join(tmpDir, ".hidden.txt"), "hidden")
	writeFile(t, filepath.Join(tmpDir, ".cache", "inner.txt"), "inner")

	paths, _ := collect(t, NewFilesystemEnumerator(Config{Root: tmpDir}), tmpDir)
	assert.Equal(t, []string{"visible.txt"}, paths)

	paths, _ = collect(t, NewFilesystemEnumerator(Config{Root: tmpDir, IncludeHidden: true}), tmpDir)
	assert.Equal(t, []string{".cache/inner.txt", ".hidden.txt", "visible.txt"}, paths)
}

func TestFilesystemEnumerator_SkipsEmptyAndLarge(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "empty.txt"), "")
	writeFile(t, filepath.Join(tmpDir, "small.txt"), "small")
	writeFile(t, filepath.Join(tmpDir, "large.txt"), "this is a larger file")

	paths, _ := collect(t, NewFilesystemEnumerator(Config{Root: tmpDir, MaxFileSize: 10}), tmpDir)
	assert.Equal(t, []string{"small.txt"}, paths)
}

func TestFilesystemEnumerator_BinaryFilesAreScanned(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "data.bin"), "\x00\x01\x024111111111111111\x00")

	paths, contents := collect(t, NewFilesystemEnumerator(Config{Root: tmpDir}), tmpDir)
	require.Equal(t, []string{"data.bin"}, paths)
	assert.Contains(t, contents["data.bin"], "4111111111111111")
}

func TestFilesystemEnumerator_Symlinks(t *testing.T) {
	tmpDir := t.TempDir()
	target := filepath.Join(t.TempDir(), "target.txt")
	writeFile(t, target, "linked")
	if err := os.Symlink(target, filepath.Join(tmpDir, "link.txt")); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	paths, _ := collect(t, NewFilesystemEnumerator(Config{Root: tmpDir}), tmpDir)
	assert.Empty(t, paths)

	paths, contents := collect(t, NewFilesystemEnumerator(Config{Root: tmpDir, FollowSymlinks: true}), tmpDir)
	assert.Equal(t, []string{"link.txt"}, paths)
	assert.Equal(t, "linked", contents["link.txt"])
}

func TestFilesystemEnumerator_Gitignore(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, ".gitignore"), "*.log\nbuild/\n")
	writeFile(t, filepath.Join(tmpDir, "keep.txt"), "keep")
	writeFile(t, filepath.Join(tmpDir, "debug.log"), "log")
	writeFile(t, filepath.Join(tmpDir, "build", "out.txt"), "out")

	paths, _ := collect(t, NewFilesystemEnumerator(Config{Root: tmpDir}), tmpDir)
	assert.Equal(t, []string{"build/out.txt", "debug.log", "keep.txt"}, paths, "gitignore is opt-in")

	paths, _ = collect(t, NewFilesystemEnumerator(Config{Root: tmpDir, RespectGitignore: true}), tmpDir)
	assert.Equal(t, []string{"keep.txt"}, paths)
}

func TestFilesystemEnumerator_Excludes(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.txt"), "a")
	writeFile(t, filepath.Join(tmpDir, "lib.DLL"), "dll")
	writeFile(t, filepath.Join(tmpDir, "prog.exe"), "exe")
	writeFile(t, filepath.Join(tmpDir, "vendor", "x.txt"), "x")
	writeFile(t, filepath.Join(tmpDir, "deep", "dir", "y.csv"), "y")
	writeFile(t, filepath.Join(tmpDir, "out.log"), "log")

	cfg := Config{
		Root:              tmpDir,
		ExcludeExtensions: []string{".dll", "exe"},
		ExcludeGlobs:      []string{"vendor", "**/*.csv"},
		SkipPaths:         []string{filepath.Join(tmpDir, "out.log")},
	}
	paths, _ := collect(t, NewFilesystemEnumerator(cfg), tmpDir)
	assert.Equal(t, []string{"a.txt"}, paths)
}

func TestFilesystemEnumerator_InvalidGlob(t *testing.T) {
	e := NewFilesystemEnumerator(Config{Root: t.TempDir(), ExcludeGlobs: []string{"[abc"}})
	err := e.Enumerate(context.Background(), func(Source) error { return nil })
	assert.Error(t, err)
}

func TestFilesystemEnumerator_MissingRoot(t *testing.T) {
	e := NewFilesystemEnumerator(Config{Root: filepath.Join(t.TempDir(), "missing")})
	err := e.Enumerate(context.Background(), func(Source) error { return nil })
	assert.True(t, os.IsNotExist(err))
}

func TestFilesystemEnumerator_ExtractsArchives(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "cards.zip")
	require.NoError(t, os.WriteFile(path, buildZip(t, map[string]string{
		"a.txt": "4111111111111111",
		"b.txt": "5555555555554444",
	}), 0644))

	paths, _ := collect(t, NewFilesystemEnumerator(Config{Root: tmpDir}), "")
	assert.Equal(t, []string{path}, paths, "extraction is opt-in")

	paths, contents := collect(t, NewFilesystemEnumerator(Config{Root: tmpDir, ExtractArchives: "zip"}), "")
	assert.Equal(t, []string{path + ":a.txt", path + ":b.txt"}, paths)
	assert.Equal(t, "4111111111111111", contents[path+":a.txt"])
}

func TestFilesystemEnumerator_BrokenArchiveFallsBack(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "broken.zip")
	writeFile(t, path, "not a zip 4111111111111111")

	var skipped []string
	cfg := Config{
		Root:            tmpDir,
		ExtractArchives: "all",
		OnSkip:          func(p string, _ error) { skipped = append(skipped, p) },
	}
	paths, contents := collect(t, NewFilesystemEnumerator(cfg), "")
	assert.Equal(t, []string{path}, paths)
	assert.Equal(t, "not a zip 4111111111111111", contents[path])
	assert.Equal(t, []string{path}, skipped)
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".git", true},
		{".hidden", true},
		{"visible", false},
		{".", false},
		{"..", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isHidden(tt.name))
		})
	}
}

func TestFilesystemEnumerator_ContextCancellation(t *testing.T) {
	tmpDir := t.TempDir()
	for i := 0; i < 20; i++ {
		writeFile(t, filepath.Join(tmpDir, "f", string(rune('a'+i))+".txt"), "x")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewFilesystemEnumerator(Config{Root: tmpDir}).Enumerate(ctx, func(Source) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFilesystemEnumerator_CallbackError(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "a.txt"), "a")

	boom := assert.AnError
	err := NewFilesystemEnumerator(Config{Root: tmpDir}).Enumerate(context.Background(), func(Source) error { return boom })
	assert.ErrorIs(t, err, boom)
}
