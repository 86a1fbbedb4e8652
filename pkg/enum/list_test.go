package enum

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileListEnumerator(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "a.txt")
	b := filepath.Join(root, "b.txt")
	writeFile(t, a, "a")
	writeFile(t, b, "b")
	writeFile(t, filepath.Join(root, "unlisted.txt"), "c")

	var skipped []string
	cfg := Config{OnSkip: func(p string, _ error) { skipped = append(skipped, p) }}
	list := strings.Join([]string{a, "", "  " + b + "  ", root, filepath.Join(root, "missing")}, "\n")

	paths, _ := collect(t, NewFileListEnumerator(cfg, strings.NewReader(list)), root)
	assert.Equal(t, []string{"a.txt", "b.txt"}, paths)
	assert.Equal(t, []string{root, filepath.Join(root, "missing")}, skipped)
}

func TestDirListEnumerator(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one", "a.txt"), "a")
	writeFile(t, filepath.Join(root, "two", "b.txt"), "b")
	writeFile(t, filepath.Join(root, "three", "c.txt"), "c")
	file := filepath.Join(root, "file.txt")
	writeFile(t, file, "f")

	var skipped []string
	cfg := Config{OnSkip: func(p string, _ error) { skipped = append(skipped, p) }}
	list := filepath.Join(root, "one") + "\n" + filepath.Join(root, "two") + "\n" + file + "\n"

	paths, _ := collect(t, NewDirListEnumerator(cfg, strings.NewReader(list)), root)
	assert.Equal(t, []string{"one/a.txt", "two/b.txt"}, paths)
	assert.Equal(t, []string{file}, skipped)
}

func TestListEnumerator_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewFileListEnumerator(Config{}, strings.NewReader("/tmp\n")).Enumerate(ctx, func(Source) error { return nil })
	require.ErrorIs(t, err, context.Canceled)
}
