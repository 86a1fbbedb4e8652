package enum

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/sabhiram/go-gitignore"
)

// pathFilter decides which walked paths are yielded.
type pathFilter struct {
	root       string
	ignore     *gitignore.GitIgnore
	globs      []string
	extensions map[string]bool
	skip       map[string]bool
}

func newPathFilter(cfg Config) (*pathFilter, error) {
	f := &pathFilter{
		root:       cfg.Root,
		extensions: make(map[string]bool),
		skip:       make(map[string]bool),
	}

	if cfg.RespectGitignore {
		gitignorePath := filepath.Join(cfg.Root, ".gitignore")
		if _, err := os.Stat(gitignorePath); err == nil {
			ignore, err := gitignore.CompileIgnoreFile(gitignorePath)
			if err != nil {
				return nil, fmt.Errorf("loading %s: %w", gitignorePath, err)
			}
			f.ignore = ignore
		}
	}

	for _, g := range cfg.ExcludeGlobs {
		if !doublestar.ValidatePattern(g) {
			return nil, fmt.Errorf("invalid exclude glob %q", g)
		}
		f.globs = append(f.globs, g)
	}

	for _, ext := range cfg.ExcludeExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		f.extensions[ext] = true
	}

	for _, p := range cfg.SkipPaths {
		if abs, err := filepath.Abs(p); err == nil {
			f.skip[abs] = true
		}
	}
	return f, nil
}

// excludedDir reports whether a directory should be pruned.
func (f *pathFilter) excludedDir(path string) bool {
	rel := f.rel(path)
	if rel == "." {
		return false
	}
	if f.ignore != nil && f.ignore.MatchesPath(rel+"/") {
		return true
	}
	return f.globMatch(rel, filepath.Base(path))
}

// excludedFile reports whether a file should be skipped.
func (f *pathFilter) excludedFile(path string) bool {
	if len(f.skip) > 0 {
		if abs, err := filepath.Abs(path); err == nil && f.skip[abs] {
			return true
		}
	}
	if f.extensions[strings.ToLower(filepath.Ext(path))] {
		return true
	}
	rel := f.rel(path)
	if f.ignore != nil && f.ignore.MatchesPath(rel) {
		return true
	}
	return f.globMatch(rel, filepath.Base(path))
}

func (f *pathFilter) globMatch(rel, base string) bool {
	for _, g := range f.globs {
		if ok, _ := doublestar.Match(g, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, base); ok {
			return true
		}
	}
	return false
}

func (f *pathFilter) rel(path string) string {
	rel, err := filepath.Rel(f.root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// isHidden checks if a filename is hidden (starts with .).
// The special entries "." and ".." are NOT considered hidden.
func isHidden(name string) bool {
	if name == "." || name == ".." {
		return false
	}
	return strings.HasPrefix(name, ".")
}
