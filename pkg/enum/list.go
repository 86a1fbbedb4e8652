package enum

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// ListEnumerator reads paths, one per line, and enumerates each in turn.
// Lines are trimmed and blank lines are skipped.
type ListEnumerator struct {
	config Config
	r      io.Reader
	dirs   bool
}

// NewFileListEnumerator yields the files named by r. Directories in the list
// are reported through OnSkip.
func NewFileListEnumerator(config Config, r io.Reader) *ListEnumerator {
	return &ListEnumerator{config: config, r: r}
}

// NewDirListEnumerator walks the directories named by r. Files in the list
// are reported through OnSkip.
func NewDirListEnumerator(config Config, r io.Reader) *ListEnumerator {
	return &ListEnumerator{config: config, r: r, dirs: true}
}

// Enumerate reads the list and enumerates each path with a
// FilesystemEnumerator sharing this enumerator's config.
func (l *ListEnumerator) Enumerate(ctx context.Context, callback func(src Source) error) error {
	sc := bufio.NewScanner(l.r)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)

	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		path := strings.TrimSpace(sc.Text())
		if path == "" {
			continue
		}

		info, err := os.Stat(path)
		if err != nil {
			l.config.skip(path, err)
			continue
		}
		if info.IsDir() != l.dirs {
			if l.dirs {
				l.config.skip(path, fmt.Errorf("not a directory"))
			} else {
				l.config.skip(path, fmt.Errorf("is a directory"))
			}
			continue
		}

		cfg := l.config
		cfg.Root = path
		if err := NewFilesystemEnumerator(cfg).Enumerate(ctx, callback); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading path list: %w", err)
	}
	return nil
}
