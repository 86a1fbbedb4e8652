package enum

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// FilesystemEnumerator enumerates files from a filesystem directory or a
// single file.
type FilesystemEnumerator struct {
	config Config
}

// NewFilesystemEnumerator creates a new filesystem enumerator.
func NewFilesystemEnumerator(config Config) *FilesystemEnumerator {
	return &FilesystemEnumerator{config: config}
}

// fileEntry holds metadata collected during the walk phase.
type fileEntry struct {
	path string
	info os.FileInfo
}

// Enumerate walks the filesystem and yields file sources.
// Phase 1: Walk directory tree and collect eligible file paths (fast, sequential).
// Phase 2: Open files and invoke callback in parallel.
func (e *FilesystemEnumerator) Enumerate(ctx context.Context, callback func(src Source) error) error {
	filter, err := newPathFilter(e.config)
	if err != nil {
		return err
	}

	files, err := e.walk(ctx, filter)
	if err != nil {
		return err
	}

	numReaders := e.config.Workers
	if numReaders < 1 {
		numReaders = runtime.NumCPU()
	}
	if numReaders < 1 {
		numReaders = 1
	}

	origCtx := ctx
	g, ctx := errgroup.WithContext(ctx)
	entries := make(chan fileEntry, numReaders*2)

	// Feed paths to readers
	g.Go(func() error {
		defer close(entries)
		for _, f := range files {
			select {
			case entries <- f:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < numReaders; i++ {
		g.Go(func() error {
			for f := range entries {
				if err := ctx.Err(); err != nil {
					return err
				}
				if err := e.processFile(f, callback); err != nil {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	// If the caller's context was cancelled but all goroutines finished
	// before noticing, propagate the cancellation.
	return origCtx.Err()
}

func (e *FilesystemEnumerator) walk(ctx context.Context, filter *pathFilter) ([]fileEntry, error) {
	root := e.config.Root
	var files []fileEntry

	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			e.config.skip(path, err)
			return nil
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && !e.config.IncludeHidden && isHidden(info.Name()) {
				return filepath.SkipDir
			}
			if filter.excludedDir(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			if !e.config.FollowSymlinks {
				return nil
			}
			target, err := os.Stat(path)
			if err != nil {
				e.config.skip(path, err)
				return nil
			}
			info = target
		}

		// Devices, sockets, pipes and directories reached through links.
		if !info.Mode().IsRegular() {
			return nil
		}
		if info.Size() == 0 {
			return nil
		}
		if path != root && !e.config.IncludeHidden && isHidden(info.Name()) {
			return nil
		}
		if e.config.MaxFileSize > 0 && info.Size() > e.config.MaxFileSize {
			return nil
		}
		if filter.excludedFile(path) {
			return nil
		}

		files = append(files, fileEntry{path: path, info: info})
		return nil
	})
	return files, err
}

// processFile yields the file, or its extracted members.
func (e *FilesystemEnumerator) processFile(f fileEntry, callback func(src Source) error) error {
	times := fileTimes(f.path, f.info)
	limits := e.config.ExtractLimits.withDefaults()

	if shouldExtract(e.config, f.path) && f.info.Size() <= limits.MaxArchiveSize {
		content, err := os.ReadFile(f.path)
		if err != nil {
			e.config.skip(f.path, fmt.Errorf("failed to read file: %w", err))
			return nil
		}

		extracted, err := ExtractText(f.path, content, limits)
		if err != nil {
			e.config.skip(f.path, fmt.Errorf("extraction failed, scanning raw bytes: %w", err))
		}
		if len(extracted) == 0 {
			src := BytesSource(types.FileProvenance{FilePath: f.path, Times: times}, content)
			src.Times = times
			return callback(src)
		}

		for _, ec := range extracted {
			src := BytesSource(types.ArchiveProvenance{ArchivePath: f.path, MemberPath: ec.Name, Times: times}, ec.Content)
			src.Times = times
			if err := callback(src); err != nil {
				return err
			}
		}
		return nil
	}

	path := f.path
	return callback(NewSource(
		types.FileProvenance{FilePath: path, Times: times},
		f.info.Size(),
		times,
		func() (io.ReadCloser, error) { return os.Open(path) },
	))
}
