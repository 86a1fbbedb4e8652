package enum

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must be quiet before it is rescanned.
const DefaultSettle = 500 * time.Millisecond

// WatchEnumerator yields files under Root as they are created or modified.
// It runs until the context is cancelled.
type WatchEnumerator struct {
	config Config

	// Settle coalesces bursts of writes to one file into a single yield.
	Settle time.Duration

	// ready, when set, is closed once the initial directories are watched.
	ready chan struct{}
}

// NewWatchEnumerator creates a watcher rooted at config.Root.
func NewWatchEnumerator(config Config) *WatchEnumerator {
	return &WatchEnumerator{config: config, Settle: DefaultSettle}
}

// Enumerate blocks until ctx is done, yielding settled files. It returns nil
// on cancellation.
func (w *WatchEnumerator) Enumerate(ctx context.Context, callback func(src Source) error) error {
	filter, err := newPathFilter(w.config)
	if err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fsw.Close()

	if err := w.addTree(fsw, filter, w.config.Root); err != nil {
		return err
	}
	if w.ready != nil {
		close(w.ready)
	}

	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()

	pending := make(map[string]time.Time)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if event.Has(fsnotify.Create) {
					if err := w.addTree(fsw, filter, event.Name); err != nil {
						w.config.skip(event.Name, err)
					}
					// Files written before the watch was added.
					if err := w.scan(ctx, event.Name, callback); err != nil {
						return err
					}
				}
				continue
			}
			pending[event.Name] = time.Now()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.config.skip(w.config.Root, err)

		case now := <-ticker.C:
			for path, last := range pending {
				if now.Sub(last) < settle {
					continue
				}
				delete(pending, path)
				if err := w.scan(ctx, path, callback); err != nil {
					return err
				}
			}
		}
	}
}

// scan enumerates one settled path with the watcher's filters.
func (w *WatchEnumerator) scan(ctx context.Context, path string, callback func(src Source) error) error {
	cfg := w.config
	cfg.Root = path
	cfg.Workers = 1
	if rel, err := filepath.Rel(w.config.Root, path); err == nil && !w.config.IncludeHidden && hasHiddenElement(filepath.ToSlash(rel)) {
		return nil
	}
	err := NewFilesystemEnumerator(cfg).Enumerate(ctx, callback)
	if ctx.Err() != nil {
		return nil
	}
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// addTree watches dir and every directory below it that passes the filters.
func (w *WatchEnumerator) addTree(fsw *fsnotify.Watcher, filter *pathFilter, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.config.skip(path, err)
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if path != w.config.Root {
			if !w.config.IncludeHidden && isHidden(info.Name()) {
				return filepath.SkipDir
			}
			if filter.excludedDir(path) {
				return filepath.SkipDir
			}
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}
