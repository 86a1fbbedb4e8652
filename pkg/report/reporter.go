package report

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// Reporter writes result lines for many files. It is safe for concurrent
// use; the lines of one file are written together.
type Reporter struct {
	mu   sync.Mutex
	w    io.Writer
	opts Options

	// hits receives "<file>: <n> hits" after each file with results.
	hits io.Writer

	matches int64
	tracks  int64
	files   int64
}

// NewReporter creates a reporter writing lines to w.
func NewReporter(w io.Writer, opts Options) *Reporter {
	return &Reporter{w: w, opts: opts}
}

// WithHitCounts enables per-file hit count lines on w.
func (r *Reporter) WithHitCounts(w io.Writer) *Reporter {
	r.hits = w
	return r
}

// Options returns the rendering options.
func (r *Reporter) Options() Options {
	return r.opts
}

// Report writes the matches of one file. Matches are expected to have
// passed Filter already.
func (r *Reporter) Report(path string, times types.FileTimes, matches []*types.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range matches {
		if _, err := fmt.Fprintln(r.w, r.opts.Line(path, times, m)); err != nil {
			return fmt.Errorf("writing result: %w", err)
		}
		r.matches++
		if m.Track != "" {
			r.tracks++
		}
	}
	if len(matches) > 0 {
		r.files++
		if r.hits != nil {
			if _, err := fmt.Fprintf(r.hits, "%s: %d hits\n", path, len(matches)); err != nil {
				return fmt.Errorf("writing hit count: %w", err)
			}
		}
	}
	return nil
}

// Totals returns the matches, track matches and files with hits reported
// so far.
func (r *Reporter) Totals() (matches, tracks, files int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.matches, r.tracks, r.files
}

// OpenLogfile opens path for appending results, creating it if needed.
func OpenLogfile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening logfile: %w", err)
	}
	return f, nil
}
