package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

const statusEveryBytes = 1024 * 1024

// Status draws a single self-overwriting progress line:
//
//	[15:04:05 File: name - Processed: 12MB]
//
// It redraws at most once per second unless another megabyte was read.
type Status struct {
	mu       sync.Mutex
	w        io.Writer
	enabled  bool
	width    int
	lastDraw time.Time
	lastMB   int64
	now      func() time.Time
}

// NewStatus creates a status line on f. It stays silent unless f is a
// terminal.
func NewStatus(f *os.File) *Status {
	return newStatus(f, term.IsTerminal(int(f.Fd())))
}

func newStatus(w io.Writer, enabled bool) *Status {
	return &Status{w: w, enabled: enabled, now: time.Now}
}

// Enabled reports whether the line is drawn.
func (s *Status) Enabled() bool {
	return s != nil && s.enabled
}

// Update redraws the line for path after processed bytes.
func (s *Status) Update(path string, processed int64) {
	if !s.Enabled() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	mb := processed / statusEveryBytes
	if mb == s.lastMB && now.Sub(s.lastDraw) < time.Second {
		return
	}
	s.lastMB = mb
	s.lastDraw = now

	msg := fmt.Sprintf("[%s File: %s - Processed: %dMB]", now.Format("15:04:05"), filepath.Base(path), mb)
	s.draw(msg)
}

// Clear erases the line.
func (s *Status) Clear() {
	if !s.Enabled() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draw("")
}

func (s *Status) draw(msg string) {
	pad := ""
	if n := s.width - len(msg); n > 0 {
		pad = strings.Repeat(" ", n)
	}
	fmt.Fprintf(s.w, "\r%s%s\r", msg, pad)
	s.width = len(msg)
}
