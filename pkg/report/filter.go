package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// IgnoreSet holds card numbers that are never reported.
type IgnoreSet struct {
	pans map[string]struct{}
}

// NewIgnoreSet builds a set from literal numbers. Spaces and dashes inside
// an entry are dropped.
func NewIgnoreSet(pans ...string) *IgnoreSet {
	s := &IgnoreSet{pans: make(map[string]struct{}, len(pans))}
	for _, p := range pans {
		if n := normalize(p); n != "" {
			s.pans[n] = struct{}{}
		}
	}
	return s
}

// ReadIgnoreSet reads one number per line. Blank lines and lines starting
// with '#' are skipped.
func ReadIgnoreSet(r io.Reader) (*IgnoreSet, error) {
	s := NewIgnoreSet()
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		n := normalize(text)
		if n == "" || strings.Trim(n, "0123456789") != "" {
			return nil, fmt.Errorf("line %d: not a card number: %q", line, text)
		}
		s.pans[n] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ignore list: %w", err)
	}
	return s, nil
}

// LoadIgnoreSet reads an ignore file.
func LoadIgnoreSet(path string) (*IgnoreSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ignore file: %w", err)
	}
	defer f.Close()

	s, err := ReadIgnoreSet(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Contains reports whether digits is ignored. A nil set ignores nothing.
func (s *IgnoreSet) Contains(digits string) bool {
	if s == nil {
		return false
	}
	_, ok := s.pans[digits]
	return ok
}

// Len is the number of entries.
func (s *IgnoreSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.pans)
}

func normalize(p string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' || r == '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(p))
}

// Filter decides which core matches are reported.
type Filter struct {
	// Ignore suppresses listed numbers.
	Ignore *IgnoreSet

	// KeepAdjacent reports matches that touch other digits.
	KeepAdjacent bool
}

// Accept reports whether m survives suppression. It reads the unmasked
// digits, so it must run before masking.
func (f *Filter) Accept(m *types.Match) bool {
	if !f.KeepAdjacent && (m.PrecededByDigit || m.FollowedByDigit) {
		return false
	}
	return !f.Ignore.Contains(m.Digits)
}
