package matcher

import (
	"strconv"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// DedupeMode controls how matches are deduplicated.
type DedupeMode int

const (
	// DedupeByLocation deduplicates by exact location (rule + offset).
	// The same number at different offsets is reported each time.
	DedupeByLocation DedupeMode = iota

	// DedupeByContent deduplicates by rule and digits.
	// The same number appearing several times in a stream is reported once.
	DedupeByContent
)

// Deduplicator removes duplicate matches based on configurable criteria.
type Deduplicator struct {
	seen map[string]bool
	mode DedupeMode
}

// NewDeduplicator creates a new deduplicator with location-based deduplication.
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{
		seen: make(map[string]bool),
		mode: DedupeByLocation,
	}
}

// NewContentDeduplicator creates a deduplicator that deduplicates by content.
func NewContentDeduplicator() *Deduplicator {
	return &Deduplicator{
		seen: make(map[string]bool),
		mode: DedupeByContent,
	}
}

// SetMode changes the deduplication mode.
func (d *Deduplicator) SetMode(mode DedupeMode) {
	d.mode = mode
}

// IsDuplicate returns true if match was already seen.
func (d *Deduplicator) IsDuplicate(m *types.Match) bool {
	return d.seen[d.computeKey(m)]
}

// Add marks a match as seen.
func (d *Deduplicator) Add(m *types.Match) {
	d.seen[d.computeKey(m)] = true
}

// Reset clears the deduplicator for reuse.
func (d *Deduplicator) Reset() {
	clear(d.seen)
}

// computeKey generates the deduplication key based on mode.
func (d *Deduplicator) computeKey(m *types.Match) string {
	switch d.mode {
	case DedupeByContent:
		return m.RuleID + "\x00" + m.Digits
	default:
		return m.RuleID + "\x00" + strconv.FormatInt(m.Location.Offset.Start, 10)
	}
}
