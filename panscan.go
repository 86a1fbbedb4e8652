// Package panscan finds payment card numbers in files and byte streams.
//
// A candidate is a run of 13 to 16 digits, optionally broken by dashes,
// carriage returns, newlines or NUL bytes, that passes the Luhn check and
// matches an issuer prefix rule. Track 1 and track 2 magnetic-stripe
// framing can be reported as well.
//
// # Basic Usage
//
//	scanner, err := panscan.NewScanner()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer scanner.Close()
//
//	matches, err := scanner.ScanString("order 4111-1111-1111-1111 shipped")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, m := range matches {
//	    fmt.Printf("%s %s at offset %d\n", m.Brand, m.Digits, m.Location.Offset.Start)
//	}
//
// # Masking and Ignore Lists
//
//	scanner, err := panscan.NewScanner(
//	    panscan.WithMask(),
//	    panscan.WithIgnore("4111111111111111"),
//	)
package panscan

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/praetorian-inc/panscan/pkg/matcher"
	"github.com/praetorian-inc/panscan/pkg/report"
	"github.com/praetorian-inc/panscan/pkg/rule"
	"github.com/praetorian-inc/panscan/pkg/types"
)

// Re-export commonly used types for convenience.
type (
	// Match is one card number found in scanned content.
	Match = types.Match

	// IssuerRule maps a prefix range and length to a card brand.
	IssuerRule = types.IssuerRule

	// Location describes where a match was found within content.
	Location = types.Location
)

// Track labels carried in Match.Track.
const (
	Track1 = types.Track1
	Track2 = types.Track2
)

// Scanner finds card numbers. It is safe for concurrent use.
type Scanner struct {
	matcher matcher.Matcher
	config  *scannerConfig
	mu      sync.RWMutex
}

type scannerConfig struct {
	rules        []*types.IssuerRule
	track1       bool
	track2       bool
	asciiOnly    bool
	limit        int
	mask         bool
	ignore       []string
	keepAdjacent bool
}

// Option configures a Scanner.
type Option func(*scannerConfig)

// WithRules uses a custom issuer table instead of the builtin one.
func WithRules(rules []*IssuerRule) Option {
	return func(c *scannerConfig) {
		c.rules = rules
	}
}

// WithTrack1 reports numbers framed as track 1 data.
func WithTrack1() Option {
	return func(c *scannerConfig) {
		c.track1 = true
	}
}

// WithTrack2 reports numbers framed as track 2 data.
func WithTrack2() Option {
	return func(c *scannerConfig) {
		c.track2 = true
	}
}

// WithASCIIOnly stops scanning at the first chunk holding a non-ASCII byte.
func WithASCIIOnly() Option {
	return func(c *scannerConfig) {
		c.asciiOnly = true
	}
}

// WithLimit stops each scan after n matches.
func WithLimit(n int) Option {
	return func(c *scannerConfig) {
		c.limit = n
	}
}

// WithMask replaces the middle digits of returned numbers with '*'.
func WithMask() Option {
	return func(c *scannerConfig) {
		c.mask = true
	}
}

// WithIgnore drops the listed numbers. Spaces and dashes are ignored.
func WithIgnore(pans ...string) Option {
	return func(c *scannerConfig) {
		c.ignore = append(c.ignore, pans...)
	}
}

// WithAdjacentDigits keeps numbers that directly touch other digits. By
// default a match preceded or followed by a digit is dropped as a likely
// fragment of a longer number.
func WithAdjacentDigits() Option {
	return func(c *scannerConfig) {
		c.keepAdjacent = true
	}
}

// NewScanner creates a Scanner. Without WithRules the builtin issuer table
// is used.
func NewScanner(opts ...Option) (*Scanner, error) {
	config := &scannerConfig{}
	for _, opt := range opts {
		opt(config)
	}
	if config.rules == nil {
		rules, err := LoadBuiltinRules()
		if err != nil {
			return nil, fmt.Errorf("loading builtin rules: %w", err)
		}
		config.rules = rules
	}

	filter := &report.Filter{
		Ignore:       report.NewIgnoreSet(config.ignore...),
		KeepAdjacent: config.keepAdjacent,
	}
	m, err := matcher.New(matcher.Config{
		Rules:     config.rules,
		Track1:    config.track1,
		Track2:    config.track2,
		ASCIIOnly: config.asciiOnly,
		Limit:     config.limit,
		Accept:    filter.Accept,
	})
	if err != nil {
		return nil, fmt.Errorf("creating matcher: %w", err)
	}

	return &Scanner{matcher: m, config: config}, nil
}

// ScanString scans a string.
func (s *Scanner) ScanString(content string) ([]*Match, error) {
	return s.ScanBytes([]byte(content))
}

// ScanBytes scans content held in memory.
func (s *Scanner) ScanBytes(content []byte) ([]*Match, error) {
	return s.ScanReader(context.Background(), bytes.NewReader(content), int64(len(content)))
}

// ScanReader scans r until EOF, the limit or cancellation. size is the
// input length, or -1 when unknown.
func (s *Scanner) ScanReader(ctx context.Context, r io.Reader, size int64) ([]*Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res, err := s.matcher.MatchReader(ctx, r, size)
	if err != nil {
		return nil, err
	}
	if s.config.mask {
		for _, m := range res.Matches {
			m.Digits = report.Mask(m.Digits)
		}
	}
	return res.Matches, nil
}

// ScanFile streams a file through the scanner.
func (s *Scanner) ScanFile(path string) ([]*Match, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	defer f.Close()

	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}
	return s.ScanReader(context.Background(), f, size)
}

// Close releases scanner resources.
func (s *Scanner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.matcher != nil {
		return s.matcher.Close()
	}
	return nil
}

// RuleCount returns the number of issuer rules loaded.
func (s *Scanner) RuleCount() int {
	return len(s.config.rules)
}

// Rules returns a copy of the loaded issuer rules.
func (s *Scanner) Rules() []*IssuerRule {
	rules := make([]*IssuerRule, len(s.config.rules))
	copy(rules, s.config.rules)
	return rules
}

// LoadRulesFromFile loads an issuer table from a YAML file. Use it with
// WithRules.
func LoadRulesFromFile(path string) ([]*IssuerRule, error) {
	return rule.NewLoader().LoadRuleFile(path)
}

// LoadBuiltinRules returns the builtin issuer table.
func LoadBuiltinRules() ([]*IssuerRule, error) {
	return rule.NewLoader().LoadBuiltinRules()
}
