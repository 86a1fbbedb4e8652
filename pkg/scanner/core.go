package scanner

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/praetorian-inc/panscan/pkg/matcher"
	"github.com/praetorian-inc/panscan/pkg/report"
	"github.com/praetorian-inc/panscan/pkg/rule"
	"github.com/praetorian-inc/panscan/pkg/store"
	"github.com/praetorian-inc/panscan/pkg/types"
)

var (
	// cachedBuiltinRules holds builtin rules loaded once per process
	cachedBuiltinRules []*types.IssuerRule
	cachedRulesErr     error
	cacheOnce          sync.Once
)

// loadBuiltinRulesCached loads builtin rules once and caches them
func loadBuiltinRulesCached() ([]*types.IssuerRule, error) {
	cacheOnce.Do(func() {
		loader := rule.NewLoader()
		cachedBuiltinRules, cachedRulesErr = loader.LoadBuiltinRules()
	})
	return cachedBuiltinRules, cachedRulesErr
}

// Options configures a Core.
type Options struct {
	// Rules is the issuer table. Nil uses the builtin rules.
	Rules []*types.IssuerRule

	Track1    bool
	Track2    bool
	ASCIIOnly bool

	// Limit caps reported matches per input (0 = unlimited).
	Limit int

	// Mask hides the middle digits of returned matches.
	Mask bool

	// Ignore suppresses listed numbers.
	Ignore *report.IgnoreSet

	// KeepAdjacent reports numbers embedded in longer digit runs.
	KeepAdjacent bool
}

// Core wraps the matcher and store for scanning operations
type Core struct {
	matcher matcher.Matcher
	store   store.Store
	logger  DebugLogger
	mask    bool
}

// NewCore creates a new Core scanner with the given rules
// rulesJSON can be:
// - "" or "builtin" to load builtin rules (cached)
// - JSON string with custom rules array
func NewCore(rulesJSON string, logger DebugLogger) (*Core, error) {
	if logger == nil {
		logger = NoopLogger{}
	}

	rules, err := ParseRules(rulesJSON)
	if err != nil {
		logger.Log("parsing rules failed: %v", err)
		return nil, err
	}
	return NewCoreWithOptions(Options{Rules: rules}, logger)
}

// ParseRules decodes and validates a JSON rules array. "" and "builtin"
// return nil, which selects the builtin rules.
func ParseRules(rulesJSON string) ([]*types.IssuerRule, error) {
	if rulesJSON == "" || rulesJSON == "builtin" {
		return nil, nil
	}
	var rules []*types.IssuerRule
	if err := json.Unmarshal([]byte(rulesJSON), &rules); err != nil {
		return nil, fmt.Errorf("parsing rules: %w", err)
	}
	if err := rule.ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// NewCoreWithOptions creates a Core from explicit options.
func NewCoreWithOptions(opts Options, logger DebugLogger) (*Core, error) {
	if logger == nil {
		logger = NoopLogger{}
	}

	logger.Log("NewCore starting...")

	rules := opts.Rules
	if rules == nil {
		logger.Log("Loading builtin rules (cached)...")
		var err error
		rules, err = loadBuiltinRulesCached()
		if err != nil {
			logger.Log("loadBuiltinRulesCached failed: %v", err)
			return nil, err
		}
		logger.Log("Loaded %d builtin rules", len(rules))
	}

	filter := &report.Filter{Ignore: opts.Ignore, KeepAdjacent: opts.KeepAdjacent}
	m, err := matcher.New(matcher.Config{
		Rules:     rules,
		Track1:    opts.Track1,
		Track2:    opts.Track2,
		ASCIIOnly: opts.ASCIIOnly,
		Limit:     opts.Limit,
		Accept:    filter.Accept,
	})
	if err != nil {
		logger.Log("matcher.New failed: %v", err)
		return nil, err
	}
	logger.Log("Matcher created with %d rules", len(rules))

	s, err := store.New(store.Config{Path: ":memory:"})
	if err != nil {
		logger.Log("store.New failed: %v", err)
		m.Close()
		return nil, err
	}

	logger.Log("NewCore complete")
	return &Core{
		matcher: m,
		store:   s,
		logger:  logger,
		mask:    opts.Mask,
	}, nil
}

// Scan scans a single content string
func (c *Core) Scan(content, source string) (*ScanResult, error) {
	return c.ScanReader(context.Background(), bytes.NewReader([]byte(content)), int64(len(content)), source)
}

// ScanReader scans r. size is the content length, or -1 if unknown.
func (c *Core) ScanReader(ctx context.Context, r io.Reader, size int64, source string) (*ScanResult, error) {
	res, err := c.matcher.MatchReader(ctx, r, size)
	if err != nil {
		return nil, err
	}

	c.record(res, source)
	return &ScanResult{
		Source:  source,
		BlobID:  res.BlobID,
		Matches: res.Matches,
		Summary: res.Summary,
	}, nil
}

// record stores the matches and masks them when masking is on. Finding IDs
// were computed from the unmasked digits.
func (c *Core) record(res *matcher.MatchResult, source string) {
	if len(res.Matches) == 0 {
		return
	}
	c.store.AddBlob(res.BlobID, res.Summary.BytesScanned)
	c.store.AddProvenance(res.BlobID, types.StreamProvenance{Source: source})
	for _, m := range res.Matches {
		if c.mask {
			m.Digits = report.Mask(m.Digits)
		}
		c.store.AddMatch(m)
		c.store.AddFinding(&types.Finding{ID: m.FindingID, Brand: m.Brand, Digits: m.Digits})
	}
}

// ScanBatch scans multiple content items
func (c *Core) ScanBatch(items []ContentItem) (*BatchScanResult, error) {
	var results []ScanResult
	total := 0

	for _, item := range items {
		res, err := c.Scan(item.Content, item.Source)
		if err != nil {
			c.logger.Log("scan of %s failed: %v", item.Source, err)
			continue
		}
		results = append(results, *res)
		total += len(res.Matches)
	}

	return &BatchScanResult{
		Results: results,
		Total:   total,
	}, nil
}

// Findings returns the distinct card numbers seen by this Core.
func (c *Core) Findings() ([]*types.Finding, error) {
	return c.store.GetFindings()
}

// Close releases scanner resources
func (c *Core) Close() {
	if c.matcher != nil {
		c.matcher.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// GetBuiltinRules returns the built-in rules (cached)
func GetBuiltinRules() ([]*types.IssuerRule, error) {
	return loadBuiltinRulesCached()
}
