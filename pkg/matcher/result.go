package matcher

import "github.com/praetorian-inc/panscan/pkg/types"

// RuleStat counts the matches of one rule in one stream.
type RuleStat struct {
	RuleID     string // Rule identifier
	Matches    int    // Matches reported
	Suppressed int    // Matches rejected by the accept filter or deduplication
}

// ResultSummary provides aggregate statistics for one stream.
type ResultSummary struct {
	BytesScanned int64 // Bytes fed to the core
	BytesRead    int64 // Bytes hashed, including any unscanned remainder
	Candidates   int   // Matches emitted by the core before filtering
	Reported     int   // Matches kept
	Suppressed   int   // Matches dropped by the accept filter or deduplication
	TrackMatches int   // Kept matches tagged as track data
	LimitReached bool  // Scanning stopped at Config.Limit
	NonASCII     bool  // Scanning stopped at a non-ASCII chunk
}

// MatchResult contains matches and statistics of one stream.
type MatchResult struct {
	BlobID    types.BlobID        // Content hash of the whole input
	Matches   []*types.Match      // Kept matches in emission order
	RuleStats map[string]RuleStat // Statistics for each rule (keyed by RuleID)
	Summary   ResultSummary       // Aggregate statistics
}

func newMatchResult() *MatchResult {
	return &MatchResult{RuleStats: make(map[string]RuleStat)}
}

func (r *MatchResult) count(ruleID string, kept bool) {
	stat := r.RuleStats[ruleID]
	stat.RuleID = ruleID
	if kept {
		stat.Matches++
	} else {
		stat.Suppressed++
	}
	r.RuleStats[ruleID] = stat
}
