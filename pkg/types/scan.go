package types

import "time"

// ScanRun summarizes one invocation of the scanner.
type ScanRun struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	FilesSearched int64
	Matches       int64
	TrackMatches  int64
	Interrupted   bool
}

// Elapsed returns the wall time of the run.
func (r *ScanRun) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
