package store

import (
	"github.com/praetorian-inc/panscan/pkg/types"
)

// Store provides persistence for scan results.
type Store interface {
	// AddBlob stores a blob record.
	AddBlob(id types.BlobID, size int64) error

	// AddMatch stores a match record. Repeated structural IDs are ignored.
	AddMatch(m *types.Match) error

	// AddFinding stores a finding (deduplicated by ID).
	AddFinding(f *types.Finding) error

	// AddProvenance associates provenance with a blob.
	AddProvenance(blobID types.BlobID, prov types.Provenance) error

	// AddScan records a scan run, replacing an earlier row with the same ID.
	AddScan(run *types.ScanRun) error

	// GetMatches retrieves matches for a blob.
	GetMatches(blobID types.BlobID) ([]*types.Match, error)

	// GetAllMatches retrieves all matches in insertion order.
	GetAllMatches() ([]*types.Match, error)

	// GetFindings retrieves all findings with their matches.
	GetFindings() ([]*types.Finding, error)

	// GetProvenance retrieves every provenance recorded for a blob.
	GetProvenance(blobID types.BlobID) ([]types.Provenance, error)

	// GetScans retrieves recorded scan runs, oldest first.
	GetScans() ([]*types.ScanRun, error)

	// FindingExists checks if a finding with this ID exists.
	FindingExists(findingID string) (bool, error)

	// BlobExists checks if a blob has already been scanned.
	BlobExists(id types.BlobID) (bool, error)

	// SetAnnotation records a triage status and comment for a finding or
	// match. An empty status and comment clears the annotation.
	SetAnnotation(kind, id, status, comment string) error

	// GetAnnotation returns the status and comment recorded for a finding
	// or match, or empty strings when there is none.
	GetAnnotation(kind, id string) (status, comment string, err error)

	// Close closes the database connection.
	Close() error
}

// Annotation kinds.
const (
	AnnotationFinding = "finding"
	AnnotationMatch   = "match"
)

// Annotation statuses.
const (
	StatusAccept = "accept"
	StatusReject = "reject"
)

// Config for store initialization.
type Config struct {
	// Path is the database file path.
	// Use ":memory:" for the in-memory store.
	Path string
}
