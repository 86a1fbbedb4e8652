package store

import (
	"sort"
	"sync"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// MemoryStore implements Store using in-memory data structures.
// It is the default store and the only one available in WASM builds.
type MemoryStore struct {
	mu         sync.RWMutex
	blobs      map[types.BlobID]int64
	matches    []*types.Match
	structural map[string]bool
	findings   []*types.Finding
	findingIDs map[string]*types.Finding
	provenance map[types.BlobID][]types.Provenance
	scans      map[string]*types.ScanRun
	notes      map[annotationKey]annotation
}

type annotationKey struct{ kind, id string }

type annotation struct{ status, comment string }

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		blobs:      make(map[types.BlobID]int64),
		structural: make(map[string]bool),
		findingIDs: make(map[string]*types.Finding),
		provenance: make(map[types.BlobID][]types.Provenance),
		scans:      make(map[string]*types.ScanRun),
		notes:      make(map[annotationKey]annotation),
	}
}

// AddBlob stores a blob record.
func (m *MemoryStore) AddBlob(id types.BlobID, size int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.blobs[id]; !exists {
		m.blobs[id] = size
	}
	return nil
}

// AddMatch stores a match record.
func (m *MemoryStore) AddMatch(match *types.Match) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.structural[match.StructuralID] {
		return nil
	}
	m.structural[match.StructuralID] = true
	m.matches = append(m.matches, match)
	return nil
}

// AddFinding stores a finding (deduplicated).
func (m *MemoryStore) AddFinding(f *types.Finding) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.findingIDs[f.ID]; exists {
		return nil
	}
	stored := &types.Finding{ID: f.ID, Brand: f.Brand, Digits: f.Digits}
	m.findingIDs[f.ID] = stored
	m.findings = append(m.findings, stored)
	return nil
}

// AddProvenance associates provenance with a blob.
func (m *MemoryStore) AddProvenance(blobID types.BlobID, prov types.Provenance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	row, err := encodeProvenance(prov)
	if err != nil {
		return err
	}
	for _, p := range m.provenance[blobID] {
		existing, _ := encodeProvenance(p)
		if p.Kind() == prov.Kind() && sameRow(existing, row) {
			return nil
		}
	}

	m.provenance[blobID] = append(m.provenance[blobID], prov)
	return nil
}

func sameRow(a, b provenanceRow) bool {
	return a.path == b.path && a.member == b.member && a.repo == b.repo && a.commit == b.commit
}

// AddScan records a scan run.
func (m *MemoryStore) AddScan(run *types.ScanRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *run
	m.scans[run.ID] = &cp
	return nil
}

// GetMatches retrieves matches for a blob.
func (m *MemoryStore) GetMatches(blobID types.BlobID) ([]*types.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := []*types.Match{}
	for _, match := range m.matches {
		if match.BlobID == blobID {
			result = append(result, match)
		}
	}
	return result, nil
}

// GetAllMatches retrieves all matches.
func (m *MemoryStore) GetAllMatches() ([]*types.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Return a copy to avoid external modifications
	result := make([]*types.Match, len(m.matches))
	copy(result, m.matches)
	return result, nil
}

// GetFindings retrieves all findings with their matches attached.
func (m *MemoryStore) GetFindings() ([]*types.Finding, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*types.Finding, 0, len(m.findings))
	index := make(map[string]*types.Finding, len(m.findings))
	for _, f := range m.findings {
		cp := &types.Finding{ID: f.ID, Brand: f.Brand, Digits: f.Digits}
		index[f.ID] = cp
		result = append(result, cp)
	}
	for _, match := range m.matches {
		if f, ok := index[match.FindingID]; ok {
			f.Matches = append(f.Matches, match)
		}
	}
	return result, nil
}

// GetProvenance retrieves every provenance recorded for a blob.
func (m *MemoryStore) GetProvenance(blobID types.BlobID) ([]types.Provenance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	provs := m.provenance[blobID]
	result := make([]types.Provenance, len(provs))
	copy(result, provs)
	return result, nil
}

// GetScans retrieves recorded scan runs.
func (m *MemoryStore) GetScans() ([]*types.ScanRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]*types.ScanRun, 0, len(m.scans))
	for _, r := range m.scans {
		cp := *r
		runs = append(runs, &cp)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.Before(runs[j].StartedAt) })
	return runs, nil
}

// FindingExists checks if a finding with this ID exists.
func (m *MemoryStore) FindingExists(findingID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.findingIDs[findingID]
	return exists, nil
}

// BlobExists checks if a blob has already been scanned.
func (m *MemoryStore) BlobExists(id types.BlobID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.blobs[id]
	return exists, nil
}

// SetAnnotation records or clears an annotation.
func (m *MemoryStore) SetAnnotation(kind, id, status, comment string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := annotationKey{kind, id}
	if status == "" && comment == "" {
		delete(m.notes, k)
		return nil
	}
	m.notes[k] = annotation{status, comment}
	return nil
}

// GetAnnotation returns the annotation for kind and id.
func (m *MemoryStore) GetAnnotation(kind, id string) (string, string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a := m.notes[annotationKey{kind, id}]
	return a.status, a.comment, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}
