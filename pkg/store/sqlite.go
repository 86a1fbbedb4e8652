//go:build !wasm

package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/praetorian-inc/panscan/pkg/types"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// openDB opens a SQLite database with a busy timeout so concurrent writers
// wait instead of failing.
func openDB(path string) (*sql.DB, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// One connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)
	return db, nil
}

// NewSQLite creates a SQLite-based store.
// Use ":memory:" for in-memory database (useful for testing).
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := CreateSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// AddBlob stores a blob record.
func (s *SQLiteStore) AddBlob(id types.BlobID, size int64) error {
	_, err := s.db.Exec("INSERT OR IGNORE INTO blobs (id, size) VALUES (?, ?)", id.Hex(), size)
	if err != nil {
		return fmt.Errorf("inserting blob: %w", err)
	}
	return nil
}

// AddMatch stores a match record.
func (s *SQLiteStore) AddMatch(m *types.Match) error {
	src := m.Location.Source
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO matches (blob_id, rule_id, brand, digits, length, track, structural_id, finding_id,
			offset_start, offset_end, start_line, start_column, end_line, end_column)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.BlobID.Hex(),
		m.RuleID,
		m.Brand,
		m.Digits,
		m.Length,
		m.Track,
		m.StructuralID,
		m.FindingID,
		m.Location.Offset.Start,
		m.Location.Offset.End,
		src.Start.Line,
		src.Start.Column,
		src.End.Line,
		src.End.Column,
	)
	if err != nil {
		return fmt.Errorf("inserting match: %w", err)
	}
	return nil
}

// AddFinding stores a finding (deduplicated).
func (s *SQLiteStore) AddFinding(f *types.Finding) error {
	_, err := s.db.Exec(`
		INSERT OR IGNORE INTO findings (finding_id, brand, digits)
		VALUES (?, ?, ?)
	`, f.ID, f.Brand, f.Digits)
	if err != nil {
		return fmt.Errorf("inserting finding: %w", err)
	}
	return nil
}

// AddProvenance associates provenance with a blob.
func (s *SQLiteStore) AddProvenance(blobID types.BlobID, prov types.Provenance) error {
	row, err := encodeProvenance(prov)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT OR IGNORE INTO provenance (blob_id, type, path, member_path, repo_path, commit_hash, mtime, atime, ctime)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		blobID.Hex(),
		prov.Kind(),
		row.path,
		row.member,
		row.repo,
		row.commit,
		unixOrNull(row.times.Modified),
		unixOrNull(row.times.Accessed),
		unixOrNull(row.times.Changed),
	)
	if err != nil {
		return fmt.Errorf("inserting provenance: %w", err)
	}
	return nil
}

// AddScan records a scan run.
func (s *SQLiteStore) AddScan(run *types.ScanRun) error {
	var finished any
	if !run.FinishedAt.IsZero() {
		finished = run.FinishedAt.UnixNano()
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO scans (id, started_at, finished_at, files_searched, matches, track_matches, interrupted)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.StartedAt.UnixNano(), finished, run.FilesSearched, run.Matches, run.TrackMatches, run.Interrupted)
	if err != nil {
		return fmt.Errorf("inserting scan: %w", err)
	}
	return nil
}

const matchColumns = `blob_id, rule_id, brand, digits, length, track, structural_id, finding_id,
	offset_start, offset_end, start_line, start_column, end_line, end_column`

// GetMatches retrieves matches for a blob.
func (s *SQLiteStore) GetMatches(blobID types.BlobID) ([]*types.Match, error) {
	return s.queryMatches("SELECT "+matchColumns+" FROM matches WHERE blob_id = ? ORDER BY id", blobID.Hex())
}

// GetAllMatches retrieves all matches.
func (s *SQLiteStore) GetAllMatches() ([]*types.Match, error) {
	return s.queryMatches("SELECT " + matchColumns + " FROM matches ORDER BY id")
}

func (s *SQLiteStore) queryMatches(query string, args ...any) ([]*types.Match, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	var matches []*types.Match
	for rows.Next() {
		var m types.Match
		var blobIDHex string
		var startLine, startCol, endLine, endCol sql.NullInt64

		err := rows.Scan(
			&blobIDHex,
			&m.RuleID,
			&m.Brand,
			&m.Digits,
			&m.Length,
			&m.Track,
			&m.StructuralID,
			&m.FindingID,
			&m.Location.Offset.Start,
			&m.Location.Offset.End,
			&startLine,
			&startCol,
			&endLine,
			&endCol,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}

		blobID, err := types.ParseBlobID(blobIDHex)
		if err != nil {
			return nil, fmt.Errorf("parsing blob ID: %w", err)
		}
		m.BlobID = blobID
		m.Location.Source = types.SourceSpan{
			Start: types.SourcePoint{Line: int(startLine.Int64), Column: int(startCol.Int64)},
			End:   types.SourcePoint{Line: int(endLine.Int64), Column: int(endCol.Int64)},
		}

		matches = append(matches, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return matches, nil
}

// GetFindings retrieves all findings with their matches attached.
func (s *SQLiteStore) GetFindings() ([]*types.Finding, error) {
	rows, err := s.db.Query(`SELECT finding_id, brand, digits FROM findings ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying findings: %w", err)
	}
	defer rows.Close()

	var findings []*types.Finding
	byID := make(map[string]*types.Finding)
	for rows.Next() {
		var f types.Finding
		if err := rows.Scan(&f.ID, &f.Brand, &f.Digits); err != nil {
			return nil, fmt.Errorf("scanning finding: %w", err)
		}
		findings = append(findings, &f)
		byID[f.ID] = &f
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating findings: %w", err)
	}
	rows.Close()

	matches, err := s.GetAllMatches()
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if f, ok := byID[m.FindingID]; ok {
			f.Matches = append(f.Matches, m)
		}
	}
	return findings, nil
}

// GetProvenance retrieves every provenance recorded for a blob.
func (s *SQLiteStore) GetProvenance(blobID types.BlobID) ([]types.Provenance, error) {
	rows, err := s.db.Query(`
		SELECT type, path, member_path, repo_path, commit_hash, mtime, atime, ctime
		FROM provenance WHERE blob_id = ? ORDER BY id
	`, blobID.Hex())
	if err != nil {
		return nil, fmt.Errorf("querying provenance: %w", err)
	}
	defer rows.Close()

	var provs []types.Provenance
	for rows.Next() {
		var kind string
		var row provenanceRow
		var mtime, atime, ctime sql.NullInt64
		if err := rows.Scan(&kind, &row.path, &row.member, &row.repo, &row.commit, &mtime, &atime, &ctime); err != nil {
			return nil, fmt.Errorf("scanning provenance: %w", err)
		}
		row.times = types.FileTimes{
			Modified: timeOrZero(mtime),
			Accessed: timeOrZero(atime),
			Changed:  timeOrZero(ctime),
		}
		provs = append(provs, row.decode(kind))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating provenance: %w", err)
	}
	return provs, nil
}

// GetScans retrieves recorded scan runs.
func (s *SQLiteStore) GetScans() ([]*types.ScanRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, finished_at, files_searched, matches, track_matches, interrupted
		FROM scans ORDER BY started_at
	`)
	if err != nil {
		return nil, fmt.Errorf("querying scans: %w", err)
	}
	defer rows.Close()

	var runs []*types.ScanRun
	for rows.Next() {
		var run types.ScanRun
		var started int64
		var finished sql.NullInt64
		if err := rows.Scan(&run.ID, &started, &finished, &run.FilesSearched, &run.Matches, &run.TrackMatches, &run.Interrupted); err != nil {
			return nil, fmt.Errorf("scanning scan: %w", err)
		}
		run.StartedAt = time.Unix(0, started)
		if finished.Valid {
			run.FinishedAt = time.Unix(0, finished.Int64)
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating scans: %w", err)
	}
	return runs, nil
}

// FindingExists checks if a finding with this ID exists.
func (s *SQLiteStore) FindingExists(findingID string) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM findings WHERE finding_id = ?", findingID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking finding existence: %w", err)
	}
	return count > 0, nil
}

// BlobExists checks if a blob has already been scanned.
func (s *SQLiteStore) BlobExists(id types.BlobID) (bool, error) {
	var count int
	err := s.db.QueryRow("SELECT COUNT(*) FROM blobs WHERE id = ?", id.Hex()).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking blob existence: %w", err)
	}
	return count > 0, nil
}

// SetAnnotation records or clears an annotation.
func (s *SQLiteStore) SetAnnotation(kind, id, status, comment string) error {
	if status == "" && comment == "" {
		_, err := s.db.Exec("DELETE FROM annotations WHERE kind = ? AND target_id = ?", kind, id)
		if err != nil {
			return fmt.Errorf("clearing annotation: %w", err)
		}
		return nil
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO annotations (kind, target_id, status, comment, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, kind, id, status, comment, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("storing annotation: %w", err)
	}
	return nil
}

// GetAnnotation returns the annotation for kind and id.
func (s *SQLiteStore) GetAnnotation(kind, id string) (string, string, error) {
	var status, comment string
	err := s.db.QueryRow("SELECT status, comment FROM annotations WHERE kind = ? AND target_id = ?", kind, id).Scan(&status, &comment)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("querying annotation: %w", err)
	}
	return status, comment, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func unixOrNull(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.Unix()
}

func timeOrZero(v sql.NullInt64) time.Time {
	if !v.Valid {
		return time.Time{}
	}
	return time.Unix(v.Int64, 0)
}
