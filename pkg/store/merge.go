//go:build !wasm

package store

import (
	"database/sql"
	"fmt"
)

// MergeConfig configures the merge operation.
type MergeConfig struct {
	// SourcePaths are the database files to merge from.
	SourcePaths []string
	// DestPath is the destination database file.
	DestPath string
}

// MergeStats tracks merge operation statistics.
type MergeStats struct {
	BlobsMerged       int
	MatchesMerged     int
	FindingsMerged    int
	ProvenanceMerged  int
	ScansMerged       int
	AnnotationsMerged int
	SourcesProcessed  int
}

// Merge combines multiple panscan databases into one.
// Deduplication is handled via INSERT OR IGNORE on unique keys, so the
// first source to annotate a finding wins.
func Merge(cfg MergeConfig) (*MergeStats, error) {
	if len(cfg.SourcePaths) == 0 {
		return nil, fmt.Errorf("no source databases specified")
	}
	if cfg.DestPath == "" {
		return nil, fmt.Errorf("destination path is required")
	}

	destDB, err := openDB(cfg.DestPath)
	if err != nil {
		return nil, fmt.Errorf("opening destination database: %w", err)
	}
	defer destDB.Close()

	if err := CreateSchema(destDB); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	stats := &MergeStats{}
	for _, sourcePath := range cfg.SourcePaths {
		sourceStats, err := mergeFrom(destDB, sourcePath)
		if err != nil {
			return stats, fmt.Errorf("merging from %s: %w", sourcePath, err)
		}
		stats.BlobsMerged += sourceStats.BlobsMerged
		stats.MatchesMerged += sourceStats.MatchesMerged
		stats.FindingsMerged += sourceStats.FindingsMerged
		stats.ProvenanceMerged += sourceStats.ProvenanceMerged
		stats.ScansMerged += sourceStats.ScansMerged
		stats.AnnotationsMerged += sourceStats.AnnotationsMerged
		stats.SourcesProcessed++
	}

	return stats, nil
}

// copySpec copies one table's columns with INSERT OR IGNORE.
type copySpec struct {
	table   string
	columns string
	n       int
	count   *int
}

// mergeFrom copies data from a source database to the destination.
func mergeFrom(destDB *sql.DB, sourcePath string) (*MergeStats, error) {
	sourceDB, err := openDB(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("opening source database: %w", err)
	}
	defer sourceDB.Close()

	// A source with a different schema version is rejected, not migrated.
	var version int
	if err := sourceDB.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		return nil, fmt.Errorf("reading schema version: %w", err)
	}
	if version != SchemaVersion {
		return nil, fmt.Errorf("unsupported schema version %d (want %d)", version, SchemaVersion)
	}

	stats := &MergeStats{}
	specs := []copySpec{
		{"blobs", "id, size", 2, &stats.BlobsMerged},
		{"findings", "finding_id, brand, digits", 3, &stats.FindingsMerged},
		{"matches", `blob_id, rule_id, brand, digits, length, track, structural_id, finding_id,
			offset_start, offset_end, start_line, start_column, end_line, end_column`, 14, &stats.MatchesMerged},
		{"provenance", "blob_id, type, path, member_path, repo_path, commit_hash, mtime, atime, ctime", 9, &stats.ProvenanceMerged},
		{"scans", "id, started_at, finished_at, files_searched, matches, track_matches, interrupted", 7, &stats.ScansMerged},
		{"annotations", "kind, target_id, status, comment, updated_at", 5, &stats.AnnotationsMerged},
	}

	tx, err := destDB.Begin()
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	for _, spec := range specs {
		n, err := copyTable(tx, sourceDB, spec)
		if err != nil {
			return nil, fmt.Errorf("merging %s: %w", spec.table, err)
		}
		*spec.count = n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return stats, nil
}

func copyTable(tx *sql.Tx, sourceDB *sql.DB, spec copySpec) (int, error) {
	rows, err := sourceDB.Query(fmt.Sprintf("SELECT %s FROM %s", spec.columns, spec.table))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	placeholders := "?"
	for i := 1; i < spec.n; i++ {
		placeholders += ", ?"
	}
	stmt, err := tx.Prepare(fmt.Sprintf("INSERT OR IGNORE INTO %s (%s) VALUES (%s)", spec.table, spec.columns, placeholders))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	values := make([]any, spec.n)
	ptrs := make([]any, spec.n)
	for i := range values {
		ptrs[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return count, err
		}
		result, err := stmt.Exec(values...)
		if err != nil {
			return count, err
		}
		affected, _ := result.RowsAffected()
		if affected > 0 {
			count++
		}
	}
	return count, rows.Err()
}
