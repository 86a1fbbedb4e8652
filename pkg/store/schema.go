//go:build !wasm

package store

import (
	"database/sql"
	"fmt"
)

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// CreateSchema creates the database schema if it doesn't exist.
func CreateSchema(db *sql.DB) error {
	if err := createSchemaVersionTable(db); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	tables := []struct {
		name string
		ddl  string
	}{
		{"blobs", blobsTable},
		{"matches", matchesTable},
		{"findings", findingsTable},
		{"provenance", provenanceTable},
		{"scans", scansTable},
		{"annotations", annotationsTable},
	}
	for _, t := range tables {
		if _, err := db.Exec(t.ddl); err != nil {
			return fmt.Errorf("creating %s table: %w", t.name, err)
		}
	}

	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return fmt.Errorf("creating index: %w", err)
		}
	}
	return nil
}

func createSchemaVersionTable(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&count)
	if err != nil {
		return err
	}

	if count == 0 {
		_, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", SchemaVersion)
		return err
	}

	var version int
	if err := db.QueryRow("SELECT version FROM schema_version").Scan(&version); err != nil {
		return err
	}
	if version != SchemaVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", version, SchemaVersion)
	}
	return nil
}

const blobsTable = `
	CREATE TABLE IF NOT EXISTS blobs (
		id TEXT PRIMARY KEY NOT NULL,
		size INTEGER NOT NULL
	)`

const matchesTable = `
	CREATE TABLE IF NOT EXISTS matches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		blob_id TEXT NOT NULL REFERENCES blobs(id),
		rule_id TEXT NOT NULL,
		brand TEXT NOT NULL,
		digits TEXT NOT NULL,
		length INTEGER NOT NULL,
		track TEXT NOT NULL DEFAULT '',
		structural_id TEXT NOT NULL UNIQUE,
		finding_id TEXT NOT NULL,
		offset_start INTEGER NOT NULL,
		offset_end INTEGER NOT NULL,
		start_line INTEGER,
		start_column INTEGER,
		end_line INTEGER,
		end_column INTEGER
	)`

const findingsTable = `
	CREATE TABLE IF NOT EXISTS findings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		finding_id TEXT NOT NULL UNIQUE,
		brand TEXT NOT NULL,
		digits TEXT NOT NULL
	)`

// Optional provenance columns default to '' so the UNIQUE constraint
// deduplicates rows that leave them unset.
const provenanceTable = `
	CREATE TABLE IF NOT EXISTS provenance (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		blob_id TEXT NOT NULL REFERENCES blobs(id),
		type TEXT NOT NULL,
		path TEXT NOT NULL DEFAULT '',
		member_path TEXT NOT NULL DEFAULT '',
		repo_path TEXT NOT NULL DEFAULT '',
		commit_hash TEXT NOT NULL DEFAULT '',
		mtime INTEGER,
		atime INTEGER,
		ctime INTEGER,
		UNIQUE(blob_id, type, path, member_path, repo_path, commit_hash)
	)`

const scansTable = `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY NOT NULL,
		started_at INTEGER NOT NULL,
		finished_at INTEGER,
		files_searched INTEGER NOT NULL DEFAULT 0,
		matches INTEGER NOT NULL DEFAULT 0,
		track_matches INTEGER NOT NULL DEFAULT 0,
		interrupted INTEGER NOT NULL DEFAULT 0
	)`

// Annotations are keyed by finding ID or structural match ID, which are
// stable across scans and merges.
const annotationsTable = `
	CREATE TABLE IF NOT EXISTS annotations (
		kind TEXT NOT NULL,
		target_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT '',
		comment TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (kind, target_id)
	)`

var indexes = []string{
	`CREATE INDEX IF NOT EXISTS idx_provenance_blob_id ON provenance(blob_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_blob_id ON matches(blob_id)`,
	`CREATE INDEX IF NOT EXISTS idx_matches_finding_id ON matches(finding_id)`,
}
