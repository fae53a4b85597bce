// Package metastore persists the note-identity records that keep the
// external-source → vault mapping stable across renames and re-syncs.
package metastore

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/inksync/internal/apperr"
	"github.com/starford/inksync/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS records (
	path             TEXT PRIMARY KEY,
	note_id          TEXT NOT NULL,
	external_file_id TEXT NOT NULL DEFAULT '',
	archive_checksum TEXT NOT NULL DEFAULT '',
	creation_time    DATETIME,
	last_modified    DATETIME,
	pages            TEXT NOT NULL DEFAULT '[]'
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_records_note_id ON records(note_id);
`

// Store wraps a sql.DB with record operations. The unique index on
// note_id enforces the one-record-per-note invariant; the primary key on
// path enforces one-record-per-path.
type Store struct {
	conn *sql.DB
}

// Open opens (or creates) the SQLite database and applies the schema.
func Open(dsn string) (*Store, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("metastore: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("metastore: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("metastore: apply schema: %w", err)
	}
	return &Store{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Set inserts or replaces the record at rec.NotePath.
func (s *Store) Set(rec *models.NoteRecord) error {
	pagesJSON, _ := json.Marshal(rec.Pages)
	_, err := s.conn.Exec(`
		INSERT INTO records (path, note_id, external_file_id, archive_checksum, creation_time, last_modified, pages)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			note_id          = excluded.note_id,
			external_file_id = excluded.external_file_id,
			archive_checksum = excluded.archive_checksum,
			creation_time    = excluded.creation_time,
			last_modified    = excluded.last_modified,
			pages            = excluded.pages
	`, rec.NotePath, rec.NoteID, rec.ExternalFileID, rec.ArchiveChecksum,
		rec.CreationTime, rec.LastModified, string(pagesJSON))
	if err != nil {
		return fmt.Errorf("metastore: set %s: %w", rec.NotePath, err)
	}
	return nil
}

// Delete removes the record at path. Deleting a missing path is a no-op.
func (s *Store) Delete(path string) error {
	if _, err := s.conn.Exec(`DELETE FROM records WHERE path = ?`, path); err != nil {
		return fmt.Errorf("metastore: delete %s: %w", path, err)
	}
	return nil
}

// Get returns the record at path, or apperr.ErrNotFound.
func (s *Store) Get(path string) (*models.NoteRecord, error) {
	row := s.conn.QueryRow(`
		SELECT path, note_id, external_file_id, archive_checksum, creation_time, last_modified, pages
		FROM records WHERE path = ?`, path)
	return scanRecord(row)
}

// FindByNoteID returns the record carrying the stable note identifier,
// or apperr.ErrNotFound. This is the rename detector's entry point.
func (s *Store) FindByNoteID(noteID string) (*models.NoteRecord, error) {
	row := s.conn.QueryRow(`
		SELECT path, note_id, external_file_id, archive_checksum, creation_time, last_modified, pages
		FROM records WHERE note_id = ?`, noteID)
	return scanRecord(row)
}

// Rename atomically moves a record from oldPath to rec.NotePath: the
// delete and insert land in one transaction so a crash never leaves two
// records (or none) for the same note.
func (s *Store) Rename(oldPath string, rec *models.NoteRecord) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("metastore: begin rename tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	if _, err := tx.Exec(`DELETE FROM records WHERE path = ?`, oldPath); err != nil {
		return fmt.Errorf("metastore: rename delete %s: %w", oldPath, err)
	}

	pagesJSON, _ := json.Marshal(rec.Pages)
	_, err = tx.Exec(`
		INSERT INTO records (path, note_id, external_file_id, archive_checksum, creation_time, last_modified, pages)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.NotePath, rec.NoteID, rec.ExternalFileID, rec.ArchiveChecksum,
		rec.CreationTime, rec.LastModified, string(pagesJSON))
	if err != nil {
		return fmt.Errorf("metastore: rename insert %s: %w", rec.NotePath, err)
	}

	return tx.Commit()
}

// All returns every record, ordered by path.
func (s *Store) All() ([]*models.NoteRecord, error) {
	rows, err := s.conn.Query(`
		SELECT path, note_id, external_file_id, archive_checksum, creation_time, last_modified, pages
		FROM records ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("metastore: all: %w", err)
	}
	defer rows.Close()

	var out []*models.NoteRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.NoteRecord, error) {
	var rec models.NoteRecord
	var pagesJSON string
	var created, modified sql.NullTime
	err := row.Scan(&rec.NotePath, &rec.NoteID, &rec.ExternalFileID,
		&rec.ArchiveChecksum, &created, &modified, &pagesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("metastore: scan: %w", err)
	}
	if created.Valid {
		rec.CreationTime = created.Time
	}
	if modified.Valid {
		rec.LastModified = modified.Time
	}
	if err := json.Unmarshal([]byte(pagesJSON), &rec.Pages); err != nil {
		return nil, fmt.Errorf("metastore: decode pages for %s: %w", rec.NotePath, err)
	}
	return &rec, nil
}
