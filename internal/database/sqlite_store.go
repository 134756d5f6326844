// file: internal/database/sqlite_store.go
// version: 2.0.0
// guid: 8b9c0d1e-2f3a-4b5c-6d7e-8f9a0b1c2d3e

package database

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jdfalk/anime-organizer/internal/catalog"
	"github.com/jdfalk/anime-organizer/internal/library"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements the Store interface using SQLite3
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	store := &SQLiteStore{db: db}

	// Create tables
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return store, nil
}

// createTables creates all required tables
func (s *SQLiteStore) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS anime (
		id INTEGER PRIMARY KEY,
		data TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS missing_anime (
		id INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS library_files (
		anime_id INTEGER NOT NULL,
		episode INTEGER NOT NULL,
		path TEXT NOT NULL,
		score REAL NOT NULL,
		PRIMARY KEY (anime_id, episode)
	);

	CREATE TABLE IF NOT EXISTS known_files (
		key TEXT PRIMARY KEY,
		path TEXT NOT NULL,
		size INTEGER NOT NULL,
		mod_time INTEGER NOT NULL,
		anime_id INTEGER NOT NULL,
		episode INTEGER NOT NULL,
		confidence REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		started_at TIMESTAMP NOT NULL,
		duration_ns INTEGER NOT NULL,
		files INTEGER NOT NULL,
		matched INTEGER NOT NULL,
		unmatched INTEGER NOT NULL,
		excluded INTEGER NOT NULL,
		skipped INTEGER NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// inTx runs fn inside a transaction.
func (s *SQLiteStore) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SaveEntries upserts catalog entries.
func (s *SQLiteStore) SaveEntries(entries []catalog.Entry) error {
	return s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT INTO anime (id, data) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET data = excluded.data`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, e := range entries {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal anime %d: %w", e.ID, err)
			}
			if _, err := stmt.Exec(e.ID, string(data)); err != nil {
				return fmt.Errorf("failed to write anime %d: %w", e.ID, err)
			}
		}
		return nil
	})
}

// LoadEntries returns every stored catalog entry ordered by id.
func (s *SQLiteStore) LoadEntries() ([]catalog.Entry, error) {
	rows, err := s.db.Query(`SELECT data FROM anime ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []catalog.Entry
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var e catalog.Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveMissingIDs replaces the negative cache.
func (s *SQLiteStore) SaveMissingIDs(ids []int) error {
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM missing_anime`); err != nil {
			return err
		}
		for _, id := range ids {
			if _, err := tx.Exec(`INSERT OR IGNORE INTO missing_anime (id) VALUES (?)`, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// LoadMissingIDs returns the negative cache.
func (s *SQLiteStore) LoadMissingIDs() ([]int, error) {
	rows, err := s.db.Query(`SELECT id FROM missing_anime ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SaveLibrary replaces the stored episode index.
func (s *SQLiteStore) SaveLibrary(snapshot map[int]map[int]library.File) error {
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM library_files`); err != nil {
			return err
		}
		for id, eps := range snapshot {
			for ep, f := range eps {
				if _, err := tx.Exec(`INSERT INTO library_files (anime_id, episode, path, score) VALUES (?, ?, ?, ?)`,
					id, ep, f.Path, f.Score); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// LoadLibrary returns the stored episode index.
func (s *SQLiteStore) LoadLibrary() (map[int]map[int]library.File, error) {
	rows, err := s.db.Query(`SELECT anime_id, episode, path, score FROM library_files`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]map[int]library.File)
	for rows.Next() {
		var id, ep int
		var f library.File
		if err := rows.Scan(&id, &ep, &f.Path, &f.Score); err != nil {
			return nil, err
		}
		if out[id] == nil {
			out[id] = make(map[int]library.File)
		}
		out[id][ep] = f
	}
	return out, rows.Err()
}

// GetKnownFile returns the record for path or ErrNotFound.
func (s *SQLiteStore) GetKnownFile(path string) (*KnownFile, error) {
	var kf KnownFile
	err := s.db.QueryRow(`SELECT path, size, mod_time, anime_id, episode, confidence
		FROM known_files WHERE key = ? AND path = ?`, KnownFileKey(path), path).
		Scan(&kf.Path, &kf.Size, &kf.ModTime, &kf.AnimeID, &kf.Episode, &kf.Confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read known file: %w", err)
	}
	return &kf, nil
}

// PutKnownFile stores or replaces a known file record.
func (s *SQLiteStore) PutKnownFile(file KnownFile) error {
	_, err := s.db.Exec(`INSERT INTO known_files (key, path, size, mod_time, anime_id, episode, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET path = excluded.path, size = excluded.size,
			mod_time = excluded.mod_time, anime_id = excluded.anime_id,
			episode = excluded.episode, confidence = excluded.confidence`,
		KnownFileKey(file.Path), file.Path, file.Size, file.ModTime, file.AnimeID, file.Episode, file.Confidence)
	return err
}

// DeleteKnownFile removes a known file record.
func (s *SQLiteStore) DeleteKnownFile(path string) error {
	_, err := s.db.Exec(`DELETE FROM known_files WHERE key = ?`, KnownFileKey(path))
	return err
}

// ListKnownFiles returns every known file record.
func (s *SQLiteStore) ListKnownFiles() ([]KnownFile, error) {
	rows, err := s.db.Query(`SELECT path, size, mod_time, anime_id, episode, confidence FROM known_files ORDER BY path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []KnownFile
	for rows.Next() {
		var kf KnownFile
		if err := rows.Scan(&kf.Path, &kf.Size, &kf.ModTime, &kf.AnimeID, &kf.Episode, &kf.Confidence); err != nil {
			return nil, err
		}
		files = append(files, kf)
	}
	return files, rows.Err()
}

// SaveScanRecord stores a scan summary.
func (s *SQLiteStore) SaveScanRecord(r ScanRecord) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO scans
		(id, started_at, duration_ns, files, matched, unmatched, excluded, skipped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.StartedAt.UTC(), int64(r.Duration), r.Files, r.Matched, r.Unmatched, r.Excluded, r.Skipped)
	return err
}

// ListScanRecords returns the newest scan records first. limit <= 0 returns all.
func (s *SQLiteStore) ListScanRecords(limit int) ([]ScanRecord, error) {
	query := `SELECT id, started_at, duration_ns, files, matched, unmatched, excluded, skipped
		FROM scans ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ScanRecord
	for rows.Next() {
		var r ScanRecord
		var durationNS int64
		var startedAt time.Time
		if err := rows.Scan(&r.ID, &startedAt, &durationNS, &r.Files, &r.Matched, &r.Unmatched, &r.Excluded, &r.Skipped); err != nil {
			return nil, err
		}
		r.StartedAt = startedAt
		r.Duration = time.Duration(durationNS)
		records = append(records, r)
	}
	return records, rows.Err()
}
