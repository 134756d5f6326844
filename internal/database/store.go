// file: internal/database/store.go
// version: 3.0.0
// guid: 8a9b0c1d-2e3f-4a5b-6c7d-8e9f0a1b2c3d

package database

import (
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jdfalk/anime-organizer/internal/catalog"
	"github.com/jdfalk/anime-organizer/internal/library"
	"github.com/oklog/ulid/v2"
)

// ErrNotFound is returned for absent keys.
var ErrNotFound = errors.New("database: not found")

// Store defines the persistence operations of the organizer.
// This abstraction allows us to support both PebbleDB (default) and SQLite3 (opt-in)
type Store interface {
	// Lifecycle
	Close() error

	// Catalog cache (implements catalog.Persister)
	SaveEntries(entries []catalog.Entry) error
	LoadEntries() ([]catalog.Entry, error)
	SaveMissingIDs(ids []int) error
	LoadMissingIDs() ([]int, error)

	// Library episode index, replaced wholesale on save
	SaveLibrary(snapshot map[int]map[int]library.File) error
	LoadLibrary() (map[int]map[int]library.File, error)

	// Files already identified, keyed by KnownFileKey(path)
	GetKnownFile(path string) (*KnownFile, error)
	PutKnownFile(file KnownFile) error
	DeleteKnownFile(path string) error
	ListKnownFiles() ([]KnownFile, error)

	// Scan history
	SaveScanRecord(record ScanRecord) error
	ListScanRecords(limit int) ([]ScanRecord, error)
}

var _ catalog.Persister = Store(nil)

// KnownFile is a file identified by an earlier scan. It is considered
// unchanged while its size and modification time stay the same.
type KnownFile struct {
	Path       string  `json:"path"`
	Size       int64   `json:"size"`
	ModTime    int64   `json:"mod_time"`
	AnimeID    int     `json:"anime_id"`
	Episode    int     `json:"episode"`
	Confidence float64 `json:"confidence"`
}

// Unchanged reports whether the file on disk still matches the record.
func (k KnownFile) Unchanged(size int64, modTime time.Time) bool {
	return k.Size == size && k.ModTime == modTime.UnixNano()
}

// ScanRecord summarizes one folder scan.
type ScanRecord struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Files     int           `json:"files"`
	Matched   int           `json:"matched"`
	Unmatched int           `json:"unmatched"`
	Excluded  int           `json:"excluded"`
	Skipped   int           `json:"skipped"`
}

// KnownFileKey hashes a path into the key used for known files.
func KnownFileKey(path string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(path))
}

// NewScanID returns a time-ordered ULID string for a scan record.
func NewScanID(t time.Time) string {
	return ulid.MustNew(ulid.Timestamp(t), ulid.Monotonic(rand.Reader, 0)).String()
}

// Open opens the store selected by dbType.
func Open(dbType, path string, enableSQLite bool) (Store, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		if !enableSQLite {
			return nil, fmt.Errorf("SQLite3 is not enabled. To use SQLite3, you must explicitly enable it with --enable-sqlite3-i-know-the-risks or set 'enable_sqlite3_i_know_the_risks: true' in your config file. PebbleDB is the recommended database")
		}
		store, err := NewSQLiteStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite store: %w", err)
		}
		return store, nil
	case "pebble", "":
		// PebbleDB is the default
		store, err := NewPebbleStore(path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize PebbleDB store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: pebble, sqlite)", dbType)
	}
}
