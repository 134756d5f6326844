// file: internal/database/pebble_store.go
// version: 3.0.0
// guid: 9b0c1d2e-3f4a-5b6c-7d8e-9f0a1b2c3d4e

package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/cockroachdb/pebble/v2"
	"github.com/jdfalk/anime-organizer/internal/catalog"
	"github.com/jdfalk/anime-organizer/internal/library"
)

// PebbleStore implements the Store interface using PebbleDB.
//
// Key schema:
//
//	anime:<id>          -> catalog.Entry (json), id zero padded to 10 digits
//	missing:<id>        -> empty
//	library:<id>        -> map[episode]library.File (json)
//	known:<xxhash>      -> KnownFile (json)
//	scan:<ulid>         -> ScanRecord (json)
type PebbleStore struct {
	db *pebble.DB
}

const (
	prefixAnime   = "anime:"
	prefixMissing = "missing:"
	prefixLibrary = "library:"
	prefixKnown   = "known:"
	prefixScan    = "scan:"
)

// NewPebbleStore opens or creates a PebbleDB database at path.
func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open PebbleDB: %w", err)
	}
	log.Printf("[INFO] PebbleDB opened at %s", path)
	return &PebbleStore{db: db}, nil
}

// Close closes the underlying PebbleDB.
func (p *PebbleStore) Close() error {
	return p.db.Close()
}

func idKey(prefix string, id int) []byte {
	return fmt.Appendf(nil, "%s%010d", prefix, id)
}

// prefixEnd returns the exclusive upper bound for keys starting with prefix.
func prefixEnd(prefix string) []byte {
	end := []byte(prefix)
	end[len(end)-1]++
	return end
}

// scanPrefix calls fn for every key/value under prefix in key order.
func (p *PebbleStore) scanPrefix(prefix string, reverse bool, fn func(key, value []byte) (bool, error)) error {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(prefix),
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	valid := iter.First()
	step := iter.Next
	if reverse {
		valid = iter.Last()
		step = iter.Prev
	}
	for ; valid; valid = step() {
		more, err := fn(iter.Key(), iter.Value())
		if err != nil {
			return err
		}
		if !more {
			break
		}
	}
	return iter.Error()
}

// replacePrefix deletes everything under prefix and writes kvs in one batch.
func (p *PebbleStore) replacePrefix(prefix string, kvs map[string][]byte) error {
	batch := p.db.NewBatch()
	defer batch.Close()
	if err := batch.DeleteRange([]byte(prefix), prefixEnd(prefix), nil); err != nil {
		return fmt.Errorf("failed to clear %s: %w", prefix, err)
	}
	for k, v := range kvs {
		if err := batch.Set([]byte(k), v, nil); err != nil {
			return fmt.Errorf("failed to write %s: %w", k, err)
		}
	}
	return batch.Commit(pebble.Sync)
}

// SaveEntries upserts catalog entries.
func (p *PebbleStore) SaveEntries(entries []catalog.Entry) error {
	batch := p.db.NewBatch()
	defer batch.Close()
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to marshal anime %d: %w", e.ID, err)
		}
		if err := batch.Set(idKey(prefixAnime, e.ID), data, nil); err != nil {
			return fmt.Errorf("failed to write anime %d: %w", e.ID, err)
		}
	}
	return batch.Commit(pebble.Sync)
}

// LoadEntries returns every stored catalog entry ordered by id.
func (p *PebbleStore) LoadEntries() ([]catalog.Entry, error) {
	var entries []catalog.Entry
	err := p.scanPrefix(prefixAnime, false, func(key, value []byte) (bool, error) {
		var e catalog.Entry
		if err := json.Unmarshal(value, &e); err != nil {
			log.Printf("[WARN] skipping corrupt catalog record %s: %v", key, err)
			return true, nil
		}
		entries = append(entries, e)
		return true, nil
	})
	return entries, err
}

// SaveMissingIDs replaces the negative cache.
func (p *PebbleStore) SaveMissingIDs(ids []int) error {
	kvs := make(map[string][]byte, len(ids))
	for _, id := range ids {
		kvs[string(idKey(prefixMissing, id))] = nil
	}
	return p.replacePrefix(prefixMissing, kvs)
}

// LoadMissingIDs returns the negative cache.
func (p *PebbleStore) LoadMissingIDs() ([]int, error) {
	var ids []int
	err := p.scanPrefix(prefixMissing, false, func(key, _ []byte) (bool, error) {
		id, err := strconv.Atoi(string(key[len(prefixMissing):]))
		if err != nil {
			return true, nil
		}
		ids = append(ids, id)
		return true, nil
	})
	return ids, err
}

// SaveLibrary replaces the stored episode index.
func (p *PebbleStore) SaveLibrary(snapshot map[int]map[int]library.File) error {
	kvs := make(map[string][]byte, len(snapshot))
	for id, eps := range snapshot {
		data, err := json.Marshal(eps)
		if err != nil {
			return fmt.Errorf("failed to marshal library for anime %d: %w", id, err)
		}
		kvs[string(idKey(prefixLibrary, id))] = data
	}
	return p.replacePrefix(prefixLibrary, kvs)
}

// LoadLibrary returns the stored episode index.
func (p *PebbleStore) LoadLibrary() (map[int]map[int]library.File, error) {
	out := make(map[int]map[int]library.File)
	err := p.scanPrefix(prefixLibrary, false, func(key, value []byte) (bool, error) {
		id, err := strconv.Atoi(string(key[len(prefixLibrary):]))
		if err != nil {
			return true, nil
		}
		var eps map[int]library.File
		if err := json.Unmarshal(value, &eps); err != nil {
			return false, fmt.Errorf("failed to decode library for anime %d: %w", id, err)
		}
		out[id] = eps
		return true, nil
	})
	return out, err
}

// GetKnownFile returns the record for path or ErrNotFound.
func (p *PebbleStore) GetKnownFile(path string) (*KnownFile, error) {
	val, closer, err := p.db.Get([]byte(prefixKnown + KnownFileKey(path)))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read known file: %w", err)
	}
	defer closer.Close()

	var kf KnownFile
	if err := json.Unmarshal(val, &kf); err != nil {
		return nil, fmt.Errorf("failed to decode known file: %w", err)
	}
	if kf.Path != path {
		// hash collision
		return nil, ErrNotFound
	}
	return &kf, nil
}

// PutKnownFile stores or replaces a known file record.
func (p *PebbleStore) PutKnownFile(file KnownFile) error {
	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to marshal known file: %w", err)
	}
	return p.db.Set([]byte(prefixKnown+KnownFileKey(file.Path)), data, pebble.NoSync)
}

// DeleteKnownFile removes a known file record.
func (p *PebbleStore) DeleteKnownFile(path string) error {
	return p.db.Delete([]byte(prefixKnown+KnownFileKey(path)), pebble.NoSync)
}

// ListKnownFiles returns every known file record.
func (p *PebbleStore) ListKnownFiles() ([]KnownFile, error) {
	var files []KnownFile
	err := p.scanPrefix(prefixKnown, false, func(_, value []byte) (bool, error) {
		var kf KnownFile
		if err := json.Unmarshal(value, &kf); err == nil {
			files = append(files, kf)
		}
		return true, nil
	})
	return files, err
}

// SaveScanRecord stores a scan summary.
func (p *PebbleStore) SaveScanRecord(record ScanRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal scan record: %w", err)
	}
	return p.db.Set([]byte(prefixScan+record.ID), data, pebble.Sync)
}

// ListScanRecords returns the newest scan records first. limit <= 0 returns all.
func (p *PebbleStore) ListScanRecords(limit int) ([]ScanRecord, error) {
	var records []ScanRecord
	err := p.scanPrefix(prefixScan, true, func(_, value []byte) (bool, error) {
		var r ScanRecord
		if err := json.Unmarshal(value, &r); err != nil {
			return true, nil
		}
		records = append(records, r)
		return limit <= 0 || len(records) < limit, nil
	})
	return records, err
}
