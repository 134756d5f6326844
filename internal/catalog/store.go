// file: internal/catalog/store.go
// version: 1.0.0
// guid: 1c2e3ca9-46f1-49d2-b416-edcc10bb792a

package catalog

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"

	"github.com/jdfalk/anime-organizer/internal/metrics"
)

// Fetcher retrieves entries from the remote catalog. Ids missing from the
// returned map are confirmed absent upstream.
type Fetcher interface {
	FetchMany(ctx context.Context, ids []int) (map[int]Entry, error)
}

// Persister saves and restores the cache between runs.
type Persister interface {
	SaveEntries(entries []Entry) error
	LoadEntries() ([]Entry, error)
	SaveMissingIDs(ids []int) error
	LoadMissingIDs() ([]int, error)
}

// Store is the process catalog cache. It is created empty, filled from a
// Persister with Load, refreshed through its Fetcher on demand and written
// back with Flush before shutdown. A single lock guards all state; matching
// only reads it.
type Store struct {
	mu      sync.RWMutex
	entries map[int]Entry
	missing map[int]struct{}
	custom  map[int][]string
	fetcher Fetcher
}

// NewStore creates an empty store. fetcher may be nil for offline use, in
// which case unknown ids are simply unresolved.
func NewStore(fetcher Fetcher) *Store {
	return &Store{
		entries: make(map[int]Entry),
		missing: make(map[int]struct{}),
		custom:  make(map[int][]string),
		fetcher: fetcher,
	}
}

// Put adds or replaces entries.
func (s *Store) Put(entries ...Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		if len(e.Custom) > 0 {
			s.custom[e.ID] = append([]string(nil), e.Custom...)
		}
		e.Custom = nil
		s.entries[e.ID] = e
		delete(s.missing, e.ID)
	}
	metrics.SetCatalogEntries(len(s.entries))
}

// Lookup returns a resident entry without touching the network.
func (s *Store) Lookup(id int) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return s.withCustom(e), true
}

// IsMissing reports whether id is in the negative cache.
func (s *Store) IsMissing(id int) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.missing[id]
	return ok
}

// MarkMissing records ids confirmed absent upstream.
func (s *Store) MarkMissing(ids ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if _, ok := s.entries[id]; !ok {
			s.missing[id] = struct{}{}
		}
	}
}

// Get returns one entry, fetching it when it is not resident. Ids in the
// negative cache fail fast with ErrNotFound.
func (s *Store) Get(ctx context.Context, id int) (Entry, error) {
	found, err := s.GetMany(ctx, []int{id})
	if e, ok := found[id]; ok {
		return e, nil
	}
	if err != nil {
		return Entry{}, err
	}
	return Entry{}, notFound(id)
}

// GetMany returns every requested entry it can resolve. Resident entries are
// served from memory, negatively cached ids are skipped, and the rest go to
// the fetcher in one call. The fetch happens outside the lock.
func (s *Store) GetMany(ctx context.Context, ids []int) (map[int]Entry, error) {
	found := make(map[int]Entry, len(ids))
	var unresolved []int

	s.mu.RLock()
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if id <= 0 || seen[id] {
			continue
		}
		seen[id] = true
		if e, ok := s.entries[id]; ok {
			found[id] = s.withCustom(e)
			continue
		}
		if _, ok := s.missing[id]; ok {
			continue
		}
		unresolved = append(unresolved, id)
	}
	s.mu.RUnlock()

	if len(unresolved) == 0 || s.fetcher == nil {
		return found, nil
	}

	fetched, err := s.fetcher.FetchMany(ctx, unresolved)
	if err != nil {
		metrics.IncCatalogRequest(Kind(err).String())
		return found, fmt.Errorf("failed to fetch %d catalog entries: %w", len(unresolved), err)
	}
	metrics.IncCatalogRequest("ok")

	var absent []int
	batch := make([]Entry, 0, len(fetched))
	for _, id := range unresolved {
		e, ok := fetched[id]
		if !ok {
			absent = append(absent, id)
			continue
		}
		batch = append(batch, e)
	}
	s.Put(batch...)
	if len(absent) > 0 {
		log.Printf("[INFO] catalog: %d ids not found upstream, caching as missing", len(absent))
		s.MarkMissing(absent...)
	}
	for _, e := range batch {
		found[e.ID], _ = s.Lookup(e.ID)
	}
	return found, nil
}

// Prefetch resolves ids together with their whole prequel/sequel chains so
// that scoring and sequel resolution never wait on the network.
func (s *Store) Prefetch(ctx context.Context, ids []int) error {
	visited := make(map[int]bool)
	frontier := ids
	for len(frontier) > 0 {
		for _, id := range frontier {
			visited[id] = true
		}
		found, err := s.GetMany(ctx, frontier)
		if err != nil {
			return err
		}
		var next []int
		for _, e := range found {
			for _, r := range e.Relations {
				if r.Kind != RelationSequel && r.Kind != RelationPrequel {
					continue
				}
				if !visited[r.ID] {
					visited[r.ID] = true
					next = append(next, r.ID)
				}
			}
		}
		frontier = next
	}
	return nil
}

// All returns resident entries ordered by id.
func (s *Store) All() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, s.withCustom(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len is the number of resident entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// SetCustomTitles assigns user-defined titles to an id. They take part in
// matching like any catalog title.
func (s *Store) SetCustomTitles(id int, titles []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(titles) == 0 {
		delete(s.custom, id)
		return
	}
	s.custom[id] = append([]string(nil), titles...)
}

// Load fills the store from persisted state.
func (s *Store) Load(p Persister) error {
	entries, err := p.LoadEntries()
	if err != nil {
		return fmt.Errorf("failed to load catalog entries: %w", err)
	}
	missing, err := p.LoadMissingIDs()
	if err != nil {
		return fmt.Errorf("failed to load missing ids: %w", err)
	}
	s.Put(entries...)
	s.MarkMissing(missing...)
	log.Printf("[INFO] catalog: loaded %d entries, %d missing ids", len(entries), len(missing))
	return nil
}

// Flush writes the store back to persisted state.
func (s *Store) Flush(p Persister) error {
	entries := s.All()
	s.mu.RLock()
	missing := make([]int, 0, len(s.missing))
	for id := range s.missing {
		missing = append(missing, id)
	}
	s.mu.RUnlock()
	sort.Ints(missing)

	if err := p.SaveEntries(entries); err != nil {
		return fmt.Errorf("failed to save catalog entries: %w", err)
	}
	if err := p.SaveMissingIDs(missing); err != nil {
		return fmt.Errorf("failed to save missing ids: %w", err)
	}
	return nil
}

// withCustom must be called with the lock held.
func (s *Store) withCustom(e Entry) Entry {
	if c, ok := s.custom[e.ID]; ok {
		e.Custom = append([]string(nil), c...)
	}
	return e
}
