// file: internal/library/library.go
// version: 1.0.0
// guid: cf433ddb-def3-4f8b-8eea-ebbd91c74f7f

// Package library tracks which episodes of which anime exist on disk.
package library

import (
	"sort"
	"sync"
)

// File is the best file found for one episode.
type File struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// Index maps anime id -> episode -> file. It is safe for concurrent use.
type Index struct {
	mu    sync.RWMutex
	items map[int]map[int]File
}

// New creates an empty index.
func New() *Index {
	return &Index{items: make(map[int]map[int]File)}
}

// Add records a file for an episode. An existing file for the same episode is
// replaced only by a higher-scoring one. It reports whether the index changed.
func (x *Index) Add(animeID, episode int, path string, score float64) bool {
	if animeID <= 0 {
		return false
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	eps, ok := x.items[animeID]
	if !ok {
		eps = make(map[int]File)
		x.items[animeID] = eps
	}
	if cur, ok := eps[episode]; ok && cur.Score >= score {
		return false
	}
	eps[episode] = File{Path: path, Score: score}
	return true
}

// File returns the file stored for an episode.
func (x *Index) File(animeID, episode int) (File, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	f, ok := x.items[animeID][episode]
	return f, ok
}

// Episodes returns the sorted episode numbers on disk for an anime.
func (x *Index) Episodes(animeID int) []int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	eps := make([]int, 0, len(x.items[animeID]))
	for ep := range x.items[animeID] {
		eps = append(eps, ep)
	}
	sort.Ints(eps)
	return eps
}

// AnimeIDs returns every anime with at least one episode, sorted.
func (x *Index) AnimeIDs() []int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	ids := make([]int, 0, len(x.items))
	for id := range x.items {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Paths returns every stored path.
func (x *Index) Paths() []string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	var paths []string
	for _, eps := range x.items {
		for _, f := range eps {
			paths = append(paths, f.Path)
		}
	}
	sort.Strings(paths)
	return paths
}

// RemoveMissing drops files for which exists returns false and returns how
// many were removed. Anime left without episodes are dropped too.
func (x *Index) RemoveMissing(exists func(path string) bool) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	removed := 0
	for id, eps := range x.items {
		for ep, f := range eps {
			if !exists(f.Path) {
				delete(eps, ep)
				removed++
			}
		}
		if len(eps) == 0 {
			delete(x.items, id)
		}
	}
	return removed
}

// Snapshot copies the index for persistence.
func (x *Index) Snapshot() map[int]map[int]File {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make(map[int]map[int]File, len(x.items))
	for id, eps := range x.items {
		cp := make(map[int]File, len(eps))
		for ep, f := range eps {
			cp[ep] = f
		}
		out[id] = cp
	}
	return out
}

// Restore replaces the index contents with a snapshot.
func (x *Index) Restore(snapshot map[int]map[int]File) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.items = make(map[int]map[int]File, len(snapshot))
	for id, eps := range snapshot {
		cp := make(map[int]File, len(eps))
		for ep, f := range eps {
			cp[ep] = f
		}
		x.items[id] = cp
	}
}
