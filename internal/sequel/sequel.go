// file: internal/sequel/sequel.go
// version: 1.0.0
// guid: 6831c8f9-bd81-4e25-a50d-71f0d71e50b8

// Package sequel moves an episode number that overflows one season onto the
// season it actually belongs to.
package sequel

import (
	"log"

	"github.com/jdfalk/anime-organizer/internal/catalog"
)

// Lookup reads resident catalog entries. *catalog.Store satisfies it.
type Lookup interface {
	Lookup(id int) (catalog.Entry, bool)
}

// Resolution is the outcome of Resolve.
type Resolution struct {
	ID      int
	Episode int
	Hops    int  // sequel edges followed
	Rewound bool // started from the first prequel
}

// Resolver walks sequel chains. It never fetches; prefetch the chains first.
type Resolver struct {
	catalog Lookup
	rewind  bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithRewind treats an overflowing episode number as counted from the start
// of the franchise: the walk begins at the first serial prequel.
func WithRewind(enabled bool) Option {
	return func(r *Resolver) { r.rewind = enabled }
}

// New creates a Resolver over lookup.
func New(lookup Lookup, opts ...Option) *Resolver {
	r := &Resolver{catalog: lookup}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve maps (id, episode) onto the franchise entry the episode falls in.
// The input is returned unchanged when the entry is unknown, its count is
// unknown, or the episode already fits. An unknown count anywhere on the
// walk also keeps the input. A sequel that is not resident ends the walk at
// the last entry reached.
func (r *Resolver) Resolve(id, episode int) Resolution {
	unchanged := Resolution{ID: id, Episode: episode}

	cur, ok := r.catalog.Lookup(id)
	if !ok {
		return unchanged
	}
	count, known := cur.EpisodeCount()
	if !known || episode <= count {
		return unchanged
	}

	res := unchanged
	visited := map[int]bool{cur.ID: true}

	if r.rewind {
		for {
			prev, ok := r.firstSerial(cur, catalog.RelationPrequel)
			if !ok || visited[prev.ID] {
				break
			}
			visited[prev.ID] = true
			cur = prev
			res.Rewound = true
		}
		res.ID = cur.ID
		visited = map[int]bool{cur.ID: true}
	}

	for {
		count, known := cur.EpisodeCount()
		if !known {
			log.Printf("[DEBUG] sequel: anime %d has no episode count, keeping %d/%d", cur.ID, id, episode)
			return unchanged
		}
		if res.Episode <= count {
			return res
		}
		next, ok := r.firstSerial(cur, catalog.RelationSequel)
		if !ok || visited[next.ID] {
			return res
		}
		visited[next.ID] = true
		res.ID = next.ID
		res.Episode -= count
		res.Hops++
		cur = next
	}
}

// firstSerial returns the first related entry of kind that is resident and
// episodic. A relation whose target is missing cannot be followed.
func (r *Resolver) firstSerial(e catalog.Entry, kind catalog.RelationKind) (catalog.Entry, bool) {
	for _, id := range e.Related(kind) {
		next, ok := r.catalog.Lookup(id)
		if ok && next.Format.Serial() {
			return next, true
		}
	}
	return catalog.Entry{}, false
}

// FixSingleEpisode reports episode 1 for single-episode entries (movies,
// one-shot OVAs), whose filenames often carry unrelated numbers.
func FixSingleEpisode(lookup Lookup, id, episode int) int {
	if e, ok := lookup.Lookup(id); ok {
		if count, known := e.EpisodeCount(); known && count == 1 {
			return 1
		}
	}
	return episode
}
