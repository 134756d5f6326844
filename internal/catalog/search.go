// file: internal/catalog/search.go
// version: 1.0.0
// guid: 3f550a3b-9381-4a56-a405-d0262a83efab

package catalog

import (
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SearchResult is one hit of Search.
type SearchResult struct {
	Entry    Entry
	Title    string // the title that matched
	Distance int    // lower is better
}

// Search finds resident entries whose titles contain the query characters in
// order (case and diacritic insensitive), best first. A limit <= 0 returns
// every hit.
func (s *Store) Search(query string, limit int) []SearchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	entries := s.All()
	var targets []string
	var owners []int
	for i, e := range entries {
		for _, t := range e.AllTitles() {
			targets = append(targets, t)
			owners = append(owners, i)
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(query, targets)
	sort.Stable(ranks)

	seen := make(map[int]bool)
	var results []SearchResult
	for _, r := range ranks {
		e := entries[owners[r.OriginalIndex]]
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		results = append(results, SearchResult{Entry: e, Title: r.Target, Distance: r.Distance})
		if limit > 0 && len(results) == limit {
			break
		}
	}
	return results
}
