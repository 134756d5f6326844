// file: internal/matcher/matcher.go
// version: 2.0.0
// guid: 1f2a3b4c-5d6e-7f8a-9b0c-1d2e3f4a5b6c

// Package matcher scores a normalized release title against catalog titles.
package matcher

import (
	"sort"
	"time"
	"unicode/utf8"

	"github.com/jdfalk/anime-organizer/internal/cache"
	"github.com/jdfalk/anime-organizer/internal/catalog"
	"github.com/jdfalk/anime-organizer/internal/normalize"
	"github.com/sourcegraph/conc/iter"
)

// Policy decides which catalog id a set of per-metric winners maps to.
type Policy int

const (
	// PolicyBestMetric returns the winner of the single highest metric
	// score; the metrics need not agree on the id.
	PolicyBestMetric Policy = iota
	// PolicyConsensus returns the entry whose own titles have the highest
	// mean score across the four metrics.
	PolicyConsensus
)

// ParsePolicy maps a config value onto a Policy.
func ParsePolicy(s string) (Policy, bool) {
	switch s {
	case "", "best_metric":
		return PolicyBestMetric, true
	case "consensus":
		return PolicyConsensus, true
	}
	return PolicyBestMetric, false
}

func (p Policy) String() string {
	if p == PolicyConsensus {
		return "consensus"
	}
	return "best_metric"
}

// Candidate is the best title one metric found.
type Candidate struct {
	ID    int
	Title string
	Score float64
}

// Match is the matcher's answer for one query. ID 0 means no match and then
// Confidence is 0 as well.
type Match struct {
	ID            int
	Title         string
	Confidence    float64
	BestPerMetric map[Metric]Candidate
}

// Accepted applies a caller-chosen threshold.
func (m Match) Accepted(threshold float64) bool {
	return m.ID != 0 && m.Confidence >= threshold
}

type indexedTitle struct {
	id    int
	title string
	key   string
	first rune
}

// Matcher holds a snapshot of catalog titles. It is safe for concurrent use.
type Matcher struct {
	titles    []indexedTitle
	policy    Policy
	memo      *cache.Cache[Match]
	prefilter float64
	workers   int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithPolicy selects how the returned id is chosen.
func WithPolicy(p Policy) Option {
	return func(m *Matcher) { m.policy = p }
}

// WithMemoTTL sets how long results are memoized per normalized string.
// Zero keeps them for the life of the matcher.
func WithMemoTTL(ttl time.Duration) Option {
	return func(m *Matcher) { m.memo = cache.New[Match](ttl) }
}

// WithFirstCharPrefilter enables a cheap first pass over titles that share
// the query's first letter. Its result is kept when it reaches threshold.
func WithFirstCharPrefilter(threshold float64) Option {
	return func(m *Matcher) { m.prefilter = threshold }
}

// WithWorkers bounds MatchBatch parallelism.
func WithWorkers(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.workers = n
		}
	}
}

// New indexes every title of every entry. Entries are walked in id order so
// ties always resolve the same way.
func New(entries []catalog.Entry, opts ...Option) *Matcher {
	m := &Matcher{
		memo:    cache.New[Match](0),
		workers: 4,
	}
	for _, o := range opts {
		o(m)
	}

	sorted := append([]catalog.Entry(nil), entries...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	for _, e := range sorted {
		if e.ID <= 0 {
			continue
		}
		for _, t := range e.AllTitles() {
			key := normalize.Key(t)
			if key == "" {
				continue
			}
			first, _ := utf8.DecodeRuneInString(key)
			m.titles = append(m.titles, indexedTitle{id: e.ID, title: t, key: key, first: first})
		}
	}
	return m
}

// Len is the number of indexed titles.
func (m *Matcher) Len() int {
	return len(m.titles)
}

// Match scores query against the catalog. The query should already be
// normalized; it is lower-cased and folded here as well. No threshold is
// applied.
func (m *Matcher) Match(query string) Match {
	return m.matchKey(normalize.Key(query))
}

func (m *Matcher) matchKey(key string) Match {
	if key == "" || len(m.titles) == 0 {
		return Match{}
	}
	return m.memo.GetOrCompute(key, func() Match { return m.compute(key) })
}

// MatchBatch matches many queries. Queries are grouped by normalized string
// so repeats are scored once, and distinct strings are scored in parallel.
// Results line up with queries.
func (m *Matcher) MatchBatch(queries []string) []Match {
	keys := make([]string, len(queries))
	order := make([]int, len(queries))
	for i, q := range queries {
		keys[i] = normalize.Key(q)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return keys[order[a]] < keys[order[b]] })

	var unique []string
	for i, idx := range order {
		if i > 0 && keys[idx] == keys[order[i-1]] {
			continue
		}
		unique = append(unique, keys[idx])
	}

	mapper := iter.Mapper[string, Match]{MaxGoroutines: m.workers}
	scored := mapper.Map(unique, func(k *string) Match { return m.matchKey(*k) })

	byKey := make(map[string]Match, len(unique))
	for i, k := range unique {
		byKey[k] = scored[i]
	}
	out := make([]Match, len(queries))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out
}

func (m *Matcher) compute(key string) Match {
	if m.prefilter > 0 {
		first, _ := utf8.DecodeRuneInString(key)
		var subset []indexedTitle
		for _, t := range m.titles {
			if t.first == first {
				subset = append(subset, t)
			}
		}
		if len(subset) > 0 && len(subset) < len(m.titles) {
			if res := m.score(key, subset); res.Confidence >= m.prefilter {
				return res
			}
		}
	}
	return m.score(key, m.titles)
}

func (m *Matcher) score(key string, titles []indexedTitle) Match {
	var best [numMetrics]Candidate
	perEntry := make(map[int]*[numMetrics]float64)
	var entryOrder []int

	for _, t := range titles {
		scores, ok := perEntry[t.id]
		if !ok {
			scores = new([numMetrics]float64)
			perEntry[t.id] = scores
			entryOrder = append(entryOrder, t.id)
		}
		for _, metric := range Metrics {
			s := metric.Similarity(key, t.key)
			if s > best[metric].Score {
				best[metric] = Candidate{ID: t.id, Title: t.title, Score: s}
			}
			if s > scores[metric] {
				scores[metric] = s
			}
		}
	}

	res := Match{BestPerMetric: make(map[Metric]Candidate, numMetrics)}
	var sum float64
	for _, metric := range Metrics {
		res.BestPerMetric[metric] = best[metric]
		sum += best[metric].Score
	}

	switch m.policy {
	case PolicyConsensus:
		bestMean := 0.0
		for _, id := range entryOrder {
			scores := perEntry[id]
			var total float64
			for _, s := range scores {
				total += s
			}
			if mean := total / float64(numMetrics); mean > bestMean {
				bestMean = mean
				res.ID = id
			}
		}
		res.Confidence = clamp(bestMean)
		res.Title = m.bestTitleFor(res.ID, best)
	default:
		winner := Metrics[0]
		for _, metric := range Metrics[1:] {
			if best[metric].Score > best[winner].Score {
				winner = metric
			}
		}
		res.ID = best[winner].ID
		res.Title = best[winner].Title
		res.Confidence = clamp(sum / float64(numMetrics))
	}

	if res.ID == 0 || res.Confidence == 0 {
		return Match{BestPerMetric: res.BestPerMetric}
	}
	return res
}

// bestTitleFor picks the title reported for a consensus winner: the first
// per-metric winner belonging to that id, else its first indexed title.
func (m *Matcher) bestTitleFor(id int, best [numMetrics]Candidate) string {
	for _, c := range best {
		if c.ID == id {
			return c.Title
		}
	}
	for _, t := range m.titles {
		if t.id == id {
			return t.title
		}
	}
	return ""
}
