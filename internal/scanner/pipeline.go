// file: internal/scanner/pipeline.go
// version: 2.1.0
// guid: 23794b63-12ca-41f8-bad7-7ddd2143f258

// Package scanner drives identification: it turns filenames, feed titles and
// player window titles into catalog matches.
package scanner

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/jdfalk/anime-organizer/internal/batch"
	"github.com/jdfalk/anime-organizer/internal/catalog"
	"github.com/jdfalk/anime-organizer/internal/database"
	"github.com/jdfalk/anime-organizer/internal/episode"
	"github.com/jdfalk/anime-organizer/internal/library"
	"github.com/jdfalk/anime-organizer/internal/matcher"
	"github.com/jdfalk/anime-organizer/internal/metrics"
	"github.com/jdfalk/anime-organizer/internal/normalize"
	"github.com/jdfalk/anime-organizer/internal/sequel"
)

// DefaultThreshold is the confidence a match needs before it is acted on.
const DefaultThreshold = 0.8

// Options configures a Pipeline. The zero value is usable; see DefaultOptions.
type Options struct {
	Threshold          float64
	VideoExtensions    []string
	Policy             matcher.Policy
	MemoTTL            time.Duration
	FirstCharPrefilter bool
	Rewind             bool
	FixSingleEpisode   bool
	PreDashRetry       bool
	Workers            int
	BatchSizeThreshold uint64
	WindowSuffixes     []string
	// FullScan re-identifies every file, ignoring what earlier scans stored.
	FullScan           bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Threshold:        DefaultThreshold,
		VideoExtensions:  []string{"mkv", "mp4", "avi"},
		FixSingleEpisode: true,
		PreDashRetry:     true,
		Workers:          4,
		WindowSuffixes:   DefaultWindowSuffixes,
	}
}

// History persists what earlier scans learned. database.Store satisfies it.
type History interface {
	GetKnownFile(path string) (*database.KnownFile, error)
	PutKnownFile(file database.KnownFile) error
	DeleteKnownFile(path string) error
	ListKnownFiles() ([]database.KnownFile, error)
	SaveScanRecord(record database.ScanRecord) error
}

// MatchResult is the outcome for one input. AnimeID 0 means unmatched and
// then Confidence is 0 too.
type MatchResult struct {
	PathOrTitle string       `json:"path_or_title"`
	AnimeID     int          `json:"anime_id"`
	Episode     int          `json:"episode"`
	Confidence  float64      `json:"confidence"`
	Title       string       `json:"title"`
	Length      int          `json:"length,omitempty"`
	Tier        episode.Tier `json:"-"`
}

// WorkingRecord is the intermediate state kept for diagnostics.
type WorkingRecord struct {
	Prepared      string
	Normalized    string
	Episode       int
	Length        int
	Tier          episode.Tier
	Retried       bool
	BestPerMetric map[matcher.Metric]matcher.Candidate
}

// Pipeline composes normalization, episode extraction, matching and sequel
// resolution over one catalog.
type Pipeline struct {
	catalog  *catalog.Store
	matcher  *matcher.Matcher
	resolver *sequel.Resolver
	batch    *batch.Detector
	library  *library.Index
	history  History
	opts     Options
}

// New builds a pipeline over the entries resident in store.
func New(store *catalog.Store, opts Options) *Pipeline {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if len(opts.VideoExtensions) == 0 {
		opts.VideoExtensions = DefaultOptions().VideoExtensions
	}
	p := &Pipeline{
		catalog:  store,
		resolver: sequel.New(store, sequel.WithRewind(opts.Rewind)),
		batch:    batch.New(opts.BatchSizeThreshold),
		library:  library.New(),
		opts:     opts,
	}
	p.Rebuild()
	return p
}

// Rebuild re-indexes the matcher after the catalog gained entries or custom
// titles.
func (p *Pipeline) Rebuild() {
	mopts := []matcher.Option{
		matcher.WithPolicy(p.opts.Policy),
		matcher.WithMemoTTL(p.opts.MemoTTL),
		matcher.WithWorkers(p.opts.Workers),
	}
	if p.opts.FirstCharPrefilter {
		mopts = append(mopts, matcher.WithFirstCharPrefilter(p.opts.Threshold))
	}
	p.matcher = matcher.New(p.catalog.All(), mopts...)
	metrics.SetCatalogEntries(p.catalog.Len())
}

// SetHistory enables known-file skipping and scan records.
func (p *Pipeline) SetHistory(h History) {
	p.history = h
}

// Library is the episode index filled by ScanFolders.
func (p *Pipeline) Library() *library.Index {
	return p.library
}

// Threshold is the acceptance threshold in use.
func (p *Pipeline) Threshold() float64 {
	return p.opts.Threshold
}

// Identify runs the full pipeline on one filename or title.
func (p *Pipeline) Identify(ctx context.Context, raw string) (MatchResult, WorkingRecord) {
	rec := prepare(raw)
	m := p.retryBeforeDash(&rec, p.matcher.Match(rec.Normalized))
	p.prefetch(ctx, []int{m.ID})
	return p.finish(raw, &rec, m), rec
}

// identifyAll is Identify over many inputs: matching runs in parallel with
// repeats scored once, and the catalog is prefetched before resolution.
func (p *Pipeline) identifyAll(ctx context.Context, sources, names []string) ([]MatchResult, []WorkingRecord) {
	records := make([]WorkingRecord, len(names))
	queries := make([]string, len(names))
	for i, name := range names {
		records[i] = prepare(name)
		queries[i] = records[i].Normalized
	}

	matches := p.matcher.MatchBatch(queries)
	ids := make([]int, 0, len(matches))
	for i := range matches {
		matches[i] = p.retryBeforeDash(&records[i], matches[i])
		ids = append(ids, matches[i].ID)
	}
	p.prefetch(ctx, ids)

	results := make([]MatchResult, len(names))
	for i := range matches {
		results[i] = p.finish(sources[i], &records[i], matches[i])
	}
	return results, records
}

func prepare(raw string) WorkingRecord {
	prepared := normalize.Prepare(raw)
	ex := episode.Extract(prepared)
	return WorkingRecord{
		Prepared:   prepared,
		Normalized: normalize.Normalize(ex.Remaining),
		Episode:    ex.Episode,
		Length:     ex.Length,
		Tier:       ex.Tier,
	}
}

// retryBeforeDash matches the text before the first " - " when the full
// string falls short, keeping whichever scores higher. Episode subtitles
// after the dash often drag the score down.
func (p *Pipeline) retryBeforeDash(rec *WorkingRecord, m matcher.Match) matcher.Match {
	if !p.opts.PreDashRetry || m.Accepted(p.opts.Threshold) {
		return m
	}
	head, _, found := strings.Cut(rec.Normalized, " - ")
	head = strings.TrimSpace(head)
	if !found || head == "" {
		return m
	}
	retry := p.matcher.Match(head)
	if retry.Confidence > m.Confidence {
		log.Printf("[DEBUG] pre-dash retry improved %q: %.3f -> %.3f", rec.Normalized, m.Confidence, retry.Confidence)
		rec.Normalized = normalize.Key(head)
		rec.Retried = true
		return retry
	}
	return m
}

func (p *Pipeline) prefetch(ctx context.Context, ids []int) {
	var want []int
	for _, id := range ids {
		if id > 0 {
			want = append(want, id)
		}
	}
	if len(want) == 0 {
		return
	}
	if err := p.catalog.Prefetch(ctx, want); err != nil {
		log.Printf("[WARN] catalog prefetch failed (%s), resolving with resident entries: %v", catalog.Kind(err), err)
	}
}

func (p *Pipeline) finish(source string, rec *WorkingRecord, m matcher.Match) MatchResult {
	rec.BestPerMetric = m.BestPerMetric
	res := MatchResult{
		PathOrTitle: source,
		Episode:     rec.Episode,
		Length:      rec.Length,
		Tier:        rec.Tier,
	}
	if m.ID == 0 || m.Confidence <= 0 {
		return res
	}

	res.AnimeID = m.ID
	res.Confidence = m.Confidence
	res.Title = m.Title

	r := p.resolver.Resolve(m.ID, rec.Episode)
	res.AnimeID, res.Episode = r.ID, r.Episode
	if p.opts.FixSingleEpisode {
		res.Episode = sequel.FixSingleEpisode(p.catalog, res.AnimeID, res.Episode)
	}
	if e, ok := p.catalog.Lookup(res.AnimeID); ok {
		if title := e.DisplayTitle(); title != "" {
			res.Title = title
		}
	}
	metrics.ObserveConfidence(res.Confidence)
	return res
}

// withinCount reports whether episode fits the entry's known episode count.
// Unknown counts always fit.
func (p *Pipeline) withinCount(id, ep int) bool {
	e, ok := p.catalog.Lookup(id)
	if !ok {
		return true
	}
	count, known := e.EpisodeCount()
	return !known || ep <= count
}
