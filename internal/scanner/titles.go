// file: internal/scanner/titles.go
// version: 1.1.0
// guid: f22e82d2-1601-444e-a512-b3311a5662d2

package scanner

import (
	"context"
	"strings"

	"github.com/jdfalk/anime-organizer/internal/batch"
	"github.com/jdfalk/anime-organizer/internal/episode"
	"github.com/jdfalk/anime-organizer/internal/feed"
	"github.com/jdfalk/anime-organizer/internal/metrics"
	"github.com/jdfalk/anime-organizer/internal/normalize"
)

// DefaultWindowSuffixes are the player names appended to window titles.
var DefaultWindowSuffixes = []string{
	" - VLC media player",
	" - mpv",
	" - MPC-HC",
	" - MPC-BE",
	" - Media Player Classic",
	" - PotPlayer",
	" - IINA",
	" - SMPlayer",
}

// FeedResult is the identification of one feed item.
type FeedResult struct {
	MatchResult
	Batch      batch.Decision `json:"batch"`
	Resolution int            `json:"resolution,omitempty"`
	SubGroup   string         `json:"sub_group,omitempty"`
	Size       string         `json:"size,omitempty"`
	Link       string         `json:"link,omitempty"`
}

// IdentifyFeed identifies release titles and classifies each as a batch or
// a single episode. Results line up with items.
func (p *Pipeline) IdentifyFeed(ctx context.Context, items []feed.Item) []FeedResult {
	titles := make([]string, len(items))
	for i, it := range items {
		titles[i] = it.Title
	}
	results, records := p.identifyAll(ctx, titles, titles)

	out := make([]FeedResult, len(items))
	for i, it := range items {
		decision := p.batch.Detect(it.Title, records[i].Tier != episode.TierNone, it.Size)
		metrics.IncBatchDecision(decision.Batch)
		out[i] = FeedResult{
			MatchResult: results[i],
			Batch:       decision,
			Resolution:  normalize.ExtractResolution(it.Title),
			SubGroup:    normalize.ExtractSubGroup(it.Title),
			Size:        it.Size,
			Link:        it.Link,
		}
	}
	return out
}

// IdentifyWindowTitles identifies what a media player is showing. Player
// suffixes are stripped first and blank titles are dropped.
func (p *Pipeline) IdentifyWindowTitles(ctx context.Context, titles []string) []MatchResult {
	var sources, names []string
	for _, t := range titles {
		name := p.stripWindowSuffix(strings.TrimSpace(t))
		if name == "" {
			continue
		}
		sources = append(sources, t)
		names = append(names, name)
	}
	results, _ := p.identifyAll(ctx, sources, names)
	return results
}

func (p *Pipeline) stripWindowSuffix(title string) string {
	suffixes := p.opts.WindowSuffixes
	if len(suffixes) == 0 {
		suffixes = DefaultWindowSuffixes
	}
	for _, s := range suffixes {
		n := len(title) - len(s)
		if n >= 0 && strings.EqualFold(title[n:], s) {
			return strings.TrimSpace(title[:n])
		}
	}
	return title
}
