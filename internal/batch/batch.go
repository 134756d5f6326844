// file: internal/batch/batch.go
// version: 1.1.0
// guid: 5fb3b3db-e1da-4631-9008-bf51b23927e0

// Package batch tells single-episode releases apart from multi-episode ones.
package batch

import (
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
)

// DefaultSizeThreshold is the size above which a release counts as a batch.
const DefaultSizeThreshold uint64 = 3 << 30

// Reason names the rule that decided.
type Reason string

const (
	ReasonKeyword       Reason = "keyword"
	ReasonRange         Reason = "episode_range"
	ReasonSingleEpisode Reason = "single_episode"
	ReasonSeason        Reason = "season_marker"
	ReasonNoEpisode     Reason = "no_episode"
	ReasonSize          Reason = "size"
	ReasonDefault       Reason = "default"
)

// Decision is the classification of one release title.
type Decision struct {
	Batch  bool
	Reason Reason
}

var (
	keywordPattern       = regexp.MustCompile(`(?i)batch`)
	datePattern          = regexp.MustCompile(`\b\d{4}[-./]\d{1,2}[-./]\d{1,2}\b`)
	rangePattern         = regexp.MustCompile(`\d{1,4}\s?~\s?\d{1,4}|\b\d{1,3}-\d{1,3}\b`)
	singleEpisodePattern = regexp.MustCompile(` - \d+`)
	seasonPattern        = regexp.MustCompile(`(?i)\b(season\s?\d+|s\s?\d{1,2})\b`)
	seasonEpisodePattern = regexp.MustCompile(`(?i)\bs\d+\s?e\d+`)
)

// Detector classifies feed titles.
type Detector struct {
	sizeThreshold uint64
}

// New creates a Detector. A zero threshold uses DefaultSizeThreshold.
func New(sizeThreshold uint64) *Detector {
	if sizeThreshold == 0 {
		sizeThreshold = DefaultSizeThreshold
	}
	return &Detector{sizeThreshold: sizeThreshold}
}

// Detect runs the rules in order on the raw, unnormalized title. found
// reports whether an episode number was extracted from the title (episode 0
// counts) and size is the human-readable size from the feed ("1.2 GiB"); an
// empty or unparseable size skips the size rule.
func (d *Detector) Detect(title string, found bool, size string) Decision {
	switch {
	case keywordPattern.MatchString(title):
		return Decision{true, ReasonKeyword}
	case isRange(title):
		return Decision{true, ReasonRange}
	case singleEpisodePattern.MatchString(title):
		return Decision{false, ReasonSingleEpisode}
	case seasonPattern.MatchString(title) && !seasonEpisodePattern.MatchString(title):
		return Decision{true, ReasonSeason}
	case !found:
		return Decision{true, ReasonNoEpisode}
	}
	if n, ok := ParseSize(size); ok && n > d.sizeThreshold {
		return Decision{true, ReasonSize}
	}
	return Decision{false, ReasonDefault}
}

// Detect classifies with the default size threshold.
func Detect(title string, found bool, size string) Decision {
	return New(0).Detect(title, found, size)
}

// isRange reports whether title holds an episode span. Dates such as
// 2023-10-01 are removed first and dash spans are limited to three digits a
// side so release years are not read as episodes.
func isRange(title string) bool {
	return rangePattern.MatchString(datePattern.ReplaceAllString(title, " "))
}

// ParseSize reads sizes such as "1.2 GiB", "700 MB" or "123456".
func ParseSize(size string) (uint64, bool) {
	size = strings.TrimSpace(size)
	if size == "" {
		return 0, false
	}
	n, err := humanize.ParseBytes(size)
	if err != nil {
		return 0, false
	}
	return n, true
}
