// file: internal/episode/episode.go
// version: 1.0.0
// guid: 66e88bd3-f4fe-42fb-a01a-5cc56e0a8e7c

// Package episode pulls an episode number out of a release title.
package episode

import (
	"regexp"
	"strconv"
	"strings"
)

// Tier identifies which pattern produced an episode number.
type Tier int

const (
	TierNone Tier = iota
	TierRange
	TierDash
	TierDashEpisode
	TierSeasonEpisode
	TierEpKeyword
	TierFallback
)

func (t Tier) String() string {
	switch t {
	case TierRange:
		return "range"
	case TierDash:
		return "dash"
	case TierDashEpisode:
		return "dash-episode"
	case TierSeasonEpisode:
		return "season-episode"
	case TierEpKeyword:
		return "ep-keyword"
	case TierFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Result is the outcome of Extract. Episode 0 with TierNone means nothing
// was found and Remaining equals the input.
type Result struct {
	Episode   int
	Length    int
	Tier      Tier
	Matched   string
	Remaining string
}

// Found reports whether any tier fired.
func (r Result) Found() bool {
	return r.Tier != TierNone
}

var (
	rangePattern         = regexp.MustCompile(`(?:^|[^sS\d])(\d+)[&-](\d+)`)
	dashPattern          = regexp.MustCompile(` - (\d+)`)
	dashEpisodePattern   = regexp.MustCompile(`(?i) - Episode (\d+)`)
	seasonEpisodePattern = regexp.MustCompile(`\b[sS]\d+[eE][pP]? ?(\d+)`)
	epKeywordPattern     = regexp.MustCompile(`(?i)\bep(?:isode)?\.? ?(\d+)`)
	digitRunPattern      = regexp.MustCompile(`\d+`)
)

// tier pairs a pattern with the submatch holding the episode number. span is
// the submatch whose bounds are cut from the string; 0 means the whole match.
type tier struct {
	tier    Tier
	pattern *regexp.Regexp
	group   int
	span    int
}

var orderedTiers = []tier{
	{TierDash, dashPattern, 1, 0},
	{TierDashEpisode, dashEpisodePattern, 1, 0},
	{TierSeasonEpisode, seasonEpisodePattern, 1, 0},
	{TierEpKeyword, epKeywordPattern, 1, 0},
}

// Extract tries each pattern from most to least specific and stops at the
// first one that matches. Within a tier the last occurrence wins. Only the
// matched token is removed from the returned string.
func Extract(s string) Result {
	if r, ok := extractRange(s); ok {
		return r
	}
	for _, t := range orderedTiers {
		all := t.pattern.FindAllStringSubmatchIndex(s, -1)
		if len(all) == 0 {
			continue
		}
		loc := all[len(all)-1]
		n, err := strconv.Atoi(s[loc[2*t.group]:loc[2*t.group+1]])
		if err != nil {
			continue
		}
		start, end := loc[2*t.span], loc[2*t.span+1]
		return Result{
			Episode:   n,
			Length:    1,
			Tier:      t.tier,
			Matched:   s[start:end],
			Remaining: cut(s, start, end),
		}
	}
	if r, ok := extractFallback(s); ok {
		return r
	}
	return Result{Remaining: s}
}

// extractRange handles "01-12" and "1&2" style multi-episode tokens. The
// episode is the first number and Length covers the whole span.
func extractRange(s string) (Result, bool) {
	all := rangePattern.FindAllStringSubmatchIndex(s, -1)
	for i := len(all) - 1; i >= 0; i-- {
		loc := all[i]
		first, err1 := strconv.Atoi(s[loc[2]:loc[3]])
		last, err2 := strconv.Atoi(s[loc[4]:loc[5]])
		if err1 != nil || err2 != nil || last <= first {
			continue
		}
		return Result{
			Episode:   first,
			Length:    last - first + 1,
			Tier:      TierRange,
			Matched:   s[loc[2]:loc[5]],
			Remaining: cut(s, loc[2], loc[5]),
		}, true
	}
	return Result{}, false
}

// extractFallback takes the last digit run that is not a version, season,
// codec (x264, h265) or resolution (1080p) marker.
func extractFallback(s string) (Result, bool) {
	all := digitRunPattern.FindAllStringIndex(s, -1)
	for i := len(all) - 1; i >= 0; i-- {
		start, end := all[i][0], all[i][1]
		if start > 0 && strings.IndexByte("vVsSxXhH", s[start-1]) >= 0 {
			continue
		}
		if end < len(s) && (s[end] == 'p' || s[end] == 'P') {
			continue
		}
		n, err := strconv.Atoi(s[start:end])
		if err != nil {
			continue
		}
		return Result{
			Episode:   n,
			Length:    1,
			Tier:      TierFallback,
			Matched:   s[start:end],
			Remaining: cut(s, start, end),
		}, true
	}
	return Result{}, false
}

func cut(s string, start, end int) string {
	return strings.TrimSpace(s[:start] + " " + s[end:])
}
