// file: internal/normalize/normalize.go
// version: 1.0.0
// guid: 1fc2dc97-28bf-48b8-b69b-b79364e3585e

package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Package-level patterns for the cleanup pipeline.
var (
	bracketPattern   = regexp.MustCompile(`((\[[^\[\]]+\]|\([^\(\)]+\))[ _]*)+`)
	extensionPattern = regexp.MustCompile(`(?i)[_ ]?\.(mkv|avi|mp4)\b`)
	quotedPattern    = regexp.MustCompile(`'[^']*\d[^']*'|"[^"]*\d[^"]*"`)

	releaseTagPattern = regexp.MustCompile(`(?i)\b(2160p|1080p|720p|480p|x26[45]|h[\. ]?26[45]|hevc|aac|flac|10bit|8bit|bdrip|web-?dl|webrip|hdtv)\b`)
	dvdPattern        = regexp.MustCompile(`(?i)\bdvd(rip)?\b`)
	remasteredPattern = regexp.MustCompile(`(?i)\bremastered\b`)
	xvidPattern       = regexp.MustCompile(`(?i)\bxvid\b`)
	keywordPattern    = regexp.MustCompile(`\s(Episode|Ep|EP|END|FINAL)\b`)
	loneEPattern      = regexp.MustCompile(` E( |$)`)
	versionPattern    = regexp.MustCompile(`(^|[\d\s])[vV]\d+\b`)
	spacePattern      = regexp.MustCompile(`\s+`)
	trailingPattern   = regexp.MustCompile(`[\s\-]+$`)

	resolutionPattern = regexp.MustCompile(`(?i)\b(\d{3,4})p\b`)
	dimensionPattern  = regexp.MustCompile(`\b\d{3,4}[xX](\d{3,4})\b`)
	subGroupPattern   = regexp.MustCompile(`^\s*\[([^\]]+)\]`)
)

// Normalize runs the full cleanup pipeline. The result is stable under a
// second application: passes repeat until the string stops changing. Every
// pass only deletes characters or swaps them for spaces, so it terminates.
func Normalize(s string) string {
	for {
		next := Clean(Prepare(s))
		if next == s {
			return next
		}
		s = next
	}
}

// Prepare removes bracketed groups, the container extension and quoted
// episode titles. Episode extraction runs on its output.
func Prepare(s string) string {
	s = RemoveBrackets(s)
	s = StripExtension(s)
	s = quotedPattern.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// RemoveBrackets strips every [..] and (..) group along with the separators
// that follow it. Nested groups are peeled from the inside out.
func RemoveBrackets(s string) string {
	for {
		next := bracketPattern.ReplaceAllString(s, "")
		if next == s {
			return s
		}
		s = next
	}
}

// StripExtension removes a video container extension.
func StripExtension(s string) string {
	return extensionPattern.ReplaceAllString(s, "")
}

// Clean handles residual noise after the episode token is gone and lower-cases
// the result.
func Clean(s string) string {
	s = strings.ReplaceAll(s, "_", " ")
	s = splitWordDots(s)
	s = releaseTagPattern.ReplaceAllString(s, " ")
	s = dvdPattern.ReplaceAllString(s, " ")
	s = remasteredPattern.ReplaceAllString(s, " ")
	s = xvidPattern.ReplaceAllString(s, " ")
	s = keywordPattern.ReplaceAllString(s, " ")
	s = loneEPattern.ReplaceAllString(s, " ")
	s = versionPattern.ReplaceAllString(s, "$1")
	s = spacePattern.ReplaceAllString(s, " ")
	s = trailingPattern.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	return strings.ToLower(s)
}

// splitWordDots turns a dot into a space when both neighbours are word
// characters ("Dr.Stone" -> "Dr Stone"); other dots are kept.
func splitWordDots(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	rs := []rune(s)
	for i := 1; i < len(rs)-1; i++ {
		if rs[i] == '.' && isWord(rs[i-1]) && isWord(rs[i+1]) {
			rs[i] = ' '
		}
	}
	return string(rs)
}

func isWord(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// ExtractResolution returns the vertical resolution mentioned in a release
// title (1080 for "1080p" or "1920x1080"), or 0.
func ExtractResolution(title string) int {
	if m := resolutionPattern.FindStringSubmatch(title); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	if m := dimensionPattern.FindStringSubmatch(title); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			return v
		}
	}
	return 0
}

// ExtractSubGroup returns the leading [Group] tag of a release title.
func ExtractSubGroup(title string) string {
	if m := subGroupPattern.FindStringSubmatch(title); m != nil {
		return strings.TrimSpace(m[1])
	}
	return ""
}
