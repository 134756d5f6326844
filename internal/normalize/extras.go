// file: internal/normalize/extras.go
// version: 1.0.0
// guid: 5691449f-3449-417f-8777-f7ddabc0171a

package normalize

import "regexp"

// extraVideoPattern matches openings, endings, creditless versions, skits,
// promotional videos and disc menus that ship next to episodes.
var extraVideoPattern = regexp.MustCompile(
	`[ _\.][oO][pP]\d*([vV]\d)?[ _\.]` +
		`|[ _\.]NCOP\d*([vV]\d)?[ _\.]` +
		`|[ _\.]NCED\d*([vV]\d)?[ _\.]` +
		`|[ _\.][eE][dD]\d*([vV]\d)?[ _\.]` +
		`|[ _\.][sS]kit[ _\.]` +
		`|[eE]nding|[oO]pening` +
		`|[ _][pP][vV][ _]` +
		`|[bB][dD] [mM][eE][nN][uU]`)

// IsExtraVideo reports whether a filename looks like bonus material rather
// than an episode. It must be checked on the raw name, before any cleanup.
func IsExtraVideo(name string) bool {
	return extraVideoPattern.MatchString(name)
}
