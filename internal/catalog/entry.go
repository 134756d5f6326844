// file: internal/catalog/entry.go
// version: 1.0.0
// guid: 4904329f-12cc-4690-8025-ee17a27c7c59

// Package catalog holds anime catalog entries and the cache that fronts the
// remote catalog API.
package catalog

// Format is the catalog media format (TV, MOVIE, OVA, ...).
type Format string

const (
	FormatTV      Format = "TV"
	FormatTVShort Format = "TV_SHORT"
	FormatMovie   Format = "MOVIE"
	FormatSpecial Format = "SPECIAL"
	FormatOVA     Format = "OVA"
	FormatONA     Format = "ONA"
	FormatMusic   Format = "MUSIC"
)

// Serial reports whether the format is episodic and takes part in season
// chains. Unknown formats are treated as serial.
func (f Format) Serial() bool {
	switch f {
	case FormatTV, FormatTVShort, FormatONA, "":
		return true
	}
	return false
}

// RelationKind names an edge between two catalog entries.
type RelationKind string

const (
	RelationSequel    RelationKind = "SEQUEL"
	RelationPrequel   RelationKind = "PREQUEL"
	RelationSideStory RelationKind = "SIDE_STORY"
	RelationParent    RelationKind = "PARENT"
	RelationSpinOff   RelationKind = "SPIN_OFF"
)

// Relation points at a related entry.
type Relation struct {
	Kind RelationKind `json:"kind"`
	ID   int          `json:"id"`
}

// Titles are the localized names of an entry. Any of them may be empty.
type Titles struct {
	English string `json:"english,omitempty"`
	Romaji  string `json:"romaji,omitempty"`
	Native  string `json:"native,omitempty"`
}

// Entry is a single anime in the catalog. Episodes is 0 when the count is
// unknown (still airing, or never published).
type Entry struct {
	ID        int        `json:"id"`
	Titles    Titles     `json:"titles"`
	Synonyms  []string   `json:"synonyms,omitempty"`
	Custom    []string   `json:"custom,omitempty"`
	Format    Format     `json:"format,omitempty"`
	Episodes  int        `json:"episodes,omitempty"`
	Relations []Relation `json:"relations,omitempty"`
}

// EpisodeCount returns the episode count and whether it is known.
func (e Entry) EpisodeCount() (int, bool) {
	return e.Episodes, e.Episodes > 0
}

// DisplayTitle picks the romaji title, then english, then native.
func (e Entry) DisplayTitle() string {
	switch {
	case e.Titles.Romaji != "":
		return e.Titles.Romaji
	case e.Titles.English != "":
		return e.Titles.English
	default:
		return e.Titles.Native
	}
}

// AllTitles lists every non-empty name the entry is known by: localized
// titles first, then user-assigned custom titles, then synonyms.
func (e Entry) AllTitles() []string {
	out := make([]string, 0, 3+len(e.Custom)+len(e.Synonyms))
	for _, t := range []string{e.Titles.English, e.Titles.Romaji, e.Titles.Native} {
		if t != "" {
			out = append(out, t)
		}
	}
	for _, t := range e.Custom {
		if t != "" {
			out = append(out, t)
		}
	}
	for _, t := range e.Synonyms {
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Related returns the ids of relations of the given kind, in order.
func (e Entry) Related(kind RelationKind) []int {
	var ids []int
	for _, r := range e.Relations {
		if r.Kind == kind {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
