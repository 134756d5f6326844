// file: internal/matcher/similarity.go
// version: 1.0.0
// guid: 1ab235fc-cae0-412c-b636-828d861f05f7

package matcher

import (
	"math"

	"github.com/hbollon/go-edlib"
)

// Metric is one of the four string similarity measures.
type Metric int

const (
	Levenshtein Metric = iota
	DamerauLevenshtein
	JaroWinkler
	SorensenDice
	numMetrics
)

// Metrics lists every metric in tie-break order.
var Metrics = [numMetrics]Metric{Levenshtein, DamerauLevenshtein, JaroWinkler, SorensenDice}

func (m Metric) String() string {
	switch m {
	case Levenshtein:
		return "levenshtein"
	case DamerauLevenshtein:
		return "damerau_levenshtein"
	case JaroWinkler:
		return "jaro_winkler"
	case SorensenDice:
		return "sorensen_dice"
	default:
		return "unknown"
	}
}

func (m Metric) algorithm() edlib.Algorithm {
	switch m {
	case DamerauLevenshtein:
		return edlib.OSADamerauLevenshtein
	case JaroWinkler:
		return edlib.JaroWinkler
	case SorensenDice:
		return edlib.SorensenDice
	default:
		return edlib.Levenshtein
	}
}

// Similarity scores a against b in [0,1]. Identical non-empty strings score 1
// on every metric.
func (m Metric) Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 1
	}
	s, err := edlib.StringsSimilarity(a, b, m.algorithm())
	if err != nil {
		return 0
	}
	return clamp(float64(s))
}

func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
