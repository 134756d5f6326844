// file: internal/regression/regression.go
// version: 1.0.0
// guid: 9a26afc5-a4d4-4389-9261-dcce92f2439e

// Package regression replays a list of known filenames through the
// identification pipeline and reports which ones no longer come out right.
package regression

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jdfalk/anime-organizer/internal/normalize"
	"github.com/jdfalk/anime-organizer/internal/scanner"
)

// ErrNoCases is returned when a case file holds no cases.
var ErrNoCases = errors.New("no regression cases")

// Case is one expected identification.
type Case struct {
	Filename           string `json:"filename"`
	ExpectedAnimeID    int    `json:"expected_anime_id"`
	ExpectedEpisode    int    `json:"expected_episode"`
	ExpectedResolution int    `json:"expected_resolution"`
}

// Outcome is the result of one case.
type Outcome struct {
	Case       Case
	AnimeID    int
	Episode    int
	Resolution int
	Confidence float64
}

// Passed reports whether id, episode and resolution all match.
func (o Outcome) Passed() bool {
	return o.AnimeID == o.Case.ExpectedAnimeID &&
		o.Episode == o.Case.ExpectedEpisode &&
		o.Resolution == o.Case.ExpectedResolution
}

// Report collects every outcome of a run.
type Report struct {
	Outcomes []Outcome
	Passed   int
	Failed   int
}

// Failures returns the outcomes that did not pass.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if !o.Passed() {
			out = append(out, o)
		}
	}
	return out
}

// Identifier is the part of the pipeline a run needs.
type Identifier interface {
	Identify(ctx context.Context, raw string) (scanner.MatchResult, scanner.WorkingRecord)
}

// Load reads a JSON array of cases.
func Load(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read regression cases: %w", err)
	}
	var cases []Case
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse regression cases %s: %w", path, err)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("%s: %w", path, ErrNoCases)
	}
	return cases, nil
}

// Run identifies every case filename and compares the outcome.
func Run(ctx context.Context, id Identifier, cases []Case) *Report {
	report := &Report{Outcomes: make([]Outcome, 0, len(cases))}
	for _, c := range cases {
		res, _ := id.Identify(ctx, c.Filename)
		o := Outcome{
			Case:       c,
			AnimeID:    res.AnimeID,
			Episode:    res.Episode,
			Resolution: normalize.ExtractResolution(c.Filename),
			Confidence: res.Confidence,
		}
		if o.Passed() {
			report.Passed++
		} else {
			report.Failed++
		}
		report.Outcomes = append(report.Outcomes, o)
	}
	return report
}
