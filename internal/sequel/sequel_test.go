// file: internal/sequel/sequel_test.go
// version: 1.0.0
// guid: d06ae44a-d625-4d17-bb35-7bc71d73a7f8

package sequel

import (
	"testing"

	"github.com/jdfalk/anime-organizer/internal/catalog"
	"github.com/stretchr/testify/assert"
)

func sequelTo(id int) catalog.Relation  { return catalog.Relation{Kind: catalog.RelationSequel, ID: id} }
func prequelTo(id int) catalog.Relation { return catalog.Relation{Kind: catalog.RelationPrequel, ID: id} }

func franchise() *catalog.Store {
	s := catalog.NewStore(nil)
	s.Put(
		catalog.Entry{ID: 1, Format: catalog.FormatTV, Episodes: 12, Relations: []catalog.Relation{sequelTo(2)}},
		catalog.Entry{ID: 2, Format: catalog.FormatTV, Episodes: 12, Relations: []catalog.Relation{prequelTo(1), sequelTo(3)}},
		catalog.Entry{ID: 3, Format: catalog.FormatTV, Episodes: 12, Relations: []catalog.Relation{prequelTo(2)}},
	)
	return s
}

func TestResolve(t *testing.T) {
	r := New(franchise())
	tests := []struct {
		name        string
		id, episode int
		want        Resolution
	}{
		{"rollover to sequel", 1, 13, Resolution{ID: 2, Episode: 1, Hops: 1}},
		{"two hops", 1, 30, Resolution{ID: 3, Episode: 6, Hops: 2}},
		{"within count", 1, 5, Resolution{ID: 1, Episode: 5}},
		{"last episode", 1, 12, Resolution{ID: 1, Episode: 12}},
		{"chain ends", 3, 27, Resolution{ID: 3, Episode: 27}},
		{"past the last season", 1, 40, Resolution{ID: 3, Episode: 16, Hops: 2}},
		{"unknown id", 42, 13, Resolution{ID: 42, Episode: 13}},
		{"special zero", 1, 0, Resolution{ID: 1, Episode: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.Resolve(tt.id, tt.episode))
		})
	}
}

func TestResolveUnknownCountKeepsInput(t *testing.T) {
	s := catalog.NewStore(nil)
	s.Put(
		catalog.Entry{ID: 1, Format: catalog.FormatTV, Episodes: 12, Relations: []catalog.Relation{sequelTo(2)}},
		catalog.Entry{ID: 2, Format: catalog.FormatTV, Relations: []catalog.Relation{sequelTo(3)}},
		catalog.Entry{ID: 3, Format: catalog.FormatTV, Episodes: 12},
		catalog.Entry{ID: 4, Format: catalog.FormatTV},
	)
	r := New(s)

	assert.Equal(t, Resolution{ID: 1, Episode: 15}, r.Resolve(1, 15))
	assert.Equal(t, Resolution{ID: 4, Episode: 99}, r.Resolve(4, 99))
}

func TestResolveMissingSequelStopsAtLastGood(t *testing.T) {
	s := catalog.NewStore(nil)
	s.Put(
		catalog.Entry{ID: 1, Format: catalog.FormatTV, Episodes: 12, Relations: []catalog.Relation{sequelTo(2)}},
		catalog.Entry{ID: 2, Format: catalog.FormatTV, Episodes: 12, Relations: []catalog.Relation{sequelTo(99)}},
	)
	r := New(s)
	assert.Equal(t, Resolution{ID: 2, Episode: 18, Hops: 1}, r.Resolve(1, 30))
}

func TestResolveSkipsNonSerialSequels(t *testing.T) {
	s := catalog.NewStore(nil)
	s.Put(
		catalog.Entry{ID: 1, Format: catalog.FormatTV, Episodes: 12, Relations: []catalog.Relation{sequelTo(5), sequelTo(2)}},
		catalog.Entry{ID: 5, Format: catalog.FormatMovie, Episodes: 1},
		catalog.Entry{ID: 2, Format: catalog.FormatTV, Episodes: 12},
	)
	assert.Equal(t, Resolution{ID: 2, Episode: 2, Hops: 1}, New(s).Resolve(1, 14))
}

func TestResolveRewindsToFirstPrequel(t *testing.T) {
	r := New(franchise(), WithRewind(true))
	assert.Equal(t, Resolution{ID: 3, Episode: 3, Hops: 2, Rewound: true}, r.Resolve(3, 27))
	assert.Equal(t, Resolution{ID: 2, Episode: 5}, r.Resolve(2, 5), "fitting episodes are not rewound")
}

func TestResolveSurvivesCycles(t *testing.T) {
	s := catalog.NewStore(nil)
	s.Put(
		catalog.Entry{ID: 1, Format: catalog.FormatTV, Episodes: 12, Relations: []catalog.Relation{sequelTo(2)}},
		catalog.Entry{ID: 2, Format: catalog.FormatTV, Episodes: 12, Relations: []catalog.Relation{sequelTo(1)}},
	)
	assert.Equal(t, Resolution{ID: 2, Episode: 28, Hops: 1}, New(s).Resolve(1, 40))
}

func TestFixSingleEpisode(t *testing.T) {
	s := catalog.NewStore(nil)
	s.Put(
		catalog.Entry{ID: 1, Format: catalog.FormatMovie, Episodes: 1},
		catalog.Entry{ID: 2, Format: catalog.FormatTV, Episodes: 12},
	)
	assert.Equal(t, 1, FixSingleEpisode(s, 1, 2019))
	assert.Equal(t, 7, FixSingleEpisode(s, 2, 7))
	assert.Equal(t, 3, FixSingleEpisode(s, 404, 3))
}
