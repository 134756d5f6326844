// file: internal/catalog/store_test.go
// version: 1.0.0
// guid: e2a4d8eb-1e2d-4203-9d5b-6a3192d63050

package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockFetcher struct {
	mock.Mock
}

func (m *mockFetcher) FetchMany(ctx context.Context, ids []int) (map[int]Entry, error) {
	args := m.Called(ctx, ids)
	found, _ := args.Get(0).(map[int]Entry)
	return found, args.Error(1)
}

type memPersister struct {
	entries []Entry
	missing []int
}

func (p *memPersister) SaveEntries(entries []Entry) error { p.entries = entries; return nil }
func (p *memPersister) LoadEntries() ([]Entry, error)     { return p.entries, nil }
func (p *memPersister) SaveMissingIDs(ids []int) error    { p.missing = ids; return nil }
func (p *memPersister) LoadMissingIDs() ([]int, error)    { return p.missing, nil }

func TestStoreGetFetchesOnceAndCaches(t *testing.T) {
	ctx := context.Background()
	f := &mockFetcher{}
	f.On("FetchMany", ctx, []int{1}).Return(map[int]Entry{
		1: {ID: 1, Titles: Titles{Romaji: "Show"}, Episodes: 12},
	}, nil).Once()

	s := NewStore(f)
	e, err := s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Show", e.DisplayTitle())

	e, err = s.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 12, e.Episodes)
	f.AssertNumberOfCalls(t, "FetchMany", 1)
}

func TestStoreNegativeCacheShortCircuits(t *testing.T) {
	ctx := context.Background()
	f := &mockFetcher{}
	f.On("FetchMany", ctx, []int{404}).Return(map[int]Entry{}, nil).Once()

	s := NewStore(f)
	_, err := s.Get(ctx, 404)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, s.IsMissing(404))

	_, err = s.Get(ctx, 404)
	assert.Equal(t, KindNotFound, Kind(err))
	f.AssertNumberOfCalls(t, "FetchMany", 1)
}

func TestStoreFetchErrorKeepsKind(t *testing.T) {
	ctx := context.Background()
	f := &mockFetcher{}
	f.On("FetchMany", ctx, []int{7}).Return(nil, ErrNoConnection)

	s := NewStore(f)
	_, err := s.Get(ctx, 7)
	assert.Equal(t, KindNoConnection, Kind(err))
	assert.False(t, s.IsMissing(7), "a failed fetch must not poison the negative cache")
}

func TestStoreGetManyMixesResidentAndFetched(t *testing.T) {
	ctx := context.Background()
	f := &mockFetcher{}
	f.On("FetchMany", ctx, []int{2, 3}).Return(map[int]Entry{
		2: {ID: 2, Titles: Titles{English: "Two"}},
	}, nil).Once()

	s := NewStore(f)
	s.Put(Entry{ID: 1, Titles: Titles{English: "One"}})

	got, err := s.GetMany(ctx, []int{1, 2, 3, 1, 0})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.True(t, s.IsMissing(3))
}

func TestStorePrefetchFollowsRelationChain(t *testing.T) {
	ctx := context.Background()
	f := &mockFetcher{}
	f.On("FetchMany", ctx, []int{1}).Return(map[int]Entry{
		1: {ID: 1, Relations: []Relation{{Kind: RelationSequel, ID: 2}, {Kind: RelationSideStory, ID: 9}}},
	}, nil).Once()
	f.On("FetchMany", ctx, []int{2}).Return(map[int]Entry{
		2: {ID: 2, Relations: []Relation{{Kind: RelationPrequel, ID: 1}, {Kind: RelationSequel, ID: 3}}},
	}, nil).Once()
	f.On("FetchMany", ctx, []int{3}).Return(map[int]Entry{
		3: {ID: 3, Relations: []Relation{{Kind: RelationPrequel, ID: 2}}},
	}, nil).Once()

	s := NewStore(f)
	require.NoError(t, s.Prefetch(ctx, []int{1}))
	assert.Equal(t, 3, s.Len())
	f.AssertExpectations(t)
}

func TestStoreOfflineLeavesUnknownUnresolved(t *testing.T) {
	s := NewStore(nil)
	_, err := s.Get(context.Background(), 5)
	assert.Equal(t, KindNotFound, Kind(err))
	assert.False(t, s.IsMissing(5))
}

func TestStoreCustomTitlesAndPersistence(t *testing.T) {
	s := NewStore(nil)
	s.Put(Entry{ID: 1, Titles: Titles{Romaji: "Shingeki no Kyojin"}})
	s.SetCustomTitles(1, []string{"AoT"})
	s.MarkMissing(99)

	e, ok := s.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, []string{"Shingeki no Kyojin", "AoT"}, e.AllTitles())

	p := &memPersister{}
	require.NoError(t, s.Flush(p))

	restored := NewStore(nil)
	require.NoError(t, restored.Load(p))
	e, ok = restored.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, []string{"AoT"}, e.Custom)
	assert.True(t, restored.IsMissing(99))
}

func TestStoreSearch(t *testing.T) {
	s := NewStore(nil)
	s.Put(
		Entry{ID: 1, Titles: Titles{Romaji: "Sousou no Frieren", English: "Frieren: Beyond Journey's End"}},
		Entry{ID: 2, Titles: Titles{Romaji: "Kimetsu no Yaiba"}},
		Entry{ID: 3, Titles: Titles{Romaji: "Frieren Mini"}},
	)

	results := s.Search("frieren", 0)
	require.Len(t, results, 2)
	ids := []int{results[0].Entry.ID, results[1].Entry.ID}
	assert.ElementsMatch(t, []int{1, 3}, ids)

	assert.Len(t, s.Search("frieren", 1), 1)
	assert.Empty(t, s.Search("  ", 5))
	assert.Empty(t, s.Search("zzz", 5))
}

func TestEntryHelpers(t *testing.T) {
	e := Entry{
		ID:        1,
		Titles:    Titles{English: "Show", Native: "ショー"},
		Synonyms:  []string{"", "Shou"},
		Relations: []Relation{{Kind: RelationSequel, ID: 2}, {Kind: RelationPrequel, ID: 0}, {Kind: RelationSequel, ID: 3}},
	}
	assert.Equal(t, "Show", e.DisplayTitle())
	assert.Equal(t, []string{"Show", "ショー", "Shou"}, e.AllTitles())
	assert.Equal(t, []int{2, 3}, e.Related(RelationSequel))
	_, known := e.EpisodeCount()
	assert.False(t, known)
	assert.True(t, Format("").Serial())
	assert.False(t, FormatMovie.Serial())
}
