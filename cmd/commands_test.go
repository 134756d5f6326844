// file: cmd/commands_test.go
// version: 2.1.0
// guid: 6f5b7d78-11d8-4c1a-a150-96d2c4a1a885

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jdfalk/anime-organizer/internal/catalog"
	"github.com/jdfalk/anime-organizer/internal/config"
	"github.com/jdfalk/anime-organizer/internal/database"
	"github.com/jdfalk/anime-organizer/internal/regression"
	"github.com/jdfalk/anime-organizer/internal/scanner"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func showEntry() catalog.Entry {
	return catalog.Entry{
		ID:       100,
		Titles:   catalog.Titles{Romaji: "Show Title", English: "The Show"},
		Format:   catalog.FormatTV,
		Episodes: 24,
	}
}

// setupTestApp seeds a Pebble database with entries and points the global
// configuration at it. Remote catalog requests are disabled.
func setupTestApp(t *testing.T, entries ...catalog.Entry) string {
	t.Helper()
	tempDir := t.TempDir()
	dbPath := filepath.Join(tempDir, "db")

	store, err := database.NewPebbleStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store.SaveEntries(entries))
	require.NoError(t, store.Close())

	origConfig := config.AppConfig
	origOffline, origJSON, origExplain, origFull := offline, jsonOutput, explain, fullScan
	t.Cleanup(func() {
		config.AppConfig = origConfig
		offline, jsonOutput, explain, fullScan = origOffline, origJSON, origExplain, origFull
	})

	config.AppConfig = config.Config{
		DatabaseType:        "pebble",
		DatabasePath:        dbPath,
		SimilarityThreshold: 0.8,
		MatcherPolicy:       "best_metric",
		VideoExtensions:     []string{"mkv", "mp4"},
		ScanWorkers:         2,
		FixSingleEpisode:    true,
		PreDashRetry:        true,
	}
	offline = true
	jsonOutput = false
	explain = false
	fullScan = false
	return tempDir
}

func runCommand(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	c.SetOut(&buf)
	c.SetContext(context.Background())
	t.Cleanup(func() { c.SetOut(nil) })
	err := c.RunE(c, args)
	return buf.String(), err
}

func TestIdentifyCommand(t *testing.T) {
	setupTestApp(t, showEntry())

	out, err := runCommand(t, identifyCmd, "[Group] Show Title - 05 [1080p].mkv")
	require.NoError(t, err)
	assert.Contains(t, out, "Show Title")
	assert.Contains(t, out, "100")
}

func TestIdentifyCommandJSON(t *testing.T) {
	setupTestApp(t, showEntry())
	jsonOutput = true

	out, err := runCommand(t, identifyCmd, "[Group] Show Title - 05 [1080p].mkv", "[Group][1080p].mkv")
	require.NoError(t, err)

	var results []scanner.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, 100, results[0].AnimeID)
	assert.Equal(t, 5, results[0].Episode)
	assert.Equal(t, 0, results[1].AnimeID)
	assert.Equal(t, 0.0, results[1].Confidence)
}

func TestIdentifyCommandExplain(t *testing.T) {
	setupTestApp(t, showEntry())
	explain = true

	out, err := runCommand(t, identifyCmd, "[Group] Show Title - 05 [1080p].mkv")
	require.NoError(t, err)
	assert.Contains(t, out, "normalized: show title")
	assert.Contains(t, out, "result:     id=100 ep=5")
}

func TestScanAndEpisodesCommands(t *testing.T) {
	tempDir := setupTestApp(t, showEntry())
	root := filepath.Join(tempDir, "anime")
	require.NoError(t, os.MkdirAll(root, 0o755))
	for _, name := range []string{
		"[Group] Show Title - 01 [1080p].mkv",
		"[Group] Show Title - 02 [1080p].mkv",
		"[Group] Show Title - 04 [1080p].mkv",
		"notes.txt",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	out, err := runCommand(t, scanCmd, root)
	require.NoError(t, err)
	assert.Contains(t, out, "3 matched")

	// The library index survives closing the database.
	out, err = runCommand(t, episodesCmd, "100")
	require.NoError(t, err)
	assert.Contains(t, out, "1-2, 4")
	assert.Contains(t, out, "3/24")
}

func TestScanCommandFull(t *testing.T) {
	tempDir := setupTestApp(t, showEntry())
	root := filepath.Join(tempDir, "anime")
	require.NoError(t, os.MkdirAll(root, 0o755))
	for _, name := range []string{
		"[Group] Show Title - 01 [1080p].mkv",
		"[Group] Show Title - 02 [1080p].mkv",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644))
	}

	_, err := runCommand(t, scanCmd, root)
	require.NoError(t, err)

	out, err := runCommand(t, scanCmd, root)
	require.NoError(t, err)
	assert.Contains(t, out, "0 matched, 0 unmatched, 2 unchanged")

	fullScan = true
	out, err = runCommand(t, scanCmd, root)
	require.NoError(t, err)
	assert.Contains(t, out, "2 matched, 0 unmatched, 0 unchanged")
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	writeTable(&buf, []string{"ID", "TITLE", "EXTRA"}, [][]string{
		{"100", "Show Title", "x"},
		{"7"},
	}, []columnAlignment{alignRight})

	out := buf.String()
	assert.Contains(t, out, "Show Title")
	assert.Contains(t, out, "EXTRA")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 6)

	buf.Reset()
	writeTable(&buf, nil, [][]string{{"x"}}, nil)
	assert.Empty(t, buf.String())
}

func TestScanCommandRequiresFolders(t *testing.T) {
	setupTestApp(t)

	_, err := runCommand(t, scanCmd)
	assert.Error(t, err)
}

func TestEpisodesCommandEmptyLibrary(t *testing.T) {
	setupTestApp(t, showEntry())

	out, err := runCommand(t, episodesCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Library is empty")

	_, err = runCommand(t, episodesCmd, "abc")
	assert.Error(t, err)
}

func TestFeedCommand(t *testing.T) {
	tempDir := setupTestApp(t, showEntry())
	path := filepath.Join(tempDir, "titles.txt")
	lines := "[Group] Show Title - 03 [1080p].mkv\t350 MiB\n" +
		"[Group] Show Title (01-24) [Batch]\t8 GiB\n"
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))

	out, err := runCommand(t, feedCmd, path)
	require.NoError(t, err)
	assert.Contains(t, out, "episode (single_episode)")
	assert.Contains(t, out, "batch (keyword)")
	assert.Contains(t, out, "8.0 GiB")
	assert.Contains(t, out, "1080p")
}

func TestFeedCommandEmpty(t *testing.T) {
	tempDir := setupTestApp(t)
	path := filepath.Join(tempDir, "empty.txt")
	require.NoError(t, os.WriteFile(path, []byte("# nothing\n"), 0o644))

	out, err := runCommand(t, feedCmd, path)
	require.NoError(t, err)
	assert.Contains(t, out, "No feed items found.")
}

func TestWindowCommand(t *testing.T) {
	setupTestApp(t, showEntry())
	jsonOutput = true

	out, err := runCommand(t, windowCmd, "Show Title - 07.mkv - VLC media player")
	require.NoError(t, err)

	var results []scanner.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 100, results[0].AnimeID)
	assert.Equal(t, 7, results[0].Episode)
}

func TestWindowCommandReadsStdin(t *testing.T) {
	setupTestApp(t, showEntry())
	jsonOutput = true
	windowCmd.SetIn(strings.NewReader("Show Title - 08.mkv - mpv\n\n"))
	t.Cleanup(func() { windowCmd.SetIn(nil) })

	out, err := runCommand(t, windowCmd)
	require.NoError(t, err)

	var results []scanner.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 8, results[0].Episode)
}

func TestRegressCommand(t *testing.T) {
	tempDir := setupTestApp(t, showEntry())

	write := func(name string, cases []regression.Case) string {
		data, err := json.Marshal(cases)
		require.NoError(t, err)
		path := filepath.Join(tempDir, name)
		require.NoError(t, os.WriteFile(path, data, 0o644))
		return path
	}

	good := write("good.json", []regression.Case{
		{Filename: "[Group] Show Title - 05 [1080p].mkv", ExpectedAnimeID: 100, ExpectedEpisode: 5, ExpectedResolution: 1080},
	})
	out, err := runCommand(t, regressCmd, good)
	require.NoError(t, err)
	assert.Contains(t, out, "1 passed, 0 failed")

	bad := write("bad.json", []regression.Case{
		{Filename: "[Group] Show Title - 05 [1080p].mkv", ExpectedAnimeID: 100, ExpectedEpisode: 6, ExpectedResolution: 1080},
	})
	out, err = runCommand(t, regressCmd, bad)
	assert.ErrorIs(t, err, ErrRegressionFailed)
	assert.Contains(t, out, "FAIL [Group] Show Title - 05 [1080p].mkv")
}

func TestCatalogCommands(t *testing.T) {
	setupTestApp(t, showEntry())

	out, err := runCommand(t, catalogSearchCmd, "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Show Title")

	out, err = runCommand(t, catalogShowCmd, "100")
	require.NoError(t, err)
	assert.Contains(t, out, "Romaji:   Show Title")
	assert.Contains(t, out, "Native:   (empty)")

	out, err = runCommand(t, catalogFetchCmd, "100")
	require.NoError(t, err)
	assert.Contains(t, out, "Catalog holds 1 entries (0 new)")

	_, err = runCommand(t, catalogShowCmd, "999")
	assert.Error(t, err)
}

func TestCatalogTitlesCommand(t *testing.T) {
	setupTestApp(t, showEntry())
	jsonOutput = true

	_, err := runCommand(t, catalogTitlesCmd, "100", "Mostra Titolo")
	require.NoError(t, err)

	// Custom titles are persisted and take part in matching.
	out, err := runCommand(t, identifyCmd, "Mostra Titolo - 02.mkv")
	require.NoError(t, err)
	var results []scanner.MatchResult
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, 100, results[0].AnimeID)
	assert.Equal(t, 2, results[0].Episode)
}

func TestConfigCommands(t *testing.T) {
	tempDir := setupTestApp(t)
	t.Cleanup(viper.Reset)

	out, err := runCommand(t, configShowCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "similarity_threshold: 0.8")

	path := filepath.Join(tempDir, "saved.yaml")
	_, err = runCommand(t, configSaveCmd, path)
	require.NoError(t, err)
	assert.FileExists(t, path)

	bad := filepath.Join(tempDir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("similarity_threshold: 1.5\n"), 0o644))
	_, err = runCommand(t, configCheckCmd, bad)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestParseIDs(t *testing.T) {
	ids, err := parseIDs([]string{"1", "22"})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 22}, ids)

	for _, bad := range []string{"x", "0", "-3"} {
		_, err := parseIDs([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestFormatEpisodes(t *testing.T) {
	tests := []struct {
		eps  []int
		want string
	}{
		{nil, "-"},
		{[]int{1}, "1"},
		{[]int{1, 2, 3}, "1-3"},
		{[]int{1, 2, 3, 5, 7, 8}, "1-3, 5, 7-8"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatEpisodes(tt.eps))
	}
}

func TestFormatEpisode(t *testing.T) {
	assert.Equal(t, "-", formatEpisode(0, 0))
	assert.Equal(t, "5", formatEpisode(5, 1))
	assert.Equal(t, "1-12", formatEpisode(1, 12))
}

func TestScanRootsFallsBackToConfig(t *testing.T) {
	setupTestApp(t)
	config.AppConfig.AnimeFolders = []string{"/anime"}

	assert.Equal(t, []string{"/a"}, scanRoots([]string{"/a"}))
	assert.Equal(t, []string{"/anime"}, scanRoots(nil))
}

func TestPipelineOptionsFromConfig(t *testing.T) {
	cfg := config.Config{
		SimilarityThreshold:  0.7,
		MatcherPolicy:        "consensus",
		BatchSizeThreshold:   "2 GiB",
		RewindToFirstPrequel: true,
		ScanWorkers:          3,
	}
	opts := pipelineOptions(cfg)
	assert.Equal(t, 0.7, opts.Threshold)
	assert.False(t, opts.FullScan)
	assert.Equal(t, "consensus", opts.Policy.String())
	assert.Equal(t, uint64(2<<30), opts.BatchSizeThreshold)
	assert.True(t, opts.Rewind)
	assert.Equal(t, 3, opts.Workers)
	assert.Equal(t, scanner.DefaultWindowSuffixes, opts.WindowSuffixes)
	assert.Equal(t, []string{"mkv", "mp4", "avi"}, opts.VideoExtensions)
}
