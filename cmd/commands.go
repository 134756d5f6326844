// file: cmd/commands.go
// version: 1.1.0
// guid: 85badd0a-18a6-46e2-ae96-dba7c003635e

package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/jdfalk/anime-organizer/internal/batch"
	"github.com/jdfalk/anime-organizer/internal/config"
	"github.com/jdfalk/anime-organizer/internal/feed"
	"github.com/jdfalk/anime-organizer/internal/regression"
	"github.com/jdfalk/anime-organizer/internal/scanner"
	"github.com/jdfalk/anime-organizer/internal/watcher"
	"github.com/spf13/cobra"
)

// ErrRegressionFailed is returned by the regress command when a case fails.
var ErrRegressionFailed = errors.New("regression cases failed")

var (
	jsonOutput bool
	explain    bool
	fullScan   bool
)

var scanCmd = &cobra.Command{
	Use:   "scan [folders...]",
	Short: "Identify every video file under the anime folders",
	Long: `Walk the given folders (or the configured anime_folders), identify each
video file and record the accepted matches in the library index. Files that
were matched by a previous scan and did not change since are skipped, unless
--full is given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		roots := scanRoots(args)
		if len(roots) == 0 {
			return fmt.Errorf("no folders to scan; pass folders or set anime_folders")
		}

		a, err := openApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer closeApp(a)

		var progress io.Writer
		if !jsonOutput {
			progress = os.Stderr
		}
		report, err := a.pipeline.ScanFoldersWithProgress(cmd.Context(), roots, progress)
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, report.Results)
		}
		writeResults(out, report.Results, a.pipeline.Threshold())
		fmt.Fprintf(out, "\n%s\n", report)
		for _, root := range report.MissingRoots {
			fmt.Fprintf(out, "missing folder: %s\n", root)
		}
		return nil
	},
}

var identifyCmd = &cobra.Command{
	Use:   "identify <filename>...",
	Short: "Identify filenames without touching the library",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer closeApp(a)

		out := cmd.OutOrStdout()
		results := make([]scanner.MatchResult, 0, len(args))
		for _, name := range args {
			res, rec := a.pipeline.Identify(cmd.Context(), name)
			results = append(results, res)
			if explain && !jsonOutput {
				writeRecord(out, res, rec)
			}
		}
		if jsonOutput {
			return writeJSON(out, results)
		}
		if !explain {
			writeResults(out, results, a.pipeline.Threshold())
		}
		return nil
	},
}

var feedCmd = &cobra.Command{
	Use:   "feed [file|-]",
	Short: "Identify release titles from an RSS feed or a title list",
	Long: `Read an RSS feed (nyaa style) or a plain list of titles, one per line with
an optional tab-separated size, and identify each release. Batches are told
apart from single episodes. Use "-" or no argument to read standard input.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "-"
		if len(args) == 1 {
			path = args[0]
		}
		items, err := feed.ReadFile(path)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No feed items found.")
			return nil
		}

		a, err := openApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer closeApp(a)

		results := a.pipeline.IdentifyFeed(cmd.Context(), items)
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), results)
		}
		writeFeedResults(cmd.OutOrStdout(), results)
		return nil
	},
}

var windowCmd = &cobra.Command{
	Use:   "window [title...]",
	Short: "Identify media player window titles",
	Long: `Identify what a media player is showing from its window title. Titles are
taken from the arguments, or one per line from standard input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		titles := args
		if len(titles) == 0 {
			var err error
			if titles, err = readLines(cmd.InOrStdin()); err != nil {
				return err
			}
		}

		a, err := openApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer closeApp(a)

		results := a.pipeline.IdentifyWindowTitles(cmd.Context(), titles)
		if jsonOutput {
			return writeJSON(cmd.OutOrStdout(), results)
		}
		writeResults(cmd.OutOrStdout(), results, a.pipeline.Threshold())
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch [folders...]",
	Short: "Rescan anime folders whenever their contents change",
	RunE: func(cmd *cobra.Command, args []string) error {
		roots := scanRoots(args)
		if len(roots) == 0 {
			return fmt.Errorf("no folders to watch; pass folders or set anime_folders")
		}

		a, err := openApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer closeApp(a)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		var mu sync.Mutex
		rescan := func(root string) {
			mu.Lock()
			defer mu.Unlock()
			if ctx.Err() != nil {
				return
			}
			report, err := a.pipeline.ScanFolders(ctx, []string{root})
			if err != nil {
				log.Printf("[ERROR] rescan of %s failed: %v", root, err)
				return
			}
			log.Printf("[INFO] %s: %s", root, report)
			if err := a.db.SaveLibrary(a.pipeline.Library().Snapshot()); err != nil {
				log.Printf("[WARN] failed to save library index: %v", err)
			}
		}

		for _, root := range roots {
			rescan(root)
		}

		w := watcher.New(rescan, config.AppConfig.WatchDebounce, config.AppConfig.VideoExtensions...)
		defer w.Stop()
		if err := w.Start(roots...); err != nil {
			return err
		}

		log.Printf("[INFO] watching %d folder(s); press Ctrl+C to stop", len(roots))
		<-ctx.Done()
		log.Printf("[INFO] stopping watcher")
		return nil
	},
}

var episodesCmd = &cobra.Command{
	Use:   "episodes [anime-id]",
	Short: "List the episodes found on disk",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer closeApp(a)

		lib := a.pipeline.Library()
		ids := lib.AnimeIDs()
		if len(args) == 1 {
			id, err := strconv.Atoi(args[0])
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid anime id %q", args[0])
			}
			ids = []int{id}
		}

		out := cmd.OutOrStdout()
		if len(lib.AnimeIDs()) == 0 {
			fmt.Fprintln(out, "Library is empty. Run a scan first.")
			return nil
		}
		var rows [][]string
		for _, id := range ids {
			title, total := "?", "?"
			if e, ok := a.catalog.Lookup(id); ok {
				title = e.DisplayTitle()
				if n, known := e.EpisodeCount(); known {
					total = strconv.Itoa(n)
				}
			}
			eps := lib.Episodes(id)
			rows = append(rows, []string{strconv.Itoa(id), title, formatEpisodes(eps), fmt.Sprintf("%d/%s", len(eps), total)})
		}
		writeTable(out, []string{"ID", "TITLE", "EPISODES", "COUNT"}, rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight})
		return nil
	},
}

var regressCmd = &cobra.Command{
	Use:   "regress <cases.json>",
	Short: "Run identification against a file of expected results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cases, err := regression.Load(args[0])
		if err != nil {
			return err
		}

		a, err := openApp(config.AppConfig)
		if err != nil {
			return err
		}
		defer closeApp(a)

		report := regression.Run(cmd.Context(), a.pipeline, cases)
		out := cmd.OutOrStdout()
		for _, o := range report.Failures() {
			fmt.Fprintf(out, "FAIL %s\n", o.Case.Filename)
			fmt.Fprintf(out, "     want id=%d ep=%d res=%d\n", o.Case.ExpectedAnimeID, o.Case.ExpectedEpisode, o.Case.ExpectedResolution)
			fmt.Fprintf(out, "     got  id=%d ep=%d res=%d (confidence %.3f)\n", o.AnimeID, o.Episode, o.Resolution, o.Confidence)
		}
		fmt.Fprintf(out, "%d passed, %d failed\n", report.Passed, report.Failed)
		if report.Failed > 0 {
			return fmt.Errorf("%w: %d of %d", ErrRegressionFailed, report.Failed, len(report.Outcomes))
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	rootCmd.PersistentFlags().BoolVar(&offline, "offline", false, "never query AniList; use only cached catalog entries")
	identifyCmd.Flags().BoolVar(&explain, "explain", false, "show the intermediate steps of each identification")
	scanCmd.Flags().BoolVar(&fullScan, "full", false, "re-identify every file, including unchanged ones matched before")
}

// scanRoots returns args, or the configured folders when there are none.
func scanRoots(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return config.AppConfig.AnimeFolders
}

// closeApp closes a and logs instead of failing the command.
func closeApp(a *app) {
	if err := a.Close(); err != nil {
		log.Printf("[ERROR] %v", err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeResults(w io.Writer, results []scanner.MatchResult, threshold float64) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		title := r.Title
		if r.AnimeID == 0 {
			title = "(no match)"
		} else if r.Confidence < threshold {
			title += " (below threshold)"
		}
		rows = append(rows, []string{
			r.PathOrTitle, strconv.Itoa(r.AnimeID), formatEpisode(r.Episode, r.Length),
			fmt.Sprintf("%.3f", r.Confidence), title,
		})
	}
	writeTable(w, []string{"INPUT", "ID", "EPISODE", "CONFIDENCE", "TITLE"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft})
}

func writeFeedResults(w io.Writer, results []scanner.FeedResult) {
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		kind := "episode"
		if r.Batch.Batch {
			kind = "batch"
		}
		res := "-"
		if r.Resolution > 0 {
			res = fmt.Sprintf("%dp", r.Resolution)
		}
		size := r.Size
		if n, ok := batch.ParseSize(r.Size); ok {
			size = humanize.IBytes(n)
		}
		if size == "" {
			size = "-"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%s (%s)", kind, r.Batch.Reason), strconv.Itoa(r.AnimeID),
			formatEpisode(r.Episode, r.Length), fmt.Sprintf("%.3f", r.Confidence), res, size, r.PathOrTitle,
		})
	}
	writeTable(w, []string{"KIND", "ID", "EPISODE", "CONFIDENCE", "RES", "SIZE", "TITLE"}, rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft})
}

func writeRecord(w io.Writer, res scanner.MatchResult, rec scanner.WorkingRecord) {
	fmt.Fprintf(w, "%s\n", res.PathOrTitle)
	fmt.Fprintf(w, "  prepared:   %s\n", rec.Prepared)
	fmt.Fprintf(w, "  normalized: %s\n", rec.Normalized)
	fmt.Fprintf(w, "  episode:    %s (%s)\n", formatEpisode(rec.Episode, rec.Length), rec.Tier)
	if rec.Retried {
		fmt.Fprintln(w, "  retried on the text before \" - \"")
	}
	metrics := make([]string, 0, len(rec.BestPerMetric))
	for m, c := range rec.BestPerMetric {
		metrics = append(metrics, fmt.Sprintf("  %-20s %d %.3f %s", m.String()+":", c.ID, c.Score, c.Title))
	}
	sort.Strings(metrics)
	for _, line := range metrics {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "  result:     id=%d ep=%d confidence=%.3f %s\n\n", res.AnimeID, res.Episode, res.Confidence, res.Title)
}

// formatEpisode renders an episode and, for ranges, its last episode.
func formatEpisode(ep, length int) string {
	switch {
	case ep == 0:
		return "-"
	case length > 1:
		return fmt.Sprintf("%d-%d", ep, ep+length-1)
	default:
		return strconv.Itoa(ep)
	}
}

// formatEpisodes collapses sorted episode numbers into ranges: "1-3, 5".
func formatEpisodes(eps []int) string {
	if len(eps) == 0 {
		return "-"
	}
	var parts []string
	start, prev := eps[0], eps[0]
	flush := func() {
		if start == prev {
			parts = append(parts, strconv.Itoa(start))
		} else {
			parts = append(parts, fmt.Sprintf("%d-%d", start, prev))
		}
	}
	for _, ep := range eps[1:] {
		if ep == prev+1 {
			prev = ep
			continue
		}
		flush()
		start, prev = ep, ep
	}
	flush()
	return strings.Join(parts, ", ")
}

// readLines returns the non-blank lines of r.
func readLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	return lines, nil
}
