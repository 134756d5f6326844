// file: cmd/catalog.go
// version: 1.1.0
// guid: 8c772074-7b0a-47c6-8c18-b11422cd83a9

package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jdfalk/anime-organizer/internal/catalog"
	"github.com/jdfalk/anime-organizer/internal/config"
	"github.com/spf13/cobra"
)

var (
	catalogCmd = &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and manage the cached AniList catalog",
	}

	catalogFetchCmd = &cobra.Command{
		Use:   "fetch <anime-id>...",
		Short: "Fetch entries and their sequel chains into the local catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			a, err := openApp(config.AppConfig)
			if err != nil {
				return err
			}
			defer closeApp(a)

			before := a.catalog.Len()
			if err := a.catalog.Prefetch(cmd.Context(), ids); err != nil {
				return fmt.Errorf("fetch failed (%s): %w", catalog.Kind(err), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Catalog holds %d entries (%d new)\n", a.catalog.Len(), a.catalog.Len()-before)
			return nil
		},
	}

	catalogSearchCmd = &cobra.Command{
		Use:   "search <query>",
		Short: "Search cached titles",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			a, err := openApp(config.AppConfig)
			if err != nil {
				return err
			}
			defer closeApp(a)

			hits := a.catalog.Search(strings.Join(args, " "), limit)
			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "No entries found.")
				return nil
			}
			rows := make([][]string, 0, len(hits))
			for _, h := range hits {
				rows = append(rows, []string{
					strconv.Itoa(h.Entry.ID), string(h.Entry.Format), episodeCount(h.Entry), h.Entry.DisplayTitle(), h.Title,
				})
			}
			writeTable(out, []string{"ID", "FORMAT", "EPISODES", "TITLE", "MATCHED"}, rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft, alignLeft})
			return nil
		},
	}

	catalogShowCmd = &cobra.Command{
		Use:   "show <anime-id>",
		Short: "Show one catalog entry, fetching it when not cached",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args)
			if err != nil {
				return err
			}
			a, err := openApp(config.AppConfig)
			if err != nil {
				return err
			}
			defer closeApp(a)

			e, err := a.catalog.Get(cmd.Context(), ids[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), e)
			}
			writeEntry(cmd.OutOrStdout(), e)
			return nil
		},
	}

	catalogTitlesCmd = &cobra.Command{
		Use:   "titles <anime-id> [title...]",
		Short: "Set extra titles the matcher should recognize for an entry",
		Long: `Assign custom titles to a catalog entry. They are matched like the
official titles. Passing no titles clears them.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[:1])
			if err != nil {
				return err
			}
			a, err := openApp(config.AppConfig)
			if err != nil {
				return err
			}
			defer closeApp(a)

			// Custom titles are stored with the entry, so it must be resident.
			if _, err := a.catalog.Get(cmd.Context(), ids[0]); err != nil {
				return err
			}
			a.catalog.SetCustomTitles(ids[0], args[1:])
			fmt.Fprintf(cmd.OutOrStdout(), "Set %d custom title(s) for %d\n", len(args)-1, ids[0])
			return nil
		},
	}
)

func init() {
	catalogSearchCmd.Flags().Int("limit", 10, "maximum number of results (0 for all)")

	catalogCmd.AddCommand(catalogFetchCmd)
	catalogCmd.AddCommand(catalogSearchCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogTitlesCmd)
}

func parseIDs(args []string) ([]int, error) {
	ids := make([]int, 0, len(args))
	for _, arg := range args {
		id, err := strconv.Atoi(arg)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid anime id %q", arg)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func episodeCount(e catalog.Entry) string {
	if n, ok := e.EpisodeCount(); ok {
		return strconv.Itoa(n)
	}
	return "?"
}

func writeEntry(w io.Writer, e catalog.Entry) {
	fmt.Fprintf(w, "ID:       %d\n", e.ID)
	fmt.Fprintf(w, "Romaji:   %s\n", formatValue(e.Titles.Romaji))
	fmt.Fprintf(w, "English:  %s\n", formatValue(e.Titles.English))
	fmt.Fprintf(w, "Native:   %s\n", formatValue(e.Titles.Native))
	fmt.Fprintf(w, "Format:   %s\n", formatValue(string(e.Format)))
	fmt.Fprintf(w, "Episodes: %s\n", episodeCount(e))
	if len(e.Synonyms) > 0 {
		fmt.Fprintf(w, "Synonyms: %s\n", strings.Join(e.Synonyms, "; "))
	}
	if len(e.Custom) > 0 {
		fmt.Fprintf(w, "Custom:   %s\n", strings.Join(e.Custom, "; "))
	}
	for _, r := range e.Relations {
		fmt.Fprintf(w, "%-9s %d\n", strings.ToLower(string(r.Kind))+":", r.ID)
	}
}

// formatValue renders blank values as a placeholder.
func formatValue(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(empty)"
	}
	return v
}
