// file: cmd/diagnostics.go
// version: 2.0.0
// guid: c8f6a0d4-2a8b-48cf-9d08-02cc9915d9fc

package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/pebble/v2"
	"github.com/dustin/go-humanize"
	"github.com/jdfalk/anime-organizer/internal/config"
	"github.com/jdfalk/anime-organizer/internal/database"
	"github.com/spf13/cobra"
)

var (
	diagnosticsCmd = &cobra.Command{
		Use:   "diagnostics",
		Short: "Debugging and cleanup helpers",
		Long:  "Diagnostic utilities for inspecting and repairing the organizer database.",
	}

	cleanupCmd = &cobra.Command{
		Use:   "cleanup-missing",
		Short: "Forget known files that no longer exist on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("yes")
			dryRun, _ := cmd.Flags().GetBool("dry-run")
			return runCleanupMissingFiles(cmd.OutOrStdout(), force, dryRun)
		},
	}

	queryCmd = &cobra.Command{
		Use:   "query",
		Short: "Inspect stored known-file records",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			prefix, _ := cmd.Flags().GetString("prefix")
			raw, _ := cmd.Flags().GetBool("raw")
			return runDiagnosticsQuery(cmd.OutOrStdout(), limit, prefix, raw)
		},
	}

	scansCmd = &cobra.Command{
		Use:   "scans",
		Short: "List recent folder scans",
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			return runListScans(cmd.OutOrStdout(), limit)
		},
	}
)

func init() {
	cleanupCmd.Flags().Bool("yes", false, "Skip confirmation prompt")
	cleanupCmd.Flags().Bool("dry-run", false, "List missing files without forgetting them")

	queryCmd.Flags().Int("limit", 5, "Number of records to display")
	queryCmd.Flags().String("prefix", "anime:", "Key prefix to inspect when --raw is set")
	queryCmd.Flags().Bool("raw", false, "Show raw Pebble key/value data (Pebble only)")

	scansCmd.Flags().Int("limit", 10, "Number of scans to display")

	diagnosticsCmd.AddCommand(cleanupCmd)
	diagnosticsCmd.AddCommand(queryCmd)
	diagnosticsCmd.AddCommand(scansCmd)
}

func openDiagnosticsStore() (database.Store, error) {
	store, err := database.Open(
		config.AppConfig.DatabaseType,
		config.AppConfig.DatabasePath,
		config.AppConfig.EnableSQLite,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

func runCleanupMissingFiles(w io.Writer, force, dryRun bool) error {
	store, err := openDiagnosticsStore()
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Fprintf(w, "Inspecting known files in %s (%s)\n", config.AppConfig.DatabasePath, config.AppConfig.DatabaseType)

	files, err := store.ListKnownFiles()
	if err != nil {
		return fmt.Errorf("failed to list known files: %w", err)
	}
	var missing []database.KnownFile
	for _, kf := range files {
		if _, err := os.Stat(kf.Path); errors.Is(err, os.ErrNotExist) {
			missing = append(missing, kf)
		}
	}

	if len(missing) == 0 {
		fmt.Fprintln(w, "No missing files detected.")
		return nil
	}

	fmt.Fprintf(w, "Found %d missing files:\n", len(missing))
	for i, kf := range missing {
		fmt.Fprintf(w, "%2d. %s\n", i+1, kf.Path)
		fmt.Fprintf(w, "    Anime: %d  Episode: %d\n", kf.AnimeID, kf.Episode)
	}

	if dryRun {
		fmt.Fprintln(w, "Dry run enabled; nothing was forgotten.")
		return nil
	}

	if !force {
		confirmed, err := promptYesNo(fmt.Sprintf("Forget %d files", len(missing)))
		if err != nil {
			return err
		}
		if !confirmed {
			fmt.Fprintln(w, "Aborted. No records deleted.")
			return nil
		}
	}

	deleted := 0
	for _, kf := range missing {
		if err := store.DeleteKnownFile(kf.Path); err != nil {
			fmt.Fprintf(w, "Failed to forget %s: %v\n", kf.Path, err)
			continue
		}
		deleted++
	}

	fmt.Fprintf(w, "Forgot %d files. The next scan drops them from the library index.\n", deleted)
	return nil
}

func runDiagnosticsQuery(w io.Writer, limit int, prefix string, raw bool) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	if raw {
		if config.AppConfig.DatabaseType != "pebble" {
			return fmt.Errorf("raw inspection is only available for Pebble databases")
		}
		return runRawPebbleQuery(w, limit, prefix)
	}

	store, err := openDiagnosticsStore()
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := store.ListKnownFiles()
	if err != nil {
		return fmt.Errorf("failed to list known files: %w", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(w, "No known files found.")
		return nil
	}

	for i, kf := range files {
		if i >= limit {
			break
		}
		fmt.Fprintf(w, "%2d. Path: %s\n", i+1, kf.Path)
		fmt.Fprintf(w, "    Key: %s\n", database.KnownFileKey(kf.Path))
		fmt.Fprintf(w, "    Anime: %d  Episode: %d  Confidence: %.3f\n", kf.AnimeID, kf.Episode, kf.Confidence)
		fmt.Fprintf(w, "    Size: %s  Modified: %s\n", humanize.IBytes(uint64(kf.Size)), time.Unix(0, kf.ModTime).Format(time.RFC3339))
		fmt.Fprintln(w, "---")
	}

	return nil
}

func runListScans(w io.Writer, limit int) error {
	if limit <= 0 {
		return errors.New("limit must be positive")
	}

	store, err := openDiagnosticsStore()
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.ListScanRecords(limit)
	if err != nil {
		return fmt.Errorf("failed to list scans: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "No scans recorded.")
		return nil
	}

	for _, r := range records {
		fmt.Fprintf(w, "%s  %s (%s)\n", r.ID, r.StartedAt.Local().Format(time.RFC3339), humanize.Time(r.StartedAt))
		fmt.Fprintf(w, "    %s files: %d matched, %d unmatched, %d unchanged, %d excluded in %s\n",
			humanize.Comma(int64(r.Files)), r.Matched, r.Unmatched, r.Skipped, r.Excluded, r.Duration.Round(time.Millisecond))
	}
	return nil
}

func runRawPebbleQuery(w io.Writer, limit int, prefix string) error {
	db, err := pebble.Open(config.AppConfig.DatabasePath, &pebble.Options{
		FormatMajorVersion: pebble.FormatNewest,
	})
	if err != nil {
		return fmt.Errorf("failed to open Pebble database: %w", err)
	}
	defer db.Close()

	iterOpts := &pebble.IterOptions{}
	if prefix != "" {
		iterOpts.LowerBound = []byte(prefix)
		iterOpts.UpperBound = append([]byte(prefix), 0xFF)
	}

	iter, err := db.NewIter(iterOpts)
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	count := 0
	for ok := iter.First(); ok && iter.Valid(); ok = iter.Next() {
		fmt.Fprintf(w, "Key: %s\n", string(iter.Key()))
		val := iter.Value()
		fmt.Fprintf(w, "Value length: %s\n", humanize.IBytes(uint64(len(val))))
		fmt.Fprintf(w, "Value preview: %s\n", truncateString(string(val), 500))
		fmt.Fprintln(w, "---")

		count++
		if count >= limit {
			break
		}
	}

	if err := iter.Error(); err != nil {
		return fmt.Errorf("iterator error: %w", err)
	}

	if count == 0 {
		fmt.Fprintln(w, "No keys matched the requested prefix.")
	}

	return nil
}

func promptYesNo(action string) (bool, error) {
	fmt.Printf("%s? Type 'yes' to confirm: ", action)
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false, err
	}
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "yes", nil
}

func truncateString(in string, max int) string {
	if len(in) <= max {
		return in
	}
	return in[:max] + "..."
}
