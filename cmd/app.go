// file: cmd/app.go
// version: 1.1.0
// guid: 7f7e1bdc-e88f-4905-87fb-802835622b0d

package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/jdfalk/anime-organizer/internal/batch"
	"github.com/jdfalk/anime-organizer/internal/catalog"
	"github.com/jdfalk/anime-organizer/internal/config"
	"github.com/jdfalk/anime-organizer/internal/database"
	"github.com/jdfalk/anime-organizer/internal/matcher"
	"github.com/jdfalk/anime-organizer/internal/scanner"
)

// offline disables remote catalog requests.
var offline bool

// app bundles the state one command works on. The catalog and library are
// loaded from the database on open and written back on Close.
type app struct {
	db       database.Store
	catalog  *catalog.Store
	pipeline *scanner.Pipeline
}

// newFetcher builds the AniList client from configuration, or nil offline.
func newFetcher(cfg config.Config) catalog.Fetcher {
	if offline {
		return nil
	}
	client := catalog.NewAniListClientWithBaseURL(cfg.AniListURL)
	client.SetRequestsPerMinute(cfg.AniListRequestsPerMinute)
	client.SetChunkSize(cfg.AniListChunkSize)
	return client
}

// pipelineOptions maps configuration onto scanner options.
func pipelineOptions(cfg config.Config) scanner.Options {
	opts := scanner.DefaultOptions()
	opts.Threshold = cfg.SimilarityThreshold
	if len(cfg.VideoExtensions) > 0 {
		opts.VideoExtensions = cfg.VideoExtensions
	}
	if p, ok := matcher.ParsePolicy(cfg.MatcherPolicy); ok {
		opts.Policy = p
	}
	opts.MemoTTL = cfg.MemoTTL
	opts.FirstCharPrefilter = cfg.FirstCharPrefilter
	opts.Rewind = cfg.RewindToFirstPrequel
	opts.FixSingleEpisode = cfg.FixSingleEpisode
	opts.PreDashRetry = cfg.PreDashRetry
	opts.Workers = cfg.ScanWorkers
	if n, ok := batch.ParseSize(cfg.BatchSizeThreshold); ok {
		opts.BatchSizeThreshold = n
	}
	if len(cfg.WindowTitleSuffixes) > 0 {
		opts.WindowSuffixes = cfg.WindowTitleSuffixes
	}
	opts.FullScan = fullScan
	return opts
}

// openApp opens the database and restores the catalog and library index.
func openApp(cfg config.Config) (*app, error) {
	db, err := database.Open(cfg.DatabaseType, cfg.DatabasePath, cfg.EnableSQLite)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	log.Printf("[DEBUG] Using database: %s (%s)", cfg.DatabasePath, cfg.DatabaseType)

	store := catalog.NewStore(newFetcher(cfg))
	if err := store.Load(db); err != nil {
		db.Close()
		return nil, err
	}

	p := scanner.New(store, pipelineOptions(cfg))
	p.SetHistory(db)
	snapshot, err := db.LoadLibrary()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load library index: %w", err)
	}
	p.Library().Restore(snapshot)

	return &app{db: db, catalog: store, pipeline: p}, nil
}

// Close flushes the catalog and library index and closes the database.
func (a *app) Close() error {
	var errs []error
	if err := a.catalog.Flush(a.db); err != nil {
		errs = append(errs, err)
	}
	if err := a.db.SaveLibrary(a.pipeline.Library().Snapshot()); err != nil {
		errs = append(errs, fmt.Errorf("failed to save library index: %w", err))
	}
	if err := a.db.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	}
	return errors.Join(errs...)
}
