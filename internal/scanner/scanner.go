// file: internal/scanner/scanner.go
// version: 2.1.0
// guid: 3c4d5e6f-7a8b-9c0d-1e2f-3a4b5c6d7e8f

package scanner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jdfalk/anime-organizer/internal/database"
	"github.com/jdfalk/anime-organizer/internal/matcher"
	"github.com/jdfalk/anime-organizer/internal/metrics"
	"github.com/jdfalk/anime-organizer/internal/normalize"
	"github.com/schollz/progressbar/v3"
)

// ScanReport summarizes one ScanFolders run.
type ScanReport struct {
	ID           string
	StartedAt    time.Time
	Results      []MatchResult
	Matched      int
	Unmatched    int
	Skipped      int
	Excluded     int
	Removed      int
	MissingRoots []string
	Duration     time.Duration
}

// videoFile is a file found by the walk.
type videoFile struct {
	path    string
	name    string
	size    int64
	modTime time.Time
}

// ScanFolders walks roots, identifies every video file and records accepted
// matches in the library index. Missing roots are logged and skipped.
func (p *Pipeline) ScanFolders(ctx context.Context, roots []string) (*ScanReport, error) {
	return p.ScanFoldersWithProgress(ctx, roots, nil)
}

// ScanFoldersWithProgress is ScanFolders with a progress bar written to w.
func (p *Pipeline) ScanFoldersWithProgress(ctx context.Context, roots []string, w io.Writer) (*ScanReport, error) {
	started := time.Now()
	report := &ScanReport{ID: database.NewScanID(started), StartedAt: started}

	files, err := p.collect(ctx, roots, report)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] scan %s: %d video files to identify (%d excluded, %d unchanged)",
		report.ID, len(files), report.Excluded, report.Skipped)

	results, err := p.identifyFiles(ctx, files, w)
	if err != nil {
		return nil, err
	}

	for i, res := range results {
		f := files[i]
		if res.AnimeID != 0 && res.Confidence >= p.opts.Threshold {
			report.Matched++
			metrics.IncFilesScanned("matched")
			if p.withinCount(res.AnimeID, res.Episode) {
				p.library.Add(res.AnimeID, res.Episode, f.path, res.Confidence)
			} else {
				log.Printf("[WARN] %s: episode %d is past the end of anime %d, not indexed", f.name, res.Episode, res.AnimeID)
			}
		} else {
			report.Unmatched++
			metrics.IncFilesScanned("unmatched")
			log.Printf("[DEBUG] %s: no match above %.2f (best %d at %.3f)", f.name, p.opts.Threshold, res.AnimeID, res.Confidence)
		}
		if p.history != nil {
			err := p.history.PutKnownFile(database.KnownFile{
				Path:       f.path,
				Size:       f.size,
				ModTime:    f.modTime.UnixNano(),
				AnimeID:    res.AnimeID,
				Episode:    res.Episode,
				Confidence: res.Confidence,
			})
			if err != nil {
				log.Printf("[WARN] failed to record known file %s: %v", f.path, err)
			}
		}
	}
	report.Results = results
	report.Removed = p.removeMissing()
	report.Duration = time.Since(started)
	metrics.ObserveScanDuration(report.Duration)

	if p.history != nil {
		err := p.history.SaveScanRecord(database.ScanRecord{
			ID:        report.ID,
			StartedAt: started,
			Duration:  report.Duration,
			Files:     len(files),
			Matched:   report.Matched,
			Unmatched: report.Unmatched,
			Excluded:  report.Excluded,
			Skipped:   report.Skipped,
		})
		if err != nil {
			log.Printf("[WARN] failed to save scan record: %v", err)
		}
	}

	log.Printf("[INFO] scan %s finished in %s: %d matched, %d unmatched, %d removed",
		report.ID, report.Duration.Round(time.Millisecond), report.Matched, report.Unmatched, report.Removed)
	return report, nil
}

// collect walks every root and returns the files that need identifying,
// sorted by path.
func (p *Pipeline) collect(ctx context.Context, roots []string, report *ScanReport) ([]videoFile, error) {
	exts := make(map[string]bool, len(p.opts.VideoExtensions))
	for _, e := range p.opts.VideoExtensions {
		exts["."+strings.TrimPrefix(strings.ToLower(e), ".")] = true
	}

	var files []videoFile
	seenInodes := make(map[uint64]string)

	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			log.Printf("[WARN] skipping anime folder %s: not a readable directory", root)
			report.MissingRoots = append(report.MissingRoots, root)
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				log.Printf("[WARN] cannot read %s: %v", path, err)
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !exts[strings.ToLower(filepath.Ext(path))] {
				return nil
			}

			name := d.Name()
			if normalize.IsExtraVideo(name) {
				report.Excluded++
				metrics.IncFilesScanned("excluded")
				return nil
			}

			fi, err := d.Info()
			if err != nil {
				log.Printf("[WARN] cannot stat %s: %v", path, err)
				return nil
			}
			if ino, ok := getInode(fi); ok && ino != 0 {
				if first, dup := seenInodes[ino]; dup {
					log.Printf("[DEBUG] %s is a hard link of %s", path, first)
					report.Skipped++
					return nil
				}
				seenInodes[ino] = path
			}
			if p.isKnown(path, fi) {
				report.Skipped++
				metrics.IncFilesScanned("known")
				return nil
			}

			files = append(files, videoFile{path: path, name: name, size: fi.Size(), modTime: fi.ModTime()})
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			log.Printf("[WARN] error walking %s: %v", root, err)
		}
	}

	sort.Slice(files, func(i, j int) bool { return files[i].path < files[j].path })
	return files, nil
}

// isKnown reports whether an earlier scan accepted a match for path and the
// file has not changed since. Such files are re-added to the index. Files
// stored without an accepted match are identified again, since the catalog
// may have grown since then.
func (p *Pipeline) isKnown(path string, fi fs.FileInfo) bool {
	if p.history == nil || p.opts.FullScan {
		return false
	}
	kf, err := p.history.GetKnownFile(path)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Printf("[WARN] known file lookup failed for %s: %v", path, err)
		}
		return false
	}
	if !kf.Unchanged(fi.Size(), fi.ModTime()) {
		return false
	}
	if kf.AnimeID == 0 || kf.Confidence < p.opts.Threshold {
		return false
	}
	if p.withinCount(kf.AnimeID, kf.Episode) {
		p.library.Add(kf.AnimeID, kf.Episode, path, kf.Confidence)
	}
	return true
}

// identifyFiles scores files in parallel, then resolves them once the
// catalog chains they need are resident.
func (p *Pipeline) identifyFiles(ctx context.Context, files []videoFile, w io.Writer) ([]MatchResult, error) {
	if len(files) == 0 {
		return nil, nil
	}
	if w == nil {
		w = io.Discard
	}
	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("identifying"),
		progressbar.OptionShowCount(),
	)
	defer bar.Finish()

	records := make([]WorkingRecord, len(files))
	found := make([]matcher.Match, len(files))
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, p.opts.Workers)

	for i := range files {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		default:
		}

		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			semaphore <- struct{}{} // Acquire
			defer func() {
				<-semaphore // Release
				bar.Add(1)
			}()

			rec := prepare(files[idx].name)
			found[idx] = p.retryBeforeDash(&rec, p.matcher.Match(rec.Normalized))
			records[idx] = rec
		}(i)
	}
	wg.Wait()

	ids := make([]int, len(found))
	for i, m := range found {
		ids[i] = m.ID
	}
	p.prefetch(ctx, ids)

	results := make([]MatchResult, len(files))
	for i := range files {
		results[i] = p.finish(files[i].path, &records[i], found[i])
	}
	return results, nil
}

// removeMissing drops index entries and known files whose file is gone.
func (p *Pipeline) removeMissing() int {
	exists := func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}
	removed := p.library.RemoveMissing(exists)
	if p.history == nil {
		return removed
	}
	known, err := p.history.ListKnownFiles()
	if err != nil {
		log.Printf("[WARN] failed to list known files: %v", err)
		return removed
	}
	for _, kf := range known {
		if exists(kf.Path) {
			continue
		}
		if err := p.history.DeleteKnownFile(kf.Path); err != nil {
			log.Printf("[WARN] failed to forget %s: %v", kf.Path, err)
		}
	}
	return removed
}

// String renders a one-line summary.
func (r *ScanReport) String() string {
	return fmt.Sprintf("%d matched, %d unmatched, %d unchanged, %d excluded, %d removed in %s",
		r.Matched, r.Unmatched, r.Skipped, r.Excluded, r.Removed, r.Duration.Round(time.Millisecond))
}
