package service

import (
	"context"
	"fmt"
	"os"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/waycms/waycms/internal/adapter/otel"
	"github.com/waycms/waycms/internal/adapter/ws"
	"github.com/waycms/waycms/internal/domain/backup"
	"github.com/waycms/waycms/internal/domain/content"
	"github.com/waycms/waycms/internal/domain/search"
	"github.com/waycms/waycms/internal/filelock"
	"github.com/waycms/waycms/internal/port/broadcast"
	"github.com/waycms/waycms/internal/sandbox"
)

// SearchService runs search-replace requests over a site tree.
type SearchService struct {
	maxFileBytes int64
	workers      int
	backups      *BackupService
	hub          broadcast.Broadcaster
	metrics      *otel.Metrics
	invalidate   func() // clears the editor read cache after a commit
}

// NewSearchService creates a SearchService. workers bounds the number of
// files scanned concurrently.
func NewSearchService(maxFileBytes int64, workers int, backups *BackupService) *SearchService {
	if workers < 1 {
		workers = 1
	}
	return &SearchService{maxFileBytes: maxFileBytes, workers: workers, backups: backups}
}

// SetBroadcaster wires the optional event hub.
func (s *SearchService) SetBroadcaster(h broadcast.Broadcaster) { s.hub = h }

// SetMetrics wires the optional metric instruments.
func (s *SearchService) SetMetrics(m *otel.Metrics) { s.metrics = m }

// SetCacheInvalidator wires a hook that drops cached file content after a
// commit rewrites files.
func (s *SearchService) SetCacheInvalidator(fn func()) { s.invalidate = fn }

// Run executes one search-replace request against the site root. The spec is
// compiled before any file is touched; a compile failure fails the whole
// request. Per-file problems become report entries and never abort the batch.
// Results follow walker order. Dry runs read but never write.
func (s *SearchService) Run(ctx context.Context, site string, root *sandbox.Root, spec search.Spec) (*search.Report, error) {
	started := time.Now()

	pattern, err := spec.Compile()
	if err != nil {
		return nil, err
	}

	var entries []content.FileEntry
	err = content.Walk(root, pattern.Glob(), func(e content.FileEntry) error {
		entries = append(entries, e)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk site %s: %w", site, err)
	}

	// One slot per walked file keeps walker order; empty slots are files
	// with no matches and no errors.
	results := make([]search.FileResult, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, entry := range entries {
		i, entry := i, entry
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.processFile(site, root, pattern, entry)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &search.Report{DryRun: pattern.DryRun(), FilesScanned: len(entries)}
	changed := 0
	for i := range results {
		r := results[i]
		if r.File == "" {
			continue
		}
		if r.Saved != nil && *r.Saved {
			changed++
		}
		report.Results = append(report.Results, r)
	}

	if !pattern.DryRun() && changed > 0 && s.invalidate != nil {
		s.invalidate()
	}

	if s.metrics != nil {
		s.metrics.ReplaceRequests.Add(ctx, 1)
		s.metrics.FilesScanned.Add(ctx, int64(len(entries)))
		s.metrics.FilesRewritten.Add(ctx, int64(changed))
		s.metrics.ReplaceDuration.Record(ctx, time.Since(started).Seconds())
	}
	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventReplaceCompleted, ws.ReplaceCompletedEvent{
			Site:         site,
			DryRun:       report.DryRun,
			FilesScanned: report.FilesScanned,
			FilesChanged: changed,
			Errors:       report.Errored(),
		})
	}
	return report, nil
}

// processFile scans one file and, on a committed run with matches, rewrites
// it under the per-file lock with a backup taken first. A zero FileResult
// means the file matched nothing and is omitted from the report.
func (s *SearchService) processFile(site string, root *sandbox.Root, pattern *search.Pattern, entry content.FileEntry) search.FileResult {
	if entry.Size > s.maxFileBytes {
		return search.FileResult{File: entry.Path, Error: fmt.Sprintf("file exceeds %d bytes", s.maxFileBytes)}
	}
	if !content.Editable(entry.Name) {
		return search.FileResult{File: entry.Path, Error: "not an editable file type"}
	}

	abs, err := root.Resolve(entry.Path)
	if err != nil {
		return search.FileResult{File: entry.Path, Error: err.Error()}
	}

	data, err := os.ReadFile(abs) //nolint:gosec // G304: path came through the sandbox
	if err != nil {
		return search.FileResult{File: entry.Path, Error: "unreadable: " + err.Error()}
	}
	if !utf8.Valid(data) {
		return search.FileResult{File: entry.Path, Error: "binary or non-UTF-8 content"}
	}

	text := string(data)
	count := pattern.Count(text)
	if count == 0 {
		return search.FileResult{}
	}

	result := search.FileResult{
		File:       entry.Path,
		MatchCount: count,
		Preview:    pattern.Sample(text),
	}
	if pattern.DryRun() {
		return result
	}

	// Backup-then-rewrite is one critical section per file.
	saved := false
	err = filelock.WithLock(abs, func() error {
		if _, err := s.backups.Create(context.Background(), site, root, entry.Path, backup.AutoLabel); err != nil {
			return fmt.Errorf("backup before rewrite: %w", err)
		}
		perm := os.FileMode(0o644)
		if info, err := os.Stat(abs); err == nil {
			perm = info.Mode().Perm()
		}
		return filelock.AtomicWrite(abs, []byte(pattern.Apply(text)), perm)
	})
	if err != nil {
		result.Error = err.Error()
	} else {
		saved = true
	}
	result.Saved = &saved
	return result
}
