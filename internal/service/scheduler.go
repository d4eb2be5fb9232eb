package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"time"

	"github.com/waycms/waycms/internal/adapter/ws"
	"github.com/waycms/waycms/internal/domain"
	"github.com/waycms/waycms/internal/domain/backup"
	"github.com/waycms/waycms/internal/port/broadcast"
	"github.com/waycms/waycms/internal/port/database"
)

// Scheduler runs the daily backup sweep: one full-tree automatic backup per
// project, followed by retention pruning of each site's automatic lineage.
type Scheduler struct {
	store   database.Store
	sites   *Sites
	backups *BackupService
	hour    int
	hub     broadcast.Broadcaster
	logger  *slog.Logger
	now     func() time.Time
}

// NewScheduler creates a scheduler firing daily at the given UTC hour.
func NewScheduler(store database.Store, sites *Sites, backups *BackupService, hour int, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		store:   store,
		sites:   sites,
		backups: backups,
		hour:    hour,
		logger:  logger,
		now:     time.Now,
	}
}

// SetBroadcaster wires the optional event hub.
func (s *Scheduler) SetBroadcaster(h broadcast.Broadcaster) { s.hub = h }

// Run blocks until ctx is cancelled. A sweep runs immediately at startup to
// cover downtime across the scheduled hour, then once per day at the
// configured hour.
func (s *Scheduler) Run(ctx context.Context) {
	s.Sweep(ctx)

	for {
		next := nextRun(s.now(), s.hour)
		s.logger.Info("scheduler sleeping", "next_run", next)

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.Sweep(ctx)
		}
	}
}

// nextRun returns the next occurrence of hour:00:00 UTC strictly after now.
func nextRun(now time.Time, hour int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Sweep backs up and prunes every project once. Per-site failures are logged
// and counted; they never abort the sweep.
func (s *Scheduler) Sweep(ctx context.Context) {
	started := s.now()

	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		s.logger.Error("scheduler: list projects", "error", err)
		return
	}

	var created, pruned, failed int
	for _, p := range projects {
		if err := ctx.Err(); err != nil {
			return
		}

		root, err := s.sites.Root(p.Slug)
		if err != nil {
			// A project whose site directory was never populated has
			// nothing to back up.
			if errors.Is(err, domain.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
				continue
			}
			s.logger.Error("scheduler: resolve site", "site", p.Slug, "error", err)
			failed++
			continue
		}

		if _, err := s.backups.Create(ctx, p.Slug, root, "", backup.AutoLabel); err != nil {
			s.logger.Error("scheduler: backup site", "site", p.Slug, "error", err)
			failed++
		} else {
			created++
		}

		removed, err := s.backups.Prune(ctx, p.Slug)
		if err != nil {
			s.logger.Error("scheduler: prune site", "site", p.Slug, "error", err)
			failed++
			continue
		}
		pruned += len(removed)
	}

	elapsed := s.now().Sub(started)
	s.logger.Info("scheduler sweep done",
		"sites", len(projects), "created", created, "pruned", pruned, "failed", failed,
		"duration", elapsed)

	if s.hub != nil {
		s.hub.BroadcastEvent(ctx, ws.EventSchedulerRun, ws.SchedulerRunEvent{
			Sites:    len(projects),
			Created:  created,
			Pruned:   pruned,
			Failed:   failed,
			FiredAt:  started.UTC(),
			Duration: elapsed.String(),
		})
	}
}
