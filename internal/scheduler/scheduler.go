// Package scheduler drives the periodic collection and roll-up cadence.
// It is stateless: each tick runs its jobs against the current account list
// and the snapshot store's write-if-changed semantics absorb repeats.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/collector"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/core/rollup"
	"github.com/ASOBLEO3O2/ASOBLE-INSTAGRAM/internal/observability"
)

// Intervals are the three cadences the scheduler runs on. Zero disables a
// cadence.
type Intervals struct {
	Followers time.Duration
	Stories   time.Duration
	Daily     time.Duration
}

// Scheduler owns the tickers. The followers probe runs on the short cadence,
// stories on the hourly one, and the insights/media collectors plus the
// roll-up rebuild on the daily one.
type Scheduler struct {
	runner    *collector.Runner
	followers collector.Job
	stories   collector.Job
	daily     []collector.Job
	rollups   *rollup.Builder
	stores    []string
	intervals Intervals
	metrics   *observability.Metrics
}

func New(
	runner *collector.Runner,
	followers, stories collector.Job,
	daily []collector.Job,
	rollups *rollup.Builder,
	stores []string,
	intervals Intervals,
	metrics *observability.Metrics,
) *Scheduler {
	return &Scheduler{
		runner:    runner,
		followers: followers,
		stories:   stories,
		daily:     daily,
		rollups:   rollups,
		stores:    stores,
		intervals: intervals,
		metrics:   metrics,
	}
}

// Start begins the periodic cadences and blocks until the context is
// cancelled. An initial followers probe and roll-up rebuild run immediately
// so a fresh deployment serves data before the first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	slog.Info("[Scheduler] Starting collection scheduler",
		"followers_interval", s.intervals.Followers,
		"stories_interval", s.intervals.Stories,
		"daily_interval", s.intervals.Daily,
	)

	s.runJob(ctx, s.followers)
	s.rebuildRollups(ctx)

	// A disabled cadence gets a nil channel, which never fires in a select.
	var followersC, storiesC, dailyC <-chan time.Time
	if s.intervals.Followers > 0 {
		t := time.NewTicker(s.intervals.Followers)
		defer t.Stop()
		followersC = t.C
	}
	if s.intervals.Stories > 0 {
		t := time.NewTicker(s.intervals.Stories)
		defer t.Stop()
		storiesC = t.C
	}
	if s.intervals.Daily > 0 {
		t := time.NewTicker(s.intervals.Daily)
		defer t.Stop()
		dailyC = t.C
	}

	for {
		select {
		case <-followersC:
			s.runJob(ctx, s.followers)
		case <-storiesC:
			s.runJob(ctx, s.stories)
			s.rebuildRollups(ctx)
		case <-dailyC:
			for _, job := range s.daily {
				s.runJob(ctx, job)
			}
			s.rebuildRollups(ctx)
		case <-ctx.Done():
			slog.Info("[Scheduler] Stopping (context cancelled)")
			return nil
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context, job collector.Job) {
	if job == nil || ctx.Err() != nil {
		return
	}
	summary := s.runner.Run(ctx, job)
	if summary.AllFailed() {
		slog.Error("[Scheduler] Job failed for every account",
			"job", summary.Job, "run_id", summary.RunID, "errors", len(summary.Errors))
	}
}

func (s *Scheduler) rebuildRollups(ctx context.Context) {
	if s.rollups == nil || ctx.Err() != nil {
		return
	}
	start := time.Now()
	changed, err := s.rollups.Rebuild(ctx, s.stores)
	if s.metrics != nil {
		s.metrics.RollupBuildDuration.Observe(time.Since(start).Seconds())
		status := "ok"
		if err != nil {
			status = "error"
		}
		s.metrics.RollupBuildsTotal.WithLabelValues(status).Inc()
	}
	if err != nil {
		slog.Error("[Scheduler] Roll-up rebuild failed", "error", err)
		return
	}
	slog.Info("[Scheduler] Roll-up rebuild complete",
		"stores", len(s.stores), "documents_changed", changed, "elapsed", time.Since(start))
}
