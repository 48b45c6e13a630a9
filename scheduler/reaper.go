package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/Dosada05/match-arena/repositories"
	"github.com/Dosada05/match-arena/services"
	"github.com/go-co-op/gocron/v2"
)

const reaperInterval = 1 * time.Minute

// Reaper cancels matches that never reached confirmation within maxAge,
// refunding any entry fees already collected. Each cancellation goes through
// the regular lifecycle path, so the refund atomicity rules apply unchanged.
type Reaper struct {
	matchRepo repositories.MatchRepository
	lifecycle services.LifecycleService
	maxAge    time.Duration
	logger    *slog.Logger

	sched gocron.Scheduler
}

func NewReaper(
	matchRepo repositories.MatchRepository,
	lifecycle services.LifecycleService,
	maxAge time.Duration,
	logger *slog.Logger,
) *Reaper {
	return &Reaper{
		matchRepo: matchRepo,
		lifecycle: lifecycle,
		maxAge:    maxAge,
		logger:    logger,
	}
}

func (r *Reaper) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}
	r.sched = sched

	_, err = sched.NewJob(
		gocron.DurationJob(reaperInterval),
		gocron.NewTask(func() {
			r.sweep(context.Background())
		}),
	)
	if err != nil {
		return err
	}

	sched.Start()
	r.logger.Info("stale match reaper started",
		slog.Duration("interval", reaperInterval),
		slog.Duration("max_age", r.maxAge),
	)
	return nil
}

func (r *Reaper) Stop() {
	if r.sched != nil {
		if err := r.sched.Shutdown(); err != nil {
			r.logger.Warn("failed to shut down reaper scheduler", slog.Any("error", err))
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-r.maxAge)
	stale, err := r.matchRepo.ListStuckBefore(ctx, cutoff)
	if err != nil {
		r.logger.Error("reaper failed to list stale matches", slog.Any("error", err))
		return
	}

	for _, match := range stale {
		err := r.lifecycle.Cancel(ctx, services.SystemActor, match.ID)
		if err != nil {
			// Another request may have confirmed or cancelled the match between
			// the listing and the lock.
			if errors.Is(err, services.ErrMatchNotCancellable) || errors.Is(err, services.ErrMatchNotFound) {
				continue
			}
			r.logger.Error("reaper failed to cancel stale match",
				slog.Int("match_id", match.ID), slog.Any("error", err))
			continue
		}
		r.logger.Info("cancelled stale match",
			slog.Int("match_id", match.ID),
			slog.Time("created_at", match.CreatedAt),
		)
	}
}
