package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moveo/metrics"
	"moveo/utils"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	sweepLockName = "attribution-expiry-sweep"
	sweepLockTTL  = 25 * time.Second
)

// DueExpirer expires every round whose deadline has passed.
type DueExpirer interface {
	ExpireDue(ctx context.Context, limit int) (int, error)
}

// Sweeper periodically expires overdue rounds. It backs up the per-round
// deadline tasks. Only one instance sweeps at a time when a Locker is set.
type Sweeper struct {
	cron    *cron.Cron
	expirer DueExpirer
	locker  utils.Locker
	batch   int
	logger  *zap.Logger
}

func NewSweeper(expirer DueExpirer, locker utils.Locker, schedule string, batch int, logger *zap.Logger) (*Sweeper, error) {
	if batch <= 0 {
		batch = 100
	}
	s := &Sweeper{
		cron:    cron.New(cron.WithSeconds()),
		expirer: expirer,
		locker:  locker,
		batch:   batch,
		logger:  logger.With(zap.String("component", "expiry-sweeper")),
	}
	if _, err := s.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), sweepLockTTL)
		defer cancel()
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("expiry sweep failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("schedule expiry sweep %q: %w", schedule, err)
	}
	return s, nil
}

// Start runs the schedule until ctx is done.
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("expiry sweeper started")
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("expiry sweeper stopped")
}

// RunOnce expires overdue rounds in batches and returns how many it closed.
func (s *Sweeper) RunOnce(ctx context.Context) (int, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, sweepLockName, sweepLockTTL)
		if errors.Is(err, utils.ErrLockNotAcquired) {
			metrics.ExpirySweeps.WithLabelValues("skipped").Inc()
			return 0, nil
		}
		if err != nil {
			metrics.ExpirySweeps.WithLabelValues("failed").Inc()
			return 0, err
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				s.logger.Warn("failed to release sweep lock", zap.Error(err))
			}
		}()
	}

	total := 0
	for {
		n, err := s.expirer.ExpireDue(ctx, s.batch)
		total += n
		if err != nil {
			metrics.ExpirySweeps.WithLabelValues("failed").Inc()
			return total, err
		}
		if n < s.batch || ctx.Err() != nil {
			break
		}
	}
	metrics.ExpirySweeps.WithLabelValues("ran").Inc()
	if total > 0 {
		s.logger.Info("expired overdue rounds", zap.Int("count", total))
	}
	return total, nil
}
