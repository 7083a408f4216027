package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"moveo/services/attribution"
	"moveo/services/notification"
	"moveo/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// Expirer is the part of the coordinator the deadline tasks drive.
type Expirer interface {
	Expire(ctx context.Context, attributionID string) (*attribution.ExpiryResult, error)
}

// Worker consumes notification and round-deadline tasks.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

func NewWorker(redisOpt asynq.RedisClientOpt, sender notification.Sender, expirer Expirer, logger *zap.Logger) *Worker {
	logger = logger.With(zap.String("component", "worker"))
	srv := asynq.NewServer(
		redisOpt,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QueueDeadlines:     6,
				tasks.QueueNotifications: 4,
			},
			Logger:   logger.Sugar(),
			LogLevel: asynq.WarnLevel,
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeNotifyProvider, HandleNotifyTask(sender, logger))
	mux.HandleFunc(tasks.TypeExpireAttribution, HandleExpireTask(expirer, logger))

	return &Worker{server: srv, mux: mux, logger: logger}
}

// Run starts the worker, retrying with backoff while Redis is unreachable,
// and shuts it down when ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	const maxAttempts = 5
	for attempts := 1; ; attempts++ {
		err := w.server.Start(w.mux)
		if err == nil {
			break
		}
		w.logger.Error("failed to start worker",
			zap.Int("attempt", attempts), zap.Int("max_attempts", maxAttempts), zap.Error(err))
		if attempts == maxAttempts {
			return fmt.Errorf("start worker: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempts*2) * time.Second):
		}
	}
	w.logger.Info("worker started")
	<-ctx.Done()
	w.server.Shutdown()
	w.logger.Info("worker stopped")
	return nil
}

// HandleNotifyTask delivers one queued notification.
func HandleNotifyTask(sender notification.Sender, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		n, err := tasks.ParseNotifyPayload(task)
		if err != nil {
			logger.Error("invalid notification payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if err := sender.Send(ctx, n); err != nil {
			if errors.Is(err, notification.ErrNoPushToken) {
				logger.Warn("dropping notification without push token",
					zap.String("provider_id", n.ProviderID), zap.String("type", n.Type))
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			logger.Error("failed to deliver notification",
				zap.String("provider_id", n.ProviderID), zap.String("type", n.Type), zap.Error(err))
			return err
		}
		return nil
	}
}

// errNotDue makes asynq retry a deadline task that fired early.
var errNotDue = errors.New("round deadline not reached")

// HandleExpireTask closes a round whose deadline passed without acceptance.
func HandleExpireTask(expirer Expirer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseExpirePayload(task)
		if err != nil {
			logger.Error("invalid expiry payload", zap.Error(err))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		res, err := expirer.Expire(ctx, p.AttributionID)
		if errors.Is(err, attribution.ErrAttributionNotFound) {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		if err != nil {
			return err
		}
		if res.Outcome == attribution.OutcomeNotDue {
			// a later round has its own task
			if res.Attribution != nil && res.Attribution.BroadcastCount != p.Round {
				return nil
			}
			return errNotDue
		}
		logger.Debug("deadline task handled",
			zap.String("attribution_id", p.AttributionID),
			zap.Int("round", p.Round),
			zap.String("outcome", string(res.Outcome)))
		return nil
	}
}
