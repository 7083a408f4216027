package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"moveo/models"

	"github.com/hibiken/asynq"
)

const (
	TypeNotifyProvider     = "notification:send"
	TypeExpireAttribution  = "attribution:expire"
	QueueNotifications     = "notifications"
	QueueDeadlines         = "deadlines"
	notifyMaxRetry         = 5
	expireMaxRetry         = 10
	expireRetentionForDups = 24 * time.Hour
)

// ExpirePayload identifies the round whose deadline fired.
type ExpirePayload struct {
	AttributionID string `json:"attributionId"`
	Round         int    `json:"round"`
}

// NewNotifyTask wraps a provider notification for durable delivery.
func NewNotifyTask(n models.Notification) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(n)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeNotifyProvider, b)
	opts := []asynq.Option{asynq.Queue(QueueNotifications), asynq.MaxRetry(notifyMaxRetry)}
	return task, opts, nil
}

// NewExpireTask fires at the round deadline. The task id makes a second
// schedule of the same round a no-op.
func NewExpireTask(attributionID string, round int, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(ExpirePayload{AttributionID: attributionID, Round: round})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeExpireAttribution, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.Queue(QueueDeadlines),
		asynq.MaxRetry(expireMaxRetry),
		asynq.TaskID("expire:" + models.RoundKey(attributionID, round)),
		asynq.Retention(expireRetentionForDups),
	}
	return task, opts, nil
}

func ParseNotifyPayload(t *asynq.Task) (models.Notification, error) {
	var n models.Notification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return n, fmt.Errorf("decode %s payload: %w", t.Type(), err)
	}
	return n, nil
}

func ParseExpirePayload(t *asynq.Task) (ExpirePayload, error) {
	var p ExpirePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("decode %s payload: %w", t.Type(), err)
	}
	if p.AttributionID == "" {
		return p, fmt.Errorf("decode %s payload: missing attribution id", t.Type())
	}
	return p, nil
}

// Enqueuer is the part of *asynq.Client the schedulers use.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// DeadlineScheduler enqueues round-deadline tasks.
type DeadlineScheduler struct {
	client Enqueuer
}

func NewDeadlineScheduler(client Enqueuer) *DeadlineScheduler {
	return &DeadlineScheduler{client: client}
}

// ScheduleExpiry enqueues the expiry check of one round.
func (s *DeadlineScheduler) ScheduleExpiry(ctx context.Context, attributionID string, round int, at time.Time) error {
	task, opts, err := NewExpireTask(attributionID, round, at)
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) || errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue expiry task: %w", err)
	}
	return nil
}
