package notification

import (
	"context"
	"fmt"

	"moveo/models"
	"moveo/services/tasks"
)

// AsynqSender enqueues notifications; the cron worker delivers them.
type AsynqSender struct {
	client tasks.Enqueuer
}

func NewAsynqSender(client tasks.Enqueuer) *AsynqSender {
	return &AsynqSender{client: client}
}

func (s *AsynqSender) Send(ctx context.Context, n models.Notification) error {
	task, opts, err := tasks.NewNotifyTask(n)
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}
