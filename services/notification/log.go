package notification

import (
	"context"

	"moveo/models"

	"go.uber.org/zap"
)

// LogSender writes notifications to the log. Used in development.
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.With(zap.String("component", "notification"))}
}

func (s *LogSender) Send(_ context.Context, n models.Notification) error {
	s.logger.Info("notification",
		zap.String("provider_id", n.ProviderID),
		zap.String("type", n.Type),
		zap.String("title", n.Title),
		zap.String("body", n.Body),
		zap.Any("data", n.Data))
	return nil
}
