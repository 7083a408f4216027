package notification

import (
	"context"
	"sync"
	"time"

	"moveo/metrics"
	"moveo/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sendTimeout = 10 * time.Second

// AsyncDispatcher queues notifications on a bounded channel drained by a
// fixed pool of workers. A full queue drops the notification.
type AsyncDispatcher struct {
	sender Sender
	queue  chan models.Notification
	logger *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewAsyncDispatcher(sender Sender, queueSize, workers int, logger *zap.Logger) *AsyncDispatcher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if workers <= 0 {
		workers = 4
	}
	d := &AsyncDispatcher{
		sender: sender,
		queue:  make(chan models.Notification, queueSize),
		logger: logger.With(zap.String("component", "notification")),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	return d
}

func (d *AsyncDispatcher) Notify(_ context.Context, providerID string, n models.Notification) {
	n.ProviderID = providerID
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, notification dropped",
			zap.String("provider_id", providerID), zap.String("type", n.Type))
		metrics.NotificationsDropped.Inc()
		return
	}
	select {
	case d.queue <- n:
	default:
		d.logger.Warn("notification queue full, dropping",
			zap.String("provider_id", providerID), zap.String("type", n.Type))
		metrics.NotificationsDropped.Inc()
	}
}

func (d *AsyncDispatcher) worker() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *AsyncDispatcher) deliver(n models.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()
	if err := d.sender.Send(ctx, n); err != nil {
		d.logger.Error("failed to send notification",
			zap.String("provider_id", n.ProviderID),
			zap.String("type", n.Type),
			zap.Error(err))
		metrics.NotificationsFailed.WithLabelValues(n.Type).Inc()
		return
	}
	metrics.NotificationsSent.WithLabelValues(n.Type).Inc()
}

// Close stops accepting notifications and waits for queued ones to be sent.
func (d *AsyncDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
