package notification

import (
	"context"

	"moveo/models"
)

// Dispatcher hands notifications to providers. Notify never blocks on
// delivery and never reports delivery errors to the caller.
type Dispatcher interface {
	Notify(ctx context.Context, providerID string, n models.Notification)
}

// Sender delivers a single notification over one transport.
type Sender interface {
	Send(ctx context.Context, n models.Notification) error
}
