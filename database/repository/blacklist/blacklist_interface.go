package blacklistRepo

import (
	"context"
	"errors"
	"time"

	"moveo/models"
)

var ErrNotFound = errors.New("blacklist entry not found")

// BlacklistRepository stores refusal counters and bans per provider.
type BlacklistRepository interface {
	// IncrementRefusalCounter atomically bumps the counter unless roundKey was
	// already counted. counted is false for a repeated round key.
	IncrementRefusalCounter(ctx context.Context, providerID, roundKey string, now time.Time) (entry *models.BlacklistEntry, counted bool, err error)
	// Activate flips isActive from false to true. Reports whether this call did the flip.
	Activate(ctx context.Context, providerID, reason string, now time.Time) (bool, error)
	// ResetRefusals zeroes the counter and clears counted rounds.
	ResetRefusals(ctx context.Context, providerID string, now time.Time) error
	// Lift deactivates a ban and zeroes the counter.
	Lift(ctx context.Context, providerID string, now time.Time) error
	// Get returns the entry or ErrNotFound.
	Get(ctx context.Context, providerID string) (*models.BlacklistEntry, error)
	// ListActive returns the active entries among providerIDs.
	ListActive(ctx context.Context, providerIDs []string) ([]models.BlacklistEntry, error)
}
