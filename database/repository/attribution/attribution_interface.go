package attributionRepo

import (
	"context"
	"errors"
	"time"

	"moveo/models"
)

var (
	// ErrNotFound is returned when no attribution has the requested id.
	ErrNotFound = errors.New("attribution not found")
	// ErrConditionNotMet is returned by CompareAndSwapStatus when the
	// attribution exists but no longer satisfies the transition guard.
	ErrConditionNotMet = errors.New("attribution transition condition not met")
	// ErrActiveExists is returned by Create when the service request already
	// has a non-terminal attribution.
	ErrActiveExists = errors.New("service request already has an active attribution")
)

// AttributionRepository persists attributions. Every state change goes
// through CompareAndSwapStatus so that concurrent callers race on a single
// conditional write.
type AttributionRepository interface {
	// Create inserts a new attribution. Returns ErrActiveExists if another
	// active attribution exists for the same service request.
	Create(ctx context.Context, a *models.Attribution) error
	// GetByID returns the attribution or ErrNotFound.
	GetByID(ctx context.Context, id string) (*models.Attribution, error)
	// GetActiveByServiceRequest returns the non-terminal attribution of a
	// service request or ErrNotFound.
	GetActiveByServiceRequest(ctx context.Context, serviceRequestID string) (*models.Attribution, error)
	// CompareAndSwapStatus applies t atomically if its conditions hold and
	// returns the updated attribution.
	CompareAndSwapStatus(ctx context.Context, id string, t Transition) (*models.Attribution, error)
	// AddExclusion adds providerID to the excluded set without changing status.
	AddExclusion(ctx context.Context, id, providerID string) error
	// ListExpired returns ids of broadcasting attributions whose deadline is at or before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]string, error)
}
