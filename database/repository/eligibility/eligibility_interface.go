package eligibilityRepo

import (
	"context"
	"errors"
	"time"

	"moveo/models"
)

var ErrNotFound = errors.New("eligibility response not found")

// EligibilityRepository stores one record per (attribution, provider, round)
// invitation and its outcome.
type EligibilityRepository interface {
	// RecordInvitations inserts pending records; existing records are left untouched.
	RecordInvitations(ctx context.Context, responses []models.EligibilityResponse) error
	// Get returns a single record or ErrNotFound.
	Get(ctx context.Context, attributionID, providerID string, round int) (*models.EligibilityResponse, error)
	// Resolve moves a record from one of the outcomes in from to to.
	// It reports false when the record is missing or already resolved.
	Resolve(ctx context.Context, attributionID, providerID string, round int, from []models.ResponseOutcome, to models.ResponseOutcome, reason string, at time.Time) (bool, error)
	// ResolvePending moves every pending record of the round, except the one
	// of exceptProviderID, to outcome.
	ResolvePending(ctx context.Context, attributionID string, round int, exceptProviderID string, to models.ResponseOutcome, at time.Time) (int64, error)
	CountPending(ctx context.Context, attributionID string, round int) (int64, error)
	ListByRound(ctx context.Context, attributionID string, round int) ([]models.EligibilityResponse, error)
	ListByAttribution(ctx context.Context, attributionID string) ([]models.EligibilityResponse, error)
}
