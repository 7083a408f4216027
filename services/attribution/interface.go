package attribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	attributionRepo "moveo/database/repository/attribution"
	bookingRepo "moveo/database/repository/booking"
	eligibilityRepo "moveo/database/repository/eligibility"
	"moveo/models"
	"moveo/services/geo"
	"moveo/services/notification"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// AttributionService drives a service request from payment to an accepted provider.
type AttributionService interface {
	Start(ctx context.Context, req StartRequest) (*StartResult, error)
	HandleAcceptance(ctx context.Context, attributionID, providerID string) (*AcceptResult, error)
	HandleRefusal(ctx context.Context, attributionID, providerID, reason string) (*RefusalResult, error)
	HandleCancellation(ctx context.Context, attributionID, providerID, reason string) (*CancellationResult, error)
	Expire(ctx context.Context, attributionID string) (*ExpiryResult, error)
	ExpireDue(ctx context.Context, limit int) (int, error)
	Complete(ctx context.Context, attributionID string) (*TransitionResult, error)
	Cancel(ctx context.Context, attributionID, reason string) (*TransitionResult, error)
	Get(ctx context.Context, attributionID string) (*models.Attribution, error)
	ListResponses(ctx context.Context, attributionID string) ([]models.EligibilityResponse, error)
}

// RefusalTracker is the blacklist as seen by the coordinator.
type RefusalTracker interface {
	RecordRefusal(ctx context.Context, providerID, roundKey string) (bool, error)
	RecordAcceptance(ctx context.Context, providerID string) error
	Reason(ctx context.Context, providerID string) (string, error)
}

// ExpiryScheduler arranges for Expire to run at a round deadline.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, attributionID string, round int, at time.Time) error
}

const (
	DefaultTTL           = 15 * time.Minute
	DefaultMaxDistanceKm = 50.0
)

type Config struct {
	// TTL is how long a broadcast round stays open.
	TTL                  time.Duration
	DefaultMaxDistanceKm float64
}

// Dependencies are the collaborators of the Coordinator. Deadlines is optional.
type Dependencies struct {
	Attributions attributionRepo.AttributionRepository
	Responses    eligibilityRepo.EligibilityRepository
	Requests     bookingRepo.ServiceRequestRepository
	Matcher      geo.EligibilityFinder
	Blacklist    RefusalTracker
	Notifier     notification.Dispatcher
	Deadlines    ExpiryScheduler
}

// Coordinator implements AttributionService. Every state change is a
// conditional write on the attribution, so concurrent commands are safe
// across processes.
type Coordinator struct {
	attributions attributionRepo.AttributionRepository
	responses    eligibilityRepo.EligibilityRepository
	requests     bookingRepo.ServiceRequestRepository
	matcher      geo.EligibilityFinder
	blacklist    RefusalTracker
	notifier     notification.Dispatcher
	deadlines    ExpiryScheduler

	cfg    Config
	logger *zap.Logger
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

var _ AttributionService = (*Coordinator)(nil)

func NewCoordinator(deps Dependencies, cfg Config, logger *zap.Logger) *Coordinator {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.DefaultMaxDistanceKm <= 0 {
		cfg.DefaultMaxDistanceKm = DefaultMaxDistanceKm
	}
	return &Coordinator{
		attributions: deps.Attributions,
		responses:    deps.Responses,
		requests:     deps.Requests,
		matcher:      deps.Matcher,
		blacklist:    deps.Blacklist,
		notifier:     deps.Notifier,
		deadlines:    deps.Deadlines,
		cfg:          cfg,
		logger:       logger.With(zap.String("component", "attribution")),
		tracer:       otel.Tracer("moveo/attribution"),
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

func (c *Coordinator) load(ctx context.Context, id string) (*models.Attribution, error) {
	if id == "" {
		return nil, newValidationError("attributionId", "is required")
	}
	a, err := c.attributions.GetByID(ctx, id)
	if errors.Is(err, attributionRepo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrAttributionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load attribution %s: %w", id, err)
	}
	return a, nil
}

func (c *Coordinator) scheduleExpiry(ctx context.Context, a *models.Attribution) {
	if c.deadlines == nil {
		return
	}
	if err := c.deadlines.ScheduleExpiry(ctx, a.ID, a.BroadcastCount, a.ExpiresAt); err != nil {
		// the periodic sweep still expires the round
		c.logger.Warn("failed to schedule round deadline",
			zap.String("attribution_id", a.ID),
			zap.Int("round", a.BroadcastCount),
			zap.Error(err))
	}
}

func requireProvider(providerID string) error {
	if providerID == "" {
		return newValidationError("providerId", "is required")
	}
	return nil
}
