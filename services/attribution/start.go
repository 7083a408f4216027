package attribution

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	attributionRepo "moveo/database/repository/attribution"
	bookingRepo "moveo/database/repository/booking"
	"moveo/metrics"
	"moveo/models"
	"moveo/services/geo"
	"moveo/services/notification"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// StartRequest opens an attribution for a paid service request.
// A zero MaxDistanceKm uses the configured default.
type StartRequest struct {
	ServiceRequestID string
	ServiceType      string
	Lat              float64
	Lng              float64
	MaxDistanceKm    float64
}

func (r StartRequest) Validate() error {
	if r.ServiceRequestID == "" {
		return newValidationError("serviceRequestId", "is required")
	}
	if !models.IsKnownServiceType(r.ServiceType) {
		return newValidationError("serviceType", "unknown service type "+r.ServiceType)
	}
	if err := models.ValidateCoordinates(r.Lat, r.Lng); err != nil {
		return newValidationError("coordinates", err.Error())
	}
	if math.IsNaN(r.MaxDistanceKm) || math.IsInf(r.MaxDistanceKm, 0) || r.MaxDistanceKm <= 0 {
		return newValidationError("maxDistanceKm", "must be a positive number")
	}
	return nil
}

func (c *Coordinator) Start(ctx context.Context, req StartRequest) (*StartResult, error) {
	ctx, span := c.tracer.Start(ctx, "attribution.Start",
		trace.WithAttributes(attribute.String("service_request.id", req.ServiceRequestID)))
	defer span.End()

	if req.MaxDistanceKm == 0 {
		req.MaxDistanceKm = c.cfg.DefaultMaxDistanceKm
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	sr, err := c.requests.GetByID(ctx, req.ServiceRequestID)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrServiceRequestNotFound, req.ServiceRequestID)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load service request: %w", err)
	}
	if sr.ServiceType != "" && sr.ServiceType != req.ServiceType {
		return nil, newValidationError("serviceType", "does not match the service request")
	}

	existing, err := c.activeAttribution(ctx, req.ServiceRequestID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return c.resumeStart(ctx, existing)
	}

	now := c.now()
	a := &models.Attribution{
		ID:                  c.newID(),
		ServiceRequestID:    req.ServiceRequestID,
		ServiceType:         req.ServiceType,
		Status:              models.StatusBroadcasting,
		ServiceLocation:     models.NewGeoPoint(req.Lat, req.Lng),
		MaxDistanceKm:       req.MaxDistanceKm,
		BroadcastCount:      1,
		ExcludedProviderIDs: models.NewProviderIDSet(),
		Active:              true,
		ExpiresAt:           now.Add(c.cfg.TTL),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if err := c.attributions.Create(ctx, a); err != nil {
		if errors.Is(err, attributionRepo.ErrActiveExists) {
			existing, lerr := c.activeAttribution(ctx, req.ServiceRequestID)
			if lerr != nil {
				return nil, lerr
			}
			if existing != nil {
				return c.resumeStart(ctx, existing)
			}
			return nil, &ActiveAttributionError{ServiceRequestID: req.ServiceRequestID}
		}
		span.RecordError(err)
		return nil, fmt.Errorf("create attribution: %w", err)
	}
	span.SetAttributes(attribute.String("attribution.id", a.ID))
	metrics.AttributionsStarted.WithLabelValues(a.ServiceType).Inc()
	c.logger.Info("attribution started",
		zap.String("attribution_id", a.ID),
		zap.String("service_request_id", a.ServiceRequestID),
		zap.String("service_type", a.ServiceType),
		zap.Float64("max_distance_km", a.MaxDistanceKm))

	invited, current, expired, err := c.broadcastRound(ctx, a, now)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("broadcast attribution %s: %w", a.ID, err)
	}
	res := &StartResult{Attribution: current, Invited: invited, Outcome: OutcomeBroadcasting}
	if expired {
		res.Outcome = OutcomeNoEligibleProviders
	}
	return res, nil
}

// activeAttribution returns the non-terminal attribution of a service
// request, or nil when there is none.
func (c *Coordinator) activeAttribution(ctx context.Context, serviceRequestID string) (*models.Attribution, error) {
	existing, err := c.attributions.GetActiveByServiceRequest(ctx, serviceRequestID)
	if errors.Is(err, attributionRepo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("check active attribution: %w", err)
	}
	return existing, nil
}

// resumeStart finishes a Start whose broadcast failed after the attribution
// was created. Any other active attribution is a conflict.
func (c *Coordinator) resumeStart(ctx context.Context, a *models.Attribution) (*StartResult, error) {
	interrupted, err := c.broadcastInterrupted(ctx, a)
	if err != nil {
		return nil, err
	}
	if !interrupted {
		return nil, &ActiveAttributionError{ServiceRequestID: a.ServiceRequestID, AttributionID: a.ID}
	}
	c.logger.Warn("resuming interrupted broadcast",
		zap.String("attribution_id", a.ID),
		zap.Int("round", a.BroadcastCount))

	invited, current, expired, err := c.broadcastRound(ctx, a, c.now())
	if err != nil {
		return nil, fmt.Errorf("broadcast attribution %s: %w", a.ID, err)
	}
	res := &StartResult{Attribution: current, Invited: invited, Outcome: OutcomeBroadcasting, Resumed: true}
	if expired {
		res.Outcome = OutcomeNoEligibleProviders
	}
	return res, nil
}

// broadcastInterrupted reports whether a is broadcasting a round that has no
// invitation on record, which only happens when broadcastRound failed.
func (c *Coordinator) broadcastInterrupted(ctx context.Context, a *models.Attribution) (bool, error) {
	if !a.Status.IsBroadcasting() || a.AcceptedProviderID != nil {
		return false, nil
	}
	invitations, err := c.responses.ListByRound(ctx, a.ID, a.BroadcastCount)
	if err != nil {
		return false, fmt.Errorf("list round invitations: %w", err)
	}
	return len(invitations) == 0, nil
}

// broadcastRound invites every eligible provider to the current round of a.
// When nobody is eligible the round is expired at once and expired is true.
func (c *Coordinator) broadcastRound(ctx context.Context, a *models.Attribution, now time.Time) ([]models.ProviderWithDistance, *models.Attribution, bool, error) {
	eligible, err := c.matcher.FindEligible(ctx, geo.Query{
		ServiceType:   a.ServiceType,
		Lat:           a.ServiceLocation.Lat(),
		Lng:           a.ServiceLocation.Lng(),
		MaxDistanceKm: a.MaxDistanceKm,
		ExcludedIDs:   a.ExcludedProviderIDs,
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("find eligible providers: %w", err)
	}
	metrics.BroadcastSize.Observe(float64(len(eligible)))

	if len(eligible) == 0 {
		c.logger.Warn("no eligible providers, escalating",
			zap.String("attribution_id", a.ID),
			zap.Int("round", a.BroadcastCount),
			zap.Int("excluded", a.ExcludedProviderIDs.Len()))
		current, expired, err := c.expireRound(ctx, a, ReasonNoEligibleProviders, now, false)
		return eligible, current, expired, err
	}

	invitations := make([]models.EligibilityResponse, 0, len(eligible))
	for _, p := range eligible {
		invitations = append(invitations, models.EligibilityResponse{
			AttributionID: a.ID,
			ProviderID:    p.Provider.ID,
			Round:         a.BroadcastCount,
			DistanceKm:    p.DistanceKm,
			Outcome:       models.ResponsePending,
			CreatedAt:     now,
		})
	}
	if err := c.responses.RecordInvitations(ctx, invitations); err != nil {
		return nil, nil, false, fmt.Errorf("record invitations: %w", err)
	}

	for _, p := range eligible {
		c.notifier.Notify(ctx, p.Provider.ID, notification.MissionInvitation(a, p))
	}
	c.scheduleExpiry(ctx, a)

	c.logger.Info("round broadcast",
		zap.String("attribution_id", a.ID),
		zap.Int("round", a.BroadcastCount),
		zap.Int("invited", len(eligible)),
		zap.Time("expires_at", a.ExpiresAt))
	return eligible, a, false, nil
}
