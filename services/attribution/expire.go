package attribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	attributionRepo "moveo/database/repository/attribution"
	"moveo/metrics"
	"moveo/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Expire closes the current round if its deadline has passed and nobody
// accepted. It races acceptance on the same conditional write, so a late
// accept and the expiry can never both succeed.
func (c *Coordinator) Expire(ctx context.Context, attributionID string) (*ExpiryResult, error) {
	ctx, span := c.tracer.Start(ctx, "attribution.Expire",
		trace.WithAttributes(attribute.String("attribution.id", attributionID)))
	defer span.End()

	a, err := c.load(ctx, attributionID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	if out := expiryRejection(a, now); out != "" {
		return &ExpiryResult{Outcome: out, Attribution: a}, nil
	}
	current, expired, err := c.expireRound(ctx, a, ReasonTimedOut, now, true)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if !expired {
		out := expiryRejection(current, now)
		if out == "" {
			out = OutcomeClosed
		}
		return &ExpiryResult{Outcome: out, Attribution: current}, nil
	}
	return &ExpiryResult{Expired: true, Outcome: OutcomeExpired, Attribution: current}, nil
}

func expiryRejection(a *models.Attribution, now time.Time) Outcome {
	switch {
	case !a.Status.IsBroadcasting() || a.AcceptedProviderID != nil:
		return OutcomeClosed
	case a.ExpiresAt.After(now):
		return OutcomeNotDue
	}
	return ""
}

// expireRound moves the current round of a to EXPIRED. With requireDeadline
// the write only lands once the deadline has passed. When the condition no
// longer holds the fresh attribution is returned with expired false.
func (c *Coordinator) expireRound(ctx context.Context, a *models.Attribution, reason string, now time.Time, requireDeadline bool) (*models.Attribution, bool, error) {
	t := attributionRepo.Transition{
		From:              models.BroadcastingStatuses,
		RequireNoAccepted: true,
		RequireRound:      a.BroadcastCount,
		To:                models.StatusExpired,
		Reason:            reason,
		Now:               now,
	}
	if requireDeadline {
		t.DeadlineReached = now
	}
	updated, err := c.attributions.CompareAndSwapStatus(ctx, a.ID, t)
	if errors.Is(err, attributionRepo.ErrConditionNotMet) {
		current, lerr := c.load(ctx, a.ID)
		if lerr != nil {
			return nil, false, lerr
		}
		return current, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("expire attribution %s: %w", a.ID, err)
	}

	if _, err := c.responses.ResolvePending(ctx, updated.ID, updated.BroadcastCount, "", models.ResponseTimedOut, now); err != nil {
		c.logger.Warn("could not time out pending invitations",
			zap.String("attribution_id", updated.ID), zap.Error(err))
	}
	metrics.AttributionTransitions.WithLabelValues(string(models.StatusExpired)).Inc()
	c.logger.Warn("attribution expired",
		zap.String("attribution_id", updated.ID),
		zap.String("service_request_id", updated.ServiceRequestID),
		zap.Int("round", updated.BroadcastCount),
		zap.String("reason", reason))
	return updated, true, nil
}

// ExpireDue expires up to limit rounds whose deadline has passed and
// returns how many it closed.
func (c *Coordinator) ExpireDue(ctx context.Context, limit int) (int, error) {
	ids, err := c.attributions.ListExpired(ctx, c.now(), limit)
	if err != nil {
		return 0, fmt.Errorf("list expired attributions: %w", err)
	}
	var (
		n    int
		errs []error
	)
	for _, id := range ids {
		res, err := c.Expire(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if res.Expired {
			n++
		}
	}
	return n, errors.Join(errs...)
}
