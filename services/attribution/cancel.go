package attribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	attributionRepo "moveo/database/repository/attribution"
	eligibilityRepo "moveo/database/repository/eligibility"
	"moveo/metrics"
	"moveo/models"
	"moveo/services/notification"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HandleCancellation withdraws the assignee from an attributed mission and
// re-broadcasts it to the remaining eligible providers.
func (c *Coordinator) HandleCancellation(ctx context.Context, attributionID, providerID, reason string) (*CancellationResult, error) {
	ctx, span := c.tracer.Start(ctx, "attribution.HandleCancellation", trace.WithAttributes(
		attribute.String("attribution.id", attributionID),
		attribute.String("provider.id", providerID)))
	defer span.End()

	if err := requireProvider(providerID); err != nil {
		return nil, err
	}
	a, err := c.load(ctx, attributionID)
	if err != nil {
		return nil, err
	}
	if out := cancellationRejection(a, providerID); out != "" {
		return c.retryCancellation(ctx, a, providerID, reason, out)
	}

	now := c.now()
	round := a.BroadcastCount
	statusReason := ReasonProviderCancelled
	if reason != "" {
		statusReason = ReasonProviderCancelled + ": " + reason
	}
	updated, err := c.attributions.CompareAndSwapStatus(ctx, a.ID, attributionRepo.Transition{
		From:            []models.AttributionStatus{models.StatusAttributed},
		RequireAccepted: providerID,
		RequireRound:    round,
		To:              models.StatusReBroadcasting,
		ClearAccepted:   true,
		Exclude:         providerID,
		IncrementRound:  true,
		ExpiresAt:       now.Add(c.cfg.TTL),
		Reason:          statusReason,
		Now:             now,
	})
	if errors.Is(err, attributionRepo.ErrConditionNotMet) {
		current, lerr := c.load(ctx, a.ID)
		if lerr != nil {
			return nil, lerr
		}
		out := cancellationRejection(current, providerID)
		if out == "" {
			out = OutcomeNotAttributed
		}
		return c.retryCancellation(ctx, current, providerID, reason, out)
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("cancel attribution %s: %w", a.ID, err)
	}

	metrics.ProviderResponses.WithLabelValues("cancel", string(OutcomeReBroadcast)).Inc()
	metrics.AttributionTransitions.WithLabelValues(string(models.StatusReBroadcasting)).Inc()
	c.logger.Info("mission cancelled by provider, re-broadcasting",
		zap.String("attribution_id", updated.ID),
		zap.String("provider_id", providerID),
		zap.Int("round", updated.BroadcastCount),
		zap.String("reason", reason))

	res, err := c.reBroadcast(ctx, updated, providerID, reason, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res, nil
}

// reBroadcast releases the previous assignee of a and invites the next round.
func (c *Coordinator) reBroadcast(ctx context.Context, a *models.Attribution, providerID, reason string, now time.Time) (*CancellationResult, error) {
	var errs []error
	if _, err := c.requests.ClearAssignment(ctx, a.ServiceRequestID, providerID); err != nil {
		errs = append(errs, fmt.Errorf("clear service request assignment: %w", err))
	}
	if _, err := c.responses.Resolve(ctx, a.ID, providerID, a.BroadcastCount-1,
		[]models.ResponseOutcome{models.ResponseAccepted}, models.ResponseCancelled, reason, now); err != nil {
		errs = append(errs, fmt.Errorf("record cancellation: %w", err))
	}
	if len(errs) > 0 {
		// the attribution is already re-broadcasting; report but go on
		c.logger.Error("cancellation side effects failed",
			zap.String("attribution_id", a.ID), zap.Error(errors.Join(errs...)))
	}

	invited, current, expired, err := c.broadcastRound(ctx, a, now)
	if err != nil {
		return nil, fmt.Errorf("re-broadcast attribution %s: %w", a.ID, err)
	}
	return &CancellationResult{
		Success:     true,
		Outcome:     OutcomeReBroadcast,
		Invited:     invited,
		Expired:     expired,
		Attribution: current,
	}, nil
}

// retryCancellation completes a cancellation by providerID whose re-broadcast
// failed earlier. Anything else is rejected with out.
func (c *Coordinator) retryCancellation(ctx context.Context, a *models.Attribution, providerID, reason string, out Outcome) (*CancellationResult, error) {
	if a.Status != models.StatusReBroadcasting || !a.ExcludedProviderIDs.Contains(providerID) {
		return c.rejectCancellation(a, providerID, out), nil
	}
	previous, err := c.responses.Get(ctx, a.ID, providerID, a.BroadcastCount-1)
	if errors.Is(err, eligibilityRepo.ErrNotFound) {
		return c.rejectCancellation(a, providerID, out), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load previous round response: %w", err)
	}
	if previous.Outcome != models.ResponseAccepted && previous.Outcome != models.ResponseCancelled {
		return c.rejectCancellation(a, providerID, out), nil
	}
	interrupted, err := c.broadcastInterrupted(ctx, a)
	if err != nil {
		return nil, err
	}
	if !interrupted {
		return c.rejectCancellation(a, providerID, out), nil
	}

	c.logger.Warn("resuming interrupted re-broadcast",
		zap.String("attribution_id", a.ID),
		zap.String("provider_id", providerID),
		zap.Int("round", a.BroadcastCount))
	return c.reBroadcast(ctx, a, providerID, reason, c.now())
}

func cancellationRejection(a *models.Attribution, providerID string) Outcome {
	if a.Status != models.StatusAttributed {
		return OutcomeNotAttributed
	}
	if !a.AcceptedBy(providerID) {
		return OutcomeNotAssignee
	}
	return ""
}

func (c *Coordinator) rejectCancellation(a *models.Attribution, providerID string, out Outcome) *CancellationResult {
	metrics.ProviderResponses.WithLabelValues("cancel", string(out)).Inc()
	c.logger.Info("cancellation rejected",
		zap.String("attribution_id", a.ID),
		zap.String("provider_id", providerID),
		zap.String("outcome", string(out)))
	return &CancellationResult{Success: false, Outcome: out, Attribution: a}
}

// Cancel closes a non-terminal attribution because the booking itself was
// cancelled. The assignee, if any, is told and unassigned.
func (c *Coordinator) Cancel(ctx context.Context, attributionID, reason string) (*TransitionResult, error) {
	ctx, span := c.tracer.Start(ctx, "attribution.Cancel",
		trace.WithAttributes(attribute.String("attribution.id", attributionID)))
	defer span.End()

	if _, err := c.load(ctx, attributionID); err != nil {
		return nil, err
	}
	now := c.now()
	if reason == "" {
		reason = "booking cancelled"
	}
	updated, err := c.attributions.CompareAndSwapStatus(ctx, attributionID, attributionRepo.Transition{
		From:   models.ActiveStatuses,
		To:     models.StatusCancelled,
		Reason: reason,
		Now:    now,
	})
	if errors.Is(err, attributionRepo.ErrConditionNotMet) {
		current, lerr := c.load(ctx, attributionID)
		if lerr != nil {
			return nil, lerr
		}
		return &TransitionResult{Success: false, Outcome: OutcomeClosed, Attribution: current}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("cancel attribution %s: %w", attributionID, err)
	}
	metrics.AttributionTransitions.WithLabelValues(string(models.StatusCancelled)).Inc()

	var errs []error
	round := updated.BroadcastCount
	if updated.AcceptedProviderID != nil {
		holder := *updated.AcceptedProviderID
		if _, err := c.requests.ClearAssignment(ctx, updated.ServiceRequestID, holder); err != nil {
			errs = append(errs, fmt.Errorf("clear service request assignment: %w", err))
		}
		if _, err := c.responses.Resolve(ctx, updated.ID, holder, round,
			[]models.ResponseOutcome{models.ResponseAccepted}, models.ResponseCancelled, reason, now); err != nil {
			errs = append(errs, fmt.Errorf("record cancellation: %w", err))
		}
		c.notifier.Notify(ctx, holder, notification.MissionCancelled(updated, reason))
	}
	if _, err := c.responses.ResolvePending(ctx, updated.ID, round, "", models.ResponseCancelled, now); err != nil {
		errs = append(errs, fmt.Errorf("close pending invitations: %w", err))
	}
	if len(errs) > 0 {
		c.logger.Error("cancellation side effects failed",
			zap.String("attribution_id", updated.ID), zap.Error(errors.Join(errs...)))
	}
	c.logger.Info("attribution cancelled",
		zap.String("attribution_id", updated.ID), zap.String("reason", reason))
	return &TransitionResult{Success: true, Outcome: OutcomeCancelled, Attribution: updated}, nil
}
