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

// HandleAcceptance lets providerID take the mission. Exactly one provider
// wins a round; every other caller gets a rejection outcome.
func (c *Coordinator) HandleAcceptance(ctx context.Context, attributionID, providerID string) (*AcceptResult, error) {
	ctx, span := c.tracer.Start(ctx, "attribution.HandleAcceptance", trace.WithAttributes(
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
	if a.AcceptedBy(providerID) && !a.Status.IsBroadcasting() && a.Status != models.StatusCancelled {
		return c.acceptRetry(ctx, a, providerID)
	}

	now := c.now()
	if out := acceptRejection(a, providerID, now); out != "" {
		return c.rejectAcceptance(a, providerID, out), nil
	}
	inv, err := c.responses.Get(ctx, a.ID, providerID, a.BroadcastCount)
	if errors.Is(err, eligibilityRepo.ErrNotFound) {
		return c.rejectAcceptance(a, providerID, OutcomeNotInvited), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	if inv.Outcome != models.ResponsePending {
		return c.rejectAcceptance(a, providerID, settledInvitation(inv.Outcome)), nil
	}

	updated, err := c.attributions.CompareAndSwapStatus(ctx, a.ID, attributionRepo.Transition{
		From:              models.BroadcastingStatuses,
		RequireNoAccepted: true,
		RequireRound:      a.BroadcastCount,
		NotExcluded:       providerID,
		DeadlineAfter:     now,
		To:                models.StatusAttributed,
		SetAccepted:       providerID,
		Now:               now,
	})
	if errors.Is(err, attributionRepo.ErrConditionNotMet) {
		current, lerr := c.load(ctx, a.ID)
		if lerr != nil {
			return nil, lerr
		}
		if current.AcceptedBy(providerID) && current.Status == models.StatusAttributed {
			return c.acceptRetry(ctx, current, providerID)
		}
		out := acceptRejection(current, providerID, now)
		if out == "" {
			// the round moved on between the read and the write
			out = OutcomeAlreadyAttributed
		}
		return c.rejectAcceptance(current, providerID, out), nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("accept attribution %s: %w", a.ID, err)
	}

	metrics.ProviderResponses.WithLabelValues("accept", string(OutcomeAccepted)).Inc()
	metrics.AttributionTransitions.WithLabelValues(string(models.StatusAttributed)).Inc()
	metrics.TimeToAttribution.Observe(now.Sub(updated.CreatedAt).Seconds())
	c.logger.Info("attribution accepted",
		zap.String("attribution_id", updated.ID),
		zap.String("provider_id", providerID),
		zap.Int("round", updated.BroadcastCount))

	if err := c.afterAcceptance(ctx, updated, providerID, now, true); err != nil {
		span.RecordError(err)
		return nil, err
	}
	return &AcceptResult{Success: true, Outcome: OutcomeAccepted, Attribution: updated}, nil
}

// acceptRejection classifies why providerID cannot take a. Empty means
// nothing in the attribution itself rules it out.
func acceptRejection(a *models.Attribution, providerID string, now time.Time) Outcome {
	switch {
	case a.Status == models.StatusAttributed:
		return OutcomeAlreadyAttributed
	case !a.Status.IsBroadcasting():
		return OutcomeClosed
	case a.AcceptedProviderID != nil:
		return OutcomeAlreadyAttributed
	case !a.ExpiresAt.After(now):
		return OutcomeClosed
	case a.ExcludedProviderIDs.Contains(providerID):
		return OutcomeExcluded
	}
	return ""
}

// settledInvitation maps an already resolved invitation to the outcome
// reported to a provider trying to accept it.
func settledInvitation(o models.ResponseOutcome) Outcome {
	switch o {
	case models.ResponseSuperseded:
		return OutcomeAlreadyAttributed
	case models.ResponseTimedOut, models.ResponseCancelled:
		return OutcomeClosed
	}
	return OutcomeAlreadyResponded
}

func (c *Coordinator) rejectAcceptance(a *models.Attribution, providerID string, out Outcome) *AcceptResult {
	metrics.ProviderResponses.WithLabelValues("accept", string(out)).Inc()
	c.logger.Info("acceptance rejected",
		zap.String("attribution_id", a.ID),
		zap.String("provider_id", providerID),
		zap.String("outcome", string(out)))
	return &AcceptResult{Success: false, Outcome: out, Attribution: a}
}

// acceptRetry answers a repeated acceptance by the current holder and
// re-applies the side effects of the first one.
func (c *Coordinator) acceptRetry(ctx context.Context, a *models.Attribution, providerID string) (*AcceptResult, error) {
	if a.Status == models.StatusAttributed {
		if err := c.afterAcceptance(ctx, a, providerID, c.now(), false); err != nil {
			return nil, err
		}
	}
	return &AcceptResult{Success: true, Outcome: OutcomeAccepted, AlreadyAccepted: true, Attribution: a}, nil
}

// afterAcceptance settles the round once providerID holds a. All steps are
// idempotent; errors are joined so a retry repairs whatever failed.
func (c *Coordinator) afterAcceptance(ctx context.Context, a *models.Attribution, providerID string, now time.Time, notify bool) error {
	var errs []error
	round := a.BroadcastCount

	if _, err := c.responses.Resolve(ctx, a.ID, providerID, round,
		[]models.ResponseOutcome{models.ResponsePending}, models.ResponseAccepted, "", now); err != nil {
		errs = append(errs, fmt.Errorf("record acceptance: %w", err))
	}
	if _, err := c.responses.ResolvePending(ctx, a.ID, round, providerID, models.ResponseSuperseded, now); err != nil {
		errs = append(errs, fmt.Errorf("supersede pending invitations: %w", err))
	}
	if err := c.blacklist.RecordAcceptance(ctx, providerID); err != nil {
		errs = append(errs, err)
	}

	ok, err := c.requests.AssignProvider(ctx, a.ServiceRequestID, providerID)
	if err != nil {
		errs = append(errs, fmt.Errorf("assign service request %s: %w", a.ServiceRequestID, err))
	} else if !ok {
		c.logger.Error("service request is assigned to another provider",
			zap.String("attribution_id", a.ID),
			zap.String("service_request_id", a.ServiceRequestID),
			zap.String("provider_id", providerID))
	}

	if notify {
		c.notifier.Notify(ctx, providerID, notification.MissionConfirmed(a))
		responses, err := c.responses.ListByRound(ctx, a.ID, round)
		if err != nil {
			c.logger.Warn("could not list round for mission taken notices",
				zap.String("attribution_id", a.ID), zap.Error(err))
		}
		// everyone else invited to the round, refusers included
		for _, r := range responses {
			if r.ProviderID != providerID {
				c.notifier.Notify(ctx, r.ProviderID, notification.MissionTaken(a))
			}
		}
	}
	return errors.Join(errs...)
}
