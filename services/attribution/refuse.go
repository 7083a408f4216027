package attribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	eligibilityRepo "moveo/database/repository/eligibility"
	"moveo/metrics"
	"moveo/models"
	"moveo/services/notification"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// HandleRefusal records that providerID declined the current round. The
// attribution status only changes when the last invited provider refuses.
func (c *Coordinator) HandleRefusal(ctx context.Context, attributionID, providerID, reason string) (*RefusalResult, error) {
	ctx, span := c.tracer.Start(ctx, "attribution.HandleRefusal", trace.WithAttributes(
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
	if a.AcceptedBy(providerID) {
		return c.rejectRefusal(a, providerID, OutcomeAlreadyResponded), nil
	}
	round := a.BroadcastCount
	if !a.Status.IsBroadcasting() {
		// a refusal that closed the round may still owe its follow-ups
		stored, err := c.invitation(ctx, a.ID, providerID, round)
		if err != nil {
			return nil, err
		}
		if stored != nil && stored.Outcome == models.ResponseRefused {
			if err := c.applyRefusal(ctx, a.ID, providerID, round, &RefusalResult{}); err != nil {
				span.RecordError(err)
				return nil, err
			}
		}
		return c.rejectRefusal(a, providerID, OutcomeClosed), nil
	}

	now := c.now()
	ok, err := c.responses.Resolve(ctx, a.ID, providerID, round,
		[]models.ResponseOutcome{models.ResponsePending}, models.ResponseRefused, reason, now)
	if err != nil {
		return nil, fmt.Errorf("record refusal: %w", err)
	}
	if !ok {
		stored, err := c.invitation(ctx, a.ID, providerID, round)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return c.rejectRefusal(a, providerID, OutcomeNotInvited), nil
		}
		if stored.Outcome != models.ResponseRefused {
			return c.rejectRefusal(a, providerID, OutcomeAlreadyResponded), nil
		}
		return c.retryRefusal(ctx, a, providerID, round, now)
	}

	metrics.ProviderResponses.WithLabelValues("refuse", string(OutcomeRefused)).Inc()
	c.logger.Info("mission refused",
		zap.String("attribution_id", a.ID),
		zap.String("provider_id", providerID),
		zap.Int("round", round),
		zap.String("reason", reason))

	res := &RefusalResult{Success: true, Outcome: OutcomeRefused}
	if err := c.applyRefusal(ctx, a.ID, providerID, round, res); err != nil {
		span.RecordError(err)
		return nil, err
	}
	res, err = c.closeIfAllRefused(ctx, a, round, res, now)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res, nil
}

// applyRefusal excludes providerID from the attribution and counts the
// refusal toward the blacklist. Both steps are idempotent.
func (c *Coordinator) applyRefusal(ctx context.Context, attributionID, providerID string, round int, res *RefusalResult) error {
	if err := c.attributions.AddExclusion(ctx, attributionID, providerID); err != nil {
		return fmt.Errorf("exclude provider: %w", err)
	}
	banned, err := c.blacklist.RecordRefusal(ctx, providerID, models.RoundKey(attributionID, round))
	if err != nil {
		return err
	}
	if banned {
		res.Blacklisted = true
		metrics.ProvidersBlacklisted.Inc()
		banReason, err := c.blacklist.Reason(ctx, providerID)
		if err != nil {
			c.logger.Warn("could not load ban reason", zap.String("provider_id", providerID), zap.Error(err))
		}
		c.notifier.Notify(ctx, providerID, notification.Blacklisted(banReason))
	}
	return nil
}

// retryRefusal re-applies the follow-ups of a refusal already stored for the
// round, so a call that failed halfway can simply be repeated. The refusal
// is reported as new only when the earlier attempt never excluded the provider.
func (c *Coordinator) retryRefusal(ctx context.Context, a *models.Attribution, providerID string, round int, now time.Time) (*RefusalResult, error) {
	res := &RefusalResult{Success: !a.ExcludedProviderIDs.Contains(providerID), Outcome: OutcomeRefused}
	if res.Success {
		metrics.ProviderResponses.WithLabelValues("refuse", string(OutcomeRefused)).Inc()
		c.logger.Warn("completing interrupted refusal",
			zap.String("attribution_id", a.ID),
			zap.String("provider_id", providerID),
			zap.Int("round", round))
	}
	if err := c.applyRefusal(ctx, a.ID, providerID, round, res); err != nil {
		return nil, err
	}
	res, err := c.closeIfAllRefused(ctx, a, round, res, now)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return c.rejectRefusal(res.Attribution, providerID, OutcomeAlreadyResponded), nil
	}
	return res, nil
}

func (c *Coordinator) invitation(ctx context.Context, attributionID, providerID string, round int) (*models.EligibilityResponse, error) {
	stored, err := c.responses.Get(ctx, attributionID, providerID, round)
	if errors.Is(err, eligibilityRepo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load invitation: %w", err)
	}
	return stored, nil
}

// closeIfAllRefused expires the round when no invitation is left pending.
func (c *Coordinator) closeIfAllRefused(ctx context.Context, a *models.Attribution, round int, res *RefusalResult, now time.Time) (*RefusalResult, error) {
	pending, err := c.responses.CountPending(ctx, a.ID, round)
	if err != nil {
		return nil, fmt.Errorf("count pending invitations: %w", err)
	}
	if pending == 0 {
		current, expired, err := c.expireRound(ctx, a, ReasonAllRefused, now, false)
		if err != nil {
			return nil, err
		}
		res.Expired = expired
		res.Attribution = current
		return res, nil
	}

	current, err := c.load(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	res.Attribution = current
	return res, nil
}

func (c *Coordinator) rejectRefusal(a *models.Attribution, providerID string, out Outcome) *RefusalResult {
	metrics.ProviderResponses.WithLabelValues("refuse", string(out)).Inc()
	c.logger.Info("refusal ignored",
		zap.String("attribution_id", a.ID),
		zap.String("provider_id", providerID),
		zap.String("outcome", string(out)))
	return &RefusalResult{Success: false, Outcome: out, Attribution: a}
}
