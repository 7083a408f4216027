package attribution

import (
	"context"
	"errors"
	"fmt"

	attributionRepo "moveo/database/repository/attribution"
	"moveo/metrics"
	"moveo/models"

	"go.uber.org/zap"
)

// Get returns the attribution, expiring its round first when the deadline
// has passed.
func (c *Coordinator) Get(ctx context.Context, attributionID string) (*models.Attribution, error) {
	a, err := c.load(ctx, attributionID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	if expiryRejection(a, now) != "" {
		return a, nil
	}
	current, _, err := c.expireRound(ctx, a, ReasonTimedOut, now, true)
	if err != nil {
		c.logger.Warn("lazy expiry failed", zap.String("attribution_id", a.ID), zap.Error(err))
		return a, nil
	}
	return current, nil
}

func (c *Coordinator) ListResponses(ctx context.Context, attributionID string) ([]models.EligibilityResponse, error) {
	if _, err := c.load(ctx, attributionID); err != nil {
		return nil, err
	}
	responses, err := c.responses.ListByAttribution(ctx, attributionID)
	if err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	if responses == nil {
		responses = []models.EligibilityResponse{}
	}
	return responses, nil
}

// Complete marks an attributed mission as done.
func (c *Coordinator) Complete(ctx context.Context, attributionID string) (*TransitionResult, error) {
	if _, err := c.load(ctx, attributionID); err != nil {
		return nil, err
	}
	updated, err := c.attributions.CompareAndSwapStatus(ctx, attributionID, attributionRepo.Transition{
		From: []models.AttributionStatus{models.StatusAttributed},
		To:   models.StatusCompleted,
		Now:  c.now(),
	})
	if errors.Is(err, attributionRepo.ErrConditionNotMet) {
		current, lerr := c.load(ctx, attributionID)
		if lerr != nil {
			return nil, lerr
		}
		out := OutcomeNotAttributed
		if current.Status.IsTerminal() {
			out = OutcomeClosed
		}
		return &TransitionResult{Success: false, Outcome: out, Attribution: current}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("complete attribution %s: %w", attributionID, err)
	}
	metrics.AttributionTransitions.WithLabelValues(string(models.StatusCompleted)).Inc()
	c.logger.Info("attribution completed", zap.String("attribution_id", updated.ID))
	return &TransitionResult{Success: true, Outcome: OutcomeCompleted, Attribution: updated}, nil
}
