package blacklist

import (
	"context"
	"errors"
	"fmt"
	"time"

	blacklistRepo "moveo/database/repository/blacklist"
	"moveo/models"

	"go.uber.org/zap"
)

// DefaultThreshold is the number of consecutive refusals that triggers a ban.
const DefaultThreshold = 2

// Guard counts consecutive refusals per provider and bans providers that
// reach the threshold.
type Guard struct {
	repo      blacklistRepo.BlacklistRepository
	threshold int
	logger    *zap.Logger
	now       func() time.Time
}

func NewGuard(repo blacklistRepo.BlacklistRepository, threshold int, logger *zap.Logger) *Guard {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Guard{
		repo:      repo,
		threshold: threshold,
		logger:    logger.With(zap.String("component", "blacklist")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Threshold returns the configured ban threshold.
func (g *Guard) Threshold() int { return g.threshold }

// BanReason is the reason recorded when a provider reaches n refusals.
func BanReason(n int) string {
	return fmt.Sprintf("blacklisted after %d consecutive refusals", n)
}

// RecordRefusal counts one refusal for the round identified by roundKey.
// A second refusal of the same round is not counted. It reports whether
// this call activated the ban.
func (g *Guard) RecordRefusal(ctx context.Context, providerID, roundKey string) (bool, error) {
	now := g.now()
	entry, counted, err := g.repo.IncrementRefusalCounter(ctx, providerID, roundKey, now)
	if err != nil {
		return false, fmt.Errorf("record refusal: %w", err)
	}
	if !counted {
		g.logger.Debug("refusal already counted for round",
			zap.String("provider_id", providerID), zap.String("round", roundKey))
		return false, nil
	}
	if entry.IsActive || entry.ConsecutiveRefusalCount < g.threshold {
		return false, nil
	}
	activated, err := g.repo.Activate(ctx, providerID, BanReason(entry.ConsecutiveRefusalCount), now)
	if err != nil {
		return false, fmt.Errorf("activate ban: %w", err)
	}
	if activated {
		g.logger.Info("provider blacklisted",
			zap.String("provider_id", providerID),
			zap.Int("consecutive_refusals", entry.ConsecutiveRefusalCount))
	}
	return activated, nil
}

// RecordAcceptance resets the refusal counter. An active ban is kept.
func (g *Guard) RecordAcceptance(ctx context.Context, providerID string) error {
	if err := g.repo.ResetRefusals(ctx, providerID, g.now()); err != nil {
		return fmt.Errorf("reset refusals: %w", err)
	}
	return nil
}

func (g *Guard) IsBlacklisted(ctx context.Context, providerID string) (bool, error) {
	entry, err := g.Entry(ctx, providerID)
	if err != nil {
		return false, err
	}
	return entry.Banned(g.now()), nil
}

// Reason returns the ban reason, or "" when the provider is not banned.
func (g *Guard) Reason(ctx context.Context, providerID string) (string, error) {
	entry, err := g.Entry(ctx, providerID)
	if err != nil {
		return "", err
	}
	if !entry.Banned(g.now()) {
		return "", nil
	}
	return entry.Reason, nil
}

// Entry returns the provider's entry. Unknown providers get a zero entry.
func (g *Guard) Entry(ctx context.Context, providerID string) (*models.BlacklistEntry, error) {
	entry, err := g.repo.Get(ctx, providerID)
	if errors.Is(err, blacklistRepo.ErrNotFound) {
		return &models.BlacklistEntry{ProviderID: providerID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load blacklist entry: %w", err)
	}
	return entry, nil
}

// ActiveBans returns the subset of providerIDs currently banned.
func (g *Guard) ActiveBans(ctx context.Context, providerIDs []string) (map[string]bool, error) {
	entries, err := g.repo.ListActive(ctx, providerIDs)
	if err != nil {
		return nil, fmt.Errorf("list active bans: %w", err)
	}
	now := g.now()
	out := make(map[string]bool, len(entries))
	for i := range entries {
		if entries[i].Banned(now) {
			out[entries[i].ProviderID] = true
		}
	}
	return out, nil
}

// Lift clears a ban. Used by admin tooling.
func (g *Guard) Lift(ctx context.Context, providerID string) error {
	if err := g.repo.Lift(ctx, providerID, g.now()); err != nil {
		return fmt.Errorf("lift ban: %w", err)
	}
	g.logger.Info("blacklist lifted", zap.String("provider_id", providerID))
	return nil
}
