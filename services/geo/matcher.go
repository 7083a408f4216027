package geo

import (
	"context"
	"fmt"

	providerRepo "moveo/database/repository/provider"
	"moveo/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// BanLookup reports which of the given providers are actively banned.
type BanLookup interface {
	ActiveBans(ctx context.Context, providerIDs []string) (map[string]bool, error)
}

// EligibilityFinder is what the coordinator and handlers need from the matcher.
type EligibilityFinder interface {
	FindEligible(ctx context.Context, q Query) ([]models.ProviderWithDistance, error)
	CountEligible(ctx context.Context, q Query) (int, error)
}

// Matcher loads candidates from the provider store and applies Filter.
type Matcher struct {
	providers providerRepo.ProviderRepository
	bans      BanLookup
	logger    *zap.Logger
}

func NewMatcher(providers providerRepo.ProviderRepository, bans BanLookup, logger *zap.Logger) *Matcher {
	return &Matcher{providers: providers, bans: bans, logger: logger.With(zap.String("component", "geo"))}
}

// FindEligible returns the eligible providers closest first. An empty
// result is not an error.
func (m *Matcher) FindEligible(ctx context.Context, q Query) ([]models.ProviderWithDistance, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, span := otel.Tracer("moveo/geo").Start(ctx, "geo.FindEligible")
	defer span.End()

	candidates, err := m.providers.ListCandidates(ctx, providerRepo.CandidateQuery{
		ServiceType: q.ServiceType,
		Center:      q.Center(),
		RadiusKm:    q.MaxDistanceKm,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("load candidate providers: %w", err)
	}

	ids := make([]string, 0, len(candidates))
	for _, p := range candidates {
		if !q.ExcludedIDs.Contains(p.ID) {
			ids = append(ids, p.ID)
		}
	}
	banned := map[string]bool{}
	if m.bans != nil && len(ids) > 0 {
		banned, err = m.bans.ActiveBans(ctx, ids)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("load active bans: %w", err)
		}
	}

	eligible := Filter(candidates, q, func(id string) bool { return banned[id] })
	span.SetAttributes(
		attribute.Int("geo.candidates", len(candidates)),
		attribute.Int("geo.eligible", len(eligible)),
	)
	m.logger.Debug("eligibility computed",
		zap.String("service_type", q.ServiceType),
		zap.Float64("max_distance_km", q.MaxDistanceKm),
		zap.Int("candidates", len(candidates)),
		zap.Int("banned", len(banned)),
		zap.Int("eligible", len(eligible)))
	return eligible, nil
}

func (m *Matcher) CountEligible(ctx context.Context, q Query) (int, error) {
	eligible, err := m.FindEligible(ctx, q)
	if err != nil {
		return 0, err
	}
	return len(eligible), nil
}
