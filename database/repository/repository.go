package repository

import (
	"context"
	"database/sql"
	"fmt"

	attributionRepo "moveo/database/repository/attribution"
	blacklistRepo "moveo/database/repository/blacklist"
	bookingRepo "moveo/database/repository/booking"
	eligibilityRepo "moveo/database/repository/eligibility"
	providerRepo "moveo/database/repository/provider"

	"go.mongodb.org/mongo-driver/mongo"
)

// Re-export the repository interfaces.
type (
	AttributionRepository    = attributionRepo.AttributionRepository
	EligibilityRepository    = eligibilityRepo.EligibilityRepository
	BlacklistRepository      = blacklistRepo.BlacklistRepository
	ProviderRepository       = providerRepo.ProviderRepository
	ServiceRequestRepository = bookingRepo.ServiceRequestRepository
)

// Stores groups the repositories of one backend.
type Stores struct {
	Attributions    AttributionRepository
	Eligibility     EligibilityRepository
	Blacklist       BlacklistRepository
	Providers       ProviderRepository
	ServiceRequests ServiceRequestRepository
}

type indexer interface {
	EnsureIndexes(ctx context.Context) error
}

// NewMongoStores builds the Mongo repositories and creates their indexes.
func NewMongoStores(ctx context.Context, db *mongo.Database) (*Stores, error) {
	attributions := attributionRepo.NewMongoAttributionRepo(db)
	eligibility := eligibilityRepo.NewMongoEligibilityRepo(db)
	blacklist := blacklistRepo.NewMongoBlacklistRepo(db)
	providers := providerRepo.NewMongoProviderRepo(db)
	requests := bookingRepo.NewMongoServiceRequestRepo(db)

	for _, ix := range []indexer{attributions, eligibility, blacklist, providers, requests} {
		if err := ix.EnsureIndexes(ctx); err != nil {
			return nil, fmt.Errorf("ensure indexes: %w", err)
		}
	}
	return &Stores{
		Attributions:    attributions,
		Eligibility:     eligibility,
		Blacklist:       blacklist,
		Providers:       providers,
		ServiceRequests: requests,
	}, nil
}

// NewPostgresStores builds the SQL repositories. Schema comes from the goose migrations.
func NewPostgresStores(db *sql.DB) *Stores {
	return &Stores{
		Attributions:    attributionRepo.NewPostgresAttributionRepo(db),
		Eligibility:     eligibilityRepo.NewPostgresEligibilityRepo(db),
		Blacklist:       blacklistRepo.NewPostgresBlacklistRepo(db),
		Providers:       providerRepo.NewPostgresProviderRepo(db),
		ServiceRequests: bookingRepo.NewPostgresServiceRequestRepo(db),
	}
}

// NewMemoryStores builds in-process repositories for local runs and tests.
func NewMemoryStores() *Stores {
	return &Stores{
		Attributions:    attributionRepo.NewMemoryAttributionRepo(),
		Eligibility:     eligibilityRepo.NewMemoryEligibilityRepo(),
		Blacklist:       blacklistRepo.NewMemoryBlacklistRepo(),
		Providers:       providerRepo.NewMemoryProviderRepo(),
		ServiceRequests: bookingRepo.NewMemoryServiceRequestRepo(),
	}
}
