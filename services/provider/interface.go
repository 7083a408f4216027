package provider

import (
	"context"

	providerRepo "moveo/database/repository/provider"
	"moveo/models"

	"go.uber.org/zap"
)

// ProviderService manages the provider records the matcher reads.
type ProviderService interface {
	RegisterProvider(ctx context.Context, in RegisterInput) (*models.Provider, error)
	GetProviderByID(ctx context.Context, id string) (*models.Provider, error)
	UpdatePushToken(ctx context.Context, id, token string) (*models.Provider, error)
	UpdateLocation(ctx context.Context, id string, lat, lng float64) (*models.Provider, error)
	SetStatus(ctx context.Context, id, status string) (*models.Provider, error)
}

// DefaultProviderService is the production implementation.
type DefaultProviderService struct {
	Repo   providerRepo.ProviderRepository
	logger *zap.Logger
}

var _ ProviderService = (*DefaultProviderService)(nil)

func NewDefaultProviderService(repo providerRepo.ProviderRepository, logger *zap.Logger) *DefaultProviderService {
	return &DefaultProviderService{Repo: repo, logger: logger.With(zap.String("component", "provider"))}
}
