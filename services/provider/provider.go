package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	providerRepo "moveo/database/repository/provider"
	"moveo/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RegisterInput is the onboarding record of a provider.
type RegisterInput struct {
	ID                string   `json:"id"`
	Name              string   `json:"name" binding:"required"`
	Lat               *float64 `json:"lat" binding:"required,latitude"`
	Lng               *float64 `json:"lng" binding:"required,longitude"`
	ServiceTypes      []string `json:"serviceTypes" binding:"required,min=1,dive,servicetype"`
	MaxTravelRadiusKm float64  `json:"maxTravelRadiusKm" binding:"omitempty,gt=0"`
	Verified          bool     `json:"verified"`
	FCMToken          string   `json:"fcmToken"`
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func (in RegisterInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name is required")
	}
	if in.Lat == nil || in.Lng == nil {
		return invalid("location is required")
	}
	if err := models.ValidateCoordinates(*in.Lat, *in.Lng); err != nil {
		return invalid("%v", err)
	}
	if len(in.ServiceTypes) == 0 {
		return invalid("at least one service type is required")
	}
	for _, st := range in.ServiceTypes {
		if !models.IsKnownServiceType(st) {
			return invalid("unknown service type %s", st)
		}
	}
	return nil
}

// RegisterProvider stores a new provider. Verification is decided by the
// onboarding flow and passed in as is.
func (s *DefaultProviderService) RegisterProvider(ctx context.Context, in RegisterInput) (*models.Provider, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC()
	p := &models.Provider{
		ID:                id,
		Name:              strings.TrimSpace(in.Name),
		LocationGeo:       models.NewGeoPoint(*in.Lat, *in.Lng),
		ServiceTypes:      in.ServiceTypes,
		Verified:          in.Verified,
		MaxTravelRadiusKm: in.MaxTravelRadiusKm,
		FCMToken:          in.FCMToken,
		Status:            models.ProviderStatusActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("register provider: %w", err)
	}
	s.logger.Info("provider registered",
		zap.String("provider_id", p.ID),
		zap.Strings("service_types", p.ServiceTypes),
		zap.Bool("verified", p.Verified))
	return p, nil
}

func (s *DefaultProviderService) GetProviderByID(ctx context.Context, id string) (*models.Provider, error) {
	p, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, providerRepo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load provider %s: %w", id, err)
	}
	return p, nil
}

// UpdatePushToken replaces the device token used for mission pushes.
func (s *DefaultProviderService) UpdatePushToken(ctx context.Context, id, token string) (*models.Provider, error) {
	if strings.TrimSpace(token) == "" {
		return nil, invalid("fcm token is required")
	}
	return s.update(ctx, id, func(p *models.Provider) { p.FCMToken = token })
}

func (s *DefaultProviderService) UpdateLocation(ctx context.Context, id string, lat, lng float64) (*models.Provider, error) {
	if err := models.ValidateCoordinates(lat, lng); err != nil {
		return nil, invalid("%v", err)
	}
	return s.update(ctx, id, func(p *models.Provider) { p.LocationGeo = models.NewGeoPoint(lat, lng) })
}

// SetStatus activates or suspends a provider. Suspended providers cannot
// call the mission endpoints.
func (s *DefaultProviderService) SetStatus(ctx context.Context, id, status string) (*models.Provider, error) {
	if status != models.ProviderStatusActive && status != models.ProviderStatusSuspended {
		return nil, invalid("unknown status %s", status)
	}
	p, err := s.update(ctx, id, func(p *models.Provider) { p.Status = status })
	if err == nil {
		s.logger.Info("provider status changed", zap.String("provider_id", id), zap.String("status", status))
	}
	return p, err
}

func (s *DefaultProviderService) update(ctx context.Context, id string, mutate func(p *models.Provider)) (*models.Provider, error) {
	p, err := s.GetProviderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	mutate(p)
	p.UpdatedAt = time.Now().UTC()
	if err := s.Repo.Update(ctx, p); err != nil {
		if errors.Is(err, providerRepo.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
		}
		return nil, fmt.Errorf("update provider %s: %w", id, err)
	}
	return p, nil
}
