package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bookingRepo "moveo/database/repository/booking"
	"moveo/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrServiceRequestNotFound = errors.New("service request not found")
	ErrInvalidInput           = errors.New("invalid service request input")
)

// CreateInput is a paid booking handed over by the checkout flow.
type CreateInput struct {
	ID              string    `json:"id"`
	CustomerID      string    `json:"customerId" binding:"required"`
	ServiceType     string    `json:"serviceType" binding:"required,servicetype"`
	Lat             *float64  `json:"lat" binding:"required,latitude"`
	Lng             *float64  `json:"lng" binding:"required,longitude"`
	Address         string    `json:"address"`
	AmountCents     int64     `json:"amountCents" binding:"gte=0"`
	Currency        string    `json:"currency" binding:"omitempty,len=3"`
	ScheduledDate   time.Time `json:"scheduledDate"`
	PaymentIntentID string    `json:"paymentIntentId"`
}

// ServiceRequestService records the bookings attributions are opened for.
type ServiceRequestService interface {
	CreateServiceRequest(ctx context.Context, in CreateInput) (*models.ServiceRequest, error)
	GetServiceRequest(ctx context.Context, id string) (*models.ServiceRequest, error)
}

type DefaultServiceRequestService struct {
	Repo   bookingRepo.ServiceRequestRepository
	logger *zap.Logger
}

var _ ServiceRequestService = (*DefaultServiceRequestService)(nil)

func NewDefaultServiceRequestService(repo bookingRepo.ServiceRequestRepository, logger *zap.Logger) *DefaultServiceRequestService {
	return &DefaultServiceRequestService{Repo: repo, logger: logger.With(zap.String("component", "booking"))}
}

func (s *DefaultServiceRequestService) CreateServiceRequest(ctx context.Context, in CreateInput) (*models.ServiceRequest, error) {
	if strings.TrimSpace(in.CustomerID) == "" {
		return nil, fmt.Errorf("%w: customerId is required", ErrInvalidInput)
	}
	if !models.IsKnownServiceType(in.ServiceType) {
		return nil, fmt.Errorf("%w: unknown service type %s", ErrInvalidInput, in.ServiceType)
	}
	if in.Lat == nil || in.Lng == nil {
		return nil, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	if err := models.ValidateCoordinates(*in.Lat, *in.Lng); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	id := in.ID
	if id == "" {
		id = uuid.NewString()
	}
	currency := strings.ToLower(in.Currency)
	if currency == "" {
		currency = "eur"
	}
	now := time.Now().UTC()
	sr := &models.ServiceRequest{
		ID:              id,
		CustomerID:      in.CustomerID,
		ServiceType:     in.ServiceType,
		LocationGeo:     models.NewGeoPoint(*in.Lat, *in.Lng),
		Address:         in.Address,
		AmountCents:     in.AmountCents,
		Currency:        currency,
		ScheduledDate:   in.ScheduledDate,
		PaymentIntentID: in.PaymentIntentID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.Repo.Create(ctx, sr); err != nil {
		return nil, fmt.Errorf("create service request: %w", err)
	}
	s.logger.Info("service request recorded",
		zap.String("service_request_id", sr.ID),
		zap.String("service_type", sr.ServiceType))
	return sr, nil
}

func (s *DefaultServiceRequestService) GetServiceRequest(ctx context.Context, id string) (*models.ServiceRequest, error) {
	sr, err := s.Repo.GetByID(ctx, id)
	if errors.Is(err, bookingRepo.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrServiceRequestNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load service request %s: %w", id, err)
	}
	return sr, nil
}
