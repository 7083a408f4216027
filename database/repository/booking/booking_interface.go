package bookingRepo

import (
	"context"
	"errors"

	"moveo/models"
)

var ErrNotFound = errors.New("service request not found")

// ServiceRequestRepository gives the attribution engine access to paid
// bookings. Only the assignment is ever written.
type ServiceRequestRepository interface {
	GetByID(ctx context.Context, id string) (*models.ServiceRequest, error)
	Create(ctx context.Context, sr *models.ServiceRequest) error
	// AssignProvider sets the assignee when it is empty or already providerID.
	// Reports false when another provider holds the request.
	AssignProvider(ctx context.Context, id, providerID string) (bool, error)
	// ClearAssignment empties the assignee only if it is providerID.
	ClearAssignment(ctx context.Context, id, providerID string) (bool, error)
}
