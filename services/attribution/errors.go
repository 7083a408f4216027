package attribution

import (
	"errors"
	"fmt"
)

var (
	ErrAttributionNotFound      = errors.New("attribution not found")
	ErrServiceRequestNotFound   = errors.New("service request not found")
	ErrAttributionAlreadyActive = errors.New("service request already has an active attribution")
)

// ValidationError reports a malformed command.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func newValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// ActiveAttributionError is returned by Start when the service request is
// already being attributed. It matches ErrAttributionAlreadyActive.
type ActiveAttributionError struct {
	ServiceRequestID string
	AttributionID    string
}

func (e *ActiveAttributionError) Error() string {
	return fmt.Sprintf("service request %s already has active attribution %s", e.ServiceRequestID, e.AttributionID)
}

func (e *ActiveAttributionError) Is(target error) bool {
	return target == ErrAttributionAlreadyActive
}
