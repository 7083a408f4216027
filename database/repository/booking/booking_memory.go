package bookingRepo

import (
	"context"
	"sync"
	"time"

	"moveo/models"
)

type MemoryServiceRequestRepo struct {
	mu       sync.Mutex
	requests map[string]*models.ServiceRequest
}

func NewMemoryServiceRequestRepo(requests ...models.ServiceRequest) *MemoryServiceRequestRepo {
	r := &MemoryServiceRequestRepo{requests: make(map[string]*models.ServiceRequest)}
	for i := range requests {
		sr := requests[i]
		r.requests[sr.ID] = &sr
	}
	return r
}

func (r *MemoryServiceRequestRepo) GetByID(_ context.Context, id string) (*models.ServiceRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sr, ok := r.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *sr
	if sr.AssignedProviderID != nil {
		p := *sr.AssignedProviderID
		c.AssignedProviderID = &p
	}
	return &c, nil
}

func (r *MemoryServiceRequestRepo) Create(_ context.Context, sr *models.ServiceRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := *sr
	r.requests[sr.ID] = &c
	return nil
}

func (r *MemoryServiceRequestRepo) AssignProvider(_ context.Context, id, providerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sr, ok := r.requests[id]
	if !ok {
		return false, nil
	}
	if sr.AssignedProviderID != nil && *sr.AssignedProviderID != providerID {
		return false, nil
	}
	p := providerID
	sr.AssignedProviderID = &p
	sr.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (r *MemoryServiceRequestRepo) ClearAssignment(_ context.Context, id, providerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sr, ok := r.requests[id]
	if !ok || sr.AssignedProviderID == nil || *sr.AssignedProviderID != providerID {
		return false, nil
	}
	sr.AssignedProviderID = nil
	sr.UpdatedAt = time.Now().UTC()
	return true, nil
}
