package attributionRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"moveo/models"
)

// MemoryAttributionRepo is an in-process AttributionRepository guarded by a mutex.
type MemoryAttributionRepo struct {
	mu    sync.Mutex
	items map[string]*models.Attribution
}

func NewMemoryAttributionRepo() *MemoryAttributionRepo {
	return &MemoryAttributionRepo{items: make(map[string]*models.Attribution)}
}

func (r *MemoryAttributionRepo) Create(_ context.Context, a *models.Attribution) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.Status.IsActive() {
		for _, existing := range r.items {
			if existing.ServiceRequestID == a.ServiceRequestID && existing.Status.IsActive() {
				return ErrActiveExists
			}
		}
	}
	c := a.Clone()
	c.Active = c.Status.IsActive()
	r.items[a.ID] = c
	return nil
}

func (r *MemoryAttributionRepo) GetByID(_ context.Context, id string) (*models.Attribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	return a.Clone(), nil
}

func (r *MemoryAttributionRepo) GetActiveByServiceRequest(_ context.Context, serviceRequestID string) (*models.Attribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.items {
		if a.ServiceRequestID == serviceRequestID && a.Status.IsActive() {
			return a.Clone(), nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryAttributionRepo) CompareAndSwapStatus(_ context.Context, id string, t Transition) (*models.Attribution, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !t.Matches(a) {
		return nil, ErrConditionNotMet
	}
	t.Apply(a)
	return a.Clone(), nil
}

func (r *MemoryAttributionRepo) AddExclusion(_ context.Context, id, providerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return ErrNotFound
	}
	if a.ExcludedProviderIDs == nil {
		a.ExcludedProviderIDs = models.NewProviderIDSet()
	}
	a.ExcludedProviderIDs.Add(providerID)
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryAttributionRepo) ListExpired(_ context.Context, now time.Time, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, a := range r.items {
		if a.Status.IsBroadcasting() && a.AcceptedProviderID == nil && !a.ExpiresAt.After(now) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
