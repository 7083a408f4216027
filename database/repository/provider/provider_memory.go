package providerRepo

import (
	"context"
	"sort"
	"sync"

	"moveo/models"
)

// MemoryProviderRepo keeps providers in a map. ListCandidates applies only
// the verified and service type conditions.
type MemoryProviderRepo struct {
	mu        sync.RWMutex
	providers map[string]models.Provider
}

func NewMemoryProviderRepo(providers ...models.Provider) *MemoryProviderRepo {
	r := &MemoryProviderRepo{providers: make(map[string]models.Provider)}
	for _, p := range providers {
		r.providers[p.ID] = p
	}
	return r
}

func (r *MemoryProviderRepo) GetByID(_ context.Context, id string) (*models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *MemoryProviderRepo) GetMany(_ context.Context, ids []string) ([]models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Provider
	for _, id := range ids {
		if p, ok := r.providers[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *MemoryProviderRepo) Create(_ context.Context, p *models.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID] = *p
	return nil
}

func (r *MemoryProviderRepo) Update(_ context.Context, p *models.Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.providers[p.ID]; !ok {
		return ErrNotFound
	}
	r.providers[p.ID] = *p
	return nil
}

func (r *MemoryProviderRepo) ListCandidates(_ context.Context, q CandidateQuery) ([]models.Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Provider
	for _, p := range r.providers {
		if !p.Verified {
			continue
		}
		if q.ServiceType != "" && !p.Offers(q.ServiceType) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
