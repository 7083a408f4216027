package blacklistRepo

import (
	"context"
	"sync"
	"time"

	"moveo/models"
)

type MemoryBlacklistRepo struct {
	mu      sync.Mutex
	entries map[string]*models.BlacklistEntry
}

func NewMemoryBlacklistRepo() *MemoryBlacklistRepo {
	return &MemoryBlacklistRepo{entries: make(map[string]*models.BlacklistEntry)}
}

func copyEntry(e *models.BlacklistEntry) *models.BlacklistEntry {
	c := *e
	c.RefusedRounds = append([]string(nil), e.RefusedRounds...)
	return &c
}

func (r *MemoryBlacklistRepo) IncrementRefusalCounter(_ context.Context, providerID, roundKey string, now time.Time) (*models.BlacklistEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[providerID]
	if !ok {
		e = &models.BlacklistEntry{ProviderID: providerID, CreatedAt: now}
		r.entries[providerID] = e
	}
	for _, k := range e.RefusedRounds {
		if k == roundKey {
			return copyEntry(e), false, nil
		}
	}
	e.ConsecutiveRefusalCount++
	e.RefusedRounds = append(e.RefusedRounds, roundKey)
	e.UpdatedAt = now
	return copyEntry(e), true, nil
}

func (r *MemoryBlacklistRepo) Activate(_ context.Context, providerID, reason string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[providerID]
	if !ok {
		return false, ErrNotFound
	}
	if e.IsActive {
		return false, nil
	}
	e.IsActive = true
	e.Reason = reason
	e.UpdatedAt = now
	return true, nil
}

func (r *MemoryBlacklistRepo) ResetRefusals(_ context.Context, providerID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[providerID]; ok {
		e.ConsecutiveRefusalCount = 0
		e.RefusedRounds = nil
		e.UpdatedAt = now
	}
	return nil
}

func (r *MemoryBlacklistRepo) Lift(_ context.Context, providerID string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[providerID]
	if !ok {
		return ErrNotFound
	}
	e.IsActive = false
	e.Reason = ""
	e.ConsecutiveRefusalCount = 0
	e.RefusedRounds = nil
	e.UpdatedAt = now
	return nil
}

func (r *MemoryBlacklistRepo) Get(_ context.Context, providerID string) (*models.BlacklistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[providerID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyEntry(e), nil
}

func (r *MemoryBlacklistRepo) ListActive(_ context.Context, providerIDs []string) ([]models.BlacklistEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.BlacklistEntry
	for _, id := range providerIDs {
		if e, ok := r.entries[id]; ok && e.IsActive {
			out = append(out, *copyEntry(e))
		}
	}
	return out, nil
}
