package eligibilityRepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"moveo/models"
)

type responseKey struct {
	attributionID string
	providerID    string
	round         int
}

type MemoryEligibilityRepo struct {
	mu    sync.Mutex
	items map[responseKey]*models.EligibilityResponse
}

func NewMemoryEligibilityRepo() *MemoryEligibilityRepo {
	return &MemoryEligibilityRepo{items: make(map[responseKey]*models.EligibilityResponse)}
}

func (r *MemoryEligibilityRepo) RecordInvitations(_ context.Context, responses []models.EligibilityResponse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, resp := range responses {
		k := responseKey{resp.AttributionID, resp.ProviderID, resp.Round}
		if _, ok := r.items[k]; ok {
			continue
		}
		c := resp
		r.items[k] = &c
	}
	return nil
}

func (r *MemoryEligibilityRepo) Get(_ context.Context, attributionID, providerID string, round int) (*models.EligibilityResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.items[responseKey{attributionID, providerID, round}]
	if !ok {
		return nil, ErrNotFound
	}
	c := *resp
	return &c, nil
}

func (r *MemoryEligibilityRepo) Resolve(_ context.Context, attributionID, providerID string, round int, from []models.ResponseOutcome, to models.ResponseOutcome, reason string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.items[responseKey{attributionID, providerID, round}]
	if !ok || !outcomeIn(resp.Outcome, from) {
		return false, nil
	}
	resp.Outcome = to
	resp.Reason = reason
	t := at
	resp.RespondedAt = &t
	return true, nil
}

func (r *MemoryEligibilityRepo) ResolvePending(_ context.Context, attributionID string, round int, exceptProviderID string, to models.ResponseOutcome, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, resp := range r.items {
		if k.attributionID != attributionID || k.round != round || k.providerID == exceptProviderID {
			continue
		}
		if resp.Outcome != models.ResponsePending {
			continue
		}
		resp.Outcome = to
		t := at
		resp.RespondedAt = &t
		n++
	}
	return n, nil
}

func (r *MemoryEligibilityRepo) CountPending(_ context.Context, attributionID string, round int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for k, resp := range r.items {
		if k.attributionID == attributionID && k.round == round && resp.Outcome == models.ResponsePending {
			n++
		}
	}
	return n, nil
}

func (r *MemoryEligibilityRepo) ListByRound(_ context.Context, attributionID string, round int) ([]models.EligibilityResponse, error) {
	return r.list(func(k responseKey) bool { return k.attributionID == attributionID && k.round == round }), nil
}

func (r *MemoryEligibilityRepo) ListByAttribution(_ context.Context, attributionID string) ([]models.EligibilityResponse, error) {
	return r.list(func(k responseKey) bool { return k.attributionID == attributionID }), nil
}

func (r *MemoryEligibilityRepo) list(keep func(responseKey) bool) []models.EligibilityResponse {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.EligibilityResponse{}
	for k, resp := range r.items {
		if keep(k) {
			out = append(out, *resp)
		}
	}
	sortResponses(out)
	return out
}

// sortResponses orders by round, then distance, then provider id.
func sortResponses(out []models.EligibilityResponse) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].ProviderID < out[j].ProviderID
	})
}

func outcomeIn(o models.ResponseOutcome, set []models.ResponseOutcome) bool {
	for _, s := range set {
		if o == s {
			return true
		}
	}
	return false
}
