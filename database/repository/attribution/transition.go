package attributionRepo

import (
	"time"

	"moveo/models"
)

// Transition is a guarded update of an attribution. Zero values mean
// "no condition" / "leave unchanged".
type Transition struct {
	// Conditions.
	From              []models.AttributionStatus
	RequireNoAccepted bool
	RequireAccepted   string
	RequireRound      int
	NotExcluded       string
	DeadlineAfter     time.Time // expiresAt > DeadlineAfter
	DeadlineReached   time.Time // expiresAt <= DeadlineReached

	// Mutations.
	To             models.AttributionStatus
	SetAccepted    string
	ClearAccepted  bool
	Exclude        string
	IncrementRound bool
	ExpiresAt      time.Time
	Reason         string
	Now            time.Time
}

// Matches reports whether a satisfies every condition of t.
func (t Transition) Matches(a *models.Attribution) bool {
	if len(t.From) > 0 {
		ok := false
		for _, s := range t.From {
			if a.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if t.RequireNoAccepted && a.AcceptedProviderID != nil {
		return false
	}
	if t.RequireAccepted != "" && !a.AcceptedBy(t.RequireAccepted) {
		return false
	}
	if t.RequireRound > 0 && a.BroadcastCount != t.RequireRound {
		return false
	}
	if t.NotExcluded != "" && a.ExcludedProviderIDs.Contains(t.NotExcluded) {
		return false
	}
	if !t.DeadlineAfter.IsZero() && !a.ExpiresAt.After(t.DeadlineAfter) {
		return false
	}
	if !t.DeadlineReached.IsZero() && a.ExpiresAt.After(t.DeadlineReached) {
		return false
	}
	return true
}

// Apply mutates a in place.
func (t Transition) Apply(a *models.Attribution) {
	if t.To != "" {
		a.Status = t.To
		a.Active = t.To.IsActive()
	}
	if t.SetAccepted != "" {
		id := t.SetAccepted
		a.AcceptedProviderID = &id
	}
	if t.ClearAccepted {
		a.AcceptedProviderID = nil
	}
	if t.Exclude != "" {
		if a.ExcludedProviderIDs == nil {
			a.ExcludedProviderIDs = models.NewProviderIDSet()
		}
		a.ExcludedProviderIDs.Add(t.Exclude)
	}
	if t.IncrementRound {
		a.BroadcastCount++
	}
	if !t.ExpiresAt.IsZero() {
		a.ExpiresAt = t.ExpiresAt
	}
	if t.Reason != "" {
		a.StatusReason = t.Reason
	}
	a.UpdatedAt = t.now()
}

func (t Transition) now() time.Time {
	if t.Now.IsZero() {
		return time.Now().UTC()
	}
	return t.Now
}
