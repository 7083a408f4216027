package models

import "time"

// BlacklistEntry tracks consecutive refusals of a provider.
type BlacklistEntry struct {
	ProviderID              string     `bson:"providerId" json:"providerId"`
	ConsecutiveRefusalCount int        `bson:"consecutiveRefusalCount" json:"consecutiveRefusalCount"`
	RefusedRounds           []string   `bson:"refusedRounds" json:"-"` // round keys counted since the last reset
	IsActive                bool       `bson:"isActive" json:"isActive"`
	Reason                  string     `bson:"reason,omitempty" json:"reason,omitempty"`
	CreatedAt               time.Time  `bson:"createdAt" json:"createdAt"`
	UpdatedAt               time.Time  `bson:"updatedAt" json:"updatedAt"`
	ExpiresAt               *time.Time `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
}

// Banned reports whether the entry excludes the provider at now.
func (e *BlacklistEntry) Banned(now time.Time) bool {
	if e == nil || !e.IsActive {
		return false
	}
	return e.ExpiresAt == nil || now.Before(*e.ExpiresAt)
}
