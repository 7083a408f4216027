package models

import "time"

// Notification kinds sent to providers.
const (
	NotifyMissionInvitation = "mission_invitation"
	NotifyMissionConfirmed  = "mission_confirmed"
	NotifyMissionTaken      = "mission_taken"
	NotifyMissionReassigned = "mission_reassigned"
	NotifyMissionCancelled  = "mission_cancelled"
	NotifyBlacklisted       = "provider_blacklisted"
)

type Notification struct {
	ID         string            `json:"id"`
	ProviderID string            `json:"providerId"`
	Type       string            `json:"type"`
	Title      string            `json:"title"`
	Body       string            `json:"body"`
	Data       map[string]string `json:"data"`
	CreatedAt  time.Time         `json:"createdAt"`
}
