package models

import "time"

// ResponseOutcome is what happened to one provider's invitation.
type ResponseOutcome string

const (
	ResponsePending    ResponseOutcome = "pending"
	ResponseAccepted   ResponseOutcome = "accepted"
	ResponseRefused    ResponseOutcome = "refused"
	ResponseTimedOut   ResponseOutcome = "timed_out"
	ResponseSuperseded ResponseOutcome = "superseded" // someone else won the round
	ResponseCancelled  ResponseOutcome = "cancelled"  // accepted, then withdrawn
)

// EligibilityResponse records one invitation of a provider in one round.
type EligibilityResponse struct {
	AttributionID string          `bson:"attributionId" json:"attributionId"`
	ProviderID    string          `bson:"providerId" json:"providerId"`
	Round         int             `bson:"round" json:"round"`
	DistanceKm    float64         `bson:"distanceKm" json:"distanceKm"`
	Outcome       ResponseOutcome `bson:"outcome" json:"outcome"`
	Reason        string          `bson:"reason,omitempty" json:"reason,omitempty"`
	RespondedAt   *time.Time      `bson:"respondedAt,omitempty" json:"respondedAt,omitempty"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
}
