package models

import (
	"fmt"
	"time"
)

// AttributionStatus is the lifecycle state of an attribution.
type AttributionStatus string

const (
	StatusBroadcasting   AttributionStatus = "BROADCASTING"
	StatusReBroadcasting AttributionStatus = "RE_BROADCASTING"
	StatusAttributed     AttributionStatus = "ATTRIBUTED"
	StatusCompleted      AttributionStatus = "COMPLETED"
	StatusExpired        AttributionStatus = "EXPIRED"
	StatusCancelled      AttributionStatus = "CANCELLED"
)

// BroadcastingStatuses are the states in which providers may still accept.
var BroadcastingStatuses = []AttributionStatus{StatusBroadcasting, StatusReBroadcasting}

// ActiveStatuses are the non-terminal states; at most one attribution per
// service request may be in one of them.
var ActiveStatuses = []AttributionStatus{StatusBroadcasting, StatusReBroadcasting, StatusAttributed}

func (s AttributionStatus) IsBroadcasting() bool {
	return s == StatusBroadcasting || s == StatusReBroadcasting
}

func (s AttributionStatus) IsActive() bool {
	return s.IsBroadcasting() || s == StatusAttributed
}

func (s AttributionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusExpired || s == StatusCancelled
}

// Attribution is the dispatch of one service request to providers.
type Attribution struct {
	ID                  string            `bson:"id" json:"id"`
	ServiceRequestID    string            `bson:"serviceRequestId" json:"serviceRequestId"`
	ServiceType         string            `bson:"serviceType" json:"serviceType"`
	Status              AttributionStatus `bson:"status" json:"status"`
	ServiceLocation     GeoPoint          `bson:"serviceLocation" json:"serviceLocation"`
	MaxDistanceKm       float64           `bson:"maxDistanceKm" json:"maxDistanceKm"`
	BroadcastCount      int               `bson:"broadcastCount" json:"broadcastCount"` // current round, starts at 1
	ExcludedProviderIDs ProviderIDSet     `bson:"excludedProviderIds" json:"excludedProviderIds"`
	AcceptedProviderID  *string           `bson:"acceptedProviderId" json:"acceptedProviderId"`
	StatusReason        string            `bson:"statusReason,omitempty" json:"statusReason,omitempty"`
	Active              bool              `bson:"active" json:"-"` // mirrors Status.IsActive() for the unique index
	ExpiresAt           time.Time         `bson:"expiresAt" json:"expiresAt"` // deadline of the current round
	CreatedAt           time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt           time.Time         `bson:"updatedAt" json:"updatedAt"`
}

// RoundKey identifies the current broadcast round.
func (a *Attribution) RoundKey() string {
	return RoundKey(a.ID, a.BroadcastCount)
}

func RoundKey(attributionID string, round int) string {
	return fmt.Sprintf("%s#%d", attributionID, round)
}

// AcceptedBy reports whether providerID currently holds the attribution.
func (a *Attribution) AcceptedBy(providerID string) bool {
	return a.AcceptedProviderID != nil && *a.AcceptedProviderID == providerID
}

func (a *Attribution) Clone() *Attribution {
	c := *a
	c.ExcludedProviderIDs = a.ExcludedProviderIDs.Clone()
	if a.AcceptedProviderID != nil {
		id := *a.AcceptedProviderID
		c.AcceptedProviderID = &id
	}
	if a.ServiceLocation.Coordinates != nil {
		c.ServiceLocation.Coordinates = append([]float64(nil), a.ServiceLocation.Coordinates...)
	}
	return &c
}
