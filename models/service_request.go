package models

import "time"

// ServiceRequest is a paid customer booking. The attribution engine only
// writes AssignedProviderID.
type ServiceRequest struct {
	ID                 string    `bson:"id" json:"id"`
	CustomerID         string    `bson:"customerId" json:"customerId"`
	ServiceType        string    `bson:"serviceType" json:"serviceType"`
	LocationGeo        GeoPoint  `bson:"locationGeo" json:"locationGeo"`
	Address            string    `bson:"address,omitempty" json:"address,omitempty"`
	AmountCents        int64     `bson:"amountCents" json:"amountCents"`
	Currency           string    `bson:"currency" json:"currency"`
	ScheduledDate      time.Time `bson:"scheduledDate" json:"scheduledDate"`
	PaymentIntentID    string    `bson:"paymentIntentId,omitempty" json:"paymentIntentId,omitempty"`
	AssignedProviderID *string   `bson:"assignedProviderId" json:"assignedProviderId"`
	CreatedAt          time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt          time.Time `bson:"updatedAt" json:"updatedAt"`
}

// PaymentSucceeded is the event that opens an attribution.
type PaymentSucceeded struct {
	ServiceRequestID string   `json:"serviceRequestId" binding:"required"`
	ServiceType      string   `json:"serviceType" binding:"required,servicetype"`
	Lat              *float64 `json:"lat" binding:"required,latitude"`
	Lng              *float64 `json:"lng" binding:"required,longitude"`
	MaxDistanceKm    float64  `json:"maxDistanceKm" binding:"omitempty,gt=0"`
	PaymentIntentID  string   `json:"paymentIntentId,omitempty"`
}
