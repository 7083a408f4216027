package models

import (
	"math"
	"time"
)

const (
	ProviderStatusActive    = "active"
	ProviderStatusSuspended = "suspended"
)

// Provider is a professional who can be invited to take missions.
type Provider struct {
	ID                string    `bson:"id" json:"id"`
	Name              string    `bson:"name" json:"name"`
	LocationGeo       GeoPoint  `bson:"locationGeo" json:"locationGeo"`               // home base
	ServiceTypes      []string  `bson:"serviceTypes" json:"serviceTypes"`             // catalogue ids
	Verified          bool      `bson:"verified" json:"verified"`                     // set by onboarding, read-only here
	MaxTravelRadiusKm float64   `bson:"maxTravelRadiusKm" json:"maxTravelRadiusKm"`   // informational
	FCMToken          string    `bson:"fcmToken,omitempty" json:"fcmToken,omitempty"` // push token
	Status            string    `bson:"status" json:"status"`
	CreatedAt         time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt         time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Offers reports whether the provider lists serviceType.
func (p Provider) Offers(serviceType string) bool {
	for _, st := range p.ServiceTypes {
		if st == serviceType {
			return true
		}
	}
	return false
}

// ProviderWithDistance pairs an eligible provider with its distance to the job.
type ProviderWithDistance struct {
	Provider   Provider `json:"provider"`
	DistanceKm float64  `json:"distanceKm"` // full precision, used for comparisons
	RoundedKm  float64  `json:"roundedKm"`  // 2 decimals, display only
}

// RoundKm rounds a distance to two decimals for display.
func RoundKm(d float64) float64 {
	return math.Round(d*100) / 100
}
