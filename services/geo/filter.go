package geo

import (
	"sort"

	"moveo/models"
)

// Query describes the job a provider must be eligible for.
type Query struct {
	ServiceType   string
	Lat           float64
	Lng           float64
	MaxDistanceKm float64
	ExcludedIDs   models.ProviderIDSet
}

func (q Query) Center() models.GeoPoint {
	return models.NewGeoPoint(q.Lat, q.Lng)
}

// Validate checks coordinates, radius and service type.
func (q Query) Validate() error {
	if err := models.ValidateCoordinates(q.Lat, q.Lng); err != nil {
		return newValidationError("coordinates", err.Error())
	}
	if !(q.MaxDistanceKm > 0) {
		return newValidationError("maxDistanceKm", "must be greater than zero")
	}
	if !models.IsKnownServiceType(q.ServiceType) {
		return newValidationError("serviceType", "unknown service type "+q.ServiceType)
	}
	return nil
}

// Filter keeps the candidates that are verified, offer the service type,
// are not excluded, are not banned and lie within MaxDistanceKm (inclusive).
// The result is sorted by distance then provider id and is never nil.
func Filter(candidates []models.Provider, q Query, banned func(providerID string) bool) []models.ProviderWithDistance {
	out := []models.ProviderWithDistance{}
	for _, p := range candidates {
		if !p.Verified {
			continue
		}
		if !p.Offers(q.ServiceType) {
			continue
		}
		if q.ExcludedIDs.Contains(p.ID) {
			continue
		}
		if banned != nil && banned(p.ID) {
			continue
		}
		if !p.LocationGeo.Valid() {
			continue
		}
		d := Haversine(q.Lat, q.Lng, p.LocationGeo.Lat(), p.LocationGeo.Lng())
		if d > q.MaxDistanceKm {
			continue
		}
		out = append(out, models.ProviderWithDistance{
			Provider:   p,
			DistanceKm: d,
			RoundedKm:  models.RoundKm(d),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceKm != out[j].DistanceKm {
			return out[i].DistanceKm < out[j].DistanceKm
		}
		return out[i].Provider.ID < out[j].Provider.ID
	})
	return out
}
