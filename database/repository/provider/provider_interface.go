package providerRepo

import (
	"context"
	"errors"
	"math"

	"moveo/models"
)

var ErrNotFound = errors.New("provider not found")

// CandidateQuery narrows the provider set before precise geo filtering.
// Implementations may return a superset; callers re-check every condition.
type CandidateQuery struct {
	ServiceType string
	Center      models.GeoPoint
	RadiusKm    float64
}

// ProviderRepository defines methods for provider data access.
type ProviderRepository interface {
	// GetByID retrieves a provider by its unique ID.
	GetByID(ctx context.Context, id string) (*models.Provider, error)
	// GetMany retrieves the providers with the given ids, skipping unknown ones.
	GetMany(ctx context.Context, ids []string) ([]models.Provider, error)
	// Create inserts a new provider record.
	Create(ctx context.Context, provider *models.Provider) error
	// Update modifies an existing provider record.
	Update(ctx context.Context, provider *models.Provider) error
	// ListCandidates returns verified providers offering the service type
	// whose home base is roughly within RadiusKm of Center.
	ListCandidates(ctx context.Context, q CandidateQuery) ([]models.Provider, error)
}

const earthRadiusKm = 6371.0

// candidateRadiusKm pads the search radius so the coarse pre-filter never
// drops a provider the exact haversine check would keep.
func candidateRadiusKm(radiusKm float64) float64 {
	return radiusKm*1.01 + 0.5
}

// boundingBox returns a lat/lng box around center covering radiusKm.
// The longitude half-width is the widest point of the spherical cap, which
// lies north or south of center. ok is false when the box touches a pole
// or the antimeridian.
func boundingBox(lat, lng, radiusKm float64) (minLat, maxLat, minLng, maxLng float64, ok bool) {
	angular := radiusKm / earthRadiusKm
	dLat := angular * 180 / math.Pi
	minLat, maxLat = lat-dLat, lat+dLat
	if minLat <= -90 || maxLat >= 90 {
		return 0, 0, 0, 0, false
	}
	ratio := math.Sin(angular) / math.Cos(lat*math.Pi/180)
	if ratio >= 1 {
		return 0, 0, 0, 0, false
	}
	dLng := math.Asin(ratio) * 180 / math.Pi
	minLng, maxLng = lng-dLng, lng+dLng
	if minLng < -180 || maxLng > 180 {
		return 0, 0, 0, 0, false
	}
	return minLat, maxLat, minLng, maxLng, true
}
