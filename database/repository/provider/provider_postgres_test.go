package providerRepo

import (
	"context"
	"math"
	"regexp"
	"testing"
	"time"

	"moveo/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoundingBoxCoversRadius(t *testing.T) {
	minLat, maxLat, minLng, maxLng, ok := boundingBox(45.764, 4.8357, 30)
	require.True(t, ok)
	// 30 km is roughly 0.27 degrees of latitude.
	assert.InDelta(t, 45.494, minLat, 0.01)
	assert.InDelta(t, 46.034, maxLat, 0.01)
	assert.Less(t, minLng, 4.8357-0.27)
	assert.Greater(t, maxLng, 4.8357+0.27)

	_, _, _, _, ok = boundingBox(89.9, 0, 50)
	assert.False(t, ok, "box over the pole is skipped")
	_, _, _, _, ok = boundingBox(0, 179.9, 50)
	assert.False(t, ok, "box over the antimeridian is skipped")
}

// destination walks distanceKm from (lat, lng) along bearingDeg on the sphere.
func destination(lat, lng, bearingDeg, distanceKm float64) (float64, float64) {
	rad := math.Pi / 180
	phi1, lambda1, theta := lat*rad, lng*rad, bearingDeg*rad
	delta := distanceKm / earthRadiusKm
	phi2 := math.Asin(math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta))
	lambda2 := lambda1 + math.Atan2(math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*math.Sin(phi2))
	return phi2 / rad, lambda2 / rad
}

func TestBoundingBoxContainsWholeCircle(t *testing.T) {
	cases := []struct {
		lat, lng, radiusKm float64
	}{
		{45.764, 4.8357, 30},
		{60, 10, 1000},
		{-55, -70, 800},
		{70, 25, 300},
	}
	for _, tc := range cases {
		minLat, maxLat, minLng, maxLng, ok := boundingBox(tc.lat, tc.lng, tc.radiusKm)
		require.True(t, ok)
		for bearing := 0.0; bearing < 360; bearing += 0.5 {
			lat, lng := destination(tc.lat, tc.lng, bearing, tc.radiusKm*0.9999)
			assert.True(t, lat >= minLat && lat <= maxLat && lng >= minLng && lng <= maxLng,
				"(%v,%v) r=%v: point at bearing %v (%.4f,%.4f) outside box", tc.lat, tc.lng, tc.radiusKm, bearing, lat, lng)
		}
	}

	_, _, minLng, maxLng, ok := boundingBox(60, 10, 1000)
	require.True(t, ok)
	assert.Greater(t, maxLng, 28.1760)
	assert.Less(t, minLng, -8.1760)
}

func TestPostgresListCandidates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostgresProviderRepo(db)
	now := time.Now()
	cols := []string{"id", "name", "lat", "lng", "service_types", "verified", "max_travel_radius_km", "fcm_token", "status", "created_at", "updated_at"}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE verified AND $1 = ANY(service_types) AND lat BETWEEN $2 AND $3 AND lng BETWEEN $4 AND $5")).
		WithArgs("moving", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p1", "Alice", 45.7640, 4.8357, "{moving,cleaning}", true, 40.0, "", "active", now, now))

	providers, err := repo.ListCandidates(context.Background(), CandidateQuery{
		ServiceType: models.ServiceMoving,
		Center:      models.NewGeoPoint(45.764, 4.8357),
		RadiusKm:    30,
	})
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, []string{"moving", "cleaning"}, providers[0].ServiceTypes)
	assert.True(t, providers[0].Offers(models.ServiceCleaning))
	assert.NoError(t, mock.ExpectationsWereMet())
}
