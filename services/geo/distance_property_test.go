package geo

import (
	"math"
	"testing"

	"moveo/models"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestHaversineProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	lat := gen.Float64Range(-90, 90)
	lng := gen.Float64Range(-180, 180)

	properties.Property("distance is symmetric", prop.ForAll(
		func(lat1, lng1, lat2, lng2 float64) bool {
			return math.Abs(Haversine(lat1, lng1, lat2, lng2)-Haversine(lat2, lng2, lat1, lng1)) < 1e-6
		},
		lat, lng, lat, lng,
	))

	properties.Property("distance is bounded by half the circumference", prop.ForAll(
		func(lat1, lng1, lat2, lng2 float64) bool {
			d := Haversine(lat1, lng1, lat2, lng2)
			return d >= 0 && d <= math.Pi*EarthRadiusKm+1e-6
		},
		lat, lng, lat, lng,
	))

	properties.Property("filter keeps only providers within range, closest first", prop.ForAll(
		func(lat1, lng1, lat2, lng2 float64, radius float64) bool {
			candidates := []models.Provider{
				provider("a", lat1, lng1),
				provider("b", lat2, lng2),
			}
			q := Query{ServiceType: models.ServiceMoving, Lat: lat1, Lng: lng1, MaxDistanceKm: radius}
			got := Filter(candidates, q, nil)
			for i, p := range got {
				if p.DistanceKm > radius {
					return false
				}
				if i > 0 && got[i-1].DistanceKm > p.DistanceKm {
					return false
				}
			}
			// the provider at the center is always eligible
			return len(got) >= 1 && got[0].Provider.ID == "a"
		},
		lat, lng, lat, lng, gen.Float64Range(0.001, 500),
	))

	properties.TestingRun(t)
}
