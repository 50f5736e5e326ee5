package geo

import (
	"math"

	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two points.
func HaversineKm(a, b types.GeographyPoint) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// WithinRadius reports whether point lies inside the circle, boundary included.
func WithinRadius(center types.GeographyPoint, radiusKm float64, point types.GeographyPoint) bool {
	return HaversineKm(center, point) <= radiusKm
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
