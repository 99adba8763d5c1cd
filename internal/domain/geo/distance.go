// Package geo provides great-circle distance helpers.
package geo

import "math"

// Earth mean radius.
const (
	EarthRadiusMeters = 6_371_000.0
	EarthRadiusMiles  = 3_958.8
	MetersPerMile     = 1_609.344
)

// Haversine returns the great-circle distance in meters between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	return EarthRadiusMeters * centralAngle(lat1, lon1, lat2, lon2)
}

// DistanceMiles returns the great-circle distance in statute miles.
func DistanceMiles(lat1, lon1, lat2, lon2 float64) float64 {
	return EarthRadiusMiles * centralAngle(lat1, lon1, lat2, lon2)
}

func centralAngle(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// numerical noise can push a slightly above 1
	a = math.Min(1, a)
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
