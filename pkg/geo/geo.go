package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate pair in degrees.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Distance returns the great-circle distance between two points in meters.
func Distance(a, b Point) float64 {
	lat1 := radians(a.Latitude)
	lat2 := radians(b.Latitude)
	dLat := radians(b.Latitude - a.Latitude)
	dLon := radians(b.Longitude - a.Longitude)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

// WithinRadius reports whether b lies within radiusMeters of a.
// The boundary is inclusive: a point at exactly radiusMeters passes.
func WithinRadius(a, b Point, radiusMeters float64) bool {
	return Distance(a, b) <= radiusMeters
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
