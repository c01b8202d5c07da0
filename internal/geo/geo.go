// Package geo computes great-circle distances for the redemption
// proximity gate.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000.0

// Distance returns the haversine great-circle distance in meters between
// two (latitude, longitude) pairs given in degrees.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	dPhi := (lat2 - lat1) * math.Pi / 180
	dLambda := (lng2 - lng1) * math.Pi / 180

	sinPhi := math.Sin(dPhi / 2)
	sinLambda := math.Sin(dLambda / 2)
	a := sinPhi*sinPhi + math.Cos(phi1)*math.Cos(phi2)*sinLambda*sinLambda
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

// WithinRadius reports whether the two points lie within radiusMeters of
// each other. The boundary itself counts as inside.
func WithinRadius(lat1, lng1, lat2, lng2, radiusMeters float64) bool {
	return Distance(lat1, lng1, lat2, lng2) <= radiusMeters
}
