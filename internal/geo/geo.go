// Package geo provides the small amount of spherical geometry the flight
// animation needs: initial great-circle bearings, haversine distances, and
// coordinate validation. Positions along a flight are a flat linear blend,
// not geodesic; at the zoom levels the map renders, the difference is not
// visible, and the blend keeps per-frame interpolation trivially cheap.
package geo

import "math"

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi

	// Earth radius in nautical miles (haversine).
	earthRadiusNM = 3440.065
)

// InitialBearing returns the initial compass bearing in degrees [0, 360)
// from point 1 toward point 2 along the great circle connecting them.
func InitialBearing(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * degToRad
	phi2 := lat2 * degToRad
	dLambda := (lon2 - lon1) * degToRad

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)

	bearing := math.Atan2(y, x) * radToDeg
	return math.Mod(bearing+360, 360)
}

// DistanceNM returns the great-circle distance between two points in
// nautical miles using the haversine formula.
func DistanceNM(lat1, lon1, lat2, lon2 float64) float64 {
	r1 := lat1 * degToRad
	r2 := lat2 * degToRad

	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	// Normalize dateline crossings.
	for dLon > math.Pi {
		dLon -= 2 * math.Pi
	}
	for dLon < -math.Pi {
		dLon += 2 * math.Pi
	}

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(r1)*math.Cos(r2)*math.Sin(dLon/2)*math.Sin(dLon/2)

	return earthRadiusNM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Lerp linearly interpolates between a and b by fraction t.
func Lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

// ValidCoordinates reports whether the longitude/latitude pair lies within
// the valid geographic ranges.
func ValidCoordinates(lon, lat float64) bool {
	return lon >= -180 && lon <= 180 && lat >= -90 && lat <= 90
}
