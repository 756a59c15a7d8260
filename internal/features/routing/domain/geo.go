package domain

import "math"

// EarthRadiusMeters is the mean Earth radius used for the routing cost metric.
const EarthRadiusMeters = 6371000.0

// Haversine returns the great-circle distance in meters between two
// coordinate pairs given in degrees.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// RouteDistance returns the total open-path distance in meters along
// consecutive stops. Stops without valid coordinates contribute nothing.
func RouteDistance(stops []Stop) float64 {
	total := 0.0
	for i := 0; i < len(stops)-1; i++ {
		a, b := stops[i], stops[i+1]
		if !a.HasValidCoordinates() || !b.HasValidCoordinates() {
			continue
		}
		total += Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
	}
	return total
}
