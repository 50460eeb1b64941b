package model

import "math"

// earthRadiusKm is the mean Earth radius used for great-circle distances.
const earthRadiusKm = 6371.0

// LatLon is a WGS84 coordinate pair.
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the coordinate is a finite point on the globe.
func (p LatLon) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lon, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// HaversineKm returns the great-circle distance to other in kilometers.
func (p LatLon) HaversineKm(other LatLon) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLon := (other.Lon - p.Lon) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// PlanarMeters returns the equirectangular-projected distance to other in
// meters. Adequate for nearest-node snapping at city scale; not for long arcs.
func (p LatLon) PlanarMeters(other LatLon) float64 {
	midLat := (p.Lat + other.Lat) / 2 * math.Pi / 180
	dx := (other.Lon - p.Lon) * math.Cos(midLat) * 111320.0
	dy := (other.Lat - p.Lat) * 110540.0
	return math.Sqrt(dx*dx + dy*dy)
}

// Midpoint returns the planar midpoint between p and other.
func (p LatLon) Midpoint(other LatLon) LatLon {
	return LatLon{Lat: (p.Lat + other.Lat) / 2, Lon: (p.Lon + other.Lon) / 2}
}

// Clamp01 bounds v to [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
