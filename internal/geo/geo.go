package geo

import (
	"errors"
	"math"

	"github.com/example/ride-dispatch/internal/models"
)

// ErrInvalidCoordinate is returned for non-finite or out-of-range
// latitude/longitude inputs.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

const earthRadiusKm = 6371.0

// Validate checks that a coordinate is finite and within valid degree ranges.
func Validate(c models.Coord) error {
	if math.IsNaN(c.Lat) || math.IsInf(c.Lat, 0) || math.IsNaN(c.Lng) || math.IsInf(c.Lng, 0) {
		return ErrInvalidCoordinate
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lng < -180 || c.Lng > 180 {
		return ErrInvalidCoordinate
	}
	return nil
}

// DistanceKm returns the great-circle distance between two coordinates in
// kilometers using the haversine formula. It is symmetric and returns 0 for
// identical points.
func DistanceKm(a, b models.Coord) (float64, error) {
	if err := Validate(a); err != nil {
		return 0, err
	}
	if err := Validate(b); err != nil {
		return 0, err
	}
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(a.Lat))*math.Cos(toRad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c, nil
}

// EstimateDurationMin converts a distance to an estimated trip duration in
// minutes using a flat 2 min/km model. This is a placeholder, not a routing
// engine.
func EstimateDurationMin(distanceKm float64) float64 {
	return 2 * distanceKm
}

func toRad(deg float64) float64 { return deg * math.Pi / 180 }
