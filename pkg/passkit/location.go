package passkit

import (
	"fmt"
	"math"
)

// Location is a point at which the pass becomes relevant.
type Location struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Altitude     float64 `json:"altitude,omitempty"`
	RelevantText string  `json:"relevantText,omitempty"`
}

// NewLocation validates the coordinates and returns a Location.
// An altitude of zero is treated as unset.
func NewLocation(latitude, longitude, altitude float64, relevantText string) (Location, error) {
	if math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return Location{}, fmt.Errorf("%w: latitude %v out of range", ErrInvalidValue, latitude)
	}
	if math.IsNaN(longitude) || longitude < -180 || longitude > 180 {
		return Location{}, fmt.Errorf("%w: longitude %v out of range", ErrInvalidValue, longitude)
	}
	if math.IsNaN(altitude) || math.IsInf(altitude, 0) {
		return Location{}, fmt.Errorf("%w: altitude %v", ErrInvalidValue, altitude)
	}
	return Location{
		Latitude:     latitude,
		Longitude:    longitude,
		Altitude:     altitude,
		RelevantText: relevantText,
	}, nil
}
