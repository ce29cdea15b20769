package geo

import (
	"errors"
	"math"

	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/golang/geo/s2"
)

// EarthRadiusMeters is the mean Earth radius.
const EarthRadiusMeters = 6371008.8

var ErrInvalidCoordinates = errors.New("invalid coordinates")

type Point struct {
	Latitude  float64
	Longitude float64
}

func (p Point) latLng() (s2.LatLng, error) {
	if math.IsNaN(p.Latitude) || math.IsNaN(p.Longitude) {
		return s2.LatLng{}, ErrInvalidCoordinates
	}

	ll := s2.LatLngFromDegrees(p.Latitude, p.Longitude)
	if !ll.IsValid() {
		return s2.LatLng{}, ErrInvalidCoordinates
	}

	return ll, nil
}

// Distance is the great-circle distance in metres.
func Distance(a, b Point) (float64, error) {
	from, err := a.latLng()
	if err != nil {
		return 0, err
	}
	to, err := b.latLng()
	if err != nil {
		return 0, err
	}

	return from.Distance(to).Radians() * EarthRadiusMeters, nil
}

// Within reports the distance from the fence centre and whether the point
// lies inside the radius, boundary included.
func Within(fence entity.GeoFence, p Point) (float64, bool, error) {
	if fence.Radius < 0 || math.IsNaN(fence.Radius) {
		return 0, false, ErrInvalidCoordinates
	}

	d, err := Distance(Point{Latitude: fence.Latitude, Longitude: fence.Longitude}, p)
	if err != nil {
		return 0, false, err
	}

	return d, d <= fence.Radius, nil
}
