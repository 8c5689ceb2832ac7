// Package route models waypoints, computed route geometry and the provider contracts.
package route

import (
	"context"

	"github.com/tripexl/service-dispatch/internal/geo"
)

// Waypoint is a user-placed point. Its index in a route is its role:
// first is the origin, last the destination, interior points are stopovers.
type Waypoint = geo.Point

// Geometry is an immutable computed route. Coordinates never contain two
// consecutive identical points.
type Geometry struct {
	Coordinates       []Waypoint `json:"coordinates"`
	TravelTimeSeconds int        `json:"travel_time_seconds"`
	DistanceMeters    int        `json:"distance_meters"`
}

// NewGeometry builds a Geometry, deduplicating the polyline and clamping negative totals to zero.
func NewGeometry(coordinates []Waypoint, travelTimeSeconds, distanceMeters int) *Geometry {
	if travelTimeSeconds < 0 {
		travelTimeSeconds = 0
	}
	if distanceMeters < 0 {
		distanceMeters = 0
	}
	return &Geometry{
		Coordinates:       geo.Dedupe(coordinates),
		TravelTimeSeconds: travelTimeSeconds,
		DistanceMeters:    distanceMeters,
	}
}

// Leg is one provider leg between consecutive waypoints.
type Leg struct {
	DurationSeconds int
	DistanceMeters  int
	Points          []Waypoint
}

// GeometryFromLegs concatenates leg polylines in order and sums their totals.
func GeometryFromLegs(legs []Leg) *Geometry {
	var (
		coords   []Waypoint
		duration int
		distance int
	)
	for _, leg := range legs {
		coords = append(coords, leg.Points...)
		duration += leg.DurationSeconds
		distance += leg.DistanceMeters
	}
	return NewGeometry(coords, duration, distance)
}

// Router computes a driving route through waypoints in the given order.
type Router interface {
	// Route returns the geometry for at least two waypoints. Stopover order is
	// preserved. Failures are domain errors of kind insufficient_waypoints,
	// route_not_found or provider_unavailable.
	Route(ctx context.Context, waypoints []Waypoint) (*Geometry, error)
}

// Geocoder resolves free text to a single best-match coordinate.
type Geocoder interface {
	// Geocode returns the first match, or a geocode_not_found / provider_unavailable error.
	Geocode(ctx context.Context, query string) (Waypoint, error)
}
