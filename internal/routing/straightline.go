package routing

import (
	"context"
	"errors"
	"math"

	"github.com/tripexl/service-dispatch/internal/domain"
	"github.com/tripexl/service-dispatch/internal/domain/route"
	"github.com/tripexl/service-dispatch/internal/geo"
)

// DefaultAverageSpeedKPH is the urban driving speed assumed by StraightLineRouter.
const DefaultAverageSpeedKPH = 30.0

// StraightLineRouter estimates a route as great-circle legs between
// consecutive waypoints. It needs no network access.
type StraightLineRouter struct {
	speedKPH float64
}

// NewStraightLineRouter creates a StraightLineRouter. A non-positive speed selects DefaultAverageSpeedKPH.
func NewStraightLineRouter(speedKPH float64) *StraightLineRouter {
	if speedKPH <= 0 {
		speedKPH = DefaultAverageSpeedKPH
	}
	return &StraightLineRouter{speedKPH: speedKPH}
}

// Route returns one leg per consecutive waypoint pair.
func (r *StraightLineRouter) Route(ctx context.Context, waypoints []route.Waypoint) (*route.Geometry, error) {
	if len(waypoints) < 2 {
		return nil, domain.NewInsufficientWaypointsError(len(waypoints))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	metersPerSecond := r.speedKPH * 1000 / 3600
	legs := make([]route.Leg, 0, len(waypoints)-1)
	for i := 1; i < len(waypoints); i++ {
		a, b := waypoints[i-1], waypoints[i]
		d := geo.HaversineMeters(a, b)
		legs = append(legs, route.Leg{
			DistanceMeters:  int(math.Round(d)),
			DurationSeconds: int(math.Round(d / metersPerSecond)),
			Points:          []route.Waypoint{a, b},
		})
	}
	return route.GeometryFromLegs(legs), nil
}

// ErrGeocodingDisabled is returned by UnavailableGeocoder.
var ErrGeocodingDisabled = errors.New("no geocoding provider configured")

// UnavailableGeocoder is used when no geocoding credentials are configured.
type UnavailableGeocoder struct{}

// Geocode always fails with provider_unavailable.
func (UnavailableGeocoder) Geocode(context.Context, string) (route.Waypoint, error) {
	return route.Waypoint{}, domain.NewProviderUnavailableError("geocoding", ErrGeocodingDisabled)
}
