// Package session implements the in-progress booking state machine:
// waypoints are collected from map clicks, a route is computed for them,
// and the result is turned into a Job at booking time.
package session

import (
	"context"
	"math"

	"github.com/google/uuid"

	"github.com/tripexl/service-dispatch/internal/domain"
	"github.com/tripexl/service-dispatch/internal/domain/checklist"
	"github.com/tripexl/service-dispatch/internal/domain/job"
	"github.com/tripexl/service-dispatch/internal/domain/route"
)

// State is the lifecycle state of a Session.
type State string

const (
	StateEmpty      State = "empty"
	StateCollecting State = "collecting"
	StateRouteReady State = "route_ready"
)

// Session holds the waypoints of one booking in progress and the last route
// computed for exactly those waypoints. It is not safe for concurrent use;
// callers serialize access per session.
type Session struct {
	id       string
	ownerID  string
	pricing  job.PricingStrategy
	currency string

	waypoints      []route.Waypoint
	geometry       *route.Geometry
	trafficVisible bool

	// revision changes on every waypoint mutation; seq identifies each compute request.
	revision uint64
	seq      uint64
	inflight uint64
}

// New creates an empty Session for ownerID.
func New(ownerID string, pricing job.PricingStrategy, currency string) *Session {
	return &Session{
		id:       uuid.NewString(),
		ownerID:  ownerID,
		pricing:  pricing,
		currency: currency,
	}
}

// NewSeeded creates a Session pre-filled with waypoints, in order.
func NewSeeded(ownerID string, pricing job.PricingStrategy, currency string, waypoints []route.Waypoint) (*Session, error) {
	s := New(ownerID, pricing, currency)
	for _, wp := range waypoints {
		if err := s.AddWaypoint(wp); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// OwnerID returns the dispatcher that owns the session.
func (s *Session) OwnerID() string { return s.ownerID }

// Currency returns the currency of cost estimates.
func (s *Session) Currency() string { return s.currency }

// State derives the lifecycle state from the current fields.
func (s *Session) State() State {
	switch {
	case len(s.waypoints) == 0:
		return StateEmpty
	case s.geometry != nil:
		return StateRouteReady
	default:
		return StateCollecting
	}
}

// Waypoints returns a copy of the collected waypoints.
func (s *Session) Waypoints() []route.Waypoint {
	return append([]route.Waypoint(nil), s.waypoints...)
}

// Geometry returns the route for the current waypoints, or nil if none is valid.
func (s *Session) Geometry() *route.Geometry { return s.geometry }

// TrafficVisible reports whether the traffic overlay is switched on.
func (s *Session) TrafficVisible() bool { return s.trafficVisible }

// SetTrafficVisible switches the traffic overlay.
func (s *Session) SetTrafficVisible(v bool) { s.trafficVisible = v }

// Busy reports whether a route computation is outstanding.
func (s *Session) Busy() bool { return s.inflight != 0 }

// AddWaypoint appends pt. Any previously computed route becomes stale and is dropped.
func (s *Session) AddWaypoint(pt route.Waypoint) error {
	if !pt.Valid() {
		return domain.NewValidationError("waypoint is outside the valid coordinate range")
	}
	s.waypoints = append(s.waypoints, pt)
	s.geometry = nil
	s.revision++
	return nil
}

// Clear resets every field and returns the session to Empty. Outstanding
// computations are orphaned and their results will be dropped.
func (s *Session) Clear() {
	s.waypoints = nil
	s.geometry = nil
	s.trafficVisible = false
	s.revision++
	s.inflight = 0
}

// Ticket tags a route request with the waypoint set it was issued for.
type Ticket struct {
	Waypoints []route.Waypoint
	revision  uint64
	seq       uint64
}

// BeginCompute starts a route computation and marks the session busy. A
// newer BeginCompute supersedes any earlier ticket.
func (s *Session) BeginCompute() (Ticket, error) {
	if len(s.waypoints) < 2 {
		return Ticket{}, domain.NewInsufficientWaypointsError(len(s.waypoints))
	}
	s.seq++
	s.inflight = s.seq
	return Ticket{
		Waypoints: s.Waypoints(),
		revision:  s.revision,
		seq:       s.seq,
	}, nil
}

// Apply stores geom if t is still the latest request for the current
// waypoints. It returns false and leaves the session untouched otherwise.
func (s *Session) Apply(t Ticket, geom *route.Geometry) bool {
	if t.seq == s.inflight {
		s.inflight = 0
	}
	if geom == nil || t.revision != s.revision || t.seq != s.seq {
		return false
	}
	s.geometry = geom
	return true
}

// Fail ends the computation for t without changing session state.
func (s *Session) Fail(t Ticket) {
	if t.seq == s.inflight {
		s.inflight = 0
	}
}

// Current reports whether t still matches the session's waypoints and is the latest request.
func (s *Session) Current(t Ticket) bool {
	return t.revision == s.revision && t.seq == s.seq
}

// ComputeRoute runs a full computation synchronously against router.
func (s *Session) ComputeRoute(ctx context.Context, router route.Router) error {
	t, err := s.BeginCompute()
	if err != nil {
		return err
	}
	geom, err := router.Route(ctx, t.Waypoints)
	if err != nil {
		s.Fail(t)
		return err
	}
	s.Apply(t, geom)
	return nil
}

// Metrics are the values derived from a ready route.
type Metrics struct {
	ETAMinutes        int             `json:"eta_minutes"`
	TravelTimeSeconds int             `json:"travel_time_seconds"`
	DistanceMeters    int             `json:"distance_meters"`
	VehicleType       job.VehicleType `json:"vehicle_type"`
	EstimatedCost     int64           `json:"estimated_cost"`
	Currency          string          `json:"currency"`
}

// DerivedMetrics computes ETA, distance and cost for vehicle. It fails with
// invalid_state unless the session is RouteReady.
func (s *Session) DerivedMetrics(vehicle job.VehicleType) (Metrics, error) {
	if s.State() != StateRouteReady {
		return Metrics{}, domain.NewInvalidStateError(string(s.State()), "derive metrics")
	}

	cost, err := s.pricing.Calculate(job.PricingParams{
		DistanceMeters: s.geometry.DistanceMeters,
		VehicleType:    vehicle,
	})
	if err != nil {
		return Metrics{}, err
	}

	return Metrics{
		ETAMinutes:        ETAMinutes(s.geometry.TravelTimeSeconds),
		TravelTimeSeconds: s.geometry.TravelTimeSeconds,
		DistanceMeters:    s.geometry.DistanceMeters,
		VehicleType:       vehicle,
		EstimatedCost:     cost,
		Currency:          s.currency,
	}, nil
}

// ETAMinutes rounds a travel time to whole minutes.
func ETAMinutes(travelTimeSeconds int) int {
	return int(math.Round(float64(travelTimeSeconds) / 60))
}

// ToJob builds a Job from the ready route plus booking details. The session
// itself is left unchanged; callers clear it after the job is persisted.
func (s *Session) ToJob(details job.BookingDetails, completion checklist.Completion) (*job.Job, error) {
	if s.State() != StateRouteReady {
		return nil, domain.NewValidationError("a computed route is required before booking")
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}

	m, err := s.DerivedMetrics(details.VehicleType)
	if err != nil {
		return nil, err
	}

	return job.NewJob(
		s.ownerID,
		details,
		s.waypoints,
		*s.geometry,
		m.ETAMinutes,
		m.EstimatedCost,
		s.currency,
		completion,
	)
}
