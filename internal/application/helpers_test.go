package application

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	jobDomain "github.com/tripexl/service-dispatch/internal/domain/job"
	"github.com/tripexl/service-dispatch/internal/domain/route"
	"github.com/tripexl/service-dispatch/internal/events"
	"github.com/tripexl/service-dispatch/internal/notify"
	"github.com/tripexl/service-dispatch/internal/repository"
)

// legRouter returns one 60 s / 1000 m leg per consecutive waypoint pair.
type legRouter struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *legRouter) Route(_ context.Context, wps []route.Waypoint) (*route.Geometry, error) {
	r.mu.Lock()
	r.calls++
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return nil, err
	}
	legs := make([]route.Leg, 0, len(wps)-1)
	for i := 1; i < len(wps); i++ {
		legs = append(legs, route.Leg{
			DurationSeconds: 60,
			DistanceMeters:  1000,
			Points:          []route.Waypoint{wps[i-1], wps[i]},
		})
	}
	return route.GeometryFromLegs(legs), nil
}

func (r *legRouter) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// gateRouter blocks every call until release is closed.
type gateRouter struct {
	legRouter
	entered chan struct{}
	release chan struct{}
}

func newGateRouter() *gateRouter {
	return &gateRouter{entered: make(chan struct{}, 1), release: make(chan struct{})}
}

func (r *gateRouter) Route(ctx context.Context, wps []route.Waypoint) (*route.Geometry, error) {
	r.entered <- struct{}{}
	<-r.release
	return r.legRouter.Route(ctx, wps)
}

type stubGeocoder struct {
	loc route.Waypoint
	err error
}

func (g stubGeocoder) Geocode(_ context.Context, _ string) (route.Waypoint, error) {
	return g.loc, g.err
}

// capturePublisher records published events.
type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	events []events.CloudEvent
}

func (p *capturePublisher) PublishEvent(_ context.Context, topic string, ce events.CloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, ce)
	return nil
}

func (p *capturePublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ce := range p.events {
		out[i] = ce.Type
	}
	return out
}

type fixture struct {
	router    route.Router
	repo      *repository.MemoryJobRepository
	publisher *capturePublisher
	notes     *notify.Recorder
	planner   *PlannerService
	jobs      *JobService
}

func newFixture(t *testing.T, router route.Router, geocoder route.Geocoder) *fixture {
	t.Helper()
	if geocoder == nil {
		geocoder = stubGeocoder{loc: route.Waypoint{Lat: 12.9716, Lng: 77.5946}}
	}
	f := &fixture{
		router:    router,
		repo:      repository.NewMemoryJobRepository(),
		publisher: &capturePublisher{},
		notes:     &notify.Recorder{},
	}
	log := zap.NewNop()
	f.planner = NewPlannerService(
		router,
		geocoder,
		jobDomain.NewStandardPricingStrategy(50),
		f.repo,
		f.publisher,
		f.notes,
		PlannerConfig{Currency: "INR"},
		log,
	)
	f.jobs = NewJobService(f.repo, f.planner, f.publisher, f.notes, 0, log)
	return f
}

var bangalore = []route.Waypoint{
	{Lat: 12.9716, Lng: 77.5946},
	{Lat: 12.9352, Lng: 77.6245},
	{Lat: 13.1986, Lng: 77.7066},
}

// plannedSession opens a session for owner and adds wps.
func (f *fixture) plannedSession(t *testing.T, owner string, wps ...route.Waypoint) string {
	t.Helper()
	ctx := context.Background()
	s, err := f.planner.OpenSession(ctx, owner)
	require.NoError(t, err)
	for _, p := range wps {
		_, err := f.planner.AddWaypoint(ctx, owner, s.ID, p)
		require.NoError(t, err)
	}
	return s.ID
}

// bookJob plans, routes and books a job for owner.
func (f *fixture) bookJob(t *testing.T, owner string, wps ...route.Waypoint) *JobDTO {
	t.Helper()
	ctx := context.Background()
	id := f.plannedSession(t, owner, wps...)
	_, err := f.planner.ComputeRoute(ctx, owner, id)
	require.NoError(t, err)
	j, err := f.planner.Book(ctx, owner, id, BookRequest{VehicleType: "van", Date: "2025-03-01"})
	require.NoError(t, err)
	return j
}
