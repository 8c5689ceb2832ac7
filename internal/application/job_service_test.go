package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripexl/service-dispatch/internal/domain"
	"github.com/tripexl/service-dispatch/internal/domain/route"
	"github.com/tripexl/service-dispatch/internal/domain/session"
	"github.com/tripexl/service-dispatch/internal/events"
	"github.com/tripexl/service-dispatch/internal/geo"
	"github.com/tripexl/service-dispatch/internal/notify"
	"github.com/tripexl/service-dispatch/internal/scene"
)

var southRoute = []route.Waypoint{
	{Lat: 12.80, Lng: 77.40},
	{Lat: 12.85, Lng: 77.45},
}

func TestJobService_ListInInsertionOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &legRouter{}, nil)
	first := f.bookJob(t, "owner-1", bangalore...)
	second := f.bookJob(t, "owner-1", southRoute...)
	f.bookJob(t, "owner-2", southRoute...)

	jobs, err := f.jobs.ListJobs(ctx, "owner-1")
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, first.ID, jobs[0].ID)
	assert.Equal(t, second.ID, jobs[1].ID)

	_, err = f.jobs.ListJobs(ctx, "")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestJobService_DeleteRedrawsDashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &legRouter{}, nil)
	first := f.bookJob(t, "owner-1", bangalore...)
	f.bookJob(t, "owner-1", southRoute...)

	doc, err := f.jobs.DashboardMapReady(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, doc.Features.Features, 7)

	require.NoError(t, f.jobs.DeleteJob(ctx, "owner-1", first.ID))

	doc, err = f.jobs.DashboardScene(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, doc.Features.Features, 3)

	assert.Equal(t, []string{events.JobBooked, events.JobBooked, events.JobDeleted}, f.publisher.Types())
	cats := f.notes.Categories()
	assert.Equal(t, notify.JobDeleted, cats[len(cats)-1])
}

func TestJobService_DeleteIsIdempotentAndOwnerScoped(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &legRouter{}, nil)
	j := f.bookJob(t, "owner-1", bangalore...)

	require.NoError(t, f.jobs.DeleteJob(ctx, "owner-2", j.ID))
	jobs, err := f.jobs.ListJobs(ctx, "owner-1")
	require.NoError(t, err)
	assert.Len(t, jobs, 1)

	require.NoError(t, f.jobs.DeleteJob(ctx, "owner-1", j.ID))
	require.NoError(t, f.jobs.DeleteJob(ctx, "owner-1", j.ID))
	assert.Equal(t, []string{events.JobBooked, events.JobDeleted}, f.publisher.Types())
}

func TestJobService_Replan(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &legRouter{}, nil)
	j := f.bookJob(t, "owner-1", bangalore...)

	s, err := f.jobs.Replan(ctx, "owner-1", j.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateCollecting, s.State)
	assert.Equal(t, bangalore, s.Waypoints)

	stored, err := f.jobs.GetJob(ctx, "owner-1", j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.Route, stored.Route)

	_, err = f.jobs.Replan(ctx, "owner-2", j.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJobService_MarkerAt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &legRouter{}, nil)
	first := f.bookJob(t, "owner-1", bangalore...)
	f.bookJob(t, "owner-1", southRoute...)

	_, err := f.jobs.DashboardMapReady(ctx, "owner-1")
	require.NoError(t, err)

	hit, err := f.jobs.MarkerAt(ctx, "owner-1", geo.Point{Lat: 12.9717, Lng: 77.5946})
	require.NoError(t, err)
	assert.Equal(t, first.ID, hit.Job.ID)
	assert.Equal(t, 0, hit.Marker.WaypointIndex)
	assert.Contains(t, hit.Marker.Popup, "Waypoint 1 of 3")

	_, err = f.jobs.MarkerAt(ctx, "owner-1", geo.Point{Lat: 10, Lng: 70})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.jobs.MarkerAt(ctx, "owner-1", geo.Point{Lat: 100, Lng: 70})
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestJobService_DashboardTraffic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &legRouter{}, nil)

	_, err := f.jobs.DashboardMapReady(ctx, "owner-1")
	require.NoError(t, err)

	doc, err := f.jobs.SetDashboardTraffic(ctx, "owner-1", true)
	require.NoError(t, err)
	assert.True(t, doc.Traffic)

	doc, err = f.jobs.SetDashboardTraffic(ctx, "owner-1", false)
	require.NoError(t, err)
	assert.False(t, doc.Traffic)
}

func TestJobService_EvictIdleDashboards(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &legRouter{}, nil)
	f.bookJob(t, "owner-1", bangalore...)

	_, err := f.jobs.DashboardMapReady(ctx, "owner-1")
	require.NoError(t, err)
	_, err = f.jobs.DashboardMapReady(ctx, "owner-2")
	require.NoError(t, err)
	canvas, _, err := f.jobs.DashboardStream(ctx, "owner-3")
	require.NoError(t, err)
	unsubscribe := canvas.Subscribe(func(scene.Op) {})

	assert.Equal(t, 0, f.jobs.EvictIdleDashboards(time.Hour))

	stale := time.Now().Add(-2 * time.Hour)
	for _, owner := range []string{"owner-1", "owner-2", "owner-3"} {
		f.jobs.dashboards[owner].touched = stale
	}
	assert.Equal(t, 2, f.jobs.EvictIdleDashboards(time.Hour))
	assert.Contains(t, f.jobs.dashboards, "owner-3")

	unsubscribe()
	assert.Equal(t, 1, f.jobs.EvictIdleDashboards(time.Hour))
	assert.Empty(t, f.jobs.dashboards)

	// An evicted dashboard is rebuilt from the store on next use.
	doc, err := f.jobs.DashboardMapReady(ctx, "owner-1")
	require.NoError(t, err)
	assert.True(t, doc.Ready)
	assert.NotEmpty(t, doc.Features.Features)
}

func TestJobService_AdminStats(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, &legRouter{}, nil)
	f.bookJob(t, "owner-1", bangalore...)
	latest := f.bookJob(t, "owner-2", southRoute...)

	stats, err := f.jobs.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalJobs)
	assert.Equal(t, int64(2), stats.ByStatus["booked"])

	all, total, err := f.jobs.ListAllJobs(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, all, 2)
	assert.Equal(t, latest.ID, all[0].ID)
}
