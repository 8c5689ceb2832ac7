package job

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tripexl/service-dispatch/internal/domain"
	"github.com/tripexl/service-dispatch/internal/domain/checklist"
	"github.com/tripexl/service-dispatch/internal/domain/route"
)

func testWaypoints() []route.Waypoint {
	return []route.Waypoint{
		{Lat: 12.9716, Lng: 77.5946},
		{Lat: 12.9352, Lng: 77.6245},
		{Lat: 13.1986, Lng: 77.7066},
	}
}

func testDetails() BookingDetails {
	return BookingDetails{
		VehicleType:  VehicleVan,
		Date:         time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		CustomerName: "Asha",
		DriverName:   "Ravi",
	}
}

func TestNewJob(t *testing.T) {
	wps := testWaypoints()
	geom := route.NewGeometry(wps, 300, 1500)

	j, err := NewJob("owner-1", testDetails(), wps, *geom, 5, 65, "INR", checklist.Completion{})
	require.NoError(t, err)

	assert.NotEmpty(t, j.ID())
	assert.Equal(t, "owner-1", j.OwnerID())
	assert.Equal(t, VehicleVan, j.VehicleType())
	assert.Equal(t, StatusBooked, j.Status())
	assert.Equal(t, 5, j.ETAMinutes())
	assert.Equal(t, int64(65), j.EstimatedCost())
	assert.Equal(t, wps, j.Waypoints())
	assert.Equal(t, 1500, j.Geometry().DistanceMeters)
	assert.Equal(t, j.CreatedAt(), j.UpdatedAt())
}

func TestNewJob_IDsAreTimeOrdered(t *testing.T) {
	wps := testWaypoints()
	geom := route.NewGeometry(wps, 300, 1500)

	a, err := NewJob("owner-1", testDetails(), wps, *geom, 5, 65, "INR", nil)
	require.NoError(t, err)
	b, err := NewJob("owner-1", testDetails(), wps, *geom, 5, 65, "INR", nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID(), b.ID())
	assert.Less(t, a.ID(), b.ID())
}

func TestNewJob_WaypointsAreCopied(t *testing.T) {
	wps := testWaypoints()
	geom := route.NewGeometry(wps, 300, 1500)

	j, err := NewJob("owner-1", testDetails(), wps, *geom, 5, 65, "INR", nil)
	require.NoError(t, err)

	wps[0].Lat = 0
	assert.Equal(t, 12.9716, j.Waypoints()[0].Lat)
}

func TestNewJob_Validation(t *testing.T) {
	wps := testWaypoints()
	geom := route.NewGeometry(wps, 300, 1500)

	tests := []struct {
		name    string
		owner   string
		details func(d *BookingDetails)
		wps     []route.Waypoint
		wantErr *domain.Error
	}{
		{name: "missing owner", owner: "", details: func(*BookingDetails) {}, wps: wps, wantErr: domain.ErrValidationFailed},
		{name: "missing vehicle", owner: "o", details: func(d *BookingDetails) { d.VehicleType = "" }, wps: wps, wantErr: domain.ErrValidationFailed},
		{name: "missing date", owner: "o", details: func(d *BookingDetails) { d.Date = time.Time{} }, wps: wps, wantErr: domain.ErrValidationFailed},
		{name: "unknown vehicle", owner: "o", details: func(d *BookingDetails) { d.VehicleType = "blimp" }, wps: wps, wantErr: domain.ErrUnknownVehicleType},
		{name: "one waypoint", owner: "o", details: func(*BookingDetails) {}, wps: wps[:1], wantErr: domain.ErrValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := testDetails()
			tt.details(&d)
			_, err := NewJob(tt.owner, d, tt.wps, *geom, 5, 65, "INR", nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("cancelled")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, s)

	_, err = ParseStatus("archived")
	assert.Error(t, err)
}
