package job

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tripexl/service-dispatch/internal/domain"
	"github.com/tripexl/service-dispatch/internal/domain/checklist"
	"github.com/tripexl/service-dispatch/internal/domain/route"
)

// DateLayout is the wire format of a job date.
const DateLayout = "2006-01-02"

// BookingDetails holds the booking form fields that accompany a planned route.
type BookingDetails struct {
	VehicleType  VehicleType
	Date         time.Time
	CustomerName string
	DriverName   string
	Notes        string
}

// Validate checks the required booking fields.
func (d BookingDetails) Validate() error {
	if d.VehicleType == "" {
		return domain.NewValidationError("vehicle is required")
	}
	if d.Date.IsZero() {
		return domain.NewValidationError("date is required")
	}
	if !d.VehicleType.IsValid() {
		return domain.NewUnknownVehicleTypeError(string(d.VehicleType))
	}
	return nil
}

// Job is the aggregate root for a booked multi-stop job.
type Job struct {
	id          string
	ownerID     string
	vehicleType VehicleType
	date        time.Time
	waypoints   []route.Waypoint
	geometry    route.Geometry
	etaMinutes  int

	estimatedCost int64
	currency      string

	status       Status
	checklist    checklist.Completion
	customerName string
	driverName   string
	notes        string

	createdAt time.Time
	updatedAt time.Time
}

// NewJob creates a booked Job. The id is a UUIDv7, so ids sort by creation time.
func NewJob(
	ownerID string,
	details BookingDetails,
	waypoints []route.Waypoint,
	geometry route.Geometry,
	etaMinutes int,
	estimatedCost int64,
	currency string,
	completion checklist.Completion,
) (*Job, error) {
	if ownerID == "" {
		return nil, domain.NewValidationError("owner ID is required")
	}
	if err := details.Validate(); err != nil {
		return nil, err
	}
	if len(waypoints) < 2 {
		return nil, domain.NewValidationError("at least 2 waypoints are required")
	}
	if estimatedCost < 0 {
		return nil, domain.NewValidationError("estimated cost cannot be negative")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate job id: %w", err)
	}

	now := time.Now().UTC()
	return &Job{
		id:            id.String(),
		ownerID:       ownerID,
		vehicleType:   details.VehicleType,
		date:          details.Date,
		waypoints:     append([]route.Waypoint(nil), waypoints...),
		geometry:      geometry,
		etaMinutes:    etaMinutes,
		estimatedCost: estimatedCost,
		currency:      currency,
		status:        StatusBooked,
		checklist:     completion,
		customerName:  details.CustomerName,
		driverName:    details.DriverName,
		notes:         details.Notes,
		createdAt:     now,
		updatedAt:     now,
	}, nil
}

// Reconstruct rebuilds a Job from persistence data (no validation).
func Reconstruct(
	id string,
	ownerID string,
	vehicleType VehicleType,
	date time.Time,
	waypoints []route.Waypoint,
	geometry route.Geometry,
	etaMinutes int,
	estimatedCost int64,
	currency string,
	status Status,
	completion checklist.Completion,
	customerName string,
	driverName string,
	notes string,
	createdAt time.Time,
	updatedAt time.Time,
) *Job {
	return &Job{
		id:            id,
		ownerID:       ownerID,
		vehicleType:   vehicleType,
		date:          date,
		waypoints:     waypoints,
		geometry:      geometry,
		etaMinutes:    etaMinutes,
		estimatedCost: estimatedCost,
		currency:      currency,
		status:        status,
		checklist:     completion,
		customerName:  customerName,
		driverName:    driverName,
		notes:         notes,
		createdAt:     createdAt,
		updatedAt:     updatedAt,
	}
}

// --- Getters ---

// ID returns the job's unique identifier.
func (j *Job) ID() string { return j.id }

// OwnerID returns the dispatcher who booked the job.
func (j *Job) OwnerID() string { return j.ownerID }

// VehicleType returns the booked vehicle category.
func (j *Job) VehicleType() VehicleType { return j.vehicleType }

// Date returns the scheduled job date.
func (j *Job) Date() time.Time { return j.date }

// Waypoints returns a copy of the ordered waypoints.
func (j *Job) Waypoints() []route.Waypoint {
	return append([]route.Waypoint(nil), j.waypoints...)
}

// Geometry returns the route computed at booking time.
func (j *Job) Geometry() route.Geometry { return j.geometry }

// ETAMinutes returns the estimated travel time in minutes.
func (j *Job) ETAMinutes() int { return j.etaMinutes }

// EstimatedCost returns the estimated cost in whole currency units.
func (j *Job) EstimatedCost() int64 { return j.estimatedCost }

// Currency returns the currency code of the estimate.
func (j *Job) Currency() string { return j.currency }

// Status returns the job status.
func (j *Job) Status() Status { return j.status }

// Checklist returns the checklist completion captured at booking time.
func (j *Job) Checklist() checklist.Completion { return j.checklist }

// CustomerName returns the free-text customer name.
func (j *Job) CustomerName() string { return j.customerName }

// DriverName returns the free-text driver name.
func (j *Job) DriverName() string { return j.driverName }

// Notes returns any additional notes.
func (j *Job) Notes() string { return j.notes }

// CreatedAt returns the creation timestamp.
func (j *Job) CreatedAt() time.Time { return j.createdAt }

// UpdatedAt returns the last-updated timestamp.
func (j *Job) UpdatedAt() time.Time { return j.updatedAt }
