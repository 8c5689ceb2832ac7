package application

import (
	"time"

	"github.com/tripexl/service-dispatch/internal/domain/checklist"
	jobDomain "github.com/tripexl/service-dispatch/internal/domain/job"
	"github.com/tripexl/service-dispatch/internal/domain/route"
	"github.com/tripexl/service-dispatch/internal/domain/session"
	"github.com/tripexl/service-dispatch/internal/scene"
)

// SessionDTO is the response representation of a planning session.
type SessionDTO struct {
	ID             string           `json:"id"`
	OwnerID        string           `json:"owner_id"`
	State          session.State    `json:"state"`
	Waypoints      []route.Waypoint `json:"waypoints"`
	Route          *route.Geometry  `json:"route,omitempty"`
	ETAMinutes     *int             `json:"eta_minutes,omitempty"`
	DistanceMeters *int             `json:"distance_meters,omitempty"`
	TrafficVisible bool             `json:"traffic_visible"`
	Busy           bool             `json:"busy"`
	Stale          bool             `json:"stale,omitempty"`
}

// JobDTO is the response representation of a booked job.
type JobDTO struct {
	ID            string               `json:"id"`
	OwnerID       string               `json:"owner_id"`
	VehicleType   string               `json:"vehicle_type"`
	Date          string               `json:"date"`
	Waypoints     []route.Waypoint     `json:"waypoints"`
	Route         route.Geometry       `json:"route"`
	ETAMinutes    int                  `json:"eta_minutes"`
	EstimatedCost int64                `json:"estimated_cost"`
	Currency      string               `json:"currency"`
	Status        string               `json:"status"`
	Checklist     checklist.Completion `json:"checklist,omitempty"`
	CustomerName  string               `json:"customer_name,omitempty"`
	DriverName    string               `json:"driver_name,omitempty"`
	Notes         string               `json:"notes,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// BookRequest holds the booking form fields.
type BookRequest struct {
	VehicleType  string `json:"vehicle_type"`
	Date         string `json:"date"`
	CustomerName string `json:"customer_name"`
	DriverName   string `json:"driver_name"`
	Notes        string `json:"notes"`
}

// GeocodeDTO is a geocoding result. The location is a suggested map center.
type GeocodeDTO struct {
	Query    string         `json:"query"`
	Location route.Waypoint `json:"location"`
}

// MarkerHitDTO is the result of a marker click lookup.
type MarkerHitDTO struct {
	Marker scene.Marker `json:"marker"`
	Job    JobDTO       `json:"job"`
}

// JobStatsDTO holds job statistics for the admin dashboard.
type JobStatsDTO struct {
	TotalJobs int64            `json:"total_jobs"`
	ByStatus  map[string]int64 `json:"by_status"`
}

func toSessionDTO(s *session.Session) *SessionDTO {
	dto := &SessionDTO{
		ID:             s.ID(),
		OwnerID:        s.OwnerID(),
		State:          s.State(),
		Waypoints:      s.Waypoints(),
		Route:          s.Geometry(),
		TrafficVisible: s.TrafficVisible(),
		Busy:           s.Busy(),
	}
	if g := s.Geometry(); g != nil {
		eta := session.ETAMinutes(g.TravelTimeSeconds)
		dist := g.DistanceMeters
		dto.ETAMinutes = &eta
		dto.DistanceMeters = &dist
	}
	return dto
}

func toJobDTO(j *jobDomain.Job) JobDTO {
	return JobDTO{
		ID:            j.ID(),
		OwnerID:       j.OwnerID(),
		VehicleType:   string(j.VehicleType()),
		Date:          j.Date().Format(jobDomain.DateLayout),
		Waypoints:     j.Waypoints(),
		Route:         j.Geometry(),
		ETAMinutes:    j.ETAMinutes(),
		EstimatedCost: j.EstimatedCost(),
		Currency:      j.Currency(),
		Status:        string(j.Status()),
		Checklist:     j.Checklist(),
		CustomerName:  j.CustomerName(),
		DriverName:    j.DriverName(),
		Notes:         j.Notes(),
		CreatedAt:     j.CreatedAt(),
		UpdatedAt:     j.UpdatedAt(),
	}
}

func toJobDTOs(jobs []*jobDomain.Job) []JobDTO {
	dtos := make([]JobDTO, len(jobs))
	for i, j := range jobs {
		dtos[i] = toJobDTO(j)
	}
	return dtos
}
