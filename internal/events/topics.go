package events

import "time"

// Topics.
const (
	TopicJobEvents     = "dispatch.job-events"
	TopicNotifications = "dispatch.notifications"
	TopicCommands      = "dispatch.commands"
)

// Event types.
const (
	JobBooked          = "job.booked"
	JobDeleted         = "job.deleted"
	JobCancelRequested = "job.cancel_requested"
	NotificationRaised = "notification.raised"
)

// JobBookedEvent is published after a job is stored.
type JobBookedEvent struct {
	JobID          string    `json:"job_id"`
	OwnerID        string    `json:"owner_id"`
	VehicleType    string    `json:"vehicle_type"`
	Date           string    `json:"date"`
	WaypointCount  int       `json:"waypoint_count"`
	DistanceMeters int       `json:"distance_meters"`
	ETAMinutes     int       `json:"eta_minutes"`
	EstimatedCost  int64     `json:"estimated_cost"`
	Currency       string    `json:"currency"`
	BookedAt       time.Time `json:"booked_at"`
}

// JobDeletedEvent is published after a job is removed.
type JobDeletedEvent struct {
	JobID     string    `json:"job_id"`
	OwnerID   string    `json:"owner_id"`
	Reason    string    `json:"reason,omitempty"`
	DeletedAt time.Time `json:"deleted_at"`
}

// JobCancelRequestedEvent asks the service to remove a job.
type JobCancelRequestedEvent struct {
	JobID   string `json:"job_id"`
	OwnerID string `json:"owner_id"`
	Reason  string `json:"reason,omitempty"`
}

// NotificationEvent mirrors a user-facing notification.
type NotificationEvent struct {
	Category  string    `json:"category"`
	Kind      string    `json:"kind,omitempty"`
	OwnerID   string    `json:"owner_id"`
	SessionID string    `json:"session_id,omitempty"`
	JobID     string    `json:"job_id,omitempty"`
	Message   string    `json:"message"`
	At        time.Time `json:"at"`
}
