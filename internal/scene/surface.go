// Package scene keeps a map surface's drawn layers and markers in sync with
// either one planning session or a dispatcher's stored jobs.
package scene

import "github.com/tripexl/service-dispatch/internal/geo"

// Reserved ids.
const (
	SessionLayerID = "session-route"
	TrafficLayerID = "traffic"
)

// Role is a marker's position within its route.
type Role string

const (
	RoleStart Role = "start"
	RoleEnd   Role = "end"
	RoleStop  Role = "stop"
)

// Role marker colors.
const (
	ColorStart geo.Color = "#28a745"
	ColorEnd   geo.Color = "#dc3545"
	ColorStop  geo.Color = "#007aff"
)

// RouteLayer is a named source+layer pair holding one polyline.
type RouteLayer struct {
	ID          string      `json:"id"`
	Color       geo.Color   `json:"color"`
	Coordinates []geo.Point `json:"coordinates"`
	JobID       string      `json:"job_id,omitempty"`
}

// Marker is a pin with optional popup content. JobID and WaypointIndex link
// the marker back to the job it was drawn for.
type Marker struct {
	ID            string    `json:"id"`
	Position      geo.Point `json:"position"`
	Color         geo.Color `json:"color"`
	Label         string    `json:"label,omitempty"`
	Role          Role      `json:"role"`
	Popup         string    `json:"popup,omitempty"`
	JobID         string    `json:"job_id,omitempty"`
	WaypointIndex int       `json:"waypoint_index"`
}

// Surface is the map SDK boundary. Implementations must tolerate removal of
// ids that are not present.
type Surface interface {
	Ready() bool
	AddRouteLayer(layer RouteLayer)
	RemoveLayer(id string)
	AddMarker(m Marker)
	RemoveMarker(id string)
	AddTrafficLayer()
	RemoveTrafficLayer()
	FitBounds(b geo.Bounds, padding int)
}

// RoleFor returns the role of waypoint i out of n. A lone waypoint is a start.
func RoleFor(i, n int) Role {
	switch {
	case i == 0:
		return RoleStart
	case i == n-1:
		return RoleEnd
	default:
		return RoleStop
	}
}

func roleStyle(r Role) (geo.Color, string) {
	switch r {
	case RoleStart:
		return ColorStart, "S"
	case RoleEnd:
		return ColorEnd, "E"
	default:
		return ColorStop, ""
	}
}
