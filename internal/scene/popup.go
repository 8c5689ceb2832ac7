package scene

import (
	"fmt"
	"strings"

	"github.com/tripexl/service-dispatch/internal/domain/job"
)

// JobPopup renders the info window shown when a job marker is clicked.
func JobPopup(j *job.Job, waypointIndex, waypointCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Job %s\n", j.ID())
	fmt.Fprintf(&b, "Vehicle: %s\n", j.VehicleType())
	fmt.Fprintf(&b, "Date: %s\n", j.Date().Format(job.DateLayout))
	fmt.Fprintf(&b, "ETA: %d min\n", j.ETAMinutes())
	fmt.Fprintf(&b, "Status: %s\n", j.Status())
	fmt.Fprintf(&b, "Waypoint %d of %d", waypointIndex+1, waypointCount)
	return b.String()
}
