package scene

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/tripexl/service-dispatch/internal/domain/job"
	"github.com/tripexl/service-dispatch/internal/domain/session"
	"github.com/tripexl/service-dispatch/internal/geo"
)

// DefaultFitPadding is the viewport padding, in pixels, applied after a render.
const DefaultFitPadding = 50

// frame is the complete set of elements one render call wants on the surface.
type frame struct {
	layers  []RouteLayer
	markers []Marker
}

// Renderer is the only writer to its Surface. It remembers every layer and
// marker id it drew so each render can remove what is no longer wanted and
// replace what is.
type Renderer struct {
	mu      sync.Mutex
	surface Surface
	padding int
	logger  *zap.Logger

	layers  map[string]struct{}
	markers map[string]struct{}
	index   *markerIndex

	pending       *frame
	trafficWanted bool
	trafficDrawn  bool
}

// NewRenderer creates a Renderer drawing on surface. A non-positive padding selects DefaultFitPadding.
func NewRenderer(surface Surface, padding int, logger *zap.Logger) *Renderer {
	if padding <= 0 {
		padding = DefaultFitPadding
	}
	return &Renderer{
		surface: surface,
		padding: padding,
		logger:  logger,
		layers:  make(map[string]struct{}),
		markers: make(map[string]struct{}),
	}
}

// RenderSession draws the session's waypoints and, when it has a valid
// route, one route layer under SessionLayerID.
func (r *Renderer) RenderSession(s *session.Session) {
	wps := s.Waypoints()
	f := frame{markers: make([]Marker, 0, len(wps))}

	if g := s.Geometry(); g != nil {
		f.layers = append(f.layers, RouteLayer{
			ID:          SessionLayerID,
			Color:       geo.ColorForIndex(0),
			Coordinates: g.Coordinates,
		})
	}
	for i, wp := range wps {
		role := RoleFor(i, len(wps))
		color, label := roleStyle(role)
		f.markers = append(f.markers, Marker{
			ID:            fmt.Sprintf("session-wp-%d", i),
			Position:      wp,
			Color:         color,
			Label:         label,
			Role:          role,
			WaypointIndex: i,
		})
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.draw(f)
}

// RenderJobs draws one colored route layer per job at route-{index} plus
// start, stop and end markers for every waypoint.
func (r *Renderer) RenderJobs(jobs []*job.Job) {
	var f frame
	for i, j := range jobs {
		wps := j.Waypoints()
		coords := j.Geometry().Coordinates
		if len(coords) == 0 {
			coords = wps
		}
		f.layers = append(f.layers, RouteLayer{
			ID:          LayerID(i),
			Color:       geo.ColorForIndex(i),
			Coordinates: coords,
			JobID:       j.ID(),
		})

		for k, wp := range wps {
			role := RoleFor(k, len(wps))
			color, label := roleStyle(role)
			f.markers = append(f.markers, Marker{
				ID:            MarkerID(j.ID(), k),
				Position:      wp,
				Color:         color,
				Label:         label,
				Role:          role,
				Popup:         JobPopup(j, k, len(wps)),
				JobID:         j.ID(),
				WaypointIndex: k,
			})
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.draw(f)
}

// LayerID is the multi-job layer id for the job at index.
func LayerID(index int) string { return fmt.Sprintf("route-%d", index) }

// MarkerID is the id of a job's waypoint marker.
func MarkerID(jobID string, waypoint int) string { return fmt.Sprintf("marker-%s-%d", jobID, waypoint) }

// SetTraffic shows or hides the traffic overlay. Repeating the current state is a no-op.
func (r *Renderer) SetTraffic(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trafficWanted = on
	if r.surface.Ready() {
		r.syncTraffic()
	}
}

// SurfaceReady is the initialization-complete signal. It flushes the last
// render requested while the surface was not ready.
func (r *Renderer) SurfaceReady() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.surface.Ready() {
		return
	}
	if r.pending != nil {
		f := *r.pending
		r.draw(f)
	}
	r.syncTraffic()
}

// Pending reports whether a render is waiting for the surface.
func (r *Renderer) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending != nil
}

// MarkerAt returns the drawn marker nearest p within toleranceMeters.
func (r *Renderer) MarkerAt(p geo.Point, toleranceMeters float64) (Marker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index.nearest(p, toleranceMeters)
}

func (r *Renderer) draw(f frame) {
	if !r.surface.Ready() {
		r.pending = &f
		r.logger.Debug("surface not ready, render deferred",
			zap.Int("layers", len(f.layers)),
			zap.Int("markers", len(f.markers)),
		)
		return
	}
	r.pending = nil

	wantLayers := make(map[string]struct{}, len(f.layers))
	for _, l := range f.layers {
		wantLayers[l.ID] = struct{}{}
	}
	wantMarkers := make(map[string]struct{}, len(f.markers))
	for _, m := range f.markers {
		wantMarkers[m.ID] = struct{}{}
	}

	for id := range r.layers {
		if _, ok := wantLayers[id]; !ok {
			r.surface.RemoveLayer(id)
			delete(r.layers, id)
		}
	}
	for id := range r.markers {
		if _, ok := wantMarkers[id]; !ok {
			r.surface.RemoveMarker(id)
			delete(r.markers, id)
		}
	}

	var drawn []geo.Point
	for _, l := range f.layers {
		if _, ok := r.layers[l.ID]; ok {
			r.surface.RemoveLayer(l.ID)
		}
		r.surface.AddRouteLayer(l)
		r.layers[l.ID] = struct{}{}
		drawn = append(drawn, l.Coordinates...)
	}
	for _, m := range f.markers {
		if _, ok := r.markers[m.ID]; ok {
			r.surface.RemoveMarker(m.ID)
		}
		r.surface.AddMarker(m)
		r.markers[m.ID] = struct{}{}
		drawn = append(drawn, m.Position)
	}

	r.index = newMarkerIndex(f.markers)

	if b := geo.UnionBounds(drawn); !b.IsEmpty() {
		r.surface.FitBounds(b, r.padding)
	}
}

func (r *Renderer) syncTraffic() {
	switch {
	case r.trafficWanted && !r.trafficDrawn:
		r.surface.AddTrafficLayer()
		r.trafficDrawn = true
	case !r.trafficWanted && r.trafficDrawn:
		r.surface.RemoveTrafficLayer()
		r.trafficDrawn = false
	}
}
