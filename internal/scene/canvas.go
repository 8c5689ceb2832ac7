package scene

import (
	"sort"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/tripexl/service-dispatch/internal/geo"
)

// OpType names a surface operation.
type OpType string

const (
	OpAddLayer      OpType = "add_layer"
	OpRemoveLayer   OpType = "remove_layer"
	OpAddMarker     OpType = "add_marker"
	OpRemoveMarker  OpType = "remove_marker"
	OpAddTraffic    OpType = "add_traffic"
	OpRemoveTraffic OpType = "remove_traffic"
	OpFitBounds     OpType = "fit_bounds"
)

// Viewport is a fitted bounding box in south-west / north-east form.
type Viewport struct {
	SouthWest geo.Point `json:"south_west"`
	NorthEast geo.Point `json:"north_east"`
	Padding   int       `json:"padding"`
}

// Op is one surface mutation as pushed to stream subscribers.
type Op struct {
	Type     OpType      `json:"type"`
	ID       string      `json:"id,omitempty"`
	Layer    *RouteLayer `json:"layer,omitempty"`
	Marker   *Marker     `json:"marker,omitempty"`
	Viewport *Viewport   `json:"viewport,omitempty"`
}

// Canvas is an in-memory Surface. It records the live scene and forwards every
// applied operation to subscribers, so a remote map can mirror it.
type Canvas struct {
	mu       sync.RWMutex
	ready    bool
	layers   map[string]RouteLayer
	markers  map[string]Marker
	traffic  bool
	viewport *Viewport

	nextSub int
	subs    map[int]func(Op)
}

// NewCanvas creates a Canvas. It reports not-ready until MarkReady is called.
func NewCanvas() *Canvas {
	return &Canvas{
		layers:  make(map[string]RouteLayer),
		markers: make(map[string]Marker),
		subs:    make(map[int]func(Op)),
	}
}

// MarkReady flips the canvas to ready.
func (c *Canvas) MarkReady() {
	c.mu.Lock()
	c.ready = true
	c.mu.Unlock()
}

// Ready reports whether the surface has been initialized.
func (c *Canvas) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

func (c *Canvas) AddRouteLayer(layer RouteLayer) {
	layer.Coordinates = append([]geo.Point(nil), layer.Coordinates...)
	c.mu.Lock()
	c.layers[layer.ID] = layer
	c.mu.Unlock()
	c.emit(Op{Type: OpAddLayer, ID: layer.ID, Layer: &layer})
}

func (c *Canvas) RemoveLayer(id string) {
	c.mu.Lock()
	_, ok := c.layers[id]
	delete(c.layers, id)
	c.mu.Unlock()
	if ok {
		c.emit(Op{Type: OpRemoveLayer, ID: id})
	}
}

func (c *Canvas) AddMarker(m Marker) {
	c.mu.Lock()
	c.markers[m.ID] = m
	c.mu.Unlock()
	c.emit(Op{Type: OpAddMarker, ID: m.ID, Marker: &m})
}

func (c *Canvas) RemoveMarker(id string) {
	c.mu.Lock()
	_, ok := c.markers[id]
	delete(c.markers, id)
	c.mu.Unlock()
	if ok {
		c.emit(Op{Type: OpRemoveMarker, ID: id})
	}
}

func (c *Canvas) AddTrafficLayer() {
	c.mu.Lock()
	c.traffic = true
	c.mu.Unlock()
	c.emit(Op{Type: OpAddTraffic, ID: TrafficLayerID})
}

func (c *Canvas) RemoveTrafficLayer() {
	c.mu.Lock()
	c.traffic = false
	c.mu.Unlock()
	c.emit(Op{Type: OpRemoveTraffic, ID: TrafficLayerID})
}

func (c *Canvas) FitBounds(b geo.Bounds, padding int) {
	if b.IsEmpty() {
		return
	}
	vp := &Viewport{SouthWest: b.SouthWest(), NorthEast: b.NorthEast(), Padding: padding}
	c.mu.Lock()
	c.viewport = vp
	c.mu.Unlock()
	c.emit(Op{Type: OpFitBounds, Viewport: vp})
}

// Subscribe registers fn for every subsequent operation. The returned func unsubscribes.
func (c *Canvas) Subscribe(fn func(Op)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// Subscribers returns the number of live subscriptions.
func (c *Canvas) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

func (c *Canvas) emit(op Op) {
	c.mu.RLock()
	fns := make([]func(Op), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.mu.RUnlock()

	for _, fn := range fns {
		fn(op)
	}
}

// LayerIDs returns the live layer ids, sorted.
func (c *Canvas) LayerIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.layers)
}

// MarkerIDs returns the live marker ids, sorted.
func (c *Canvas) MarkerIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedKeys(c.markers)
}

// Layer returns a live layer by id.
func (c *Canvas) Layer(id string) (RouteLayer, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.layers[id]
	return l, ok
}

// TrafficVisible reports whether the traffic overlay is drawn.
func (c *Canvas) TrafficVisible() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.traffic
}

// Viewport returns the last fitted viewport, or nil.
func (c *Canvas) Viewport() *Viewport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.viewport
}

// Document is the exported form of a canvas.
type Document struct {
	Ready    bool                       `json:"ready"`
	Traffic  bool                       `json:"traffic"`
	Viewport *Viewport                  `json:"viewport,omitempty"`
	Features *geojson.FeatureCollection `json:"features"`
}

// Document exports the live scene. Layers become LineString features and
// markers Point features, both in id order.
func (c *Canvas) Document() Document {
	c.mu.RLock()
	defer c.mu.RUnlock()

	fc := geojson.NewFeatureCollection()
	for _, id := range sortedKeys(c.layers) {
		l := c.layers[id]
		ls := make(orb.LineString, 0, len(l.Coordinates))
		for _, p := range l.Coordinates {
			ls = append(ls, p.Orb())
		}
		f := geojson.NewFeature(ls)
		f.ID = l.ID
		f.Properties["kind"] = "route"
		f.Properties["color"] = string(l.Color)
		if l.JobID != "" {
			f.Properties["job_id"] = l.JobID
		}
		fc.Append(f)
	}
	for _, id := range sortedKeys(c.markers) {
		m := c.markers[id]
		f := geojson.NewFeature(m.Position.Orb())
		f.ID = m.ID
		f.Properties["kind"] = "marker"
		f.Properties["color"] = string(m.Color)
		f.Properties["role"] = string(m.Role)
		f.Properties["waypoint_index"] = m.WaypointIndex
		if m.Label != "" {
			f.Properties["label"] = m.Label
		}
		if m.Popup != "" {
			f.Properties["popup"] = m.Popup
		}
		if m.JobID != "" {
			f.Properties["job_id"] = m.JobID
		}
		fc.Append(f)
	}

	return Document{
		Ready:    c.ready,
		Traffic:  c.traffic,
		Viewport: c.viewport,
		Features: fc,
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
