// Package geo holds the pure coordinate helpers shared by routing and map rendering.
package geo

import (
	"math"

	"github.com/paulmach/orb"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Orb converts p to an orb point ([lng, lat] order).
func (p Point) Orb() orb.Point { return orb.Point{p.Lng, p.Lat} }

// FromOrb converts an orb point back to a Point.
func FromOrb(p orb.Point) Point { return Point{Lat: p.Lat(), Lng: p.Lon()} }

// Identical reports whether p and q have bit-identical coordinates.
func (p Point) Identical(q Point) bool {
	return math.Float64bits(p.Lat) == math.Float64bits(q.Lat) &&
		math.Float64bits(p.Lng) == math.Float64bits(q.Lng)
}

// Valid reports whether p is a finite coordinate inside the WGS84 range.
func (p Point) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// Dedupe drops every point that is bit-identical to its immediate predecessor.
// Order is preserved and the first point is always kept.
func Dedupe(points []Point) []Point {
	out := make([]Point, 0, len(points))
	for i, p := range points {
		if i > 0 && p.Identical(out[len(out)-1]) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Bounds is a lat/lng envelope. The zero value is the empty envelope.
type Bounds struct {
	bound orb.Bound
	ok    bool
}

// EmptyBounds is the envelope of zero points.
var EmptyBounds = Bounds{}

// UnionBounds folds points into their min/max envelope.
func UnionBounds(points []Point) Bounds {
	var b Bounds
	for _, p := range points {
		b = b.Extend(p)
	}
	return b
}

// Extend returns the envelope grown to contain p.
func (b Bounds) Extend(p Point) Bounds {
	if !b.ok {
		return Bounds{bound: orb.Bound{Min: p.Orb(), Max: p.Orb()}, ok: true}
	}
	return Bounds{bound: b.bound.Extend(p.Orb()), ok: true}
}

// Union returns the envelope covering both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	switch {
	case !b.ok:
		return o
	case !o.ok:
		return b
	}
	return Bounds{bound: b.bound.Union(o.bound), ok: true}
}

// IsEmpty reports whether no point has been folded in.
func (b Bounds) IsEmpty() bool { return !b.ok }

// SouthWest returns the minimum corner. It is the zero Point for an empty envelope.
func (b Bounds) SouthWest() Point {
	if !b.ok {
		return Point{}
	}
	return FromOrb(b.bound.Min)
}

// NorthEast returns the maximum corner. It is the zero Point for an empty envelope.
func (b Bounds) NorthEast() Point {
	if !b.ok {
		return Point{}
	}
	return FromOrb(b.bound.Max)
}

// Contains reports whether p lies inside the envelope, edges included.
func (b Bounds) Contains(p Point) bool {
	return b.ok && b.bound.Contains(p.Orb())
}

// Orb returns the underlying orb bound and whether it is non-empty.
func (b Bounds) Orb() (orb.Bound, bool) { return b.bound, b.ok }

// Color is a CSS hex color.
type Color string

var palette = [...]Color{
	"#007aff",
	"#28a745",
	"#dc3545",
	"#ffc107",
	"#6f42c1",
	"#20c997",
	"#fd7e14",
}

// PaletteSize is the number of distinct route colors before they repeat.
const PaletteSize = len(palette)

// ColorForIndex maps an index onto the route palette cyclically.
// Indexes that differ by a multiple of PaletteSize share a color.
func ColorForIndex(i int) Color {
	idx := i % PaletteSize
	if idx < 0 {
		idx += PaletteSize
	}
	return palette[idx]
}

const earthRadiusMeters = 6_371_000.0

// HaversineMeters returns the great-circle distance between two points in meters.
func HaversineMeters(a, b Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLng := degreesToRadians(b.Lng - a.Lng)

	lat1 := degreesToRadians(a.Lat)
	lat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Sin(dLng/2)*math.Sin(dLng/2)*math.Cos(lat1)*math.Cos(lat2)
	return earthRadiusMeters * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
