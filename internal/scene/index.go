package scene

import (
	"math"

	"github.com/dhconnelly/rtreego"

	"github.com/tripexl/service-dispatch/internal/geo"
)

// indexTolerance is the half-width, in degrees, of each marker's envelope.
const indexTolerance = 1e-7

// metersPerDegreeLat is the length of one degree of latitude on the haversine sphere.
const metersPerDegreeLat = 6_371_000.0 * math.Pi / 180

// searchMargin widens the query box so markers at the edge of the
// tolerance circle are not clipped by the box approximation.
const searchMargin = 1.1

type indexedMarker struct {
	marker   Marker
	envelope rtreego.Rect
}

func (im *indexedMarker) Bounds() rtreego.Rect {
	return im.envelope
}

// markerIndex answers nearest-marker queries for click lookups.
type markerIndex struct {
	tree *rtreego.Rtree
}

func newMarkerIndex(markers []Marker) *markerIndex {
	tree := rtreego.NewTree(2, 25, 50)
	for _, m := range markers {
		pt := rtreego.Point{m.Position.Lat, m.Position.Lng}
		tree.Insert(&indexedMarker{marker: m, envelope: pt.ToRect(indexTolerance)})
	}
	return &markerIndex{tree: tree}
}

// nearest returns the marker closest to p, by great-circle distance, if it
// lies within toleranceMeters.
func (idx *markerIndex) nearest(p geo.Point, toleranceMeters float64) (Marker, bool) {
	if idx == nil || idx.tree.Size() == 0 || toleranceMeters < 0 {
		return Marker{}, false
	}
	box, err := searchBox(p, toleranceMeters)
	if err != nil {
		return Marker{}, false
	}

	var (
		best     Marker
		bestDist = math.Inf(1)
	)
	for _, hit := range idx.tree.SearchIntersect(box) {
		m := hit.(*indexedMarker).marker
		d := geo.HaversineMeters(p, m.Position)
		if d <= toleranceMeters && d < bestDist {
			best, bestDist = m, d
		}
	}
	return best, !math.IsInf(bestDist, 1)
}

// searchBox converts a radius in meters around p into a lat/lng rectangle.
// Longitude degrees shrink with cos(lat), so the box widens toward the poles.
func searchBox(p geo.Point, toleranceMeters float64) (rtreego.Rect, error) {
	dLat := toleranceMeters/metersPerDegreeLat*searchMargin + indexTolerance
	dLng := 180.0
	if c := math.Cos(p.Lat * math.Pi / 180); c > 1e-9 {
		dLng = math.Min(180, dLat/c)
	}
	return rtreego.NewRect(
		rtreego.Point{p.Lat - dLat, p.Lng - dLng},
		[]float64{2 * dLat, 2 * dLng},
	)
}
