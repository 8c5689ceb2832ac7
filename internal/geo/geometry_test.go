package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupe(t *testing.T) {
	a := Point{Lat: 12.9716, Lng: 77.5946}
	b := Point{Lat: 12.9352, Lng: 77.6245}
	c := Point{Lat: 13.0358, Lng: 77.5970}

	tests := []struct {
		name string
		in   []Point
		want []Point
	}{
		{name: "empty", in: nil, want: []Point{}},
		{name: "single", in: []Point{a}, want: []Point{a}},
		{name: "all identical", in: []Point{a, a, a}, want: []Point{a}},
		{name: "consecutive duplicates", in: []Point{a, a, b, b, b, c}, want: []Point{a, b, c}},
		{name: "non-consecutive repeat kept", in: []Point{a, b, a}, want: []Point{a, b, a}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Dedupe(tt.in)
			assert.Equal(t, tt.want, got)
			for i := 1; i < len(got); i++ {
				assert.False(t, got[i].Identical(got[i-1]), "consecutive duplicate at %d", i)
			}
		})
	}
}

func TestDedupe_DoesNotMutateInput(t *testing.T) {
	in := []Point{{Lat: 1, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 2, Lng: 2}}
	_ = Dedupe(in)
	assert.Len(t, in, 3)
	assert.Equal(t, Point{Lat: 1, Lng: 1}, in[1])
}

func TestDedupe_BitIdentity(t *testing.T) {
	negZero := math.Copysign(0, -1)
	in := []Point{{Lat: 0, Lng: 0}, {Lat: negZero, Lng: 0}}

	// +0 and -0 compare equal but are not bit-identical.
	assert.Len(t, Dedupe(in), 2)
}

func TestUnionBounds(t *testing.T) {
	t.Run("empty input gives empty sentinel", func(t *testing.T) {
		b := UnionBounds(nil)
		assert.True(t, b.IsEmpty())
		assert.Equal(t, EmptyBounds, b)
		assert.False(t, b.Contains(Point{}))
	})

	t.Run("identical points give zero-area box", func(t *testing.T) {
		p := Point{Lat: 12.9716, Lng: 77.5946}
		b := UnionBounds([]Point{p, p, p})
		require.False(t, b.IsEmpty())
		assert.Equal(t, p, b.SouthWest())
		assert.Equal(t, p, b.NorthEast())
		assert.True(t, b.Contains(p))
	})

	t.Run("envelope of spread points", func(t *testing.T) {
		b := UnionBounds([]Point{
			{Lat: 12.9, Lng: 77.7},
			{Lat: 13.1, Lng: 77.5},
			{Lat: 13.0, Lng: 77.6},
		})
		assert.Equal(t, Point{Lat: 12.9, Lng: 77.5}, b.SouthWest())
		assert.Equal(t, Point{Lat: 13.1, Lng: 77.7}, b.NorthEast())
	})
}

func TestBoundsUnion(t *testing.T) {
	left := UnionBounds([]Point{{Lat: 1, Lng: 1}})
	right := UnionBounds([]Point{{Lat: 2, Lng: 3}})

	assert.Equal(t, left, left.Union(EmptyBounds))
	assert.Equal(t, right, EmptyBounds.Union(right))

	u := left.Union(right)
	assert.Equal(t, Point{Lat: 1, Lng: 1}, u.SouthWest())
	assert.Equal(t, Point{Lat: 2, Lng: 3}, u.NorthEast())
}

func TestColorForIndex(t *testing.T) {
	assert.GreaterOrEqual(t, PaletteSize, 7)

	seen := make(map[Color]bool)
	for i := 0; i < PaletteSize; i++ {
		seen[ColorForIndex(i)] = true
	}
	assert.Len(t, seen, PaletteSize, "palette colors must be distinct")

	for i := -3; i < 50; i++ {
		assert.Equal(t, ColorForIndex(i), ColorForIndex(i+PaletteSize), "index %d", i)
	}
}

func TestHaversineMeters(t *testing.T) {
	mgRoad := Point{Lat: 12.9756, Lng: 77.6066}
	airport := Point{Lat: 13.1986, Lng: 77.7066}

	d := HaversineMeters(mgRoad, airport)
	assert.InDelta(t, 27_060, d, 300)
	assert.Zero(t, HaversineMeters(mgRoad, mgRoad))
}

func TestPointValid(t *testing.T) {
	assert.True(t, Point{Lat: 12.97, Lng: 77.59}.Valid())
	assert.False(t, Point{Lat: 91, Lng: 0}.Valid())
	assert.False(t, Point{Lat: 0, Lng: -181}.Valid())
	assert.False(t, Point{Lat: math.NaN(), Lng: 0}.Valid())
}
