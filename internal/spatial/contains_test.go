package spatial

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

// unitSquare returns a closed 0,0 → 10,10 square polygon.
func unitSquare(t *testing.T) *geom.Polygon {
	t.Helper()
	p := geom.NewPolygon(geom.XY)
	_, err := p.SetCoords([][]geom.Coord{{
		{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0},
	}})
	require.NoError(t, err)
	return p
}

// squareWithHole returns the unit square with a 4,4 → 6,6 hole.
func squareWithHole(t *testing.T) *geom.Polygon {
	t.Helper()
	p := geom.NewPolygon(geom.XY)
	_, err := p.SetCoords([][]geom.Coord{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{4, 4}, {6, 4}, {6, 6}, {4, 6}, {4, 4}},
	})
	require.NoError(t, err)
	return p
}

func TestContainsSquare(t *testing.T) {
	sq := unitSquare(t)

	tests := []struct {
		name     string
		lon, lat float64
		want     bool
	}{
		{name: "center", lon: 5, lat: 5, want: true},
		{name: "near corner inside", lon: 0.1, lat: 0.1, want: true},
		{name: "outside right", lon: 10.5, lat: 5, want: false},
		{name: "outside above", lon: 5, lat: 11, want: false},
		{name: "far away", lon: -50, lat: -50, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Contains(sq, tt.lon, tt.lat))
		})
	}
}

func TestContainsHole(t *testing.T) {
	p := squareWithHole(t)

	assert.True(t, Contains(p, 2, 2), "between outer ring and hole")
	assert.False(t, Contains(p, 5, 5), "inside hole")
	assert.True(t, Contains(p, 6.5, 5), "past hole edge")
}

func TestContainsMultiPolygon(t *testing.T) {
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(unitSquare(t)))

	second := geom.NewPolygon(geom.XY)
	_, err := second.SetCoords([][]geom.Coord{{
		{20, 20}, {30, 20}, {30, 30}, {20, 30}, {20, 20},
	}})
	require.NoError(t, err)
	require.NoError(t, mp.Push(second))

	assert.True(t, Contains(mp, 5, 5))
	assert.True(t, Contains(mp, 25, 25))
	assert.False(t, Contains(mp, 15, 15), "gap between parts")
}

func TestContainsUnsupportedGeometry(t *testing.T) {
	pt := geom.NewPointFlat(geom.XY, []float64{1, 1})
	assert.False(t, Contains(pt, 1, 1))
}

// Edge behavior must be stable: repeated queries for the same on-edge point
// return the same answer every time, whichever side the ray test picks.
func TestContainsEdgeStable(t *testing.T) {
	sq := unitSquare(t)

	edgePoints := [][2]float64{
		{0, 5},  // left edge
		{10, 5}, // right edge
		{5, 0},  // bottom edge
		{5, 10}, // top edge
		{0, 0},  // corner
	}
	for _, pt := range edgePoints {
		first := Contains(sq, pt[0], pt[1])
		for i := 0; i < 100; i++ {
			assert.Equal(t, first, Contains(sq, pt[0], pt[1]),
				"edge point (%v,%v) flipped classification", pt[0], pt[1])
		}
	}
}

func TestInBounds(t *testing.T) {
	sq := unitSquare(t)
	b := sq.Bounds()

	assert.True(t, InBounds(b, 5, 5))
	assert.True(t, InBounds(b, 0, 0))
	assert.True(t, InBounds(b, 10, 10))
	assert.False(t, InBounds(b, 10.01, 5))
	assert.False(t, InBounds(b, 5, -0.01))
}
