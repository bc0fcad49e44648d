package spatial

import (
	geom "github.com/twpayne/go-geom"
)

// Grid is a uniform spatial hash over a fixed set of geometries. Each cell
// lists the indexes of geometries whose bounding box overlaps it, so a point
// lookup only runs full containment tests against cell-local candidates.
//
// The grid is built once and never mutated; lookups are safe for concurrent use.
type Grid struct {
	minLon, minLat float64
	maxLon, maxLat float64
	cellW, cellH   float64
	cols, rows     int
	cells          [][]int
}

// DefaultGridCells is the per-axis cell count used when callers pass 0.
// 64x64 keeps candidate lists short for country-scale district datasets.
const DefaultGridCells = 64

// NewGrid builds a grid covering the union of the given bounds. cells is the
// per-axis resolution; 0 selects DefaultGridCells. A nil entry in bounds is
// skipped (its index will never be returned as a candidate).
func NewGrid(bounds []*geom.Bounds, cells int) *Grid {
	if cells <= 0 {
		cells = DefaultGridCells
	}

	g := &Grid{cols: cells, rows: cells}

	minLon, minLat := 180.0, 90.0
	maxLon, maxLat := -180.0, -90.0
	any := false
	for _, b := range bounds {
		if b == nil {
			continue
		}
		any = true
		minLon = min(minLon, b.Min(0))
		minLat = min(minLat, b.Min(1))
		maxLon = max(maxLon, b.Max(0))
		maxLat = max(maxLat, b.Max(1))
	}
	if !any {
		// Inverted extent so every lookup misses.
		g.minLon, g.minLat = 1, 1
		g.maxLon, g.maxLat = -1, -1
		g.cells = make([][]int, cells*cells)
		return g
	}

	g.minLon, g.minLat = minLon, minLat
	g.maxLon, g.maxLat = maxLon, maxLat
	g.cellW = (maxLon - minLon) / float64(cells)
	g.cellH = (maxLat - minLat) / float64(cells)
	if g.cellW <= 0 {
		g.cellW = 1e-9
	}
	if g.cellH <= 0 {
		g.cellH = 1e-9
	}

	g.cells = make([][]int, cells*cells)
	for i, b := range bounds {
		if b == nil {
			continue
		}
		c0, r0 := g.cell(b.Min(0), b.Min(1))
		c1, r1 := g.cell(b.Max(0), b.Max(1))
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				idx := r*g.cols + c
				g.cells[idx] = append(g.cells[idx], i)
			}
		}
	}
	return g
}

// Candidates returns the indexes of geometries whose bounding box may contain
// the point. Out-of-extent points return nil.
func (g *Grid) Candidates(lon, lat float64) []int {
	if lon < g.minLon || lat < g.minLat || lon > g.maxLon || lat > g.maxLat {
		return nil
	}
	c, r := g.cell(lon, lat)
	return g.cells[r*g.cols+c]
}

// cell maps a coordinate to clamped column/row indexes.
func (g *Grid) cell(lon, lat float64) (col, row int) {
	col = int((lon - g.minLon) / g.cellW)
	row = int((lat - g.minLat) / g.cellH)
	if col >= g.cols {
		col = g.cols - 1
	}
	if row >= g.rows {
		row = g.rows - 1
	}
	if col < 0 {
		col = 0
	}
	if row < 0 {
		row = 0
	}
	return col, row
}
