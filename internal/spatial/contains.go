// Package spatial provides point-in-polygon containment tests and a coarse
// grid index over go-geom geometries. All coordinates are WGS84 lon/lat.
package spatial

import (
	geom "github.com/twpayne/go-geom"
)

// Contains reports whether the point (lon, lat) lies inside g. Polygon and
// MultiPolygon geometries are supported; anything else is never containing.
//
// Containment uses even-odd ray casting: the first ring of each polygon is the
// outer boundary, subsequent rings are holes. Points exactly on an edge
// classify by the ray test's deterministic outcome; the convention is stable
// for a given polygon but callers must not rely on a particular side.
func Contains(g geom.T, lon, lat float64) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonContains(t, lon, lat)
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			if polygonContains(t.Polygon(i), lon, lat) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func polygonContains(p *geom.Polygon, lon, lat float64) bool {
	n := p.NumLinearRings()
	if n == 0 {
		return false
	}
	if !ringContains(p.LinearRing(0), lon, lat) {
		return false
	}
	// Inside the outer ring but inside a hole is outside.
	for i := 1; i < n; i++ {
		if ringContains(p.LinearRing(i), lon, lat) {
			return false
		}
	}
	return true
}

// ringContains runs an even-odd ray cast against a single ring. The ring may
// be open or closed (first == last); the wrap-around edge is handled either way.
func ringContains(r *geom.LinearRing, lon, lat float64) bool {
	coords := r.FlatCoords()
	stride := r.Stride()
	n := len(coords) / stride
	if n < 3 {
		return false
	}
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := coords[i*stride], coords[i*stride+1]
		xj, yj := coords[j*stride], coords[j*stride+1]
		if (yi > lat) != (yj > lat) {
			// Guard against degenerate horizontal edges.
			cross := (xj-xi)*(lat-yi)/(yj-yi+1e-12) + xi
			if lon < cross {
				inside = !inside
			}
		}
	}
	return inside
}

// InBounds reports whether (lon, lat) lies within the geometry's bounding box.
// Cheap prefilter before a full Contains test.
func InBounds(b *geom.Bounds, lon, lat float64) bool {
	return lon >= b.Min(0) && lon <= b.Max(0) && lat >= b.Min(1) && lat <= b.Max(1)
}
