// Package geofence holds the mutable set of user-defined control polygons.
// Adds and removes are rare and brief; matching runs on every telemetry
// report, so the registry favors cheap concurrent reads.
package geofence

import (
	"sync"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"

	"github.com/vsatlink/termtrack/internal/model"
	"github.com/vsatlink/termtrack/internal/spatial"
)

var (
	// ErrDuplicate is returned when adding an id that is already registered.
	ErrDuplicate = eris.New("geofence: duplicate id")
	// ErrNotFound is returned when removing an id that is not registered.
	ErrNotFound = eris.New("geofence: not found")
	// ErrBadGeometry is returned for non-polygonal or degenerate geometry.
	ErrBadGeometry = eris.New("geofence: unusable geometry")
)

// Geofence is one named control polygon. Region is set when the fence was
// derived from an administrative boundary, zero otherwise.
type Geofence struct {
	ID     string
	Region model.Region

	geometry geom.T
	bounds   *geom.Bounds
}

// Contains reports whether the fence polygon contains the point.
func (g *Geofence) Contains(p model.Point) bool {
	if !spatial.InBounds(g.bounds, p.Lon, p.Lat) {
		return false
	}
	return spatial.Contains(g.geometry, p.Lon, p.Lat)
}

// ID derives the registry id for a region-backed geofence, matching the
// State_District convention of the upstream control channel.
func ID(state, district string) string {
	return state + "_" + district
}

// Registry is the concurrent geofence set. A reader-writer lock gives every
// Matching call a consistent snapshot: a fence is either fully present or
// fully absent, never partially applied. The generation counter increments on
// every mutation so callers can detect a changed registry between reads.
type Registry struct {
	mu         sync.RWMutex
	generation uint64
	fences     map[string]*Geofence
	order      []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{fences: make(map[string]*Geofence)}
}

// Add registers a fence under id. The id must be unique; the geometry must be
// a non-degenerate Polygon or MultiPolygon. On error no state changes.
func (r *Registry) Add(id string, region model.Region, g geom.T) error {
	if err := validate(g); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.fences[id]; ok {
		return eris.Wrapf(ErrDuplicate, "id %s", id)
	}
	r.fences[id] = &Geofence{
		ID:       id,
		Region:   region,
		geometry: g,
		bounds:   g.Bounds(),
	}
	r.order = append(r.order, id)
	r.generation++
	return nil
}

// Remove unregisters a fence and returns it, so the engine can synthesize
// exit transitions for terminals still inside it.
func (r *Registry) Remove(id string) (*Geofence, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.fences[id]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "id %s", id)
	}
	delete(r.fences, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	r.generation++
	return f, nil
}

// Matching returns the ids of every fence containing the point, in
// registration order. A point may match zero, one, or many overlapping fences.
func (r *Registry) Matching(p model.Point) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ids []string
	for _, id := range r.order {
		if r.fences[id].Contains(p) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Get returns the fence registered under id.
func (r *Registry) Get(id string) (*Geofence, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.fences[id]
	return f, ok
}

// List returns all fences in registration order.
func (r *Registry) List() []*Geofence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Geofence, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.fences[id])
	}
	return out
}

// Len returns the number of registered fences.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.fences)
}

// Generation returns the mutation counter.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

func validate(g geom.T) error {
	switch t := g.(type) {
	case *geom.Polygon:
		if t.NumLinearRings() == 0 || t.LinearRing(0).NumCoords() < 3 {
			return eris.Wrap(ErrBadGeometry, "degenerate polygon")
		}
	case *geom.MultiPolygon:
		if t.NumPolygons() == 0 {
			return eris.Wrap(ErrBadGeometry, "empty multipolygon")
		}
	case nil:
		return eris.Wrap(ErrBadGeometry, "nil geometry")
	default:
		return eris.Wrapf(ErrBadGeometry, "unsupported type %T", g)
	}
	return nil
}
