// Package boundary holds the static administrative region index. The index is
// loaded once at startup from a GeoJSON or shapefile dataset and is immutable
// afterward, so lookups need no synchronization.
package boundary

import (
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"

	"github.com/vsatlink/termtrack/internal/model"
	"github.com/vsatlink/termtrack/internal/spatial"
)

// ErrDataFormat marks an unusable boundary dataset: unreadable file, no valid
// features, or a geometry/property layout the loaders cannot interpret.
var ErrDataFormat = eris.New("boundary: invalid dataset")

// feature is one loaded administrative polygon.
type feature struct {
	region model.Region
	geom   geom.T
	bounds *geom.Bounds
}

// Index resolves points to administrative regions. Regions may be adjacent but
// are treated as non-overlapping: resolution returns the first containing
// region in dataset order.
type Index struct {
	features []feature
	grid     *spatial.Grid

	states    []string
	districts map[string][]string
	byName    map[string]map[string]int
}

// newIndex builds the lookup structures over loaded features.
func newIndex(features []feature) *Index {
	ix := &Index{
		features:  features,
		districts: make(map[string][]string),
		byName:    make(map[string]map[string]int),
	}

	bounds := make([]*geom.Bounds, len(features))
	for i, f := range features {
		bounds[i] = f.bounds

		if _, ok := ix.byName[f.region.State]; !ok {
			ix.states = append(ix.states, f.region.State)
			ix.byName[f.region.State] = make(map[string]int)
		}
		if _, ok := ix.byName[f.region.State][f.region.District]; !ok {
			ix.byName[f.region.State][f.region.District] = i
			ix.districts[f.region.State] = append(ix.districts[f.region.State], f.region.District)
		}
	}
	ix.grid = spatial.NewGrid(bounds, 0)
	return ix
}

// Resolve returns the administrative region containing the point, or
// model.UnknownRegion when no polygon contains it. No containment is a valid
// outcome, not an error.
func (ix *Index) Resolve(p model.Point) model.Region {
	// Candidates come back in insertion order, preserving first-match-wins.
	for _, i := range ix.grid.Candidates(p.Lon, p.Lat) {
		f := ix.features[i]
		if !spatial.InBounds(f.bounds, p.Lon, p.Lat) {
			continue
		}
		if spatial.Contains(f.geom, p.Lon, p.Lat) {
			return f.region
		}
	}
	return model.UnknownRegion
}

// States lists state names in dataset order.
func (ix *Index) States() []string {
	out := make([]string, len(ix.states))
	copy(out, ix.states)
	return out
}

// Districts lists the districts of a state in dataset order. Unknown states
// return nil.
func (ix *Index) Districts(state string) []string {
	ds, ok := ix.districts[state]
	if !ok {
		return nil
	}
	out := make([]string, len(ds))
	copy(out, ds)
	return out
}

// DistrictGeometry returns the polygon of a named district, used to derive
// geofences from administrative boundaries.
func (ix *Index) DistrictGeometry(state, district string) (geom.T, bool) {
	byDistrict, ok := ix.byName[state]
	if !ok {
		return nil, false
	}
	i, ok := byDistrict[district]
	if !ok {
		return nil, false
	}
	return ix.features[i].geom, true
}

// Len returns the number of loaded region polygons.
func (ix *Index) Len() int {
	return len(ix.features)
}
