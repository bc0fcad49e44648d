package engine

import (
	"github.com/vsatlink/termtrack/internal/boundary"
	"github.com/vsatlink/termtrack/internal/geofence"
	"github.com/vsatlink/termtrack/internal/model"
)

// Membership is the full geospatial classification of one point.
type Membership struct {
	Region    model.Region
	Geofences []string
}

// ResolveMembership classifies a point against the boundary index and the
// geofence registry. Pure: no side effects, deterministic for a fixed index
// and registry snapshot.
func ResolveMembership(p model.Point, ix *boundary.Index, fences *geofence.Registry) Membership {
	return Membership{
		Region:    ix.Resolve(p),
		Geofences: fences.Matching(p),
	}
}
