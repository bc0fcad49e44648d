package geofence

import (
	"os"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/vsatlink/termtrack/internal/model"
)

// fixtureFile is the YAML shape of a geofence fixture document.
type fixtureFile struct {
	Geofences []fixtureEntry `yaml:"geofences"`
}

// fixtureEntry defines one fence either by administrative region name
// (resolved against the boundary index) or by an explicit lon/lat ring.
type fixtureEntry struct {
	ID       string       `yaml:"id"`
	State    string       `yaml:"state"`
	District string       `yaml:"district"`
	Polygon  [][2]float64 `yaml:"polygon"`
}

// RegionResolver supplies district polygons for region-backed fixtures.
// Satisfied by boundary.Index.
type RegionResolver interface {
	DistrictGeometry(state, district string) (geom.T, bool)
}

// LoadFixtures reads a YAML fixture file and registers its fences. Entries
// that cannot be resolved or registered are skipped with a warning; the call
// fails only when the file is unreadable or not valid YAML.
func LoadFixtures(path string, r *Registry, resolver RegionResolver) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, eris.Wrapf(err, "geofence: read fixtures %s", path)
	}

	var ff fixtureFile
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return 0, eris.Wrap(err, "geofence: parse fixtures")
	}

	log := zap.L().With(zap.String("component", "geofence.fixtures"))

	loaded := 0
	for i, e := range ff.Geofences {
		id, region, g, err := resolveEntry(e, resolver)
		if err != nil {
			log.Warn("skipping fixture entry", zap.Int("entry", i), zap.Error(err))
			continue
		}
		if err := r.Add(id, region, g); err != nil {
			log.Warn("skipping fixture entry", zap.String("id", id), zap.Error(err))
			continue
		}
		loaded++
	}
	return loaded, nil
}

func resolveEntry(e fixtureEntry, resolver RegionResolver) (string, model.Region, geom.T, error) {
	switch {
	case len(e.Polygon) > 0:
		if e.ID == "" {
			return "", model.Region{}, nil, eris.New("polygon entry requires an id")
		}
		if len(e.Polygon) < 3 {
			return "", model.Region{}, nil, eris.New("polygon needs at least 3 points")
		}
		flat := make([]float64, 0, len(e.Polygon)*2)
		for _, pt := range e.Polygon {
			flat = append(flat, pt[0], pt[1])
		}
		p := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		return e.ID, model.Region{}, p, nil

	case e.State != "" && e.District != "":
		if resolver == nil {
			return "", model.Region{}, nil, eris.New("no boundary index for region entry")
		}
		g, ok := resolver.DistrictGeometry(e.State, e.District)
		if !ok {
			return "", model.Region{}, nil, eris.Errorf("unknown district %s/%s", e.State, e.District)
		}
		id := e.ID
		if id == "" {
			id = ID(e.State, e.District)
		}
		return id, model.Region{State: e.State, District: e.District}, g, nil

	default:
		return "", model.Region{}, nil, eris.New("entry needs state+district or polygon")
	}
}
