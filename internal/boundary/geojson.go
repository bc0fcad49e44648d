package boundary

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/vsatlink/termtrack/internal/model"
)

// Property keys carrying the two-level region name. NAME_1/NAME_2 is the GADM
// convention used by the district datasets this service ships with; the
// lowercase pair is accepted for hand-written fixtures.
var (
	stateKeys    = []string{"NAME_1", "state"}
	districtKeys = []string{"NAME_2", "district"}
)

// LoadGeoJSON reads a FeatureCollection of administrative polygons. Individual
// malformed features (missing names, non-polygon geometry) are skipped with a
// warning; the load fails only when the file is unreadable, not valid GeoJSON,
// or yields zero usable features.
func LoadGeoJSON(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(ErrDataFormat, "read %s: %v", path, err)
	}
	return ParseGeoJSON(data)
}

// ParseGeoJSON builds an Index from raw GeoJSON bytes.
func ParseGeoJSON(data []byte) (*Index, error) {
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, eris.Wrapf(ErrDataFormat, "parse geojson: %v", err)
	}

	log := zap.L().With(zap.String("component", "boundary.geojson"))

	var features []feature
	var skipped int
	for i, f := range fc.Features {
		state, okS := property(f.Properties, stateKeys)
		district, okD := property(f.Properties, districtKeys)
		if !okS || !okD {
			skipped++
			log.Warn("skipping feature without region names", zap.Int("feature", i))
			continue
		}
		if !usableGeometry(f.Geometry) {
			skipped++
			log.Warn("skipping feature with unusable geometry",
				zap.Int("feature", i),
				zap.String("state", state),
				zap.String("district", district),
			)
			continue
		}
		features = append(features, feature{
			region: model.Region{State: state, District: district},
			geom:   f.Geometry,
			bounds: f.Geometry.Bounds(),
		})
	}

	if len(features) == 0 {
		return nil, eris.Wrapf(ErrDataFormat, "no usable features (%d skipped)", skipped)
	}
	if skipped > 0 {
		log.Warn("loaded dataset with skipped features",
			zap.Int("loaded", len(features)),
			zap.Int("skipped", skipped),
		)
	}
	return newIndex(features), nil
}

// property returns the first present, non-empty string value among keys.
func property(props map[string]any, keys []string) (string, bool) {
	for _, k := range keys {
		if v, ok := props[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s, true
			}
		}
	}
	return "", false
}

// usableGeometry accepts polygonal geometries with at least one non-degenerate ring.
func usableGeometry(g geom.T) bool {
	switch t := g.(type) {
	case *geom.Polygon:
		return t.NumLinearRings() > 0 && t.LinearRing(0).NumCoords() >= 3
	case *geom.MultiPolygon:
		for i := 0; i < t.NumPolygons(); i++ {
			p := t.Polygon(i)
			if p.NumLinearRings() > 0 && p.LinearRing(0).NumCoords() >= 3 {
				return true
			}
		}
		return false
	default:
		return false
	}
}
