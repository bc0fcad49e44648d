package boundary

import (
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/vsatlink/termtrack/internal/model"
)

// ShapefileOptions names the attribute fields carrying the region names.
type ShapefileOptions struct {
	StateField    string
	DistrictField string
}

// DefaultShapefileOptions matches GADM-style administrative shapefiles.
func DefaultShapefileOptions() ShapefileOptions {
	return ShapefileOptions{StateField: "NAME_1", DistrictField: "NAME_2"}
}

// LoadShapefile reads administrative polygons from an ESRI shapefile. Records
// missing region names or a polygon shape are skipped with a warning; the load
// fails when the file cannot be opened, the name fields are absent, or no
// usable record remains.
func LoadShapefile(path string, opts ShapefileOptions) (*Index, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(ErrDataFormat, "open shapefile %s: %v", path, err)
	}
	defer func() { _ = reader.Close() }()

	// Field name → index, case-insensitive, trailing NULs stripped.
	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		name := strings.TrimRight(f.String(), "\x00")
		fieldIdx[strings.ToLower(name)] = i
	}
	stateIdx, okS := fieldIdx[strings.ToLower(opts.StateField)]
	districtIdx, okD := fieldIdx[strings.ToLower(opts.DistrictField)]
	if !okS || !okD {
		return nil, eris.Wrapf(ErrDataFormat, "shapefile lacks fields %s/%s",
			opts.StateField, opts.DistrictField)
	}

	log := zap.L().With(zap.String("component", "boundary.shapefile"))

	var features []feature
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		state := attribute(reader, stateIdx)
		district := attribute(reader, districtIdx)
		if state == "" || district == "" {
			skipped++
			log.Warn("skipping record without region names", zap.Int("record", n))
			continue
		}

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			log.Warn("skipping non-polygon record", zap.Int("record", n))
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			log.Warn("skipping degenerate polygon record", zap.Int("record", n))
			continue
		}

		features = append(features, feature{
			region: model.Region{State: state, District: district},
			geom:   mp,
			bounds: mp.Bounds(),
		})
	}

	if len(features) == 0 {
		return nil, eris.Wrapf(ErrDataFormat, "no usable records in %s (%d skipped)", path, skipped)
	}
	if skipped > 0 {
		log.Warn("loaded shapefile with skipped records",
			zap.Int("loaded", len(features)),
			zap.Int("skipped", skipped),
		)
	}
	return newIndex(features), nil
}

func attribute(r *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(r.Attribute(idx), "\x00"))
}

// polygonToMultiPolygon converts a shapefile polygon to a geom.MultiPolygon,
// one single-ring polygon per part. Parts with fewer than 3 points are dropped.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 3 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		if err := mp.Push(ring); err != nil {
			continue
		}
	}

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}
