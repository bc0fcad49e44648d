package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsatlink/termtrack/internal/model"
)

const districtFixture = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "properties": {"NAME_1": "Delhi", "NAME_2": "New Delhi"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[76.8, 28.4], [77.4, 28.4], [77.4, 28.9], [76.8, 28.9], [76.8, 28.4]]]
      }
    },
    {
      "type": "Feature",
      "properties": {"NAME_1": "Maharashtra", "NAME_2": "Pune"},
      "geometry": {
        "type": "Polygon",
        "coordinates": [[[73.6, 18.3], [74.2, 18.3], [74.2, 18.8], [73.6, 18.8], [73.6, 18.3]]]
      }
    },
    {
      "type": "Feature",
      "properties": {"NAME_1": "Maharashtra", "NAME_2": "Mumbai"},
      "geometry": {
        "type": "MultiPolygon",
        "coordinates": [[[[72.7, 18.9], [73.1, 18.9], [73.1, 19.3], [72.7, 19.3], [72.7, 18.9]]]]
      }
    }
  ]
}`

func loadFixture(t *testing.T) *Index {
	t.Helper()
	ix, err := ParseGeoJSON([]byte(districtFixture))
	require.NoError(t, err)
	return ix
}

func TestResolve(t *testing.T) {
	ix := loadFixture(t)

	tests := []struct {
		name  string
		point model.Point
		want  model.Region
	}{
		{
			name:  "Delhi point resolves to its district",
			point: model.Point{Lat: 28.6139, Lon: 77.2090},
			want:  model.Region{State: "Delhi", District: "New Delhi"},
		},
		{
			name:  "Pune point",
			point: model.Point{Lat: 18.52, Lon: 73.85},
			want:  model.Region{State: "Maharashtra", District: "Pune"},
		},
		{
			name:  "multipolygon district",
			point: model.Point{Lat: 19.07, Lon: 72.87},
			want:  model.Region{State: "Maharashtra", District: "Mumbai"},
		},
		{
			name:  "open ocean is unknown",
			point: model.Point{Lat: 0, Lon: 0},
			want:  model.UnknownRegion,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ix.Resolve(tt.point))
		})
	}
}

func TestCatalog(t *testing.T) {
	ix := loadFixture(t)

	assert.Equal(t, []string{"Delhi", "Maharashtra"}, ix.States())
	assert.Equal(t, []string{"Pune", "Mumbai"}, ix.Districts("Maharashtra"))
	assert.Nil(t, ix.Districts("Atlantis"))
	assert.Equal(t, 3, ix.Len())
}

func TestDistrictGeometry(t *testing.T) {
	ix := loadFixture(t)

	g, ok := ix.DistrictGeometry("Maharashtra", "Pune")
	require.True(t, ok)
	assert.NotNil(t, g)

	_, ok = ix.DistrictGeometry("Maharashtra", "Nagpur")
	assert.False(t, ok)
	_, ok = ix.DistrictGeometry("Atlantis", "Pune")
	assert.False(t, ok)
}

func TestParseSkipsMalformedFeatures(t *testing.T) {
	mixed := `{
	  "type": "FeatureCollection",
	  "features": [
	    {
	      "type": "Feature",
	      "properties": {"NAME_1": "Delhi"},
	      "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,0]]]}
	    },
	    {
	      "type": "Feature",
	      "properties": {"NAME_1": "Delhi", "NAME_2": "New Delhi"},
	      "geometry": {"type": "Point", "coordinates": [77.2, 28.6]}
	    },
	    {
	      "type": "Feature",
	      "properties": {"NAME_1": "Delhi", "NAME_2": "New Delhi"},
	      "geometry": {
	        "type": "Polygon",
	        "coordinates": [[[76.8, 28.4], [77.4, 28.4], [77.4, 28.9], [76.8, 28.9], [76.8, 28.4]]]
	      }
	    }
	  ]
	}`

	ix, err := ParseGeoJSON([]byte(mixed))
	require.NoError(t, err, "one bad feature must not abort the load")
	assert.Equal(t, 1, ix.Len())
	assert.Equal(t,
		model.Region{State: "Delhi", District: "New Delhi"},
		ix.Resolve(model.Point{Lat: 28.6, Lon: 77.2}),
	)
}

func TestParseAllMalformedFails(t *testing.T) {
	empty := `{"type": "FeatureCollection", "features": []}`
	_, err := ParseGeoJSON([]byte(empty))
	assert.Error(t, err)

	_, err = ParseGeoJSON([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseLowercaseProperties(t *testing.T) {
	fixture := `{
	  "type": "FeatureCollection",
	  "features": [
	    {
	      "type": "Feature",
	      "properties": {"state": "Karnataka", "district": "Bengaluru"},
	      "geometry": {
	        "type": "Polygon",
	        "coordinates": [[[77.4, 12.8], [77.8, 12.8], [77.8, 13.2], [77.4, 13.2], [77.4, 12.8]]]
	      }
	    }
	  ]
	}`

	ix, err := ParseGeoJSON([]byte(fixture))
	require.NoError(t, err)
	assert.Equal(t,
		model.Region{State: "Karnataka", District: "Bengaluru"},
		ix.Resolve(model.Point{Lat: 12.97, Lon: 77.59}),
	)
}
