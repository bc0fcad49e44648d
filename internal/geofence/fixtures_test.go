package geofence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"

	"github.com/vsatlink/termtrack/internal/model"
)

// stubResolver maps "Maharashtra/Pune" to a fixed square.
type stubResolver struct{}

func (stubResolver) DistrictGeometry(state, district string) (geom.T, bool) {
	if state == "Maharashtra" && district == "Pune" {
		return geom.NewPolygonFlat(geom.XY,
			[]float64{73, 18, 74, 18, 74, 19, 73, 19, 73, 18}, []int{10}), true
	}
	return nil, false
}

func writeFixture(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "geofences.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFixtures(t *testing.T) {
	path := writeFixture(t, `
geofences:
  - state: Maharashtra
    district: Pune
  - id: test-range
    polygon:
      - [10, 10]
      - [20, 10]
      - [20, 20]
      - [10, 20]
      - [10, 10]
`)

	r := NewRegistry()
	loaded, err := LoadFixtures(path, r, stubResolver{})
	require.NoError(t, err)
	assert.Equal(t, 2, loaded)

	f, ok := r.Get("Maharashtra_Pune")
	require.True(t, ok)
	assert.Equal(t, model.Region{State: "Maharashtra", District: "Pune"}, f.Region)

	assert.Equal(t, []string{"test-range"}, r.Matching(model.Point{Lat: 15, Lon: 15}))
}

func TestLoadFixturesSkipsBadEntries(t *testing.T) {
	path := writeFixture(t, `
geofences:
  - state: Maharashtra
    district: Nagpur
  - id: ""
    polygon:
      - [0, 0]
      - [1, 0]
      - [1, 1]
  - polygon: []
  - state: Maharashtra
    district: Pune
`)

	r := NewRegistry()
	loaded, err := LoadFixtures(path, r, stubResolver{})
	require.NoError(t, err)
	assert.Equal(t, 1, loaded)
	assert.Equal(t, 1, r.Len())
}

func TestLoadFixturesErrors(t *testing.T) {
	r := NewRegistry()

	_, err := LoadFixtures(filepath.Join(t.TempDir(), "missing.yaml"), r, stubResolver{})
	assert.Error(t, err)

	bad := writeFixture(t, "geofences: [not: valid: yaml: {")
	_, err = LoadFixtures(bad, r, stubResolver{})
	assert.Error(t, err)
}
