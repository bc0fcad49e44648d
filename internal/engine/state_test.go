package engine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	geom "github.com/twpayne/go-geom"

	"github.com/vsatlink/termtrack/internal/model"
)

// squareGeom builds a closed rectangle polygon for tests.
func squareGeom(minLon, minLat, maxLon, maxLat float64) *geom.Polygon {
	return geom.NewPolygonFlat(geom.XY, []float64{
		minLon, minLat, maxLon, minLat, maxLon, maxLat, minLon, maxLat, minLon, minLat,
	}, []int{10})
}

func TestStateStoreBasics(t *testing.T) {
	s := newStateStore(0)

	_, ok := s.get("missing")
	assert.False(t, ok)

	s.withDevice("d1", func(rec *model.TerminalRecord) *model.TerminalRecord {
		assert.Nil(t, rec, "first access sees no record")
		return &model.TerminalRecord{DeviceID: "d1", Status: model.StatusActive}
	})

	rec, ok := s.get("d1")
	assert.True(t, ok)
	assert.Equal(t, "d1", rec.DeviceID)
	assert.Equal(t, 1, s.len())
}

func TestStateStoreCopies(t *testing.T) {
	s := newStateStore(0)
	s.withDevice("d1", func(*model.TerminalRecord) *model.TerminalRecord {
		return &model.TerminalRecord{DeviceID: "d1", Geofences: []string{"a"}}
	})

	rec, _ := s.get("d1")
	rec.Geofences[0] = "mutated"

	again, _ := s.get("d1")
	assert.Equal(t, []string{"a"}, again.Geofences, "get must return an isolated copy")
}

func TestStateStoreConcurrentDistinctDevices(t *testing.T) {
	s := newStateStore(8)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("d%03d", i)
			for j := 0; j < 10; j++ {
				s.withDevice(id, func(rec *model.TerminalRecord) *model.TerminalRecord {
					if rec == nil {
						rec = &model.TerminalRecord{DeviceID: id}
					}
					rec.SAI++
					return rec
				})
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 100, s.len())
	rec, ok := s.get("d042")
	assert.True(t, ok)
	assert.Equal(t, 10, rec.SAI, "per-device updates must not be lost")
}

func TestStateStoreSnapshotFilter(t *testing.T) {
	s := newStateStore(4)
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("d%d", i)
		status := model.StatusActive
		if i%2 == 0 {
			status = model.StatusDisabled
		}
		s.withDevice(id, func(*model.TerminalRecord) *model.TerminalRecord {
			return &model.TerminalRecord{DeviceID: id, Status: status}
		})
	}

	disabled := s.snapshot(func(rec *model.TerminalRecord) bool {
		return rec.Status == model.StatusDisabled
	})
	assert.Len(t, disabled, 5)

	all := s.snapshot(nil)
	assert.Len(t, all, 10)
}
