package sim

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vsatlink/termtrack/internal/model"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

// captureIngester counts reports and records the last one per device.
type captureIngester struct {
	mu      sync.Mutex
	reports []model.Report
}

func (c *captureIngester) Ingest(_ context.Context, report model.Report) (*model.IngestResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reports = append(c.reports, report)
	return &model.IngestResult{
		DeviceID: report.DeviceID,
		Region:   model.UnknownRegion,
		Status:   model.StatusActive,
	}, nil
}

func TestDeviceID(t *testing.T) {
	assert.Equal(t, "1712328952086-29105A0", DeviceID(0))
	assert.Equal(t, "1712328952086-29105A7", DeviceID(7))
}

func TestStepIsDeterministicPerSeed(t *testing.T) {
	a := New(&captureIngester{}, Options{Seed: 42})
	b := New(&captureIngester{}, Options{Seed: 42})

	for i := 0; i < 50; i++ {
		device := i % 10
		assert.Equal(t, a.Step(device), b.Step(device))
	}
}

func TestWalkStaysNearBoundary(t *testing.T) {
	g := New(&captureIngester{}, Options{Seed: 7, StepDeg: 0.5})

	for i := 0; i < 2000; i++ {
		p := g.Step(i % 10)
		// The nudge heuristic keeps the walk inside a loose box around the
		// default outline even when a step briefly leaves the polygon.
		assert.Greater(t, p.Lat, 4.0)
		assert.Less(t, p.Lat, 41.0)
		assert.Greater(t, p.Lon, 64.0)
		assert.Less(t, p.Lon, 101.0)
	}
}

func TestRunDeliversReports(t *testing.T) {
	sink := &captureIngester{}
	g := New(sink, Options{Seed: 1, Devices: 3, RatePerSec: 2000})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	delivered, err := g.Run(ctx)
	require.NoError(t, err)
	assert.Greater(t, delivered, 0)
	assert.Equal(t, delivered, len(sink.reports))

	// The fleet is cycled in order.
	require.GreaterOrEqual(t, len(sink.reports), 3)
	assert.Equal(t, DeviceID(0), sink.reports[0].DeviceID)
	assert.Equal(t, DeviceID(1), sink.reports[1].DeviceID)
	assert.Equal(t, DeviceID(2), sink.reports[2].DeviceID)
	assert.Equal(t, saiStart+1, sink.reports[1].SAI)
}

func TestRunWritesCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.csv")
	g := New(&captureIngester{}, Options{Seed: 1, Devices: 2, RatePerSec: 2000, CSVPath: path})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	delivered, err := g.Run(ctx)
	require.NoError(t, err)
	require.Greater(t, delivered, 0)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, delivered)
	assert.Equal(t, DeviceID(0), rows[0][2])
}
