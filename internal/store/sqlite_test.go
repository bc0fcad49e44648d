package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsatlink/termtrack/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func row(device string, ts time.Time, lat, lon float64) TelemetryRow {
	return TelemetryRow{
		Timestamp: ts,
		SAI:       7,
		DeviceID:  device,
		Latitude:  lat,
		Longitude: lon,
		District:  "Pune",
		State:     "Maharashtra",
		Status:    model.StatusActive,
	}
}

func TestSQLiteInsertAndLatest(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.InsertReport(ctx, row("sat-1", base, 18.5, 73.8)))
	require.NoError(t, s.InsertReport(ctx, row("sat-1", base.Add(time.Minute), 18.6, 73.9)))
	require.NoError(t, s.InsertReport(ctx, row("sat-2", base, 21.1, 79.0)))

	latest, err := s.LatestPerDevice(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 2)

	assert.Equal(t, "sat-1", latest[0].DeviceID)
	assert.Equal(t, 18.6, latest[0].Latitude)
	assert.Equal(t, "sat-2", latest[1].DeviceID)
}

func TestSQLiteHistoryPagination(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		require.NoError(t, s.InsertReport(ctx, row("sat-1", base.Add(time.Duration(i)*time.Minute), 18.5, 73.8)))
	}
	// Different device must not leak into the page.
	require.NoError(t, s.InsertReport(ctx, row("sat-2", base, 0, 0)))

	rows, total, err := s.History(ctx, HistoryFilter{
		DeviceID: "sat-1",
		Since:    base,
		Page:     1,
		PerPage:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	require.Len(t, rows, 10)
	// Newest first.
	assert.True(t, rows[0].Timestamp.After(rows[9].Timestamp))

	rows, _, err = s.History(ctx, HistoryFilter{DeviceID: "sat-1", Since: base, Page: 3, PerPage: 10})
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	// Window cutoff.
	rows, total, err = s.History(ctx, HistoryFilter{
		DeviceID: "sat-1",
		Since:    base.Add(20 * time.Minute),
	})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, rows, 5)
}

func TestSQLitePathOrdering(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	// Insert out of order; path must come back chronological.
	require.NoError(t, s.InsertReport(ctx, row("sat-1", base.Add(2*time.Minute), 18.7, 73.8)))
	require.NoError(t, s.InsertReport(ctx, row("sat-1", base, 18.5, 73.8)))
	require.NoError(t, s.InsertReport(ctx, row("sat-1", base.Add(time.Minute), 18.6, 73.8)))

	path, err := s.Path(ctx, "sat-1", base)
	require.NoError(t, err)
	require.Len(t, path, 3)
	assert.Equal(t, 18.5, path[0].Latitude)
	assert.Equal(t, 18.6, path[1].Latitude)
	assert.Equal(t, 18.7, path[2].Latitude)
}

func TestSQLiteBatchInsert(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	var rows []TelemetryRow
	for i := 0; i < 50; i++ {
		rows = append(rows, row("sat-batch", base.Add(time.Duration(i)*time.Second), 18.5, 73.8))
	}
	require.NoError(t, s.InsertReports(ctx, rows))
	require.NoError(t, s.InsertReports(ctx, nil), "empty batch is a no-op")

	_, total, err := s.History(ctx, HistoryFilter{DeviceID: "sat-batch", Since: base})
	require.NoError(t, err)
	assert.Equal(t, 50, total)
}

func TestSQLiteDevices(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	base := time.Now().UTC()

	devices, err := s.Devices(ctx)
	require.NoError(t, err)
	assert.Empty(t, devices)

	require.NoError(t, s.InsertReport(ctx, row("sat-b", base, 1, 1)))
	require.NoError(t, s.InsertReport(ctx, row("sat-a", base, 1, 1)))
	require.NoError(t, s.InsertReport(ctx, row("sat-a", base.Add(time.Second), 1, 1)))

	devices, err = s.Devices(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"sat-a", "sat-b"}, devices)
}

func TestSQLiteUpdateStatus(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.UpdateStatus(ctx, "sat-1", model.StatusDisabled, now))
	// Upsert path.
	require.NoError(t, s.UpdateStatus(ctx, "sat-1", model.StatusActive, now.Add(time.Minute)))

	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM terminal_status WHERE device_id = ?`, "sat-1").Scan(&status)
	require.NoError(t, err)
	assert.Equal(t, "active", status)
}
