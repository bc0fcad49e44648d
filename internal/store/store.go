// Package store persists telemetry history and terminal status downstream of
// the tracking engine. The engine itself never touches the store; a publisher
// sink feeds it, and the HTTP API reads it for history and path queries.
package store

import (
	"context"
	"time"

	"github.com/vsatlink/termtrack/internal/model"
)

// TelemetryRow is one persisted position report, enriched with the region and
// status the engine resolved for it.
type TelemetryRow struct {
	ID        int64                    `json:"id,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
	SAI       int                      `json:"sai"`
	DeviceID  string                   `json:"device_id"`
	Latitude  float64                  `json:"latitude"`
	Longitude float64                  `json:"longitude"`
	District  string                   `json:"district"`
	State     string                   `json:"state"`
	Status    model.TransmissionStatus `json:"status"`
}

// PathPoint is one step of a terminal's historical track.
type PathPoint struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// HistoryFilter selects a page of telemetry rows for one device.
type HistoryFilter struct {
	DeviceID string
	Since    time.Time
	Page     int
	PerPage  int
}

// Store is the persistence interface for telemetry history.
type Store interface {
	// Writes, called from the publisher's store sink.
	InsertReport(ctx context.Context, row TelemetryRow) error
	InsertReports(ctx context.Context, rows []TelemetryRow) error
	UpdateStatus(ctx context.Context, deviceID string, status model.TransmissionStatus, ts time.Time) error

	// Reads, serving the HTTP query surface.
	LatestPerDevice(ctx context.Context) ([]TelemetryRow, error)
	History(ctx context.Context, f HistoryFilter) ([]TelemetryRow, int, error)
	Path(ctx context.Context, deviceID string, since time.Time) ([]PathPoint, error)
	Devices(ctx context.Context) ([]string, error)

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error
}

// normalizeFilter applies pagination defaults shared by both backends.
func normalizeFilter(f HistoryFilter) HistoryFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = 50
	}
	return f
}
