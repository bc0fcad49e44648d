package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/vsatlink/termtrack/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS terminal_data (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp  DATETIME NOT NULL,
	sai        INTEGER NOT NULL DEFAULT 0,
	device_id  TEXT NOT NULL,
	latitude   REAL NOT NULL,
	longitude  REAL NOT NULL,
	district   TEXT NOT NULL,
	state      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS terminal_status (
	device_id  TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_terminal_data_device_ts ON terminal_data(device_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_terminal_data_region ON terminal_data(state, district);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) InsertReport(ctx context.Context, row TelemetryRow) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO terminal_data (timestamp, sai, device_id, latitude, longitude, district, state, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		row.Timestamp.UTC(), row.SAI, row.DeviceID, row.Latitude, row.Longitude,
		row.District, row.State, string(row.Status),
	)
	return eris.Wrap(err, "sqlite: insert report")
}

func (s *SQLiteStore) InsertReports(ctx context.Context, rows []TelemetryRow) error {
	if len(rows) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin batch")
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO terminal_data (timestamp, sai, device_id, latitude, longitude, district, state, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return eris.Wrap(err, "sqlite: prepare batch")
	}
	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.Timestamp.UTC(), row.SAI, row.DeviceID, row.Latitude, row.Longitude,
			row.District, row.State, string(row.Status),
		); err != nil {
			stmt.Close()
			tx.Rollback()
			return eris.Wrap(err, "sqlite: batch insert")
		}
	}
	stmt.Close()
	return eris.Wrap(tx.Commit(), "sqlite: commit batch")
}

func (s *SQLiteStore) UpdateStatus(ctx context.Context, deviceID string, status model.TransmissionStatus, ts time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO terminal_status (device_id, status, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(device_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		deviceID, string(status), ts.UTC(),
	)
	return eris.Wrap(err, "sqlite: update status")
}

func (s *SQLiteStore) LatestPerDevice(ctx context.Context) ([]TelemetryRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.timestamp, t.sai, t.device_id, t.latitude, t.longitude, t.district, t.state, t.status
		FROM terminal_data t
		JOIN (
			SELECT device_id, MAX(timestamp) AS max_ts
			FROM terminal_data
			GROUP BY device_id
		) latest ON t.device_id = latest.device_id AND t.timestamp = latest.max_ts
		ORDER BY t.device_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: latest per device")
	}
	defer rows.Close()
	return scanRows(rows)
}

func (s *SQLiteStore) History(ctx context.Context, f HistoryFilter) ([]TelemetryRow, int, error) {
	f = normalizeFilter(f)

	var total int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM terminal_data WHERE device_id = ? AND timestamp >= ?`,
		f.DeviceID, f.Since.UTC(),
	).Scan(&total)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: history count")
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, timestamp, sai, device_id, latitude, longitude, district, state, status
		FROM terminal_data
		WHERE device_id = ? AND timestamp >= ?
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?`,
		f.DeviceID, f.Since.UTC(), f.PerPage, (f.Page-1)*f.PerPage)
	if err != nil {
		return nil, 0, eris.Wrap(err, "sqlite: history")
	}
	defer rows.Close()

	out, err := scanRows(rows)
	return out, total, err
}

func (s *SQLiteStore) Path(ctx context.Context, deviceID string, since time.Time) ([]PathPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT latitude, longitude, timestamp
		FROM terminal_data
		WHERE device_id = ? AND timestamp >= ?
		ORDER BY timestamp`,
		deviceID, since.UTC())
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: path")
	}
	defer rows.Close()

	var points []PathPoint
	for rows.Next() {
		var p PathPoint
		if err := rows.Scan(&p.Latitude, &p.Longitude, &p.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan path point")
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "sqlite: iterate path")
}

func (s *SQLiteStore) Devices(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT device_id FROM terminal_data ORDER BY device_id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: devices")
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan device")
		}
		devices = append(devices, id)
	}
	return devices, eris.Wrap(rows.Err(), "sqlite: iterate devices")
}

func scanRows(rows *sql.Rows) ([]TelemetryRow, error) {
	var out []TelemetryRow
	for rows.Next() {
		var r TelemetryRow
		var status string
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.SAI, &r.DeviceID,
			&r.Latitude, &r.Longitude, &r.District, &r.State, &status); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan row")
		}
		r.Status = model.TransmissionStatus(status)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate rows")
}
