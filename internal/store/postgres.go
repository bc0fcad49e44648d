package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/vsatlink/termtrack/internal/db"
	"github.com/vsatlink/termtrack/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS terminal_data (
	id         BIGSERIAL PRIMARY KEY,
	timestamp  TIMESTAMPTZ NOT NULL,
	sai        INTEGER NOT NULL DEFAULT 0,
	device_id  TEXT NOT NULL,
	latitude   DOUBLE PRECISION NOT NULL,
	longitude  DOUBLE PRECISION NOT NULL,
	district   TEXT NOT NULL,
	state      TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'active'
);

CREATE TABLE IF NOT EXISTS terminal_status (
	device_id  TEXT PRIMARY KEY,
	status     TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_terminal_data_device_ts ON terminal_data(device_id, timestamp);
CREATE INDEX IF NOT EXISTS idx_terminal_data_region ON terminal_data(state, district);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) InsertReport(ctx context.Context, row TelemetryRow) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO terminal_data (timestamp, sai, device_id, latitude, longitude, district, state, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		row.Timestamp.UTC(), row.SAI, row.DeviceID, row.Latitude, row.Longitude,
		row.District, row.State, string(row.Status),
	)
	return eris.Wrap(err, "postgres: insert report")
}

var telemetryColumns = []string{
	"timestamp", "sai", "device_id", "latitude", "longitude", "district", "state", "status",
}

func (s *PostgresStore) InsertReports(ctx context.Context, rows []TelemetryRow) error {
	if len(rows) == 0 {
		return nil
	}
	values := make([][]any, 0, len(rows))
	for _, r := range rows {
		values = append(values, []any{
			r.Timestamp.UTC(), r.SAI, r.DeviceID, r.Latitude, r.Longitude,
			r.District, r.State, string(r.Status),
		})
	}
	_, err := db.CopyFrom(ctx, s.pool, "terminal_data", telemetryColumns, values)
	return eris.Wrap(err, "postgres: batch insert")
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, deviceID string, status model.TransmissionStatus, ts time.Time) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO terminal_status (device_id, status, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (device_id) DO UPDATE SET status = EXCLUDED.status, updated_at = EXCLUDED.updated_at`,
		deviceID, string(status), ts.UTC(),
	)
	return eris.Wrap(err, "postgres: update status")
}

func (s *PostgresStore) LatestPerDevice(ctx context.Context) ([]TelemetryRow, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT ON (device_id)
			id, timestamp, sai, device_id, latitude, longitude, district, state, status
		FROM terminal_data
		ORDER BY device_id, timestamp DESC`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest per device")
	}
	defer rows.Close()
	return scanPgRows(rows)
}

func (s *PostgresStore) History(ctx context.Context, f HistoryFilter) ([]TelemetryRow, int, error) {
	f = normalizeFilter(f)

	var total int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM terminal_data WHERE device_id = $1 AND timestamp >= $2`,
		f.DeviceID, f.Since.UTC(),
	).Scan(&total)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: history count")
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, timestamp, sai, device_id, latitude, longitude, district, state, status
		FROM terminal_data
		WHERE device_id = $1 AND timestamp >= $2
		ORDER BY timestamp DESC
		LIMIT $3 OFFSET $4`,
		f.DeviceID, f.Since.UTC(), f.PerPage, (f.Page-1)*f.PerPage)
	if err != nil {
		return nil, 0, eris.Wrap(err, "postgres: history")
	}
	defer rows.Close()

	out, err := scanPgRows(rows)
	return out, total, err
}

func (s *PostgresStore) Path(ctx context.Context, deviceID string, since time.Time) ([]PathPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT latitude, longitude, timestamp
		FROM terminal_data
		WHERE device_id = $1 AND timestamp >= $2
		ORDER BY timestamp`,
		deviceID, since.UTC())
	if err != nil {
		return nil, eris.Wrap(err, "postgres: path")
	}
	defer rows.Close()

	var points []PathPoint
	for rows.Next() {
		var p PathPoint
		if err := rows.Scan(&p.Latitude, &p.Longitude, &p.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan path point")
		}
		points = append(points, p)
	}
	return points, eris.Wrap(rows.Err(), "postgres: iterate path")
}

func (s *PostgresStore) Devices(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT DISTINCT device_id FROM terminal_data ORDER BY device_id`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: devices")
	}
	defer rows.Close()

	var devices []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "postgres: scan device")
		}
		devices = append(devices, id)
	}
	return devices, eris.Wrap(rows.Err(), "postgres: iterate devices")
}

// scanPgRows materializes telemetry rows from a pgx result set.
func scanPgRows(rows pgx.Rows) ([]TelemetryRow, error) {
	var out []TelemetryRow
	for rows.Next() {
		var r TelemetryRow
		var status string
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.SAI, &r.DeviceID,
			&r.Latitude, &r.Longitude, &r.District, &r.State, &status); err != nil {
			return nil, eris.Wrap(err, "postgres: scan row")
		}
		r.Status = model.TransmissionStatus(status)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: iterate rows")
	}
	return out, nil
}
