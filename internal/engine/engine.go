// Package engine is the geospatial membership core: it consumes telemetry
// reports, maintains per-terminal state, resolves administrative region and
// geofence membership, and emits edge-triggered transition events.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/vsatlink/termtrack/internal/boundary"
	"github.com/vsatlink/termtrack/internal/geofence"
	"github.com/vsatlink/termtrack/internal/metrics"
	"github.com/vsatlink/termtrack/internal/model"
)

// ErrInvalidReport marks a telemetry report the engine refuses to process:
// out-of-range or non-finite coordinates, or a missing device id. Invalid
// reports never mutate state.
var ErrInvalidReport = eris.New("engine: invalid report")

// Publisher receives state changes from the engine. Implementations must not
// block: the engine calls these while holding a device's stripe lock, and a
// slow downstream consumer must never stall ingestion. Queue or drop instead.
type Publisher interface {
	PublishTransition(ev model.TransitionEvent)
	PublishPosition(rec model.TerminalRecord)
	PublishStatus(deviceID string, status model.TransmissionStatus, ts time.Time)
}

// NopPublisher discards everything. Useful for tests and offline tooling.
type NopPublisher struct{}

func (NopPublisher) PublishTransition(model.TransitionEvent)                   {}
func (NopPublisher) PublishPosition(model.TerminalRecord)                      {}
func (NopPublisher) PublishStatus(string, model.TransmissionStatus, time.Time) {}

// Options tunes engine internals.
type Options struct {
	// Stripes is the lock stripe count for the terminal state store.
	// 0 selects the default.
	Stripes int
}

// Engine wires the boundary index, geofence registry, terminal state store and
// publisher together. All terminal state mutation flows through Ingest,
// CreateGeofence and RemoveGeofence; reads go through CurrentState/AllStates.
type Engine struct {
	boundaries *boundary.Index
	fences     *geofence.Registry
	pub        Publisher
	state      *stateStore
	log        *zap.Logger
}

// New creates an Engine. The boundary index is required; a nil publisher
// defaults to NopPublisher.
func New(ix *boundary.Index, fences *geofence.Registry, pub Publisher, opts Options) *Engine {
	if pub == nil {
		pub = NopPublisher{}
	}
	if fences == nil {
		fences = geofence.NewRegistry()
	}
	return &Engine{
		boundaries: ix,
		fences:     fences,
		pub:        pub,
		state:      newStateStore(opts.Stripes),
		log:        zap.L().With(zap.String("component", "engine")),
	}
}

// Registry exposes the geofence registry for read-only listing.
func (e *Engine) Registry() *geofence.Registry {
	return e.fences
}

// Boundaries exposes the boundary index for the catalog query surface.
func (e *Engine) Boundaries() *boundary.Index {
	return e.boundaries
}

// Ingest processes one telemetry report. The report is validated, classified,
// diffed against the terminal's previous state, and committed; transition
// events and a position update go to the publisher, which must not block.
//
// The whole sequence runs under the device's stripe lock, so two reports for
// the same device can never interleave; reports for devices on different
// stripes proceed in parallel. The context is accepted for interface symmetry
// with transport-driven callers; the core computation does no I/O.
func (e *Engine) Ingest(ctx context.Context, report model.Report) (*model.IngestResult, error) {
	if err := validateReport(report); err != nil {
		metrics.ReportsIngested.WithLabelValues("invalid").Inc()
		return nil, err
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now().UTC()
	}

	var result *model.IngestResult
	created := false

	e.state.withDevice(report.DeviceID, func(rec *model.TerminalRecord) *model.TerminalRecord {
		start := time.Now()
		m := ResolveMembership(report.Point(), e.boundaries, e.fences)
		metrics.ResolveDuration.Observe(time.Since(start).Seconds())

		var previous []string
		if rec == nil {
			created = true
			rec = &model.TerminalRecord{
				DeviceID: report.DeviceID,
				Status:   model.StatusActive,
			}
		} else {
			previous = rec.Geofences
		}

		entered, exited := diffMembership(previous, m.Geofences)

		status := model.StatusActive
		if len(m.Geofences) > 0 {
			status = model.StatusDisabled
		}
		statusChanged := status != rec.Status || created

		rec.SAI = report.SAI
		rec.LastPoint = report.Point()
		rec.LastTimestamp = report.Timestamp
		rec.Region = m.Region
		rec.Geofences = m.Geofences
		rec.Status = status

		for _, id := range exited {
			e.publishTransition(report.DeviceID, id, model.TransitionExit, report.Timestamp)
		}
		for _, id := range entered {
			e.publishTransition(report.DeviceID, id, model.TransitionEnter, report.Timestamp)
		}
		e.pub.PublishPosition(copyRecord(rec))
		if statusChanged {
			e.pub.PublishStatus(report.DeviceID, status, report.Timestamp)
		}

		result = &model.IngestResult{
			DeviceID:      report.DeviceID,
			Region:        m.Region,
			Geofences:     append([]string(nil), m.Geofences...),
			Entered:       entered,
			Exited:        exited,
			Status:        status,
			StatusChanged: statusChanged,
		}
		return rec
	})

	if created {
		metrics.TerminalsTracked.Set(float64(e.state.len()))
	}
	metrics.ReportsIngested.WithLabelValues("ok").Inc()
	return result, nil
}

// CreateGeofence registers a geofence over a named administrative district.
// Terminals whose last known position lies inside the new fence are flagged
// immediately with a synthetic enter transition, rather than waiting for
// their next report.
func (e *Engine) CreateGeofence(state, district string) (string, error) {
	g, ok := e.boundaries.DistrictGeometry(state, district)
	if !ok {
		return "", eris.Wrapf(geofence.ErrNotFound, "district %s/%s", state, district)
	}
	id := geofence.ID(state, district)
	if err := e.fences.Add(id, model.Region{State: state, District: district}, g); err != nil {
		return "", err
	}
	e.sweepEnter(id)
	metrics.GeofencesActive.Set(float64(e.fences.Len()))
	e.log.Info("geofence created",
		zap.String("id", id),
		zap.String("state", state),
		zap.String("district", district),
	)
	return id, nil
}

// CreateCustomGeofence registers an arbitrary named polygon.
func (e *Engine) CreateCustomGeofence(id string, g geom.T) error {
	if err := e.fences.Add(id, model.Region{}, g); err != nil {
		return err
	}
	e.sweepEnter(id)
	metrics.GeofencesActive.Set(float64(e.fences.Len()))
	e.log.Info("geofence created", zap.String("id", id))
	return nil
}

// RemoveGeofence unregisters a fence and synthesizes an exit transition for
// every terminal still flagged inside it. Without the sweep a removed fence
// would leave terminals disabled forever.
func (e *Engine) RemoveGeofence(id string) error {
	if _, err := e.fences.Remove(id); err != nil {
		return err
	}

	now := time.Now().UTC()
	affected := 0
	e.state.sweep(func(rec *model.TerminalRecord) {
		if !rec.InGeofence(id) {
			return
		}
		affected++
		kept := rec.Geofences[:0]
		for _, g := range rec.Geofences {
			if g != id {
				kept = append(kept, g)
			}
		}
		rec.Geofences = kept
		e.publishTransition(rec.DeviceID, id, model.TransitionExit, now)

		if len(rec.Geofences) == 0 && rec.Status != model.StatusActive {
			rec.Status = model.StatusActive
			e.pub.PublishStatus(rec.DeviceID, rec.Status, now)
		}
	})

	metrics.GeofencesActive.Set(float64(e.fences.Len()))
	e.log.Info("geofence removed", zap.String("id", id), zap.Int("terminals_released", affected))
	return nil
}

// CurrentState returns a device's record, if it has ever reported.
func (e *Engine) CurrentState(deviceID string) (model.TerminalRecord, bool) {
	return e.state.get(deviceID)
}

// StateFilter narrows AllStates by administrative region.
type StateFilter struct {
	State    string
	District string
}

// AllStates returns every terminal record matching the filter. Empty filter
// fields match everything.
func (e *Engine) AllStates(filter StateFilter) []model.TerminalRecord {
	return e.state.snapshot(func(rec *model.TerminalRecord) bool {
		if filter.State != "" && rec.Region.State != filter.State {
			return false
		}
		if filter.District != "" && rec.Region.District != filter.District {
			return false
		}
		return true
	})
}

// TerminalCount returns the number of tracked terminals.
func (e *Engine) TerminalCount() int {
	return e.state.len()
}

// sweepEnter flags terminals already inside a newly created fence.
func (e *Engine) sweepEnter(id string) {
	f, ok := e.fences.Get(id)
	if !ok {
		return
	}
	now := time.Now().UTC()
	e.state.sweep(func(rec *model.TerminalRecord) {
		if rec.InGeofence(id) || !f.Contains(rec.LastPoint) {
			return
		}
		rec.Geofences = append(rec.Geofences, id)
		e.publishTransition(rec.DeviceID, id, model.TransitionEnter, now)
		if rec.Status != model.StatusDisabled {
			rec.Status = model.StatusDisabled
			e.pub.PublishStatus(rec.DeviceID, rec.Status, now)
		}
	})
}

func (e *Engine) publishTransition(deviceID, fenceID string, kind model.TransitionKind, ts time.Time) {
	metrics.Transitions.WithLabelValues(string(kind)).Inc()
	e.pub.PublishTransition(model.TransitionEvent{
		ID:         uuid.New().String(),
		DeviceID:   deviceID,
		GeofenceID: fenceID,
		Kind:       kind,
		Timestamp:  ts,
	})
}

func validateReport(r model.Report) error {
	if r.DeviceID == "" {
		return eris.Wrap(ErrInvalidReport, "empty device id")
	}
	if math.IsNaN(r.Lat) || math.IsNaN(r.Lon) || math.IsInf(r.Lat, 0) || math.IsInf(r.Lon, 0) {
		return eris.Wrap(ErrInvalidReport, "non-finite coordinates")
	}
	if r.Lat < -90 || r.Lat > 90 {
		return eris.Wrapf(ErrInvalidReport, "latitude %v out of range", r.Lat)
	}
	if r.Lon < -180 || r.Lon > 180 {
		return eris.Wrapf(ErrInvalidReport, "longitude %v out of range", r.Lon)
	}
	return nil
}
