package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vsatlink/termtrack/internal/engine"
	"github.com/vsatlink/termtrack/internal/geofence"
	"github.com/vsatlink/termtrack/internal/model"
	"github.com/vsatlink/termtrack/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"terminals": s.engine.TerminalCount(),
		"geofences": s.engine.Registry().Len(),
	})
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var report model.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if report.Timestamp.IsZero() {
		report.Timestamp = time.Now().UTC()
	}

	if s.dispatch != nil {
		if !s.dispatch.Submit(report) {
			writeError(w, http.StatusServiceUnavailable, "ingest queue full")
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"status":    "accepted",
			"device_id": report.DeviceID,
		})
		return
	}

	result, err := s.engine.Ingest(r.Context(), report)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidReport) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error("ingest failed", zap.String("device", report.DeviceID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ingest failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTerminals(w http.ResponseWriter, r *http.Request) {
	if s.store != nil {
		devices, err := s.store.Devices(r.Context())
		if err != nil {
			s.log.Error("list devices failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "query failed")
			return
		}
		if devices == nil {
			devices = []string{}
		}
		writeJSON(w, http.StatusOK, devices)
		return
	}

	records := s.engine.AllStates(engine.StateFilter{})
	devices := make([]string, 0, len(records))
	for _, rec := range records {
		devices = append(devices, rec.DeviceID)
	}
	writeJSON(w, http.StatusOK, devices)
}

func (s *Server) handleLatestTerminalData(w http.ResponseWriter, r *http.Request) {
	records := s.engine.AllStates(engine.StateFilter{})
	if records == nil {
		records = []model.TerminalRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// timeframeSince converts a lookback expressed in hours into an absolute
// cutoff.
func timeframeSince(raw string) (time.Time, error) {
	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil || hours <= 0 {
		return time.Time{}, errors.New("timeframe must be a positive number of hours")
	}
	return time.Now().UTC().Add(-time.Duration(hours * float64(time.Hour))), nil
}

func (s *Server) handleTerminalData(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "telemetry history is not enabled")
		return
	}

	terminal := r.URL.Query().Get("terminal")
	timeframe := r.URL.Query().Get("timeframe")
	if terminal == "" || timeframe == "" {
		writeError(w, http.StatusBadRequest, "terminal and timeframe are required")
		return
	}
	since, err := timeframeSince(timeframe)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	rows, total, err := s.store.History(r.Context(), store.HistoryFilter{
		DeviceID: terminal,
		Since:    since,
		Page:     page,
		PerPage:  perPage,
	})
	if err != nil {
		s.log.Error("history query failed", zap.String("terminal", terminal), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if rows == nil {
		rows = []store.TelemetryRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rows":  rows,
		"total": total,
	})
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "telemetry history is not enabled")
		return
	}

	terminal := r.URL.Query().Get("terminal")
	timeframe := r.URL.Query().Get("timeframe")
	if terminal == "" || timeframe == "" {
		writeError(w, http.StatusBadRequest, "terminal and timeframe are required")
		return
	}
	since, err := timeframeSince(timeframe)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	points, err := s.store.Path(r.Context(), terminal, since)
	if err != nil {
		s.log.Error("path query failed", zap.String("terminal", terminal), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if points == nil {
		points = []store.PathPoint{}
	}
	writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleTerminalsByLocation(w http.ResponseWriter, r *http.Request) {
	records := s.engine.AllStates(engine.StateFilter{
		State:    r.URL.Query().Get("state"),
		District: r.URL.Query().Get("district"),
	})
	if records == nil {
		records = []model.TerminalRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	states := s.engine.Boundaries().States()
	if states == nil {
		states = []string{}
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleDistricts(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		writeError(w, http.StatusBadRequest, "state is required")
		return
	}
	districts := s.engine.Boundaries().Districts(state)
	if districts == nil {
		districts = []string{}
	}
	writeJSON(w, http.StatusOK, districts)
}

type geofenceView struct {
	ID       string `json:"id"`
	State    string `json:"state,omitempty"`
	District string `json:"district,omitempty"`
}

func (s *Server) handleListGeofences(w http.ResponseWriter, r *http.Request) {
	fences := s.engine.Registry().List()
	views := make([]geofenceView, 0, len(fences))
	for _, f := range fences {
		views = append(views, geofenceView{
			ID:       f.ID,
			State:    f.Region.State,
			District: f.Region.District,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateGeofence(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State    string `json:"state"`
		District string `json:"district"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.State == "" || req.District == "" {
		writeError(w, http.StatusBadRequest, "state and district are required")
		return
	}

	id, err := s.engine.CreateGeofence(req.State, req.District)
	switch {
	case errors.Is(err, geofence.ErrNotFound):
		writeError(w, http.StatusNotFound, "no such district in the boundary dataset")
	case errors.Is(err, geofence.ErrDuplicate):
		writeError(w, http.StatusConflict, "geofence already exists")
	case err != nil:
		s.log.Error("create geofence failed",
			zap.String("state", req.State),
			zap.String("district", req.District),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, "create failed")
	default:
		writeJSON(w, http.StatusCreated, map[string]string{"id": id})
	}
}

func (s *Server) handleDeleteGeofence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.engine.RemoveGeofence(id)
	switch {
	case errors.Is(err, geofence.ErrNotFound):
		writeError(w, http.StatusNotFound, "no such geofence")
	case err != nil:
		s.log.Error("remove geofence failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "remove failed")
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}
