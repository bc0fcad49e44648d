package model

import "time"

// TransmissionStatus is the transmit-control state of a terminal.
type TransmissionStatus string

const (
	// StatusActive means the terminal is outside every geofence and may transmit.
	StatusActive TransmissionStatus = "active"
	// StatusDisabled means the terminal is inside at least one geofence and
	// transmission is suppressed.
	StatusDisabled TransmissionStatus = "disabled"
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Region identifies the administrative area containing a point. District and
// State are "Unknown" when no boundary polygon contains the point.
type Region struct {
	State    string `json:"state"`
	District string `json:"district"`
}

// UnknownRegion is returned when boundary resolution finds no containing polygon.
var UnknownRegion = Region{State: "Unknown", District: "Unknown"}

// IsUnknown reports whether the region is the no-containment sentinel.
func (r Region) IsUnknown() bool {
	return r == UnknownRegion
}

// Report is a single telemetry position report from a terminal.
type Report struct {
	DeviceID  string    `json:"device_id"`
	SAI       int       `json:"sai,omitempty"`
	Lat       float64   `json:"latitude"`
	Lon       float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// Point returns the report coordinate.
func (r Report) Point() Point {
	return Point{Lat: r.Lat, Lon: r.Lon}
}

// TerminalRecord is the engine's current view of one terminal. Records are
// created on the first report for a device and updated on every subsequent
// report; they are never implicitly deleted.
type TerminalRecord struct {
	DeviceID      string             `json:"device_id"`
	SAI           int                `json:"sai,omitempty"`
	LastPoint     Point              `json:"last_point"`
	LastTimestamp time.Time          `json:"last_timestamp"`
	Region        Region             `json:"region"`
	Geofences     []string           `json:"geofences,omitempty"`
	Status        TransmissionStatus `json:"status"`
}

// InGeofence reports whether the record currently lists the given geofence id.
func (t *TerminalRecord) InGeofence(id string) bool {
	for _, g := range t.Geofences {
		if g == id {
			return true
		}
	}
	return false
}

// TransitionKind distinguishes geofence enter from exit events.
type TransitionKind string

const (
	TransitionEnter TransitionKind = "enter"
	TransitionExit  TransitionKind = "exit"
)

// TransitionEvent is an edge-triggered geofence boundary crossing for one
// terminal/geofence pair. Events are ephemeral: produced once per transition
// and handed to the publisher, never stored by the engine.
type TransitionEvent struct {
	ID         string         `json:"id"`
	DeviceID   string         `json:"device_id"`
	GeofenceID string         `json:"geofence_id"`
	Kind       TransitionKind `json:"kind"`
	Timestamp  time.Time      `json:"timestamp"`
}

// IngestResult summarizes the state change produced by one report.
type IngestResult struct {
	DeviceID      string             `json:"device_id"`
	Region        Region             `json:"region"`
	Geofences     []string           `json:"geofences,omitempty"`
	Entered       []string           `json:"entered,omitempty"`
	Exited        []string           `json:"exited,omitempty"`
	Status        TransmissionStatus `json:"status"`
	StatusChanged bool               `json:"status_changed"`
}
