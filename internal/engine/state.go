package engine

import (
	"hash/fnv"
	"sync"

	"github.com/vsatlink/termtrack/internal/model"
)

// stateStore maps device ids to terminal records behind striped locks. The
// stripe lock for a device is held across the whole
// resolve/detect/update/publish sequence of an ingest, serializing reports for
// the same device while letting reports for devices on other stripes proceed
// concurrently.
type stateStore struct {
	stripes []stripe
}

type stripe struct {
	mu      sync.Mutex
	records map[string]*model.TerminalRecord
}

const defaultStripes = 32

func newStateStore(stripes int) *stateStore {
	if stripes <= 0 {
		stripes = defaultStripes
	}
	s := &stateStore{stripes: make([]stripe, stripes)}
	for i := range s.stripes {
		s.stripes[i].records = make(map[string]*model.TerminalRecord)
	}
	return s
}

func (s *stateStore) stripeFor(deviceID string) *stripe {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	return &s.stripes[h.Sum32()%uint32(len(s.stripes))]
}

// withDevice runs fn with the device's stripe locked. fn receives the current
// record, or nil when the device has never reported; it returns the record to
// store back (must not be nil).
func (s *stateStore) withDevice(deviceID string, fn func(rec *model.TerminalRecord) *model.TerminalRecord) {
	st := s.stripeFor(deviceID)
	st.mu.Lock()
	defer st.mu.Unlock()
	st.records[deviceID] = fn(st.records[deviceID])
}

// get returns a copy of a device's record.
func (s *stateStore) get(deviceID string) (model.TerminalRecord, bool) {
	st := s.stripeFor(deviceID)
	st.mu.Lock()
	defer st.mu.Unlock()
	rec, ok := st.records[deviceID]
	if !ok {
		return model.TerminalRecord{}, false
	}
	return copyRecord(rec), true
}

// snapshot returns copies of all records for which keep returns true. Stripes
// are visited one at a time, so the result is consistent per stripe, not
// globally; good enough for the read-only query surface.
func (s *stateStore) snapshot(keep func(*model.TerminalRecord) bool) []model.TerminalRecord {
	var out []model.TerminalRecord
	for i := range s.stripes {
		st := &s.stripes[i]
		st.mu.Lock()
		for _, rec := range st.records {
			if keep == nil || keep(rec) {
				out = append(out, copyRecord(rec))
			}
		}
		st.mu.Unlock()
	}
	return out
}

// sweep visits every record under its stripe lock, letting fn mutate in place.
func (s *stateStore) sweep(fn func(rec *model.TerminalRecord)) {
	for i := range s.stripes {
		st := &s.stripes[i]
		st.mu.Lock()
		for _, rec := range st.records {
			fn(rec)
		}
		st.mu.Unlock()
	}
}

func (s *stateStore) len() int {
	n := 0
	for i := range s.stripes {
		st := &s.stripes[i]
		st.mu.Lock()
		n += len(st.records)
		st.mu.Unlock()
	}
	return n
}

func copyRecord(rec *model.TerminalRecord) model.TerminalRecord {
	out := *rec
	out.Geofences = append([]string(nil), rec.Geofences...)
	return out
}
