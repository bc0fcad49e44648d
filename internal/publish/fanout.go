package publish

import (
	"time"

	"github.com/vsatlink/termtrack/internal/engine"
	"github.com/vsatlink/termtrack/internal/model"
)

// Fanout delivers each publish call to every wrapped publisher in order.
type Fanout []engine.Publisher

func (f Fanout) PublishTransition(ev model.TransitionEvent) {
	for _, p := range f {
		p.PublishTransition(ev)
	}
}

func (f Fanout) PublishPosition(rec model.TerminalRecord) {
	for _, p := range f {
		p.PublishPosition(rec)
	}
}

func (f Fanout) PublishStatus(deviceID string, status model.TransmissionStatus, ts time.Time) {
	for _, p := range f {
		p.PublishStatus(deviceID, status, ts)
	}
}
