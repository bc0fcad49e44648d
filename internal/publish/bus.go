// Package publish fans engine output out to live subscribers and the
// telemetry store. Every publisher entry point is non-blocking: the engine
// calls them while holding per-device locks, so a slow consumer must never
// stall ingest.
package publish

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vsatlink/termtrack/internal/metrics"
	"github.com/vsatlink/termtrack/internal/model"
)

// EventType tags the payload carried by an Event.
type EventType string

const (
	EventTransition EventType = "transition"
	EventPosition   EventType = "position"
	EventStatus     EventType = "status"
)

// StatusChange records a transmission status flip for one terminal.
type StatusChange struct {
	DeviceID  string                   `json:"device_id"`
	Status    model.TransmissionStatus `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
}

// Event is the envelope delivered to bus subscribers. Exactly one payload
// field is set, matching Type.
type Event struct {
	Type       EventType              `json:"type"`
	Transition *model.TransitionEvent `json:"transition,omitempty"`
	Position   *model.TerminalRecord  `json:"position,omitempty"`
	Status     *StatusChange          `json:"status,omitempty"`
}

// DefaultSubscriberBuffer is the queue depth for subscribers that do not ask
// for a specific one.
const DefaultSubscriberBuffer = 64

type subscriber struct {
	name string
	ch   chan Event
}

// Bus is an in-process fan-out of engine events. Each subscriber gets its own
// bounded queue; when a queue is full the oldest event is evicted to make
// room, so laggards see gaps rather than backpressure.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	log    *zap.Logger
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		subs: make(map[int]*subscriber),
		log:  zap.L().Named("publish"),
	}
}

// Subscribe registers a consumer. name labels drop metrics, buffer <= 0 uses
// DefaultSubscriberBuffer. The returned cancel func unregisters the consumer
// and closes its channel.
func (b *Bus) Subscribe(name string, buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = DefaultSubscriberBuffer
	}
	sub := &subscriber{name: name, ch: make(chan Event, buffer)}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
	return sub.ch, cancel
}

// SubscriberCount reports the number of live subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

func (b *Bus) PublishTransition(ev model.TransitionEvent) {
	b.broadcast(Event{Type: EventTransition, Transition: &ev})
}

func (b *Bus) PublishPosition(rec model.TerminalRecord) {
	b.broadcast(Event{Type: EventPosition, Position: &rec})
}

func (b *Bus) PublishStatus(deviceID string, status model.TransmissionStatus, ts time.Time) {
	b.broadcast(Event{Type: EventStatus, Status: &StatusChange{
		DeviceID:  deviceID,
		Status:    status,
		Timestamp: ts,
	}})
}

func (b *Bus) broadcast(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, sub := range b.subs {
		select {
		case sub.ch <- ev:
			continue
		default:
		}
		// Queue full: evict the oldest event, then retry once. The retry can
		// still lose the race against a concurrent reader, in which case the
		// new event is dropped instead.
		select {
		case <-sub.ch:
			metrics.PublishDropped.WithLabelValues(sub.name).Inc()
		default:
		}
		select {
		case sub.ch <- ev:
		default:
			metrics.PublishDropped.WithLabelValues(sub.name).Inc()
		}
	}
}
