package publish

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/vsatlink/termtrack/internal/metrics"
	"github.com/vsatlink/termtrack/internal/model"
	"github.com/vsatlink/termtrack/internal/resilience"
	"github.com/vsatlink/termtrack/internal/store"
)

// DefaultSinkQueueDepth bounds the number of pending store writes.
const DefaultSinkQueueDepth = 1024

// SinkOptions tunes the store sink.
type SinkOptions struct {
	// QueueDepth is the pending-write buffer size. Defaults to
	// DefaultSinkQueueDepth.
	QueueDepth int

	// Retry overrides the write retry policy. Zero value uses
	// resilience.DefaultRetryConfig.
	Retry resilience.RetryConfig
}

type sinkOp struct {
	row    *store.TelemetryRow
	status *StatusChange
}

// StoreSink persists engine output to the telemetry store. Writes are queued
// and performed by a background worker so the engine's publish call returns
// immediately; transient store errors are retried with backoff.
type StoreSink struct {
	st    store.Store
	queue chan sinkOp
	retry resilience.RetryConfig
	wg    sync.WaitGroup
	log   *zap.Logger
}

// NewStoreSink starts the sink worker. ctx cancellation stops retry sleeps;
// call Close to drain the queue and stop the worker.
func NewStoreSink(ctx context.Context, st store.Store, opts SinkOptions) *StoreSink {
	depth := opts.QueueDepth
	if depth <= 0 {
		depth = DefaultSinkQueueDepth
	}
	retry := opts.Retry
	if retry.MaxAttempts == 0 && retry.ShouldRetry == nil {
		retry = resilience.DefaultRetryConfig()
	}
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("store", "telemetry write")
	}

	s := &StoreSink{
		st:    st,
		queue: make(chan sinkOp, depth),
		retry: retry,
		log:   zap.L().Named("sink"),
	}
	s.wg.Add(1)
	go s.run(ctx)
	return s
}

// Close drains pending writes and stops the worker.
func (s *StoreSink) Close() {
	close(s.queue)
	s.wg.Wait()
}

// PublishTransition is a no-op: transitions reach consumers through the bus,
// the store keeps positions and status only.
func (s *StoreSink) PublishTransition(model.TransitionEvent) {}

func (s *StoreSink) PublishPosition(rec model.TerminalRecord) {
	s.enqueue(sinkOp{row: &store.TelemetryRow{
		Timestamp: rec.LastTimestamp,
		SAI:       rec.SAI,
		DeviceID:  rec.DeviceID,
		Latitude:  rec.LastPoint.Lat,
		Longitude: rec.LastPoint.Lon,
		District:  rec.Region.District,
		State:     rec.Region.State,
		Status:    rec.Status,
	}})
}

func (s *StoreSink) PublishStatus(deviceID string, status model.TransmissionStatus, ts time.Time) {
	s.enqueue(sinkOp{status: &StatusChange{
		DeviceID:  deviceID,
		Status:    status,
		Timestamp: ts,
	}})
}

func (s *StoreSink) enqueue(op sinkOp) {
	select {
	case s.queue <- op:
	default:
		metrics.PublishDropped.WithLabelValues("store").Inc()
	}
}

func (s *StoreSink) run(ctx context.Context) {
	defer s.wg.Done()
	for op := range s.queue {
		var err error
		switch {
		case op.row != nil:
			err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
				return s.st.InsertReport(ctx, *op.row)
			})
		case op.status != nil:
			err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
				return s.st.UpdateStatus(ctx, op.status.DeviceID, op.status.Status, op.status.Timestamp)
			})
		}
		if err != nil {
			metrics.StoreWriteFailures.Inc()
			s.log.Warn("telemetry write failed", zap.Error(err))
		}
	}
}
