package engine

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/vsatlink/termtrack/internal/metrics"
	"github.com/vsatlink/termtrack/internal/model"
)

// Dispatcher feeds reports to the engine asynchronously through hash-sharded
// worker goroutines. Reports for the same device always hash to the same
// shard, so queue order per device is ingestion order; distinct devices spread
// across shards and process in parallel.
type Dispatcher struct {
	engine *Engine
	shards []chan model.Report
	wg     sync.WaitGroup
	log    *zap.Logger
}

// DispatcherOptions tunes the dispatcher.
type DispatcherOptions struct {
	// Shards is the worker count. 0 selects 8.
	Shards int
	// QueueDepth is the per-shard buffer. 0 selects 256.
	QueueDepth int
}

// NewDispatcher starts the shard workers. Stop with Drain after the feeding
// side is done, or cancel ctx to abandon queued reports.
func NewDispatcher(ctx context.Context, e *Engine, opts DispatcherOptions) *Dispatcher {
	if opts.Shards <= 0 {
		opts.Shards = 8
	}
	if opts.QueueDepth <= 0 {
		opts.QueueDepth = 256
	}

	d := &Dispatcher{
		engine: e,
		shards: make([]chan model.Report, opts.Shards),
		log:    zap.L().With(zap.String("component", "engine.dispatch")),
	}
	for i := range d.shards {
		d.shards[i] = make(chan model.Report, opts.QueueDepth)
		d.wg.Add(1)
		go d.run(ctx, i)
	}
	return d
}

// Submit enqueues a report without blocking. Returns false when the shard
// queue is full; the caller decides whether to retry, drop, or backpressure.
func (d *Dispatcher) Submit(report model.Report) bool {
	shard := d.shardFor(report.DeviceID)
	select {
	case d.shards[shard] <- report:
		metrics.DispatchQueueDepth.WithLabelValues(strconv.Itoa(shard)).Set(float64(len(d.shards[shard])))
		return true
	default:
		return false
	}
}

// Drain closes the shard queues and waits for queued reports to finish.
func (d *Dispatcher) Drain() {
	for _, ch := range d.shards {
		close(ch)
	}
	d.wg.Wait()
}

func (d *Dispatcher) run(ctx context.Context, shard int) {
	defer d.wg.Done()
	label := strconv.Itoa(shard)
	for {
		select {
		case report, ok := <-d.shards[shard]:
			if !ok {
				return
			}
			metrics.DispatchQueueDepth.WithLabelValues(label).Set(float64(len(d.shards[shard])))
			if _, err := d.engine.Ingest(ctx, report); err != nil {
				// Bad input from one device must not stop the shard.
				d.log.Warn("report rejected",
					zap.String("device_id", report.DeviceID),
					zap.Error(err),
				)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) shardFor(deviceID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(deviceID))
	return int(h.Sum32() % uint32(len(d.shards)))
}
