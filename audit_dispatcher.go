package portalauth

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// auditDispatcher decouples sink latency from the sign-in path: events
// pass through a buffered queue to a single consumer goroutine. The
// portal's error vocabulary is stamped onto events here, so sinks see
// stable codes instead of raw Go error strings.
type auditDispatcher struct {
	sink       AuditSink
	log        *zap.Logger
	queue      chan AuditEvent
	quit       chan struct{}
	wg         sync.WaitGroup
	dropIfFull bool
	dropped    atomic.Uint64
	dropOnce   sync.Once
	closed     atomic.Bool
	closeOnce  sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink, log *zap.Logger) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	if log == nil {
		log = zap.NewNop()
	}

	d := &auditDispatcher{
		sink:       sink,
		log:        log,
		queue:      make(chan AuditEvent, cfg.BufferSize),
		quit:       make(chan struct{}),
		dropIfFull: cfg.DropIfFull,
	}

	d.wg.Add(1)
	go d.consume()

	return d
}

func (d *auditDispatcher) consume() {
	defer d.wg.Done()

	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.quit:
			d.drain()
			return
		}
	}
}

// drain flushes whatever was queued before Close.
func (d *auditDispatcher) drain() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		default:
			return
		}
	}
}

// Emit stamps the code for err (if any) onto event and queues it. Under
// DropIfFull a full queue discards the event and bumps the dropped
// counter instead of stalling the caller; the first drop is logged.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent, err error) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		case <-d.quit:
		default:
			d.dropped.Add(1)
			d.dropOnce.Do(func() {
				d.log.Warn("audit queue full, dropping events",
					zap.String("event_type", event.EventType))
			})
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.quit:
	}
}

// Close stops the dispatcher after draining queued events. Idempotent.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		close(d.quit)
		d.wg.Wait()
	})
}

// Dropped returns the number of events discarded under DropIfFull.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
