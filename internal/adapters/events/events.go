// Package events records capsule lifecycle events to the ClickHouse event log
// Recording is best effort: failures are logged and never reach the caller
package events

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"timecapsule/internal/platform/logger"
	"timecapsule/internal/platform/store"
)

// Kind names a lifecycle event
type Kind string

// Event kinds
const (
	KindCreated       Kind = "created"
	KindUnlocked      Kind = "unlocked"
	KindMediaAppended Kind = "media_appended"
	KindMediaRejected Kind = "media_rejected"
)

// Event is one row in capsule_events
type Event struct {
	At        time.Time
	Kind      Kind
	CapsuleID string
	OwnerID   string
	MediaKind string
	Count     int
	Reason    string
	// Source is "api" for request driven writes and "sweeper" for the background unlocker
	Source string
}

// Sink accepts events
type Sink interface {
	Record(ctx context.Context, evs ...Event)
}

// Writer is a Sink that must be closed to flush what it still holds
type Writer interface {
	Sink
	Close(ctx context.Context) error
}

// Nop drops everything
type Nop struct{}

// Record implements Sink
func (Nop) Record(context.Context, ...Event) {}

// Close implements Writer
func (Nop) Close(context.Context) error { return nil }

// Table is the ClickHouse table events land in
const Table = "capsule_events"

const ddl = `CREATE TABLE IF NOT EXISTS ` + Table + ` (
	at          DateTime64(3, 'UTC'),
	kind        LowCardinality(String),
	capsule_id  UUID,
	owner_id    String,
	media_kind  LowCardinality(String),
	count       UInt32,
	reason      LowCardinality(String),
	source      LowCardinality(String)
) ENGINE = MergeTree
ORDER BY (kind, at, capsule_id)`

const writeTimeout = 2 * time.Second

// ClickHouse writes events through the store seam
type ClickHouse struct {
	ch  store.Clickhouse
	log *logger.Logger
}

// New returns a queued ClickHouse writer, or Nop when ch is nil
func New(ch store.Clickhouse, log *logger.Logger) Writer {
	if ch == nil {
		return Nop{}
	}
	return NewAsync(NewClickHouse(ch, log), DefaultQueue, log)
}

// NewClickHouse builds the sink; log defaults to the root logger
func NewClickHouse(ch store.Clickhouse, log *logger.Logger) *ClickHouse {
	if log == nil {
		log = logger.Named("events")
	}
	return &ClickHouse{ch: ch, log: log}
}

// Migrate creates the events table when missing
func (c *ClickHouse) Migrate(ctx context.Context) error {
	return c.ch.Exec(ctx, ddl)
}

// Record inserts evs as one batch
// the write outlives request cancellation but is bounded by its own timeout
func (c *ClickHouse) Record(ctx context.Context, evs ...Event) {
	if len(evs) == 0 {
		return
	}
	rows := make([][]any, 0, len(evs))
	for _, e := range evs {
		at := e.At
		if at.IsZero() {
			at = time.Now()
		}
		rows = append(rows, []any{
			at.UTC(), string(e.Kind), e.CapsuleID, e.OwnerID,
			e.MediaKind, uint32(max(e.Count, 0)), e.Reason, e.Source,
		})
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	if err := c.ch.Insert(wctx, Table, rows); err != nil {
		c.log.Warn().Err(err).Int("events", len(rows)).Str("table", Table).Msg("event write failed")
	}
}

// DefaultQueue is the number of pending Record calls an Async holds
const DefaultQueue = 1024

// maxBatch caps how many events one drained insert carries
const maxBatch = 500

// Async hands events to a single writer goroutine so Record never waits on ClickHouse
// When the queue is full new events are dropped and counted
type Async struct {
	next  Sink
	queue chan []Event
	done  chan struct{}
	log   *logger.Logger

	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

// NewAsync starts the writer goroutine over next; size <= 0 uses DefaultQueue
func NewAsync(next Sink, size int, log *logger.Logger) *Async {
	if size <= 0 {
		size = DefaultQueue
	}
	if log == nil {
		log = logger.Named("events")
	}
	a := &Async{
		next:  next,
		queue: make(chan []Event, size),
		done:  make(chan struct{}),
		log:   log,
	}
	go a.drain()
	return a
}

// Record implements Sink; it never blocks
func (a *Async) Record(_ context.Context, evs ...Event) {
	if len(evs) == 0 {
		return
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		a.drop(len(evs))
		return
	}
	select {
	case a.queue <- slices.Clone(evs):
	default:
		a.drop(len(evs))
	}
}

func (a *Async) drop(n int) {
	total := a.dropped.Add(uint64(n))
	a.log.Warn().Int("events", n).Uint64("dropped_total", total).Msg("event queue full; dropping")
}

// Dropped reports how many events were discarded
func (a *Async) Dropped() uint64 { return a.dropped.Load() }

// drain coalesces whatever is already queued into one insert per round
func (a *Async) drain() {
	defer close(a.done)
	for evs := range a.queue {
		batch := evs
	fill:
		for len(batch) < maxBatch {
			select {
			case more, ok := <-a.queue:
				if !ok {
					break fill
				}
				batch = append(batch, more...)
			default:
				break fill
			}
		}
		a.next.Record(context.Background(), batch...)
	}
}

// Close stops accepting events and waits until the queue is written or ctx ends
func (a *Async) Close(ctx context.Context) error {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.queue)
	}
	a.mu.Unlock()

	select {
	case <-a.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
