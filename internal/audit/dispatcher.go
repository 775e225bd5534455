// Package audit delivers audit events to their configured backends without
// ever blocking the request that produced them. Events flow through a
// bounded channel to a single writer goroutine; on overflow they are dropped
// and counted, never queued against the caller.
package audit

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/peskas/gateway/internal/domain"
)

// Writer persists one audit event. A failed write is logged by the
// dispatcher and never surfaced to request handling.
type Writer interface {
	Write(ctx context.Context, event domain.AuditEvent) error
}

// writeTimeout bounds a single backend write so a stuck sink cannot stall
// the dispatch loop indefinitely.
const writeTimeout = 5 * time.Second

// Dispatcher implements domain.AuditSink over one or more backend writers.
type Dispatcher struct {
	ch      chan domain.AuditEvent
	writers []Writer
	quit    chan struct{}
	done    chan struct{}
	dropped atomic.Int64
}

// NewDispatcher starts the dispatch loop with the given buffer size.
func NewDispatcher(buffer int, writers ...Writer) *Dispatcher {
	d := &Dispatcher{
		ch:      make(chan domain.AuditEvent, buffer),
		writers: writers,
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

// Submit enqueues an event. Never blocks: when the buffer is full the event
// is dropped and counted.
func (d *Dispatcher) Submit(_ context.Context, event domain.AuditEvent) {
	select {
	case d.ch <- event:
	default:
		n := d.dropped.Add(1)
		log.Warn().Int64("dropped_total", n).Str("event_kind", string(event.Kind)).
			Msg("audit: buffer full, event dropped")
	}
}

// Dropped returns the number of events discarded due to buffer overflow.
func (d *Dispatcher) Dropped() int64 { return d.dropped.Load() }

// Close drains buffered events and stops the dispatch loop, waiting at most
// until ctx is done.
func (d *Dispatcher) Close(ctx context.Context) error {
	close(d.quit)
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case event := <-d.ch:
			d.write(event)
		case <-d.quit:
			// Drain whatever is buffered, then stop.
			for {
				select {
				case event := <-d.ch:
					d.write(event)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) write(event domain.AuditEvent) {
	for _, w := range d.writers {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		if err := w.Write(ctx, event); err != nil {
			log.Error().Err(err).Str("event_kind", string(event.Kind)).
				Msg("audit: backend write failed")
		}
		cancel()
	}
}
