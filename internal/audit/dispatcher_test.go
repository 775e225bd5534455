package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peskas/gateway/internal/domain"
)

// captureWriter records written events; an optional gate blocks writes until
// released.
type captureWriter struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	gate   chan struct{}
	err    error
}

func (w *captureWriter) Write(_ context.Context, event domain.AuditEvent) error {
	if w.gate != nil {
		<-w.gate
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.events = append(w.events, event)
	return w.err
}

func (w *captureWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.events)
}

func event(kind domain.EventKind) domain.AuditEvent {
	return domain.NewAuditEvent(kind, "partner", "partner-...", "/api/v1/landings", "10.0.0.1")
}

func TestDispatcherDeliversEvents(t *testing.T) {
	t.Parallel()

	w := &captureWriter{}
	d := NewDispatcher(16, w)

	d.Submit(context.Background(), event(domain.EventAuthSuccess))
	d.Submit(context.Background(), event(domain.EventDataAccess))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Equal(t, 2, w.count())
	assert.Equal(t, int64(0), d.Dropped())
}

func TestDispatcherFansOutToAllWriters(t *testing.T) {
	t.Parallel()

	w1 := &captureWriter{}
	w2 := &captureWriter{}
	d := NewDispatcher(16, w1, w2)

	d.Submit(context.Background(), event(domain.EventPermissionCheck))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Equal(t, 1, w1.count())
	assert.Equal(t, 1, w2.count())
}

func TestDispatcherSubmitNeverBlocks(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	w := &captureWriter{gate: gate}
	d := NewDispatcher(1, w)

	// With the writer gated, one event occupies the loop and one the buffer;
	// everything past that must be dropped without blocking the caller.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			d.Submit(context.Background(), event(domain.EventDataAccess))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit blocked on a full buffer")
	}

	close(gate)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Greater(t, d.Dropped(), int64(0))
	assert.Equal(t, int64(50), d.Dropped()+int64(w.count()), "every event is either written or counted as dropped")
}

func TestDispatcherCloseDrainsBuffer(t *testing.T) {
	t.Parallel()

	w := &captureWriter{}
	d := NewDispatcher(64, w)

	for i := 0; i < 20; i++ {
		d.Submit(context.Background(), event(domain.EventDataAccess))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Equal(t, 20, w.count())
}

func TestDispatcherCloseHonorsContext(t *testing.T) {
	t.Parallel()

	gate := make(chan struct{})
	defer close(gate)

	w := &captureWriter{gate: gate}
	d := NewDispatcher(16, w)
	d.Submit(context.Background(), event(domain.EventDataAccess))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := d.Close(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDispatcherSurvivesWriterFailures(t *testing.T) {
	t.Parallel()

	failing := &captureWriter{err: errors.New("backend down")}
	healthy := &captureWriter{}
	d := NewDispatcher(16, failing, healthy)

	d.Submit(context.Background(), event(domain.EventAuthFailure))
	d.Submit(context.Background(), event(domain.EventDataAccess))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))

	assert.Equal(t, 2, healthy.count(), "a failing backend never stops delivery to the others")
}
