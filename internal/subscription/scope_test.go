package subscription

import (
	"bytes"
	"context"
	"log"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScope(t *testing.T) *Scope {
	t.Helper()
	s := NewScope(WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	t.Cleanup(s.Close)
	return s
}

func TestEveryRunsJob(t *testing.T) {
	s := newTestScope(t)
	var calls atomic.Int32
	require.NoError(t, s.Every("tick", time.Second, func(ctx context.Context) {
		calls.Add(1)
	}))

	assert.True(t, s.Active("tick"))
	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestEveryValidates(t *testing.T) {
	s := newTestScope(t)
	assert.Error(t, s.Every("nil", time.Second, nil))
	assert.Error(t, s.Every("zero", 0, func(context.Context) {}))
	assert.Empty(t, s.Names())
}

func TestEveryReplacesByName(t *testing.T) {
	s := newTestScope(t)
	noop := func(context.Context) {}
	require.NoError(t, s.Every("poll", time.Minute, noop))
	require.NoError(t, s.Every("poll", time.Minute, noop))
	require.NoError(t, s.Every("tick", time.Minute, noop))

	assert.Equal(t, []string{"poll", "tick"}, s.Names())
	assert.Len(t, s.cron.Entries(), 2)
}

func TestCancelRemovesJob(t *testing.T) {
	s := newTestScope(t)
	require.NoError(t, s.Every("poll", time.Minute, func(context.Context) {}))
	s.Cancel("poll")
	s.Cancel("missing")

	assert.False(t, s.Active("poll"))
	assert.Empty(t, s.cron.Entries())
}

func TestCloseStopsJobsAndCancelsContext(t *testing.T) {
	s := NewScope(WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	var calls atomic.Int32
	require.NoError(t, s.Every("tick", time.Second, func(ctx context.Context) {
		calls.Add(1)
	}))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	s.Close()
	s.Close()
	after := calls.Load()

	assert.True(t, s.Closed())
	assert.Empty(t, s.Names())
	assert.ErrorIs(t, s.Context().Err(), context.Canceled)
	assert.ErrorIs(t, s.Every("late", time.Second, func(context.Context) {}), ErrClosed)

	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, after, calls.Load())
}

func TestCloseWaitsForRunningJob(t *testing.T) {
	s := NewScope(WithLogger(log.New(&bytes.Buffer{}, "", 0)))
	started := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, s.Every("slow", time.Second, func(ctx context.Context) {
		select {
		case started <- struct{}{}:
		default:
			return
		}
		<-ctx.Done()
		finished.Store(true)
	}))

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job never started")
	}
	s.Close()
	assert.True(t, finished.Load())
}
