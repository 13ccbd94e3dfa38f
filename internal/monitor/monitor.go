// Package monitor polls slowly changing HR data (team availability, leave requests) on a
// fixed interval and reports what changed between polls.
package monitor

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/tickora-io/tickora/internal/metrics"
	"github.com/tickora-io/tickora/internal/subscription"
)

// ErrNotPolled is returned by Latest before the first poll finished.
var ErrNotPolled = errors.New("monitor has not polled yet")

// FetchFunc loads the current value of a monitored resource.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// UpdateFunc receives the previous and the new value after a successful poll. prev is the
// zero value on the first poll.
type UpdateFunc[T any] func(prev, next T)

type options struct {
	Logger   *log.Logger
	Metrics  *metrics.Metrics
	Interval time.Duration
	Scope    *subscription.Scope
}

// Option applies configuration to a Monitor.
type Option func(*options)

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithMetrics counts polls and their failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.Metrics = m
	}
}

// WithInterval overrides the polling interval.
func WithInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.Interval = d
		}
	}
}

// WithScope registers the poller on an existing scope instead of a private one. The
// monitor then does not own the scope and Close only removes its own job.
func WithScope(s *subscription.Scope) Option {
	return func(o *options) {
		o.Scope = s
	}
}

// Monitor polls one resource.
type Monitor[T any] struct {
	name      string
	fetch     FetchFunc[T]
	logger    *log.Logger
	metrics   *metrics.Metrics
	interval  time.Duration
	scope     *subscription.Scope
	ownsScope bool

	// running is held by a scheduled poll; Close takes it to wait one out.
	running sync.Mutex
	stopped bool
	stopCtx context.Context
	stop    context.CancelFunc

	mu       sync.RWMutex
	latest   T
	polled   bool
	lastErr  error
	updated  time.Time
	onUpdate []UpdateFunc[T]
}

// New builds a monitor named name that calls fetch every interval once started.
func New[T any](name string, interval time.Duration, fetch FetchFunc[T], opts ...Option) *Monitor[T] {
	options := options{Logger: log.Default(), Interval: interval}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = log.Default()
	}

	m := &Monitor[T]{
		name:     name,
		fetch:    fetch,
		logger:   options.Logger,
		metrics:  options.Metrics,
		interval: options.Interval,
		scope:    options.Scope,
	}
	if m.scope == nil {
		m.scope = subscription.NewScope(subscription.WithLogger(options.Logger))
		m.ownsScope = true
	}
	m.stopCtx, m.stop = context.WithCancel(context.Background())
	return m
}

// Name returns the monitor's name, used as its job and metrics label.
func (m *Monitor[T]) Name() string {
	return m.name
}

// Interval returns the polling interval.
func (m *Monitor[T]) Interval() time.Duration {
	return m.interval
}

// OnUpdate registers fn to run after every successful poll. Register before Start.
func (m *Monitor[T]) OnUpdate(fn UpdateFunc[T]) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onUpdate = append(m.onUpdate, fn)
}

// Start polls once synchronously, then keeps polling every interval until Close. The
// first poll's error is returned but does not stop the schedule.
func (m *Monitor[T]) Start(ctx context.Context) error {
	first := m.Poll(ctx)
	if err := m.scope.Every(m.name, m.interval, m.scheduled); err != nil {
		return err
	}
	return first
}

// scheduled is the job run by the scope. Its context is also cancelled by Close.
func (m *Monitor[T]) scheduled(ctx context.Context) {
	m.running.Lock()
	defer m.running.Unlock()
	if m.stopped {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer context.AfterFunc(m.stopCtx, cancel)()
	_ = m.Poll(ctx)
}

// Poll fetches once and notifies listeners on success. Failures keep the previous value.
func (m *Monitor[T]) Poll(ctx context.Context) error {
	next, err := m.fetch(ctx)
	m.metrics.Poll(m.name, err)
	if err != nil {
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		if ctx.Err() == nil {
			m.logger.Printf("%s poll failed: %v", m.name, err)
		}
		return err
	}

	m.mu.Lock()
	prev := m.latest
	m.latest = next
	m.polled = true
	m.lastErr = nil
	m.updated = time.Now()
	listeners := make([]UpdateFunc[T], len(m.onUpdate))
	copy(listeners, m.onUpdate)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(prev, next)
	}
	return nil
}

// Latest returns the last successfully polled value and when it was fetched. The error
// is the most recent poll failure, if the last poll failed.
func (m *Monitor[T]) Latest() (T, time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.polled {
		var zero T
		if m.lastErr != nil {
			return zero, time.Time{}, m.lastErr
		}
		return zero, time.Time{}, ErrNotPolled
	}
	return m.latest, m.updated, m.lastErr
}

// Close stops polling, cancels a scheduled poll in flight and waits for it to return.
// On a shared scope the other jobs keep running. It is safe to call more than once.
func (m *Monitor[T]) Close() {
	m.stop()
	if m.ownsScope {
		m.scope.Close()
	} else {
		m.scope.Cancel(m.name)
	}
	m.running.Lock()
	m.stopped = true
	m.running.Unlock()
}
