// Package subscription runs periodic jobs that belong to a view. A Scope owns every job
// registered on it; closing the scope stops them all and waits for running ones, so no
// poller outlives the view that started it.
package subscription

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrClosed is returned when registering on a closed scope.
var ErrClosed = errors.New("subscription scope closed")

// Job is a periodic callback. ctx is cancelled when the scope closes.
type Job func(ctx context.Context)

// Scope is a set of periodic jobs with a shared lifetime.
type Scope struct {
	cron    *cron.Cron
	logger  *log.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	mu      sync.Mutex
	entries map[string]cron.EntryID
	closed  bool

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewScope creates an empty scope. Jobs start running as soon as they are registered.
func NewScope(opts ...Option) *Scope {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = log.Default()
	}
	location := options.Location
	if location == nil {
		location = time.UTC
	}

	cronEngine := options.Cron
	if cronEngine == nil {
		cronLogger := cron.PrintfLogger(options.Logger)
		cronEngine = cron.New(
			cron.WithLocation(location),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		)
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Scope{
		cron:    cronEngine,
		logger:  options.Logger,
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[string]cron.EntryID),
	}
}

// Every registers job under name to run every interval (rounded up to whole seconds).
// Registering an existing name replaces the previous job.
func (s *Scope) Every(name string, interval time.Duration, job Job) error {
	if job == nil {
		return fmt.Errorf("subscription %q: nil job", name)
	}
	if interval <= 0 {
		return fmt.Errorf("subscription %q: interval must be positive, got %s", name, interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
	}
	ctx := s.ctx
	id := s.cron.Schedule(cron.Every(interval), cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		job(ctx)
	}))
	s.entries[name] = id
	s.startOnce.Do(s.cron.Start)
	return nil
}

// Cancel removes the job registered under name. It is a no-op for unknown names.
func (s *Scope) Cancel(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.entries[name]; ok {
		s.cron.Remove(id)
		delete(s.entries, name)
	}
}

// Active reports whether a job is registered under name.
func (s *Scope) Active(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[name]
	return ok
}

// Names lists the registered jobs, sorted.
func (s *Scope) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Context is cancelled when the scope closes.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close cancels every job and blocks until running invocations return. It is safe to
// call more than once.
func (s *Scope) Close() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		for name, id := range s.entries {
			s.cron.Remove(id)
			delete(s.entries, name)
		}
		s.mu.Unlock()

		s.cancel()
		<-s.cron.Stop().Done()
	})
}
