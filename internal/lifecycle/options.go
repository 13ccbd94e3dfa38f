package lifecycle

import (
	"log"
	"time"

	"github.com/tickora-io/tickora/internal/cache"
	"github.com/tickora-io/tickora/internal/metrics"
	"github.com/tickora-io/tickora/internal/subscription"
	"github.com/tickora-io/tickora/internal/types"
)

// TicketCache holds recently fetched tickets keyed by id.
type TicketCache = cache.LocalCache[int, types.Ticket]

type options struct {
	Logger       *log.Logger
	Metrics      *metrics.Metrics
	Cache        *TicketCache
	Activity     ActivitySource
	TickInterval time.Duration
	Now          func() time.Time
	NewScope     func() *subscription.Scope
}

// Option applies configuration to a Controller.
type Option func(*options)

func defaultOptions() options {
	return options{Logger: log.Default(), TickInterval: time.Second, Now: time.Now}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithMetrics records status change outcomes and timer visibility.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.Metrics = m
	}
}

// WithCache serves Controller.Ticket from c and keeps it current after every fetch.
func WithCache(c *TicketCache) Option {
	return func(o *options) {
		o.Cache = c
	}
}

// WithActivity enables the activity log on views, refreshed after every status change.
func WithActivity(src ActivitySource) Option {
	return func(o *options) {
		o.Activity = src
	}
}

// WithTickInterval sets how often a visible timer is refreshed. The shown time follows the
// clock, so a longer interval only makes it update less often. Values below a second are
// rounded up by the scheduler.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.TickInterval = d
		}
	}
}

// WithClock sets the time source timer displays measure elapsed time against.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithScopeFactory overrides how each view's job scope is built.
func WithScopeFactory(fn func() *subscription.Scope) Option {
	return func(o *options) {
		o.NewScope = fn
	}
}

type requestOptions struct {
	unchecked bool
}

// RequestOption adjusts a single status change request.
type RequestOption func(*requestOptions)

// Unchecked sends the request even when the target is not an allowed next status, leaving
// the decision to the backend. The permission check still applies.
func Unchecked() RequestOption {
	return func(o *requestOptions) {
		o.unchecked = true
	}
}
