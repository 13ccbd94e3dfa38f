package subscription

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

type options struct {
	Logger   *log.Logger
	Cron     *cron.Cron
	Location *time.Location
}

// Option applies configuration to a Scope.
type Option func(*options)

func defaultOptions() options {
	return options{Logger: log.Default(), Location: time.UTC}
}

// WithLogger injects a custom logger implementation.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.Logger = l
	}
}

// WithCron supplies a preconfigured cron scheduler instance. The scope takes ownership
// and stops it on Close.
func WithCron(c *cron.Cron) Option {
	return func(o *options) {
		o.Cron = c
	}
}

// WithLocation sets the scheduler timezone location.
func WithLocation(loc *time.Location) Option {
	return func(o *options) {
		o.Location = loc
	}
}
