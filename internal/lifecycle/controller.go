// Package lifecycle drives a ticket through its status workflow on behalf of the current
// user. It offers only the moves the workflow table allows, sends at most one status change
// per ticket at a time, and keeps the work timer display in step with the backend.
//
// The backend stays authoritative: the controller never mutates a ticket locally, it
// re-fetches after every request.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tickora-io/tickora/internal/apierrors"
	"github.com/tickora-io/tickora/internal/metrics"
	"github.com/tickora-io/tickora/internal/subscription"
	"github.com/tickora-io/tickora/internal/types"
)

// ErrBusy is returned when a status change for the same ticket is already in flight.
var ErrBusy = errors.New("status change already in progress")

const timerJob = "timer"

// Controller opens ticket views and coordinates status changes across them.
type Controller struct {
	store    Store
	identity Identity
	logger   *log.Logger
	metrics  *metrics.Metrics
	cache    *TicketCache
	activity ActivitySource
	interval time.Duration
	now      func() time.Time
	newScope func() *subscription.Scope

	mu   sync.Mutex
	busy map[int]bool
}

// NewController builds a controller that acts as identity against store.
func NewController(store Store, identity Identity, opts ...Option) *Controller {
	options := defaultOptions()
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = log.Default()
	}
	if options.NewScope == nil {
		logger := options.Logger
		options.NewScope = func() *subscription.Scope {
			return subscription.NewScope(subscription.WithLogger(logger))
		}
	}

	return &Controller{
		store:    store,
		identity: identity,
		logger:   options.Logger,
		metrics:  options.Metrics,
		cache:    options.Cache,
		activity: options.Activity,
		interval: options.TickInterval,
		now:      options.Now,
		newScope: options.NewScope,
		busy:     make(map[int]bool),
	}
}

// Open fetches the ticket, loads its timer and activity, and starts the timer ticking.
// The caller must Close the view.
func (c *Controller) Open(ctx context.Context, ticketID int) (*View, error) {
	ticket, err := c.fetch(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	v := newView(c, ticket)
	v.loadTimer(ctx)
	v.loadActivity(ctx)

	if err := v.scope.Every(timerJob, c.interval, func(context.Context) {
		v.display.Tick()
	}); err != nil {
		v.Close()
		return nil, fmt.Errorf("start timer: %w", err)
	}
	return v, nil
}

// Ticket returns the ticket from the cache when fresh, fetching it otherwise.
func (c *Controller) Ticket(ctx context.Context, ticketID int) (*types.Ticket, error) {
	if c.cache != nil {
		if t, ok := c.cache.Get(ticketID); ok {
			return &t, nil
		}
	}
	return c.fetch(ctx, ticketID)
}

// Busy reports whether a status change for ticketID is in flight.
func (c *Controller) Busy(ticketID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busy[ticketID]
}

// Actor returns the acting user, or ErrNotAuthenticated when nobody is logged in.
func (c *Controller) Actor() (*types.User, error) {
	user := c.currentUser()
	if user == nil {
		return nil, apierrors.ErrNotAuthenticated
	}
	return user, nil
}

func (c *Controller) currentUser() *types.User {
	if c.identity == nil {
		return nil
	}
	return c.identity.CurrentUser()
}

func (c *Controller) fetch(ctx context.Context, ticketID int) (*types.Ticket, error) {
	ticket, err := c.store.Ticket(ctx, ticketID)
	if err != nil {
		if c.cache != nil && apierrors.IsNotFound(err) {
			c.cache.Delete(ticketID)
		}
		return nil, err
	}
	c.remember(ticket)
	return ticket, nil
}

func (c *Controller) remember(ticket *types.Ticket) {
	if c.cache != nil && ticket != nil {
		c.cache.Set(ticket.ID, *ticket, 0)
	}
}

// acquire marks ticketID busy. It returns false when another change holds it.
func (c *Controller) acquire(ticketID int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy[ticketID] {
		return false
	}
	c.busy[ticketID] = true
	return true
}

func (c *Controller) release(ticketID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.busy, ticketID)
}
