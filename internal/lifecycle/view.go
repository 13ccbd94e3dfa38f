package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tickora-io/tickora/internal/apierrors"
	"github.com/tickora-io/tickora/internal/metrics"
	"github.com/tickora-io/tickora/internal/subscription"
	"github.com/tickora-io/tickora/internal/timetracking"
	"github.com/tickora-io/tickora/internal/types"
	"github.com/tickora-io/tickora/internal/workflow"
)

// Actions are the affordances a ticket offers the current user right now.
type Actions struct {
	Next            []workflow.Status
	CanChangeStatus bool
	CanSelfAssign   bool
	CanAssign       bool
	Busy            bool
}

// View is one open ticket: its latest server copy, its timer display and its activity.
type View struct {
	c       *Controller
	id      int
	display *timetracking.Display
	scope   *subscription.Scope

	mu       sync.RWMutex
	ticket   types.Ticket
	project  *types.Project
	activity []types.ActivityLog
	shown    bool
}

func newView(c *Controller, ticket *types.Ticket) *View {
	return &View{
		c:       c,
		id:      ticket.ID,
		display: timetracking.NewDisplay(timetracking.WithClock(c.now)),
		scope:   c.newScope(),
		ticket:  *ticket,
	}
}

// ID returns the ticket's numeric id.
func (v *View) ID() int {
	return v.id
}

// Ticket returns a copy of the latest server state.
func (v *View) Ticket() types.Ticket {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.ticket
}

// Status returns the ticket's current status.
func (v *View) Status() workflow.Status {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return workflow.Status(v.ticket.Status)
}

// Timer returns the timer display state.
func (v *View) Timer() timetracking.Snapshot {
	return v.display.Snapshot()
}

// Activity returns the activity log as last fetched, newest first.
func (v *View) Activity() []types.ActivityLog {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]types.ActivityLog, len(v.activity))
	copy(out, v.activity)
	return out
}

// Actions computes what the current user may do with the ticket.
func (v *View) Actions() Actions {
	actor := v.c.currentUser()
	v.mu.RLock()
	ticket := v.ticket
	project := v.project
	v.mu.RUnlock()

	return Actions{
		Next:            workflow.AllowedNext(workflow.Status(ticket.Status)),
		CanChangeStatus: workflow.CanChangeStatus(actor, &ticket),
		CanSelfAssign:   workflow.CanSelfAssign(actor, &ticket),
		CanAssign:       workflow.CanAssign(actor, &ticket, project),
		Busy:            v.c.Busy(v.id),
	}
}

// RequestStatusChange asks the backend to move the ticket to target.
//
// The move must be an allowed next status (unless Unchecked is given) and the actor must
// be the assignee or hold the admin or manager role; otherwise nothing is sent. While the
// request is in flight any further change for the same ticket fails with ErrBusy. On
// success the ticket is re-fetched, the timer follows the transition's effect and the
// activity log is refreshed. On failure the backend's reason is returned and the ticket
// is re-fetched best-effort.
func (v *View) RequestStatusChange(ctx context.Context, target workflow.Status, opts ...RequestOption) (*types.Ticket, error) {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	actor, err := v.c.Actor()
	if err != nil {
		return nil, err
	}
	ticket := v.Ticket()
	from := workflow.Status(ticket.Status)

	if err := v.check(actor, &ticket, target, ro.unchecked); err != nil {
		v.c.metrics.StatusChange(from.String(), target.String(), metrics.OutcomeBlocked)
		return nil, err
	}

	if !v.c.acquire(v.id) {
		v.c.metrics.StatusChange(from.String(), target.String(), metrics.OutcomeBusy)
		return nil, ErrBusy
	}
	defer v.c.release(v.id)

	updated, err := v.c.store.UpdateStatus(ctx, v.id, target.String())
	if err != nil {
		outcome := metrics.OutcomeFailed
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) {
			outcome = metrics.OutcomeRejected
		}
		v.c.metrics.StatusChange(from.String(), target.String(), outcome)
		v.c.logger.Printf("status change %d %s -> %s failed: %v", v.id, from, target, err)

		if rerr := v.reload(ctx); rerr != nil {
			v.c.logger.Printf("re-fetch ticket %d after failed status change: %v", v.id, rerr)
		}
		return nil, err
	}
	v.c.metrics.StatusChange(from.String(), target.String(), metrics.OutcomeApplied)

	fresh, err := v.c.fetch(ctx, v.id)
	if err != nil {
		v.c.logger.Printf("re-fetch ticket %d after status change: %v", v.id, err)
		fresh = updated
		v.c.remember(fresh)
	}
	v.setTicket(fresh)

	switch workflow.EffectOf(from, target) {
	case workflow.EffectClear:
		v.display.Clear()
		v.syncGauge()
	case workflow.EffectStart:
		v.loadTimer(ctx)
	default:
		if !workflow.IsTracked(workflow.Status(fresh.Status)) {
			v.display.Clear()
			v.syncGauge()
		}
	}
	v.loadActivity(ctx)

	result := v.Ticket()
	return &result, nil
}

func (v *View) check(actor *types.User, ticket *types.Ticket, target workflow.Status, unchecked bool) error {
	if unchecked {
		if !workflow.CanChangeStatus(actor, ticket) {
			return &workflow.PermissionError{
				Action: "change_status",
				Reason: "Only the assigned user or a manager can change the workflow",
			}
		}
		return nil
	}
	return workflow.ValidateTransition(actor, ticket, target)
}

// SelfAssign claims the ticket for the current user.
func (v *View) SelfAssign(ctx context.Context) (*types.Ticket, error) {
	actor, err := v.c.Actor()
	if err != nil {
		return nil, err
	}
	ticket := v.Ticket()
	if err := workflow.ValidateSelfAssign(actor, &ticket); err != nil {
		return nil, err
	}

	if _, err := v.c.store.SelfAssign(ctx, v.id); err != nil {
		v.reloadQuietly(ctx)
		return nil, err
	}
	return v.afterAssign(ctx)
}

// Assign hands the ticket to userID. Closed tickets are refused and managers, admins and
// the creator are allowed without a round trip. Anyone else needs project membership,
// which is checked locally when the project can be fetched; otherwise the backend decides.
func (v *View) Assign(ctx context.Context, userID int) (*types.Ticket, error) {
	actor, err := v.c.Actor()
	if err != nil {
		return nil, err
	}
	ticket := v.Ticket()

	if workflow.Status(ticket.Status) == workflow.StatusClosed {
		return nil, workflow.ValidateAssign(actor, &ticket, nil)
	}
	if !workflow.CanAssign(actor, &ticket, nil) {
		project, err := v.c.store.Project(ctx, ticket.Project)
		if err != nil {
			v.c.logger.Printf("fetch project %d for ticket %d: %v", ticket.Project, v.id, err)
		} else {
			v.mu.Lock()
			v.project = project
			v.mu.Unlock()
			if err := workflow.ValidateAssign(actor, &ticket, project); err != nil {
				return nil, err
			}
		}
	}

	if _, err := v.c.store.Assign(ctx, v.id, userID); err != nil {
		v.reloadQuietly(ctx)
		return nil, err
	}
	return v.afterAssign(ctx)
}

func (v *View) afterAssign(ctx context.Context) (*types.Ticket, error) {
	if err := v.reload(ctx); err != nil {
		return nil, fmt.Errorf("re-fetch ticket %d: %w", v.id, err)
	}
	// A new assignee may gain or lose sight of the timer
	v.loadTimer(ctx)
	v.loadActivity(ctx)
	result := v.Ticket()
	return &result, nil
}

// Refresh re-fetches the ticket, its active session and its activity.
func (v *View) Refresh(ctx context.Context) error {
	if err := v.reload(ctx); err != nil {
		return err
	}
	v.loadTimer(ctx)
	v.loadActivity(ctx)
	return nil
}

// Close stops the timer. It is safe to call more than once.
func (v *View) Close() {
	v.scope.Close()
	v.display.Clear()
	v.syncGauge()
}

func (v *View) reload(ctx context.Context) error {
	ticket, err := v.c.fetch(ctx, v.id)
	if err != nil {
		return err
	}
	v.setTicket(ticket)
	if !workflow.IsTracked(workflow.Status(ticket.Status)) {
		v.display.Clear()
		v.syncGauge()
	}
	return nil
}

func (v *View) reloadQuietly(ctx context.Context) {
	if err := v.reload(ctx); err != nil {
		v.c.logger.Printf("re-fetch ticket %d: %v", v.id, err)
	}
}

func (v *View) setTicket(ticket *types.Ticket) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ticket = *ticket
}

// loadTimer replaces the display with the backend's active session. Only tracked statuses
// viewable by the actor show a timer; fetch failures hide it.
func (v *View) loadTimer(ctx context.Context) {
	defer v.syncGauge()

	ticket := v.Ticket()
	status := workflow.Status(ticket.Status)
	actor := v.c.currentUser()
	if !workflow.IsTracked(status) || !workflow.CanViewTimer(actor, &ticket) {
		v.display.Clear()
		return
	}

	session, err := v.c.store.ActiveSession(ctx, v.id)
	if err != nil {
		v.c.logger.Printf("fetch active session for ticket %d: %v", v.id, err)
		v.display.Clear()
		return
	}
	if session.Error != "" {
		v.c.logger.Printf("active session for ticket %d: %s", v.id, session.Error)
	}
	v.display.Load(session, status)
}

func (v *View) loadActivity(ctx context.Context) {
	if v.c.activity == nil {
		return
	}
	logs, err := v.c.activity.ByTicket(ctx, v.id)
	if err != nil {
		v.c.logger.Printf("fetch activity for ticket %d: %v", v.id, err)
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.activity = logs
}

func (v *View) syncGauge() {
	visible := v.display.Visible()
	v.mu.Lock()
	defer v.mu.Unlock()
	if visible != v.shown {
		v.shown = visible
		v.c.metrics.TimerShown(visible)
	}
}
