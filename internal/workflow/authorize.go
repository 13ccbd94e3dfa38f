package workflow

import (
	"errors"
	"fmt"

	"github.com/tickora-io/tickora/internal/types"
)

var (
	// ErrInvalidTransition is matched by every *TransitionError.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrNotPermitted is matched by every *PermissionError.
	ErrNotPermitted = errors.New("not permitted")
)

// TransitionError reports a status change that is not an edge of the transition graph
type TransitionError struct {
	From    Status
	To      Status
	Allowed []Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("Cannot transition from %s to %s. Valid transitions: %v", e.From, e.To, e.Allowed)
}

func (e *TransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// PermissionError reports an action the acting user may not perform
type PermissionError struct {
	Action string
	Reason string
}

func (e *PermissionError) Error() string {
	return e.Reason
}

func (e *PermissionError) Is(target error) bool { return target == ErrNotPermitted }

// CanChangeStatus reports whether actor may move ticket along the transition graph:
// the current assignee, or anyone holding the admin or manager role.
func CanChangeStatus(actor *types.User, ticket *types.Ticket) bool {
	if actor == nil || ticket == nil {
		return false
	}
	if actor.IsPrivileged() {
		return true
	}
	return ticket.IsAssignedTo(actor.ID)
}

// CanViewTimer reports whether actor may see the active work session of ticket.
func CanViewTimer(actor *types.User, ticket *types.Ticket) bool {
	return CanChangeStatus(actor, ticket)
}

// CanSelfAssign reports whether actor may claim ticket.
func CanSelfAssign(actor *types.User, ticket *types.Ticket) bool {
	if actor == nil || ticket == nil {
		return false
	}
	return !ticket.IsAssigned() && Status(ticket.Status) != StatusClosed
}

// CanAssign reports whether actor may assign ticket to someone. project may be nil when
// membership is unknown; in that case only role and creator are checked locally.
func CanAssign(actor *types.User, ticket *types.Ticket, project *types.Project) bool {
	if actor == nil || ticket == nil {
		return false
	}
	if Status(ticket.Status) == StatusClosed {
		return false
	}
	if actor.IsPrivileged() {
		return true
	}
	if ticket.CreatedByID != 0 && ticket.CreatedByID == actor.ID {
		return true
	}
	if ticket.CreatedBy != "" && ticket.CreatedBy == actor.Username {
		return true
	}
	return project.HasMember(actor.ID)
}

// ValidateTransition checks a requested status change against the graph and the
// authorization rule. Graph violations take precedence over permission failures.
func ValidateTransition(actor *types.User, ticket *types.Ticket, target Status) error {
	from := Status(ticket.Status)
	if !CanTransition(from, target) {
		return &TransitionError{From: from, To: target, Allowed: AllowedNext(from)}
	}
	if !CanChangeStatus(actor, ticket) {
		return &PermissionError{
			Action: "change_status",
			Reason: "Only the assigned user or a manager can change the workflow",
		}
	}
	return nil
}

// ValidateSelfAssign checks whether actor may claim ticket.
func ValidateSelfAssign(actor *types.User, ticket *types.Ticket) error {
	if CanSelfAssign(actor, ticket) {
		return nil
	}
	reason := "Ticket is already assigned"
	if Status(ticket.Status) == StatusClosed {
		reason = "Closed tickets cannot be assigned"
	}
	return &PermissionError{Action: "self_assign", Reason: reason}
}

// ValidateAssign checks whether actor may assign ticket.
func ValidateAssign(actor *types.User, ticket *types.Ticket, project *types.Project) error {
	if CanAssign(actor, ticket, project) {
		return nil
	}
	reason := "Only managers, the ticket creator or project members can assign this ticket"
	if Status(ticket.Status) == StatusClosed {
		reason = "Closed tickets cannot be assigned"
	}
	return &PermissionError{Action: "assign", Reason: reason}
}
