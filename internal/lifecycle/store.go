package lifecycle

import (
	"context"

	"github.com/tickora-io/tickora/internal/client"
	"github.com/tickora-io/tickora/internal/types"
)

// Store is the backend a Controller reads tickets from and sends lifecycle requests to.
type Store interface {
	Ticket(ctx context.Context, id int) (*types.Ticket, error)
	UpdateStatus(ctx context.Context, id int, status string) (*types.Ticket, error)
	SelfAssign(ctx context.Context, id int) (*types.Ticket, error)
	Assign(ctx context.Context, id, userID int) (*types.Ticket, error)
	ActiveSession(ctx context.Context, ticketID int) (*types.ActiveSession, error)
	Project(ctx context.Context, id int) (*types.Project, error)
}

// Identity reports who is acting. *session.Session satisfies it.
type Identity interface {
	CurrentUser() *types.User
}

// ActivitySource lists a ticket's audit log. *client.ActivityService satisfies it.
type ActivitySource interface {
	ByTicket(ctx context.Context, ticketID int) ([]types.ActivityLog, error)
}

type clientStore struct {
	api *client.Client
}

// NewStore adapts the REST client to Store.
func NewStore(api *client.Client) Store {
	return &clientStore{api: api}
}

func (s *clientStore) Ticket(ctx context.Context, id int) (*types.Ticket, error) {
	return s.api.Tickets.Get(ctx, id)
}

func (s *clientStore) UpdateStatus(ctx context.Context, id int, status string) (*types.Ticket, error) {
	return s.api.Tickets.UpdateStatus(ctx, id, status)
}

func (s *clientStore) SelfAssign(ctx context.Context, id int) (*types.Ticket, error) {
	return s.api.Tickets.SelfAssign(ctx, id)
}

func (s *clientStore) Assign(ctx context.Context, id, userID int) (*types.Ticket, error) {
	return s.api.Tickets.Assign(ctx, id, userID)
}

func (s *clientStore) ActiveSession(ctx context.Context, ticketID int) (*types.ActiveSession, error) {
	return s.api.TimeLogs.ActiveSession(ctx, ticketID)
}

func (s *clientStore) Project(ctx context.Context, id int) (*types.Project, error) {
	return s.api.Projects.Get(ctx, id)
}
