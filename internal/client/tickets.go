package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tickora-io/tickora/internal/types"
)

const ticketsPath = "/tickets/tickets/"

// TicketsService handles ticket-related API operations
type TicketsService struct {
	client *Client
}

func ticketPath(id int, action string) string {
	if action == "" {
		return fmt.Sprintf("%s%d/", ticketsPath, id)
	}
	return fmt.Sprintf("%s%d/%s/", ticketsPath, id, action)
}

// List retrieves tickets matching options
func (s *TicketsService) List(ctx context.Context, options *types.TicketListOptions) ([]types.Ticket, error) {
	path := ticketsPath
	if options != nil {
		query := url.Values{}
		if options.Status != "" {
			query.Set("status", options.Status)
		}
		if options.Priority != "" {
			query.Set("priority", options.Priority)
		}
		if options.Type != "" {
			query.Set("type", options.Type)
		}
		if options.Project > 0 {
			query.Set("project", strconv.Itoa(options.Project))
		}
		if options.Search != "" {
			query.Set("search", options.Search)
		}
		if len(query) > 0 {
			path += "?" + query.Encode()
		}
	}
	return getList[types.Ticket](ctx, s.client, path)
}

// Mine retrieves tickets assigned to the caller
func (s *TicketsService) Mine(ctx context.Context) ([]types.Ticket, error) {
	return getList[types.Ticket](ctx, s.client, ticketsPath+"my_tickets/")
}

// ByProject retrieves the tickets of one project
func (s *TicketsService) ByProject(ctx context.Context, projectID int) ([]types.Ticket, error) {
	path := fmt.Sprintf("%sby_project/?project_id=%d", ticketsPath, projectID)
	return getList[types.Ticket](ctx, s.client, path)
}

// Get retrieves a specific ticket by ID
func (s *TicketsService) Get(ctx context.Context, id int) (*types.Ticket, error) {
	var result types.Ticket
	if err := s.client.Get(ctx, ticketPath(id, ""), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Create creates a new ticket
func (s *TicketsService) Create(ctx context.Context, request *types.TicketCreateRequest) (*types.Ticket, error) {
	var result types.Ticket
	if err := s.client.Post(ctx, ticketsPath, request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update applies a partial update to a ticket
func (s *TicketsService) Update(ctx context.Context, id int, request *types.TicketUpdateRequest) (*types.Ticket, error) {
	var result types.Ticket
	if err := s.client.Patch(ctx, ticketPath(id, ""), request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete deletes a ticket
func (s *TicketsService) Delete(ctx context.Context, id int) error {
	return s.client.Delete(ctx, ticketPath(id, ""))
}

// UpdateStatus asks the backend to move the ticket to status. The backend validates the
// transition and the caller's permission; its reason is returned verbatim on rejection.
func (s *TicketsService) UpdateStatus(ctx context.Context, id int, status string) (*types.Ticket, error) {
	var result types.Ticket
	body := types.StatusChangeRequest{Status: status}
	if err := s.client.Patch(ctx, ticketPath(id, "update_status"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SelfAssign assigns the ticket to the caller
func (s *TicketsService) SelfAssign(ctx context.Context, id int) (*types.Ticket, error) {
	var result types.Ticket
	if err := s.client.Post(ctx, ticketPath(id, "self_assign"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Assign assigns the ticket to userID
func (s *TicketsService) Assign(ctx context.Context, id int, userID int) (*types.Ticket, error) {
	var result types.Ticket
	body := types.AssignRequest{UserID: userID}
	if err := s.client.Post(ctx, ticketPath(id, "assign"), body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
