package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tickora-io/tickora/internal/types"
)

const worklogsPath = "/timelogs/worklogs/"

// TimeLogsService handles work log operations
type TimeLogsService struct {
	client *Client
}

// ActiveSession reports the open work interval of a ticket. Callers that may not view the
// timer receive {active:false} with an error string rather than an HTTP error.
func (s *TimeLogsService) ActiveSession(ctx context.Context, ticketID int) (*types.ActiveSession, error) {
	path := fmt.Sprintf("%sticket_active_session/?ticket_id=%d", worklogsPath, ticketID)
	var result types.ActiveSession
	if err := s.client.Get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// List retrieves work logs, optionally filtered by ticket and user
func (s *TimeLogsService) List(ctx context.Context, ticketID, userID int) ([]types.WorkLog, error) {
	query := url.Values{}
	if ticketID > 0 {
		query.Set("ticket_id", strconv.Itoa(ticketID))
	}
	if userID > 0 {
		query.Set("user_id", strconv.Itoa(userID))
	}
	path := worklogsPath
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return getList[types.WorkLog](ctx, s.client, path)
}

// TotalTime aggregates the closed work logs of a ticket
func (s *TimeLogsService) TotalTime(ctx context.Context, ticketID int) (*types.TotalTime, error) {
	path := fmt.Sprintf("%stotal_time/?ticket_id=%d", worklogsPath, ticketID)
	var result types.TotalTime
	if err := s.client.Get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StartWork opens a work log for the caller
func (s *TimeLogsService) StartWork(ctx context.Context, ticketID int, notes string) (*types.WorkLog, error) {
	var result types.WorkLog
	body := types.StartWorkRequest{TicketID: ticketID, Notes: notes}
	if err := s.client.Post(ctx, worklogsPath+"start_work/", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// StopWork closes an open work log
func (s *TimeLogsService) StopWork(ctx context.Context, workLogID int) (*types.WorkLog, error) {
	var result types.WorkLog
	path := fmt.Sprintf("%s%d/stop_work/", worklogsPath, workLogID)
	if err := s.client.Post(ctx, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
