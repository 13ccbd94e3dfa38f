package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/tickora-io/tickora/internal/types"
)

// ProjectsService handles project-related API operations
type ProjectsService struct {
	client *Client
}

const projectsPath = "/projects/projects/"

// Get retrieves a project with its members
func (s *ProjectsService) Get(ctx context.Context, id int) (*types.Project, error) {
	var result types.Project
	if err := s.client.Get(ctx, fmt.Sprintf("%s%d/", projectsPath, id), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// List retrieves all projects visible to the caller
func (s *ProjectsService) List(ctx context.Context) ([]types.Project, error) {
	return getList[types.Project](ctx, s.client, projectsPath)
}

// Mine retrieves the projects the caller is a member of
func (s *ProjectsService) Mine(ctx context.Context) ([]types.Project, error) {
	return getList[types.Project](ctx, s.client, projectsPath+"my_projects/")
}

// CommentsService handles ticket comments
type CommentsService struct {
	client *Client
}

const commentsPath = "/comments/"

// ByTicket retrieves the comments of a ticket in creation order
func (s *CommentsService) ByTicket(ctx context.Context, ticketID int) ([]types.Comment, error) {
	return getList[types.Comment](ctx, s.client, fmt.Sprintf("%sby_ticket/?ticket_id=%d", commentsPath, ticketID))
}

// Create posts a comment
func (s *CommentsService) Create(ctx context.Context, ticketID int, content string) (*types.Comment, error) {
	var result types.Comment
	body := types.CommentCreateRequest{Ticket: ticketID, Content: content}
	if err := s.client.Post(ctx, commentsPath, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a comment
func (s *CommentsService) Delete(ctx context.Context, id int) error {
	return s.client.Delete(ctx, fmt.Sprintf("%s%d/", commentsPath, id))
}

// ActivityService reads the backend audit log
type ActivityService struct {
	client *Client
}

// ByTicket retrieves the activity log of a ticket, newest first
func (s *ActivityService) ByTicket(ctx context.Context, ticketID int) ([]types.ActivityLog, error) {
	return getList[types.ActivityLog](ctx, s.client, fmt.Sprintf("/activity/by_ticket/?ticket_id=%d", ticketID))
}

// Recent retrieves the latest activity across tickets
func (s *ActivityService) Recent(ctx context.Context, limit int) ([]types.ActivityLog, error) {
	if limit <= 0 {
		limit = 10
	}
	return getList[types.ActivityLog](ctx, s.client, fmt.Sprintf("/activity/recent/?limit=%d", limit))
}

// AttendanceService handles availability and attendance statistics
type AttendanceService struct {
	client *Client
}

const attendancePath = "/attendance/attendance/"

// Me retrieves the caller's attendance for today
func (s *AttendanceService) Me(ctx context.Context) (*types.Attendance, error) {
	var result types.Attendance
	if err := s.client.Get(ctx, attendancePath+"me/", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// History retrieves the caller's attendance records in a date range
func (s *AttendanceService) History(ctx context.Context, start, end string) ([]types.Attendance, error) {
	query := url.Values{}
	if start != "" {
		query.Set("start_date", start)
	}
	if end != "" {
		query.Set("end_date", end)
	}
	path := attendancePath
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	return getList[types.Attendance](ctx, s.client, path)
}

// Toggle sets the caller's availability ("available" or "unavailable")
func (s *AttendanceService) Toggle(ctx context.Context, status, date string) (*types.Attendance, error) {
	var result types.Attendance
	body := types.AvailabilityRequest{Status: status, Date: date}
	if err := s.client.Post(ctx, attendancePath, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Team retrieves the team availability board
func (s *AttendanceService) Team(ctx context.Context) ([]types.TeamAttendance, error) {
	return getList[types.TeamAttendance](ctx, s.client, attendancePath+"team/")
}

// Stats retrieves server-computed attendance statistics
func (s *AttendanceService) Stats(ctx context.Context, options *types.AttendanceStatsOptions) (*types.AttendanceStats, error) {
	path := attendancePath + "stats/"
	if options != nil {
		query := url.Values{}
		if options.StartDate != "" {
			query.Set("start_date", options.StartDate)
		}
		if options.EndDate != "" {
			query.Set("end_date", options.EndDate)
		}
		if options.AllEmployees {
			query.Set("all_employees", "true")
		}
		if options.EmployeeID > 0 {
			query.Set("employee_id", strconv.Itoa(options.EmployeeID))
		}
		if len(query) > 0 {
			path += "?" + query.Encode()
		}
	}
	var result types.AttendanceStats
	if err := s.client.Get(ctx, path, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LeaveService handles leave requests
type LeaveService struct {
	client *Client
}

const leavePath = "/attendance/leave-requests/"

// List retrieves every leave request visible to the caller
func (s *LeaveService) List(ctx context.Context) ([]types.LeaveRequest, error) {
	return getList[types.LeaveRequest](ctx, s.client, leavePath)
}

// Mine retrieves the caller's own leave requests
func (s *LeaveService) Mine(ctx context.Context) ([]types.LeaveRequest, error) {
	return getList[types.LeaveRequest](ctx, s.client, leavePath+"my/")
}

// Create submits a leave request
func (s *LeaveService) Create(ctx context.Context, request *types.LeaveCreateRequest) (*types.LeaveRequest, error) {
	var result types.LeaveRequest
	if err := s.client.Post(ctx, leavePath, request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Approve approves a pending request
func (s *LeaveService) Approve(ctx context.Context, id int) error {
	return s.client.Post(ctx, fmt.Sprintf("%s%d/approve/", leavePath, id), nil, nil)
}

// Reject rejects a pending request with an optional reason
func (s *LeaveService) Reject(ctx context.Context, id int, reason string) error {
	return s.client.Post(ctx, fmt.Sprintf("%s%d/reject/", leavePath, id), types.LeaveRejectRequest{Reason: reason}, nil)
}

// Delete withdraws a request
func (s *LeaveService) Delete(ctx context.Context, id int) error {
	return s.client.Delete(ctx, fmt.Sprintf("%s%d/", leavePath, id))
}

// CalendarService handles shared calendar events
type CalendarService struct {
	client *Client
}

const eventsPath = "/calendar/events/"

// Range retrieves events between two ISO dates, inclusive
func (s *CalendarService) Range(ctx context.Context, start, end string) ([]types.CalendarEvent, error) {
	query := url.Values{}
	query.Set("start", start)
	query.Set("end", end)
	return getList[types.CalendarEvent](ctx, s.client, eventsPath+"range/?"+query.Encode())
}

// Create adds an event
func (s *CalendarService) Create(ctx context.Context, request *types.CalendarEventRequest) (*types.CalendarEvent, error) {
	var result types.CalendarEvent
	if err := s.client.Post(ctx, eventsPath, request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes an event
func (s *CalendarService) Delete(ctx context.Context, id int) error {
	return s.client.Delete(ctx, fmt.Sprintf("%s%d/", eventsPath, id))
}

// TodosService handles the caller's todo list
type TodosService struct {
	client *Client
}

const todosPath = "/todos/todos/"

// List retrieves todos, optionally filtered by status
func (s *TodosService) List(ctx context.Context, status string) ([]types.Todo, error) {
	path := todosPath
	if status != "" {
		path += "?" + url.Values{"status": []string{status}}.Encode()
	}
	return getList[types.Todo](ctx, s.client, path)
}

// Create adds a todo
func (s *TodosService) Create(ctx context.Context, request *types.TodoRequest) (*types.Todo, error) {
	var result types.Todo
	if err := s.client.Post(ctx, todosPath, request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Complete marks a todo done
func (s *TodosService) Complete(ctx context.Context, id int) (*types.Todo, error) {
	return s.action(ctx, id, "complete")
}

// Reopen marks a completed todo pending again
func (s *TodosService) Reopen(ctx context.Context, id int) (*types.Todo, error) {
	return s.action(ctx, id, "reopen")
}

func (s *TodosService) action(ctx context.Context, id int, action string) (*types.Todo, error) {
	var result types.Todo
	if err := s.client.Post(ctx, fmt.Sprintf("%s%d/%s/", todosPath, id, action), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Delete removes a todo
func (s *TodosService) Delete(ctx context.Context, id int) error {
	return s.client.Delete(ctx, fmt.Sprintf("%s%d/", todosPath, id))
}
