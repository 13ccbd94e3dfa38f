package monitor

import (
	"context"
	"sort"
	"time"

	"github.com/tickora-io/tickora/internal/types"
)

const (
	AttendanceMonitor = "attendance"
	LeaveMonitor      = "leave"

	DefaultAttendanceInterval = 30 * time.Second
	DefaultLeaveInterval      = 60 * time.Second
)

// AttendanceSource lists the team availability board. *client.AttendanceService
// satisfies it.
type AttendanceSource interface {
	Team(ctx context.Context) ([]types.TeamAttendance, error)
}

// LeaveSource lists leave requests. *client.LeaveService satisfies it.
type LeaveSource interface {
	List(ctx context.Context) ([]types.LeaveRequest, error)
	Mine(ctx context.Context) ([]types.LeaveRequest, error)
}

// NewAttendance polls the team board, every 30 seconds unless WithInterval says otherwise.
func NewAttendance(src AttendanceSource, opts ...Option) *Monitor[[]types.TeamAttendance] {
	return New(AttendanceMonitor, DefaultAttendanceInterval, src.Team, opts...)
}

// NewLeave polls leave requests, every 60 seconds unless WithInterval says otherwise.
// mine limits polling to the caller's own requests.
func NewLeave(src LeaveSource, mine bool, opts ...Option) *Monitor[[]types.LeaveRequest] {
	fetch := src.List
	if mine {
		fetch = src.Mine
	}
	return New(LeaveMonitor, DefaultLeaveInterval, fetch, opts...)
}

// AvailabilityChange is a teammate whose availability flipped between polls
type AvailabilityChange struct {
	Username string
	Name     string
	From     string
	To       string
}

// DiffAvailability lists teammates whose current availability changed, sorted by
// username. Teammates who appear for the first time are reported with an empty From.
func DiffAvailability(prev, next []types.TeamAttendance) []AvailabilityChange {
	before := make(map[string]string, len(prev))
	for _, row := range prev {
		before[row.EmployeeUsername] = row.CurrentAvailability
	}

	var changes []AvailabilityChange
	for _, row := range next {
		old, seen := before[row.EmployeeUsername]
		if seen && old == row.CurrentAvailability {
			continue
		}
		changes = append(changes, AvailabilityChange{
			Username: row.EmployeeUsername,
			Name:     row.EmployeeName,
			From:     old,
			To:       row.CurrentAvailability,
		})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Username < changes[j].Username })
	return changes
}

// LeaveChange is a leave request that is new or changed status between polls
type LeaveChange struct {
	Request types.LeaveRequest
	// From is empty for requests that were not present before.
	From string
}

// DiffLeave lists requests that appeared or changed status, ordered by id.
func DiffLeave(prev, next []types.LeaveRequest) []LeaveChange {
	before := make(map[int]string, len(prev))
	for _, req := range prev {
		before[req.ID] = req.Status
	}

	var changes []LeaveChange
	for _, req := range next {
		old, seen := before[req.ID]
		if seen && old == req.Status {
			continue
		}
		changes = append(changes, LeaveChange{Request: req, From: old})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Request.ID < changes[j].Request.ID })
	return changes
}

// PendingLeave counts requests awaiting a decision.
func PendingLeave(reqs []types.LeaveRequest) int {
	n := 0
	for _, r := range reqs {
		if r.Status == "pending" {
			n++
		}
	}
	return n
}
