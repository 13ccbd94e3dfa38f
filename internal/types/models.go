// Package types holds the wire representations exchanged with the tickora REST API.
package types

import (
	"time"
)

// Role values carried on User.Role.
const (
	RoleAdmin    = "admin"
	RoleManager  = "manager"
	RoleEmployee = "employee"
)

// Ticket priorities.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Ticket types.
const (
	TypeBug     = "bug"
	TypeTask    = "task"
	TypeFeature = "feature"
)

// Ticket represents a tracked unit of work
type Ticket struct {
	ID           int         `json:"id"`
	TicketID     string      `json:"ticket_id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	Type         string      `json:"type"`
	Priority     string      `json:"priority"`
	Status       string      `json:"status"`
	Project      int         `json:"project"`
	ProjectName  string      `json:"project_name"`
	Assignee     *int        `json:"assignee"`
	AssigneeName *string     `json:"assignee_name"`
	CreatedBy    string      `json:"created_by"`
	CreatedByID  int         `json:"created_by_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	InProgressAt *time.Time  `json:"in_progress_at,omitempty"`
	QAAt         *time.Time  `json:"qa_at,omitempty"`
	ClosedAt     *time.Time  `json:"closed_at,omitempty"`
	MediaFiles   []MediaFile `json:"media_files,omitempty"`
	Comments     []Comment   `json:"comments,omitempty"`
}

// IsAssigned reports whether the ticket has an assignee.
func (t *Ticket) IsAssigned() bool {
	return t.Assignee != nil
}

// IsAssignedTo reports whether userID is the ticket's current assignee.
func (t *Ticket) IsAssignedTo(userID int) bool {
	return t.Assignee != nil && *t.Assignee == userID
}

// AssigneeLabel returns the assignee's display name or "Unassigned".
func (t *Ticket) AssigneeLabel() string {
	if t.AssigneeName != nil && *t.AssigneeName != "" {
		return *t.AssigneeName
	}
	if t.Assignee == nil {
		return "Unassigned"
	}
	return "unknown"
}

// MediaFile is an attachment uploaded to a ticket
type MediaFile struct {
	ID         int       `json:"id"`
	Ticket     int       `json:"ticket"`
	File       string    `json:"file"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	FileSize   int64     `json:"file_size"`
	UploadedBy string    `json:"uploaded_by"`
	CreatedAt  time.Time `json:"created_at"`
}

// UserRef is the abbreviated user embedded in other resources
type UserRef struct {
	ID        int    `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Role      string `json:"role,omitempty"`
}

// DepartmentRole is a cosmetic tag attached to users. It carries no workflow authority.
type DepartmentRole struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Color       string `json:"color"`
}

// User represents a user in the system
type User struct {
	ID              int              `json:"id"`
	Username        string           `json:"username"`
	Email           string           `json:"email"`
	FirstName       string           `json:"first_name"`
	LastName        string           `json:"last_name"`
	Role            string           `json:"role"`
	DepartmentRoles []DepartmentRole `json:"department_roles,omitempty"`
	IsActive        bool             `json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// IsPrivileged reports whether the user holds the admin or manager role.
func (u *User) IsPrivileged() bool {
	return u != nil && (u.Role == RoleAdmin || u.Role == RoleManager)
}

// ActiveSession is the server's view of a currently open work-timing interval
type ActiveSession struct {
	Active           bool     `json:"active"`
	WorkLog          *WorkLog `json:"work_log,omitempty"`
	ElapsedSeconds   int64    `json:"elapsed_seconds,omitempty"`
	ElapsedFormatted string   `json:"elapsed_formatted,omitempty"`
	UserID           int      `json:"user_id,omitempty"`
	UserName         string   `json:"user_name,omitempty"`
	Error            string   `json:"error,omitempty"`
}

// WorkLog is a recorded work interval against a ticket
type WorkLog struct {
	ID              int        `json:"id"`
	Ticket          int        `json:"ticket"`
	TicketIDDisplay string     `json:"ticket_id_display"`
	User            int        `json:"user"`
	UserName        string     `json:"user_name"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	DurationMinutes int        `json:"duration_minutes"`
	Notes           string     `json:"notes"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TotalTime aggregates closed work logs for a ticket
type TotalTime struct {
	TicketID     string  `json:"ticket_id"`
	TotalMinutes int     `json:"total_minutes"`
	TotalHours   float64 `json:"total_hours"`
	WorkLogCount int     `json:"work_log_count"`
}

// Comment is a message posted on a ticket
type Comment struct {
	ID         int       `json:"id"`
	Ticket     int       `json:"ticket"`
	Author     *UserRef  `json:"author,omitempty"`
	AuthorName string    `json:"author_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ActivityLog is an audit entry recorded by the backend
type ActivityLog struct {
	ID          int                    `json:"id"`
	Action      string                 `json:"action"`
	User        *UserRef               `json:"user"`
	UserName    string                 `json:"user_name"`
	Description string                 `json:"description"`
	TargetType  *string                `json:"target_type"`
	TargetID    *int                   `json:"target_id"`
	TargetStr   *string                `json:"target_str"`
	ExtraData   map[string]interface{} `json:"extra_data,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Project groups tickets and members
type Project struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      string          `json:"status"`
	CreatedBy   *UserRef        `json:"created_by,omitempty"`
	Members     []ProjectMember `json:"members"`
	MemberCount int             `json:"member_count"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// HasMember reports whether userID is listed as a project member.
func (p *Project) HasMember(userID int) bool {
	if p == nil {
		return false
	}
	for _, m := range p.Members {
		if m.User.ID == userID {
			return true
		}
	}
	return false
}

// ProjectMember is a user's membership in a project
type ProjectMember struct {
	ID       int       `json:"id"`
	User     UserRef   `json:"user"`
	JoinedAt time.Time `json:"joined_at"`
}

// AttendanceLog is one availability change within a day
type AttendanceLog struct {
	ID            int       `json:"id"`
	Status        string    `json:"status"`
	StatusDisplay string    `json:"status_display"`
	Timestamp     time.Time `json:"timestamp"`
	TimeDisplay   string    `json:"time_display"`
	IsAuto        bool      `json:"is_auto"`
	Note          string    `json:"note"`
}

// Attendance is an employee's attendance record for one day
type Attendance struct {
	ID                  int             `json:"id"`
	Employee            UserRef         `json:"employee"`
	Date                string          `json:"date"`
	Status              string          `json:"status"`
	CurrentAvailability string          `json:"current_availability"`
	FirstAvailableAt    *time.Time      `json:"first_available_at,omitempty"`
	LastChangedAt       *time.Time      `json:"last_changed_at,omitempty"`
	IsAvailable         bool            `json:"is_available"`
	VisibilityStatus    string          `json:"visibility_status"`
	CanToggleStatus     bool            `json:"can_toggle_status"`
	ToggleStatusMessage string          `json:"toggle_status_message,omitempty"`
	DailyLogs           []AttendanceLog `json:"daily_logs"`
	FormattedSummary    string          `json:"formatted_summary"`
	CreatedAt           time.Time       `json:"created_at"`
}

// TeamAttendance is the team availability row shown to colleagues
type TeamAttendance struct {
	ID                  int              `json:"id"`
	EmployeeName        string           `json:"employee_name"`
	EmployeeUsername    string           `json:"employee_username"`
	EmployeeRole        string           `json:"employee_role"`
	DepartmentRoles     []DepartmentRole `json:"department_roles"`
	Date                string           `json:"date"`
	Status              string           `json:"status"`
	CurrentAvailability string           `json:"current_availability"`
	IsAvailable         bool             `json:"is_available"`
	VisibilityStatus    string           `json:"visibility_status"`
	LastChangedTime     string           `json:"last_changed_time,omitempty"`
}

// DateRange is an inclusive range of ISO dates
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// EmployeeStats is one employee's row in attendance statistics
type EmployeeStats struct {
	EmployeeID  int     `json:"employee_id"`
	Username    string  `json:"username"`
	FullName    string  `json:"full_name"`
	PresentDays int     `json:"present_days"`
	AbsentDays  int     `json:"absent_days"`
	LeaveDays   int     `json:"leave_days"`
	WorkingDays int     `json:"working_days"`
	Percentage  float64 `json:"percentage"`
}

// AttendanceStats is computed server side and rendered as-is
type AttendanceStats struct {
	Username         string          `json:"username,omitempty"`
	Range            DateRange       `json:"range"`
	TotalWorkingDays int             `json:"total_working_days"`
	PresentDays      int             `json:"present_days"`
	AbsentDays       int             `json:"absent_days"`
	LeaveDays        int             `json:"leave_days"`
	Percentage       float64         `json:"percentage"`
	Stats            []EmployeeStats `json:"stats,omitempty"`
}

// LeaveRequest is an employee's request for time off
type LeaveRequest struct {
	ID              int        `json:"id"`
	Employee        UserRef    `json:"employee"`
	StartDate       string     `json:"start_date"`
	EndDate         string     `json:"end_date"`
	Message         string     `json:"message"`
	Status          string     `json:"status"`
	ApprovedBy      *UserRef   `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time `json:"approved_at,omitempty"`
	RejectionReason string     `json:"rejection_reason,omitempty"`
	DurationDays    int        `json:"duration_days"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CalendarEvent is a shared calendar entry
type CalendarEvent struct {
	ID              int       `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Date            string    `json:"date"`
	Category        string    `json:"category"`
	CategoryDisplay string    `json:"category_display"`
	Color           string    `json:"color"`
	IsFullDay       bool      `json:"is_full_day"`
	StartTime       string    `json:"start_time,omitempty"`
	EndTime         string    `json:"end_time,omitempty"`
	CreatedBy       *UserRef  `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Todo is a personal todo item
type Todo struct {
	ID              int        `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Priority        string     `json:"priority"`
	PriorityDisplay string     `json:"priority_display"`
	Status          string     `json:"status"`
	StatusDisplay   string     `json:"status_display"`
	DueDate         string     `json:"due_date,omitempty"`
	DueTime         string     `json:"due_time,omitempty"`
	IsCompleted     bool       `json:"is_completed"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	IsOverdue       bool       `json:"is_overdue"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}
