package types

// Request/Response types for API operations

// TicketCreateRequest represents a request to create a ticket
type TicketCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Priority    string `json:"priority"`
	Project     int    `json:"project"`
	Assignee    *int   `json:"assignee,omitempty"`
}

// TicketUpdateRequest represents a partial ticket update. Status is not part of it:
// status changes go through the update_status endpoint.
type TicketUpdateRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Type        *string `json:"type,omitempty"`
	Priority    *string `json:"priority,omitempty"`
}

// TicketListOptions represents options for listing tickets
type TicketListOptions struct {
	Status   string `json:"status,omitempty"`
	Priority string `json:"priority,omitempty"`
	Type     string `json:"type,omitempty"`
	Project  int    `json:"project,omitempty"`
	Search   string `json:"search,omitempty"`
}

// StatusChangeRequest is the body of PATCH update_status
type StatusChangeRequest struct {
	Status string `json:"status"`
}

// AssignRequest is the body of POST assign
type AssignRequest struct {
	UserID int `json:"user_id"`
}

// StartWorkRequest is the body of POST start_work
type StartWorkRequest struct {
	TicketID int    `json:"ticket_id"`
	Notes    string `json:"notes"`
}

// CommentCreateRequest represents a request to create a comment
type CommentCreateRequest struct {
	Ticket  int    `json:"ticket"`
	Content string `json:"content"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	User    User   `json:"user"`
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// RefreshRequest is the body of POST token/refresh
type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// RefreshResponse carries the rotated token pair
type RefreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// AvailabilityRequest toggles the caller's availability
type AvailabilityRequest struct {
	Status string `json:"status"`
	Date   string `json:"date,omitempty"`
}

// AttendanceStatsOptions filters the attendance statistics endpoint
type AttendanceStatsOptions struct {
	StartDate    string
	EndDate      string
	AllEmployees bool
	EmployeeID   int
}

// LeaveCreateRequest represents a new leave request
type LeaveCreateRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Message   string `json:"message"`
}

// LeaveRejectRequest carries an optional rejection reason
type LeaveRejectRequest struct {
	Reason string `json:"reason,omitempty"`
}

// CalendarEventRequest creates or updates a calendar event
type CalendarEventRequest struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	Color       string `json:"color,omitempty"`
	IsFullDay   bool   `json:"is_full_day"`
	StartTime   string `json:"start_time,omitempty"`
	EndTime     string `json:"end_time,omitempty"`
}

// TodoRequest creates or updates a todo
type TodoRequest struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Status      string `json:"status,omitempty"`
	DueDate     string `json:"due_date,omitempty"`
}

// ErrorResponse is the conventional error body returned by the API
type ErrorResponse struct {
	Detail  string `json:"detail,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

// Reason returns the human readable reason in precedence order detail, error, message.
func (e ErrorResponse) Reason() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Error != "":
		return e.Error
	default:
		return e.Message
	}
}

// UserCreateRequest is an admin's request to open an account. The response carries the
// new user and a token pair for them, which the caller must not adopt.
type UserCreateRequest struct {
	Username          string `json:"username"`
	Email             string `json:"email"`
	FirstName         string `json:"first_name,omitempty"`
	LastName          string `json:"last_name,omitempty"`
	Role              string `json:"role,omitempty"`
	DepartmentRoleIDs []int  `json:"department_role_ids,omitempty"`
	Password          string `json:"password"`
	ConfirmPassword   string `json:"confirm_password"`
}

// UserUpdateRequest is a partial user update. Nil fields are left alone; a non-nil empty
// DepartmentRoleIDs clears the user's department roles.
type UserUpdateRequest struct {
	Username          *string `json:"username,omitempty"`
	Email             *string `json:"email,omitempty"`
	FirstName         *string `json:"first_name,omitempty"`
	LastName          *string `json:"last_name,omitempty"`
	Role              *string `json:"role,omitempty"`
	DepartmentRoleIDs *[]int  `json:"department_role_ids,omitempty"`
	IsActive          *bool   `json:"is_active,omitempty"`
}

// DepartmentRoleRequest creates a department role, or patches one when fields are empty.
type DepartmentRoleRequest struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Color       string `json:"color,omitempty"`
}
