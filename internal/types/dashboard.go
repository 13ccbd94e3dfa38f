package types

import "time"

// Dashboard payloads are computed by the backend per role. The client only renders them.

// DashboardTicket is a ticket row on the employee dashboard
type DashboardTicket struct {
	ID          int       `json:"id"`
	TicketID    string    `json:"ticket_id"`
	Title       string    `json:"title"`
	ProjectName *string   `json:"project_name"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
}

// DashboardActivity is one of the caller's recent actions
type DashboardActivity struct {
	ID          int       `json:"id"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// DashboardSession is the caller's open work session, if any
type DashboardSession struct {
	ID          int       `json:"id"`
	TicketID    string    `json:"ticket_id"`
	TicketTitle string    `json:"ticket_title"`
	StartTime   time.Time `json:"start_time"`
}

// EmployeeDashboard summarizes the caller's own tickets and time
type EmployeeDashboard struct {
	AssignedTicketsCount  int                 `json:"assigned_tickets_count"`
	InProgressCount       int                 `json:"in_progress_count"`
	CompletedTicketsCount int                 `json:"completed_tickets_count"`
	TicketsByStatus       map[string]int      `json:"tickets_by_status"`
	InProgressTickets     []DashboardTicket   `json:"in_progress_tickets"`
	RecentActivity        []DashboardActivity `json:"recent_activity"`
	TotalTimeLoggedHours  float64             `json:"total_time_logged_hours"`
	ActiveSession         *DashboardSession   `json:"active_session"`
	TicketsDueSoon        int                 `json:"tickets_due_soon"`
}

// ProjectTime is the logged time of one active project
type ProjectTime struct {
	ProjectID   int     `json:"project_id"`
	ProjectName string  `json:"project_name"`
	TotalHours  float64 `json:"total_hours"`
	TicketCount int     `json:"ticket_count"`
}

// Workload is one member's load in one project
type Workload struct {
	UserID          int    `json:"user_id"`
	UserName        string `json:"user_name"`
	ProjectID       int    `json:"project_id"`
	ProjectName     string `json:"project_name"`
	AssignedTickets int    `json:"assigned_tickets"`
	InProgress      int    `json:"in_progress"`
}

// RecentTicket is a ticket row on the manager dashboard
type RecentTicket struct {
	ID           int       `json:"id"`
	TicketID     string    `json:"ticket_id"`
	Title        string    `json:"title"`
	ProjectName  *string   `json:"project_name"`
	AssigneeName string    `json:"assignee_name"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	CreatedAt    time.Time `json:"created_at"`
}

// ManagerDashboard covers the projects the caller created or belongs to
type ManagerDashboard struct {
	TotalProjects     int            `json:"total_projects"`
	ActiveProjects    int            `json:"active_projects"`
	ArchivedProjects  int            `json:"archived_projects"`
	TotalTickets      int            `json:"total_tickets"`
	TicketsByStatus   map[string]int `json:"tickets_by_status"`
	TicketsByPriority map[string]int `json:"tickets_by_priority"`
	ProjectTimeData   []ProjectTime  `json:"project_time_data"`
	TeamWorkload      []Workload     `json:"team_workload"`
	RecentTickets     []RecentTicket `json:"recent_tickets"`
	UnassignedTickets int            `json:"unassigned_tickets"`
}

// AdminDashboard holds system-wide counters. Admin only.
type AdminDashboard struct {
	Users struct {
		Total  int            `json:"total"`
		Active int            `json:"active"`
		Recent int            `json:"recent"`
		ByRole map[string]int `json:"by_role"`
	} `json:"users"`
	Projects struct {
		Total    int `json:"total"`
		Active   int `json:"active"`
		Archived int `json:"archived"`
	} `json:"projects"`
	Tickets struct {
		Total    int            `json:"total"`
		Recent   int            `json:"recent"`
		ByStatus map[string]int `json:"by_status"`
	} `json:"tickets"`
	WorkLogs struct {
		Total      int     `json:"total"`
		TotalHours float64 `json:"total_hours"`
	} `json:"work_logs"`
	Activity struct {
		RecentCount int            `json:"recent_count"`
		ByType      map[string]int `json:"by_type"`
	} `json:"activity"`
}

// WeekCount is a weekly bucket
type WeekCount struct {
	Week  string `json:"week"`
	Count int    `json:"count"`
}

// DayHours is the time logged on one day
type DayHours struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
}

// EmployeeReports are the caller's trends over a period
type EmployeeReports struct {
	TicketsCreatedOverTime   []WeekCount `json:"tickets_created_over_time"`
	TicketsCompletedOverTime []WeekCount `json:"tickets_completed_over_time"`
	TimeByProject            []struct {
		ProjectName  string  `json:"project_name"`
		TotalHours   float64 `json:"total_hours"`
		SessionCount int     `json:"session_count"`
	} `json:"time_by_project"`
	Productivity struct {
		TotalAssigned      int     `json:"total_assigned"`
		TotalCompleted     int     `json:"total_completed"`
		CompletionRate     float64 `json:"completion_rate"`
		AvgResolutionHours float64 `json:"avg_resolution_hours"`
	} `json:"productivity"`
	TimeTrend            []DayHours     `json:"time_trend"`
	PriorityDistribution map[string]int `json:"priority_distribution"`
}

// MemberPerformance is one member's totals in a manager report
type MemberPerformance struct {
	UserID     int     `json:"user_id"`
	UserName   string  `json:"user_name"`
	Assigned   int     `json:"assigned"`
	Completed  int     `json:"completed"`
	InProgress int     `json:"in_progress"`
	TotalHours float64 `json:"total_hours"`
}

// ProjectProgress is the share of closed tickets in a project, in percent
type ProjectProgress struct {
	ProjectID    int     `json:"project_id"`
	ProjectName  string  `json:"project_name"`
	TotalTickets int     `json:"total_tickets"`
	Completed    int     `json:"completed"`
	Progress     float64 `json:"progress"`
}

// ManagerReports are team trends over a period. TicketTrends rows hold a "week" key plus
// one count per status.
type ManagerReports struct {
	TeamPerformance      []MemberPerformance      `json:"team_performance"`
	ProjectProgress      []ProjectProgress        `json:"project_progress"`
	TicketTrends         []map[string]interface{} `json:"ticket_trends"`
	ResolutionByPriority []struct {
		Priority string  `json:"priority"`
		AvgHours float64 `json:"avg_hours"`
		Count    int     `json:"count"`
	} `json:"resolution_by_priority"`
	PeriodDays int `json:"period_days"`
}

// ProjectHealth scores a project by its open and overdue tickets
type ProjectHealth struct {
	ProjectID    int     `json:"project_id"`
	ProjectName  string  `json:"project_name"`
	TotalTickets int     `json:"total_tickets"`
	OpenTickets  int     `json:"open_tickets"`
	Overdue      int     `json:"overdue"`
	HealthScore  float64 `json:"health_score"`
}

// AdminReports are system trends over a period. Admin only.
type AdminReports struct {
	UserActivityTrend []struct {
		Date  string `json:"date"`
		Count int    `json:"count"`
	} `json:"user_activity_trend"`
	TicketVolumeTrend []struct {
		Date    string `json:"date"`
		Created int    `json:"created"`
		Closed  int    `json:"closed"`
	} `json:"ticket_volume_trend"`
	ProjectHealth []ProjectHealth `json:"project_health"`
	TopPerformers []struct {
		UserID        int     `json:"user_id"`
		UserName      string  `json:"user_name"`
		TicketsClosed int     `json:"tickets_closed"`
		TotalHours    float64 `json:"total_hours"`
	} `json:"top_performers"`
	ActivityBreakdown map[string]int `json:"activity_breakdown"`
	PeriodDays        int            `json:"period_days"`
	Summary           struct {
		TotalUsers       int     `json:"total_users"`
		TotalProjects    int     `json:"total_projects"`
		TotalTickets     int     `json:"total_tickets"`
		TotalHoursLogged float64 `json:"total_hours_logged"`
	} `json:"summary"`
}
