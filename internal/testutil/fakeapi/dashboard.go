package fakeapi

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tickora-io/tickora/internal/types"
)

func hours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}

func displayName(u *types.User) string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return u.Username
}

func projectName(t *types.Ticket) *string {
	if t.ProjectName == "" {
		return nil
	}
	name := t.ProjectName
	return &name
}

func reportDays(c *gin.Context) int {
	days, err := strconv.Atoi(c.Query("days"))
	if err != nil || days <= 0 {
		return 30
	}
	return days
}

func (s *Server) loggedMinutesLocked(keep func(*types.WorkLog) bool) int {
	total := 0
	for _, wl := range s.workLogs {
		if wl.EndTime != nil && keep(wl) {
			total += wl.DurationMinutes
		}
	}
	return total
}

func (s *Server) handleEmployeeDashboard(c *gin.Context) {
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	d := types.EmployeeDashboard{
		TicketsByStatus:   map[string]int{},
		InProgressTickets: []types.DashboardTicket{},
		RecentActivity:    []types.DashboardActivity{},
	}
	weekAgo := s.now().Add(-7 * 24 * time.Hour)
	for _, t := range s.sortedTicketsLocked(func(t *types.Ticket) bool { return t.IsAssignedTo(user.ID) }) {
		d.AssignedTicketsCount++
		d.TicketsByStatus[t.Status]++
		switch t.Status {
		case "in_progress":
			d.InProgressCount++
			d.InProgressTickets = append(d.InProgressTickets, types.DashboardTicket{
				ID: t.ID, TicketID: t.TicketID, Title: t.Title, ProjectName: projectName(&t), Priority: t.Priority, CreatedAt: t.CreatedAt,
			})
		case "closed":
			d.CompletedTicketsCount++
		}
		if !t.CreatedAt.After(weekAgo) && (t.Status == "new" || t.Status == "in_progress" || t.Status == "qa") {
			d.TicketsDueSoon++
		}
	}
	for i := len(s.activity) - 1; i >= 0 && len(d.RecentActivity) < 10; i-- {
		a := s.activity[i]
		if a.User != nil && a.User.ID == user.ID {
			d.RecentActivity = append(d.RecentActivity, types.DashboardActivity{ID: a.ID, Action: a.Action, Description: a.Description, CreatedAt: a.CreatedAt})
		}
	}
	d.TotalTimeLoggedHours = hours(s.loggedMinutesLocked(func(wl *types.WorkLog) bool { return wl.User == user.ID }))
	for _, wl := range s.workLogs {
		if wl.User == user.ID && wl.EndTime == nil {
			if t, ok := s.tickets[wl.Ticket]; ok {
				d.ActiveSession = &types.DashboardSession{ID: t.ID, TicketID: t.TicketID, TicketTitle: t.Title, StartTime: wl.StartTime}
			}
			break
		}
	}
	c.JSON(http.StatusOK, d)
}

// managedProjectsLocked are the projects user created or belongs to, by id.
func (s *Server) managedProjectsLocked(user types.User) []*types.Project {
	var projects []*types.Project
	for _, p := range s.projects {
		if (p.CreatedBy != nil && p.CreatedBy.ID == user.ID) || p.HasMember(user.ID) {
			projects = append(projects, p)
		}
	}
	sort.Slice(projects, func(i, j int) bool { return projects[i].ID < projects[j].ID })
	return projects
}

func (s *Server) handleManagerDashboard(c *gin.Context) {
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	d := types.ManagerDashboard{
		TicketsByStatus:   map[string]int{},
		TicketsByPriority: map[string]int{},
		ProjectTimeData:   []types.ProjectTime{},
		TeamWorkload:      []types.Workload{},
		RecentTickets:     []types.RecentTicket{},
	}
	managed := s.managedProjectsLocked(user)
	inScope := map[int]bool{}
	for _, p := range managed {
		inScope[p.ID] = true
		d.TotalProjects++
		switch p.Status {
		case "active":
			d.ActiveProjects++
		case "archived":
			d.ArchivedProjects++
		}
	}

	tickets := s.sortedTicketsLocked(func(t *types.Ticket) bool { return inScope[t.Project] })
	for _, t := range tickets {
		d.TotalTickets++
		d.TicketsByStatus[t.Status]++
		d.TicketsByPriority[t.Priority]++
		if !t.IsAssigned() {
			d.UnassignedTickets++
		}
	}

	for _, p := range managed {
		if p.Status != "active" {
			continue
		}
		count := 0
		for _, t := range tickets {
			if t.Project == p.ID {
				count++
			}
		}
		pid := p.ID
		d.ProjectTimeData = append(d.ProjectTimeData, types.ProjectTime{
			ProjectID: p.ID, ProjectName: p.Name, TicketCount: count,
			TotalHours: hours(s.loggedMinutesLocked(func(wl *types.WorkLog) bool {
				t, ok := s.tickets[wl.Ticket]
				return ok && t.Project == pid
			})),
		})
		for _, m := range p.Members {
			w := types.Workload{UserID: m.User.ID, ProjectID: p.ID, ProjectName: p.Name, UserName: m.User.Username}
			if u, ok := s.users[m.User.ID]; ok {
				w.UserName = displayName(u)
			}
			for _, t := range tickets {
				if t.Project == p.ID && t.IsAssignedTo(m.User.ID) {
					w.AssignedTickets++
					if t.Status == "in_progress" {
						w.InProgress++
					}
				}
			}
			d.TeamWorkload = append(d.TeamWorkload, w)
		}
	}

	// Newest first, at most ten
	for i := len(tickets) - 1; i >= 0 && len(d.RecentTickets) < 10; i-- {
		t := tickets[i]
		assignee := "Unassigned"
		if t.Assignee != nil {
			if u, ok := s.users[*t.Assignee]; ok {
				assignee = strings.TrimSpace(u.FirstName + " " + u.LastName)
			}
		}
		d.RecentTickets = append(d.RecentTickets, types.RecentTicket{
			ID: t.ID, TicketID: t.TicketID, Title: t.Title, ProjectName: projectName(&t),
			AssigneeName: assignee, Status: t.Status, Priority: t.Priority, CreatedAt: t.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleAdminDashboard(c *gin.Context) {
	if currentUser(c).Role != types.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var d types.AdminDashboard
	weekAgo := s.now().Add(-7 * 24 * time.Hour)
	d.Users.ByRole = map[string]int{}
	for _, u := range s.users {
		d.Users.Total++
		d.Users.ByRole[u.Role]++
		if u.IsActive {
			d.Users.Active++
		}
		if !u.CreatedAt.Before(weekAgo) {
			d.Users.Recent++
		}
	}
	for _, p := range s.projects {
		d.Projects.Total++
		switch p.Status {
		case "active":
			d.Projects.Active++
		case "archived":
			d.Projects.Archived++
		}
	}
	d.Tickets.ByStatus = map[string]int{}
	for _, t := range s.tickets {
		d.Tickets.Total++
		d.Tickets.ByStatus[t.Status]++
		if !t.CreatedAt.Before(weekAgo) {
			d.Tickets.Recent++
		}
	}
	d.WorkLogs.Total = len(s.workLogs)
	d.WorkLogs.TotalHours = hours(s.loggedMinutesLocked(func(*types.WorkLog) bool { return true }))
	d.Activity.ByType = map[string]int{}
	for _, a := range s.activity {
		d.Activity.ByType[a.Action]++
		if !a.CreatedAt.Before(weekAgo) {
			d.Activity.RecentCount++
		}
	}
	c.JSON(http.StatusOK, d)
}

func (s *Server) handleEmployeeReports(c *gin.Context) {
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	assigned, completed := 0, 0
	var resolution time.Duration
	priorities := map[string]int{}
	for _, t := range s.tickets {
		if !t.IsAssignedTo(user.ID) {
			continue
		}
		assigned++
		priorities[t.Priority]++
		if t.Status == "closed" {
			completed++
			if t.ClosedAt != nil {
				resolution += t.ClosedAt.Sub(t.CreatedAt)
			}
		}
	}
	rate, avg := 0.0, 0.0
	if assigned > 0 {
		rate = math.Round(float64(completed)/float64(assigned)*1000) / 10
	}
	if completed > 0 {
		avg = math.Round(resolution.Hours()/float64(completed)*10) / 10
	}
	c.JSON(http.StatusOK, gin.H{
		"tickets_created_over_time":   []gin.H{},
		"tickets_completed_over_time": []gin.H{},
		"time_by_project":             []gin.H{},
		"productivity": gin.H{
			"total_assigned":       assigned,
			"total_completed":      completed,
			"completion_rate":      rate,
			"avg_resolution_hours": avg,
		},
		"time_trend":            []gin.H{},
		"priority_distribution": priorities,
	})
}

func (s *Server) handleManagerReports(c *gin.Context) {
	user := currentUser(c)
	if !privileged(user) {
		forbidden(c)
		return
	}
	days := reportDays(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	progress := []types.ProjectProgress{}
	for _, p := range s.managedProjectsLocked(user) {
		row := types.ProjectProgress{ProjectID: p.ID, ProjectName: p.Name}
		for _, t := range s.tickets {
			if t.Project != p.ID {
				continue
			}
			row.TotalTickets++
			if t.Status == "closed" {
				row.Completed++
			}
		}
		if row.TotalTickets > 0 {
			row.Progress = math.Round(float64(row.Completed)/float64(row.TotalTickets)*1000) / 10
		}
		progress = append(progress, row)
	}
	c.JSON(http.StatusOK, gin.H{
		"team_performance":       []gin.H{},
		"project_progress":       progress,
		"ticket_trends":          []gin.H{},
		"resolution_by_priority": []gin.H{},
		"period_days":            days,
	})
}

func (s *Server) handleAdminReports(c *gin.Context) {
	if currentUser(c).Role != types.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "Permission denied"})
		return
	}
	days := reportDays(c)
	s.mu.Lock()
	defer s.mu.Unlock()

	breakdown := map[string]int{}
	for _, a := range s.activity {
		breakdown[a.Action]++
	}
	c.JSON(http.StatusOK, gin.H{
		"user_activity_trend": []gin.H{},
		"ticket_volume_trend": []gin.H{},
		"project_health":      []gin.H{},
		"top_performers":      []gin.H{},
		"activity_breakdown":  breakdown,
		"period_days":         days,
		"summary": gin.H{
			"total_users":        len(s.users),
			"total_projects":     len(s.projects),
			"total_tickets":      len(s.tickets),
			"total_hours_logged": hours(s.loggedMinutesLocked(func(*types.WorkLog) bool { return true })),
		},
	})
}
