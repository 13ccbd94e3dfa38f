package fakeapi

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tickora-io/tickora/internal/types"
)

// backendTransitions mirrors the server-side table, which is looser than the client's:
// a reopened ticket may also go back to new.
var backendTransitions = map[string][]string{
	"new":         {"in_progress"},
	"in_progress": {"qa"},
	"qa":          {"closed"},
	"closed":      {"reopened"},
	"reopened":    {"new", "in_progress"},
}

func (s *Server) routes(api *gin.RouterGroup) {
	auth := api.Group("/auth")
	auth.POST("/login/", s.handleLogin)
	auth.POST("/token/refresh/", s.handleRefresh)
	auth.GET("/profile/", s.handleProfile)
	auth.GET("/users/", s.handleUsers)
	auth.POST("/users/", s.adminOnly(s.handleCreateUser))
	auth.GET("/users/:id/", s.handleUser)
	auth.PATCH("/users/:id/", s.adminOnly(s.handleUpdateUser))
	auth.DELETE("/users/:id/", s.adminOnly(s.handleDeleteUser))
	auth.POST("/users/:id/deactivate/", s.adminOnly(s.handleDeactivateUser))
	auth.GET("/department-roles/", s.handleListRoles)
	auth.POST("/department-roles/", s.adminOnly(s.handleCreateRole))
	auth.PATCH("/department-roles/:id/", s.adminOnly(s.handleUpdateRole))
	auth.DELETE("/department-roles/:id/", s.adminOnly(s.handleDeleteRole))

	dashboard := api.Group("/dashboard")
	dashboard.GET("/employee/", s.handleEmployeeDashboard)
	dashboard.GET("/manager/", s.handleManagerDashboard)
	dashboard.GET("/admin/", s.handleAdminDashboard)
	dashboard.GET("/reports/employee/", s.handleEmployeeReports)
	dashboard.GET("/reports/manager/", s.handleManagerReports)
	dashboard.GET("/reports/admin/", s.handleAdminReports)

	tickets := api.Group("/tickets/tickets")
	tickets.GET("/", s.handleListTickets)
	tickets.POST("/", s.handleCreateTicket)
	tickets.GET("/my_tickets/", s.handleMyTickets)
	tickets.GET("/by_project/", s.handleTicketsByProject)
	tickets.GET("/:id/", s.handleGetTicket)
	tickets.PATCH("/:id/", s.handleUpdateTicket)
	tickets.DELETE("/:id/", s.handleDeleteTicket)
	tickets.PATCH("/:id/update_status/", s.handleUpdateStatus)
	tickets.POST("/:id/self_assign/", s.handleSelfAssign)
	tickets.POST("/:id/assign/", s.handleAssign)

	worklogs := api.Group("/timelogs/worklogs")
	worklogs.GET("/", s.handleListWorkLogs)
	worklogs.GET("/ticket_active_session/", s.handleActiveSession)
	worklogs.GET("/total_time/", s.handleTotalTime)
	worklogs.POST("/start_work/", s.handleStartWork)
	worklogs.POST("/:id/stop_work/", s.handleStopWork)

	projects := api.Group("/projects/projects")
	projects.GET("/", s.handleListProjects)
	projects.GET("/my_projects/", s.handleMyProjects)
	projects.GET("/:id/", s.handleGetProject)

	api.GET("/comments/by_ticket/", s.handleCommentsByTicket)
	api.POST("/comments/", s.handleCreateComment)
	api.DELETE("/comments/:id/", s.handleDeleteComment)
	api.GET("/activity/by_ticket/", s.handleActivityByTicket)
	api.GET("/activity/recent/", s.handleRecentActivity)

	attendance := api.Group("/attendance")
	attendance.GET("/attendance/me/", s.handleMyAttendance)
	attendance.POST("/attendance/", s.handleToggleAttendance)
	attendance.GET("/attendance/team/", s.handleTeamAttendance)
	attendance.GET("/attendance/stats/", s.handleAttendanceStats)
	attendance.GET("/leave-requests/", s.handleListLeave)
	attendance.GET("/leave-requests/my/", s.handleMyLeave)
	attendance.POST("/leave-requests/", s.handleCreateLeave)
	attendance.POST("/leave-requests/:id/approve/", s.handleDecideLeave("approved"))
	attendance.POST("/leave-requests/:id/reject/", s.handleDecideLeave("rejected"))
	attendance.DELETE("/leave-requests/:id/", s.handleDeleteLeave)

	api.GET("/calendar/events/range/", s.handleEventRange)
	api.POST("/calendar/events/", s.handleCreateEvent)
	api.DELETE("/calendar/events/:id/", s.handleDeleteEvent)

	todos := api.Group("/todos/todos")
	todos.GET("/", s.handleListTodos)
	todos.POST("/", s.handleCreateTodo)
	todos.POST("/:id/complete/", s.handleTodoState(true))
	todos.POST("/:id/reopen/", s.handleTodoState(false))
	todos.DELETE("/:id/", s.handleDeleteTodo)
}

func pathID(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Query(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " parameter is required"})
		return 0, false
	}
	return id, true
}

func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
}

func forbidden(c *gin.Context) {
	c.JSON(http.StatusForbidden, gin.H{"detail": "You do not have permission to perform this action."})
}

func privileged(u types.User) bool {
	return u.Role == types.RoleAdmin || u.Role == types.RoleManager
}

func pythonList(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = "'" + item + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// Auth

func (s *Server) handleLogin(c *gin.Context) {
	var req types.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Username == "" || req.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Username and password are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	password, ok := s.passwords[req.Username]
	user := s.userByNameLocked(req.Username)
	if !ok || password != req.Password || user == nil || !user.IsActive {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "No active account found with the given credentials"})
		return
	}
	access, refresh := s.issueLocked(user.ID)
	c.JSON(http.StatusOK, types.LoginResponse{User: *user, Access: access, Refresh: refresh})
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req types.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"refresh": []string{"This field is required."}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	uid, ok := s.refresh[req.Refresh]
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}
	delete(s.refresh, req.Refresh)
	access, refresh := s.issueLocked(uid)
	c.JSON(http.StatusOK, types.RefreshResponse{Access: access, Refresh: refresh})
}

func (s *Server) handleProfile(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}

func (s *Server) handleUsers(c *gin.Context) {
	caller := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]types.User, 0, len(s.users))
	for _, u := range s.users {
		// Only admins see deactivated accounts
		if u.IsActive || caller.Role == types.RoleAdmin {
			users = append(users, *u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	c.JSON(http.StatusOK, gin.H{"count": len(users), "results": users})
}

func (s *Server) handleUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u, found := s.users[id]
	if !found {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, u)
}

// Tickets

func (s *Server) sortedTicketsLocked(keep func(*types.Ticket) bool) []types.Ticket {
	out := []types.Ticket{}
	for _, t := range s.tickets {
		if keep(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) handleListTickets(c *gin.Context) {
	status, priority, kind := c.Query("status"), c.Query("priority"), c.Query("type")
	project, _ := strconv.Atoi(c.Query("project"))
	search := strings.ToLower(c.Query("search"))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.sortedTicketsLocked(func(t *types.Ticket) bool {
		return (status == "" || t.Status == status) &&
			(priority == "" || t.Priority == priority) &&
			(kind == "" || t.Type == kind) &&
			(project == 0 || t.Project == project) &&
			(search == "" || strings.Contains(strings.ToLower(t.Title+" "+t.TicketID), search))
	})
	// Paginated envelope, as the list endpoint returns.
	c.JSON(http.StatusOK, gin.H{"count": len(out), "next": nil, "previous": nil, "results": out})
}

func (s *Server) handleMyTickets(c *gin.Context) {
	uid := currentUser(c).ID
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.sortedTicketsLocked(func(t *types.Ticket) bool { return t.IsAssignedTo(uid) }))
}

func (s *Server) handleTicketsByProject(c *gin.Context) {
	pid, ok := queryID(c, "project_id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.sortedTicketsLocked(func(t *types.Ticket) bool { return t.Project == pid }))
}

func (s *Server) handleGetTicket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.tickets[id]
	if !found {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleCreateTicket(c *gin.Context) {
	var req types.TicketCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"title": []string{"This field is required."}})
		return
	}
	user := currentUser(c)
	t := s.AddTicket(types.Ticket{
		Title: req.Title, Description: req.Description, Type: req.Type, Priority: req.Priority,
		Project: req.Project, Assignee: req.Assignee, CreatedBy: user.Username, CreatedByID: user.ID,
	})
	s.mu.Lock()
	s.logActivityLocked(user, "create", t, fmt.Sprintf("Created ticket %s: %s", t.TicketID, t.Title), nil)
	s.mu.Unlock()
	c.JSON(http.StatusCreated, t)
}

func (s *Server) handleUpdateTicket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req types.TicketUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "JSON parse error"})
		return
	}
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.tickets[id]
	if !found {
		notFound(c)
		return
	}
	if !privileged(user) && !t.IsAssignedTo(user.ID) && t.CreatedByID != user.ID {
		forbidden(c)
		return
	}
	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Type != nil {
		t.Type = *req.Type
	}
	if req.Priority != nil {
		t.Priority = *req.Priority
	}
	t.UpdatedAt = s.now()
	s.logActivityLocked(user, "update", t, fmt.Sprintf("Updated ticket %s", t.TicketID), nil)
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleDeleteTicket(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.tickets[id]; !found {
		notFound(c)
		return
	}
	delete(s.tickets, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req types.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"status": []string{"This field is required."}})
		return
	}
	user := currentUser(c)

	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.tickets[id]
	if !found {
		notFound(c)
		return
	}
	if _, known := backendTransitions[req.Status]; !known {
		c.JSON(http.StatusBadRequest, gin.H{"status": []string{fmt.Sprintf("\"%s\" is not a valid choice.", req.Status)}})
		return
	}
	if !privileged(user) && !t.IsAssignedTo(user.ID) {
		forbidden(c)
		return
	}
	old := t.Status
	valid := backendTransitions[old]
	allowed := false
	for _, v := range valid {
		if v == req.Status {
			allowed = true
		}
	}
	if !allowed {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": fmt.Sprintf("Cannot transition from %s to %s. Valid transitions: %s", old, req.Status, pythonList(valid)),
		})
		return
	}

	now := s.now()
	switch {
	case req.Status == "closed":
		if wl := s.activeLogLocked(t.ID); wl != nil {
			s.closeLogLocked(wl)
		}
	case req.Status == "in_progress" && (old == "new" || old == "reopened"):
		if s.activeLogLocked(t.ID) == nil {
			s.openLogLocked(t.ID, user.ID, now)
		}
	case req.Status == "reopened" && old == "closed":
		s.openLogLocked(t.ID, user.ID, now)
	}

	t.Status = req.Status
	t.UpdatedAt = now
	switch req.Status {
	case "in_progress":
		if t.InProgressAt == nil {
			t.InProgressAt = &now
		}
	case "qa":
		if t.QAAt == nil {
			t.QAAt = &now
		}
	case "closed":
		if t.ClosedAt == nil {
			t.ClosedAt = &now
		}
	}
	s.logActivityLocked(user, "status_change", t,
		fmt.Sprintf("Changed ticket %s status from '%s' to '%s'", t.TicketID, old, req.Status),
		map[string]interface{}{"old_status": old, "new_status": req.Status})
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleSelfAssign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.tickets[id]
	if !found {
		notFound(c)
		return
	}
	if t.Status == "closed" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Closed tickets cannot be assigned"})
		return
	}
	if t.IsAssigned() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Ticket is already assigned"})
		return
	}
	uid := user.ID
	s.setAssigneeLocked(t, &uid)
	t.UpdatedAt = s.now()
	s.logActivityLocked(user, "assign", t, fmt.Sprintf("Self-assigned ticket %s", t.TicketID), nil)
	c.JSON(http.StatusOK, t)
}

func (s *Server) handleAssign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req types.AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user_id is required"})
		return
	}
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.tickets[id]
	if !found {
		notFound(c)
		return
	}
	if t.Status == "closed" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Closed tickets cannot be assigned"})
		return
	}
	member := false
	if p, ok := s.projects[t.Project]; ok {
		member = p.HasMember(user.ID)
	}
	if !privileged(user) && t.CreatedByID != user.ID && t.CreatedBy != user.Username && !member {
		forbidden(c)
		return
	}
	target, exists := s.users[req.UserID]
	if !exists {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User not found"})
		return
	}
	uid := target.ID
	s.setAssigneeLocked(t, &uid)
	t.UpdatedAt = s.now()
	s.logActivityLocked(user, "assign", t, fmt.Sprintf("Assigned ticket %s to %s", t.TicketID, target.Username), nil)
	c.JSON(http.StatusOK, t)
}

// Work logs

func (s *Server) handleListWorkLogs(c *gin.Context) {
	ticketID, _ := strconv.Atoi(c.Query("ticket_id"))
	userID, _ := strconv.Atoi(c.Query("user_id"))
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.WorkLog{}
	for _, wl := range s.workLogs {
		if (ticketID == 0 || wl.Ticket == ticketID) && (userID == 0 || wl.User == userID) {
			out = append(out, *wl)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleActiveSession(c *gin.Context) {
	ticketID, ok := queryID(c, "ticket_id")
	if !ok {
		return
	}
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, found := s.tickets[ticketID]
	if !found {
		c.JSON(http.StatusOK, types.ActiveSession{Active: false, Error: "Ticket not found"})
		return
	}
	if !privileged(user) && !t.IsAssignedTo(user.ID) {
		c.JSON(http.StatusOK, types.ActiveSession{Active: false, Error: "Permission denied"})
		return
	}
	wl := s.activeLogLocked(ticketID)
	if wl == nil {
		c.JSON(http.StatusOK, gin.H{"active": false})
		return
	}
	elapsed := int64(s.now().Sub(wl.StartTime) / time.Second)
	cp := *wl
	c.JSON(http.StatusOK, types.ActiveSession{
		Active:           true,
		WorkLog:          &cp,
		ElapsedSeconds:   elapsed,
		ElapsedFormatted: fmt.Sprintf("%02d:%02d:%02d", elapsed/3600, (elapsed%3600)/60, elapsed%60),
		UserID:           wl.User,
		UserName:         wl.UserName,
	})
}

func (s *Server) handleTotalTime(c *gin.Context) {
	ticketID, ok := queryID(c, "ticket_id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	total, count := 0, 0
	for _, wl := range s.workLogs {
		if wl.Ticket == ticketID && wl.EndTime != nil {
			total += wl.DurationMinutes
			count++
		}
	}
	c.JSON(http.StatusOK, types.TotalTime{
		TicketID:     strconv.Itoa(ticketID),
		TotalMinutes: total,
		TotalHours:   float64(total*100/60) / 100,
		WorkLogCount: count,
	})
}

func (s *Server) handleStartWork(c *gin.Context) {
	var req types.StartWorkRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.TicketID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket_id is required"})
		return
	}
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, wl := range s.workLogs {
		if wl.User == user.ID && wl.EndTime == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "You already have an active work session", "active_work_log": wl})
			return
		}
	}
	wl := s.openLogLocked(req.TicketID, user.ID, s.now())
	wl.Notes = req.Notes
	c.JSON(http.StatusCreated, wl)
}

func (s *Server) handleStopWork(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, wl := range s.workLogs {
		if wl.ID != id {
			continue
		}
		if wl.EndTime != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "This work log has already been stopped"})
			return
		}
		if wl.User != user.ID {
			c.JSON(http.StatusForbidden, gin.H{"error": "You can only stop your own work sessions"})
			return
		}
		s.closeLogLocked(wl)
		c.JSON(http.StatusOK, wl)
		return
	}
	notFound(c)
}

// Projects, comments, activity

func (s *Server) handleListProjects(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.Project{}
	for _, p := range s.projects {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleMyProjects(c *gin.Context) {
	uid := currentUser(c).ID
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.Project{}
	for _, p := range s.projects {
		if p.HasMember(uid) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetProject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.projects[id]
	if !found {
		notFound(c)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleCommentsByTicket(c *gin.Context) {
	ticketID, ok := queryID(c, "ticket_id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.Comment{}
	for _, cm := range s.comments {
		if cm.Ticket == ticketID {
			out = append(out, *cm)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateComment(c *gin.Context) {
	var req types.CommentCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"content": []string{"This field may not be blank."}})
		return
	}
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.tickets[req.Ticket]; !found {
		c.JSON(http.StatusBadRequest, gin.H{"ticket": []string{"Invalid pk - object does not exist."}})
		return
	}
	ref := userRef(&user)
	cm := &types.Comment{ID: s.id(), Ticket: req.Ticket, Author: &ref, AuthorName: user.Username,
		Content: req.Content, CreatedAt: s.now(), UpdatedAt: s.now()}
	s.comments = append(s.comments, cm)
	c.JSON(http.StatusCreated, cm)
}

func (s *Server) handleDeleteComment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cm := range s.comments {
		if cm.ID != id {
			continue
		}
		if !privileged(user) && (cm.Author == nil || cm.Author.ID != user.ID) {
			forbidden(c)
			return
		}
		s.comments = append(s.comments[:i], s.comments[i+1:]...)
		c.Status(http.StatusNoContent)
		return
	}
	notFound(c)
}

func (s *Server) handleActivityByTicket(c *gin.Context) {
	ticketID, ok := queryID(c, "ticket_id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.ActivityLog{}
	for i := len(s.activity) - 1; i >= 0; i-- {
		a := s.activity[i]
		if a.TargetID != nil && *a.TargetID == ticketID {
			out = append(out, *a)
		}
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleRecentActivity(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil || limit <= 0 {
		limit = 10
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.ActivityLog{}
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *s.activity[i])
	}
	c.JSON(http.StatusOK, out)
}

// Attendance and leave

func (s *Server) attendanceLocked(user types.User) *types.Attendance {
	a, ok := s.attendance[user.ID]
	if !ok {
		a = &types.Attendance{
			ID: s.id(), Employee: userRef(&user), Date: s.now().Format("2006-01-02"), Status: "neutral",
			CurrentAvailability: "unavailable", VisibilityStatus: "unavailable", CanToggleStatus: true,
			CreatedAt: s.now(),
		}
		s.attendance[user.ID] = a
	}
	return a
}

func (s *Server) handleMyAttendance(c *gin.Context) {
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.attendanceLocked(user))
}

func (s *Server) handleToggleAttendance(c *gin.Context) {
	var req types.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil || (req.Status != "available" && req.Status != "unavailable") {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Status must be 'available' or 'unavailable'"})
		return
	}
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.attendanceLocked(user)
	now := s.now()
	a.CurrentAvailability = req.Status
	a.VisibilityStatus = req.Status
	a.IsAvailable = req.Status == "available"
	a.LastChangedAt = &now
	if a.IsAvailable {
		a.Status = "present"
		if a.FirstAvailableAt == nil {
			a.FirstAvailableAt = &now
		}
	}
	a.DailyLogs = append(a.DailyLogs, types.AttendanceLog{
		ID: s.id(), Status: req.Status, Timestamp: now, TimeDisplay: now.Format("15:04"),
	})
	c.JSON(http.StatusOK, a)
}

func (s *Server) handleTeamAttendance(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.TeamAttendance{}
	for _, u := range s.users {
		a := s.attendanceLocked(*u)
		out = append(out, types.TeamAttendance{
			ID: a.ID, EmployeeName: strings.TrimSpace(u.FirstName + " " + u.LastName), EmployeeUsername: u.Username,
			EmployeeRole: u.Role, Date: a.Date, Status: a.Status, CurrentAvailability: a.CurrentAvailability,
			IsAvailable: a.IsAvailable, VisibilityStatus: a.VisibilityStatus,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EmployeeUsername < out[j].EmployeeUsername })
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleAttendanceStats(c *gin.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stats != nil {
		c.JSON(http.StatusOK, s.stats)
		return
	}
	c.JSON(http.StatusOK, types.AttendanceStats{Range: types.DateRange{Start: c.Query("start_date"), End: c.Query("end_date")}})
}

func (s *Server) leaveListLocked(keep func(*types.LeaveRequest) bool) []types.LeaveRequest {
	out := []types.LeaveRequest{}
	for _, lr := range s.leave {
		if keep(lr) {
			out = append(out, *lr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) handleListLeave(c *gin.Context) {
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.leaveListLocked(func(lr *types.LeaveRequest) bool {
		return privileged(user) || lr.Employee.ID == user.ID
	}))
}

func (s *Server) handleMyLeave(c *gin.Context) {
	uid := currentUser(c).ID
	s.mu.Lock()
	defer s.mu.Unlock()
	c.JSON(http.StatusOK, s.leaveListLocked(func(lr *types.LeaveRequest) bool { return lr.Employee.ID == uid }))
}

func (s *Server) handleCreateLeave(c *gin.Context) {
	var req types.LeaveCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.StartDate == "" || req.EndDate == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_date and end_date are required"})
		return
	}
	if req.EndDate < req.StartDate {
		c.JSON(http.StatusBadRequest, gin.H{"non_field_errors": []string{"End date must be after start date"}})
		return
	}
	user := currentUser(c)
	lr := s.AddLeaveRequest(user.ID, req.StartDate, req.EndDate, req.Message)
	c.JSON(http.StatusCreated, lr)
}

func (s *Server) handleDecideLeave(decision string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		user := currentUser(c)
		if !privileged(user) {
			forbidden(c)
			return
		}
		var req types.LeaveRejectRequest
		_ = c.ShouldBindJSON(&req)
		s.mu.Lock()
		defer s.mu.Unlock()
		lr, found := s.leave[id]
		if !found {
			notFound(c)
			return
		}
		if lr.Status != "pending" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only pending requests can be " + decision})
			return
		}
		now := s.now()
		ref := userRef(&user)
		lr.Status = decision
		lr.ApprovedBy = &ref
		lr.ApprovedAt = &now
		lr.RejectionReason = req.Reason
		lr.UpdatedAt = now
		c.JSON(http.StatusOK, gin.H{"message": "Leave request " + decision})
	}
}

func (s *Server) handleDeleteLeave(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	lr, found := s.leave[id]
	if !found {
		notFound(c)
		return
	}
	if lr.Employee.ID != user.ID && !privileged(user) {
		forbidden(c)
		return
	}
	delete(s.leave, id)
	c.Status(http.StatusNoContent)
}

// Calendar and todos

func (s *Server) handleEventRange(c *gin.Context) {
	start, end := c.Query("start"), c.Query("end")
	if start == "" || end == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end parameters are required"})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.CalendarEvent{}
	for _, ev := range s.events {
		if ev.Date >= start && ev.Date <= end {
			out = append(out, *ev)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date == out[j].Date {
			return out[i].ID < out[j].ID
		}
		return out[i].Date < out[j].Date
	})
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateEvent(c *gin.Context) {
	var req types.CalendarEventRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" || req.Date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title and date are required"})
		return
	}
	user := currentUser(c)
	s.mu.Lock()
	defer s.mu.Unlock()
	ref := userRef(&user)
	ev := &types.CalendarEvent{
		ID: s.id(), Title: req.Title, Description: req.Description, Date: req.Date, Category: req.Category,
		Color: req.Color, IsFullDay: req.IsFullDay, StartTime: req.StartTime, EndTime: req.EndTime,
		CreatedBy: &ref, CreatedAt: s.now(), UpdatedAt: s.now(),
	}
	s.events[ev.ID] = ev
	c.JSON(http.StatusCreated, ev)
}

func (s *Server) handleDeleteEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.events[id]; !found {
		notFound(c)
		return
	}
	delete(s.events, id)
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListTodos(c *gin.Context) {
	status := c.Query("status")
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []types.Todo{}
	for _, td := range s.todos {
		if status == "" || td.Status == status {
			out = append(out, *td)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	c.JSON(http.StatusOK, gin.H{"count": len(out), "results": out})
}

func (s *Server) handleCreateTodo(c *gin.Context) {
	var req types.TodoRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"title": []string{"This field is required."}})
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	priority := req.Priority
	if priority == "" {
		priority = "medium"
	}
	td := &types.Todo{
		ID: s.id(), Title: req.Title, Description: req.Description, Priority: priority, Status: "pending",
		DueDate: req.DueDate, CreatedAt: s.now(), UpdatedAt: s.now(),
	}
	s.todos[td.ID] = td
	c.JSON(http.StatusCreated, td)
}

func (s *Server) handleTodoState(completed bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		td, found := s.todos[id]
		if !found {
			notFound(c)
			return
		}
		now := s.now()
		td.IsCompleted = completed
		td.UpdatedAt = now
		if completed {
			td.Status = "completed"
			td.CompletedAt = &now
		} else {
			td.Status = "pending"
			td.CompletedAt = nil
		}
		c.JSON(http.StatusOK, td)
	}
}

func (s *Server) handleDeleteTodo(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.todos[id]; !found {
		notFound(c)
		return
	}
	delete(s.todos, id)
	c.Status(http.StatusNoContent)
}
