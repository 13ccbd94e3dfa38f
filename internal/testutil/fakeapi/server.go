// Package fakeapi is an in-memory stand-in for the tickora REST backend, served by gin
// through httptest. It applies the backend's ticket rules so client code can be tested
// end to end without the real service.
package fakeapi

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/tickora-io/tickora/internal/types"
)

const signingKey = "fakeapi-signing-key"

type failure struct {
	status int
	body   gin.H
}

// Server holds the fake backend state.
type Server struct {
	mu sync.Mutex

	engine *gin.Engine
	http   *httptest.Server
	now    func() time.Time

	users     map[int]*types.User
	passwords map[string]string
	access    map[string]int
	refresh   map[string]int
	tokenSeq  int

	tickets    map[int]*types.Ticket
	projects   map[int]*types.Project
	workLogs   []*types.WorkLog
	comments   []*types.Comment
	activity   []*types.ActivityLog
	attendance map[int]*types.Attendance
	leave      map[int]*types.LeaveRequest
	events     map[int]*types.CalendarEvent
	todos      map[int]*types.Todo
	roles      map[int]*types.DepartmentRole
	stats      *types.AttendanceStats
	nextID     int

	calls    map[string]int
	gates    map[string]chan struct{}
	failures map[string][]failure
}

// New builds a server with an empty store. Call Start or use Handler directly.
func New() *Server {
	gin.SetMode(gin.TestMode)
	s := &Server{
		now:        time.Now,
		users:      make(map[int]*types.User),
		passwords:  make(map[string]string),
		access:     make(map[string]int),
		refresh:    make(map[string]int),
		tickets:    make(map[int]*types.Ticket),
		projects:   make(map[int]*types.Project),
		attendance: make(map[int]*types.Attendance),
		leave:      make(map[int]*types.LeaveRequest),
		events:     make(map[int]*types.CalendarEvent),
		todos:      make(map[int]*types.Todo),
		roles:      make(map[int]*types.DepartmentRole),
		calls:      make(map[string]int),
		gates:      make(map[string]chan struct{}),
		failures:   make(map[string][]failure),
		nextID:     100,
	}
	s.engine = gin.New()
	s.engine.Use(s.control())
	s.routes(s.engine.Group("/api"))
	return s
}

// Start serves a new fake backend for the duration of the test.
func Start(t testing.TB) *Server {
	t.Helper()
	s := New()
	s.http = httptest.NewServer(s.engine)
	t.Cleanup(func() {
		s.releaseAll()
		s.http.Close()
	})
	return s
}

// Handler exposes the gin engine.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// URL is the API base URL, including the /api prefix.
func (s *Server) URL() string {
	if s.http == nil {
		return ""
	}
	return s.http.URL + "/api"
}

// SetClock overrides the time source used for timestamps and elapsed times.
func (s *Server) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Server) id() int {
	s.nextID++
	return s.nextID
}

// AddUser registers a user who can log in with password.
func (s *Server) AddUser(user types.User, password string) *types.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.id()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
		user.UpdatedAt = user.CreatedAt
	}
	user.IsActive = true
	u := user
	s.users[u.ID] = &u
	s.passwords[u.Username] = password
	cp := u
	return &cp
}

// IssueTokens mints a token pair for userID as the login endpoint would.
func (s *Server) IssueTokens(userID int) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked(userID)
}

func (s *Server) issueLocked(userID int) (string, string) {
	s.tokenSeq++
	now := s.now()
	sign := func(kind string, ttl time.Duration) string {
		claims := jwt.RegisteredClaims{
			Subject:   strconv.Itoa(userID),
			ID:        fmt.Sprintf("%s-%d", kind, s.tokenSeq),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
		if err != nil {
			panic(err)
		}
		return token
	}
	access := sign("access", time.Hour)
	refresh := sign("refresh", 24*time.Hour)
	s.access[access] = userID
	s.refresh[refresh] = userID
	return access, refresh
}

// RevokeAccess invalidates every access token, forcing clients through refresh.
func (s *Server) RevokeAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = make(map[string]int)
}

// RevokeRefresh invalidates every refresh token.
func (s *Server) RevokeRefresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refresh = make(map[string]int)
}

// AddProject stores a project with the given members.
func (s *Server) AddProject(name string, memberIDs ...int) *types.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := &types.Project{ID: s.id(), Name: name, Status: "active", CreatedAt: s.now(), UpdatedAt: s.now()}
	for _, uid := range memberIDs {
		if u, ok := s.users[uid]; ok {
			p.Members = append(p.Members, types.ProjectMember{ID: s.id(), User: userRef(u), JoinedAt: s.now()})
		}
	}
	p.MemberCount = len(p.Members)
	s.projects[p.ID] = p
	cp := *p
	return &cp
}

// AddTicket stores a ticket. Zero fields get backend defaults.
func (s *Server) AddTicket(t types.Ticket) *types.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == 0 {
		t.ID = s.id()
	}
	if t.Status == "" {
		t.Status = "new"
	}
	if t.TicketID == "" {
		t.TicketID = fmt.Sprintf("TKT-%s-%04d", s.now().Format("20060102"), t.ID)
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now()
		t.UpdatedAt = t.CreatedAt
	}
	if p, ok := s.projects[t.Project]; ok {
		t.ProjectName = p.Name
	}
	s.setAssigneeLocked(&t, t.Assignee)
	stored := t
	s.tickets[t.ID] = &stored
	cp := stored
	return &cp
}

// Ticket returns a copy of the stored ticket.
func (s *Server) Ticket(id int) (types.Ticket, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tickets[id]
	if !ok {
		return types.Ticket{}, false
	}
	return *t, true
}

// StartWorkLog opens a work log as if userID started work at start.
func (s *Server) StartWorkLog(ticketID, userID int, start time.Time) *types.WorkLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.openLogLocked(ticketID, userID, start)
}

// WorkLogs returns copies of the logs recorded against a ticket.
func (s *Server) WorkLogs(ticketID int) []types.WorkLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []types.WorkLog
	for _, wl := range s.workLogs {
		if wl.Ticket == ticketID {
			out = append(out, *wl)
		}
	}
	return out
}

// ActivityCount returns how many activity entries a ticket has.
func (s *Server) ActivityCount(ticketID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, a := range s.activity {
		if a.TargetID != nil && *a.TargetID == ticketID {
			n++
		}
	}
	return n
}

// SetAttendanceStats fixes the response of the stats endpoint.
func (s *Server) SetAttendanceStats(stats types.AttendanceStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats = &stats
}

// AddLeaveRequest stores a pending leave request for userID.
func (s *Server) AddLeaveRequest(userID int, start, end, message string) *types.LeaveRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	lr := &types.LeaveRequest{
		ID: s.id(), StartDate: start, EndDate: end, Message: message, Status: "pending",
		CreatedAt: s.now(), UpdatedAt: s.now(), DurationDays: 1,
	}
	if u, ok := s.users[userID]; ok {
		lr.Employee = userRef(u)
	}
	s.leave[lr.ID] = lr
	cp := *lr
	return &cp
}

// Calls reports how many requests hit method and path. path excludes the /api prefix.
func (s *Server) Calls(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[callKey(method, "/api"+path)]
}

// FailNext makes the next request to method and path fail with status and body.
func (s *Server) FailNext(method, path string, status int, body gin.H) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := callKey(method, "/api"+path)
	s.failures[key] = append(s.failures[key], failure{status: status, body: body})
}

// Gate holds requests to method and path until the returned release is called.
func (s *Server) Gate(method, path string) (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := callKey(method, "/api"+path)
	ch := make(chan struct{})
	s.gates[key] = ch
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			owned := s.gates[key] == ch
			if owned {
				delete(s.gates, key)
			}
			s.mu.Unlock()
			if owned {
				close(ch)
			}
		})
	}
}

func (s *Server) releaseAll() {
	s.mu.Lock()
	gates := s.gates
	s.gates = make(map[string]chan struct{})
	s.mu.Unlock()
	for _, ch := range gates {
		close(ch)
	}
}

func callKey(method, path string) string {
	return method + " " + path
}

// control counts calls, applies gates and injected failures, then authenticates.
func (s *Server) control() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := callKey(c.Request.Method, c.Request.URL.Path)

		s.mu.Lock()
		s.calls[key]++
		gate := s.gates[key]
		var injected *failure
		if queue := s.failures[key]; len(queue) > 0 {
			injected = &queue[0]
			s.failures[key] = queue[1:]
		}
		s.mu.Unlock()

		if gate != nil {
			select {
			case <-gate:
			case <-c.Request.Context().Done():
				c.Abort()
				return
			}
		}
		if injected != nil {
			c.AbortWithStatusJSON(injected.status, injected.body)
			return
		}

		if isPublic(c.Request.URL.Path) {
			c.Next()
			return
		}
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		s.mu.Lock()
		uid, ok := s.access[token]
		user := s.users[uid]
		s.mu.Unlock()
		if !ok || user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Given token not valid for any token type"})
			return
		}
		c.Set("user", *user)
		c.Next()
	}
}

func isPublic(path string) bool {
	return path == "/api/auth/login/" || path == "/api/auth/token/refresh/"
}

func currentUser(c *gin.Context) types.User {
	u, _ := c.Get("user")
	return u.(types.User)
}

func userRef(u *types.User) types.UserRef {
	return types.UserRef{ID: u.ID, Username: u.Username, Email: u.Email, FirstName: u.FirstName, LastName: u.LastName, Role: u.Role}
}

func (s *Server) setAssigneeLocked(t *types.Ticket, assignee *int) {
	t.Assignee = nil
	t.AssigneeName = nil
	if assignee == nil {
		return
	}
	id := *assignee
	t.Assignee = &id
	if u, ok := s.users[id]; ok {
		name := u.Username
		t.AssigneeName = &name
	}
}

func (s *Server) openLogLocked(ticketID, userID int, start time.Time) *types.WorkLog {
	wl := &types.WorkLog{ID: s.id(), Ticket: ticketID, User: userID, StartTime: start, CreatedAt: start}
	if u, ok := s.users[userID]; ok {
		wl.UserName = u.Username
	}
	if t, ok := s.tickets[ticketID]; ok {
		wl.TicketIDDisplay = t.TicketID
	}
	s.workLogs = append(s.workLogs, wl)
	cp := *wl
	return &cp
}

func (s *Server) activeLogLocked(ticketID int) *types.WorkLog {
	for _, wl := range s.workLogs {
		if wl.Ticket == ticketID && wl.EndTime == nil {
			return wl
		}
	}
	return nil
}

func (s *Server) closeLogLocked(wl *types.WorkLog) {
	end := s.now()
	wl.EndTime = &end
	wl.DurationMinutes = int(end.Sub(wl.StartTime).Minutes())
}

func (s *Server) logActivityLocked(user types.User, action string, ticket *types.Ticket, description string, extra map[string]interface{}) {
	targetType := "ticket"
	id := ticket.ID
	str := ticket.TicketID
	ref := userRef(&user)
	s.activity = append(s.activity, &types.ActivityLog{
		ID: s.id(), Action: action, User: &ref, UserName: user.Username, Description: description,
		TargetType: &targetType, TargetID: &id, TargetStr: &str, ExtraData: extra, CreatedAt: s.now(),
	})
}
