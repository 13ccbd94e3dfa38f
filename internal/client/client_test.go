package client

import (
	"bytes"
	"context"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickora-io/tickora/internal/apierrors"
	"github.com/tickora-io/tickora/internal/metrics"
	"github.com/tickora-io/tickora/internal/session"
	"github.com/tickora-io/tickora/internal/testutil/fakeapi"
	"github.com/tickora-io/tickora/internal/types"
)

func quietLogger() *log.Logger {
	return log.New(&bytes.Buffer{}, "", 0)
}

func newTestClient(t *testing.T, baseURL string, retries int) *Client {
	t.Helper()
	return New(&Config{
		BaseURL:    baseURL,
		Logger:     quietLogger(),
		Session:    session.New(nil, session.WithLogger(quietLogger())),
		RetryCount: retries,
		Metrics:    metrics.New(prometheus.NewRegistry(), "test"),
	})
}

func loggedIn(t *testing.T, api *fakeapi.Server, role string) (*Client, *types.User) {
	t.Helper()
	user := api.AddUser(types.User{Username: "dana-" + role, Role: role}, "secret")
	c := newTestClient(t, api.URL(), 0)
	_, err := c.Auth.Login(context.Background(), user.Username, "secret")
	require.NoError(t, err)
	return c, user
}

func TestLoginEstablishesSession(t *testing.T) {
	api := fakeapi.Start(t)
	api.AddUser(types.User{Username: "dana", Role: types.RoleEmployee}, "pw")
	c := newTestClient(t, api.URL(), 0)
	ctx := context.Background()

	_, err := c.Auth.Login(ctx, "dana", "wrong")
	require.Error(t, err)
	assert.Equal(t, "No active account found with the given credentials", apierrors.UserMessage(err))
	assert.Equal(t, session.StateAnonymous, c.Session().State())

	user, err := c.Auth.Login(ctx, "dana", "pw")
	require.NoError(t, err)
	assert.Equal(t, "dana", user.Username)
	assert.Equal(t, session.StateAuthenticated, c.Session().State())
	assert.False(t, c.Session().ExpiresAt().IsZero())

	profile, err := c.Auth.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.ID, profile.ID)
	require.NoError(t, c.Ping(ctx))

	require.NoError(t, c.Auth.Logout(ctx))
	_, err = c.Auth.Profile(ctx)
	assert.ErrorIs(t, err, apierrors.ErrNotAuthenticated)
}

func TestTicketReads(t *testing.T) {
	api := fakeapi.Start(t)
	c, user := loggedIn(t, api, types.RoleEmployee)
	ctx := context.Background()
	project := api.AddProject("Website", user.ID)
	mine := api.AddTicket(types.Ticket{Title: "Broken login", Priority: types.PriorityHigh, Project: project.ID, Assignee: &user.ID})
	api.AddTicket(types.Ticket{Title: "Docs", Priority: types.PriorityLow, Project: project.ID})

	got, err := c.Tickets.Get(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, "Broken login", got.Title)
	assert.Equal(t, "Website", got.ProjectName)
	assert.Equal(t, user.Username, got.AssigneeLabel())

	// Paginated envelope.
	all, err := c.Tickets.List(ctx, &types.TicketListOptions{Priority: types.PriorityHigh})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, mine.ID, all[0].ID)

	// Bare arrays.
	assigned, err := c.Tickets.Mine(ctx)
	require.NoError(t, err)
	assert.Len(t, assigned, 1)
	byProject, err := c.Tickets.ByProject(ctx, project.ID)
	require.NoError(t, err)
	assert.Len(t, byProject, 2)

	_, err = c.Tickets.Get(ctx, 9999)
	require.Error(t, err)
	assert.True(t, apierrors.IsNotFound(err))
	assert.Equal(t, "Not found.", apierrors.UserMessage(err))
}

func TestUpdateStatusSurfacesServerReason(t *testing.T) {
	api := fakeapi.Start(t)
	c, user := loggedIn(t, api, types.RoleEmployee)
	ctx := context.Background()
	ticket := api.AddTicket(types.Ticket{Title: "t", Status: "in_progress", Assignee: &user.ID})

	_, err := c.Tickets.UpdateStatus(ctx, ticket.ID, "closed")
	require.Error(t, err)
	assert.Equal(t, apierrors.KindInvalid, apierrors.KindOf(err))
	assert.Equal(t, "Cannot transition from in_progress to closed. Valid transitions: ['qa']", apierrors.UserMessage(err))
	assert.False(t, apierrors.Retryable(err))

	updated, err := c.Tickets.UpdateStatus(ctx, ticket.ID, "qa")
	require.NoError(t, err)
	assert.Equal(t, "qa", updated.Status)
	assert.NotNil(t, updated.QAAt)
}

func TestUnauthorizedRefreshesOnce(t *testing.T) {
	api := fakeapi.Start(t)
	c, _ := loggedIn(t, api, types.RoleEmployee)
	ctx := context.Background()
	before := c.Session().AccessToken()

	api.RevokeAccess()
	_, err := c.Auth.Profile(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, before, c.Session().AccessToken())
	assert.Equal(t, 1, api.Calls(http.MethodPost, "/auth/token/refresh/"))
	assert.Equal(t, 2, api.Calls(http.MethodGet, "/auth/profile/"))
}

func TestFailedRefreshExpiresSession(t *testing.T) {
	api := fakeapi.Start(t)
	c, _ := loggedIn(t, api, types.RoleEmployee)
	ctx := context.Background()

	api.RevokeAccess()
	api.RevokeRefresh()
	_, err := c.Tickets.Mine(ctx)
	require.ErrorIs(t, err, apierrors.ErrSessionExpired)
	assert.Equal(t, "Your session has expired. Please log in again.", apierrors.UserMessage(err))
	assert.Equal(t, session.StateAnonymous, c.Session().State())
}

func TestNetworkErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url+"/api", 0)
	_, err := c.Auth.Login(context.Background(), "dana", "pw")
	require.Error(t, err)
	assert.True(t, apierrors.IsNetwork(err))
	assert.True(t, apierrors.Retryable(err))
	assert.Equal(t, apierrors.MsgNetwork, apierrors.UserMessage(err))
}

func TestRateLimitMessage(t *testing.T) {
	api := fakeapi.Start(t)
	c, _ := loggedIn(t, api, types.RoleEmployee)
	api.FailNext(http.MethodPost, "/tickets/tickets/5/self_assign/", http.StatusTooManyRequests, gin.H{"detail": "Request was throttled."})

	_, err := c.Tickets.SelfAssign(context.Background(), 5)
	require.Error(t, err)
	assert.Equal(t, apierrors.KindRateLimited, apierrors.KindOf(err))
	assert.Equal(t, "Rate limit exceeded. Please try again in 60 seconds.", apierrors.UserMessage(err))
}

func TestRetryAfterHeaderAndRequestID(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get(HeaderRequestID))
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "12")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail":"slow down"}`))
	}))
	t.Cleanup(srv.Close)

	c := newTestClient(t, srv.URL, 0)
	err := c.Leave.Approve(context.Background(), 3)
	require.Error(t, err)
	assert.Equal(t, "Rate limit exceeded. Please try again in 12 seconds.", apierrors.UserMessage(err))
	require.Len(t, seen, 1)
	_, perr := uuid.Parse(seen[0])
	assert.NoError(t, perr)
}

func TestRetriesOnlyIdempotentRequests(t *testing.T) {
	api := fakeapi.Start(t)
	user := api.AddUser(types.User{Username: "sam", Role: types.RoleManager}, "pw")
	c := newTestClient(t, api.URL(), 2)
	ctx := context.Background()
	_, err := c.Auth.Login(ctx, user.Username, "pw")
	require.NoError(t, err)
	ticket := api.AddTicket(types.Ticket{Title: "t"})

	path := "/tickets/tickets/" + itoa(ticket.ID) + "/"
	api.FailNext(http.MethodGet, path, http.StatusBadGateway, gin.H{"detail": "bad gateway"})
	api.FailNext(http.MethodGet, path, http.StatusServiceUnavailable, gin.H{"detail": "unavailable"})
	got, err := c.Tickets.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
	assert.Equal(t, 3, api.Calls(http.MethodGet, path))

	statusPath := "/tickets/tickets/" + itoa(ticket.ID) + "/update_status/"
	api.FailNext(http.MethodPatch, statusPath, http.StatusBadGateway, gin.H{"error": "upstream"})
	_, err = c.Tickets.UpdateStatus(ctx, ticket.ID, "in_progress")
	require.Error(t, err)
	assert.Equal(t, "upstream", apierrors.UserMessage(err))
	assert.Equal(t, 1, api.Calls(http.MethodPatch, statusPath))
}

func TestWorkLogsAndActiveSession(t *testing.T) {
	api := fakeapi.Start(t)
	c, user := loggedIn(t, api, types.RoleEmployee)
	ctx := context.Background()
	ticket := api.AddTicket(types.Ticket{Title: "t", Status: "new", Assignee: &user.ID})

	inactive, err := c.TimeLogs.ActiveSession(ctx, ticket.ID)
	require.NoError(t, err)
	assert.False(t, inactive.Active)

	_, err = c.Tickets.UpdateStatus(ctx, ticket.ID, "in_progress")
	require.NoError(t, err)
	active, err := c.TimeLogs.ActiveSession(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, active.Active)
	assert.Equal(t, user.Username, active.UserName)

	_, err = c.TimeLogs.StartWork(ctx, ticket.ID, "again")
	require.Error(t, err)
	assert.Equal(t, "You already have an active work session", apierrors.UserMessage(err))

	stopped, err := c.TimeLogs.StopWork(ctx, active.WorkLog.ID)
	require.NoError(t, err)
	assert.NotNil(t, stopped.EndTime)

	logs, err := c.TimeLogs.List(ctx, ticket.ID, 0)
	require.NoError(t, err)
	assert.Len(t, logs, 1)
	total, err := c.TimeLogs.TotalTime(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, total.WorkLogCount)
}

func TestActiveSessionHiddenFromOthers(t *testing.T) {
	api := fakeapi.Start(t)
	c, _ := loggedIn(t, api, types.RoleEmployee)
	owner := 4242
	ticket := api.AddTicket(types.Ticket{Title: "t", Status: "in_progress", Assignee: &owner})

	got, err := c.TimeLogs.ActiveSession(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, "Permission denied", got.Error)
}

func TestSupportingServices(t *testing.T) {
	api := fakeapi.Start(t)
	c, user := loggedIn(t, api, types.RoleManager)
	ctx := context.Background()
	ticket := api.AddTicket(types.Ticket{Title: "t"})

	comment, err := c.Comments.Create(ctx, ticket.ID, "looking into it")
	require.NoError(t, err)
	comments, err := c.Comments.ByTicket(ctx, ticket.ID)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	require.NoError(t, c.Comments.Delete(ctx, comment.ID))

	att, err := c.Attendance.Toggle(ctx, "available", "")
	require.NoError(t, err)
	assert.True(t, att.IsAvailable)
	team, err := c.Attendance.Team(ctx)
	require.NoError(t, err)
	assert.Len(t, team, 1)

	lr, err := c.Leave.Create(ctx, &types.LeaveCreateRequest{StartDate: "2026-05-01", EndDate: "2026-05-02", Message: "trip"})
	require.NoError(t, err)
	require.NoError(t, c.Leave.Reject(ctx, lr.ID, "busy week"))
	mine, err := c.Leave.Mine(ctx)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "rejected", mine[0].Status)
	assert.Equal(t, "busy week", mine[0].RejectionReason)

	_, err = c.Calendar.Create(ctx, &types.CalendarEventRequest{Title: "Standup", Date: "2026-05-04", Category: "meeting"})
	require.NoError(t, err)
	events, err := c.Calendar.Range(ctx, "2026-05-01", "2026-05-31")
	require.NoError(t, err)
	assert.Len(t, events, 1)

	todo, err := c.Todos.Create(ctx, &types.TodoRequest{Title: "write report"})
	require.NoError(t, err)
	done, err := c.Todos.Complete(ctx, todo.ID)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
	todos, err := c.Todos.List(ctx, "completed")
	require.NoError(t, err)
	assert.Len(t, todos, 1)

	users, err := c.Users.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, user.ID, users[0].ID)
}

func TestDecodeList(t *testing.T) {
	bare, err := decodeList[types.Todo]([]byte(`[{"id":1},{"id":2}]`))
	require.NoError(t, err)
	assert.Len(t, bare, 2)

	paged, err := decodeList[types.Todo]([]byte(`{"count":1,"results":[{"id":3}]}`))
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, 3, paged[0].ID)

	empty, err := decodeList[types.Todo]([]byte(`{"count":0}`))
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = decodeList[types.Todo]([]byte(`{"results": 5}`))
	assert.Error(t, err)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
