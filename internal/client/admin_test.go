package client

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tickora-io/tickora/internal/apierrors"
	"github.com/tickora-io/tickora/internal/testutil/fakeapi"
	"github.com/tickora-io/tickora/internal/types"
)

func strPtr(s string) *string { return &s }

func TestUserAdministration(t *testing.T) {
	api := fakeapi.Start(t)
	admin, me := loggedIn(t, api, types.RoleAdmin)
	ctx := context.Background()

	support, err := admin.Roles.Create(ctx, &types.DepartmentRoleRequest{Name: "support", DisplayName: "Support", Color: "#0ea5e9"})
	require.NoError(t, err)

	created, err := admin.Users.Create(ctx, &types.UserCreateRequest{
		Username:          "sam",
		Email:             "sam@example.com",
		FirstName:         "Sam",
		Role:              types.RoleEmployee,
		DepartmentRoleIDs: []int{support.ID},
		Password:          "hunter22",
	})
	require.NoError(t, err)
	assert.Equal(t, "sam", created.Username)
	assert.True(t, created.IsActive)
	require.Len(t, created.DepartmentRoles, 1)
	assert.Equal(t, "Support", created.DepartmentRoles[0].DisplayName)
	assert.Equal(t, me.ID, admin.Session().CurrentUser().ID, "creating a user does not switch the session")

	t.Run("mismatched confirmation is caught before sending", func(t *testing.T) {
		before := api.Calls(http.MethodPost, "/auth/users/")
		_, err := admin.Users.Create(ctx, &types.UserCreateRequest{Username: "x", Password: "a", ConfirmPassword: "b"})
		assert.ErrorIs(t, err, ErrPasswordMismatch)
		assert.Equal(t, before, api.Calls(http.MethodPost, "/auth/users/"))
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, err := admin.Users.Create(ctx, &types.UserCreateRequest{Username: "sam", Password: "pw"})
		require.Error(t, err)
		assert.Equal(t, "A user with that username already exists.", apierrors.UserMessage(err))
	})

	t.Run("update", func(t *testing.T) {
		none := []int{}
		updated, err := admin.Users.Update(ctx, created.ID, &types.UserUpdateRequest{
			LastName:          strPtr("Lee"),
			Role:              strPtr(types.RoleManager),
			DepartmentRoleIDs: &none,
		})
		require.NoError(t, err)
		assert.Equal(t, "Lee", updated.LastName)
		assert.Equal(t, "Sam", updated.FirstName)
		assert.Equal(t, types.RoleManager, updated.Role)
		assert.Empty(t, updated.DepartmentRoles)

		_, err = admin.Users.Update(ctx, created.ID, &types.UserUpdateRequest{Role: strPtr("owner")})
		require.Error(t, err)
		assert.Equal(t, apierrors.KindInvalid, apierrors.KindOf(err))
	})

	t.Run("deactivated users cannot log in", func(t *testing.T) {
		sam := newTestClient(t, api.URL(), 0)
		_, err := sam.Auth.Login(ctx, "sam", "hunter22")
		require.NoError(t, err)

		require.NoError(t, admin.Users.Deactivate(ctx, created.ID))
		_, err = sam.Auth.Login(ctx, "sam", "hunter22")
		require.Error(t, err)
		assert.Equal(t, "No active account found with the given credentials", apierrors.UserMessage(err))

		got, err := admin.Users.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.False(t, got.IsActive)

		err = admin.Users.Deactivate(ctx, 9999)
		assert.True(t, apierrors.IsNotFound(err))
		assert.Equal(t, "User not found", apierrors.UserMessage(err))
	})

	t.Run("only admins see inactive accounts", func(t *testing.T) {
		emp, _ := loggedIn(t, api, types.RoleEmployee)
		all, err := admin.Users.List(ctx)
		require.NoError(t, err)
		visible, err := emp.Users.List(ctx)
		require.NoError(t, err)
		assert.Len(t, visible, len(all)-1)
		for _, u := range visible {
			assert.True(t, u.IsActive, u.Username)
			assert.NotEqual(t, "sam", u.Username)
		}
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, admin.Users.Delete(ctx, created.ID))
		_, err := admin.Users.Get(ctx, created.ID)
		assert.True(t, apierrors.IsNotFound(err))
	})
}

func TestUserAdministrationNeedsAdmin(t *testing.T) {
	api := fakeapi.Start(t)
	lead, _ := loggedIn(t, api, types.RoleManager)
	target := api.AddUser(types.User{Username: "oz", Role: types.RoleEmployee}, "pw")
	ctx := context.Background()

	_, err := lead.Users.Create(ctx, &types.UserCreateRequest{Username: "new", Password: "pw"})
	assert.True(t, apierrors.IsPermission(err))
	_, err = lead.Users.Update(ctx, target.ID, &types.UserUpdateRequest{Role: strPtr(types.RoleAdmin)})
	assert.True(t, apierrors.IsPermission(err))
	assert.True(t, apierrors.IsPermission(lead.Users.Deactivate(ctx, target.ID)))
	assert.True(t, apierrors.IsPermission(lead.Users.Delete(ctx, target.ID)))
	_, err = lead.Roles.Create(ctx, &types.DepartmentRoleRequest{Name: "qa", DisplayName: "QA"})
	assert.True(t, apierrors.IsPermission(err))
}

func TestDepartmentRoles(t *testing.T) {
	api := fakeapi.Start(t)
	admin, _ := loggedIn(t, api, types.RoleAdmin)
	ctx := context.Background()

	design, err := admin.Roles.Create(ctx, &types.DepartmentRoleRequest{Name: "design", DisplayName: "Design"})
	require.NoError(t, err)
	assert.NotEmpty(t, design.Color, "backend assigns a default color")
	_, err = admin.Roles.Create(ctx, &types.DepartmentRoleRequest{Name: "ops", DisplayName: "Operations", Color: "#f97316"})
	require.NoError(t, err)

	_, err = admin.Roles.Create(ctx, &types.DepartmentRoleRequest{Name: "design", DisplayName: "Again"})
	require.Error(t, err)

	member, err := admin.Users.Create(ctx, &types.UserCreateRequest{Username: "ivy", Password: "pw", DepartmentRoleIDs: []int{design.ID}})
	require.NoError(t, err)

	renamed, err := admin.Roles.Update(ctx, design.ID, &types.DepartmentRoleRequest{DisplayName: "Product Design"})
	require.NoError(t, err)
	assert.Equal(t, "design", renamed.Name)
	assert.Equal(t, "Product Design", renamed.DisplayName)

	ivy, err := admin.Users.Get(ctx, member.ID)
	require.NoError(t, err)
	require.Len(t, ivy.DepartmentRoles, 1)
	assert.Equal(t, "Product Design", ivy.DepartmentRoles[0].DisplayName)

	require.NoError(t, admin.Roles.Delete(ctx, design.ID))
	roles, err := admin.Roles.List(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, "ops", roles[0].Name)

	ivy, err = admin.Users.Get(ctx, member.ID)
	require.NoError(t, err)
	assert.Empty(t, ivy.DepartmentRoles)
}

func TestDashboards(t *testing.T) {
	api := fakeapi.Start(t)
	now := time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)
	api.SetClock(func() time.Time { return now })
	ctx := context.Background()

	dev, devUser := loggedIn(t, api, types.RoleEmployee)
	project := api.AddProject("Payments", devUser.ID)
	api.AddTicket(types.Ticket{Title: "Refunds", Priority: types.PriorityHigh, Status: "in_progress", Project: project.ID, Assignee: &devUser.ID})
	api.AddTicket(types.Ticket{Title: "Old bug", Priority: types.PriorityLow, Project: project.ID, Assignee: &devUser.ID, CreatedAt: now.Add(-10 * 24 * time.Hour)})
	api.AddTicket(types.Ticket{Title: "Nobody's", Project: project.ID})

	t.Run("employee", func(t *testing.T) {
		d, err := dev.Dashboard.Employee(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, d.AssignedTicketsCount)
		assert.Equal(t, 1, d.InProgressCount)
		assert.Equal(t, map[string]int{"in_progress": 1, "new": 1}, d.TicketsByStatus)
		require.Len(t, d.InProgressTickets, 1)
		assert.Equal(t, "Refunds", d.InProgressTickets[0].Title)
		require.NotNil(t, d.InProgressTickets[0].ProjectName)
		assert.Equal(t, "Payments", *d.InProgressTickets[0].ProjectName)
		assert.Equal(t, 1, d.TicketsDueSoon)
		assert.Nil(t, d.ActiveSession)

		r, err := dev.Dashboard.EmployeeReports(ctx, 0)
		require.NoError(t, err)
		assert.Equal(t, 2, r.Productivity.TotalAssigned)
		assert.Equal(t, 1, r.PriorityDistribution[types.PriorityHigh])
		assert.Equal(t, 1, api.Calls(http.MethodGet, "/dashboard/reports/employee/"))
	})

	t.Run("manager", func(t *testing.T) {
		lead, _ := loggedIn(t, api, types.RoleManager)
		d, err := lead.Dashboard.Manager(ctx)
		require.NoError(t, err)
		assert.Zero(t, d.TotalProjects, "managers only see projects they created or joined")

		d, err = dev.Dashboard.Manager(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, d.ActiveProjects)
		assert.Equal(t, 3, d.TotalTickets)
		assert.Equal(t, 1, d.UnassignedTickets)
		require.Len(t, d.TeamWorkload, 1)
		assert.Equal(t, 2, d.TeamWorkload[0].AssignedTickets)
		assert.Len(t, d.RecentTickets, 3)

		_, err = dev.Dashboard.ManagerReports(ctx, 7)
		assert.True(t, apierrors.IsPermission(err))
		r, err := lead.Dashboard.ManagerReports(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, 7, r.PeriodDays)
	})

	t.Run("admin", func(t *testing.T) {
		_, err := dev.Dashboard.Admin(ctx)
		require.Error(t, err)
		assert.Equal(t, "Permission denied", apierrors.UserMessage(err))

		admin, _ := loggedIn(t, api, types.RoleAdmin)
		d, err := admin.Dashboard.Admin(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, d.Users.Total)
		assert.Equal(t, 1, d.Users.ByRole[types.RoleAdmin])
		assert.Equal(t, 3, d.Tickets.Total)
		assert.Equal(t, 1, d.Projects.Active)

		r, err := admin.Dashboard.AdminReports(ctx, -1)
		require.NoError(t, err)
		assert.Equal(t, 30, r.PeriodDays)
		assert.Equal(t, 3, r.Summary.TotalTickets)
	})
}
