package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tickora-io/tickora/internal/apierrors"
	"github.com/tickora-io/tickora/internal/lifecycle"
	"github.com/tickora-io/tickora/internal/testutil/fakeapi"
	"github.com/tickora-io/tickora/internal/types"
)

// resetFlags restores every flag to its default so commands can run repeatedly in one process.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, baseURL string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--base-url", baseURL}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("TICKORA_AUTH_TOKEN_PATH", filepath.Join(home, "session.yaml"))
	chdir(t, home)

	api := fakeapi.Start(t)
	dana := api.AddUser(types.User{Username: "dana", FirstName: "Dana", LastName: "Scott", Role: types.RoleEmployee}, "secret")
	project := api.AddProject("Platform", dana.ID)
	ticket := api.AddTicket(types.Ticket{Title: "Flaky login", Type: types.TypeBug, Priority: types.PriorityHigh, Project: project.ID})
	id := strconv.Itoa(ticket.ID)
	url := api.URL()

	run := func(args ...string) string {
		t.Helper()
		out, err := execute(t, url, args...)
		require.NoError(t, err, out)
		return out
	}

	t.Run("version", func(t *testing.T) {
		assert.Contains(t, run("version"), "tickora")
		assert.Contains(t, run("version", "--json"), `"go_version"`)
	})

	t.Run("requires login", func(t *testing.T) {
		_, err := execute(t, url, "ticket", "list")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not logged in")
	})

	t.Run("login", func(t *testing.T) {
		assert.Contains(t, run("login", "--username", "dana", "--password", "secret"), "Logged in as dana (employee)")
		_, err := os.Stat(filepath.Join(home, "session.yaml"))
		require.NoError(t, err, "tokens are persisted")
	})

	t.Run("whoami restores the saved session", func(t *testing.T) {
		out := run("whoami")
		assert.Contains(t, out, "dana (employee)")
		assert.Contains(t, out, "Dana Scott")
		assert.Contains(t, out, url)
	})

	t.Run("list", func(t *testing.T) {
		out := run("ticket", "list", "--status", "new")
		assert.Contains(t, out, ticket.TicketID)
		assert.Contains(t, out, "Flaky login")
		assert.Contains(t, out, "Unassigned")

		_, err := execute(t, url, "ticket", "list", "--status", "done")
		assert.Error(t, err)
	})

	t.Run("status change needs the assignee", func(t *testing.T) {
		_, err := execute(t, url, "ticket", "status", id, "in_progress")
		require.Error(t, err)
		assert.Equal(t, 0, api.Calls("PATCH", "/tickets/tickets/"+id+"/update_status/"))
	})

	t.Run("self-assign then start", func(t *testing.T) {
		assert.Contains(t, run("ticket", "self-assign", id), "assigned to")
		out := run("ticket", "status", id, "in-progress")
		assert.Contains(t, out, "New -> In Progress")
		assert.Contains(t, out, "Timer:")
	})

	t.Run("transitions", func(t *testing.T) {
		out := run("ticket", "transitions", id)
		assert.Contains(t, out, "qa")
		assert.NotContains(t, out, "Only the assignee")
	})

	t.Run("disallowed move is not sent", func(t *testing.T) {
		_, err := execute(t, url, "ticket", "status", id, "new")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Valid transitions")
	})

	t.Run("comments", func(t *testing.T) {
		assert.Contains(t, run("ticket", "comment", id, "looking", "into", "it"), "posted")
		assert.Contains(t, run("ticket", "comments", id), "looking into it")
	})

	t.Run("show", func(t *testing.T) {
		out := run("ticket", "show", id)
		assert.Contains(t, out, "In Progress")
		assert.Contains(t, out, "Assignee:")
		assert.Contains(t, out, "dana")
		assert.Contains(t, out, "Activity:")
	})

	t.Run("worklogs report", func(t *testing.T) {
		path := filepath.Join(home, "logs.xlsx")
		assert.Contains(t, run("report", "worklogs", "--ticket", id, "--out", path), "Wrote")

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows("Work Logs")
		require.NoError(t, err)
		assert.NotEmpty(t, rows)

		_, err = execute(t, url, "report", "worklogs", "--ticket", id, "--out", filepath.Join(home, "logs.csv"))
		assert.Error(t, err)
	})

	t.Run("todos", func(t *testing.T) {
		assert.Contains(t, run("todo", "add", "write", "notes", "--due", "2024-05-10"), "added")
		assert.Contains(t, run("todo", "list"), "write notes")

		_, err := execute(t, url, "todo", "add", "bad", "--due", "10/05/2024")
		assert.Error(t, err)
	})

	t.Run("attendance", func(t *testing.T) {
		assert.Contains(t, run("attendance", "toggle", "available"), "available")
		assert.Contains(t, run("attendance", "team"), "Dana")

		_, err := execute(t, url, "attendance", "toggle", "lunch")
		assert.Error(t, err)
	})

	t.Run("leave", func(t *testing.T) {
		assert.Contains(t, run("leave", "request", "--from", "2024-07-01", "--to", "2024-07-03"), "submitted")
		assert.Contains(t, run("leave", "list", "--mine"), "2024-07-01")

		_, err := execute(t, url, "leave", "request", "--from", "2024-07-03", "--to", "2024-07-01")
		assert.Error(t, err)
	})

	t.Run("dashboard", func(t *testing.T) {
		out := run("dashboard")
		assert.Contains(t, out, "Assigned 1, in progress 1")
		assert.Contains(t, out, "Flaky login")
		assert.Contains(t, out, "Platform")

		assert.Contains(t, run("dashboard", "reports", "--days", "7"), "Assigned 1, closed 0")

		_, err := execute(t, url, "dashboard", "--as", "admin")
		require.Error(t, err)
		assert.Equal(t, "Permission denied", errorMessage(err))
		_, err = execute(t, url, "dashboard", "reports", "--days", "0")
		assert.Error(t, err)
	})

	t.Run("logout", func(t *testing.T) {
		assert.Contains(t, run("logout"), "Logged out")
		_, err := execute(t, url, "whoami")
		assert.Error(t, err)
	})

	api.AddUser(types.User{Username: "root", Role: types.RoleAdmin}, "toor")

	t.Run("admin", func(t *testing.T) {
		assert.Contains(t, run("login", "--username", "root", "--password", "toor"), "(admin)")

		assert.Contains(t, run("role", "create", "support", "--display", "Support", "--color", "#0ea5e9"), "Created department role Support")
		roles := run("role", "list")
		assert.Contains(t, roles, "support")
		assert.Contains(t, roles, "#0ea5e9")

		out := run("user", "create", "sam", "--password", "pw", "--first-name", "Sam", "--role", "manager")
		assert.Contains(t, out, "Created user sam")
		assert.Contains(t, run("user", "list"), "sam")

		_, err := execute(t, url, "user", "create", "sam", "--password", "pw")
		require.Error(t, err)
		assert.Equal(t, "A user with that username already exists.", errorMessage(err))
		_, err = execute(t, url, "user", "create", "kim", "--password", "pw", "--role", "owner")
		assert.Error(t, err)
	})

	t.Run("admin updates and removes accounts", func(t *testing.T) {
		assert.Contains(t, run("user", "show", strconv.Itoa(dana.ID)), "dana (employee)")

		_, err := execute(t, url, "user", "update", strconv.Itoa(dana.ID))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "nothing to update")

		out := run("user", "update", strconv.Itoa(dana.ID), "--last-name", "Lee", "--role", "manager")
		assert.Contains(t, out, "dana (manager)")
		assert.Contains(t, out, "Dana Lee")

		assert.Contains(t, run("user", "deactivate", strconv.Itoa(dana.ID)), "deactivated")
		assert.Contains(t, run("user", "show", strconv.Itoa(dana.ID)), "deactivated")

		_, err = execute(t, url, "user", "delete", strconv.Itoa(dana.ID))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "--yes")
		assert.Equal(t, 0, api.Calls("DELETE", "/auth/users/"+strconv.Itoa(dana.ID)+"/"))
	})

	t.Run("admin dashboard", func(t *testing.T) {
		out := run("dashboard")
		assert.Contains(t, out, "Users")
		assert.Contains(t, out, "Tickets   1")
		assert.Contains(t, out, "admin 1")
		assert.Contains(t, run("dashboard", "reports"), "Last 30 days")
	})
}

func TestParseID(t *testing.T) {
	id, err := parseID("42", "ticket id")
	require.NoError(t, err)
	assert.Equal(t, 42, id)

	for _, bad := range []string{"", "0", "-3", "TKT-1"} {
		_, err := parseID(bad, "ticket id")
		assert.Error(t, err, bad)
	}
}

func TestFullName(t *testing.T) {
	assert.Equal(t, "Dana Scott", fullName("Dana", "Scott"))
	assert.Equal(t, "Dana", fullName("Dana", ""))
	assert.Equal(t, "Scott", fullName("", "Scott"))
	assert.Empty(t, fullName("", ""))
}

func TestCheckDateAndOut(t *testing.T) {
	assert.NoError(t, checkDate("from", ""))
	assert.NoError(t, checkDate("from", "2024-02-29"))
	assert.Error(t, checkDate("from", "2024-02-30"))

	assert.NoError(t, checkOut("report.XLSX"))
	assert.Error(t, checkOut("report.csv"))
}

func TestErrorMessage(t *testing.T) {
	busy := fmt.Errorf("ticket 7: %w", lifecycle.ErrBusy)
	assert.Equal(t, "A status change for this ticket is already in progress.", errorMessage(busy))
	assert.Equal(t, apierrors.MsgNetwork, errorMessage(&apierrors.NetworkError{Operation: "PATCH", Err: errors.New("reset")}))
	assert.Equal(t, "boom", errorMessage(errors.New("boom")))
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
