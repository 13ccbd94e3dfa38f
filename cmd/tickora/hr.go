package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tickora-io/tickora/internal/monitor"
	"github.com/tickora-io/tickora/internal/types"
)

const dateLayout = "2006-01-02"

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Availability and the team board",
}

var attendanceMeCmd = &cobra.Command{
	Use:   "me",
	Short: "Show today's attendance",
	Args:  cobra.NoArgs,
	RunE:  runAttendanceMe,
}

var attendanceToggleCmd = &cobra.Command{
	Use:       "toggle STATUS",
	Short:     "Set your availability to available or unavailable",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"available", "unavailable"},
	RunE:      runAttendanceToggle,
}

var attendanceTeamCmd = &cobra.Command{
	Use:   "team",
	Short: "Show the team availability board",
	Args:  cobra.NoArgs,
	RunE:  runAttendanceTeam,
}

var attendanceWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print team availability changes until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runAttendanceWatch,
}

var leaveCmd = &cobra.Command{
	Use:   "leave",
	Short: "Leave requests",
}

var leaveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leave requests",
	Args:  cobra.NoArgs,
	RunE:  runLeaveList,
}

var leaveRequestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request time off",
	Args:  cobra.NoArgs,
	RunE:  runLeaveRequest,
}

var leaveApproveCmd = &cobra.Command{
	Use:   "approve ID",
	Short: "Approve a pending leave request",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeaveApprove,
}

var leaveRejectCmd = &cobra.Command{
	Use:   "reject ID",
	Short: "Reject a pending leave request",
	Args:  cobra.ExactArgs(1),
	RunE:  runLeaveReject,
}

var leaveWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print leave request decisions until interrupted",
	Args:  cobra.NoArgs,
	RunE:  runLeaveWatch,
}

var todoCmd = &cobra.Command{
	Use:   "todo",
	Short: "Personal todo list",
}

var todoListCmd = &cobra.Command{
	Use:   "list",
	Short: "List todos",
	Args:  cobra.NoArgs,
	RunE:  runTodoList,
}

var todoAddCmd = &cobra.Command{
	Use:   "add TITLE...",
	Short: "Add a todo",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runTodoAdd,
}

var todoDoneCmd = &cobra.Command{
	Use:   "done ID",
	Short: "Mark a todo completed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTodoAction(cmd, args[0], current.api.Todos.Complete)
	},
}

var todoReopenCmd = &cobra.Command{
	Use:   "reopen ID",
	Short: "Mark a completed todo pending again",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTodoAction(cmd, args[0], current.api.Todos.Reopen)
	},
}

var todoRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a todo",
	Args:  cobra.ExactArgs(1),
	RunE:  runTodoRm,
}

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Shared calendar",
}

var calendarListCmd = &cobra.Command{
	Use:   "list",
	Short: "List calendar events in a date range",
	Args:  cobra.NoArgs,
	RunE:  runCalendarList,
}

var (
	leaveMine     bool
	leaveFrom     string
	leaveTo       string
	leaveMessage  string
	rejectReason  string
	todoStatus    string
	todoPriority  string
	todoDue       string
	calendarFrom  string
	calendarTo    string
	toggleDate    string
	leaveWatchAll bool
)

func init() {
	attendanceToggleCmd.Flags().StringVar(&toggleDate, "date", "", "Date to toggle (YYYY-MM-DD, default today)")
	attendanceCmd.AddCommand(attendanceMeCmd, attendanceToggleCmd, attendanceTeamCmd, attendanceWatchCmd)

	leaveListCmd.Flags().BoolVar(&leaveMine, "mine", false, "Only my requests")
	leaveRequestCmd.Flags().StringVar(&leaveFrom, "from", "", "First day of leave (YYYY-MM-DD)")
	leaveRequestCmd.Flags().StringVar(&leaveTo, "to", "", "Last day of leave (YYYY-MM-DD)")
	leaveRequestCmd.Flags().StringVar(&leaveMessage, "message", "", "Message for the approver")
	leaveRequestCmd.MarkFlagRequired("from")
	leaveRequestCmd.MarkFlagRequired("to")
	leaveRejectCmd.Flags().StringVar(&rejectReason, "reason", "", "Reason shown to the employee")
	leaveWatchCmd.Flags().BoolVar(&leaveWatchAll, "all", false, "Watch every request visible to me, not only mine")
	leaveCmd.AddCommand(leaveListCmd, leaveRequestCmd, leaveApproveCmd, leaveRejectCmd, leaveWatchCmd)

	todoListCmd.Flags().StringVar(&todoStatus, "status", "", "Filter by status (pending, in_progress, completed)")
	todoAddCmd.Flags().StringVar(&todoPriority, "priority", "", "Priority (low, medium, high)")
	todoAddCmd.Flags().StringVar(&todoDue, "due", "", "Due date (YYYY-MM-DD)")
	todoCmd.AddCommand(todoListCmd, todoAddCmd, todoDoneCmd, todoReopenCmd, todoRmCmd)

	calendarListCmd.Flags().StringVar(&calendarFrom, "from", "", "First day (YYYY-MM-DD, default today)")
	calendarListCmd.Flags().StringVar(&calendarTo, "to", "", "Last day (YYYY-MM-DD, default from + 30 days)")
	calendarCmd.AddCommand(calendarListCmd)

	rootCmd.AddCommand(attendanceCmd, leaveCmd, todoCmd, calendarCmd)
}

// checkDate validates an optional YYYY-MM-DD flag value.
func checkDate(flag, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse(dateLayout, value); err != nil {
		return fmt.Errorf("--%s: expected YYYY-MM-DD, got %q", flag, value)
	}
	return nil
}

func runAttendanceMe(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	a, err := current.api.Attendance.Me(cmd.Context())
	if err != nil {
		return err
	}
	printAttendance(cmd.OutOrStdout(), a)
	return nil
}

func printAttendance(out io.Writer, a *types.Attendance) {
	w := newTable(out)
	fmt.Fprintf(w, "Date:\t%s\n", a.Date)
	fmt.Fprintf(w, "Status:\t%s\n", a.Status)
	fmt.Fprintf(w, "Availability:\t%s\n", a.CurrentAvailability)
	if a.FirstAvailableAt != nil {
		fmt.Fprintf(w, "First available:\t%s\n", a.FirstAvailableAt.Local().Format("15:04"))
	}
	if a.FormattedSummary != "" {
		fmt.Fprintf(w, "Summary:\t%s\n", a.FormattedSummary)
	}
	if !a.CanToggleStatus && a.ToggleStatusMessage != "" {
		fmt.Fprintf(w, "Note:\t%s\n", a.ToggleStatusMessage)
	}
	w.Flush()
}

func runAttendanceToggle(cmd *cobra.Command, args []string) error {
	status := strings.ToLower(args[0])
	if status != "available" && status != "unavailable" {
		return fmt.Errorf("status must be available or unavailable, got %q", args[0])
	}
	if err := checkDate("date", toggleDate); err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	a, err := current.api.Attendance.Toggle(cmd.Context(), status, toggleDate)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "You are now %s\n", a.CurrentAvailability)
	return nil
}

func runAttendanceTeam(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	team, err := current.api.Attendance.Team(cmd.Context())
	if err != nil {
		return err
	}
	if len(team) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nobody on the board today")
		return nil
	}
	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "EMPLOYEE\tROLE\tAVAILABILITY\tSINCE")
	for _, t := range team {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", displayName(t.EmployeeName, t.EmployeeUsername),
			t.EmployeeRole, t.CurrentAvailability, t.LastChangedTime)
	}
	return w.Flush()
}

func displayName(name, username string) string {
	if name != "" {
		return name
	}
	return username
}

func runAttendanceWatch(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	ctx, stop := interruptible(cmd.Context())
	defer stop()

	stopMetrics, err := serveMetrics()
	if err != nil {
		return err
	}
	defer stopMetrics()

	m := monitor.NewAttendance(current.api.Attendance,
		monitor.WithLogger(current.logger),
		monitor.WithMetrics(current.metrics),
		monitor.WithInterval(current.cfg.Polling.AttendanceInterval),
	)
	defer m.Close()

	out := cmd.OutOrStdout()
	m.OnUpdate(func(prev, next []types.TeamAttendance) {
		if prev == nil {
			available := 0
			for _, t := range next {
				if t.IsAvailable {
					available++
				}
			}
			fmt.Fprintf(out, "%d of %d available\n", available, len(next))
			return
		}
		for _, c := range monitor.DiffAvailability(prev, next) {
			from := c.From
			if from == "" {
				from = "absent"
			}
			fmt.Fprintf(out, "%s  %s: %s -> %s\n", time.Now().Format("15:04:05"),
				displayName(c.Name, c.Username), from, c.To)
		}
	})
	if err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func runLeaveList(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	var (
		reqs []types.LeaveRequest
		err  error
	)
	if leaveMine {
		reqs, err = current.api.Leave.Mine(cmd.Context())
	} else {
		reqs, err = current.api.Leave.List(cmd.Context())
	}
	if err != nil {
		return err
	}
	if len(reqs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No leave requests")
		return nil
	}
	printLeave(cmd.OutOrStdout(), reqs)
	return nil
}

func printLeave(out io.Writer, reqs []types.LeaveRequest) {
	w := newTable(out)
	fmt.Fprintln(w, "ID\tEMPLOYEE\tFROM\tTO\tDAYS\tSTATUS\tMESSAGE")
	for _, r := range reqs {
		status := r.Status
		if r.RejectionReason != "" {
			status += " (" + r.RejectionReason + ")"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n", r.ID, r.Employee.Username,
			r.StartDate, r.EndDate, r.DurationDays, status, r.Message)
	}
	w.Flush()
}

func runLeaveRequest(cmd *cobra.Command, args []string) error {
	if err := checkDate("from", leaveFrom); err != nil {
		return err
	}
	if err := checkDate("to", leaveTo); err != nil {
		return err
	}
	if leaveTo < leaveFrom {
		return fmt.Errorf("--to %s is before --from %s", leaveTo, leaveFrom)
	}
	if err := requireLogin(); err != nil {
		return err
	}
	r, err := current.api.Leave.Create(cmd.Context(), &types.LeaveCreateRequest{
		StartDate: leaveFrom,
		EndDate:   leaveTo,
		Message:   leaveMessage,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Leave request %d submitted (%s)\n", r.ID, r.Status)
	return nil
}

func runLeaveApprove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "leave request id")
	if err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	if err := current.api.Leave.Approve(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Leave request %d approved\n", id)
	return nil
}

func runLeaveReject(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "leave request id")
	if err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	if err := current.api.Leave.Reject(cmd.Context(), id, rejectReason); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Leave request %d rejected\n", id)
	return nil
}

func runLeaveWatch(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	ctx, stop := interruptible(cmd.Context())
	defer stop()

	stopMetrics, err := serveMetrics()
	if err != nil {
		return err
	}
	defer stopMetrics()

	m := monitor.NewLeave(current.api.Leave, !leaveWatchAll,
		monitor.WithLogger(current.logger),
		monitor.WithMetrics(current.metrics),
		monitor.WithInterval(current.cfg.Polling.LeaveInterval),
	)
	defer m.Close()

	out := cmd.OutOrStdout()
	m.OnUpdate(func(prev, next []types.LeaveRequest) {
		if prev == nil {
			fmt.Fprintf(out, "%d requests, %d pending\n", len(next), monitor.PendingLeave(next))
			return
		}
		for _, c := range monitor.DiffLeave(prev, next) {
			r := c.Request
			if c.From == "" {
				fmt.Fprintf(out, "new request %d from %s: %s to %s\n", r.ID, r.Employee.Username, r.StartDate, r.EndDate)
				continue
			}
			fmt.Fprintf(out, "request %d (%s to %s): %s -> %s\n", r.ID, r.StartDate, r.EndDate, c.From, r.Status)
		}
	})
	if err := m.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

func runTodoList(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	todos, err := current.api.Todos.List(cmd.Context(), todoStatus)
	if err != nil {
		return err
	}
	if len(todos) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to do")
		return nil
	}
	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tDONE\tPRIORITY\tDUE\tTITLE")
	for _, t := range todos {
		done := " "
		if t.IsCompleted {
			done = "x"
		}
		due := t.DueDate
		if t.IsOverdue {
			due += " (overdue)"
		}
		fmt.Fprintf(w, "%d\t[%s]\t%s\t%s\t%s\n", t.ID, done, t.Priority, due, t.Title)
	}
	return w.Flush()
}

func runTodoAdd(cmd *cobra.Command, args []string) error {
	if err := checkDate("due", todoDue); err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	t, err := current.api.Todos.Create(cmd.Context(), &types.TodoRequest{
		Title:    strings.Join(args, " "),
		Priority: todoPriority,
		DueDate:  todoDue,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Todo %d added\n", t.ID)
	return nil
}

func runTodoAction(cmd *cobra.Command, arg string, action func(context.Context, int) (*types.Todo, error)) error {
	id, err := parseID(arg, "todo id")
	if err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	t, err := action(cmd.Context(), id)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Todo %d is %s\n", t.ID, t.Status)
	return nil
}

func runTodoRm(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "todo id")
	if err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	if err := current.api.Todos.Delete(cmd.Context(), id); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Todo %d deleted\n", id)
	return nil
}

func runCalendarList(cmd *cobra.Command, args []string) error {
	if err := checkDate("from", calendarFrom); err != nil {
		return err
	}
	if err := checkDate("to", calendarTo); err != nil {
		return err
	}
	from, to := calendarFrom, calendarTo
	if from == "" {
		from = time.Now().Format(dateLayout)
	}
	if to == "" {
		start, _ := time.Parse(dateLayout, from)
		to = start.AddDate(0, 0, 30).Format(dateLayout)
	}
	if err := requireLogin(); err != nil {
		return err
	}

	events, err := current.api.Calendar.Range(cmd.Context(), from, to)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No events between %s and %s\n", from, to)
		return nil
	}
	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "DATE\tTIME\tCATEGORY\tTITLE")
	for _, e := range events {
		when := "all day"
		if !e.IsFullDay && e.StartTime != "" {
			when = e.StartTime
			if e.EndTime != "" {
				when += "-" + e.EndTime
			}
		}
		category := e.CategoryDisplay
		if category == "" {
			category = e.Category
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Date, when, category, e.Title)
	}
	return w.Flush()
}
