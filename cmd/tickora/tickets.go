package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tickora-io/tickora/internal/lifecycle"
	"github.com/tickora-io/tickora/internal/timetracking"
	"github.com/tickora-io/tickora/internal/types"
	"github.com/tickora-io/tickora/internal/workflow"
)

var ticketCmd = &cobra.Command{
	Use:     "ticket",
	Aliases: []string{"tickets", "t"},
	Short:   "Work with tickets",
}

var ticketListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets",
	Args:  cobra.NoArgs,
	RunE:  runTicketList,
}

var ticketShowCmd = &cobra.Command{
	Use:   "show ID",
	Short: "Show a ticket with its timer and activity",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketShow,
}

var ticketTransitionsCmd = &cobra.Command{
	Use:   "transitions ID",
	Short: "List the statuses a ticket may move to",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketTransitions,
}

var ticketStatusCmd = &cobra.Command{
	Use:   "status ID TARGET",
	Short: "Move a ticket to another status",
	Long: `Move a ticket to another status.

TARGET is one of new, in_progress, qa, closed or reopened. Only the allowed next
statuses are sent unless --unchecked is given, in which case the backend decides.`,
	Args: cobra.ExactArgs(2),
	RunE: runTicketStatus,
}

var ticketSelfAssignCmd = &cobra.Command{
	Use:   "self-assign ID",
	Short: "Assign an unassigned ticket to yourself",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketSelfAssign,
}

var ticketAssignCmd = &cobra.Command{
	Use:   "assign ID USER_ID",
	Short: "Assign a ticket to a project member",
	Args:  cobra.ExactArgs(2),
	RunE:  runTicketAssign,
}

var ticketCommentsCmd = &cobra.Command{
	Use:   "comments ID",
	Short: "List comments on a ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketComments,
}

var ticketCommentCmd = &cobra.Command{
	Use:   "comment ID TEXT...",
	Short: "Post a comment on a ticket",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTicketComment,
}

var ticketActivityCmd = &cobra.Command{
	Use:   "activity [ID]",
	Short: "Show a ticket's activity log, or recent activity when no ID is given",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTicketActivity,
}

var ticketWorkLogsCmd = &cobra.Command{
	Use:   "worklogs ID",
	Short: "List work logs recorded against a ticket",
	Args:  cobra.ExactArgs(1),
	RunE:  runTicketWorkLogs,
}

var (
	listStatus    string
	listPriority  string
	listType      string
	listProject   int
	listSearch    string
	listMine      bool
	uncheckedFlag bool
	activityLimit int
)

func init() {
	f := ticketListCmd.Flags()
	f.StringVar(&listStatus, "status", "", "Filter by status")
	f.StringVar(&listPriority, "priority", "", "Filter by priority (low, medium, high, critical)")
	f.StringVar(&listType, "type", "", "Filter by type (bug, task, feature)")
	f.IntVar(&listProject, "project", 0, "Filter by project id")
	f.StringVar(&listSearch, "search", "", "Search title and description")
	f.BoolVar(&listMine, "mine", false, "Only tickets assigned to me")

	ticketStatusCmd.Flags().BoolVar(&uncheckedFlag, "unchecked", false, "Skip the local transition check")
	ticketActivityCmd.Flags().IntVar(&activityLimit, "limit", 10, "Number of recent entries when no ID is given")

	ticketCmd.AddCommand(
		ticketListCmd,
		ticketShowCmd,
		ticketTransitionsCmd,
		ticketStatusCmd,
		ticketSelfAssignCmd,
		ticketAssignCmd,
		ticketCommentsCmd,
		ticketCommentCmd,
		ticketActivityCmd,
		ticketWorkLogsCmd,
	)
	rootCmd.AddCommand(ticketCmd)
}

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
}

func runTicketList(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}
	if listStatus != "" {
		if _, err := workflow.ParseStatus(listStatus); err != nil {
			return err
		}
	}

	var (
		tickets []types.Ticket
		err     error
	)
	if listMine {
		tickets, err = current.api.Tickets.Mine(cmd.Context())
	} else {
		tickets, err = current.api.Tickets.List(cmd.Context(), &types.TicketListOptions{
			Status:   listStatus,
			Priority: listPriority,
			Type:     listType,
			Project:  listProject,
			Search:   listSearch,
		})
	}
	if err != nil {
		return err
	}

	if len(tickets) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No tickets found")
		return nil
	}
	w := newTable(cmd.OutOrStdout())
	fmt.Fprintln(w, "ID\tTICKET\tSTATUS\tPRIORITY\tASSIGNEE\tUPDATED\tTITLE")
	for _, t := range tickets {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			t.ID, t.TicketID, workflow.Status(t.Status).Label(), t.Priority,
			t.AssigneeLabel(), relative(t.UpdatedAt), t.Title)
	}
	return w.Flush()
}

func runTicketShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "ticket id")
	if err != nil {
		return err
	}
	if err := ensureProfile(cmd.Context()); err != nil {
		return err
	}
	view, err := current.ctl.Open(cmd.Context(), id)
	if err != nil {
		return err
	}
	defer view.Close()

	out := cmd.OutOrStdout()
	printTicket(out, view)
	activity := view.Activity()
	if len(activity) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Activity:")
		printActivity(out, activity)
	}
	return nil
}

func printTicket(out io.Writer, view *lifecycle.View) {
	t := view.Ticket()
	fmt.Fprintf(out, "%s  %s\n", t.TicketID, t.Title)
	w := newTable(out)
	fmt.Fprintf(w, "Status:\t%s\n", workflow.Status(t.Status).Label())
	fmt.Fprintf(w, "Type:\t%s\n", t.Type)
	fmt.Fprintf(w, "Priority:\t%s\n", t.Priority)
	fmt.Fprintf(w, "Project:\t%s\n", t.ProjectName)
	fmt.Fprintf(w, "Assignee:\t%s\n", t.AssigneeLabel())
	fmt.Fprintf(w, "Created:\t%s by %s\n", relative(t.CreatedAt), t.CreatedBy)
	fmt.Fprintf(w, "Updated:\t%s\n", relative(t.UpdatedAt))
	if timer := view.Timer(); timer.Visible {
		fmt.Fprintf(w, "Timer:\t%s (%s)\n", timer.Formatted, timer.UserName)
	}
	actions := view.Actions()
	if actions.CanChangeStatus && len(actions.Next) > 0 {
		fmt.Fprintf(w, "Next:\t%s\n", statusList(actions.Next))
	}
	if actions.CanSelfAssign {
		fmt.Fprintf(w, "Hint:\tunassigned, 'tickora ticket self-assign %d' to take it\n", t.ID)
	}
	w.Flush()

	if t.Description != "" {
		fmt.Fprintln(out)
		fmt.Fprintln(out, t.Description)
	}
}

func statusList(statuses []workflow.Status) string {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = s.String()
	}
	return strings.Join(names, ", ")
}

func runTicketTransitions(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "ticket id")
	if err != nil {
		return err
	}
	if err := ensureProfile(cmd.Context()); err != nil {
		return err
	}
	t, err := current.ctl.Ticket(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	from := workflow.Status(t.Status)
	next := workflow.AllowedNext(from)
	if len(next) == 0 {
		fmt.Fprintf(out, "%s is %s; no further transitions\n", t.TicketID, from.Label())
		return nil
	}
	w := newTable(out)
	fmt.Fprintln(w, "TARGET\tLABEL\tTIMER")
	for _, s := range next {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s, s.Label(), workflow.EffectOf(from, s))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if !workflow.CanChangeStatus(current.session.CurrentUser(), t) {
		fmt.Fprintln(out, "Only the assignee, a manager or an admin can change this ticket's status")
	}
	return nil
}

func runTicketStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "ticket id")
	if err != nil {
		return err
	}
	target, err := workflow.ParseStatus(args[1])
	if err != nil {
		return err
	}
	if err := ensureProfile(cmd.Context()); err != nil {
		return err
	}

	view, err := current.ctl.Open(cmd.Context(), id)
	if err != nil {
		return err
	}
	defer view.Close()

	var opts []lifecycle.RequestOption
	if uncheckedFlag {
		opts = append(opts, lifecycle.Unchecked())
	}
	from := view.Status()
	t, err := view.RequestStatusChange(cmd.Context(), target, opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %s -> %s\n", t.TicketID, from.Label(), workflow.Status(t.Status).Label())
	if timer := view.Timer(); timer.Visible {
		fmt.Fprintf(out, "Timer: %s\n", timer.Formatted)
	}
	return nil
}

func runTicketSelfAssign(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "ticket id")
	if err != nil {
		return err
	}
	if err := ensureProfile(cmd.Context()); err != nil {
		return err
	}
	view, err := current.ctl.Open(cmd.Context(), id)
	if err != nil {
		return err
	}
	defer view.Close()

	t, err := view.SelfAssign(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s assigned to %s\n", t.TicketID, t.AssigneeLabel())
	return nil
}

func runTicketAssign(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "ticket id")
	if err != nil {
		return err
	}
	userID, err := parseID(args[1], "user id")
	if err != nil {
		return err
	}
	if err := ensureProfile(cmd.Context()); err != nil {
		return err
	}
	view, err := current.ctl.Open(cmd.Context(), id)
	if err != nil {
		return err
	}
	defer view.Close()

	t, err := view.Assign(cmd.Context(), userID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s assigned to %s\n", t.TicketID, t.AssigneeLabel())
	return nil
}

func runTicketComments(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "ticket id")
	if err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	comments, err := current.api.Comments.ByTicket(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(comments) == 0 {
		fmt.Fprintln(out, "No comments")
		return nil
	}
	for _, c := range comments {
		fmt.Fprintf(out, "%s, %s:\n", c.AuthorName, relative(c.CreatedAt))
		for _, line := range strings.Split(c.Content, "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
	return nil
}

func runTicketComment(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "ticket id")
	if err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(args[1:], " "))
	if text == "" {
		return fmt.Errorf("comment text is empty")
	}
	if err := requireLogin(); err != nil {
		return err
	}
	c, err := current.api.Comments.Create(cmd.Context(), id, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Comment %d posted\n", c.ID)
	return nil
}

func runTicketActivity(cmd *cobra.Command, args []string) error {
	if err := requireLogin(); err != nil {
		return err
	}

	var (
		logs []types.ActivityLog
		err  error
	)
	if len(args) == 1 {
		id, perr := parseID(args[0], "ticket id")
		if perr != nil {
			return perr
		}
		logs, err = current.api.Activity.ByTicket(cmd.Context(), id)
	} else {
		logs, err = current.api.Activity.Recent(cmd.Context(), activityLimit)
	}
	if err != nil {
		return err
	}
	if len(logs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No activity")
		return nil
	}
	printActivity(cmd.OutOrStdout(), logs)
	return nil
}

func printActivity(out io.Writer, logs []types.ActivityLog) {
	w := newTable(out)
	for _, l := range logs {
		fmt.Fprintf(w, "%s\t%s\t%s\n", relative(l.CreatedAt), l.UserName, l.Description)
	}
	w.Flush()
}

func runTicketWorkLogs(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "ticket id")
	if err != nil {
		return err
	}
	if err := requireLogin(); err != nil {
		return err
	}
	logs, err := current.api.TimeLogs.List(cmd.Context(), id, 0)
	if err != nil {
		return err
	}
	total, err := current.api.TimeLogs.TotalTime(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(logs) == 0 {
		fmt.Fprintln(out, "No work logged")
		return nil
	}
	w := newTable(out)
	fmt.Fprintln(w, "USER\tSTARTED\tDURATION\tNOTES")
	for _, wl := range logs {
		duration := timetracking.FormatMinutes(wl.DurationMinutes)
		if wl.EndTime == nil {
			duration = "running"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", wl.UserName, relative(wl.StartTime), duration, wl.Notes)
	}
	fmt.Fprintf(w, "TOTAL\t\t%s\t%d closed logs\n", timetracking.FormatMinutes(total.TotalMinutes), total.WorkLogCount)
	return w.Flush()
}
