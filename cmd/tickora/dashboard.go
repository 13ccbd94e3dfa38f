package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tickora-io/tickora/internal/types"
	"github.com/tickora-io/tickora/internal/workflow"
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show the dashboard for your role",
	Long: `Show the dashboard for your role: your own tickets and time for employees, the
projects you created or joined for managers, and system counters for admins.
Use --as to pick another view your role may read.`,
	Args: cobra.NoArgs,
	RunE: runDashboard,
}

var dashboardReportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "Show trends over the last --days days",
	Args:  cobra.NoArgs,
	RunE:  runDashboardReports,
}

var (
	dashboardAs   string
	dashboardDays int
)

func init() {
	dashboardCmd.PersistentFlags().StringVar(&dashboardAs, "as", "", "employee, manager or admin (default: your role)")
	dashboardReportsCmd.Flags().IntVar(&dashboardDays, "days", 30, "Report period in days")
	dashboardCmd.AddCommand(dashboardReportsCmd)
	rootCmd.AddCommand(dashboardCmd)
}

// dashboardView resolves --as against the caller's role.
func dashboardView(cmd *cobra.Command) (string, error) {
	if err := ensureProfile(cmd.Context()); err != nil {
		return "", err
	}
	view := dashboardAs
	if view == "" {
		view = types.RoleEmployee
		if u := current.session.CurrentUser(); u != nil && u.Role != "" {
			view = u.Role
		}
	}
	if view == "" || checkRole(view) != nil {
		return "", fmt.Errorf("invalid --as %q: want employee, manager or admin", view)
	}
	return view, nil
}

// printCounts prints a count map on one line in key order.
func printCounts(out io.Writer, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %d", k, counts[k])
	}
	fmt.Fprintf(out, "%-12s %s\n", label+":", strings.Join(parts, ", "))
}

func optional(s *string) string {
	if s == nil || *s == "" {
		return "-"
	}
	return *s
}

func runDashboard(cmd *cobra.Command, args []string) error {
	view, err := dashboardView(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch view {
	case types.RoleAdmin:
		d, err := current.api.Dashboard.Admin(ctx)
		if err != nil {
			return err
		}
		printAdminDashboard(out, d)
	case types.RoleManager:
		d, err := current.api.Dashboard.Manager(ctx)
		if err != nil {
			return err
		}
		return printManagerDashboard(out, d)
	default:
		d, err := current.api.Dashboard.Employee(ctx)
		if err != nil {
			return err
		}
		return printEmployeeDashboard(out, d)
	}
	return nil
}

func printEmployeeDashboard(out io.Writer, d *types.EmployeeDashboard) error {
	fmt.Fprintf(out, "Assigned %d, in progress %d, completed %d, waiting over a week %d\n",
		d.AssignedTicketsCount, d.InProgressCount, d.CompletedTicketsCount, d.TicketsDueSoon)
	fmt.Fprintf(out, "Logged %.2fh\n", d.TotalTimeLoggedHours)
	printCounts(out, "By status", d.TicketsByStatus)
	if s := d.ActiveSession; s != nil {
		fmt.Fprintf(out, "Working on %s %s since %s\n", s.TicketID, s.TicketTitle, relative(s.StartTime))
	}

	if len(d.InProgressTickets) > 0 {
		fmt.Fprintln(out, "\nIn progress:")
		w := newTable(out)
		fmt.Fprintln(w, "ID\tTICKET\tTITLE\tPROJECT\tPRIORITY")
		for _, t := range d.InProgressTickets {
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", t.ID, t.TicketID, t.Title, optional(t.ProjectName), t.Priority)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if len(d.RecentActivity) > 0 {
		fmt.Fprintln(out, "\nRecent activity:")
		for _, a := range d.RecentActivity {
			fmt.Fprintf(out, "  %-14s %s  %s\n", relative(a.CreatedAt), a.Action, a.Description)
		}
	}
	return nil
}

func printManagerDashboard(out io.Writer, d *types.ManagerDashboard) error {
	fmt.Fprintf(out, "Projects %d (active %d, archived %d), tickets %d, unassigned %d\n",
		d.TotalProjects, d.ActiveProjects, d.ArchivedProjects, d.TotalTickets, d.UnassignedTickets)
	printCounts(out, "By status", d.TicketsByStatus)
	printCounts(out, "By priority", d.TicketsByPriority)

	if len(d.ProjectTimeData) > 0 {
		fmt.Fprintln(out, "\nTime by project:")
		w := newTable(out)
		fmt.Fprintln(w, "PROJECT\tTICKETS\tHOURS")
		for _, p := range d.ProjectTimeData {
			fmt.Fprintf(w, "%s\t%d\t%.2f\n", p.ProjectName, p.TicketCount, p.TotalHours)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if len(d.TeamWorkload) > 0 {
		fmt.Fprintln(out, "\nTeam workload:")
		w := newTable(out)
		fmt.Fprintln(w, "MEMBER\tPROJECT\tASSIGNED\tIN PROGRESS")
		for _, m := range d.TeamWorkload {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n", m.UserName, m.ProjectName, m.AssignedTickets, m.InProgress)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if len(d.RecentTickets) > 0 {
		fmt.Fprintln(out, "\nRecent tickets:")
		w := newTable(out)
		fmt.Fprintln(w, "TICKET\tTITLE\tSTATUS\tASSIGNEE\tCREATED")
		for _, t := range d.RecentTickets {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", t.TicketID, t.Title, workflow.Status(t.Status).Label(), t.AssigneeName, relative(t.CreatedAt))
		}
		return w.Flush()
	}
	return nil
}

func printAdminDashboard(out io.Writer, d *types.AdminDashboard) {
	fmt.Fprintf(out, "Users     %d (active %d, joined this week %d)\n", d.Users.Total, d.Users.Active, d.Users.Recent)
	fmt.Fprintf(out, "Projects  %d (active %d, archived %d)\n", d.Projects.Total, d.Projects.Active, d.Projects.Archived)
	fmt.Fprintf(out, "Tickets   %d (created this week %d)\n", d.Tickets.Total, d.Tickets.Recent)
	fmt.Fprintf(out, "Work logs %d (%.2fh)\n", d.WorkLogs.Total, d.WorkLogs.TotalHours)
	fmt.Fprintf(out, "Activity  %d this week\n", d.Activity.RecentCount)
	printCounts(out, "By role", d.Users.ByRole)
	printCounts(out, "By status", d.Tickets.ByStatus)
	printCounts(out, "By action", d.Activity.ByType)
}

func runDashboardReports(cmd *cobra.Command, args []string) error {
	if dashboardDays <= 0 {
		return fmt.Errorf("--days must be positive, got %d", dashboardDays)
	}
	view, err := dashboardView(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	switch view {
	case types.RoleAdmin:
		r, err := current.api.Dashboard.AdminReports(ctx, dashboardDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Last %d days: %d users, %d projects, %d tickets, %.2fh logged\n",
			r.PeriodDays, r.Summary.TotalUsers, r.Summary.TotalProjects, r.Summary.TotalTickets, r.Summary.TotalHoursLogged)
		printCounts(out, "By action", r.ActivityBreakdown)
		if len(r.ProjectHealth) > 0 {
			w := newTable(out)
			fmt.Fprintln(w, "PROJECT\tOPEN\tOVERDUE\tHEALTH")
			for _, p := range r.ProjectHealth {
				fmt.Fprintf(w, "%s\t%d\t%d\t%.0f\n", p.ProjectName, p.OpenTickets, p.Overdue, p.HealthScore)
			}
			return w.Flush()
		}
	case types.RoleManager:
		r, err := current.api.Dashboard.ManagerReports(ctx, dashboardDays)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Last %d days\n", r.PeriodDays)
		w := newTable(out)
		fmt.Fprintln(w, "PROJECT\tTICKETS\tCLOSED\tPROGRESS")
		for _, p := range r.ProjectProgress {
			fmt.Fprintf(w, "%s\t%d\t%d\t%.1f%%\n", p.ProjectName, p.TotalTickets, p.Completed, p.Progress)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		if len(r.TeamPerformance) > 0 {
			w = newTable(out)
			fmt.Fprintln(w, "MEMBER\tASSIGNED\tCLOSED\tIN PROGRESS\tHOURS")
			for _, m := range r.TeamPerformance {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%.2f\n", m.UserName, m.Assigned, m.Completed, m.InProgress, m.TotalHours)
			}
			return w.Flush()
		}
	default:
		r, err := current.api.Dashboard.EmployeeReports(ctx, dashboardDays)
		if err != nil {
			return err
		}
		p := r.Productivity
		fmt.Fprintf(out, "Assigned %d, closed %d (%.1f%%), average resolution %.1fh\n",
			p.TotalAssigned, p.TotalCompleted, p.CompletionRate, p.AvgResolutionHours)
		printCounts(out, "By priority", r.PriorityDistribution)
	}
	return nil
}
