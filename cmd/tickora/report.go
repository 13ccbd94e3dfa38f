package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tickora-io/tickora/internal/report"
	"github.com/tickora-io/tickora/internal/types"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export spreadsheets",
}

var reportAttendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Export attendance statistics to .xlsx",
	Args:  cobra.NoArgs,
	RunE:  runReportAttendance,
}

var reportWorkLogsCmd = &cobra.Command{
	Use:   "worklogs",
	Short: "Export a ticket's work logs to .xlsx",
	Args:  cobra.NoArgs,
	RunE:  runReportWorkLogs,
}

var (
	reportFrom     string
	reportTo       string
	reportOut      string
	reportAll      bool
	reportEmployee int
	reportTicket   int
)

func init() {
	for _, c := range []*cobra.Command{reportAttendanceCmd, reportWorkLogsCmd} {
		c.Flags().StringVarP(&reportOut, "out", "o", "", "Output file (.xlsx)")
		c.MarkFlagRequired("out")
	}

	f := reportAttendanceCmd.Flags()
	f.StringVar(&reportFrom, "from", "", "First day (YYYY-MM-DD)")
	f.StringVar(&reportTo, "to", "", "Last day (YYYY-MM-DD)")
	f.BoolVar(&reportAll, "all", false, "All employees (managers and admins)")
	f.IntVar(&reportEmployee, "employee", 0, "A single employee id (managers and admins)")

	reportWorkLogsCmd.Flags().IntVar(&reportTicket, "ticket", 0, "Ticket id")
	reportWorkLogsCmd.MarkFlagRequired("ticket")

	reportCmd.AddCommand(reportAttendanceCmd, reportWorkLogsCmd)
	rootCmd.AddCommand(reportCmd)
}

func checkOut(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return fmt.Errorf("--out must end in .xlsx, got %q", path)
	}
	return nil
}

// writeFile renders into memory first so a failed export leaves no partial file.
func writeFile(path string, render func(*bytes.Buffer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func runReportAttendance(cmd *cobra.Command, args []string) error {
	if err := checkOut(reportOut); err != nil {
		return err
	}
	if err := checkDate("from", reportFrom); err != nil {
		return err
	}
	if err := checkDate("to", reportTo); err != nil {
		return err
	}
	if reportAll && reportEmployee != 0 {
		return fmt.Errorf("--all and --employee are mutually exclusive")
	}
	if err := requireLogin(); err != nil {
		return err
	}

	stats, err := current.api.Attendance.Stats(cmd.Context(), &types.AttendanceStatsOptions{
		StartDate:    reportFrom,
		EndDate:      reportTo,
		AllEmployees: reportAll,
		EmployeeID:   reportEmployee,
	})
	if err != nil {
		return err
	}
	if err := writeFile(reportOut, func(buf *bytes.Buffer) error {
		return report.WriteAttendance(buf, stats)
	}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s to %s)\n", reportOut, stats.Range.Start, stats.Range.End)
	return nil
}

func runReportWorkLogs(cmd *cobra.Command, args []string) error {
	if err := checkOut(reportOut); err != nil {
		return err
	}
	if reportTicket <= 0 {
		return fmt.Errorf("invalid ticket id %d", reportTicket)
	}
	if err := requireLogin(); err != nil {
		return err
	}

	ctx := cmd.Context()
	ticket, err := current.ctl.Ticket(ctx, reportTicket)
	if err != nil {
		return err
	}
	logs, err := current.api.TimeLogs.List(ctx, reportTicket, 0)
	if err != nil {
		return err
	}
	total, err := current.api.TimeLogs.TotalTime(ctx, reportTicket)
	if err != nil {
		return err
	}
	if err := writeFile(reportOut, func(buf *bytes.Buffer) error {
		return report.WriteWorkLogs(buf, ticket.TicketID, logs, total)
	}); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d work logs)\n", reportOut, len(logs))
	return nil
}
