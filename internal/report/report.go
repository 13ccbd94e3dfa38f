// Package report exports attendance statistics and ticket work logs as .xlsx workbooks.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/tickora-io/tickora/internal/timetracking"
	"github.com/tickora-io/tickora/internal/types"
)

const (
	SheetSummary   = "Summary"
	SheetEmployees = "Employees"
	SheetWorkLogs  = "Work Logs"

	timeLayout = "2006-01-02 15:04"
)

var (
	attendanceHeader = []interface{}{"Employee", "Username", "Working days", "Present", "Absent", "Leave", "Attendance %"}
	workLogHeader    = []interface{}{"User", "Started", "Ended", "Minutes", "Duration", "Notes"}
)

// WriteAttendance renders server-computed attendance statistics: a summary sheet and,
// when the statistics cover several employees, one row per employee.
func WriteAttendance(w io.Writer, stats *types.AttendanceStats) error {
	if stats == nil {
		return fmt.Errorf("no attendance statistics to export")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return err
	}
	summary := [][]interface{}{
		{"From", stats.Range.Start},
		{"To", stats.Range.End},
		{"Working days", stats.TotalWorkingDays},
		{"Present days", stats.PresentDays},
		{"Absent days", stats.AbsentDays},
		{"Leave days", stats.LeaveDays},
		{"Attendance %", stats.Percentage},
	}
	if stats.Username != "" {
		summary = append([][]interface{}{{"Employee", stats.Username}}, summary...)
	}
	if err := writeRows(f, SheetSummary, 1, summary); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetSummary, "A", "A", 16); err != nil {
		return err
	}

	if len(stats.Stats) > 0 {
		if _, err := f.NewSheet(SheetEmployees); err != nil {
			return err
		}
		rows := make([][]interface{}, 0, len(stats.Stats))
		for _, e := range stats.Stats {
			name := e.FullName
			if name == "" {
				name = e.Username
			}
			rows = append(rows, []interface{}{
				name, e.Username, e.WorkingDays, e.PresentDays, e.AbsentDays, e.LeaveDays, e.Percentage,
			})
		}
		if err := writeTable(f, SheetEmployees, attendanceHeader, rows); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// WriteWorkLogs renders a ticket's work logs, oldest first, followed by the server total.
// Open logs have no end and count no minutes.
func WriteWorkLogs(w io.Writer, ticketLabel string, logs []types.WorkLog, total *types.TotalTime) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetWorkLogs); err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(logs)+2)
	for _, wl := range logs {
		ended := "running"
		if wl.EndTime != nil {
			ended = formatTime(*wl.EndTime)
		}
		rows = append(rows, []interface{}{
			wl.UserName, formatTime(wl.StartTime), ended, wl.DurationMinutes,
			timetracking.FormatMinutes(wl.DurationMinutes), wl.Notes,
		})
	}

	if total != nil {
		rows = append(rows,
			[]interface{}{},
			[]interface{}{"Total", "", "", total.TotalMinutes, timetracking.FormatMinutes(total.TotalMinutes),
				fmt.Sprintf("%d closed logs", total.WorkLogCount)},
		)
	}

	if err := writeTable(f, SheetWorkLogs, workLogHeader, rows); err != nil {
		return err
	}
	if ticketLabel != "" {
		if err := f.SetDocProps(&excelize.DocProperties{Title: "Work logs " + ticketLabel, Creator: "tickora"}); err != nil {
			return err
		}
	}

	return f.Write(w)
}

// writeTable writes a bold, frozen header row followed by rows.
func writeTable(f *excelize.File, sheet string, header []interface{}, rows [][]interface{}) error {
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := writeRows(f, sheet, 1, [][]interface{}{header}); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}
	lastCol, _, err := excelize.SplitCellName(last)
	if err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", lastCol, 18); err != nil {
		return err
	}
	return writeRows(f, sheet, 2, rows)
}

func writeRows(f *excelize.File, sheet string, startRow int, rows [][]interface{}) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, startRow+i)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, startRow+i, err)
		}
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}
