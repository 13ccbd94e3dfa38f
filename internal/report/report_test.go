package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/tickora-io/tickora/internal/types"
)

func open(t *testing.T, buf *bytes.Buffer) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWriteAttendance(t *testing.T) {
	stats := &types.AttendanceStats{
		Range:            types.DateRange{Start: "2024-04-01", End: "2024-04-30"},
		TotalWorkingDays: 22,
		PresentDays:      20,
		AbsentDays:       1,
		LeaveDays:        1,
		Percentage:       90.9,
		Stats: []types.EmployeeStats{
			{EmployeeID: 1, Username: "dana", FullName: "Dana Scott", WorkingDays: 22, PresentDays: 21, LeaveDays: 1, Percentage: 95.45},
			{EmployeeID: 2, Username: "lee", WorkingDays: 22, PresentDays: 19, AbsentDays: 2, Percentage: 86.36},
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteAttendance(&buf, stats))
	f := open(t, &buf)

	assert.Equal(t, []string{SheetSummary, SheetEmployees}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"From", "2024-04-01"}, summary[0])
	assert.Equal(t, []string{"Working days", "22"}, summary[2])

	rows, err := f.GetRows(SheetEmployees)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Attendance %", rows[0][6])
	assert.Equal(t, []string{"Dana Scott", "dana", "22", "21", "0", "1", "95.45"}, rows[1])
	// Missing full names fall back to the username
	assert.Equal(t, "lee", rows[2][0])
}

func TestWriteAttendanceSingleEmployee(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteAttendance(&buf, &types.AttendanceStats{Username: "dana", PresentDays: 3}))
	f := open(t, &buf)

	assert.Equal(t, []string{SheetSummary}, f.GetSheetList())
	v, err := f.GetCellValue(SheetSummary, "B1")
	require.NoError(t, err)
	assert.Equal(t, "dana", v)
}

func TestWriteAttendanceNil(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteAttendance(&buf, nil))
	assert.Zero(t, buf.Len())
}

func TestWriteWorkLogs(t *testing.T) {
	start := time.Date(2024, 5, 6, 9, 0, 0, 0, time.Local)
	end := start.Add(95 * time.Minute)
	logs := []types.WorkLog{
		{ID: 1, UserName: "dana", StartTime: start, EndTime: &end, DurationMinutes: 95, Notes: "auto"},
		{ID: 2, UserName: "lee", StartTime: end.Add(time.Hour)},
	}
	total := &types.TotalTime{TicketID: "TKT-1", TotalMinutes: 95, WorkLogCount: 1}

	var buf bytes.Buffer
	require.NoError(t, WriteWorkLogs(&buf, "TKT-1", logs, total))
	f := open(t, &buf)

	rows, err := f.GetRows(SheetWorkLogs)
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"User", "Started", "Ended", "Minutes", "Duration", "Notes"}, rows[0])
	assert.Equal(t, []string{"dana", "2024-05-06 09:00", "2024-05-06 10:35", "95", "1h 35m", "auto"}, rows[1])
	assert.Equal(t, "running", rows[2][2])
	assert.Empty(t, rows[3])
	assert.Equal(t, "Total", rows[4][0])
	assert.Equal(t, "1h 35m", rows[4][4])

	props, err := f.GetDocProps()
	require.NoError(t, err)
	assert.Equal(t, "Work logs TKT-1", props.Title)
}

func TestWriteWorkLogsEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkLogs(&buf, "", nil, nil))
	f := open(t, &buf)

	rows, err := f.GetRows(SheetWorkLogs)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
