// Package timetracking renders the active work session of a ticket. It is a display
// cache: the counter it keeps is never sent to the server.
package timetracking

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tickora-io/tickora/internal/types"
	"github.com/tickora-io/tickora/internal/workflow"
)

// Snapshot is an immutable copy of the display state
type Snapshot struct {
	Visible        bool
	ElapsedSeconds int64
	UserName       string
	UserID         int
	Formatted      string
}

// Display holds the elapsed-time counter for one ticket. The counter is the backend's
// baseline plus the wall time since it was loaded, so it does not depend on how often
// Tick runs.
type Display struct {
	mu       sync.Mutex
	now      func() time.Time
	visible  bool
	baseline int64
	loadedAt time.Time
	elapsed  int64
	userName string
	userID   int
}

// DisplayOption configures a Display.
type DisplayOption func(*Display)

// WithClock replaces time.Now as the display's time source.
func WithClock(now func() time.Time) DisplayOption {
	return func(d *Display) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDisplay returns an empty, hidden display.
func NewDisplay(opts ...DisplayOption) *Display {
	d := &Display{now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Load replaces the display state with the session the backend reported. The display is
// visible only if the session is active and status is in the tracked set.
func (d *Display) Load(session *types.ActiveSession, status workflow.Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if session == nil || !session.Active || !workflow.IsTracked(status) {
		d.reset()
		return
	}
	d.visible = true
	d.baseline = session.ElapsedSeconds
	if d.baseline < 0 {
		d.baseline = 0
	}
	d.elapsed = d.baseline
	d.loadedAt = d.now()
	d.userName = session.UserName
	d.userID = session.UserID
	if d.userName == "" && session.WorkLog != nil {
		d.userName = session.WorkLog.UserName
	}
}

// Tick brings a visible display up to the current time. Hidden displays do not count,
// and the counter never moves backwards if the clock does.
func (d *Display) Tick() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.visible {
		return
	}
	if e := d.baseline + int64(d.now().Sub(d.loadedAt)/time.Second); e > d.elapsed {
		d.elapsed = e
	}
}

// Clear hides the display and discards the counter.
func (d *Display) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reset()
}

// Visible reports whether a running timer is shown.
func (d *Display) Visible() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.visible
}

// Snapshot returns a copy of the current state.
func (d *Display) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := Snapshot{
		Visible:        d.visible,
		ElapsedSeconds: d.elapsed,
		UserName:       d.userName,
		UserID:         d.userID,
	}
	if d.visible {
		s.Formatted = FormatActive(d.elapsed)
	}
	return s
}

func (d *Display) reset() {
	d.visible = false
	d.baseline = 0
	d.loadedAt = time.Time{}
	d.elapsed = 0
	d.userName = ""
	d.userID = 0
}

// FormatActive formats a running timer with seconds: "1h 2m 3s", "2m 3s", "3s".
func FormatActive(totalSeconds int64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	parts := make([]string, 0, 3)
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 || hours > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))
	return strings.Join(parts, " ")
}

// FormatMinutes formats logged durations: "1h 2m" or "2m".
func FormatMinutes(totalMinutes int) string {
	if totalMinutes < 0 {
		totalMinutes = 0
	}
	hours := totalMinutes / 60
	minutes := totalMinutes % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
