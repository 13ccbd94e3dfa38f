package timetracking

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tickora-io/tickora/internal/types"
	"github.com/tickora-io/tickora/internal/workflow"
)

// fakeClock is a manually advanced time source safe for concurrent reads.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 6, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestDisplayVisibility(t *testing.T) {
	active := &types.ActiveSession{Active: true, ElapsedSeconds: 90, UserName: "dana", UserID: 4}

	tests := []struct {
		name    string
		session *types.ActiveSession
		status  workflow.Status
		visible bool
	}{
		{"in progress with session", active, workflow.StatusInProgress, true},
		{"qa with session", active, workflow.StatusQA, true},
		{"reopened with session", active, workflow.StatusReopened, true},
		{"closed with session", active, workflow.StatusClosed, false},
		{"new with session", active, workflow.StatusNew, false},
		{"in progress without session", &types.ActiveSession{Active: false}, workflow.StatusInProgress, false},
		{"nil session", nil, workflow.StatusInProgress, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDisplay()
			d.Load(tt.session, tt.status)
			assert.Equal(t, tt.visible, d.Visible())
			if !tt.visible {
				assert.Equal(t, Snapshot{}, d.Snapshot())
			}
		})
	}
}

func TestDisplayTicksFromBaseline(t *testing.T) {
	clock := newFakeClock()
	d := NewDisplay(WithClock(clock.Now))
	d.Load(&types.ActiveSession{Active: true, ElapsedSeconds: 59, UserName: "dana"}, workflow.StatusInProgress)
	clock.Advance(time.Second)
	d.Tick()
	clock.Advance(time.Second)
	d.Tick()

	s := d.Snapshot()
	assert.True(t, s.Visible)
	assert.Equal(t, int64(61), s.ElapsedSeconds)
	assert.Equal(t, "1m 1s", s.Formatted)
	assert.Equal(t, "dana", s.UserName)
}

func TestDisplayFollowsWallTimeWhateverTheTickRate(t *testing.T) {
	clock := newFakeClock()
	d := NewDisplay(WithClock(clock.Now))
	d.Load(&types.ActiveSession{Active: true}, workflow.StatusInProgress)

	// Ticks every 3s: 6.5s in, two ticks have fired.
	clock.Advance(3 * time.Second)
	d.Tick()
	clock.Advance(3500 * time.Millisecond)
	d.Tick()
	assert.Equal(t, int64(6), d.Snapshot().ElapsedSeconds)

	clock.Advance(500 * time.Millisecond)
	d.Tick()
	assert.Equal(t, int64(7), d.Snapshot().ElapsedSeconds)
	assert.Equal(t, "7s", d.Snapshot().Formatted)

	// Repeated ticks within the same second do not count twice.
	d.Tick()
	d.Tick()
	assert.Equal(t, int64(7), d.Snapshot().ElapsedSeconds)
}

func TestDisplayNeverRunsBackwards(t *testing.T) {
	clock := newFakeClock()
	d := NewDisplay(WithClock(clock.Now))
	d.Load(&types.ActiveSession{Active: true, ElapsedSeconds: 30}, workflow.StatusInProgress)

	clock.Advance(5 * time.Second)
	d.Tick()
	clock.Advance(-time.Minute)
	d.Tick()
	assert.Equal(t, int64(35), d.Snapshot().ElapsedSeconds)
}

func TestDisplayClearDropsCounter(t *testing.T) {
	clock := newFakeClock()
	d := NewDisplay(WithClock(clock.Now))
	d.Load(&types.ActiveSession{Active: true, ElapsedSeconds: 10}, workflow.StatusInProgress)
	d.Clear()
	clock.Advance(time.Second)
	d.Tick()
	assert.False(t, d.Visible())
	assert.Equal(t, int64(0), d.Snapshot().ElapsedSeconds)

	// A later session starts from its own baseline, not the stale count.
	d.Load(&types.ActiveSession{Active: true, ElapsedSeconds: 0}, workflow.StatusInProgress)
	assert.Equal(t, "0s", d.Snapshot().Formatted)
}

func TestDisplayUserNameFallsBackToWorkLog(t *testing.T) {
	d := NewDisplay()
	d.Load(&types.ActiveSession{Active: true, WorkLog: &types.WorkLog{UserName: "sam"}}, workflow.StatusQA)
	assert.Equal(t, "sam", d.Snapshot().UserName)
}

func TestDisplayConcurrentTicks(t *testing.T) {
	clock := newFakeClock()
	d := NewDisplay(WithClock(clock.Now))
	d.Load(&types.ActiveSession{Active: true}, workflow.StatusInProgress)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			clock.Advance(time.Second)
			d.Tick()
		}()
	}
	wg.Wait()
	d.Tick()
	assert.Equal(t, int64(50), d.Snapshot().ElapsedSeconds)
}

func TestFormatActive(t *testing.T) {
	assert.Equal(t, "0s", FormatActive(0))
	assert.Equal(t, "0s", FormatActive(-5))
	assert.Equal(t, "59s", FormatActive(59))
	assert.Equal(t, "1m 0s", FormatActive(60))
	assert.Equal(t, "1h 0m 0s", FormatActive(3600))
	assert.Equal(t, "1h 2m 3s", FormatActive(3723))
}

func TestFormatMinutes(t *testing.T) {
	assert.Equal(t, "0m", FormatMinutes(0))
	assert.Equal(t, "45m", FormatMinutes(45))
	assert.Equal(t, "1h 0m", FormatMinutes(60))
	assert.Equal(t, "2h 5m", FormatMinutes(125))
}
