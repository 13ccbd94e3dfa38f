// Package workflow holds the ticket status state machine: the transition table, who may
// invoke a transition, and which time-tracking effect each transition implies.
//
// Every caller that offers or enacts a status change consults this package, so what the
// CLI offers and what the client sends can never drift apart.
package workflow

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status is a ticket lifecycle state
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusQA         Status = "qa"
	StatusClosed     Status = "closed"
	StatusReopened   Status = "reopened"
)

// transitions is the complete edge set. A strict cycle with closed -> reopened as the
// only reverse edge; nothing leads back to new and nothing loops.
var transitions = map[Status][]Status{
	StatusNew:        {StatusInProgress},
	StatusInProgress: {StatusQA},
	StatusQA:         {StatusClosed},
	StatusClosed:     {StatusReopened},
	StatusReopened:   {StatusInProgress},
}

var order = []Status{StatusNew, StatusInProgress, StatusQA, StatusClosed, StatusReopened}

var titler = cases.Title(language.English)

// Statuses returns every status in lifecycle order.
func Statuses() []Status {
	out := make([]Status, len(order))
	copy(out, order)
	return out
}

// ParseStatus converts a wire value (or a label such as "In Progress") into a Status.
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.Join(strings.Fields(strings.ReplaceAll(norm, "-", " ")), "_")
	st := Status(norm)
	if !st.Valid() {
		return "", fmt.Errorf("unknown ticket status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the five lifecycle states.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

func (s Status) String() string { return string(s) }

// Label returns the human readable form, e.g. "In Progress" or "QA".
func (s Status) Label() string {
	if s == StatusQA {
		return "QA"
	}
	return titler.String(strings.ReplaceAll(string(s), "_", " "))
}

// AllowedNext returns the statuses reachable from s in one step. Unknown statuses have none.
func AllowedNext(s Status) []Status {
	next := transitions[s]
	out := make([]Status, len(next))
	copy(out, next)
	return out
}

// CanTransition reports whether from -> to is an edge of the transition graph.
func CanTransition(from, to Status) bool {
	for _, n := range transitions[from] {
		if n == to {
			return true
		}
	}
	return false
}

// IsTracked reports whether a ticket in s may show a running work timer.
func IsTracked(s Status) bool {
	switch s {
	case StatusInProgress, StatusQA, StatusReopened:
		return true
	default:
		return false
	}
}

// TimerEffect is the time-tracking consequence of entering a status
type TimerEffect int

const (
	// EffectNone leaves the display as the backend reports it.
	EffectNone TimerEffect = iota
	// EffectStart expects a new work session: fetch the active session and start ticking.
	EffectStart
	// EffectClear ends any displayed session immediately.
	EffectClear
)

func (e TimerEffect) String() string {
	switch e {
	case EffectStart:
		return "start"
	case EffectClear:
		return "clear"
	default:
		return "none"
	}
}

// EffectOf returns the timer effect of moving from -> to.
func EffectOf(from, to Status) TimerEffect {
	switch to {
	case StatusInProgress:
		if from == StatusNew || from == StatusReopened {
			return EffectStart
		}
		return EffectNone
	case StatusClosed, StatusReopened:
		return EffectClear
	default:
		return EffectNone
	}
}
