// Package selection turns day clicks into a committed date range.
package selection

import (
	"errors"
	"fmt"

	"github.com/lomoval/sharedcal/internal/date"
)

var ErrPastDate = errors.New("date is in the past")

type State int

const (
	Idle State = iota
	AnchorSet
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AnchorSet:
		return "anchor set"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Machine is not safe for concurrent use; it belongs to one interacting user.
type Machine struct {
	state    State
	anchor   date.Day
	cursor   date.Day
	onCommit func(date.Range)
}

// New returns an idle machine. onCommit receives every committed range and
// may be nil.
func New(onCommit func(date.Range)) *Machine {
	return &Machine{onCommit: onCommit}
}

// Interact handles a click on day. today is the caller's current day and is
// only consulted when a new selection starts.
func (m *Machine) Interact(day, today date.Day) error {
	switch m.state {
	case AnchorSet:
		committed := date.Range{Start: date.Min(m.anchor, day), End: date.Max(m.anchor, day)}
		m.Reset()
		if m.onCommit != nil {
			m.onCommit(committed)
		}
		return nil
	default:
		if day.Before(today) {
			return fmt.Errorf("%s is before %s: %w", day, today, ErrPastDate)
		}
		m.state = AnchorSet
		m.anchor = day
		m.cursor = day
		return nil
	}
}

// Hover moves the cursor of an in-progress selection. It does nothing while idle.
func (m *Machine) Hover(day date.Day) {
	if m.state == AnchorSet {
		m.cursor = day
	}
}

// Highlight is the range between the anchor and the cursor.
func (m *Machine) Highlight() (date.Range, bool) {
	if m.state != AnchorSet {
		return date.Range{}, false
	}
	return date.Range{Start: date.Min(m.anchor, m.cursor), End: date.Max(m.anchor, m.cursor)}, true
}

func (m *Machine) Highlighted(day date.Day) bool {
	r, ok := m.Highlight()
	return ok && r.Contains(day)
}

func (m *Machine) State() State {
	return m.state
}

func (m *Machine) Anchor() (date.Day, bool) {
	return m.anchor, m.state == AnchorSet
}

func (m *Machine) Reset() {
	m.state = Idle
	m.anchor = date.Day{}
	m.cursor = date.Day{}
}
