// Package index answers which events occupy a given day.
package index

import (
	"time"

	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/storage"
)

// OccupantsOf returns the events whose inclusive range contains day, in the
// order they appear in events. The result is never nil.
func OccupantsOf(events []storage.Event, day date.Day) []storage.Event {
	occupants := make([]storage.Event, 0)
	for _, e := range events {
		if e.Range().Contains(day) {
			occupants = append(occupants, e)
		}
	}
	return occupants
}

// Visible splits occupants into the first limit events and the number of
// hidden ones. A negative limit shows everything.
func Visible(occupants []storage.Event, limit int) ([]storage.Event, int) {
	if limit < 0 || len(occupants) <= limit {
		return occupants, 0
	}
	return occupants[:limit], len(occupants) - limit
}

// Window is the span of whole weeks covering month.
func Window(month date.Month, weekStart time.Weekday) date.Range {
	first, last := month.First(), month.Last()
	lead := (int(first.Weekday()) - int(weekStart) + 7) % 7
	trail := (int(weekStart) + 6 - int(last.Weekday()) + 7) % 7
	return date.Range{Start: first.AddDays(-lead), End: last.AddDays(trail)}
}

type Holidays interface {
	Holiday(day date.Day) (string, bool)
}

type Cell struct {
	Day     date.Day        `json:"day"`
	InMonth bool            `json:"inMonth"`
	Holiday string          `json:"holiday,omitempty"`
	Events  []storage.Event `json:"events"`
	More    int             `json:"more"`
}

// Grid builds one cell per day of the month's window. Each cell keeps at most
// limit events and counts the rest in More. holidays may be nil.
func Grid(events []storage.Event, month date.Month, weekStart time.Weekday, limit int, holidays Holidays) []Cell {
	window := Window(month, weekStart)
	relevant := make([]storage.Event, 0, len(events))
	for _, e := range events {
		if e.Range().Intersects(window.Start, window.End) {
			relevant = append(relevant, e)
		}
	}

	cells := make([]Cell, 0, window.Len())
	window.Each(func(d date.Day) {
		visible, more := Visible(OccupantsOf(relevant, d), limit)
		cell := Cell{Day: d, InMonth: d.MonthOf() == month, Events: visible, More: more}
		if holidays != nil {
			cell.Holiday, _ = holidays.Holiday(d)
		}
		cells = append(cells, cell)
	})
	return cells
}
