// Package ics renders a calendar as an iCalendar feed of all-day events.
package ics

import (
	ical "github.com/arran4/golang-ical"
	"github.com/lomoval/sharedcal/internal/storage"
)

const productID = "-//sharedcal//calendar//EN"

// Export renders events as VEVENTs. DTEND is exclusive in iCalendar, so it is
// the day after the event's last day.
func Export(c storage.Calendar, events []storage.Event) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	cal.SetXWRCalName(c.Name)

	for _, e := range events {
		r := e.Range().Repaired()
		ev := cal.AddEvent(e.ID)
		ev.SetCreatedTime(e.CreatedAt)
		ev.SetDtStampTime(e.CreatedAt)
		ev.SetAllDayStartAt(r.Start.Time())
		ev.SetAllDayEndAt(r.End.AddDays(1).Time())
		ev.SetSummary(e.Title)
		if e.Description != nil {
			ev.SetDescription(*e.Description)
		}
		ev.SetColor(e.AuthorColor)
		ev.SetProperty(ical.ComponentProperty("X-SHAREDCAL-AUTHOR"), e.AuthorName)
	}
	return cal.Serialize()
}
