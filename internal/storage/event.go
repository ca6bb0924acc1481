package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/identity"
)

type Calendar struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type Event struct {
	ID          string    `json:"id" db:"id"`
	CalendarID  string    `json:"calendarId" db:"calendar_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description" db:"description"`
	StartDate   date.Day  `json:"startDate" db:"start_date"`
	EndDate     date.Day  `json:"endDate" db:"end_date"`
	AuthorName  string    `json:"authorName" db:"author_name"`
	AuthorColor string    `json:"authorColor" db:"author_color"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Range is the inclusive span of days the event occupies.
func (e Event) Range() date.Range {
	return date.Range{Start: e.StartDate, End: e.EndDate}
}

// Validate checks the fields a stored event must carry.
func (e Event) Validate() error {
	switch {
	case e.CalendarID == "":
		return fmt.Errorf("calendar is not set: %w", ErrIncorrectEvent)
	case e.Title == "":
		return fmt.Errorf("title is empty: %w", ErrIncorrectEvent)
	case e.StartDate.IsZero() || e.EndDate.IsZero():
		return fmt.Errorf("event dates are not set: %w", ErrIncorrectEvent)
	case e.EndDate.Before(e.StartDate):
		return fmt.Errorf("event ends on %s before it starts on %s: %w", e.EndDate, e.StartDate, ErrIncorrectEvent)
	case !identity.ValidColor(e.AuthorColor):
		return fmt.Errorf("author color %q: %w", e.AuthorColor, ErrIncorrectEvent)
	}
	return nil
}

// Patch lists the event fields an update replaces. Nil fields are left as
// they are. An empty Description clears it.
type Patch struct {
	Title       *string   `json:"title,omitempty"`
	Description *string   `json:"description,omitempty"`
	StartDate   *date.Day `json:"startDate,omitempty"`
	EndDate     *date.Day `json:"endDate,omitempty"`
	AuthorName  *string   `json:"authorName,omitempty"`
	AuthorColor *string   `json:"authorColor,omitempty"`
}

// PatchOf returns a patch replacing every mutable field with the values of e.
func PatchOf(e Event) Patch {
	description := ""
	if e.Description != nil {
		description = *e.Description
	}
	return Patch{
		Title:       &e.Title,
		Description: &description,
		StartDate:   &e.StartDate,
		EndDate:     &e.EndDate,
		AuthorName:  &e.AuthorName,
		AuthorColor: &e.AuthorColor,
	}
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.StartDate == nil &&
		p.EndDate == nil && p.AuthorName == nil && p.AuthorColor == nil
}

func (p Patch) Apply(e Event) Event {
	if p.Title != nil {
		e.Title = *p.Title
	}
	if p.Description != nil {
		e.Description = Description(*p.Description)
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.AuthorName != nil {
		e.AuthorName = *p.AuthorName
	}
	if p.AuthorColor != nil {
		e.AuthorColor = *p.AuthorColor
	}
	return e
}

// Description maps free text to the stored form: blank text is no description.
func Description(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
