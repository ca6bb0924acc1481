package storage

import (
	"context"
	"errors"

	"github.com/lomoval/sharedcal/internal/date"
)

var (
	ErrDuplicateEventID = errors.New("event with same ID exists")
	ErrNotFoundEvent    = errors.New("event not found")
	ErrNotFoundCalendar = errors.New("calendar not found")
	ErrIncorrectEvent   = errors.New("incorrect event")
)

const DefaultCalendarName = "New Calendar"

type Storage interface {
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	CreateCalendar(ctx context.Context, c *Calendar) error
	GetCalendar(ctx context.Context, id string) (Calendar, error)
	RenameCalendar(ctx context.Context, id string, name string) (Calendar, error)
	RemoveCalendar(ctx context.Context, id string) error

	AddEvent(ctx context.Context, e *Event) error
	UpdateEvent(ctx context.Context, id string, p Patch) (Event, error)
	RemoveEvent(ctx context.Context, id string) (Event, error)
	ListEvents(ctx context.Context, calendarID string) ([]Event, error)
	// RemoveEndedBefore deletes every event whose last day is before day and
	// returns what was deleted.
	RemoveEndedBefore(ctx context.Context, day date.Day) ([]Event, error)
}
