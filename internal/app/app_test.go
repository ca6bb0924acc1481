package app_test

import (
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lomoval/sharedcal/internal/app"
	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/feed"
	memoryfeed "github.com/lomoval/sharedcal/internal/feed/memory"
	"github.com/lomoval/sharedcal/internal/identity"
	"github.com/lomoval/sharedcal/internal/selection"
	"github.com/lomoval/sharedcal/internal/storage"
	memorystorage "github.com/lomoval/sharedcal/internal/storage/memory"
	"github.com/lomoval/sharedcal/internal/storage/notifying"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 6, 1, 15, 30, 0, 0, time.UTC)

func newApp(t *testing.T, config app.Config) (*app.App, *memoryfeed.Broker) {
	t.Helper()
	broker := memoryfeed.New()
	a, err := app.New(notifying.New(memorystorage.New(), broker, nil), broker, config,
		app.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a, broker
}

func draft(title, start, end string) app.Draft {
	return app.Draft{
		Title:       title,
		Start:       date.MustParse(start),
		End:         date.MustParse(end),
		AuthorName:  "Ana",
		AuthorColor: "#FF0000",
	}
}

func TestNew(t *testing.T) {
	_, err := app.New(memorystorage.New(), memoryfeed.New(), app.Config{WeekStart: "friday"})
	require.ErrorIs(t, err, app.ErrInvalidWeekStart)
}

func TestCalendars(t *testing.T) {
	ctx := context.Background()
	a, broker := newApp(t, app.Config{})

	c, err := a.CreateCalendar(ctx, "  ")
	require.NoError(t, err)
	require.Equal(t, storage.DefaultCalendarName, c.Name)

	renamed, err := a.RenameCalendar(ctx, c.ID, " Team ")
	require.NoError(t, err)
	require.Equal(t, "Team", renamed.Name)

	got, err := a.Calendar(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "Team", got.Name)

	_, err = a.Events(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, 1, broker.Subscribers(c.ID))

	require.NoError(t, a.RemoveCalendar(ctx, c.ID))
	require.Equal(t, 0, broker.Subscribers(c.ID))
	_, err = a.Events(ctx, c.ID)
	require.ErrorIs(t, err, storage.ErrNotFoundCalendar)
	require.ErrorIs(t, a.RemoveCalendar(ctx, c.ID), storage.ErrNotFoundCalendar)
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	a, _ := newApp(t, app.Config{})
	c, err := a.CreateCalendar(ctx, "Team")
	require.NoError(t, err)

	t.Run("endpoints in reverse order", func(t *testing.T) {
		d := draft(" Vacation ", "2024-06-05", "2024-06-02")
		d.Description = "beach"
		e, err := a.CreateEvent(ctx, c.ID, d)
		require.NoError(t, err)
		require.NotEmpty(t, e.ID)
		require.Equal(t, "Vacation", e.Title)
		require.Equal(t, "beach", *e.Description)
		require.Equal(t, date.MustParse("2024-06-02"), e.StartDate)
		require.Equal(t, date.MustParse("2024-06-05"), e.EndDate)
		require.Equal(t, "#ff0000", e.AuthorColor)

		events, err := a.Events(ctx, c.ID)
		require.NoError(t, err)
		require.Contains(t, events, e)
	})

	t.Run("today is allowed", func(t *testing.T) {
		_, err := a.CreateEvent(ctx, c.ID, draft("Today", "2024-06-01", "2024-06-01"))
		require.NoError(t, err)
	})

	t.Run("past start", func(t *testing.T) {
		_, err := a.CreateEvent(ctx, c.ID, draft("Past", "2024-05-31", "2024-06-03"))
		require.ErrorIs(t, err, selection.ErrPastDate)

		_, err = a.CreateEvent(ctx, c.ID, draft("Past", "2024-06-03", "2024-05-31"))
		require.ErrorIs(t, err, selection.ErrPastDate)
	})

	t.Run("validation", func(t *testing.T) {
		_, err := a.CreateEvent(ctx, c.ID, draft("  ", "2024-06-03", "2024-06-03"))
		require.ErrorIs(t, err, storage.ErrIncorrectEvent)

		d := draft("No end", "2024-06-03", "2024-06-03")
		d.End = date.Day{}
		_, err = a.CreateEvent(ctx, c.ID, d)
		require.ErrorIs(t, err, storage.ErrIncorrectEvent)

		d = draft("Bad color", "2024-06-03", "2024-06-03")
		d.AuthorColor = "red"
		_, err = a.CreateEvent(ctx, c.ID, d)
		require.ErrorIs(t, err, storage.ErrIncorrectEvent)
	})

	t.Run("anonymous author", func(t *testing.T) {
		d := draft("Anonymous", "2024-06-03", "2024-06-03")
		d.AuthorName, d.AuthorColor = "", ""
		e, err := a.CreateEvent(ctx, c.ID, d)
		require.NoError(t, err)
		require.True(t, strings.HasPrefix(e.AuthorName, "User "))
		require.True(t, identity.ValidColor(e.AuthorColor))
	})

	t.Run("unknown calendar", func(t *testing.T) {
		_, err := a.CreateEvent(ctx, "missing", draft("Lost", "2024-06-03", "2024-06-03"))
		require.ErrorIs(t, err, storage.ErrNotFoundCalendar)
	})
}

func TestUpdateAndRemoveEvent(t *testing.T) {
	ctx := context.Background()
	a, _ := newApp(t, app.Config{})
	c, err := a.CreateCalendar(ctx, "Team")
	require.NoError(t, err)
	e, err := a.CreateEvent(ctx, c.ID, draft("Vacation", "2024-06-03", "2024-06-05"))
	require.NoError(t, err)

	title := " Trip "
	color := "#00FF00"
	updated, err := a.UpdateEvent(ctx, c.ID, e.ID, storage.Patch{Title: &title, AuthorColor: &color})
	require.NoError(t, err)
	require.Equal(t, "Trip", updated.Title)
	require.Equal(t, "#00ff00", updated.AuthorColor)

	same, err := a.UpdateEvent(ctx, c.ID, e.ID, storage.Patch{})
	require.NoError(t, err)
	require.Equal(t, updated, same)

	_, err = a.UpdateEvent(ctx, c.ID, "missing", storage.Patch{Title: &title})
	require.ErrorIs(t, err, storage.ErrNotFoundEvent)

	removed, err := a.RemoveEvent(ctx, c.ID, e.ID)
	require.NoError(t, err)
	require.Equal(t, e.ID, removed.ID)
	_, err = a.RemoveEvent(ctx, c.ID, e.ID)
	require.ErrorIs(t, err, storage.ErrNotFoundEvent)
}

func TestUpdateEventDates(t *testing.T) {
	ctx := context.Background()
	a, _ := newApp(t, app.Config{})
	c, err := a.CreateCalendar(ctx, "Team")
	require.NoError(t, err)
	e, err := a.CreateEvent(ctx, c.ID, draft("Vacation", "2024-06-10", "2024-06-12"))
	require.NoError(t, err)

	day := func(s string) *date.Day {
		d := date.MustParse(s)
		return &d
	}

	_, err = a.UpdateEvent(ctx, c.ID, e.ID, storage.Patch{EndDate: day("2024-06-01")})
	require.ErrorIs(t, err, storage.ErrIncorrectEvent)
	_, err = a.UpdateEvent(ctx, c.ID, e.ID, storage.Patch{StartDate: day("2024-06-20")})
	require.ErrorIs(t, err, storage.ErrIncorrectEvent)
	_, err = a.UpdateEvent(ctx, c.ID, e.ID, storage.Patch{StartDate: day("2024-05-01")})
	require.ErrorIs(t, err, selection.ErrPastDate)

	view, err := a.DayEvents(ctx, c.ID, date.MustParse("2024-06-10"), 5)
	require.NoError(t, err)
	require.Len(t, view.Events, 1)
	require.Equal(t, date.MustParse("2024-06-12"), view.Events[0].EndDate)

	moved, err := a.UpdateEvent(ctx, c.ID, e.ID, storage.Patch{StartDate: day("2024-06-15"), EndDate: day("2024-06-16")})
	require.NoError(t, err)
	require.Equal(t, date.MustParse("2024-06-15"), moved.StartDate)
	require.Equal(t, date.MustParse("2024-06-16"), moved.EndDate)
}

func TestViews(t *testing.T) {
	ctx := context.Background()
	a, _ := newApp(t, app.Config{VisibleEvents: 2, Holidays: true, WeekStart: "monday"})
	c, err := a.CreateCalendar(ctx, "Team")
	require.NoError(t, err)

	for _, d := range []app.Draft{
		draft("Vacation", "2024-06-03", "2024-06-30"),
		draft("Vacation", "2024-06-10", "2024-06-12"),
		draft("Course", "2024-06-10", "2024-06-10"),
	} {
		_, err := a.CreateEvent(ctx, c.ID, d)
		require.NoError(t, err)
	}

	day, err := a.DayEvents(ctx, c.ID, date.MustParse("2024-06-10"), 5)
	require.NoError(t, err)
	require.Equal(t, "National Day", day.Holiday)
	require.Len(t, day.Events, 2)
	require.Equal(t, 1, day.More)

	all, err := a.AllDayEvents(ctx, c.ID, date.MustParse("2024-06-10"))
	require.NoError(t, err)
	require.Len(t, all, 3)

	june := date.Month{Year: 2024, Month: time.June}
	cells, err := a.Grid(ctx, c.ID, june)
	require.NoError(t, err)
	require.Len(t, cells, 35)
	require.Equal(t, date.MustParse("2024-05-27"), cells[0].Day)

	groups, err := a.Summary(ctx, c.ID, june, true)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	require.Equal(t, "Vacation", groups[0].Title)
	require.Equal(t, 31, groups[0].Days)

	span, err := a.SummarySpan(ctx, c.ID, june, june.Next(), false)
	require.NoError(t, err)
	require.Equal(t, 23, span[0].Days)

	out, err := a.ExportICS(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, 3, strings.Count(out, "BEGIN:VEVENT"))

	require.Len(t, a.Holidays(date.MustParse("2024-06-01"), date.MustParse("2024-06-30")), 1)
}

func TestHolidaysDisabled(t *testing.T) {
	a, _ := newApp(t, app.Config{})
	require.Empty(t, a.Holidays(date.MustParse("2024-01-01"), date.MustParse("2024-12-31")))

	c, err := a.CreateCalendar(context.Background(), "Team")
	require.NoError(t, err)
	cells, err := a.Grid(context.Background(), c.ID, date.Month{Year: 2024, Month: time.June})
	require.NoError(t, err)
	for _, cell := range cells {
		require.Empty(t, cell.Holiday)
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	a, _ := newApp(t, app.Config{})
	c, err := a.CreateCalendar(ctx, "Team")
	require.NoError(t, err)

	_, err = a.Subscribe(ctx, "missing")
	require.ErrorIs(t, err, storage.ErrNotFoundCalendar)

	sub, err := a.Subscribe(ctx, c.ID)
	require.NoError(t, err)
	defer sub.Close()

	e, err := a.CreateEvent(ctx, c.ID, draft("Vacation", "2024-06-03", "2024-06-05"))
	require.NoError(t, err)

	select {
	case n := <-sub.Notifications():
		require.Equal(t, feed.Insert{Event: e}, n)
	case <-time.After(time.Second):
		require.FailNow(t, "no notification received")
	}
}

// gatedSubscriber holds subscriptions to one calendar until the gate opens.
type gatedSubscriber struct {
	*memoryfeed.Broker
	calendarID string
	gate       chan struct{}
	calls      atomic.Int32
}

func (g *gatedSubscriber) Subscribe(ctx context.Context, calendarID string) (feed.Subscription, error) {
	if calendarID == g.calendarID {
		g.calls.Add(1)
		<-g.gate
	}
	return g.Broker.Subscribe(ctx, calendarID)
}

func TestSessionOpensDoNotBlockOtherCalendars(t *testing.T) {
	ctx := context.Background()
	stor := memorystorage.New()
	slow := storage.Calendar{Name: "slow"}
	fast := storage.Calendar{Name: "fast"}
	require.NoError(t, stor.CreateCalendar(ctx, &slow))
	require.NoError(t, stor.CreateCalendar(ctx, &fast))

	sub := &gatedSubscriber{Broker: memoryfeed.New(), calendarID: slow.ID, gate: make(chan struct{})}
	a, err := app.New(stor, sub, app.Config{}, app.WithClock(func() time.Time { return now }))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	done := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, err := a.Events(ctx, slow.ID)
			done <- err
		}()
	}
	require.Eventually(t, func() bool { return sub.calls.Load() == 1 }, time.Second, 5*time.Millisecond)

	opened := make(chan error, 1)
	go func() {
		_, err := a.Events(ctx, fast.ID)
		opened <- err
	}()
	select {
	case err := <-opened:
		require.NoError(t, err)
	case <-time.After(time.Second):
		require.FailNow(t, "opening a calendar waited for another one")
	}

	close(sub.gate)
	for i := 0; i < 2; i++ {
		require.NoError(t, <-done)
	}
	require.Equal(t, int32(1), sub.calls.Load())
	require.Equal(t, 1, sub.Subscribers(slow.ID))
}
