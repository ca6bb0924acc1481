package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/feed"
	"github.com/lomoval/sharedcal/internal/holidays"
	"github.com/lomoval/sharedcal/internal/ics"
	"github.com/lomoval/sharedcal/internal/identity"
	"github.com/lomoval/sharedcal/internal/index"
	"github.com/lomoval/sharedcal/internal/metrics"
	"github.com/lomoval/sharedcal/internal/selection"
	"github.com/lomoval/sharedcal/internal/session"
	"github.com/lomoval/sharedcal/internal/storage"
	"github.com/lomoval/sharedcal/internal/summary"
	log "github.com/sirupsen/logrus"
)

var ErrInvalidWeekStart = errors.New("week must start on sunday or monday")

type Config struct {
	WeekStart     string
	VisibleEvents int
	Holidays      bool
}

type Option func(*App)

// WithClock replaces the wall clock used to decide which days are in the past.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

func WithHolidays(h *holidays.Calendar) Option {
	return func(a *App) { a.holidays = h }
}

type App struct {
	storage    storage.Storage
	subscriber feed.Subscriber
	weekStart  time.Weekday
	visible    int
	holidays   *holidays.Calendar
	now        func() time.Time
	metrics    *metrics.Metrics

	mu       sync.Mutex
	sessions map[string]*session.Session
	opening  map[string]chan struct{}
}

// Draft is a new event as entered by a user. Start and End may come in either
// order.
type Draft struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Start       date.Day `json:"startDate"`
	End         date.Day `json:"endDate"`
	AuthorName  string   `json:"authorName"`
	AuthorColor string   `json:"authorColor"`
}

type DayView struct {
	Day     date.Day        `json:"day"`
	Holiday string          `json:"holiday,omitempty"`
	Events  []storage.Event `json:"events"`
	More    int             `json:"more"`
}

// New builds the application over a storage whose writes reach subscriber.
func New(stor storage.Storage, subscriber feed.Subscriber, config Config, opts ...Option) (*App, error) {
	a := &App{
		storage:    stor,
		subscriber: subscriber,
		visible:    config.VisibleEvents,
		now:        time.Now,
		sessions:   make(map[string]*session.Session),
		opening:    make(map[string]chan struct{}),
	}
	switch strings.ToLower(config.WeekStart) {
	case "", "sunday":
		a.weekStart = time.Sunday
	case "monday":
		a.weekStart = time.Monday
	default:
		return nil, fmt.Errorf("%q: %w", config.WeekStart, ErrInvalidWeekStart)
	}
	if config.Holidays {
		a.holidays = holidays.Default()
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func (a *App) Today() date.Day {
	return date.Of(a.now())
}

func (a *App) CreateCalendar(ctx context.Context, name string) (storage.Calendar, error) {
	c := storage.Calendar{Name: strings.TrimSpace(name)}
	if err := a.storage.CreateCalendar(ctx, &c); err != nil {
		return storage.Calendar{}, err
	}
	return c, nil
}

func (a *App) Calendar(ctx context.Context, id string) (storage.Calendar, error) {
	return a.storage.GetCalendar(ctx, id)
}

func (a *App) RenameCalendar(ctx context.Context, id string, name string) (storage.Calendar, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = storage.DefaultCalendarName
	}
	return a.storage.RenameCalendar(ctx, id, name)
}

func (a *App) RemoveCalendar(ctx context.Context, id string) error {
	if err := a.storage.RemoveCalendar(ctx, id); err != nil {
		return err
	}
	a.mu.Lock()
	s, ok := a.sessions[id]
	delete(a.sessions, id)
	a.mu.Unlock()
	if ok {
		if err := s.Close(); err != nil {
			log.Warnf("failed to close session of calendar %s: %v", id, err)
		}
	}
	return nil
}

// CreateEvent runs the draft's days through a selection, so a start that is
// already in the past is rejected with selection.ErrPastDate.
func (a *App) CreateEvent(ctx context.Context, calendarID string, d Draft) (storage.Event, error) {
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return storage.Event{}, fmt.Errorf("title is empty: %w", storage.ErrIncorrectEvent)
	}
	if d.Start.IsZero() || d.End.IsZero() {
		return storage.Event{}, fmt.Errorf("event dates are not set: %w", storage.ErrIncorrectEvent)
	}

	var committed date.Range
	today := a.Today()
	m := selection.New(func(r date.Range) { committed = r })
	if err := m.Interact(d.Start, today); err != nil {
		return storage.Event{}, err
	}
	if err := m.Interact(d.End, today); err != nil {
		return storage.Event{}, err
	}
	if committed.Start.Before(today) {
		return storage.Event{}, fmt.Errorf("%s is before %s: %w", committed.Start, today, selection.ErrPastDate)
	}

	s, err := a.session(ctx, calendarID)
	if err != nil {
		return storage.Event{}, err
	}
	author := identity.Resolve(d.AuthorName, d.AuthorColor)
	e := storage.Event{
		Title:       title,
		Description: storage.Description(d.Description),
		StartDate:   committed.Start,
		EndDate:     committed.End,
		AuthorName:  author.Name,
		AuthorColor: author.Color,
	}
	if err := s.AddEvent(ctx, &e); err != nil {
		return storage.Event{}, err
	}
	return e, nil
}

// UpdateEvent applies p to an event. A patch moving the dates must keep the
// end on or after the start, and may not move the start into the past.
func (a *App) UpdateEvent(ctx context.Context, calendarID, id string, p storage.Patch) (storage.Event, error) {
	s, err := a.session(ctx, calendarID)
	if err != nil {
		return storage.Event{}, err
	}
	if err := a.checkDates(ctx, s, id, p); err != nil {
		return storage.Event{}, err
	}
	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		p.Title = &title
	}
	if p.AuthorColor != nil {
		color := strings.ToLower(*p.AuthorColor)
		p.AuthorColor = &color
	}
	if p.IsEmpty() {
		return s.Lookup(ctx, id)
	}
	return s.UpdateEvent(ctx, id, p)
}

// checkDates validates the range an update leaves behind.
func (a *App) checkDates(ctx context.Context, s *session.Session, id string, p storage.Patch) error {
	if p.StartDate == nil && p.EndDate == nil {
		return nil
	}
	current, err := s.Lookup(ctx, id)
	if err != nil {
		return err
	}
	merged := p.Apply(current)
	if merged.EndDate.Before(merged.StartDate) {
		return fmt.Errorf("event ends on %s before it starts on %s: %w",
			merged.EndDate, merged.StartDate, storage.ErrIncorrectEvent)
	}
	if today := a.Today(); merged.StartDate.Before(today) {
		return fmt.Errorf("%s is before %s: %w", merged.StartDate, today, selection.ErrPastDate)
	}
	return nil
}

func (a *App) RemoveEvent(ctx context.Context, calendarID, id string) (storage.Event, error) {
	s, err := a.session(ctx, calendarID)
	if err != nil {
		return storage.Event{}, err
	}
	return s.DeleteEvent(ctx, id)
}

func (a *App) Events(ctx context.Context, calendarID string) ([]storage.Event, error) {
	s, err := a.session(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// DayEvents lists the events on day, at most limit of them. A negative limit
// uses the configured number of visible events.
func (a *App) DayEvents(ctx context.Context, calendarID string, day date.Day, limit int) (DayView, error) {
	events, err := a.Events(ctx, calendarID)
	if err != nil {
		return DayView{}, err
	}
	if limit < 0 {
		limit = a.visible
	}
	shown, more := index.Visible(index.OccupantsOf(events, day), limit)
	view := DayView{Day: day, Events: shown, More: more}
	if a.holidays != nil {
		view.Holiday, _ = a.holidays.Holiday(day)
	}
	return view, nil
}

// AllDayEvents lists every event on day.
func (a *App) AllDayEvents(ctx context.Context, calendarID string, day date.Day) ([]storage.Event, error) {
	events, err := a.Events(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	return index.OccupantsOf(events, day), nil
}

func (a *App) Grid(ctx context.Context, calendarID string, month date.Month) ([]index.Cell, error) {
	events, err := a.Events(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	var names index.Holidays
	if a.holidays != nil {
		names = a.holidays
	}
	return index.Grid(events, month, a.weekStart, a.visible, names), nil
}

func (a *App) Summary(ctx context.Context, calendarID string, month date.Month, includeWeekends bool) ([]summary.Group, error) {
	events, err := a.Events(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	return summary.Summarize(events, month, includeWeekends), nil
}

func (a *App) SummarySpan(
	ctx context.Context,
	calendarID string,
	first, last date.Month,
	includeWeekends bool,
) ([]summary.Group, error) {
	events, err := a.Events(ctx, calendarID)
	if err != nil {
		return nil, err
	}
	return summary.Span(events, first, last, includeWeekends), nil
}

func (a *App) ExportICS(ctx context.Context, calendarID string) (string, error) {
	c, err := a.storage.GetCalendar(ctx, calendarID)
	if err != nil {
		return "", err
	}
	events, err := a.Events(ctx, calendarID)
	if err != nil {
		return "", err
	}
	return ics.Export(c, events), nil
}

// Holidays lists holidays between two days, or nothing when they are disabled.
func (a *App) Holidays(first, last date.Day) []holidays.Holiday {
	if a.holidays == nil {
		return []holidays.Holiday{}
	}
	return a.holidays.Between(first, last)
}

// Subscribe streams the changes of an existing calendar.
func (a *App) Subscribe(ctx context.Context, calendarID string) (feed.Subscription, error) {
	if _, err := a.storage.GetCalendar(ctx, calendarID); err != nil {
		return nil, err
	}
	sub, err := a.subscriber.Subscribe(ctx, calendarID)
	if err != nil {
		return nil, fmt.Errorf("subscribe to calendar %s: %w: %w", calendarID, session.ErrCollaboratorFailure, err)
	}
	return sub, nil
}

func (a *App) Close() {
	a.mu.Lock()
	sessions := a.sessions
	a.sessions = make(map[string]*session.Session)
	a.mu.Unlock()
	for id, s := range sessions {
		if err := s.Close(); err != nil {
			log.Warnf("failed to close session of calendar %s: %v", id, err)
		}
	}
}

// session returns the open session of a calendar, opening it on first use or
// after its feed ended. Only one open per calendar runs at a time, and it
// runs without holding a.mu.
func (a *App) session(ctx context.Context, calendarID string) (*session.Session, error) {
	for {
		a.mu.Lock()
		if s, ok := a.sessions[calendarID]; ok {
			select {
			case <-s.Done():
				log.Warnf("feed of calendar %s ended, reopening session", calendarID)
				delete(a.sessions, calendarID)
				go s.Close()
			default:
				a.mu.Unlock()
				return s, nil
			}
		}
		if wait, ok := a.opening[calendarID]; ok {
			a.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		ready := make(chan struct{})
		a.opening[calendarID] = ready
		a.mu.Unlock()

		s, err := a.open(ctx, calendarID)

		a.mu.Lock()
		delete(a.opening, calendarID)
		if err == nil {
			a.sessions[calendarID] = s
		}
		a.mu.Unlock()
		close(ready)
		return s, err
	}
}

func (a *App) open(ctx context.Context, calendarID string) (*session.Session, error) {
	if _, err := a.storage.GetCalendar(ctx, calendarID); err != nil {
		if errors.Is(err, storage.ErrNotFoundCalendar) {
			return nil, err
		}
		return nil, fmt.Errorf("get calendar %s: %w: %w", calendarID, session.ErrCollaboratorFailure, err)
	}
	return session.Open(ctx, calendarID, a.storage, a.subscriber, a.metrics)
}
