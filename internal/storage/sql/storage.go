package sqlstorage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/storage"
	log "github.com/sirupsen/logrus"
)

var ErrConnectionFailed = errors.New("failed to connect")

//go:embed schema.sql
var schema string

const (
	dbErrUniqueViolation     = "23505"
	dbErrForeignKeyViolation = "23503"
	dbErrCheckViolation      = "23514"

	eventColumns = "id, calendar_id, title, description, start_date, end_date, author_name, author_color, created_at"
)

type Config struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
}

type Storage struct {
	host     string
	port     int
	database string
	username string
	password string
	db       *sqlx.DB
}

func New(config Config) *Storage {
	return &Storage{
		host:     config.Host,
		port:     config.Port,
		database: config.Database,
		username: config.Username,
		password: config.Password,
	}
}

func (s *Storage) Connect(ctx context.Context) error {
	db, err := sqlx.ConnectContext(
		ctx,
		"postgres",
		fmt.Sprintf(
			"sslmode=disable host=%s port=%d dbname=%s user=%s password=%s",
			s.host, s.port, s.database, s.username, s.password),
	)
	if err != nil {
		log.Errorf("failed to connect: %v", err)
		return ErrConnectionFailed
	}
	s.db = db
	return nil
}

// EnsureSchema creates the tables and indexes that do not exist yet.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close connection: %w", err)
	}
	return nil
}

func (s *Storage) CreateCalendar(ctx context.Context, c *storage.Calendar) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.Name == "" {
		c.Name = storage.DefaultCalendarName
	}
	return s.db.GetContext(
		ctx,
		&c.CreatedAt,
		"INSERT INTO calendars(id, name) VALUES($1, $2) RETURNING created_at",
		c.ID, c.Name,
	)
}

func (s *Storage) GetCalendar(ctx context.Context, id string) (storage.Calendar, error) {
	var c storage.Calendar
	err := s.db.GetContext(ctx, &c, "SELECT id, name, created_at FROM calendars WHERE id=$1", id)
	if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
		return c, fmt.Errorf("failed to get calendar %q: %w", id, storage.ErrNotFoundCalendar)
	}
	return c, err
}

func (s *Storage) RenameCalendar(ctx context.Context, id string, name string) (storage.Calendar, error) {
	var c storage.Calendar
	err := s.db.GetContext(
		ctx,
		&c,
		"UPDATE calendars SET name=$2 WHERE id=$1 RETURNING id, name, created_at",
		id, name,
	)
	if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
		return c, fmt.Errorf("failed to rename calendar %q: %w", id, storage.ErrNotFoundCalendar)
	}
	return c, err
}

// RemoveCalendar relies on ON DELETE CASCADE to drop the calendar's events.
func (s *Storage) RemoveCalendar(ctx context.Context, id string) error {
	var found bool
	err := s.db.GetContext(ctx, &found, "DELETE FROM calendars WHERE id=$1 RETURNING TRUE", id)
	if !found {
		return fmt.Errorf("failed to remove calendar %q: %w", id, storage.ErrNotFoundCalendar)
	}
	return err
}

func (s *Storage) AddEvent(ctx context.Context, e *storage.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	err := s.db.GetContext(
		ctx,
		&e.CreatedAt,
		"INSERT INTO events(id, calendar_id, title, description, start_date, end_date, author_name, author_color) "+
			"VALUES($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at",
		e.ID, e.CalendarID, e.Title, e.Description, e.StartDate, e.EndDate, e.AuthorName, e.AuthorColor)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case dbErrUniqueViolation:
			return fmt.Errorf("duplicate ID %q: %w", e.ID, storage.ErrDuplicateEventID)
		case dbErrForeignKeyViolation:
			return fmt.Errorf("failed to add event to calendar %q: %w", e.CalendarID, storage.ErrNotFoundCalendar)
		}
	}
	return err
}

func (s *Storage) UpdateEvent(ctx context.Context, id string, p storage.Patch) (storage.Event, error) {
	current, err := s.getEvent(ctx, id)
	if err != nil {
		return storage.Event{}, err
	}
	if err := p.Apply(current).Validate(); err != nil {
		return storage.Event{}, err
	}

	sets, args := patchColumns(p)
	if len(sets) == 0 {
		return current, nil
	}
	args = append(args, id)

	var e storage.Event
	err = s.db.GetContext(
		ctx,
		&e,
		"UPDATE events SET "+strings.Join(sets, ", ")+
			" WHERE id=$"+strconv.Itoa(len(args))+" RETURNING "+eventColumns,
		args...,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return e, fmt.Errorf("failed to update event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == dbErrCheckViolation {
		return e, fmt.Errorf("failed to update event with id %q: %w", id, storage.ErrIncorrectEvent)
	}
	return e, err
}

func (s *Storage) RemoveEvent(ctx context.Context, id string) (storage.Event, error) {
	var e storage.Event
	err := s.db.GetContext(ctx, &e, "DELETE FROM events WHERE id=$1 RETURNING "+eventColumns, id)
	if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
		return e, fmt.Errorf("failed to remove event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	return e, err
}

func (s *Storage) ListEvents(ctx context.Context, calendarID string) ([]storage.Event, error) {
	events := make([]storage.Event, 0)
	err := s.db.SelectContext(
		ctx,
		&events,
		"SELECT "+eventColumns+" FROM events WHERE calendar_id=$1 ORDER BY created_at, id",
		calendarID,
	)
	if isInvalidUUID(err) {
		return events, nil
	}
	return events, err
}

func (s *Storage) RemoveEndedBefore(ctx context.Context, day date.Day) ([]storage.Event, error) {
	events := make([]storage.Event, 0)
	err := s.db.SelectContext(
		ctx,
		&events,
		"DELETE FROM events WHERE end_date < $1 RETURNING "+eventColumns,
		day,
	)
	return events, err
}

func (s *Storage) getEvent(ctx context.Context, id string) (storage.Event, error) {
	var e storage.Event
	err := s.db.GetContext(ctx, &e, "SELECT "+eventColumns+" FROM events WHERE id=$1", id)
	if errors.Is(err, sql.ErrNoRows) || isInvalidUUID(err) {
		return e, fmt.Errorf("failed to update event with id %q: %w", id, storage.ErrNotFoundEvent)
	}
	return e, err
}

func patchColumns(p storage.Patch) ([]string, []interface{}) {
	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, column+"=$"+strconv.Itoa(len(args)))
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", storage.Description(*p.Description))
	}
	if p.StartDate != nil {
		add("start_date", *p.StartDate)
	}
	if p.EndDate != nil {
		add("end_date", *p.EndDate)
	}
	if p.AuthorName != nil {
		add("author_name", *p.AuthorName)
	}
	if p.AuthorColor != nil {
		add("author_color", *p.AuthorColor)
	}
	return sets, args
}

// Ids come straight from URLs; a malformed one can not match a row.
func isInvalidUUID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}
