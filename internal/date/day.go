// Package date holds timezone-naive calendar days and inclusive day ranges.
package date

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"time"
)

const (
	Layout      = "2006-01-02"
	MonthLayout = "2006-01"
)

var (
	ErrInvalidDay   = errors.New("invalid day")
	ErrInvalidMonth = errors.New("invalid month")
)

// Day is a calendar day. Two days are equal when their dates are equal,
// whatever the time of day or zone they were built from.
type Day struct {
	t time.Time // always midnight UTC
}

func New(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// Of returns the calendar day of t as seen in t's own location.
func Of(t time.Time) Day {
	y, m, d := t.Date()
	return New(y, m, d)
}

func Parse(s string) (Day, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Day{}, fmt.Errorf("%q: %w", s, ErrInvalidDay)
	}
	return Day{t: t}, nil
}

func MustParse(s string) Day {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

func Min(a, b Day) Day {
	if b.Before(a) {
		return b
	}
	return a
}

func Max(a, b Day) Day {
	if b.After(a) {
		return b
	}
	return a
}

func (d Day) IsZero() bool { return d.t.IsZero() }
func (d Day) Time() time.Time { return d.t }
func (d Day) Year() int { return d.t.Year() }
func (d Day) Month() time.Month { return d.t.Month() }
func (d Day) Day() int { return d.t.Day() }
func (d Day) Weekday() time.Weekday { return d.t.Weekday() }
func (d Day) AddDays(n int) Day { return Day{t: d.t.AddDate(0, 0, n)} }
func (d Day) Before(other Day) bool { return d.t.Before(other.t) }
func (d Day) After(other Day) bool { return d.t.After(other.t) }
func (d Day) Equal(other Day) bool { return d.t.Equal(other.t) }
func (d Day) IsWeekend() bool { return d.Weekday() == time.Saturday || d.Weekday() == time.Sunday }
func (d Day) Sub(other Day) int { return int(d.t.Sub(other.t) / (24 * time.Hour)) }
func (d Day) MonthOf() Month { return Month{Year: d.Year(), Month: d.Month()} }
func (d Day) Compare(other Day) int { return d.t.Compare(other.t) }

func (d Day) String() string {
	if d.IsZero() {
		return ""
	}
	return d.t.Format(Layout)
}

func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText accepts an empty string as the zero day.
func (d *Day) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*d = Day{}
		return nil
	}
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan reads DATE columns. The driver hands them over as time.Time; text forms
// are accepted for drivers that do not.
func (d *Day) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = Day{}
	case time.Time:
		*d = Of(v)
	case string:
		return d.scanText(v)
	case []byte:
		return d.scanText(string(v))
	default:
		return fmt.Errorf("cannot scan %T into day: %w", src, ErrInvalidDay)
	}
	return nil
}

func (d *Day) scanText(s string) error {
	if len(s) > len(Layout) {
		s = s[:len(Layout)]
	}
	return d.UnmarshalText([]byte(s))
}

func (d Day) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}
