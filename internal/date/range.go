package date

import (
	"fmt"
	"time"
)

// Range is an inclusive interval of days: both Start and End are occupied.
type Range struct {
	Start Day `json:"start"`
	End   Day `json:"end"`
}

func (r Range) Contains(d Day) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Intersects reports whether r and [start, end] share at least one day.
func (r Range) Intersects(start, end Day) bool {
	return !r.Start.After(end) && !r.End.Before(start)
}

// Clamp returns the part of r inside [start, end]. The second result is false
// when the two ranges are disjoint.
func (r Range) Clamp(start, end Day) (Range, bool) {
	clamped := Range{Start: Max(r.Start, start), End: Min(r.End, end)}
	if clamped.Start.After(clamped.End) {
		return Range{}, false
	}
	return clamped, true
}

// Valid reports whether End is not before Start.
func (r Range) Valid() bool {
	return !r.End.Before(r.Start)
}

// Repaired turns an inverted range into the single day at Start.
//
// Stored events with end < start exist in the wild; they are counted as a
// one-day event rather than rejected. Whether that data should instead be
// fixed at the source is still open.
func (r Range) Repaired() Range {
	if r.Valid() {
		return r
	}
	return Range{Start: r.Start, End: r.Start}
}

// Len is the number of days in r, zero for an inverted range.
func (r Range) Len() int {
	if !r.Valid() {
		return 0
	}
	return r.End.Sub(r.Start) + 1
}

func (r Range) Each(fn func(Day)) {
	for d := r.Start; !d.After(r.End); d = d.AddDays(1) {
		fn(d)
	}
}

// CountDays counts the days of r, skipping Saturdays and Sundays unless
// includeWeekends is set.
func (r Range) CountDays(includeWeekends bool) int {
	if includeWeekends {
		return r.Len()
	}
	days := 0
	r.Each(func(d Day) {
		if !d.IsWeekend() {
			days++
		}
	})
	return days
}

func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}

// Month identifies one calendar month.
type Month struct {
	Year  int
	Month time.Month
}

func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(MonthLayout, s)
	if err != nil {
		return Month{}, fmt.Errorf("%q: %w", s, ErrInvalidMonth)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

func (m Month) First() Day {
	return New(m.Year, m.Month, 1)
}

func (m Month) Last() Day {
	return m.Next().First().AddDays(-1)
}

func (m Month) Range() Range {
	return Range{Start: m.First(), End: m.Last()}
}

func (m Month) Next() Month {
	return m.Add(1)
}

func (m Month) Prev() Month {
	return m.Add(-1)
}

func (m Month) Add(months int) Month {
	first := m.First().Time().AddDate(0, months, 0)
	return Month{Year: first.Year(), Month: first.Month()}
}

func (m Month) String() string {
	return m.First().Time().Format(MonthLayout)
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) MarshalText() ([]byte, error) {
	if m.IsZero() {
		return []byte{}, nil
	}
	return []byte(m.String()), nil
}

// UnmarshalText accepts an empty string as the zero month.
func (m *Month) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*m = Month{}
		return nil
	}
	parsed, err := ParseMonth(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
