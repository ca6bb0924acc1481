package index_test

import (
	"testing"
	"time"

	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/index"
	"github.com/lomoval/sharedcal/internal/storage"
	"github.com/stretchr/testify/require"
)

func event(id, start, end string) storage.Event {
	return storage.Event{
		ID:        id,
		Title:     id,
		StartDate: date.MustParse(start),
		EndDate:   date.MustParse(end),
	}
}

func ids(events []storage.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.ID)
	}
	return out
}

func TestOccupantsOf(t *testing.T) {
	events := []storage.Event{
		event("c", "2024-06-05", "2024-06-10"),
		event("a", "2024-06-01", "2024-06-05"),
		event("b", "2024-06-06", "2024-06-06"),
		event("inverted", "2024-06-05", "2024-06-01"),
	}

	tests := []struct {
		day  string
		want []string
	}{
		{day: "2024-05-31", want: []string{}},
		{day: "2024-06-01", want: []string{"a"}},
		{day: "2024-06-05", want: []string{"c", "a"}},
		{day: "2024-06-06", want: []string{"c", "b"}},
		{day: "2024-06-10", want: []string{"c"}},
		{day: "2024-06-11", want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.day, func(t *testing.T) {
			occupants := index.OccupantsOf(events, date.MustParse(tc.day))
			require.NotNil(t, occupants)
			require.Equal(t, tc.want, ids(occupants))
		})
	}
}

func TestVisible(t *testing.T) {
	events := []storage.Event{
		event("a", "2024-06-01", "2024-06-01"),
		event("b", "2024-06-01", "2024-06-01"),
		event("c", "2024-06-01", "2024-06-01"),
	}

	shown, more := index.Visible(events, 2)
	require.Equal(t, []string{"a", "b"}, ids(shown))
	require.Equal(t, 1, more)

	shown, more = index.Visible(events, 5)
	require.Len(t, shown, 3)
	require.Zero(t, more)

	shown, more = index.Visible(events, -1)
	require.Len(t, shown, 3)
	require.Zero(t, more)
}

func TestWindow(t *testing.T) {
	june := date.Month{Year: 2024, Month: time.June}

	w := index.Window(june, time.Sunday)
	require.Equal(t, date.MustParse("2024-05-26"), w.Start)
	require.Equal(t, date.MustParse("2024-07-06"), w.End)
	require.Equal(t, 42, w.Len())

	w = index.Window(june, time.Monday)
	require.Equal(t, date.MustParse("2024-05-27"), w.Start)
	require.Equal(t, date.MustParse("2024-06-30"), w.End)
	require.Equal(t, 35, w.Len())

	september := date.Month{Year: 2024, Month: time.September}
	w = index.Window(september, time.Sunday)
	require.Equal(t, date.MustParse("2024-09-01"), w.Start)
	require.Equal(t, date.MustParse("2024-10-05"), w.End)
}

type holidays map[string]string

func (h holidays) Holiday(d date.Day) (string, bool) {
	name, ok := h[d.String()]
	return name, ok
}

func TestGrid(t *testing.T) {
	june := date.Month{Year: 2024, Month: time.June}
	events := []storage.Event{
		event("a", "2024-05-20", "2024-06-02"),
		event("b", "2024-06-01", "2024-06-01"),
		event("c", "2024-06-01", "2024-06-03"),
		event("outside", "2024-08-01", "2024-08-01"),
	}

	cells := index.Grid(events, june, time.Sunday, 2, holidays{"2024-06-10": "Portugal Day"})
	require.Len(t, cells, 42)

	first := cells[0]
	require.Equal(t, date.MustParse("2024-05-26"), first.Day)
	require.False(t, first.InMonth)
	require.Equal(t, []string{"a"}, ids(first.Events))

	june1 := cells[6]
	require.Equal(t, date.MustParse("2024-06-01"), june1.Day)
	require.True(t, june1.InMonth)
	require.Equal(t, []string{"a", "b"}, ids(june1.Events))
	require.Equal(t, 1, june1.More)

	june10 := cells[15]
	require.Equal(t, date.MustParse("2024-06-10"), june10.Day)
	require.Equal(t, "Portugal Day", june10.Holiday)
	require.Empty(t, june10.Events)

	for _, c := range cells {
		require.NotContains(t, ids(c.Events), "outside")
	}
}
