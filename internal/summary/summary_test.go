package summary_test

import (
	"testing"
	"time"

	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/storage"
	"github.com/lomoval/sharedcal/internal/summary"
	"github.com/stretchr/testify/require"
)

var june = date.Month{Year: 2024, Month: time.June}

func event(id, title, color, start, end string) storage.Event {
	return storage.Event{
		ID:          id,
		Title:       title,
		AuthorColor: color,
		StartDate:   date.MustParse(start),
		EndDate:     date.MustParse(end),
	}
}

func titles(groups []summary.Group) []string {
	out := make([]string, 0, len(groups))
	for _, g := range groups {
		out = append(out, g.Title)
	}
	return out
}

func TestSummarize(t *testing.T) {
	t.Run("same title merges", func(t *testing.T) {
		events := []storage.Event{
			event("a", "Vacation", "#111111", "2024-06-01", "2024-06-30"),
			event("b", "Vacation", "#222222", "2024-06-10", "2024-06-12"),
		}
		groups := summary.Summarize(events, june, true)
		require.Len(t, groups, 1)
		require.Equal(t, "Vacation", groups[0].Title)
		require.Equal(t, "#111111", groups[0].Color)
		require.Equal(t, 33, groups[0].Days)
		require.Equal(t, events, groups[0].Events)
	})

	t.Run("weekends", func(t *testing.T) {
		events := []storage.Event{event("a", "Week", "#111111", "2024-06-03", "2024-06-09")}
		require.Equal(t, 7, summary.Summarize(events, june, true)[0].Days)
		require.Equal(t, 5, summary.Summarize(events, june, false)[0].Days)
	})

	t.Run("clamped to the month", func(t *testing.T) {
		events := []storage.Event{
			event("span", "Span", "#111111", "2024-05-01", "2024-07-31"),
			event("tail", "Tail", "#111111", "2024-05-30", "2024-06-02"),
			event("head", "Head", "#111111", "2024-06-29", "2024-07-05"),
			event("out", "Out", "#111111", "2024-07-01", "2024-07-05"),
		}
		groups := summary.Summarize(events, june, true)
		require.Equal(t, []string{"Span", "Tail", "Head"}, titles(groups))
		require.Equal(t, 30, groups[0].Days)
		require.Equal(t, 2, groups[1].Days)
		require.Equal(t, 2, groups[2].Days)
	})

	t.Run("zero day members are kept", func(t *testing.T) {
		events := []storage.Event{
			event("weekend", "Trip", "#111111", "2024-06-01", "2024-06-02"),
			event("weekday", "Trip", "#111111", "2024-06-03", "2024-06-03"),
			event("only-weekend", "Hike", "#111111", "2024-06-08", "2024-06-09"),
		}
		groups := summary.Summarize(events, june, false)
		require.Equal(t, []string{"Trip", "Hike"}, titles(groups))
		require.Equal(t, 1, groups[0].Days)
		require.Len(t, groups[0].Events, 2)
		require.Equal(t, 0, groups[1].Days)
		require.Len(t, groups[1].Events, 1)
	})

	t.Run("titles are case sensitive", func(t *testing.T) {
		events := []storage.Event{
			event("a", "trip", "#111111", "2024-06-03", "2024-06-03"),
			event("b", "Trip", "#111111", "2024-06-03", "2024-06-03"),
			event("c", "Trip ", "#111111", "2024-06-03", "2024-06-03"),
		}
		require.Len(t, summary.Summarize(events, june, true), 3)
	})

	t.Run("ties keep first seen order", func(t *testing.T) {
		events := []storage.Event{
			event("1", "C", "#111111", "2024-06-03", "2024-06-03"),
			event("2", "A", "#111111", "2024-06-03", "2024-06-04"),
			event("3", "B", "#111111", "2024-06-03", "2024-06-03"),
			event("4", "D", "#111111", "2024-06-03", "2024-06-03"),
		}
		first := summary.Summarize(events, june, true)
		require.Equal(t, []string{"A", "C", "B", "D"}, titles(first))
		for i := 0; i < 10; i++ {
			require.Equal(t, first, summary.Summarize(events, june, true))
		}
	})

	t.Run("inverted range counts one day", func(t *testing.T) {
		events := []storage.Event{event("a", "Odd", "#111111", "2024-06-10", "2024-06-01")}
		groups := summary.Summarize(events, june, true)
		require.Len(t, groups, 1)
		require.Equal(t, 1, groups[0].Days)
	})

	t.Run("empty", func(t *testing.T) {
		groups := summary.Summarize(nil, june, true)
		require.NotNil(t, groups)
		require.Empty(t, groups)
	})
}

func TestSpan(t *testing.T) {
	events := []storage.Event{
		event("a", "Vacation", "#111111", "2024-05-30", "2024-06-02"),
		event("b", "Course", "#222222", "2024-06-10", "2024-06-10"),
	}
	july := date.Month{Year: 2024, Month: time.July}
	may := date.Month{Year: 2024, Month: time.May}

	groups := summary.Span(events, may, july, true)
	require.Equal(t, []string{"Vacation", "Course"}, titles(groups))
	require.Equal(t, 4, groups[0].Days)
	require.Len(t, groups[0].Events, 1)
	require.Equal(t, 1, groups[1].Days)
}
