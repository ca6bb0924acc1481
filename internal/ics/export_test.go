package ics_test

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/ics"
	"github.com/lomoval/sharedcal/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestExport(t *testing.T) {
	c := storage.Calendar{ID: "c1", Name: "Team"}
	events := []storage.Event{
		{
			ID:          "e1",
			CalendarID:  "c1",
			Title:       "Vacation",
			Description: storage.Description("beach"),
			StartDate:   date.MustParse("2024-06-10"),
			EndDate:     date.MustParse("2024-06-12"),
			AuthorName:  "Ana",
			AuthorColor: "#ff0000",
			CreatedAt:   time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		},
		{
			ID:          "e2",
			CalendarID:  "c1",
			Title:       "Course",
			StartDate:   date.MustParse("2024-06-20"),
			EndDate:     date.MustParse("2024-06-20"),
			AuthorName:  "Rui",
			AuthorColor: "#00ff00",
			CreatedAt:   time.Date(2024, 6, 2, 10, 0, 0, 0, time.UTC),
		},
	}

	out := ics.Export(c, events)
	require.Contains(t, out, "X-WR-CALNAME:Team")

	parsed, err := ical.ParseCalendar(strings.NewReader(out))
	require.NoError(t, err)
	require.Len(t, parsed.Events(), 2)

	first := parsed.Events()[0]
	require.Equal(t, "e1", first.GetProperty(ical.ComponentPropertyUniqueId).Value)
	require.Equal(t, "Vacation", first.GetProperty(ical.ComponentPropertySummary).Value)
	require.Equal(t, "beach", first.GetProperty(ical.ComponentPropertyDescription).Value)
	require.Equal(t, "20240610", first.GetProperty(ical.ComponentPropertyDtStart).Value)
	require.Equal(t, "20240613", first.GetProperty(ical.ComponentPropertyDtEnd).Value)

	second := parsed.Events()[1]
	require.Nil(t, second.GetProperty(ical.ComponentPropertyDescription))
	require.Equal(t, "20240621", second.GetProperty(ical.ComponentPropertyDtEnd).Value)
}
