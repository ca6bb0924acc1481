package reconcile_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/reconcile"
	"github.com/lomoval/sharedcal/internal/storage"
	"github.com/stretchr/testify/require"
)

func event(id, title string) storage.Event {
	return storage.Event{
		ID:          id,
		CalendarID:  "c1",
		Title:       title,
		StartDate:   date.MustParse("2024-06-01"),
		EndDate:     date.MustParse("2024-06-02"),
		AuthorName:  "Ana",
		AuthorColor: "#ff0000",
	}
}

func TestInsert(t *testing.T) {
	s := reconcile.New()
	require.True(t, s.ApplyInsert(event("1", "a")))
	require.False(t, s.ApplyInsert(event("1", "echo")))
	require.True(t, s.ApplyInsert(event("2", "b")))

	require.Equal(t, []storage.Event{event("1", "a"), event("2", "b")}, s.Snapshot())
}

func TestUpdate(t *testing.T) {
	s := reconcile.New(event("1", "a"))

	title := "renamed"
	require.True(t, s.ApplyUpdate("1", storage.Patch{Title: &title}))
	require.True(t, s.ApplyUpdate("1", storage.Patch{Title: &title}))
	require.False(t, s.ApplyUpdate("missing", storage.Patch{Title: &title}))

	e, ok := s.Get("1")
	require.True(t, ok)
	want := event("1", "renamed")
	require.Equal(t, want, e)
	require.Equal(t, 1, s.Len())
}

func TestDelete(t *testing.T) {
	s := reconcile.New(event("1", "a"), event("2", "b"), event("3", "c"))

	require.True(t, s.ApplyDelete("2"))
	require.False(t, s.ApplyDelete("2"))
	require.Equal(t, []storage.Event{event("1", "a"), event("3", "c")}, s.Snapshot())

	_, ok := s.Get("2")
	require.False(t, ok)
}

func TestUpdateAfterDeleteIsIgnored(t *testing.T) {
	s := reconcile.New(event("1", "a"))
	require.True(t, s.ApplyDelete("1"))

	title := "stale"
	require.False(t, s.ApplyUpdate("1", storage.Patch{Title: &title}))
	require.Empty(t, s.Snapshot())
}

func TestSnapshotIsACopy(t *testing.T) {
	s := reconcile.New(event("1", "a"))
	snapshot := s.Snapshot()
	snapshot[0].Title = "mutated"

	e, _ := s.Get("1")
	require.Equal(t, "a", e.Title)
}

func TestConcurrentApplies(t *testing.T) {
	s := reconcile.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		id := fmt.Sprint(i)
		go func() {
			defer wg.Done()
			s.ApplyInsert(event(id, "local"))
		}()
		go func() {
			defer wg.Done()
			s.ApplyInsert(event(id, "echo"))
			_ = s.Snapshot()
		}()
	}
	wg.Wait()
	require.Equal(t, 50, s.Len())
}
