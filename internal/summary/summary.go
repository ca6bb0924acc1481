// Package summary aggregates events into per-title day counts for a month.
package summary

import (
	"sort"

	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/storage"
)

type Group struct {
	Title  string          `json:"title"`
	Color  string          `json:"color"`
	Days   int             `json:"days"`
	Events []storage.Event `json:"events"`
}

// Summarize groups the events overlapping month by exact title and counts the
// days each group occupies inside the month. Saturdays and Sundays are counted
// only with includeWeekends. Groups are ordered by descending day count; equal
// counts keep the order in which titles were first seen.
//
// An event ending before it starts is counted as a single day at its start.
func Summarize(events []storage.Event, month date.Month, includeWeekends bool) []Group {
	span := month.Range()
	groups := make([]Group, 0)
	byTitle := make(map[string]int)

	for _, e := range events {
		clamped, ok := e.Range().Repaired().Clamp(span.Start, span.End)
		if !ok {
			continue
		}
		i, seen := byTitle[e.Title]
		if !seen {
			i = len(groups)
			byTitle[e.Title] = i
			groups = append(groups, Group{Title: e.Title, Color: e.AuthorColor, Events: make([]storage.Event, 0, 1)})
		}
		groups[i].Days += clamped.CountDays(includeWeekends)
		groups[i].Events = append(groups[i].Events, e)
	}

	sortGroups(groups)
	return groups
}

// Merge combines summaries of several months into one, adding the day counts
// of groups with the same title. An event listed in more than one month is
// kept once.
func Merge(summaries ...[]Group) []Group {
	merged := make([]Group, 0)
	byTitle := make(map[string]int)
	members := make(map[string]map[string]struct{})

	for _, groups := range summaries {
		for _, g := range groups {
			i, seen := byTitle[g.Title]
			if !seen {
				i = len(merged)
				byTitle[g.Title] = i
				members[g.Title] = make(map[string]struct{})
				merged = append(merged, Group{Title: g.Title, Color: g.Color, Events: make([]storage.Event, 0, len(g.Events))})
			}
			merged[i].Days += g.Days
			for _, e := range g.Events {
				if _, ok := members[g.Title][e.ID]; ok {
					continue
				}
				members[g.Title][e.ID] = struct{}{}
				merged[i].Events = append(merged[i].Events, e)
			}
		}
	}

	sortGroups(merged)
	return merged
}

// Span summarizes every month from first to last inclusive and merges the results.
func Span(events []storage.Event, first, last date.Month, includeWeekends bool) []Group {
	var months [][]Group
	for m := first; !m.First().After(last.First()); m = m.Next() {
		months = append(months, Summarize(events, m, includeWeekends))
	}
	return Merge(months...)
}

func sortGroups(groups []Group) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Days > groups[j].Days
	})
}
