// Package api declares the sharedcal.Calendar gRPC service: its messages,
// wire codec, service description and client.
package api

import (
	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/storage"
	"github.com/lomoval/sharedcal/internal/summary"
)

type CreateEventRequest struct {
	CalendarID  string   `json:"calendarId"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	StartDate   date.Day `json:"startDate"`
	EndDate     date.Day `json:"endDate"`
	AuthorName  string   `json:"authorName,omitempty"`
	AuthorColor string   `json:"authorColor,omitempty"`
}

type UpdateEventRequest struct {
	CalendarID string        `json:"calendarId"`
	ID         string        `json:"id"`
	Patch      storage.Patch `json:"patch"`
}

type RemoveEventRequest struct {
	CalendarID string `json:"calendarId"`
	ID         string `json:"id"`
}

type EventResponse struct {
	Event storage.Event `json:"event"`
}

type ListEventsRequest struct {
	CalendarID string `json:"calendarId"`
}

type ListEventsResponse struct {
	Events []storage.Event `json:"events"`
}

type GetDayRequest struct {
	CalendarID string   `json:"calendarId"`
	Day        date.Day `json:"day"`
	// Limit caps the listed events; negative uses the server's default.
	Limit int `json:"limit"`
}

type GetDayResponse struct {
	Day     date.Day        `json:"day"`
	Holiday string          `json:"holiday,omitempty"`
	Events  []storage.Event `json:"events"`
	More    int             `json:"more"`
}

type SummarizeRequest struct {
	CalendarID string     `json:"calendarId"`
	From       date.Month `json:"from"`
	// To defaults to From.
	To              date.Month `json:"to"`
	IncludeWeekends bool       `json:"includeWeekends"`
}

type SummarizeResponse struct {
	Groups []summary.Group `json:"groups"`
}

type ExportICSRequest struct {
	CalendarID string `json:"calendarId"`
}

type ExportICSResponse struct {
	Calendar string `json:"calendar"`
}

type SubscribeRequest struct {
	CalendarID string `json:"calendarId"`
}
