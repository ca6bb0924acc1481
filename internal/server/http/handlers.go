package internalhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/lomoval/sharedcal/internal/app"
	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/selection"
	"github.com/lomoval/sharedcal/internal/session"
	"github.com/lomoval/sharedcal/internal/storage"
	log "github.com/sirupsen/logrus"
)

var errBadRequest = errors.New("bad request")

type calendarRequest struct {
	Name string `json:"name"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) createCalendar(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req calendarRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, err)
			return
		}
	}
	c, err := s.app.CreateCalendar(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) getCalendar(w http.ResponseWriter, r *http.Request, params map[string]string) {
	c, err := s.app.Calendar(r.Context(), params["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) renameCalendar(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var req calendarRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	c, err := s.app.RenameCalendar(r.Context(), params["id"], req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) removeCalendar(w http.ResponseWriter, r *http.Request, params map[string]string) {
	if err := s.app.RemoveCalendar(r.Context(), params["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request, params map[string]string) {
	events, err := s.app.Events(r.Context(), params["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) createEvent(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var d app.Draft
	if err := decode(r, &d); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.app.CreateEvent(r.Context(), params["id"], d)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) updateEvent(w http.ResponseWriter, r *http.Request, params map[string]string) {
	var p storage.Patch
	if err := decode(r, &p); err != nil {
		writeError(w, err)
		return
	}
	e, err := s.app.UpdateEvent(r.Context(), params["id"], params["eventId"], p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) removeEvent(w http.ResponseWriter, r *http.Request, params map[string]string) {
	e, err := s.app.RemoveEvent(r.Context(), params["id"], params["eventId"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) getDay(w http.ResponseWriter, r *http.Request, params map[string]string) {
	day, err := date.Parse(params["day"])
	if err != nil {
		writeError(w, err)
		return
	}
	limit := -1
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil {
			writeError(w, fmt.Errorf("limit %q: %w", v, errBadRequest))
			return
		}
	}
	view, err := s.app.DayEvents(r.Context(), params["id"], day, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) getGrid(w http.ResponseWriter, r *http.Request, params map[string]string) {
	month, err := s.month(r, "month")
	if err != nil {
		writeError(w, err)
		return
	}
	cells, err := s.app.Grid(r.Context(), params["id"], month)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cells)
}

func (s *Server) getSummary(w http.ResponseWriter, r *http.Request, params map[string]string) {
	from, err := s.month(r, "month")
	if err != nil {
		writeError(w, err)
		return
	}
	to := from
	if r.URL.Query().Get("to") != "" {
		if to, err = s.month(r, "to"); err != nil {
			writeError(w, err)
			return
		}
	}
	if to.First().Before(from.First()) {
		writeError(w, fmt.Errorf("month range %s..%s: %w", from, to, errBadRequest))
		return
	}
	weekends := true
	if v := r.URL.Query().Get("weekends"); v != "" {
		if weekends, err = strconv.ParseBool(v); err != nil {
			writeError(w, fmt.Errorf("weekends %q: %w", v, errBadRequest))
			return
		}
	}
	groups, err := s.app.SummarySpan(r.Context(), params["id"], from, to, weekends)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) exportICS(w http.ResponseWriter, r *http.Request, params map[string]string) {
	out, err := s.app.ExportICS(r.Context(), params["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", params["id"]+".ics"))
	if _, err := w.Write([]byte(out)); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}

func (s *Server) listHolidays(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	today := s.app.Today()
	from := date.New(today.Year(), 1, 1)
	to := date.New(today.Year(), 12, 31)
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if from, err = date.Parse(v); err != nil {
			writeError(w, err)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if to, err = date.Parse(v); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.app.Holidays(from, to))
}

// month reads a YYYY-MM query parameter, defaulting to the current month.
func (s *Server) month(r *http.Request, key string) (date.Month, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return s.app.Today().MonthOf(), nil
	}
	return date.ParseMonth(v)
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to parse body: %w: %w", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()
	switch {
	case errors.Is(err, storage.ErrNotFoundEvent), errors.Is(err, storage.ErrNotFoundCalendar):
		status = http.StatusNotFound
	case errors.Is(err, errBadRequest),
		errors.Is(err, storage.ErrIncorrectEvent),
		errors.Is(err, date.ErrInvalidDay),
		errors.Is(err, date.ErrInvalidMonth):
		status = http.StatusBadRequest
	case errors.Is(err, selection.ErrPastDate):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, storage.ErrDuplicateEventID):
		status = http.StatusConflict
	case errors.Is(err, session.ErrCollaboratorFailure), errors.Is(err, session.ErrClosed):
		status = http.StatusServiceUnavailable
		log.Errorf("collaborator failure: %v", err)
	default:
		log.Errorf("request failed: %v", err)
		message = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: message})
}
