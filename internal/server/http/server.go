package internalhttp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/lomoval/sharedcal/internal/app"
	"github.com/lomoval/sharedcal/internal/metrics"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Host string
	Port int
}

type Server struct {
	srv     *http.Server
	addr    string
	app     *app.App
	metrics *metrics.Metrics
}

func NewServer(config Config, app *app.App, m *metrics.Metrics) *Server {
	addr := net.JoinHostPort(config.Host, strconv.Itoa(config.Port))
	s := &Server{
		addr:    addr,
		app:     app,
		metrics: m,
	}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed REST surface wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := runtime.NewServeMux()
	s.handle(mux, http.MethodPost, "/calendars", s.createCalendar)
	s.handle(mux, http.MethodGet, "/calendars/{id}", s.getCalendar)
	s.handle(mux, http.MethodPatch, "/calendars/{id}", s.renameCalendar)
	s.handle(mux, http.MethodDelete, "/calendars/{id}", s.removeCalendar)
	s.handle(mux, http.MethodGet, "/calendars/{id}/events", s.listEvents)
	s.handle(mux, http.MethodPost, "/calendars/{id}/events", s.createEvent)
	s.handle(mux, http.MethodPatch, "/calendars/{id}/events/{eventId}", s.updateEvent)
	s.handle(mux, http.MethodDelete, "/calendars/{id}/events/{eventId}", s.removeEvent)
	s.handle(mux, http.MethodGet, "/calendars/{id}/days/{day}", s.getDay)
	s.handle(mux, http.MethodGet, "/calendars/{id}/grid", s.getGrid)
	s.handle(mux, http.MethodGet, "/calendars/{id}/summary", s.getSummary)
	s.handle(mux, http.MethodGet, "/calendars/{id}/ics", s.exportICS)
	s.handle(mux, http.MethodGet, "/holidays", s.listHolidays)
	s.handle(mux, http.MethodGet, "/metrics", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		s.metrics.Handler().ServeHTTP(w, r)
	})
	return loggingMiddleware(mux)
}

func (s *Server) Start(_ context.Context) error {
	log.Printf("starting http server on %s", s.addr)
	err := s.srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handle(mux *runtime.ServeMux, method, pattern string, h runtime.HandlerFunc) {
	err := mux.HandlePath(method, pattern, func(w http.ResponseWriter, r *http.Request, params map[string]string) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r, params)
		s.metrics.ObserveRequest("http", method+" "+pattern, strconv.Itoa(rec.status), time.Since(start))
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register %s %s: %v", method, pattern, err))
	}
}

func getIP(req *http.Request) (string, error) {
	ip, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}

	if parsed := net.ParseIP(ip); parsed == nil {
		return "", fmt.Errorf("userip: %q is not IP:port", req.RemoteAddr)
	}
	return ip, nil
}
