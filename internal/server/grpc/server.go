package internalgrpc

import (
	"context"
	"errors"
	"net"
	"strconv"

	"github.com/lomoval/sharedcal/api"
	"github.com/lomoval/sharedcal/internal/app"
	"github.com/lomoval/sharedcal/internal/date"
	"github.com/lomoval/sharedcal/internal/feed"
	"github.com/lomoval/sharedcal/internal/metrics"
	"github.com/lomoval/sharedcal/internal/selection"
	"github.com/lomoval/sharedcal/internal/session"
	"github.com/lomoval/sharedcal/internal/storage"
	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	errInternalServerError = "internal server error"
	errDayIsNotProvided    = "day is not provided"
	errMonthIsNotProvided  = "month is not provided"
	errIncorrectMonthRange = "month range ends before it starts"
	errFeedEnded           = "change feed ended"
)

type Config struct {
	Host string
	Port int
}

type Server struct {
	grpcServer *grpc.Server
	app        *app.App
	metrics    *metrics.Metrics
	addr       string
}

func NewServer(config Config, app *app.App, m *metrics.Metrics) *Server {
	s := &Server{
		app:     app,
		metrics: m,
		addr:    net.JoinHostPort(config.Host, strconv.Itoa(config.Port)),
	}
	s.grpcServer = grpc.NewServer(
		grpc.ForceServerCodec(api.Codec{}),
		grpc.UnaryInterceptor(s.loggingHandler),
		grpc.StreamInterceptor(s.streamLoggingHandler),
	)
	api.RegisterCalendarServer(s.grpcServer, s)
	return s
}

func (s *Server) Start(_ context.Context) error {
	lsn, err := net.Listen("tcp", s.addr)
	if err != nil {
		log.Errorf("failed to listen grpc endpoint: %v", err)
		return err
	}
	return s.Serve(lsn)
}

func (s *Server) Serve(lsn net.Listener) error {
	log.Printf("starting grpc server on %s", lsn.Addr())
	return s.grpcServer.Serve(lsn)
}

// Stop waits for running calls until ctx is done, then closes them.
func (s *Server) Stop(ctx context.Context) error {
	stopped := make(chan struct{})
	go func() {
		s.grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.grpcServer.Stop()
		return ctx.Err()
	}
}

func (s *Server) CreateEvent(ctx context.Context, r *api.CreateEventRequest) (*api.EventResponse, error) {
	e, err := s.app.CreateEvent(ctx, r.CalendarID, app.Draft{
		Title:       r.Title,
		Description: r.Description,
		Start:       r.StartDate,
		End:         r.EndDate,
		AuthorName:  r.AuthorName,
		AuthorColor: r.AuthorColor,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.EventResponse{Event: e}, nil
}

func (s *Server) UpdateEvent(ctx context.Context, r *api.UpdateEventRequest) (*api.EventResponse, error) {
	e, err := s.app.UpdateEvent(ctx, r.CalendarID, r.ID, r.Patch)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.EventResponse{Event: e}, nil
}

func (s *Server) RemoveEvent(ctx context.Context, r *api.RemoveEventRequest) (*api.EventResponse, error) {
	e, err := s.app.RemoveEvent(ctx, r.CalendarID, r.ID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.EventResponse{Event: e}, nil
}

func (s *Server) ListEvents(ctx context.Context, r *api.ListEventsRequest) (*api.ListEventsResponse, error) {
	events, err := s.app.Events(ctx, r.CalendarID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ListEventsResponse{Events: events}, nil
}

func (s *Server) GetDay(ctx context.Context, r *api.GetDayRequest) (*api.GetDayResponse, error) {
	if r.Day.IsZero() {
		return nil, status.Error(codes.InvalidArgument, errDayIsNotProvided)
	}
	view, err := s.app.DayEvents(ctx, r.CalendarID, r.Day, r.Limit)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.GetDayResponse{Day: view.Day, Holiday: view.Holiday, Events: view.Events, More: view.More}, nil
}

func (s *Server) Summarize(ctx context.Context, r *api.SummarizeRequest) (*api.SummarizeResponse, error) {
	if r.From.IsZero() {
		return nil, status.Error(codes.InvalidArgument, errMonthIsNotProvided)
	}
	to := r.To
	if to.IsZero() {
		to = r.From
	}
	if to.First().Before(r.From.First()) {
		return nil, status.Error(codes.InvalidArgument, errIncorrectMonthRange)
	}
	groups, err := s.app.SummarySpan(ctx, r.CalendarID, r.From, to, r.IncludeWeekends)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.SummarizeResponse{Groups: groups}, nil
}

func (s *Server) ExportICS(ctx context.Context, r *api.ExportICSRequest) (*api.ExportICSResponse, error) {
	out, err := s.app.ExportICS(ctx, r.CalendarID)
	if err != nil {
		return nil, toStatus(err)
	}
	return &api.ExportICSResponse{Calendar: out}, nil
}

func (s *Server) Subscribe(r *api.SubscribeRequest, stream api.SubscribeServer) error {
	ctx := stream.Context()
	sub, err := s.app.Subscribe(ctx, r.CalendarID)
	if err != nil {
		return toStatus(err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n, ok := <-sub.Notifications():
			if !ok {
				return status.Error(codes.Unavailable, errFeedEnded)
			}
			env, err := feed.Wrap(r.CalendarID, n)
			if err != nil {
				return toStatus(err)
			}
			if err := stream.Send(&env); err != nil {
				return err
			}
		}
	}
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFoundEvent), errors.Is(err, storage.ErrNotFoundCalendar):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, storage.ErrIncorrectEvent),
		errors.Is(err, date.ErrInvalidDay),
		errors.Is(err, date.ErrInvalidMonth):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, selection.ErrPastDate):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, storage.ErrDuplicateEventID):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, session.ErrCollaboratorFailure), errors.Is(err, session.ErrClosed):
		log.Errorf("collaborator failure: %v", err)
		return status.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		log.Errorf("request failed: %v", err)
		return status.Error(codes.Internal, errInternalServerError)
	}
}
