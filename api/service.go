package api

import (
	"context"
	"encoding/json"

	"github.com/lomoval/sharedcal/internal/feed"
	"google.golang.org/grpc"
)

const ServiceName = "sharedcal.Calendar"

// Codec encodes messages as JSON on the gRPC wire.
type Codec struct{}

func (Codec) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (Codec) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (Codec) Name() string {
	return "json"
}

type CalendarServer interface {
	CreateEvent(ctx context.Context, r *CreateEventRequest) (*EventResponse, error)
	UpdateEvent(ctx context.Context, r *UpdateEventRequest) (*EventResponse, error)
	RemoveEvent(ctx context.Context, r *RemoveEventRequest) (*EventResponse, error)
	ListEvents(ctx context.Context, r *ListEventsRequest) (*ListEventsResponse, error)
	GetDay(ctx context.Context, r *GetDayRequest) (*GetDayResponse, error)
	Summarize(ctx context.Context, r *SummarizeRequest) (*SummarizeResponse, error)
	ExportICS(ctx context.Context, r *ExportICSRequest) (*ExportICSResponse, error)
	Subscribe(r *SubscribeRequest, stream SubscribeServer) error
}

type SubscribeServer interface {
	Send(n *feed.Envelope) error
	grpc.ServerStream
}

type subscribeServer struct {
	grpc.ServerStream
}

func (s *subscribeServer) Send(n *feed.Envelope) error {
	return s.ServerStream.SendMsg(n)
}

var CalendarServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CalendarServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateEvent", CalendarServer.CreateEvent),
		unary("UpdateEvent", CalendarServer.UpdateEvent),
		unary("RemoveEvent", CalendarServer.RemoveEvent),
		unary("ListEvents", CalendarServer.ListEvents),
		unary("GetDay", CalendarServer.GetDay),
		unary("Summarize", CalendarServer.Summarize),
		unary("ExportICS", CalendarServer.ExportICS),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Subscribe",
			Handler:       subscribeHandler,
			ServerStreams: true,
		},
	},
	Metadata: "sharedcal/calendar",
}

func RegisterCalendarServer(s grpc.ServiceRegistrar, srv CalendarServer) {
	s.RegisterService(&CalendarServiceDesc, srv)
}

func FullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req any, Resp any](
	name string,
	call func(CalendarServer, context.Context, *Req) (*Resp, error),
) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(
			srv interface{},
			ctx context.Context,
			dec func(interface{}) error,
			interceptor grpc.UnaryServerInterceptor,
		) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CalendarServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(CalendarServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func subscribeHandler(srv interface{}, stream grpc.ServerStream) error {
	in := new(SubscribeRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(CalendarServer).Subscribe(in, &subscribeServer{stream})
}
