package api

import (
	"context"
	"fmt"

	"github.com/lomoval/sharedcal/internal/feed"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

type Client struct {
	conn *grpc.ClientConn
}

// Dial connects to a calendar server without transport security.
func Dial(addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(Codec{})),
	}, opts...)
	conn, err := grpc.Dial(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) CreateEvent(ctx context.Context, in *CreateEventRequest) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c.conn, "CreateEvent", in)
}

func (c *Client) UpdateEvent(ctx context.Context, in *UpdateEventRequest) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c.conn, "UpdateEvent", in)
}

func (c *Client) RemoveEvent(ctx context.Context, in *RemoveEventRequest) (*EventResponse, error) {
	return invoke[EventResponse](ctx, c.conn, "RemoveEvent", in)
}

func (c *Client) ListEvents(ctx context.Context, in *ListEventsRequest) (*ListEventsResponse, error) {
	return invoke[ListEventsResponse](ctx, c.conn, "ListEvents", in)
}

func (c *Client) GetDay(ctx context.Context, in *GetDayRequest) (*GetDayResponse, error) {
	return invoke[GetDayResponse](ctx, c.conn, "GetDay", in)
}

func (c *Client) Summarize(ctx context.Context, in *SummarizeRequest) (*SummarizeResponse, error) {
	return invoke[SummarizeResponse](ctx, c.conn, "Summarize", in)
}

func (c *Client) ExportICS(ctx context.Context, in *ExportICSRequest) (*ExportICSResponse, error) {
	return invoke[ExportICSResponse](ctx, c.conn, "ExportICS", in)
}

// Subscribe streams the changes of a calendar until ctx is cancelled.
func (c *Client) Subscribe(ctx context.Context, in *SubscribeRequest) (*SubscribeClient, error) {
	stream, err := c.conn.NewStream(ctx, &CalendarServiceDesc.Streams[0], FullMethod("Subscribe"))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &SubscribeClient{stream: stream}, nil
}

type SubscribeClient struct {
	stream grpc.ClientStream
}

func (s *SubscribeClient) Recv() (*feed.Envelope, error) {
	m := new(feed.Envelope)
	if err := s.stream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func invoke[Resp any](ctx context.Context, conn *grpc.ClientConn, method string, in interface{}) (*Resp, error) {
	out := new(Resp)
	if err := conn.Invoke(ctx, FullMethod(method), in, out); err != nil {
		return nil, err
	}
	return out, nil
}
