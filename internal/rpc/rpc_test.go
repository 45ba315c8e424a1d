package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestReservationWire(t *testing.T) {
	start := time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)
	in := &ListReservationsResponse{Reservations: []*Reservation{
		{Id: "r1", SpaceId: "S", StartAt: start, EndAt: start.Add(time.Hour - time.Second), ReservationType: "hourly", Status: "confirmed"},
		{Id: "r2", SpaceId: "S", DeskId: "D1", StartAt: start.Add(2 * time.Hour), ReservationType: "full_day"},
	}}

	out := &ListReservationsResponse{}
	require.NoError(t, out.UnmarshalWire(in.MarshalWire()))
	require.Len(t, out.Reservations, 2)
	assert.Equal(t, "r1", out.Reservations[0].Id)
	assert.True(t, out.Reservations[0].EndAt.Equal(in.Reservations[0].EndAt))
	assert.Equal(t, "D1", out.Reservations[1].DeskId)
	assert.True(t, out.Reservations[1].EndAt.IsZero(), "unset timestamps stay zero")
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)
	b = appendString(b, 1, "S")
	b = protowire.AppendTag(b, 100, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)
	b = appendString(b, 2, "2030-01-07")

	var m GetAvailabilityRequest
	require.NoError(t, m.UnmarshalWire(b))
	assert.Equal(t, "S", m.SpaceId)
	assert.Equal(t, "2030-01-07", m.Date)
}

func TestUnmarshalRejects(t *testing.T) {
	wrongType := protowire.AppendTag(nil, 1, protowire.VarintType)
	wrongType = protowire.AppendVarint(wrongType, 1)
	assert.Error(t, (&IdRequest{}).UnmarshalWire(wrongType))

	truncated := appendString(nil, 1, "reservation")
	assert.Error(t, (&IdRequest{}).UnmarshalWire(truncated[:len(truncated)-3]))

	var avail AvailabilityResponse
	require.NoError(t, avail.UnmarshalWire((&AvailabilityResponse{Status: "partial", OccupiedPercent: 37.5, Reservations: 3}).MarshalWire()))
	assert.Equal(t, 37.5, avail.OccupiedPercent)
	assert.Equal(t, uint64(3), avail.Reservations)
}

type echoServer struct {
	UnimplementedReservationServiceServer
}

func (echoServer) GetReservation(_ context.Context, in *IdRequest) (*ReservationResponse, error) {
	if in.Id == "" {
		return nil, status.Error(codes.InvalidArgument, "id is required")
	}
	return &ReservationResponse{Reservation: &Reservation{Id: in.Id, Status: "confirmed"}}, nil
}

func dial(t *testing.T, ic grpc.UnaryServerInterceptor) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.UnaryInterceptor(ic))
	RegisterReservationServiceServer(srv, echoServer{})
	healthpb.RegisterHealthServer(srv, health.NewServer())
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServiceEndToEnd(t *testing.T) {
	var seen []string
	conn := dial(t, func(ctx context.Context, req any, info *grpc.UnaryServerInfo, next grpc.UnaryHandler) (any, error) {
		seen = append(seen, info.FullMethod)
		return next(ctx, req)
	})
	client := NewReservationServiceClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.GetReservation(ctx, &IdRequest{Id: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "r1", resp.Reservation.Id)

	_, err = client.GetReservation(ctx, &IdRequest{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.CancelReservation(ctx, &IdRequest{Id: "r1"})
	assert.Equal(t, codes.Unimplemented, status.Code(err))

	// generated messages still use protobuf through the same codec
	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, hc.Status)

	assert.Equal(t, []string{
		FullMethod("GetReservation"),
		FullMethod("GetReservation"),
		FullMethod("CancelReservation"),
		"/grpc.health.v1.Health/Check",
	}, seen)
}
