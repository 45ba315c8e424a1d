package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const ServiceName = "reservation.v1.ReservationService"

// FullMethod returns the gRPC path of a method of the service.
func FullMethod(name string) string { return "/" + ServiceName + "/" + name }

type ReservationServiceServer interface {
	Login(context.Context, *LoginRequest) (*LoginResponse, error)
	CreateReservation(context.Context, *CreateReservationRequest) (*ReservationResponse, error)
	GetReservation(context.Context, *IdRequest) (*ReservationResponse, error)
	ListReservations(context.Context, *ListReservationsRequest) (*ListReservationsResponse, error)
	UpdateReservation(context.Context, *UpdateReservationRequest) (*ReservationResponse, error)
	SetReservationStatus(context.Context, *SetReservationStatusRequest) (*ReservationResponse, error)
	CancelReservation(context.Context, *IdRequest) (*ReservationResponse, error)
	GetAvailability(context.Context, *GetAvailabilityRequest) (*AvailabilityResponse, error)
}

// UnimplementedReservationServiceServer can be embedded to satisfy the
// interface while only some methods are served.
type UnimplementedReservationServiceServer struct{}

func (UnimplementedReservationServiceServer) Login(context.Context, *LoginRequest) (*LoginResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method Login not implemented")
}
func (UnimplementedReservationServiceServer) CreateReservation(context.Context, *CreateReservationRequest) (*ReservationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateReservation not implemented")
}
func (UnimplementedReservationServiceServer) GetReservation(context.Context, *IdRequest) (*ReservationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetReservation not implemented")
}
func (UnimplementedReservationServiceServer) ListReservations(context.Context, *ListReservationsRequest) (*ListReservationsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListReservations not implemented")
}
func (UnimplementedReservationServiceServer) UpdateReservation(context.Context, *UpdateReservationRequest) (*ReservationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateReservation not implemented")
}
func (UnimplementedReservationServiceServer) SetReservationStatus(context.Context, *SetReservationStatusRequest) (*ReservationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SetReservationStatus not implemented")
}
func (UnimplementedReservationServiceServer) CancelReservation(context.Context, *IdRequest) (*ReservationResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CancelReservation not implemented")
}
func (UnimplementedReservationServiceServer) GetAvailability(context.Context, *GetAvailabilityRequest) (*AvailabilityResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAvailability not implemented")
}

// method builds the descriptor for one unary call. Req is the request struct
// and PReq its pointer, which is what the server method takes.
func method[Req any, PReq interface {
	*Req
	Message
}, Resp Message](name string, call func(ReservationServiceServer, context.Context, PReq) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, ic grpc.UnaryServerInterceptor) (any, error) {
			in := PReq(new(Req))
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(ReservationServiceServer)
			if ic == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: FullMethod(name)}
			return ic(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(PReq))
			})
		},
	}
}

var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*ReservationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		method("Login", ReservationServiceServer.Login),
		method("CreateReservation", ReservationServiceServer.CreateReservation),
		method("GetReservation", ReservationServiceServer.GetReservation),
		method("ListReservations", ReservationServiceServer.ListReservations),
		method("UpdateReservation", ReservationServiceServer.UpdateReservation),
		method("SetReservationStatus", ReservationServiceServer.SetReservationStatus),
		method("CancelReservation", ReservationServiceServer.CancelReservation),
		method("GetAvailability", ReservationServiceServer.GetAvailability),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "reservation/v1/reservation.proto",
}

func RegisterReservationServiceServer(s grpc.ServiceRegistrar, srv ReservationServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type ReservationServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewReservationServiceClient(cc grpc.ClientConnInterface) *ReservationServiceClient {
	return &ReservationServiceClient{cc: cc}
}

func invoke[Resp any, PResp interface {
	*Resp
	Message
}](ctx context.Context, cc grpc.ClientConnInterface, name string, in Message, opts []grpc.CallOption) (PResp, error) {
	out := PResp(new(Resp))
	if err := cc.Invoke(ctx, FullMethod(name), in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReservationServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*LoginResponse, error) {
	return invoke[LoginResponse](ctx, c.cc, "Login", in, opts)
}

func (c *ReservationServiceClient) CreateReservation(ctx context.Context, in *CreateReservationRequest, opts ...grpc.CallOption) (*ReservationResponse, error) {
	return invoke[ReservationResponse](ctx, c.cc, "CreateReservation", in, opts)
}

func (c *ReservationServiceClient) GetReservation(ctx context.Context, in *IdRequest, opts ...grpc.CallOption) (*ReservationResponse, error) {
	return invoke[ReservationResponse](ctx, c.cc, "GetReservation", in, opts)
}

func (c *ReservationServiceClient) ListReservations(ctx context.Context, in *ListReservationsRequest, opts ...grpc.CallOption) (*ListReservationsResponse, error) {
	return invoke[ListReservationsResponse](ctx, c.cc, "ListReservations", in, opts)
}

func (c *ReservationServiceClient) UpdateReservation(ctx context.Context, in *UpdateReservationRequest, opts ...grpc.CallOption) (*ReservationResponse, error) {
	return invoke[ReservationResponse](ctx, c.cc, "UpdateReservation", in, opts)
}

func (c *ReservationServiceClient) SetReservationStatus(ctx context.Context, in *SetReservationStatusRequest, opts ...grpc.CallOption) (*ReservationResponse, error) {
	return invoke[ReservationResponse](ctx, c.cc, "SetReservationStatus", in, opts)
}

func (c *ReservationServiceClient) CancelReservation(ctx context.Context, in *IdRequest, opts ...grpc.CallOption) (*ReservationResponse, error) {
	return invoke[ReservationResponse](ctx, c.cc, "CancelReservation", in, opts)
}

func (c *ReservationServiceClient) GetAvailability(ctx context.Context, in *GetAvailabilityRequest, opts ...grpc.CallOption) (*AvailabilityResponse, error) {
	return invoke[AvailabilityResponse](ctx, c.cc, "GetAvailability", in, opts)
}
