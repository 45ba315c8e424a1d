package handler

import (
	"context"
	"errors"
	"log"
	"sort"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"workspace-reservations/internal/availability"
	"workspace-reservations/internal/booking"
	"workspace-reservations/internal/middleware"
	"workspace-reservations/internal/model"
	"workspace-reservations/internal/rpc"
)

// Store is the read side the handler needs beyond the engine.
type Store interface {
	UserByEmail(ctx context.Context, email string) (*model.User, error)
	Reservation(ctx context.Context, id string) (model.Reservation, error)
	ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error)
}

type Handler struct {
	rpc.UnimplementedReservationServiceServer
	engine *booking.Engine
	store  Store
	avail  *availability.Service
	secret string
}

func New(engine *booking.Engine, st Store, avail *availability.Service, secret string) *Handler {
	return &Handler{engine: engine, store: st, avail: avail, secret: secret}
}

func uid(ctx context.Context) string {
	id, _ := ctx.Value(middleware.UserIDKey).(string)
	return id
}

// toStatus is the single place booking outcomes become gRPC statuses.
func (h *Handler) toStatus(err error) error {
	var (
		fe booking.FieldErrors
		ce *booking.ConflictError
		se *booking.StoreError
	)
	switch {
	case errors.As(err, &fe):
		return invalid(fe)
	case errors.Is(err, booking.ErrUnknownType):
		return invalid(booking.FieldErrors{"reservationType": err.Error()})
	case errors.Is(err, booking.ErrUnknownStatus):
		return invalid(booking.FieldErrors{"status": err.Error()})
	case errors.As(err, &ce):
		return status.Error(codes.AlreadyExists, ce.Message(h.engine.Location()))
	case errors.Is(err, booking.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.As(err, &se):
		log.Printf("store: %v", se)
		return status.Error(codes.Unavailable, "service temporarily unavailable, try again")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}
	log.Printf("internal: %v", err)
	return status.Error(codes.Internal, "internal error")
}

// invalid reports every field violation, both in the message and as
// BadRequest details.
func invalid(fe booking.FieldErrors) error {
	st := status.New(codes.InvalidArgument, fe.Error())
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	br := &errdetails.BadRequest{}
	for _, f := range fields {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       f,
			Description: fe[f],
		})
	}
	if d, err := st.WithDetails(br); err == nil {
		return d.Err()
	}
	return st.Err()
}
