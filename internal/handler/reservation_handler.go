package handler

import (
	"context"
	"errors"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"workspace-reservations/internal/booking"
	"workspace-reservations/internal/model"
	"workspace-reservations/internal/rpc"
)

func (h *Handler) CreateReservation(ctx context.Context, req *rpc.CreateReservationRequest) (*rpc.ReservationResponse, error) {
	raw, err := rawRequest(ctx, req)
	if err != nil {
		return nil, err
	}
	r, err := h.engine.Book(ctx, raw)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &rpc.ReservationResponse{Reservation: toProto(r)}, nil
}

func (h *Handler) GetReservation(ctx context.Context, req *rpc.IdRequest) (*rpc.ReservationResponse, error) {
	r, err := h.owned(ctx, req.Id)
	if err != nil {
		return nil, err
	}
	return &rpc.ReservationResponse{Reservation: toProto(&r)}, nil
}

func (h *Handler) ListReservations(ctx context.Context, req *rpc.ListReservationsRequest) (*rpc.ListReservationsResponse, error) {
	from := time.Now().AddDate(0, 0, -30)
	to := time.Now().AddDate(0, 2, 0)
	if !req.RangeStart.IsZero() {
		from = req.RangeStart
	}
	if !req.RangeEnd.IsZero() {
		to = req.RangeEnd
	}
	if !to.After(from) {
		return nil, invalid(booking.FieldErrors{"rangeEnd": "must be after rangeStart"})
	}

	rs, err := h.store.ListReservations(ctx, model.ReservationFilter{
		OwnerID: req.OwnerId,
		SpaceID: req.SpaceId,
		DeskID:  req.DeskId,
		From:    from,
		To:      to,
	})
	if err != nil {
		return nil, h.toStatus(&booking.StoreError{Op: "list reservations", Err: err})
	}

	out := make([]*rpc.Reservation, len(rs))
	for i := range rs {
		out[i] = toProto(&rs[i])
	}
	return &rpc.ListReservationsResponse{Reservations: out}, nil
}

func (h *Handler) UpdateReservation(ctx context.Context, req *rpc.UpdateReservationRequest) (*rpc.ReservationResponse, error) {
	if req.Request == nil {
		return nil, invalid(booking.FieldErrors{"request": "is required"})
	}
	if _, err := h.owned(ctx, req.Id); err != nil {
		return nil, err
	}
	raw, err := rawRequest(ctx, req.Request)
	if err != nil {
		return nil, err
	}
	r, err := h.engine.Reschedule(ctx, req.Id, raw)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &rpc.ReservationResponse{Reservation: toProto(r)}, nil
}

func (h *Handler) SetReservationStatus(ctx context.Context, req *rpc.SetReservationStatusRequest) (*rpc.ReservationResponse, error) {
	if _, err := h.owned(ctx, req.Id); err != nil {
		return nil, err
	}
	r, err := h.engine.SetStatus(ctx, req.Id, model.Status(req.Status))
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &rpc.ReservationResponse{Reservation: toProto(r)}, nil
}

func (h *Handler) CancelReservation(ctx context.Context, req *rpc.IdRequest) (*rpc.ReservationResponse, error) {
	if _, err := h.owned(ctx, req.Id); err != nil {
		return nil, err
	}
	r, err := h.engine.Cancel(ctx, req.Id)
	if err != nil {
		return nil, h.toStatus(err)
	}
	return &rpc.ReservationResponse{Reservation: toProto(r)}, nil
}

func (h *Handler) GetAvailability(ctx context.Context, req *rpc.GetAvailabilityRequest) (*rpc.AvailabilityResponse, error) {
	fe := booking.FieldErrors{}
	if req.SpaceId == "" {
		fe["spaceId"] = "is required"
	}
	day, err := booking.ParseDate(req.Date)
	if err != nil {
		fe["date"] = "must be a valid date (YYYY-MM-DD)"
	}
	if len(fe) > 0 {
		return nil, invalid(fe)
	}

	sum, err := h.avail.Day(ctx, req.SpaceId, day)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return nil, status.Error(codes.NotFound, "space not found")
		}
		return nil, h.toStatus(&booking.StoreError{Op: "availability", Err: err})
	}
	return &rpc.AvailabilityResponse{
		SpaceId:         sum.SpaceID,
		Date:            sum.Date,
		Status:          string(sum.Status),
		OccupiedPercent: sum.OccupiedPercent,
		Reservations:    uint64(sum.Reservations),
	}, nil
}

// owned loads reservation id for the caller. Someone else's reservation is
// reported as not found to hide that it exists.
func (h *Handler) owned(ctx context.Context, id string) (model.Reservation, error) {
	if id == "" {
		return model.Reservation{}, invalid(booking.FieldErrors{"id": "is required"})
	}
	r, err := h.store.Reservation(ctx, id)
	if err != nil {
		if errors.Is(err, booking.ErrNotFound) {
			return model.Reservation{}, status.Error(codes.NotFound, "not found")
		}
		return model.Reservation{}, h.toStatus(&booking.StoreError{Op: "get reservation", Err: err})
	}
	if r.OwnerID != uid(ctx) {
		return model.Reservation{}, status.Error(codes.NotFound, "not found")
	}
	return r, nil
}

// rawRequest fills the owner from the caller when omitted. Booking on behalf
// of someone else is refused.
func rawRequest(ctx context.Context, req *rpc.CreateReservationRequest) (booking.RawRequest, error) {
	owner := req.OwnerId
	if owner == "" {
		owner = uid(ctx)
	} else if owner != uid(ctx) {
		return booking.RawRequest{}, status.Error(codes.PermissionDenied, "cannot book on behalf of another user")
	}
	return booking.RawRequest{
		OwnerID:    owner,
		SpaceID:    req.SpaceId,
		DeskID:     req.DeskId,
		AnchorDate: req.AnchorDate,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Type:       req.ReservationType,
		Reason:     req.Reason,
	}, nil
}

func toProto(r *model.Reservation) *rpc.Reservation {
	return &rpc.Reservation{
		Id:              r.ID,
		OwnerId:         r.OwnerID,
		SpaceId:         r.SpaceID,
		DeskId:          r.DeskID,
		StartAt:         r.StartAt,
		EndAt:           r.EndAt,
		ReservationType: string(r.Type),
		Status:          string(r.Status),
		Reason:          r.Reason,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
