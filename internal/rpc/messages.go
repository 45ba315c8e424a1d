package rpc

import (
	"time"

	"google.golang.org/protobuf/encoding/protowire"
)

type Reservation struct {
	Id              string
	OwnerId         string
	SpaceId         string
	DeskId          string
	StartAt         time.Time
	EndAt           time.Time
	ReservationType string
	Status          string
	Reason          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (m *Reservation) MarshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.Id)
	b = appendString(b, 2, m.OwnerId)
	b = appendString(b, 3, m.SpaceId)
	b = appendString(b, 4, m.DeskId)
	b = appendTime(b, 5, m.StartAt)
	b = appendTime(b, 6, m.EndAt)
	b = appendString(b, 7, m.ReservationType)
	b = appendString(b, 8, m.Status)
	b = appendString(b, 9, m.Reason)
	b = appendTime(b, 10, m.CreatedAt)
	b = appendTime(b, 11, m.UpdatedAt)
	return b
}

func (m *Reservation) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.Id)
		case 2:
			return consumeString(typ, b, &m.OwnerId)
		case 3:
			return consumeString(typ, b, &m.SpaceId)
		case 4:
			return consumeString(typ, b, &m.DeskId)
		case 5:
			return consumeTime(typ, b, &m.StartAt)
		case 6:
			return consumeTime(typ, b, &m.EndAt)
		case 7:
			return consumeString(typ, b, &m.ReservationType)
		case 8:
			return consumeString(typ, b, &m.Status)
		case 9:
			return consumeString(typ, b, &m.Reason)
		case 10:
			return consumeTime(typ, b, &m.CreatedAt)
		case 11:
			return consumeTime(typ, b, &m.UpdatedAt)
		}
		return 0, nil
	})
}

type LoginRequest struct {
	Email    string
	Password string
}

func (m *LoginRequest) MarshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.Email)
	b = appendString(b, 2, m.Password)
	return b
}

func (m *LoginRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.Email)
		case 2:
			return consumeString(typ, b, &m.Password)
		}
		return 0, nil
	})
}

type LoginResponse struct {
	Token  string
	UserId string
	Name   string
}

func (m *LoginResponse) MarshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.Token)
	b = appendString(b, 2, m.UserId)
	b = appendString(b, 3, m.Name)
	return b
}

func (m *LoginResponse) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.Token)
		case 2:
			return consumeString(typ, b, &m.UserId)
		case 3:
			return consumeString(typ, b, &m.Name)
		}
		return 0, nil
	})
}

type CreateReservationRequest struct {
	OwnerId         string
	SpaceId         string
	DeskId          string
	AnchorDate      string
	StartTime       string
	EndTime         string
	ReservationType string
	Reason          string
}

func (m *CreateReservationRequest) MarshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.OwnerId)
	b = appendString(b, 2, m.SpaceId)
	b = appendString(b, 3, m.DeskId)
	b = appendString(b, 4, m.AnchorDate)
	b = appendString(b, 5, m.StartTime)
	b = appendString(b, 6, m.EndTime)
	b = appendString(b, 7, m.ReservationType)
	b = appendString(b, 8, m.Reason)
	return b
}

func (m *CreateReservationRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.OwnerId)
		case 2:
			return consumeString(typ, b, &m.SpaceId)
		case 3:
			return consumeString(typ, b, &m.DeskId)
		case 4:
			return consumeString(typ, b, &m.AnchorDate)
		case 5:
			return consumeString(typ, b, &m.StartTime)
		case 6:
			return consumeString(typ, b, &m.EndTime)
		case 7:
			return consumeString(typ, b, &m.ReservationType)
		case 8:
			return consumeString(typ, b, &m.Reason)
		}
		return 0, nil
	})
}

// ReservationResponse is returned by every call that yields one reservation.
type ReservationResponse struct {
	Reservation *Reservation
}

func (m *ReservationResponse) MarshalWire() []byte {
	if m.Reservation == nil {
		return nil
	}
	return appendMessage(nil, 1, m.Reservation)
}

func (m *ReservationResponse) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			m.Reservation = &Reservation{}
			return consumeMessage(typ, b, m.Reservation)
		}
		return 0, nil
	})
}

// IdRequest names a reservation. It is the input of Get and Cancel.
type IdRequest struct {
	Id string
}

func (m *IdRequest) MarshalWire() []byte { return appendString(nil, 1, m.Id) }

func (m *IdRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			return consumeString(typ, b, &m.Id)
		}
		return 0, nil
	})
}

type UpdateReservationRequest struct {
	Id      string
	Request *CreateReservationRequest
}

func (m *UpdateReservationRequest) MarshalWire() []byte {
	b := appendString(nil, 1, m.Id)
	if m.Request != nil {
		b = appendMessage(b, 2, m.Request)
	}
	return b
}

func (m *UpdateReservationRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.Id)
		case 2:
			m.Request = &CreateReservationRequest{}
			return consumeMessage(typ, b, m.Request)
		}
		return 0, nil
	})
}

type SetReservationStatusRequest struct {
	Id     string
	Status string
}

func (m *SetReservationStatusRequest) MarshalWire() []byte {
	b := appendString(nil, 1, m.Id)
	return appendString(b, 2, m.Status)
}

func (m *SetReservationStatusRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.Id)
		case 2:
			return consumeString(typ, b, &m.Status)
		}
		return 0, nil
	})
}

type ListReservationsRequest struct {
	SpaceId    string
	DeskId     string
	OwnerId    string
	RangeStart time.Time
	RangeEnd   time.Time
}

func (m *ListReservationsRequest) MarshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.SpaceId)
	b = appendString(b, 2, m.DeskId)
	b = appendString(b, 3, m.OwnerId)
	b = appendTime(b, 4, m.RangeStart)
	b = appendTime(b, 5, m.RangeEnd)
	return b
}

func (m *ListReservationsRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.SpaceId)
		case 2:
			return consumeString(typ, b, &m.DeskId)
		case 3:
			return consumeString(typ, b, &m.OwnerId)
		case 4:
			return consumeTime(typ, b, &m.RangeStart)
		case 5:
			return consumeTime(typ, b, &m.RangeEnd)
		}
		return 0, nil
	})
}

type ListReservationsResponse struct {
	Reservations []*Reservation
}

func (m *ListReservationsResponse) MarshalWire() []byte {
	var b []byte
	for _, r := range m.Reservations {
		b = appendMessage(b, 1, r)
	}
	return b
}

func (m *ListReservationsResponse) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num == 1 {
			r := &Reservation{}
			m.Reservations = append(m.Reservations, r)
			return consumeMessage(typ, b, r)
		}
		return 0, nil
	})
}

type GetAvailabilityRequest struct {
	SpaceId string
	Date    string
}

func (m *GetAvailabilityRequest) MarshalWire() []byte {
	b := appendString(nil, 1, m.SpaceId)
	return appendString(b, 2, m.Date)
}

func (m *GetAvailabilityRequest) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.SpaceId)
		case 2:
			return consumeString(typ, b, &m.Date)
		}
		return 0, nil
	})
}

type AvailabilityResponse struct {
	SpaceId         string
	Date            string
	Status          string
	OccupiedPercent float64
	Reservations    uint64
}

func (m *AvailabilityResponse) MarshalWire() []byte {
	var b []byte
	b = appendString(b, 1, m.SpaceId)
	b = appendString(b, 2, m.Date)
	b = appendString(b, 3, m.Status)
	b = appendDouble(b, 4, m.OccupiedPercent)
	b = appendVarint(b, 5, m.Reservations)
	return b
}

func (m *AvailabilityResponse) UnmarshalWire(b []byte) error {
	return walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return consumeString(typ, b, &m.SpaceId)
		case 2:
			return consumeString(typ, b, &m.Date)
		case 3:
			return consumeString(typ, b, &m.Status)
		case 4:
			return consumeDouble(typ, b, &m.OccupiedPercent)
		case 5:
			return consumeVarint(typ, b, &m.Reservations)
		}
		return 0, nil
	})
}
