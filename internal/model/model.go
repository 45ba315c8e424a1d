package model

import "time"

type User struct {
	ID           string
	Email        string
	PasswordHash string
	Name         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Space struct {
	ID          string
	Name        string
	Kind        string
	Capacity    int
	DeskBooking bool
}

type Desk struct {
	ID        string
	SpaceID   string
	Name      string
	Available bool
}

type ReservationType string

const (
	TypeHourly  ReservationType = "hourly"
	TypeHalfDay ReservationType = "half_day"
	TypeFullDay ReservationType = "full_day"
	TypeWeek    ReservationType = "week"
	TypeMonth   ReservationType = "month"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
)

// Blocking reports whether a reservation in this status occupies its interval.
func (s Status) Blocking() bool { return s != StatusCancelled }

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

type Reservation struct {
	ID        string
	OwnerID   string
	SpaceID   string
	DeskID    string // empty when the whole space is booked
	StartAt   time.Time
	EndAt     time.Time
	Type      ReservationType
	Status    Status
	Reason    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ReservationFilter narrows a reservation listing. Zero fields do not filter;
// From/To select reservations overlapping [From, To].
type ReservationFilter struct {
	OwnerID string
	SpaceID string
	DeskID  string
	From    time.Time
	To      time.Time
}
