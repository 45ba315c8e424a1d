package booking

import (
	"fmt"
	"time"

	"workspace-reservations/internal/model"
)

const dateLayout = "2006-01-02"

// Date is a calendar day with no zone attached. It only becomes an instant
// once a location is supplied.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// At returns the instant of the given clock time on d in loc.
func (d Date) At(t TimeOfDay, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, t.Hour, t.Minute, 0, 0, loc)
}

// TimeOfDay is a wall clock time with minute precision ("HH:MM").
type TimeOfDay struct {
	Hour   int
	Minute int
}

func ParseTimeOfDay(s string) (TimeOfDay, error) {
	// time.Parse accepts "9:00" for 15:04, the wire format does not
	if len(s) != 5 {
		return TimeOfDay{}, fmt.Errorf("time %q is not HH:MM", s)
	}
	t, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, err
	}
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute()}, nil
}

func (t TimeOfDay) String() string { return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute) }

func (t TimeOfDay) After(o TimeOfDay) bool {
	return t.Hour*60+t.Minute > o.Hour*60+o.Minute
}

// Half-day bookings may only start at these times.
var (
	Morning   = TimeOfDay{Hour: 8}
	Afternoon = TimeOfDay{Hour: 14}
)

// Slot is the type-specific part of a booking request. Each variant carries
// exactly the fields its reservation type accepts.
type Slot interface {
	Type() model.ReservationType
	isSlot()
}

type Hourly struct {
	Start TimeOfDay
	End   TimeOfDay
}

type HalfDay struct {
	Start TimeOfDay
}

type FullDay struct{}

type Week struct{}

type Month struct{}

func (Hourly) Type() model.ReservationType { return model.TypeHourly }
func (HalfDay) Type() model.ReservationType { return model.TypeHalfDay }
func (FullDay) Type() model.ReservationType { return model.TypeFullDay }
func (Week) Type() model.ReservationType { return model.TypeWeek }
func (Month) Type() model.ReservationType { return model.TypeMonth }

func (Hourly) isSlot() {}
func (HalfDay) isSlot() {}
func (FullDay) isSlot() {}
func (Week) isSlot() {}
func (Month) isSlot() {}

// ParseType maps the wire name of a reservation type. ok is false for
// anything outside the closed set.
func ParseType(s string) (model.ReservationType, bool) {
	switch t := model.ReservationType(s); t {
	case model.TypeHourly, model.TypeHalfDay, model.TypeFullDay, model.TypeWeek, model.TypeMonth:
		return t, true
	}
	return "", false
}
