package booking

import (
	"fmt"
	"time"
)

// Interval is a booked range. End is the last occupied second, so a range
// ending at 09:59:59 and one starting at 10:00:00 abut without overlapping.
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) Overlaps(o Interval) bool {
	return iv.Start.Before(o.End) && iv.End.After(o.Start)
}

func (iv Interval) String() string {
	return iv.Start.Format(time.DateTime) + " - " + iv.End.Format(time.DateTime)
}

// Resolve derives the interval a slot occupies when anchored on day in loc.
func Resolve(s Slot, day Date, loc *time.Location) (Interval, error) {
	midnight := day.At(TimeOfDay{}, loc)

	switch s := s.(type) {
	case Hourly:
		start := day.At(s.Start, loc)
		return Interval{Start: start, End: start.Add(time.Hour - time.Second)}, nil
	case HalfDay:
		start := day.At(s.Start, loc)
		return Interval{Start: start, End: start.Add(6*time.Hour - time.Second)}, nil
	case FullDay:
		end := time.Date(day.Year, day.Month, day.Day, 23, 59, 59, 0, loc)
		return Interval{Start: midnight, End: end}, nil
	case Week:
		return Interval{Start: midnight, End: midnight.AddDate(0, 0, 7).Add(-time.Second)}, nil
	case Month:
		// day 1 of the following month, normalized by time.Date for December
		next := time.Date(day.Year, day.Month+1, 1, 0, 0, 0, 0, loc)
		return Interval{Start: midnight, End: next.Add(-time.Second)}, nil
	default:
		return Interval{}, fmt.Errorf("resolve %T: %w", s, ErrUnknownType)
	}
}
