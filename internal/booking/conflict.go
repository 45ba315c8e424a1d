package booking

import (
	"workspace-reservations/internal/model"
)

// ResourceKey scopes overlap checks: a space, optionally narrowed to a desk.
type ResourceKey struct {
	SpaceID string
	DeskID  string
}

func (k ResourceKey) String() string {
	if k.DeskID == "" {
		return k.SpaceID
	}
	return k.SpaceID + "/" + k.DeskID
}

// Contends reports whether r is in scope when checking a request for k. A
// desk request only sees bookings of that desk; a whole-space request sees
// every booking in the space.
func (k ResourceKey) Contends(r model.Reservation) bool {
	if r.SpaceID != k.SpaceID {
		return false
	}
	return k.DeskID == "" || r.DeskID == k.DeskID
}

// FindConflict returns the earliest blocking reservation in existing that
// contends with key and overlaps iv, or nil. The reservation with id
// excludeID is ignored so a reservation never conflicts with itself.
func FindConflict(key ResourceKey, iv Interval, existing []model.Reservation, excludeID string) *model.Reservation {
	var hit *model.Reservation
	for i := range existing {
		r := &existing[i]
		if r.ID == excludeID && excludeID != "" {
			continue
		}
		if !r.Status.Blocking() || !key.Contends(*r) {
			continue
		}
		if !iv.Overlaps(Interval{Start: r.StartAt, End: r.EndAt}) {
			continue
		}
		if hit == nil || r.StartAt.Before(hit.StartAt) ||
			(r.StartAt.Equal(hit.StartAt) && r.ID < hit.ID) {
			hit = r
		}
	}
	if hit == nil {
		return nil
	}
	out := *hit
	return &out
}
