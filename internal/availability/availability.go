// Package availability summarizes how occupied a space is on a given day.
// Summaries are cached and dropped whenever a committed change touches the
// day.
package availability

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"sync/atomic"
	"time"

	"workspace-reservations/internal/booking"
	"workspace-reservations/internal/model"
)

type Status string

const (
	Free     Status = "free"
	Partial  Status = "partial"
	Occupied Status = "occupied"
)

type Summary struct {
	SpaceID         string  `json:"spaceId"`
	Date            string  `json:"date"`
	Status          Status  `json:"status"`
	OccupiedPercent float64 `json:"occupiedPercent"`
	Reservations    int     `json:"reservations"`
}

type Source interface {
	Space(ctx context.Context, id string) (model.Space, error)
	Desks(ctx context.Context, spaceID string) ([]model.Desk, error)
	ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error)
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

type Service struct {
	src   Source
	cache Cache
	loc   *time.Location
	ttl   time.Duration

	// bumped by Publish; a summary computed across a bump is not cached
	published atomic.Uint64
}

// New builds the service. cache may be nil.
func New(src Source, cache Cache, loc *time.Location, ttl time.Duration) *Service {
	return &Service{src: src, cache: cache, loc: loc, ttl: ttl}
}

func cacheKey(spaceID string, day booking.Date) string {
	return "availability:" + spaceID + ":" + day.String()
}

func (s *Service) Day(ctx context.Context, spaceID string, day booking.Date) (Summary, error) {
	key := cacheKey(spaceID, day)
	gen := s.published.Load()
	if s.cache != nil {
		if b, ok, err := s.cache.Get(ctx, key); err != nil {
			log.Printf("availability cache get %s: %v", key, err)
		} else if ok {
			var sum Summary
			if err := json.Unmarshal(b, &sum); err == nil {
				return sum, nil
			}
		}
	}

	space, err := s.src.Space(ctx, spaceID)
	if err != nil {
		return Summary{}, err
	}
	var desks []model.Desk
	if space.DeskBooking {
		if desks, err = s.src.Desks(ctx, spaceID); err != nil {
			return Summary{}, fmt.Errorf("list desks: %w", err)
		}
	}
	dayIv := bounds(day, s.loc)
	rs, err := s.src.ListReservations(ctx, model.ReservationFilter{SpaceID: spaceID, From: dayIv.Start, To: dayIv.End})
	if err != nil {
		return Summary{}, fmt.Errorf("list reservations: %w", err)
	}

	sum := Summarize(space, desks, rs, day, s.loc)
	if s.cache != nil && s.published.Load() == gen {
		if b, err := json.Marshal(sum); err == nil {
			if err := s.cache.Set(ctx, key, b, s.ttl); err != nil {
				log.Printf("availability cache set %s: %v", key, err)
			}
		}
	}
	return sum, nil
}

// Publish drops cached summaries for every day the event touched. Another
// instance may still cache a stale summary computed before the delete; it
// lives until the TTL.
func (s *Service) Publish(ctx context.Context, ev booking.Event) error {
	if s.cache == nil {
		return nil
	}
	s.published.Add(1)
	keys := daysKeys(ev.Reservation, s.loc)
	if ev.Previous != nil {
		keys = append(keys, daysKeys(*ev.Previous, s.loc)...)
	}
	return s.cache.Del(ctx, keys...)
}

func daysKeys(r model.Reservation, loc *time.Location) []string {
	var keys []string
	last := booking.DateOf(r.EndAt.In(loc))
	for d := booking.DateOf(r.StartAt.In(loc)); !last.Before(d); {
		keys = append(keys, cacheKey(r.SpaceID, d))
		d = booking.DateOf(time.Date(d.Year, d.Month, d.Day+1, 12, 0, 0, 0, loc))
	}
	return keys
}

func bounds(day booking.Date, loc *time.Location) booking.Interval {
	iv, _ := booking.Resolve(booking.FullDay{}, day, loc)
	return iv
}

// Summarize computes the occupancy of space on day. For desk-bookable spaces
// the percentage is the mean over desks, and a whole-space booking covers
// every desk.
func Summarize(space model.Space, desks []model.Desk, rs []model.Reservation, day booking.Date, loc *time.Location) Summary {
	dayIv := bounds(day, loc)
	dayLen := dayIv.End.Sub(dayIv.Start) + time.Second

	units := []string{""}
	if space.DeskBooking && len(desks) > 0 {
		units = units[:0]
		for _, d := range desks {
			units = append(units, d.ID)
		}
	}

	count := 0
	for _, r := range rs {
		if r.SpaceID == space.ID && r.Status.Blocking() && dayIv.Overlaps(booking.Interval{Start: r.StartAt, End: r.EndAt}) {
			count++
		}
	}

	var total float64
	for _, u := range units {
		key := booking.ResourceKey{SpaceID: space.ID, DeskID: u}
		var ivs []booking.Interval
		for _, r := range rs {
			iv := booking.Interval{Start: r.StartAt, End: r.EndAt}
			// a whole-space booking occupies every desk
			covers := key.Contends(r) || (r.SpaceID == space.ID && r.DeskID == "")
			if !r.Status.Blocking() || !covers || !dayIv.Overlaps(iv) {
				continue
			}
			ivs = append(ivs, clip(iv, dayIv))
		}
		total += float64(covered(ivs)) / float64(dayLen)
	}
	pct := math.Round(total/float64(len(units))*1000) / 10

	status := Partial
	switch {
	case count == 0:
		status = Free
	case pct >= 100:
		status = Occupied
	}
	return Summary{
		SpaceID:         space.ID,
		Date:            day.String(),
		Status:          status,
		OccupiedPercent: pct,
		Reservations:    count,
	}
}

func clip(iv, to booking.Interval) booking.Interval {
	if iv.Start.Before(to.Start) {
		iv.Start = to.Start
	}
	if iv.End.After(to.End) {
		iv.End = to.End
	}
	return iv
}

// covered is the length of the union of ivs; ends are inclusive seconds.
func covered(ivs []booking.Interval) time.Duration {
	if len(ivs) == 0 {
		return 0
	}
	sort.Slice(ivs, func(i, j int) bool { return ivs[i].Start.Before(ivs[j].Start) })
	var total time.Duration
	cur := ivs[0]
	for _, iv := range ivs[1:] {
		if !iv.Start.After(cur.End.Add(time.Second)) {
			if iv.End.After(cur.End) {
				cur.End = iv.End
			}
			continue
		}
		total += cur.End.Sub(cur.Start) + time.Second
		cur = iv
	}
	return total + cur.End.Sub(cur.Start) + time.Second
}
