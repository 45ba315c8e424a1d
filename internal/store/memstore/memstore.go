// Package memstore keeps the catalog and reservations in process memory.
// It backs tests and the STORE_DRIVER=memory development mode and follows
// the same contracts as the Postgres store.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"workspace-reservations/internal/booking"
	"workspace-reservations/internal/model"
)

var errDuplicate = errors.New("memstore: duplicate reservation id")

type Store struct {
	spaceLocks *booking.KeyedMutex

	mu           sync.RWMutex
	users        map[string]model.User
	spaces       map[string]model.Space
	desks        map[string]model.Desk
	reservations map[string]model.Reservation
}

func New() *Store {
	return &Store{
		spaceLocks:   booking.NewKeyedMutex(),
		users:        make(map[string]model.User),
		spaces:       make(map[string]model.Space),
		desks:        make(map[string]model.Desk),
		reservations: make(map[string]model.Reservation),
	}
}

func (s *Store) AddUser(u model.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
}

func (s *Store) AddSpace(sp model.Space) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.spaces[sp.ID] = sp
}

func (s *Store) AddDesk(d model.Desk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.desks[d.ID] = d
}

func (s *Store) UserByEmail(_ context.Context, email string) (*model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, booking.ErrNotFound
}

func (s *Store) OwnerExists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[id]
	return ok, nil
}

func (s *Store) Space(_ context.Context, id string) (model.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.spaces[id]
	if !ok {
		return model.Space{}, booking.ErrNotFound
	}
	return sp, nil
}

func (s *Store) Desk(_ context.Context, id string) (model.Desk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.desks[id]
	if !ok {
		return model.Desk{}, booking.ErrNotFound
	}
	return d, nil
}

func (s *Store) Desks(_ context.Context, spaceID string) ([]model.Desk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Desk
	for _, d := range s.desks {
		if d.SpaceID == spaceID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Reservation(_ context.Context, id string) (model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reservations[id]
	if !ok {
		return model.Reservation{}, booking.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListReservations(_ context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Reservation
	for _, r := range s.reservations {
		if matches(r, f) {
			out = append(out, r)
		}
	}
	sortByStart(out)
	return out, nil
}

func matches(r model.Reservation, f model.ReservationFilter) bool {
	switch {
	case f.OwnerID != "" && r.OwnerID != f.OwnerID,
		f.SpaceID != "" && r.SpaceID != f.SpaceID,
		f.DeskID != "" && r.DeskID != f.DeskID,
		!f.To.IsZero() && r.StartAt.After(f.To),
		!f.From.IsZero() && r.EndAt.Before(f.From):
		return false
	}
	return true
}

func sortByStart(rs []model.Reservation) {
	sort.Slice(rs, func(i, j int) bool {
		if rs[i].StartAt.Equal(rs[j].StartAt) {
			return rs[i].ID < rs[j].ID
		}
		return rs[i].StartAt.Before(rs[j].StartAt)
	})
}

// Atomic serializes callers per space and applies the writes made through tx
// only when fn succeeds.
func (s *Store) Atomic(ctx context.Context, spaceID string, fn func(context.Context, booking.Tx) error) error {
	unlock, err := s.spaceLocks.Lock(ctx, spaceID)
	if err != nil {
		return err
	}
	defer unlock()

	tx := &memTx{s: s, staged: make(map[string]model.Reservation)}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range tx.staged {
		s.reservations[id] = r
	}
	return nil
}

type memTx struct {
	s      *Store
	staged map[string]model.Reservation
}

func (tx *memTx) get(id string) (model.Reservation, bool) {
	if r, ok := tx.staged[id]; ok {
		return r, true
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()
	r, ok := tx.s.reservations[id]
	return r, ok
}

func (tx *memTx) all(spaceID string) []model.Reservation {
	tx.s.mu.RLock()
	out := make([]model.Reservation, 0, len(tx.s.reservations))
	for id, r := range tx.s.reservations {
		if _, ok := tx.staged[id]; !ok && r.SpaceID == spaceID {
			out = append(out, r)
		}
	}
	tx.s.mu.RUnlock()
	for _, r := range tx.staged {
		if r.SpaceID == spaceID {
			out = append(out, r)
		}
	}
	sortByStart(out)
	return out
}

func (tx *memTx) Overlapping(_ context.Context, key booking.ResourceKey, iv booking.Interval) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range tx.all(key.SpaceID) {
		if r.Status.Blocking() && iv.Overlaps(booking.Interval{Start: r.StartAt, End: r.EndAt}) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (tx *memTx) Reservation(_ context.Context, id string) (model.Reservation, error) {
	r, ok := tx.get(id)
	if !ok {
		return model.Reservation{}, booking.ErrNotFound
	}
	return r, nil
}

func (tx *memTx) Insert(_ context.Context, r *model.Reservation) error {
	if _, ok := tx.get(r.ID); ok {
		return errDuplicate
	}
	if err := tx.exclude(*r); err != nil {
		return err
	}
	tx.staged[r.ID] = *r
	return nil
}

func (tx *memTx) Update(_ context.Context, r *model.Reservation) error {
	if _, ok := tx.get(r.ID); !ok {
		return booking.ErrNotFound
	}
	if err := tx.exclude(*r); err != nil {
		return err
	}
	tx.staged[r.ID] = *r
	return nil
}

// exclude mirrors the Postgres exclusion constraint: same space, same desk
// (or both desk-less), overlapping, neither cancelled.
func (tx *memTx) exclude(r model.Reservation) error {
	if !r.Status.Blocking() {
		return nil
	}
	iv := booking.Interval{Start: r.StartAt, End: r.EndAt}
	for _, o := range tx.all(r.SpaceID) {
		if o.ID == r.ID || !o.Status.Blocking() || o.DeskID != r.DeskID {
			continue
		}
		if iv.Overlaps(booking.Interval{Start: o.StartAt, End: o.EndAt}) {
			return booking.ErrOverlap
		}
	}
	return nil
}
