package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"workspace-reservations/internal/model"
)

// Store persists reservations. Atomic must run fn in a transaction that has
// exclusive write access to every reservation of spaceID, with a consistent
// read of them, and commit only if fn returns nil.
type Store interface {
	Atomic(ctx context.Context, spaceID string, fn func(ctx context.Context, tx Tx) error) error
}

type Tx interface {
	// Overlapping returns candidates that may conflict with iv on key. It may
	// return more than the real conflicts; FindConflict has the final say.
	Overlapping(ctx context.Context, key ResourceKey, iv Interval) ([]model.Reservation, error)
	Reservation(ctx context.Context, id string) (model.Reservation, error)
	Insert(ctx context.Context, r *model.Reservation) error
	Update(ctx context.Context, r *model.Reservation) error
}

const (
	EventConfirmed = "reservation.confirmed"
	EventUpdated   = "reservation.updated"
	EventCancelled = "reservation.cancelled"
)

type Event struct {
	Kind        string
	Reservation model.Reservation
	// Previous is set for updates that moved the reservation.
	Previous *model.Reservation
	At       time.Time
}

// Publisher is told about committed changes. Failures are logged and never
// undo the commit.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type Option func(*Committer)

// WithLocker adds a lock taken, in order, before the store transaction.
func WithLocker(l Locker) Option {
	return func(c *Committer) { c.locks = append(c.locks, l) }
}

func WithPublisher(p Publisher) Option {
	return func(c *Committer) { c.pubs = append(c.pubs, p) }
}

func WithClock(clock Clock) Option {
	return func(c *Committer) { c.clock = clock }
}

// WithTimeouts bounds the wait for locks and the duration of the atomic section.
func WithTimeouts(lock, commit time.Duration) Option {
	return func(c *Committer) {
		c.lockTimeout = lock
		c.commitTimeout = commit
	}
}

// Committer is the only writer of reservations. Every write goes through one
// atomic section per space, so two overlapping requests on the same resource
// can never both be admitted.
type Committer struct {
	store         Store
	locks         []Locker
	pubs          []Publisher
	clock         Clock
	lockTimeout   time.Duration
	commitTimeout time.Duration
}

func NewCommitter(st Store, opts ...Option) *Committer {
	c := &Committer{
		store:         st,
		clock:         RealClock{},
		lockTimeout:   5 * time.Second,
		commitTimeout: 10 * time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

var errAbort = errors.New("abort")

// Commit admits a new confirmed reservation for req over iv.
func (c *Committer) Commit(ctx context.Context, req Request, iv Interval) (*model.Reservation, error) {
	now := c.clock.Now()
	r := &model.Reservation{
		ID:        uuid.New().String(),
		OwnerID:   req.OwnerID,
		SpaceID:   req.SpaceID,
		DeskID:    req.DeskID,
		StartAt:   iv.Start,
		EndAt:     iv.End,
		Type:      req.Slot.Type(),
		Status:    model.StatusConfirmed,
		Reason:    req.Reason,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := c.admit(ctx, req.Key(), iv, "", func(ctx context.Context, tx Tx) error {
		return tx.Insert(ctx, r)
	})
	if err != nil {
		return nil, err
	}
	c.publish(ctx, Event{Kind: EventConfirmed, Reservation: *r, At: now})
	return r, nil
}

// Reschedule replaces the booking data of reservation id with req over iv.
// The overlap check runs again with the reservation itself excluded.
func (c *Committer) Reschedule(ctx context.Context, id string, req Request, iv Interval) (*model.Reservation, error) {
	var prev, next model.Reservation
	err := c.admit(ctx, req.Key(), iv, id, func(ctx context.Context, tx Tx) error {
		cur, err := tx.Reservation(ctx, id)
		if err != nil {
			return err
		}
		prev, next = cur, cur
		next.OwnerID = req.OwnerID
		next.SpaceID = req.SpaceID
		next.DeskID = req.DeskID
		next.StartAt = iv.Start
		next.EndAt = iv.End
		next.Type = req.Slot.Type()
		next.Reason = req.Reason
		next.UpdatedAt = c.clock.Now()
		return tx.Update(ctx, &next)
	})
	if err != nil {
		return nil, err
	}
	c.publish(ctx, Event{Kind: EventUpdated, Reservation: next, Previous: &prev, At: next.UpdatedAt})
	return &next, nil
}

// SetStatus moves reservation cur.ID to status. cur may be stale: the row is
// read again under the lock of its space and a move back to a blocking
// status is checked against its current interval like a new booking.
func (c *Committer) SetStatus(ctx context.Context, cur model.Reservation, status model.Status) (*model.Reservation, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("status %q: %w", status, ErrUnknownStatus)
	}

	spaceID := cur.SpaceID
	for {
		var (
			prev, next model.Reservation
			conflict   *model.Reservation
			movedTo    string
		)
		err := c.atomic(ctx, spaceID, func(ctx context.Context, tx Tx) error {
			fresh, err := tx.Reservation(ctx, cur.ID)
			if err != nil {
				return err
			}
			if fresh.SpaceID != spaceID {
				movedTo = fresh.SpaceID
				return errAbort
			}
			if status.Blocking() && !fresh.Status.Blocking() {
				key := ResourceKey{SpaceID: fresh.SpaceID, DeskID: fresh.DeskID}
				existing, err := tx.Overlapping(ctx, key, Interval{Start: fresh.StartAt, End: fresh.EndAt})
				if err != nil {
					return err
				}
				if conflict = FindConflict(key, Interval{Start: fresh.StartAt, End: fresh.EndAt}, existing, fresh.ID); conflict != nil {
					return errAbort
				}
			}
			prev, next = fresh, fresh
			next.Status = status
			next.UpdatedAt = c.clock.Now()
			return tx.Update(ctx, &next)
		})
		if movedTo != "" {
			// rescheduled into another space since the lock was chosen
			spaceID = movedTo
			continue
		}
		if conflict != nil {
			return nil, &ConflictError{Existing: *conflict}
		}
		var se *StoreError
		if errors.As(err, &se) && errors.Is(se.Err, ErrOverlap) && prev.ID != "" {
			key := ResourceKey{SpaceID: prev.SpaceID, DeskID: prev.DeskID}
			if hit := c.reread(ctx, key, Interval{Start: prev.StartAt, End: prev.EndAt}, prev.ID); hit != nil {
				return nil, &ConflictError{Existing: *hit}
			}
		}
		if err != nil {
			return nil, err
		}

		kind := EventUpdated
		if status == model.StatusCancelled {
			kind = EventCancelled
		}
		c.publish(ctx, Event{Kind: kind, Reservation: next, Previous: &prev, At: next.UpdatedAt})
		return &next, nil
	}
}

// admit runs the conflict check and write as one unit for key's space.
func (c *Committer) admit(ctx context.Context, key ResourceKey, iv Interval, excludeID string, write func(context.Context, Tx) error) error {
	var conflict *model.Reservation
	err := c.atomic(ctx, key.SpaceID, func(ctx context.Context, tx Tx) error {
		existing, err := tx.Overlapping(ctx, key, iv)
		if err != nil {
			return err
		}
		if conflict = FindConflict(key, iv, existing, excludeID); conflict != nil {
			return errAbort
		}
		return write(ctx, tx)
	})
	if conflict != nil {
		log.Printf("booking conflict on %s: requested %s, held by %s (%s)", key, iv, conflict.ID,
			Interval{Start: conflict.StartAt, End: conflict.EndAt})
		return &ConflictError{Existing: *conflict}
	}

	var se *StoreError
	if errors.As(err, &se) && errors.Is(se.Err, ErrOverlap) {
		// the store constraint caught something the lock did not; report
		// what is there now
		if hit := c.reread(ctx, key, iv, excludeID); hit != nil {
			return &ConflictError{Existing: *hit}
		}
	}
	return err
}

// atomic takes every configured lock for spaceID, then runs fn in a store
// transaction. Once the locks are held the section is detached from caller
// cancellation so it finishes, bounded by commitTimeout.
func (c *Committer) atomic(ctx context.Context, spaceID string, fn func(context.Context, Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	lctx, cancel := context.WithTimeout(ctx, c.lockTimeout)
	defer cancel()
	var unlocks []func()
	defer func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}()
	for _, l := range c.locks {
		unlock, err := l.Lock(lctx, spaceID)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &StoreError{Op: "lock space " + spaceID, Err: err}
		}
		unlocks = append(unlocks, unlock)
	}

	actx, acancel := context.WithTimeout(context.WithoutCancel(ctx), c.commitTimeout)
	defer acancel()
	err := c.store.Atomic(actx, spaceID, fn)
	switch {
	case err == nil, errors.Is(err, errAbort):
		return nil
	case errors.Is(err, ErrNotFound):
		return err
	default:
		return &StoreError{Op: "commit", Err: err}
	}
}

func (c *Committer) reread(ctx context.Context, key ResourceKey, iv Interval, excludeID string) *model.Reservation {
	var hit *model.Reservation
	err := c.store.Atomic(context.WithoutCancel(ctx), key.SpaceID, func(ctx context.Context, tx Tx) error {
		existing, err := tx.Overlapping(ctx, key, iv)
		if err != nil {
			return err
		}
		hit = FindConflict(key, iv, existing, excludeID)
		return nil
	})
	if err != nil {
		log.Printf("booking reread %s: %v", key, err)
		return nil
	}
	return hit
}

func (c *Committer) publish(ctx context.Context, ev Event) {
	for _, p := range c.pubs {
		if err := p.Publish(context.WithoutCancel(ctx), ev); err != nil {
			log.Printf("publish %s %s: %v", ev.Kind, ev.Reservation.ID, err)
		}
	}
}
