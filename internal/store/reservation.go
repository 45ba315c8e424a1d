package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"workspace-reservations/internal/booking"
	"workspace-reservations/internal/model"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const reservationCols = `id, owner_id, space_id, desk_id, start_at, end_at,
	reservation_type, status, reason, created_at, updated_at`

func scanReservation(row pgx.Row) (model.Reservation, error) {
	var (
		r    model.Reservation
		desk *string
	)
	err := row.Scan(&r.ID, &r.OwnerID, &r.SpaceID, &desk, &r.StartAt, &r.EndAt,
		&r.Type, &r.Status, &r.Reason, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return model.Reservation{}, err
	}
	if desk != nil {
		r.DeskID = *desk
	}
	return r, nil
}

func collect(rows pgx.Rows) ([]model.Reservation, error) {
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Atomic runs fn in a READ COMMITTED transaction after taking a transaction
// scoped advisory lock on the space. Each statement after the lock sees
// everything committed by the previous holder; the exclusion constraint on
// reservations rejects anything that slips past.
func (s *Store) Atomic(ctx context.Context, spaceID string, fn func(context.Context, booking.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, "space:"+spaceID); err != nil {
		return fmt.Errorf("advisory lock: %w", err)
	}
	if err := fn(ctx, &pgTx{q: tx}); err != nil {
		return err
	}
	return mapErr(tx.Commit(ctx))
}

type pgTx struct {
	q querier
}

func (t *pgTx) Overlapping(ctx context.Context, key booking.ResourceKey, iv booking.Interval) ([]model.Reservation, error) {
	rows, err := t.q.Query(ctx,
		`SELECT `+reservationCols+`
		 FROM reservations
		 WHERE space_id = $1
		   AND status <> 'cancelled'
		   AND start_at < $3
		   AND end_at > $2
		   AND ($4 = '' OR desk_id = $4)
		 ORDER BY start_at, id`,
		key.SpaceID, iv.Start, iv.End, key.DeskID,
	)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}

func (t *pgTx) Reservation(ctx context.Context, id string) (model.Reservation, error) {
	r, err := scanReservation(t.q.QueryRow(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = $1 FOR UPDATE`, id))
	return r, mapErr(err)
}

func (t *pgTx) Insert(ctx context.Context, r *model.Reservation) error {
	_, err := t.q.Exec(ctx,
		`INSERT INTO reservations (`+reservationCols+`)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		r.ID, r.OwnerID, r.SpaceID, nullable(r.DeskID), r.StartAt, r.EndAt,
		r.Type, r.Status, r.Reason, r.CreatedAt, r.UpdatedAt,
	)
	return mapErr(err)
}

func (t *pgTx) Update(ctx context.Context, r *model.Reservation) error {
	tag, err := t.q.Exec(ctx,
		`UPDATE reservations
		 SET owner_id=$2, space_id=$3, desk_id=$4, start_at=$5, end_at=$6,
		     reservation_type=$7, status=$8, reason=$9, updated_at=$10
		 WHERE id=$1`,
		r.ID, r.OwnerID, r.SpaceID, nullable(r.DeskID), r.StartAt, r.EndAt,
		r.Type, r.Status, r.Reason, r.UpdatedAt,
	)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return booking.ErrNotFound
	}
	return nil
}

func (s *Store) Reservation(ctx context.Context, id string) (model.Reservation, error) {
	r, err := scanReservation(s.pool.QueryRow(ctx,
		`SELECT `+reservationCols+` FROM reservations WHERE id = $1`, id))
	return r, mapErr(err)
}

func (s *Store) ListReservations(ctx context.Context, f model.ReservationFilter) ([]model.Reservation, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}
	if f.SpaceID != "" {
		add("space_id = $%d", f.SpaceID)
	}
	if f.DeskID != "" {
		add("desk_id = $%d", f.DeskID)
	}
	if !f.To.IsZero() {
		add("start_at <= $%d", f.To)
	}
	if !f.From.IsZero() {
		add("end_at >= $%d", f.From)
	}

	q := `SELECT ` + reservationCols + ` FROM reservations`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY start_at, id`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return collect(rows)
}
