package store

import (
	"context"

	"workspace-reservations/internal/model"
)

func (s *Store) CreateSpace(ctx context.Context, sp *model.Space) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO spaces (id, name, kind, capacity, desk_booking) VALUES ($1,$2,$3,$4,$5)`,
		sp.ID, sp.Name, sp.Kind, sp.Capacity, sp.DeskBooking,
	)
	return err
}

func (s *Store) CreateDesk(ctx context.Context, d *model.Desk) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO desks (id, space_id, name, available) VALUES ($1,$2,$3,$4)`,
		d.ID, d.SpaceID, d.Name, d.Available,
	)
	return err
}

func (s *Store) Space(ctx context.Context, id string) (model.Space, error) {
	var sp model.Space
	err := s.pool.QueryRow(ctx,
		`SELECT id, name, kind, capacity, desk_booking FROM spaces WHERE id = $1`, id,
	).Scan(&sp.ID, &sp.Name, &sp.Kind, &sp.Capacity, &sp.DeskBooking)
	if err != nil {
		return model.Space{}, mapErr(err)
	}
	return sp, nil
}

func (s *Store) Desk(ctx context.Context, id string) (model.Desk, error) {
	var d model.Desk
	err := s.pool.QueryRow(ctx,
		`SELECT id, space_id, name, available FROM desks WHERE id = $1`, id,
	).Scan(&d.ID, &d.SpaceID, &d.Name, &d.Available)
	if err != nil {
		return model.Desk{}, mapErr(err)
	}
	return d, nil
}

func (s *Store) Desks(ctx context.Context, spaceID string) ([]model.Desk, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, space_id, name, available FROM desks WHERE space_id = $1 ORDER BY id`, spaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Desk
	for rows.Next() {
		var d model.Desk
		if err := rows.Scan(&d.ID, &d.SpaceID, &d.Name, &d.Available); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
