package booking

import (
	"context"
	"time"

	"workspace-reservations/internal/model"
)

type Reader interface {
	Reservation(ctx context.Context, id string) (model.Reservation, error)
}

// Engine turns raw requests into committed reservations:
// validate, resolve the interval, then commit atomically.
type Engine struct {
	validator *Validator
	committer *Committer
	reader    Reader
	loc       *time.Location
}

func NewEngine(v *Validator, c *Committer, r Reader, loc *time.Location) *Engine {
	return &Engine{validator: v, committer: c, reader: r, loc: loc}
}

func (e *Engine) Location() *time.Location { return e.loc }

func (e *Engine) Book(ctx context.Context, raw RawRequest) (*model.Reservation, error) {
	req, iv, err := e.prepare(ctx, raw)
	if err != nil {
		return nil, err
	}
	return e.committer.Commit(ctx, req, iv)
}

func (e *Engine) Reschedule(ctx context.Context, id string, raw RawRequest) (*model.Reservation, error) {
	req, iv, err := e.prepare(ctx, raw)
	if err != nil {
		return nil, err
	}
	return e.committer.Reschedule(ctx, id, req, iv)
}

func (e *Engine) Cancel(ctx context.Context, id string) (*model.Reservation, error) {
	return e.SetStatus(ctx, id, model.StatusCancelled)
}

func (e *Engine) SetStatus(ctx context.Context, id string, status model.Status) (*model.Reservation, error) {
	cur, err := e.reader.Reservation(ctx, id)
	if err != nil {
		return nil, err
	}
	return e.committer.SetStatus(ctx, cur, status)
}

func (e *Engine) prepare(ctx context.Context, raw RawRequest) (Request, Interval, error) {
	req, err := e.validator.Validate(ctx, raw)
	if err != nil {
		return Request{}, Interval{}, err
	}
	iv, err := Resolve(req.Slot, req.Anchor, e.loc)
	if err != nil {
		return Request{}, Interval{}, err
	}
	return req, iv, nil
}
