package booking

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"workspace-reservations/internal/model"
)

type Clock interface {
	Now() time.Time
}

type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Catalog answers referential questions about owners, spaces and desks.
// Space and Desk return ErrNotFound for unknown ids.
type Catalog interface {
	OwnerExists(ctx context.Context, id string) (bool, error)
	Space(ctx context.Context, id string) (model.Space, error)
	Desk(ctx context.Context, id string) (model.Desk, error)
}

// RawRequest is a booking request as it arrives from a caller.
type RawRequest struct {
	OwnerID    string `json:"ownerId" validate:"required"`
	SpaceID    string `json:"spaceId" validate:"required"`
	DeskID     string `json:"deskId"`
	AnchorDate string `json:"anchorDate" validate:"required,datetime=2006-01-02"`
	StartTime  string `json:"startTime" validate:"omitempty,hhmm"`
	EndTime    string `json:"endTime" validate:"omitempty,hhmm"`
	Type       string `json:"reservationType" validate:"required"`
	Reason     string `json:"reason" validate:"max=255"`
}

// Request is a validated booking request.
type Request struct {
	OwnerID string
	SpaceID string
	DeskID  string
	Anchor  Date
	Slot    Slot
	Reason  string
}

func (r Request) Key() ResourceKey {
	return ResourceKey{SpaceID: r.SpaceID, DeskID: r.DeskID}
}

type Validator struct {
	catalog Catalog
	clock   Clock
	loc     *time.Location
	v       *validator.Validate
}

func NewValidator(catalog Catalog, clock Clock, loc *time.Location) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return &Validator{catalog: catalog, clock: clock, loc: loc, v: v}
}

// Validate checks raw and normalizes it. Field problems come back together as
// FieldErrors; an unknown type is ErrUnknownType; catalog failures are
// *StoreError.
func (v *Validator) Validate(ctx context.Context, raw RawRequest) (Request, error) {
	typ, known := ParseType(raw.Type)
	if raw.Type != "" && !known {
		return Request{}, ErrUnknownType
	}

	errs := FieldErrors{}
	if err := v.v.StructCtx(ctx, raw); err != nil {
		var ves validator.ValidationErrors
		if !errors.As(err, &ves) {
			return Request{}, err
		}
		for _, fe := range ves {
			errs.add(fe.Field(), tagMessage(fe))
		}
	}

	if err := v.checkRefs(ctx, raw, errs); err != nil {
		return Request{}, err
	}

	var anchor Date
	if _, bad := errs["anchorDate"]; !bad {
		anchor, _ = ParseDate(raw.AnchorDate)
		if anchor.Before(DateOf(v.clock.Now().In(v.loc))) {
			errs.add("anchorDate", "cannot be before today")
		}
	}

	slot := slotFor(typ, raw, errs)
	if len(errs) > 0 {
		return Request{}, errs
	}
	return Request{
		OwnerID: raw.OwnerID,
		SpaceID: raw.SpaceID,
		DeskID:  raw.DeskID,
		Anchor:  anchor,
		Slot:    slot,
		Reason:  raw.Reason,
	}, nil
}

func (v *Validator) checkRefs(ctx context.Context, raw RawRequest, errs FieldErrors) error {
	if raw.OwnerID != "" {
		ok, err := v.catalog.OwnerExists(ctx, raw.OwnerID)
		if err != nil {
			return &StoreError{Op: "lookup owner", Err: err}
		}
		if !ok {
			errs.add("ownerId", "does not exist")
		}
	}

	var space *model.Space
	if raw.SpaceID != "" {
		s, err := v.catalog.Space(ctx, raw.SpaceID)
		switch {
		case errors.Is(err, ErrNotFound):
			errs.add("spaceId", "does not exist")
		case err != nil:
			return &StoreError{Op: "lookup space", Err: err}
		default:
			space = &s
		}
	}

	if raw.DeskID != "" {
		d, err := v.catalog.Desk(ctx, raw.DeskID)
		switch {
		case errors.Is(err, ErrNotFound):
			errs.add("deskId", "does not exist")
		case err != nil:
			return &StoreError{Op: "lookup desk", Err: err}
		case space != nil && d.SpaceID != space.ID:
			errs.add("deskId", "does not belong to the selected space")
		case space != nil && !space.DeskBooking:
			errs.add("deskId", "the selected space does not take desk bookings")
		case !d.Available:
			errs.add("deskId", "is not available for booking")
		}
	}
	return nil
}

// slotFor applies the rules that depend on the reservation type and builds
// the matching variant. It returns nil when the type is missing.
func slotFor(typ model.ReservationType, raw RawRequest, errs FieldErrors) Slot {
	start, startErr := ParseTimeOfDay(raw.StartTime)
	end, endErr := ParseTimeOfDay(raw.EndTime)

	switch typ {
	case model.TypeHourly:
		if raw.StartTime == "" {
			errs.add("startTime", "is required for hourly reservations")
		}
		if raw.EndTime == "" {
			errs.add("endTime", "is required for hourly reservations")
		} else if startErr == nil && endErr == nil && !end.After(start) {
			errs.add("endTime", "must be after startTime")
		}
		return Hourly{Start: start, End: end}
	case model.TypeHalfDay:
		if raw.StartTime == "" {
			errs.add("startTime", "is required for half-day reservations")
		} else if startErr == nil && start != Morning && start != Afternoon {
			errs.add("startTime", "must be 08:00 or 14:00 for half-day reservations")
		}
		if raw.EndTime != "" {
			errs.add("endTime", "must not be set for half-day reservations")
		}
		return HalfDay{Start: start}
	case model.TypeFullDay, model.TypeWeek, model.TypeMonth:
		for field, val := range map[string]string{"startTime": raw.StartTime, "endTime": raw.EndTime} {
			if val != "" {
				errs.add(field, fmt.Sprintf("must not be set for %s reservations", typ))
			}
		}
		switch typ {
		case model.TypeFullDay:
			return FullDay{}
		case model.TypeWeek:
			return Week{}
		default:
			return Month{}
		}
	}
	return nil
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "datetime":
		return "must be a valid date (YYYY-MM-DD)"
	case "hhmm":
		return "must be a valid time (HH:MM)"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}
