package handler_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"workspace-reservations/internal/auth"
	"workspace-reservations/internal/availability"
	"workspace-reservations/internal/booking"
	"workspace-reservations/internal/handler"
	"workspace-reservations/internal/middleware"
	"workspace-reservations/internal/model"
	"workspace-reservations/internal/rpc"
	"workspace-reservations/internal/store"
	"workspace-reservations/internal/store/memstore"
)

const secret = "test-secret"

type backend interface {
	booking.Store
	booking.Catalog
	handler.Store
	Desks(ctx context.Context, spaceID string) ([]model.Desk, error)
}

func build(st backend) *handler.Handler {
	v := booking.NewValidator(st, booking.RealClock{}, time.UTC)
	avail := availability.New(st, nil, time.UTC, time.Minute)
	c := booking.NewCommitter(st,
		booking.WithLocker(booking.NewKeyedMutex()),
		booking.WithPublisher(avail),
	)
	return handler.New(booking.NewEngine(v, c, st, time.UTC), st, avail, secret)
}

// setup seeds two users, a meeting room and an open space with desks d1, d2
// and the unavailable d3.
func setup(t *testing.T) *handler.Handler {
	t.Helper()
	ms := memstore.New()
	hash, err := auth.HashPassword("password123")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	ms.AddUser(model.User{ID: "u1", Email: "ada@test.com", PasswordHash: hash, Name: "Ada"})
	ms.AddUser(model.User{ID: "u2", Email: "bob@test.com", PasswordHash: hash, Name: "Bob"})
	ms.AddSpace(model.Space{ID: "room-a", Name: "Room A", Kind: "meeting_room", Capacity: 6})
	ms.AddSpace(model.Space{ID: "open-1", Name: "Open 1", Kind: "open_space", Capacity: 10, DeskBooking: true})
	ms.AddDesk(model.Desk{ID: "d1", SpaceID: "open-1", Name: "Desk 1", Available: true})
	ms.AddDesk(model.Desk{ID: "d2", SpaceID: "open-1", Name: "Desk 2", Available: true})
	ms.AddDesk(model.Desk{ID: "d3", SpaceID: "open-1", Name: "Desk 3", Available: false})
	return build(ms)
}

func as(uid string) context.Context {
	return middleware.WithUserID(context.Background(), uid)
}

// day returns a date n days from today as YYYY-MM-DD.
func day(n int) string {
	return time.Now().UTC().AddDate(0, 0, n).Format("2006-01-02")
}

func hourly(space, desk, date, from, to string) *rpc.CreateReservationRequest {
	return &rpc.CreateReservationRequest{
		SpaceId:         space,
		DeskId:          desk,
		AnchorDate:      date,
		StartTime:       from,
		EndTime:         to,
		ReservationType: "hourly",
	}
}

func mustCreate(t *testing.T, h *handler.Handler, ctx context.Context, req *rpc.CreateReservationRequest) *rpc.Reservation {
	t.Helper()
	resp, err := h.CreateReservation(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return resp.Reservation
}

func code(err error) codes.Code {
	s, _ := status.FromError(err)
	return s.Code()
}

func violations(err error) map[string]string {
	out := map[string]string{}
	s, ok := status.FromError(err)
	if !ok {
		return out
	}
	for _, d := range s.Details() {
		if br, ok := d.(*errdetails.BadRequest); ok {
			for _, v := range br.GetFieldViolations() {
				out[v.GetField()] = v.GetDescription()
			}
		}
	}
	return out
}

func TestLoginSuccess(t *testing.T) {
	h := setup(t)
	lr, err := h.Login(context.Background(), &rpc.LoginRequest{Email: "ada@test.com", Password: "password123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if lr.UserId != "u1" || lr.Name != "Ada" {
		t.Errorf("unexpected login response: %+v", lr)
	}
	claims, err := auth.ParseToken(lr.Token, secret)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != "u1" {
		t.Errorf("token uid: got %s", claims.UserID)
	}
}

func TestLoginFailures(t *testing.T) {
	h := setup(t)
	tests := []struct {
		name string
		req  *rpc.LoginRequest
		want codes.Code
	}{
		{"missing password", &rpc.LoginRequest{Email: "ada@test.com"}, codes.InvalidArgument},
		{"wrong password", &rpc.LoginRequest{Email: "ada@test.com", Password: "nope"}, codes.Unauthenticated},
		{"unknown user", &rpc.LoginRequest{Email: "who@test.com", Password: "password123"}, codes.Unauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.Login(context.Background(), tt.req)
			if code(err) != tt.want {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestCreateHourly(t *testing.T) {
	h := setup(t)
	d := day(7)
	r := mustCreate(t, h, as("u1"), hourly("room-a", "", d, "09:00", "10:00"))

	if r.OwnerId != "u1" {
		t.Errorf("owner: got %s", r.OwnerId)
	}
	if r.Status != "confirmed" {
		t.Errorf("status: got %s", r.Status)
	}
	if got := r.StartAt.Format("2006-01-02 15:04:05"); got != d+" 09:00:00" {
		t.Errorf("start: got %s", got)
	}
	if got := r.EndAt.Format("2006-01-02 15:04:05"); got != d+" 09:59:59" {
		t.Errorf("end: got %s", got)
	}
}

func TestCreateValidation(t *testing.T) {
	h := setup(t)
	tests := []struct {
		name  string
		req   *rpc.CreateReservationRequest
		field string
	}{
		{"missing type", &rpc.CreateReservationRequest{SpaceId: "room-a", AnchorDate: day(3)}, "reservationType"},
		{"unknown type", &rpc.CreateReservationRequest{SpaceId: "room-a", AnchorDate: day(3), ReservationType: "yearly"}, "reservationType"},
		{"hourly without end", hourly("room-a", "", day(3), "09:00", ""), "endTime"},
		{"hourly end before start", hourly("room-a", "", day(3), "10:00", "09:00"), "endTime"},
		{"bad time format", hourly("room-a", "", day(3), "9:00", "10:00"), "startTime"},
		{"anchor in the past", hourly("room-a", "", day(-1), "09:00", "10:00"), "anchorDate"},
		{"bad date", hourly("room-a", "", "2024-13-40", "09:00", "10:00"), "anchorDate"},
		{"unknown space", hourly("nowhere", "", day(3), "09:00", "10:00"), "spaceId"},
		{"desk in room without desks", hourly("room-a", "d1", day(3), "09:00", "10:00"), "deskId"},
		{"desk unavailable", hourly("open-1", "d3", day(3), "09:00", "10:00"), "deskId"},
		{"half day wrong start", &rpc.CreateReservationRequest{SpaceId: "room-a", AnchorDate: day(3), StartTime: "10:00", ReservationType: "half_day"}, "startTime"},
		{"full day with times", &rpc.CreateReservationRequest{SpaceId: "room-a", AnchorDate: day(3), StartTime: "08:00", ReservationType: "full_day"}, "startTime"},
		{"reason too long", &rpc.CreateReservationRequest{SpaceId: "room-a", AnchorDate: day(3), ReservationType: "full_day", Reason: strings.Repeat("x", 256)}, "reason"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.CreateReservation(as("u1"), tt.req)
			if code(err) != codes.InvalidArgument {
				t.Fatalf("expected InvalidArgument, got %v", err)
			}
			if _, ok := violations(err)[tt.field]; !ok {
				t.Errorf("expected violation on %s, got %v", tt.field, violations(err))
			}
		})
	}
}

func TestCreateCollectsEveryViolation(t *testing.T) {
	h := setup(t)
	_, err := h.CreateReservation(as("u1"), &rpc.CreateReservationRequest{ReservationType: "hourly"})
	if code(err) != codes.InvalidArgument {
		t.Fatalf("expected InvalidArgument, got %v", err)
	}
	got := violations(err)
	for _, f := range []string{"spaceId", "anchorDate", "startTime", "endTime"} {
		if _, ok := got[f]; !ok {
			t.Errorf("missing violation on %s (got %v)", f, got)
		}
	}
}

func TestOverlapConflict(t *testing.T) {
	h := setup(t)
	d := day(5)
	ctx := as("u1")
	mustCreate(t, h, ctx, hourly("room-a", "", d, "09:00", "10:00"))

	_, err := h.CreateReservation(ctx, hourly("room-a", "", d, "09:30", "10:30"))
	if code(err) != codes.AlreadyExists {
		t.Fatalf("expected AlreadyExists, got %v", err)
	}
	dd, _ := time.Parse("2006-01-02", d)
	want := fmt.Sprintf("resource already booked from %s 09:00 to %s 09:59. Please choose another time or resource.",
		dd.Format("02/01/2006"), dd.Format("02/01/2006"))
	if s, _ := status.FromError(err); s.Message() != want {
		t.Errorf("message:\n got %q\nwant %q", s.Message(), want)
	}

	// the first booking ends at 09:59:59, so 10:00 is free
	mustCreate(t, h, ctx, hourly("room-a", "", d, "10:00", "11:00"))
}

func TestDesksAndWholeSpace(t *testing.T) {
	h := setup(t)
	d := day(4)
	ctx := as("u1")

	mustCreate(t, h, ctx, hourly("open-1", "d1", d, "09:00", "10:00"))
	mustCreate(t, h, ctx, hourly("open-1", "d2", d, "09:00", "10:00"))

	// whole-space booking collides with the desk bookings
	_, err := h.CreateReservation(ctx, hourly("open-1", "", d, "09:00", "10:00"))
	if code(err) != codes.AlreadyExists {
		t.Errorf("whole space over desks: expected AlreadyExists, got %v", err)
	}

	// desk requests only look at bookings of the same desk
	mustCreate(t, h, ctx, &rpc.CreateReservationRequest{SpaceId: "open-1", AnchorDate: day(6), ReservationType: "full_day"})
	mustCreate(t, h, ctx, hourly("open-1", "d1", day(6), "15:00", "16:00"))
	_, err = h.CreateReservation(ctx, hourly("open-1", "d1", day(6), "15:30", "16:30"))
	if code(err) != codes.AlreadyExists {
		t.Errorf("same desk twice: expected AlreadyExists, got %v", err)
	}
}

func TestCancelFreesSlot(t *testing.T) {
	h := setup(t)
	ctx := as("u1")
	req := hourly("room-a", "", day(2), "14:00", "15:00")
	r := mustCreate(t, h, ctx, req)

	cr, err := h.CancelReservation(ctx, &rpc.IdRequest{Id: r.Id})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cr.Reservation.Status != "cancelled" {
		t.Errorf("status: got %s", cr.Reservation.Status)
	}
	mustCreate(t, h, ctx, req)
}

func TestUpdateReservation(t *testing.T) {
	h := setup(t)
	ctx := as("u1")
	d := day(8)
	r := mustCreate(t, h, ctx, hourly("room-a", "", d, "09:00", "10:00"))
	other := mustCreate(t, h, ctx, hourly("room-a", "", d, "12:00", "13:00"))

	// overlapping its own old slot is fine
	ur, err := h.UpdateReservation(ctx, &rpc.UpdateReservationRequest{
		Id:      r.Id,
		Request: hourly("room-a", "", d, "09:30", "10:30"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if ur.Reservation.Id != r.Id || ur.Reservation.StartAt.Minute() != 30 {
		t.Errorf("unexpected update result: %+v", ur.Reservation)
	}

	_, err = h.UpdateReservation(ctx, &rpc.UpdateReservationRequest{
		Id:      other.Id,
		Request: hourly("room-a", "", d, "10:00", "11:00"),
	})
	if code(err) != codes.AlreadyExists {
		t.Errorf("expected AlreadyExists, got %v", err)
	}
}

func TestReactivateConflict(t *testing.T) {
	h := setup(t)
	ctx := as("u1")
	req := hourly("room-a", "", day(9), "09:00", "10:00")
	a := mustCreate(t, h, ctx, req)
	if _, err := h.CancelReservation(ctx, &rpc.IdRequest{Id: a.Id}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	mustCreate(t, h, ctx, req)

	_, err := h.SetReservationStatus(ctx, &rpc.SetReservationStatusRequest{Id: a.Id, Status: "confirmed"})
	if code(err) != codes.AlreadyExists {
		t.Errorf("expected AlreadyExists, got %v", err)
	}

	_, err = h.SetReservationStatus(ctx, &rpc.SetReservationStatusRequest{Id: a.Id, Status: "archived"})
	if code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument for unknown status, got %v", err)
	}
}

func TestOwnership(t *testing.T) {
	h := setup(t)
	r := mustCreate(t, h, as("u1"), hourly("room-a", "", day(3), "09:00", "10:00"))

	_, err := h.GetReservation(as("u2"), &rpc.IdRequest{Id: r.Id})
	if code(err) != codes.NotFound {
		t.Errorf("expected NotFound (IDOR), got %v", err)
	}
	_, err = h.CancelReservation(as("u2"), &rpc.IdRequest{Id: r.Id})
	if code(err) != codes.NotFound {
		t.Errorf("expected NotFound on foreign cancel, got %v", err)
	}

	req := hourly("room-a", "", day(3), "11:00", "12:00")
	req.OwnerId = "u1"
	_, err = h.CreateReservation(as("u2"), req)
	if code(err) != codes.PermissionDenied {
		t.Errorf("expected PermissionDenied, got %v", err)
	}

	if _, err := h.GetReservation(as("u1"), &rpc.IdRequest{Id: r.Id}); err != nil {
		t.Errorf("owner get: %v", err)
	}
}

func TestListReservations(t *testing.T) {
	h := setup(t)
	ctx := as("u1")
	d := day(10)
	mustCreate(t, h, ctx, hourly("room-a", "", d, "13:00", "14:00"))
	mustCreate(t, h, ctx, hourly("room-a", "", d, "09:00", "10:00"))
	mustCreate(t, h, ctx, hourly("open-1", "d1", d, "09:00", "10:00"))

	lr, err := h.ListReservations(ctx, &rpc.ListReservationsRequest{SpaceId: "room-a"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(lr.Reservations) != 2 {
		t.Fatalf("expected 2 reservations, got %d", len(lr.Reservations))
	}
	if !lr.Reservations[0].StartAt.Before(lr.Reservations[1].StartAt) {
		t.Errorf("expected reservations ordered by start")
	}
}

func TestGetAvailability(t *testing.T) {
	h := setup(t)
	ctx := as("u1")
	d := day(12)

	ar, err := h.GetAvailability(ctx, &rpc.GetAvailabilityRequest{SpaceId: "room-a", Date: d})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if ar.Status != "free" || ar.OccupiedPercent != 0 {
		t.Errorf("expected free, got %+v", ar)
	}

	mustCreate(t, h, ctx, &rpc.CreateReservationRequest{SpaceId: "room-a", AnchorDate: d, StartTime: "08:00", ReservationType: "half_day"})
	ar, err = h.GetAvailability(ctx, &rpc.GetAvailabilityRequest{SpaceId: "room-a", Date: d})
	if err != nil {
		t.Fatalf("availability: %v", err)
	}
	if ar.Status != "partial" || ar.OccupiedPercent != 25 || ar.Reservations != 1 {
		t.Errorf("expected partial 25%%, got %+v", ar)
	}

	_, err = h.GetAvailability(ctx, &rpc.GetAvailabilityRequest{SpaceId: "nowhere", Date: d})
	if code(err) != codes.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
	_, err = h.GetAvailability(ctx, &rpc.GetAvailabilityRequest{SpaceId: "room-a", Date: "tomorrow"})
	if code(err) != codes.InvalidArgument {
		t.Errorf("expected InvalidArgument, got %v", err)
	}
}

func concurrentBooking(t *testing.T, h *handler.Handler, ctx context.Context, req *rpc.CreateReservationRequest) {
	t.Helper()
	const n = 10
	var wg sync.WaitGroup
	results := make(chan error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.CreateReservation(ctx, req)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	conflicts := 0
	for err := range results {
		if err == nil {
			successes++
		} else if code(err) == codes.AlreadyExists {
			conflicts++
		} else {
			t.Errorf("unexpected error: %v", err)
		}
	}

	if successes != 1 {
		t.Errorf("expected exactly 1 success, got %d", successes)
	}
	if conflicts != n-1 {
		t.Errorf("expected %d conflicts, got %d", n-1, conflicts)
	}
	t.Logf("concurrent: %d success, %d conflicts (out of %d)", successes, conflicts, n)
}

func TestConcurrentBooking(t *testing.T) {
	h := setup(t)
	concurrentBooking(t, h, as("u1"), hourly("room-a", "", day(20), "09:00", "11:00"))
}

func setupPG(t *testing.T) (*handler.Handler, *store.Store) {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(pool.Close)
	st := store.New(pool)
	if err := st.Migrate(context.Background(), "../../db/migrations/001_init.sql"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return build(st), st
}

func TestConcurrentBookingPostgres(t *testing.T) {
	h, st := setupPG(t)
	ctx := context.Background()

	u := &model.User{ID: uuid.NewString(), Email: "pg-" + uuid.NewString()[:8] + "@test.com", PasswordHash: "x", Name: "PG"}
	if err := st.CreateUser(ctx, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	sp := &model.Space{ID: "space-" + uuid.NewString()[:8], Name: "PG room", Kind: "meeting_room", Capacity: 4}
	if err := st.CreateSpace(ctx, sp); err != nil {
		t.Fatalf("create space: %v", err)
	}

	concurrentBooking(t, h, as(u.ID), hourly(sp.ID, "", day(30), "09:00", "11:00"))
}
