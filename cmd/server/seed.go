package main

import (
	"fmt"
	"os"

	"workspace-reservations/internal/auth"
	"workspace-reservations/internal/model"
	"workspace-reservations/internal/store/memstore"
)

// seed fills the in-memory store with one user, a meeting room and an open
// space with desks so the memory driver is usable out of the box.
func seed(ms *memstore.Store) error {
	pw := os.Getenv("SEED_PASSWORD")
	if pw == "" {
		pw = "changeme123"
	}
	hash, err := auth.HashPassword(pw)
	if err != nil {
		return err
	}
	ms.AddUser(model.User{ID: "user-1", Email: "demo@example.com", PasswordHash: hash, Name: "Demo"})

	ms.AddSpace(model.Space{ID: "room-a", Name: "Meeting room A", Kind: "meeting_room", Capacity: 8})
	ms.AddSpace(model.Space{ID: "open-1", Name: "Open space 1", Kind: "open_space", Capacity: 12, DeskBooking: true})
	for i := 1; i <= 3; i++ {
		ms.AddDesk(model.Desk{
			ID:        fmt.Sprintf("open-1-desk-%d", i),
			SpaceID:   "open-1",
			Name:      fmt.Sprintf("Desk %d", i),
			Available: i != 3,
		})
	}
	return nil
}
