package booking

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"workspace-reservations/internal/model"
)

var (
	ErrUnknownType   = errors.New("unrecognized reservation type")
	ErrNotFound      = errors.New("not found")
	ErrUnknownStatus = errors.New("unrecognized reservation status")

	// ErrOverlap is returned by a Tx when the store's own exclusion
	// constraint rejects a write.
	ErrOverlap = errors.New("overlapping reservation")
)

// FieldErrors maps a request field to a human readable message. Validation
// returns every violation at once.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + fe[k]
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) add(field, msg string) {
	if _, ok := fe[field]; !ok {
		fe[field] = msg
	}
}

const displayLayout = "02/01/2006 15:04"

// ConflictError means the requested interval is taken on the resource.
type ConflictError struct {
	Existing model.Reservation
}

func (e *ConflictError) Error() string {
	return e.Message(e.Existing.StartAt.Location())
}

// Message renders the conflict for the person who made the request.
func (e *ConflictError) Message(loc *time.Location) string {
	return fmt.Sprintf("resource already booked from %s to %s. Please choose another time or resource.",
		e.Existing.StartAt.In(loc).Format(displayLayout),
		e.Existing.EndAt.In(loc).Format(displayLayout))
}

// StoreError wraps an infrastructure failure. The operation can be retried
// and must never be reported as a conflict.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *StoreError) Unwrap() error { return e.Err }
func (e *StoreError) Temporary() bool { return true }
