package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound = errors.New("booking not found")
	// ErrOverlap is returned when the ledger itself refuses an overlapping
	// active booking for the same farrier.
	ErrOverlap = errors.New("booking overlaps an active booking")
)

// Reader is the read side of the booking ledger.
type Reader interface {
	GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error)

	// ActiveBookings returns the farrier's active bookings whose busy
	// interval intersects [from, to), ordered by start.
	ActiveBookings(ctx context.Context, farrierID uuid.UUID, from, to time.Time) ([]Booking, error)

	// ActiveBookingsStarting returns active bookings of all farriers starting
	// in [from, to), ordered by farrier and start.
	ActiveBookingsStarting(ctx context.Context, from, to time.Time) ([]Booking, error)

	ListBookings(ctx context.Context, f Filter) ([]Booking, error)
}

// Repository contains all ledger interactions needed by admission.
type Repository interface {
	Reader

	// GetBookingForUpdate locks the row until the surrounding transaction ends.
	GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error)
	InsertBooking(ctx context.Context, b Booking) (*Booking, error)
	// UpdateBookingStatus applies c only if the booking is still in c.From.
	UpdateBookingStatus(ctx context.Context, id uuid.UUID, c StatusChange) (*Booking, error)

	InsertEvent(ctx context.Context, ev EventLog) error

	// RunInTx runs fn with a Repository bound to one transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error
}
