package booking

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ActiveStatuses hold time on a farrier's calendar and anchor the farrier
// to an area for the day.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed, StatusInProgress}

func (s Status) Active() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusInProgress:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

func (s Status) Valid() bool {
	return s.Active() || s.Terminal()
}

type Booking struct {
	ID                 uuid.UUID
	FarrierID          uuid.UUID
	HorseOwnerID       uuid.UUID
	HorseID            uuid.UUID
	Service            string
	City               string
	Address            *string
	ScheduledStart     time.Time
	DurationMinutes    int
	BusyUntil          time.Time
	TravelFee          float64
	Status             Status
	NotesFromOwner     *string
	CancelledBy        *string
	CancellationReason *string
	CancelledAt        *time.Time
	CompletedAt        *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// End is the end of the service itself, without any travel buffer.
func (b Booking) End() time.Time {
	return b.ScheduledStart.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// StatusChange carries the audit fields written alongside a transition.
type StatusChange struct {
	From               Status
	To                 Status
	CancelledBy        *string
	CancellationReason *string
	At                 time.Time
}

type Filter struct {
	FarrierID *uuid.UUID
	OwnerID   *uuid.UUID
	Status    *Status
	Limit     int
	Offset    int
}

type EventLog struct {
	ID        int64
	EventType string
	BookingID *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
