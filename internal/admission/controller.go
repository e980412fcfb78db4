// Package admission is the only writer of bookings. It re-derives the
// farrier's free time inside a per farrier/day lock and a ledger
// transaction before inserting, and owns the booking state machine.
package admission

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/actor"
	"github.com/hovportalen/farrier-booking/internal/apperr"
	"github.com/hovportalen/farrier-booking/internal/availability"
	"github.com/hovportalen/farrier-booking/internal/booking"
	"github.com/hovportalen/farrier-booking/internal/events"
	"github.com/hovportalen/farrier-booking/internal/farrier"
	"github.com/hovportalen/farrier-booking/internal/geo"
	redisclient "github.com/hovportalen/farrier-booking/internal/redis"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

type AdmitRequest struct {
	FarrierID       uuid.UUID `validate:"required"`
	HorseID         uuid.UUID `validate:"required"`
	OwnerID         uuid.UUID `validate:"required"`
	Start           time.Time `validate:"required"`
	DurationMinutes int       `validate:"min=1,max=1440"`
	Service         string    `validate:"required,max=100"`
	City            string    `validate:"max=100"`
	Address         *string   `validate:"omitempty,max=255"`
	Notes           *string   `validate:"omitempty,max=1000"`
}

type Options struct {
	// CancelAfterStart allows cancelling a booking whose start has passed.
	CancelAfterStart bool
	// Now defaults to time.Now.
	Now func() time.Time
}

type Controller struct {
	farriers  farrier.Store
	bookings  booking.Repository
	engine    *availability.Engine
	locker    redisclient.Locker
	publisher events.Publisher
	validate  *validator.Validate
	opts      Options
}

// NewController wires the admission path. publisher may be nil.
func NewController(
	farriers farrier.Store,
	bookings booking.Repository,
	engine *availability.Engine,
	locker redisclient.Locker,
	publisher events.Publisher,
	opts Options,
) *Controller {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Controller{
		farriers:  farriers,
		bookings:  bookings,
		engine:    engine,
		locker:    locker,
		publisher: publisher,
		validate:  validator.New(),
		opts:      opts,
	}
}

// Admit books [Start, Start+DurationMinutes) for the horse if that interval
// is still free on the farrier's calendar. The booking starts as pending.
func (c *Controller) Admit(ctx context.Context, who actor.Actor, req AdmitRequest) (*booking.Booking, error) {
	req.Service = strings.TrimSpace(req.Service)
	req.City = strings.TrimSpace(req.City)

	if err := c.validate.Struct(req); err != nil {
		return nil, apperr.FromValidator(err)
	}
	if !req.Start.Truncate(time.Minute).Equal(req.Start) {
		return nil, apperr.Validation("start must be on a whole minute")
	}
	if !req.Start.After(c.opts.Now()) {
		return nil, apperr.Validation("start must be in the future")
	}
	if !who.IsOwner(req.OwnerID) && !who.IsAdmin() {
		return nil, apperr.Forbidden("bookings can only be made by the horse owner")
	}

	f, err := c.farriers.GetFarrier(ctx, req.FarrierID)
	if err != nil {
		if errors.Is(err, farrier.ErrFarrierNotFound) {
			return nil, apperr.NotFound("farrier %s not found", req.FarrierID)
		}
		return nil, apperr.Internal("load farrier", err)
	}
	if !f.IsAvailable {
		return nil, apperr.NotFound("farrier %s is not taking bookings", req.FarrierID)
	}

	horse, err := c.farriers.GetHorse(ctx, req.HorseID)
	if err != nil {
		if errors.Is(err, farrier.ErrHorseNotFound) {
			return nil, apperr.NotFound("horse %s not found", req.HorseID)
		}
		return nil, apperr.Internal("load horse", err)
	}
	if horse.OwnerID != req.OwnerID {
		return nil, apperr.NotFound("horse %s not found", req.HorseID)
	}

	city, fee, err := c.resolveArea(ctx, f.ID, req.City)
	if err != nil {
		return nil, err
	}

	duration := time.Duration(req.DurationMinutes) * time.Minute
	day := c.engine.Day(req.Start)

	var created *booking.Booking

	err = c.locker.WithDayLock(ctx, f.ID, day, func(lockCtx context.Context) error {
		return c.bookings.RunInTx(lockCtx, func(txCtx context.Context, tx booking.Repository) error {
			plan, err := c.engine.WithBookings(tx).Plan(txCtx, f.ID, day)
			if err != nil {
				return err
			}

			if !plan.Fits(req.Start, duration) {
				if plan.FitsWindow(req.Start, duration) {
					return apperr.Conflict("requested time has just been booked")
				}
				return apperr.SlotUnavailable("requested time is not within the farrier's free time")
			}

			b, err := tx.InsertBooking(txCtx, booking.Booking{
				FarrierID:       f.ID,
				HorseOwnerID:    req.OwnerID,
				HorseID:         req.HorseID,
				Service:         req.Service,
				City:            city,
				Address:         req.Address,
				ScheduledStart:  req.Start,
				DurationMinutes: req.DurationMinutes,
				BusyUntil:       req.Start.Add(duration + c.engine.Buffer()),
				TravelFee:       fee,
				Status:          booking.StatusPending,
				NotesFromOwner:  req.Notes,
			})
			if err != nil {
				if errors.Is(err, booking.ErrOverlap) {
					return apperr.Conflict("requested time overlaps another booking")
				}
				return apperr.Internal("insert booking", err)
			}

			if err := c.logEvent(txCtx, tx, b, booking.EventBookingAdmitted, who, map[string]any{
				"scheduled_start":  b.ScheduledStart,
				"duration_minutes": b.DurationMinutes,
				"city":             b.City,
			}); err != nil {
				return err
			}

			created = b
			return nil
		})
	})
	if err != nil {
		return nil, lockError(err)
	}

	log.Printf("booking admitted booking_id=%s farrier_id=%s start=%s duration=%d",
		created.ID, created.FarrierID, created.ScheduledStart.Format(time.RFC3339), created.DurationMinutes)
	c.publish(ctx, booking.EventBookingAdmitted, created, who)

	return created, nil
}

// resolveArea matches city against the farrier's work areas. A farrier with
// no declared areas accepts any city.
func (c *Controller) resolveArea(ctx context.Context, farrierID uuid.UUID, city string) (string, float64, error) {
	if city == "" {
		return "", 0, nil
	}

	areas, err := c.farriers.ListWorkAreas(ctx, farrierID)
	if err != nil {
		return "", 0, apperr.Internal("load work areas", err)
	}
	if len(areas) == 0 {
		return city, 0, nil
	}

	for _, a := range areas {
		if geo.Key(a.City) == geo.Key(city) {
			return a.City, a.TravelFee, nil
		}
	}
	return "", 0, apperr.Validation("farrier does not work in %s", city)
}

// Transition applies action to the booking on behalf of who.
func (c *Controller) Transition(ctx context.Context, id uuid.UUID, action booking.Action, who actor.Actor, reason *string) (*booking.Booking, error) {
	if !action.Valid() {
		return nil, apperr.Validation("unknown action %q", action)
	}
	if reason != nil && len(*reason) > 500 {
		return nil, apperr.Validation("reason must be at most 500 characters")
	}

	current, err := c.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, bookingError("load booking", err)
	}

	party := partyOf(who, current)
	if party == 0 || !action.AllowedFor(party) {
		return nil, apperr.Forbidden("%s may not %s this booking", who.Role, action)
	}

	var updated *booking.Booking

	err = c.locker.WithDayLock(ctx, current.FarrierID, c.engine.Day(current.ScheduledStart), func(lockCtx context.Context) error {
		return c.bookings.RunInTx(lockCtx, func(txCtx context.Context, tx booking.Repository) error {
			b, err := tx.GetBookingForUpdate(txCtx, id)
			if err != nil {
				return bookingError("lock booking", err)
			}

			next, ok := booking.Next(b.Status, action)
			if !ok {
				return apperr.State("cannot %s a %s booking", action, b.Status)
			}

			now := c.opts.Now()
			if action == booking.ActionCancel && !c.opts.CancelAfterStart && !now.Before(b.ScheduledStart) {
				return apperr.State("booking has already started and can no longer be cancelled")
			}

			change := booking.StatusChange{From: b.Status, To: next, At: now}
			if next == booking.StatusCancelled {
				by := partyName(party)
				change.CancelledBy = &by
				change.CancellationReason = reason
			}

			u, err := tx.UpdateBookingStatus(txCtx, id, change)
			if err != nil {
				if errors.Is(err, booking.ErrBookingNotFound) {
					return apperr.State("booking changed status concurrently")
				}
				return apperr.Internal("update booking status", err)
			}

			payload := map[string]any{"from": b.Status, "to": next}
			if reason != nil {
				payload["reason"] = *reason
			}
			if err := c.logEvent(txCtx, tx, u, action.EventType(), who, payload); err != nil {
				return err
			}

			updated = u
			return nil
		})
	})
	if err != nil {
		return nil, lockError(err)
	}

	log.Printf("booking transitioned booking_id=%s action=%s status=%s actor=%s", updated.ID, action, updated.Status, who)
	c.publish(ctx, action.EventType(), updated, who)

	return updated, nil
}

// Get returns a booking visible to who.
func (c *Controller) Get(ctx context.Context, id uuid.UUID, who actor.Actor) (*booking.Booking, error) {
	b, err := c.bookings.GetBooking(ctx, id)
	if err != nil {
		return nil, bookingError("load booking", err)
	}
	if partyOf(who, b) == 0 && !who.IsAdmin() {
		return nil, apperr.Forbidden("booking belongs to another farrier or owner")
	}
	return b, nil
}

// List returns bookings matching f, narrowed to who's own bookings unless who
// is an admin.
func (c *Controller) List(ctx context.Context, f booking.Filter, who actor.Actor) ([]booking.Booking, error) {
	if f.Status != nil && !f.Status.Valid() {
		return nil, apperr.Validation("unknown status %q", *f.Status)
	}

	switch who.Role {
	case actor.RoleOwner:
		if f.OwnerID != nil && *f.OwnerID != who.ID {
			return nil, apperr.Forbidden("owners can only list their own bookings")
		}
		id := who.ID
		f.OwnerID = &id
	case actor.RoleFarrier:
		if f.FarrierID != nil && *f.FarrierID != who.ID {
			return nil, apperr.Forbidden("farriers can only list their own bookings")
		}
		id := who.ID
		f.FarrierID = &id
	case actor.RoleAdmin:
	default:
		return nil, apperr.Forbidden("unknown actor")
	}

	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	if f.Limit > maxListLimit {
		f.Limit = maxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	out, err := c.bookings.ListBookings(ctx, f)
	if err != nil {
		return nil, apperr.Internal("list bookings", err)
	}
	return out, nil
}

func partyOf(who actor.Actor, b *booking.Booking) booking.Party {
	var p booking.Party
	if who.IsFarrier(b.FarrierID) {
		p |= booking.PartyFarrier
	}
	if who.IsOwner(b.HorseOwnerID) {
		p |= booking.PartyOwner
	}
	return p
}

func partyName(p booking.Party) string {
	if p&booking.PartyFarrier != 0 {
		return string(actor.RoleFarrier)
	}
	return string(actor.RoleOwner)
}

func bookingError(op string, err error) error {
	if errors.Is(err, booking.ErrBookingNotFound) {
		return apperr.NotFound("booking not found")
	}
	return apperr.Internal(op, err)
}

// lockError maps failures from the locked section. Anything that is not
// already an *apperr.Error is internal.
func lockError(err error) error {
	switch {
	case errors.Is(err, redisclient.ErrLockNotAcquired):
		return apperr.Conflict("another booking for this farrier and day is in progress")
	case errors.Is(err, booking.ErrOverlap):
		return apperr.Conflict("requested time overlaps another booking")
	case errors.Is(err, context.DeadlineExceeded):
		return apperr.Conflict("timed out waiting for the farrier's calendar")
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Internal("booking transaction", err)
}

func (c *Controller) logEvent(ctx context.Context, tx booking.Repository, b *booking.Booking, eventType string, who actor.Actor, payload map[string]any) error {
	payload["actor"] = who.String()
	payload["status"] = b.Status

	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	id := b.ID
	if err := tx.InsertEvent(ctx, booking.EventLog{
		EventType: eventType,
		BookingID: &id,
		Payload:   data,
		CreatedAt: c.opts.Now(),
	}); err != nil {
		return apperr.Internal("insert event log", err)
	}
	return nil
}

func (c *Controller) publish(ctx context.Context, eventType string, b *booking.Booking, who actor.Actor) {
	if c.publisher == nil {
		return
	}
	err := c.publisher.Publish(ctx, events.Event{
		Type:       eventType,
		BookingID:  b.ID,
		FarrierID:  b.FarrierID,
		Status:     string(b.Status),
		Actor:      who.String(),
		Start:      b.ScheduledStart,
		OccurredAt: c.opts.Now(),
	})
	if err != nil {
		log.Printf("failed to publish %s for booking %s: %v", eventType, b.ID, err)
	}
}
