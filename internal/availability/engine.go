// Package availability derives, for a farrier and a calendar date, where the
// farrier can be booked and which start times are free. Everything here is
// recomputed from committed state on each call and never cached.
package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/apperr"
	"github.com/hovportalen/farrier-booking/internal/booking"
	"github.com/hovportalen/farrier-booking/internal/farrier"
	"github.com/hovportalen/farrier-booking/internal/geo"
)

// BookingReader is the part of the booking ledger availability reads.
type BookingReader interface {
	ActiveBookings(ctx context.Context, farrierID uuid.UUID, from, to time.Time) ([]booking.Booking, error)
	ActiveBookingsStarting(ctx context.Context, from, to time.Time) ([]booking.Booking, error)
}

type Settings struct {
	Location        *time.Location
	Granularity     int           // minutes, default step between starts
	Buffer          time.Duration // appended to every busy interval
	DefaultRadiusKm float64
	Gazetteer       map[string]geo.Coordinates
	Concurrency     int // farriers evaluated in parallel by AreaAvailability
}

type Engine struct {
	farriers farrier.Store
	bookings BookingReader
	settings Settings
}

func NewEngine(farriers farrier.Store, bookings BookingReader, settings Settings) *Engine {
	if settings.Location == nil {
		settings.Location = time.UTC
	}
	if settings.Granularity <= 0 {
		settings.Granularity = 30
	}
	if settings.DefaultRadiusKm <= 0 {
		settings.DefaultRadiusKm = 15
	}
	if settings.Concurrency <= 0 {
		settings.Concurrency = 8
	}
	return &Engine{farriers: farriers, bookings: bookings, settings: settings}
}

// WithBookings returns a copy of e reading bookings from r, used to evaluate
// slots inside an admission transaction.
func (e *Engine) WithBookings(r BookingReader) *Engine {
	cp := *e
	cp.bookings = r
	return &cp
}

func (e *Engine) Location() *time.Location { return e.settings.Location }

// Buffer is the travel margin appended to every busy interval.
func (e *Engine) Buffer() time.Duration { return e.settings.Buffer }

// Day returns local midnight of the calendar date containing t.
func (e *Engine) Day(t time.Time) time.Time {
	t = t.In(e.settings.Location)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.settings.Location)
}

// ParseDate parses YYYY-MM-DD as a local calendar date.
func (e *Engine) ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation("2006-01-02", s, e.settings.Location)
	if err != nil {
		return time.Time{}, apperr.Validation("date must be YYYY-MM-DD")
	}
	return d, nil
}

// dayBounds returns [midnight, next midnight) of day in local time.
func (e *Engine) dayBounds(day time.Time) (time.Time, time.Time) {
	start := e.Day(day)
	return start, time.Date(start.Year(), start.Month(), start.Day()+1, 0, 0, 0, 0, e.settings.Location)
}

func (e *Engine) radius(f *farrier.Farrier) float64 {
	if f.TravelRadiusKm > 0 {
		return f.TravelRadiusKm
	}
	return e.settings.DefaultRadiusKm
}

func (e *Engine) loadFarrier(ctx context.Context, id uuid.UUID) (*farrier.Farrier, error) {
	f, err := e.farriers.GetFarrier(ctx, id)
	if err != nil {
		if errors.Is(err, farrier.ErrFarrierNotFound) {
			return nil, apperr.NotFound("farrier %s not found", id)
		}
		return nil, apperr.Internal("load farrier", err)
	}
	return f, nil
}
