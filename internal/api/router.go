package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/actor"
	"github.com/hovportalen/farrier-booking/internal/admission"
	"github.com/hovportalen/farrier-booking/internal/availability"
	"github.com/hovportalen/farrier-booking/internal/booking"
	"github.com/hovportalen/farrier-booking/internal/farrier"
)

// AvailabilityService is the read side: footprints and slots.
type AvailabilityService interface {
	ParseDate(s string) (time.Time, error)
	Available(ctx context.Context, farrierID uuid.UUID, day time.Time) (*availability.AreaAvailability, error)
	AreaAvailability(ctx context.Context, day time.Time) ([]availability.FarrierFootprint, error)
	FarriersInArea(ctx context.Context, area string, day time.Time) ([]availability.FarrierFootprint, error)
	Week(ctx context.Context, farrierID uuid.UUID, from time.Time) ([]availability.DaySummary, error)
	Slots(ctx context.Context, farrierID uuid.UUID, day time.Time, durationMin, granularityMin int) ([]availability.Slot, error)
}

// BookingService is the write side and booking lookups.
type BookingService interface {
	Admit(ctx context.Context, who actor.Actor, req admission.AdmitRequest) (*booking.Booking, error)
	Transition(ctx context.Context, id uuid.UUID, action booking.Action, who actor.Actor, reason *string) (*booking.Booking, error)
	Get(ctx context.Context, id uuid.UUID, who actor.Actor) (*booking.Booking, error)
	List(ctx context.Context, f booking.Filter, who actor.Actor) ([]booking.Booking, error)
}

// ScheduleService edits weekly windows, work areas and travel radius.
type ScheduleService interface {
	ListWindows(ctx context.Context, farrierID uuid.UUID) ([]farrier.WeeklyWindow, error)
	AddWindow(ctx context.Context, who actor.Actor, farrierID uuid.UUID, in farrier.NewWindow) (*farrier.WeeklyWindow, error)
	DeleteWindow(ctx context.Context, who actor.Actor, farrierID, windowID uuid.UUID) error
	ListAreas(ctx context.Context, farrierID uuid.UUID) ([]farrier.WorkArea, error)
	AddArea(ctx context.Context, who actor.Actor, farrierID uuid.UUID, in farrier.NewArea) (*farrier.WorkArea, error)
	DeleteArea(ctx context.Context, who actor.Actor, farrierID, areaID uuid.UUID) error
	SetTravelRadius(ctx context.Context, who actor.Actor, farrierID uuid.UUID, km float64) (*farrier.Farrier, error)
}

type RouterConfig struct {
	Availability AvailabilityService
	Bookings     BookingService
	Schedule     ScheduleService
	Health       *HealthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	// Availability reads are public and advisory.
	r.Get("/availability/areas", areaAvailabilityHandler(cfg.Availability))
	r.Get("/availability/farriers", farriersInAreaHandler(cfg.Availability))

	r.Route("/farriers/{id}", func(r chi.Router) {
		r.Get("/availability", farrierAvailabilityHandler(cfg.Availability))
		r.Get("/week", farrierWeekHandler(cfg.Availability))
		r.Get("/slots", slotsHandler(cfg.Availability))
		r.Get("/windows", listWindowsHandler(cfg.Schedule))
		r.Get("/areas", listAreasHandler(cfg.Schedule))

		r.Group(func(r chi.Router) {
			r.Use(ActorMiddleware)
			r.Post("/windows", addWindowHandler(cfg.Schedule))
			r.Delete("/windows/{windowID}", deleteWindowHandler(cfg.Schedule))
			r.Post("/areas", addAreaHandler(cfg.Schedule))
			r.Delete("/areas/{areaID}", deleteAreaHandler(cfg.Schedule))
			r.Put("/travel-radius", travelRadiusHandler(cfg.Schedule))
		})
	})

	r.Route("/bookings", func(r chi.Router) {
		r.Use(ActorMiddleware)
		r.Post("/", admitBookingHandler(cfg.Bookings))
		r.Get("/", listBookingsHandler(cfg.Bookings))
		r.Get("/{id}", getBookingHandler(cfg.Bookings))
		r.Post("/{id}/transitions", transitionBookingHandler(cfg.Bookings))
	})

	return r
}
