package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/availability"
	"github.com/hovportalen/farrier-booking/internal/booking"
	"github.com/hovportalen/farrier-booking/internal/farrier"
)

const dateLayout = "2006-01-02"

type AdmitBookingRequest struct {
	FarrierID       string  `json:"farrier_id"`
	HorseID         string  `json:"horse_id"`
	OwnerID         string  `json:"owner_id"`
	Start           string  `json:"start"`
	DurationMinutes int     `json:"duration_minutes"`
	Service         string  `json:"service"`
	City            string  `json:"city"`
	Address         *string `json:"address,omitempty"`
	Notes           *string `json:"notes,omitempty"`
}

type TransitionRequest struct {
	Action string  `json:"action"`
	Reason *string `json:"reason,omitempty"`
}

type NewWindowRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	Start     string `json:"start"` // HH:MM
	End       string `json:"end"`   // HH:MM, 24:00 allowed
}

type NewAreaRequest struct {
	City             string   `json:"city"`
	PostalCodePrefix *string  `json:"postal_code_prefix,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`
	TravelFee        float64  `json:"travel_fee"`
}

type TravelRadiusRequest struct {
	TravelRadiusKm float64 `json:"travel_radius_km"`
}

type BookingResponse struct {
	ID                 uuid.UUID  `json:"id"`
	FarrierID          uuid.UUID  `json:"farrier_id"`
	HorseOwnerID       uuid.UUID  `json:"horse_owner_id"`
	HorseID            uuid.UUID  `json:"horse_id"`
	Service            string     `json:"service"`
	City               string     `json:"city,omitempty"`
	Address            *string    `json:"address,omitempty"`
	ScheduledStart     time.Time  `json:"scheduled_start"`
	DurationMinutes    int        `json:"duration_minutes"`
	TravelFee          float64    `json:"travel_fee"`
	Status             string     `json:"status"`
	NotesFromOwner     *string    `json:"notes_from_owner,omitempty"`
	CancelledBy        *string    `json:"cancelled_by,omitempty"`
	CancellationReason *string    `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type ListBookingsResponse struct {
	Bookings []BookingResponse `json:"bookings"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

type SlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type SlotsResponse struct {
	FarrierID       uuid.UUID      `json:"farrier_id"`
	Date            string         `json:"date"`
	DurationMinutes int            `json:"duration_minutes"`
	Slots           []SlotResponse `json:"slots"`
}

type AreaOptionResponse struct {
	Area       string   `json:"area"`
	DistanceKm *float64 `json:"distance_km,omitempty"`
	TravelFee  float64  `json:"travel_fee"`
}

type AvailabilityResponse struct {
	FarrierID      uuid.UUID            `json:"farrier_id"`
	Date           string               `json:"date"`
	TravelRadiusKm float64              `json:"travel_radius_km"`
	BookedAreas    []string             `json:"booked_areas"`
	AvailableAreas []AreaOptionResponse `json:"available_areas"`
}

type BookingSummaryResponse struct {
	ID              uuid.UUID `json:"id"`
	Start           time.Time `json:"start"`
	DurationMinutes int       `json:"duration_minutes"`
	Service         string    `json:"service"`
	Area            string    `json:"area,omitempty"`
	Status          string    `json:"status"`
}

type FootprintResponse struct {
	AvailabilityResponse
	BookingsSummary []BookingSummaryResponse `json:"bookings_summary"`
}

type DaySummaryResponse struct {
	Date           string   `json:"date"`
	Weekday        int      `json:"weekday"`
	BookedAreas    []string `json:"booked_areas"`
	AvailableAreas []string `json:"available_areas"`
	BookingsCount  int      `json:"bookings_count"`
}

type WindowResponse struct {
	ID        uuid.UUID `json:"id"`
	DayOfWeek int       `json:"day_of_week"`
	Start     string    `json:"start"`
	End       string    `json:"end"`
}

type AreaResponse struct {
	ID               uuid.UUID `json:"id"`
	City             string    `json:"city"`
	PostalCodePrefix *string   `json:"postal_code_prefix,omitempty"`
	Latitude         *float64  `json:"latitude,omitempty"`
	Longitude        *float64  `json:"longitude,omitempty"`
	TravelFee        float64   `json:"travel_fee"`
}

type FarrierResponse struct {
	ID             uuid.UUID `json:"id"`
	BusinessName   string    `json:"business_name"`
	TravelRadiusKm float64   `json:"travel_radius_km"`
	IsAvailable    bool      `json:"is_available"`
}

// ErrorResponse carries the error kind. Retryable tells the caller to refetch
// slots and submit again.
type ErrorResponse struct {
	Error     string `json:"error"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

func toBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		FarrierID:          b.FarrierID,
		HorseOwnerID:       b.HorseOwnerID,
		HorseID:            b.HorseID,
		Service:            b.Service,
		City:               b.City,
		Address:            b.Address,
		ScheduledStart:     b.ScheduledStart,
		DurationMinutes:    b.DurationMinutes,
		TravelFee:          b.TravelFee,
		Status:             string(b.Status),
		NotesFromOwner:     b.NotesFromOwner,
		CancelledBy:        b.CancelledBy,
		CancellationReason: b.CancellationReason,
		CancelledAt:        b.CancelledAt,
		CompletedAt:        b.CompletedAt,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func toAvailabilityResponse(a *availability.AreaAvailability) AvailabilityResponse {
	opts := make([]AreaOptionResponse, 0, len(a.AvailableAreas))
	for _, o := range a.AvailableAreas {
		opts = append(opts, AreaOptionResponse{Area: o.Area, DistanceKm: o.DistanceKm, TravelFee: o.TravelFee})
	}
	booked := a.BookedAreas
	if booked == nil {
		booked = []string{}
	}
	return AvailabilityResponse{
		FarrierID:      a.FarrierID,
		Date:           a.Date.Format(dateLayout),
		TravelRadiusKm: a.RadiusKm,
		BookedAreas:    booked,
		AvailableAreas: opts,
	}
}

func toFootprintResponses(fps []availability.FarrierFootprint) []FootprintResponse {
	out := make([]FootprintResponse, 0, len(fps))
	for i := range fps {
		fp := fps[i]
		summary := make([]BookingSummaryResponse, 0, len(fp.Bookings))
		for _, b := range fp.Bookings {
			summary = append(summary, BookingSummaryResponse{
				ID:              b.ID,
				Start:           b.Start,
				DurationMinutes: b.DurationMinutes,
				Service:         b.Service,
				Area:            b.Area,
				Status:          string(b.Status),
			})
		}
		out = append(out, FootprintResponse{
			AvailabilityResponse: toAvailabilityResponse(&fp.AreaAvailability),
			BookingsSummary:      summary,
		})
	}
	return out
}

func toWindowResponse(w farrier.WeeklyWindow) WindowResponse {
	return WindowResponse{
		ID:        w.ID,
		DayOfWeek: w.DayOfWeek,
		Start:     farrier.FormatMinute(w.StartMinute),
		End:       farrier.FormatMinute(w.EndMinute),
	}
}

func toAreaResponse(a farrier.WorkArea) AreaResponse {
	return AreaResponse{
		ID:               a.ID,
		City:             a.City,
		PostalCodePrefix: a.PostalCodePrefix,
		Latitude:         a.Latitude,
		Longitude:        a.Longitude,
		TravelFee:        a.TravelFee,
	}
}
