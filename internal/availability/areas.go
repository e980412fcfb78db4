package availability

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hovportalen/farrier-booking/internal/apperr"
	"github.com/hovportalen/farrier-booking/internal/booking"
	"github.com/hovportalen/farrier-booking/internal/farrier"
	"github.com/hovportalen/farrier-booking/internal/geo"
)

// AreaOption is an area a farrier can be booked in on a date. DistanceKm is
// the distance to the nearest anchor, nil when the farrier has no anchors.
type AreaOption struct {
	Area       string
	DistanceKm *float64
	TravelFee  float64
}

type AreaAvailability struct {
	FarrierID      uuid.UUID
	Date           time.Time
	RadiusKm       float64
	BookedAreas    []string
	AvailableAreas []AreaOption
}

// AvailableNames lists the available area names in order.
func (a AreaAvailability) AvailableNames() []string {
	out := make([]string, len(a.AvailableAreas))
	for i, o := range a.AvailableAreas {
		out[i] = o.Area
	}
	return out
}

// Covers reports whether area is booked or available that day.
func (a AreaAvailability) Covers(area string) bool {
	k := geo.Key(area)
	for _, b := range a.BookedAreas {
		if geo.Key(b) == k {
			return true
		}
	}
	for _, o := range a.AvailableAreas {
		if geo.Key(o.Area) == k {
			return true
		}
	}
	return false
}

type BookingSummary struct {
	ID              uuid.UUID
	Start           time.Time
	DurationMinutes int
	Service         string
	Area            string
	Status          booking.Status
}

type FarrierFootprint struct {
	AreaAvailability
	Bookings []BookingSummary
}

type DaySummary struct {
	Date           time.Time
	Weekday        int // Monday=0
	BookedAreas    []string
	AvailableAreas []string
	BookingsCount  int
}

// Anchors returns the distinct cities of active bookings starting in
// [from, to), ordered by start. Bookings without a city do not anchor.
func Anchors(bookings []booking.Booking, from, to time.Time) []string {
	var day []booking.Booking
	for _, b := range bookings {
		if !b.Status.Active() || b.City == "" {
			continue
		}
		if b.ScheduledStart.Before(from) || !b.ScheduledStart.Before(to) {
			continue
		}
		day = append(day, b)
	}
	sort.SliceStable(day, func(i, j int) bool {
		if !day[i].ScheduledStart.Equal(day[j].ScheduledStart) {
			return day[i].ScheduledStart.Before(day[j].ScheduledStart)
		}
		return day[i].ID.String() < day[j].ID.String()
	})

	seen := make(map[string]bool)
	var out []string
	for _, b := range day {
		k := geo.Key(b.City)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, b.City)
	}
	return out
}

// Expand computes the areas offered on a day. With no anchors every declared
// work area is offered, sorted by name. Otherwise only non-anchor work areas
// idx reports as neighbours of some anchor within radiusKm are offered,
// nearest first. idx must index areas.
func Expand(anchors []string, areas []farrier.WorkArea, idx *geo.Index, radiusKm float64) []AreaOption {
	seen := make(map[string]bool)
	unique := make([]farrier.WorkArea, 0, len(areas))
	for _, a := range areas {
		k := geo.Key(a.City)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, a)
	}

	if len(anchors) == 0 {
		out := make([]AreaOption, 0, len(unique))
		for _, a := range unique {
			out = append(out, AreaOption{Area: a.City, TravelFee: a.TravelFee})
		}
		sort.SliceStable(out, func(i, j int) bool { return out[i].Area < out[j].Area })
		return out
	}

	booked := make(map[string]bool, len(anchors))
	for _, a := range anchors {
		booked[geo.Key(a)] = true
	}

	declared := make(map[string]farrier.WorkArea, len(unique))
	for _, a := range unique {
		declared[geo.Key(a.City)] = a
	}

	best := make(map[string]float64)
	for _, anchor := range anchors {
		for _, n := range idx.Neighbors(anchor, radiusKm) {
			k := geo.Key(n.Area)
			if booked[k] {
				continue
			}
			if _, ok := declared[k]; !ok {
				continue
			}
			if d, ok := best[k]; !ok || n.DistanceKm < d {
				best[k] = n.DistanceKm
			}
		}
	}

	out := make([]AreaOption, 0, len(best))
	for k, d := range best {
		a := declared[k]
		out = append(out, AreaOption{Area: a.City, DistanceKm: &d, TravelFee: a.TravelFee})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].DistanceKm != *out[j].DistanceKm {
			return *out[i].DistanceKm < *out[j].DistanceKm
		}
		return out[i].Area < out[j].Area
	})
	return out
}

func (e *Engine) index(areas []farrier.WorkArea) *geo.Index {
	gs := make([]geo.Area, 0, len(areas))
	for _, a := range areas {
		gs = append(gs, a.GeoArea())
	}
	return geo.NewIndex(gs).WithGazetteer(e.settings.Gazetteer)
}

// expand runs the expander for one farrier given that day's bookings.
func (e *Engine) expand(ctx context.Context, f *farrier.Farrier, day time.Time, bookings []booking.Booking) (*AreaAvailability, error) {
	areas, err := e.farriers.ListWorkAreas(ctx, f.ID)
	if err != nil {
		return nil, apperr.Internal("load work areas", err)
	}

	from, to := e.dayBounds(day)
	anchors := Anchors(bookings, from, to)
	radius := e.radius(f)

	return &AreaAvailability{
		FarrierID:      f.ID,
		Date:           from,
		RadiusKm:       radius,
		BookedAreas:    nonNil(anchors),
		AvailableAreas: Expand(anchors, areas, e.index(areas), radius),
	}, nil
}

// Available returns the booked and available areas of farrierID on the
// local date of day.
func (e *Engine) Available(ctx context.Context, farrierID uuid.UUID, day time.Time) (*AreaAvailability, error) {
	f, err := e.loadFarrier(ctx, farrierID)
	if err != nil {
		return nil, err
	}

	from, to := e.dayBounds(day)
	bookings, err := e.bookings.ActiveBookings(ctx, farrierID, from, to)
	if err != nil {
		return nil, apperr.Internal("load active bookings", err)
	}

	return e.expand(ctx, f, from, bookings)
}

// AreaAvailability returns one footprint per farrier with at least one
// active booking starting on the local date of day, ordered by farrier id.
func (e *Engine) AreaAvailability(ctx context.Context, day time.Time) ([]FarrierFootprint, error) {
	from, to := e.dayBounds(day)

	bookings, err := e.bookings.ActiveBookingsStarting(ctx, from, to)
	if err != nil {
		return nil, apperr.Internal("load bookings for day", err)
	}

	byFarrier := make(map[uuid.UUID][]booking.Booking)
	var ids []uuid.UUID
	for _, b := range bookings {
		if _, ok := byFarrier[b.FarrierID]; !ok {
			ids = append(ids, b.FarrierID)
		}
		byFarrier[b.FarrierID] = append(byFarrier[b.FarrierID], b)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	out := make([]FarrierFootprint, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.settings.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			f, err := e.loadFarrier(gctx, id)
			if err != nil {
				return err
			}
			avail, err := e.expand(gctx, f, from, byFarrier[id])
			if err != nil {
				return err
			}
			out[i] = FarrierFootprint{AreaAvailability: *avail, Bookings: summarize(byFarrier[id])}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}

// FarriersInArea returns the footprints of farriers that are booked in, or
// expanded into, area on the local date of day.
func (e *Engine) FarriersInArea(ctx context.Context, area string, day time.Time) ([]FarrierFootprint, error) {
	if geo.Key(area) == "" {
		return nil, apperr.Validation("area is required")
	}

	all, err := e.AreaAvailability(ctx, day)
	if err != nil {
		return nil, err
	}

	var out []FarrierFootprint
	for _, fp := range all {
		if fp.Covers(area) {
			out = append(out, fp)
		}
	}
	return out, nil
}

// Week summarises seven consecutive days for farrierID starting at the local
// date of from.
func (e *Engine) Week(ctx context.Context, farrierID uuid.UUID, from time.Time) ([]DaySummary, error) {
	f, err := e.loadFarrier(ctx, farrierID)
	if err != nil {
		return nil, err
	}

	first, _ := e.dayBounds(from)
	last := time.Date(first.Year(), first.Month(), first.Day()+7, 0, 0, 0, 0, e.settings.Location)

	bookings, err := e.bookings.ActiveBookings(ctx, farrierID, first, last)
	if err != nil {
		return nil, apperr.Internal("load active bookings", err)
	}

	out := make([]DaySummary, 0, 7)
	for i := 0; i < 7; i++ {
		day := time.Date(first.Year(), first.Month(), first.Day()+i, 0, 0, 0, 0, e.settings.Location)
		dayStart, dayEnd := e.dayBounds(day)

		avail, err := e.expand(ctx, f, day, bookings)
		if err != nil {
			return nil, err
		}

		count := 0
		for _, b := range bookings {
			if !b.ScheduledStart.Before(dayStart) && b.ScheduledStart.Before(dayEnd) {
				count++
			}
		}

		out = append(out, DaySummary{
			Date:           dayStart,
			Weekday:        farrier.Weekday(dayStart),
			BookedAreas:    avail.BookedAreas,
			AvailableAreas: avail.AvailableNames(),
			BookingsCount:  count,
		})
	}
	return out, nil
}

func summarize(bookings []booking.Booking) []BookingSummary {
	out := make([]BookingSummary, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, BookingSummary{
			ID:              b.ID,
			Start:           b.ScheduledStart,
			DurationMinutes: b.DurationMinutes,
			Service:         b.Service,
			Area:            b.City,
			Status:          b.Status,
		})
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
