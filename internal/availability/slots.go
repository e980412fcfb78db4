package availability

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/apperr"
	"github.com/hovportalen/farrier-booking/internal/booking"
	"github.com/hovportalen/farrier-booking/internal/farrier"
)

type Slot struct {
	Start time.Time
	End   time.Time
}

// DayPlan is a farrier's calendar for one local date: merged weekly windows,
// busy intervals of active bookings and what remains free.
type DayPlan struct {
	FarrierID uuid.UUID
	Date      time.Time
	Windows   []TimeRange
	Busy      []TimeRange
	Free      []TimeRange
	Bookings  []booking.Booking
}

// Starts lists candidate starts of the given length in the free intervals.
func (p *DayPlan) Starts(duration, step time.Duration) []time.Time {
	return Candidates(p.Free, duration, step)
}

// Fits reports whether [start, start+duration) lies inside one free interval.
func (p *DayPlan) Fits(start time.Time, duration time.Duration) bool {
	return fits(p.Free, start, duration)
}

// FitsWindow reports whether the interval would fit with no bookings at all.
func (p *DayPlan) FitsWindow(start time.Time, duration time.Duration) bool {
	return fits(p.Windows, start, duration)
}

func fits(rs []TimeRange, start time.Time, duration time.Duration) bool {
	for _, r := range rs {
		if r.Contains(start, duration) {
			return true
		}
	}
	return false
}

// WindowRanges builds the merged availability windows for the weekday of
// day, anchored on that local date.
func WindowRanges(windows []farrier.WeeklyWindow, day time.Time) []TimeRange {
	weekday := farrier.Weekday(day)
	loc := day.Location()

	var rs []TimeRange
	for _, w := range windows {
		if w.DayOfWeek != weekday || w.EndMinute <= w.StartMinute {
			continue
		}
		rs = append(rs, TimeRange{
			Start: time.Date(day.Year(), day.Month(), day.Day(), 0, w.StartMinute, 0, 0, loc),
			End:   time.Date(day.Year(), day.Month(), day.Day(), 0, w.EndMinute, 0, 0, loc),
		})
	}
	return Merge(rs)
}

// BusyRanges converts active bookings into [start, start+duration+buffer).
func BusyRanges(bookings []booking.Booking, buffer time.Duration) []TimeRange {
	var rs []TimeRange
	for _, b := range bookings {
		if !b.Status.Active() {
			continue
		}
		rs = append(rs, TimeRange{Start: b.ScheduledStart, End: b.End().Add(buffer)})
	}
	sortRanges(rs)
	return rs
}

// leadIn widens each busy range backwards by buffer. A new booking starting
// at t holds [t, t+d+buffer), so it clears a busy range [s, e) exactly when
// [t, t+d) clears [s-buffer, e).
func leadIn(busy []TimeRange, buffer time.Duration) []TimeRange {
	if buffer <= 0 {
		return busy
	}
	out := make([]TimeRange, len(busy))
	for i, r := range busy {
		out[i] = TimeRange{Start: r.Start.Add(-buffer), End: r.End}
	}
	return Merge(out)
}

// Plan assembles the DayPlan for farrierID on the local date of day.
func (e *Engine) Plan(ctx context.Context, farrierID uuid.UUID, day time.Time) (*DayPlan, error) {
	if _, err := e.loadFarrier(ctx, farrierID); err != nil {
		return nil, err
	}

	start, end := e.dayBounds(day)

	windows, err := e.farriers.ListWeeklyWindows(ctx, farrierID)
	if err != nil {
		return nil, apperr.Internal("load weekly windows", err)
	}

	bookings, err := e.bookings.ActiveBookings(ctx, farrierID, start, end)
	if err != nil {
		return nil, apperr.Internal("load active bookings", err)
	}

	p := &DayPlan{
		FarrierID: farrierID,
		Date:      start,
		Windows:   WindowRanges(windows, start),
		Busy:      BusyRanges(bookings, e.settings.Buffer),
		Bookings:  bookings,
	}
	p.Free = Subtract(p.Windows, leadIn(p.Busy, e.settings.Buffer))
	return p, nil
}

// Slots returns the bookable slots of durationMin minutes for farrierID on
// the date of day, stepping granularityMin minutes (0 means the default).
func (e *Engine) Slots(ctx context.Context, farrierID uuid.UUID, day time.Time, durationMin, granularityMin int) ([]Slot, error) {
	duration, step, err := e.slotParams(durationMin, granularityMin)
	if err != nil {
		return nil, err
	}

	p, err := e.Plan(ctx, farrierID, day)
	if err != nil {
		return nil, err
	}

	starts := p.Starts(duration, step)
	slots := make([]Slot, 0, len(starts))
	for _, t := range starts {
		slots = append(slots, Slot{Start: t, End: t.Add(duration)})
	}
	return slots, nil
}

func (e *Engine) slotParams(durationMin, granularityMin int) (time.Duration, time.Duration, error) {
	if durationMin <= 0 {
		return 0, 0, apperr.Validation("service duration must be positive")
	}
	if durationMin > farrier.MinutesPerDay {
		return 0, 0, apperr.Validation("service duration must not exceed a day")
	}
	if granularityMin < 0 {
		return 0, 0, apperr.Validation("granularity must not be negative")
	}
	if granularityMin == 0 {
		granularityMin = e.settings.Granularity
	}
	return time.Duration(durationMin) * time.Minute, time.Duration(granularityMin) * time.Minute, nil
}
