package availability

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/booking"
	"github.com/hovportalen/farrier-booking/internal/farrier"
)

type fakeFarriers struct {
	farriers map[uuid.UUID]farrier.Farrier
	windows  map[uuid.UUID][]farrier.WeeklyWindow
	areas    map[uuid.UUID][]farrier.WorkArea
}

func newFakeFarriers() *fakeFarriers {
	return &fakeFarriers{
		farriers: make(map[uuid.UUID]farrier.Farrier),
		windows:  make(map[uuid.UUID][]farrier.WeeklyWindow),
		areas:    make(map[uuid.UUID][]farrier.WorkArea),
	}
}

func (f *fakeFarriers) add(radius float64) uuid.UUID {
	id := uuid.New()
	f.farriers[id] = farrier.Farrier{ID: id, TravelRadiusKm: radius, IsAvailable: true}
	return id
}

func (f *fakeFarriers) window(id uuid.UUID, day int, start, end string) {
	s, _ := farrier.ParseClock(start)
	e, _ := farrier.ParseClock(end)
	f.windows[id] = append(f.windows[id], farrier.WeeklyWindow{ID: uuid.New(), FarrierID: id, DayOfWeek: day, StartMinute: s, EndMinute: e})
}

func (f *fakeFarriers) area(id uuid.UUID, city string, lat, lng float64) {
	f.areas[id] = append(f.areas[id], farrier.WorkArea{ID: uuid.New(), FarrierID: id, City: city, Latitude: &lat, Longitude: &lng})
}

// place declares a work area without coordinates.
func (f *fakeFarriers) place(id uuid.UUID, city string) {
	f.areas[id] = append(f.areas[id], farrier.WorkArea{ID: uuid.New(), FarrierID: id, City: city})
}

func (f *fakeFarriers) GetFarrier(ctx context.Context, id uuid.UUID) (*farrier.Farrier, error) {
	v, ok := f.farriers[id]
	if !ok {
		return nil, farrier.ErrFarrierNotFound
	}
	return &v, nil
}

func (f *fakeFarriers) GetHorse(ctx context.Context, id uuid.UUID) (*farrier.Horse, error) {
	return nil, farrier.ErrHorseNotFound
}

func (f *fakeFarriers) ListWeeklyWindows(ctx context.Context, id uuid.UUID) ([]farrier.WeeklyWindow, error) {
	return f.windows[id], nil
}

func (f *fakeFarriers) ListWorkAreas(ctx context.Context, id uuid.UUID) ([]farrier.WorkArea, error) {
	return f.areas[id], nil
}

type fakeBookings struct {
	mu    sync.Mutex
	items []booking.Booking
	calls int
}

func (b *fakeBookings) add(farrierID uuid.UUID, start time.Time, minutes int, city string, status booking.Status) booking.Booking {
	b.mu.Lock()
	defer b.mu.Unlock()
	bk := booking.Booking{
		ID:              uuid.New(),
		FarrierID:       farrierID,
		City:            city,
		ScheduledStart:  start,
		DurationMinutes: minutes,
		Status:          status,
	}
	bk.BusyUntil = bk.End()
	b.items = append(b.items, bk)
	return bk
}

func (b *fakeBookings) ActiveBookings(ctx context.Context, farrierID uuid.UUID, from, to time.Time) ([]booking.Booking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls++
	var out []booking.Booking
	for _, bk := range b.items {
		if bk.FarrierID == farrierID && bk.Status.Active() && bk.ScheduledStart.Before(to) && bk.BusyUntil.After(from) {
			out = append(out, bk)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart.Before(out[j].ScheduledStart) })
	return out, nil
}

func (b *fakeBookings) ActiveBookingsStarting(ctx context.Context, from, to time.Time) ([]booking.Booking, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []booking.Booking
	for _, bk := range b.items {
		if bk.Status.Active() && !bk.ScheduledStart.Before(from) && bk.ScheduledStart.Before(to) {
			out = append(out, bk)
		}
	}
	return out, nil
}

func mustTime(t *testing.T, year int, month time.Month, day, hour, min int) time.Time {
	t.Helper()
	return time.Date(year, month, day, hour, min, 0, 0, time.UTC)
}

func clock(t *testing.T, ts []time.Time) []string {
	t.Helper()
	out := make([]string, len(ts))
	for i, v := range ts {
		out[i] = v.Format("15:04")
	}
	return out
}
