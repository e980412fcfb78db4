package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/apperr"
	"github.com/hovportalen/farrier-booking/internal/booking"
)

func newSlotFixture(t *testing.T, buffer time.Duration) (*Engine, *fakeFarriers, *fakeBookings, uuid.UUID) {
	t.Helper()
	farriers := newFakeFarriers()
	bookings := &fakeBookings{}
	id := farriers.add(15)
	farriers.window(id, 0, "08:00", "17:00")
	e := NewEngine(farriers, bookings, Settings{Location: time.UTC, Granularity: 30, Buffer: buffer})
	return e, farriers, bookings, id
}

func TestSlotsAroundConfirmedBooking(t *testing.T) {
	e, _, bookings, id := newSlotFixture(t, 0)
	monday := mustTime(t, 2024, 6, 3, 0, 0)
	bookings.add(id, mustTime(t, 2024, 6, 3, 10, 0), 60, "Uppsala", booking.StatusConfirmed)

	slots, err := e.Slots(context.Background(), id, monday, 60, 30)
	if err != nil {
		t.Fatalf("Slots() error = %v", err)
	}

	want := []string{
		"08:00", "08:30", "09:00",
		"11:00", "11:30", "12:00", "12:30", "13:00", "13:30",
		"14:00", "14:30", "15:00", "15:30", "16:00",
	}
	starts := make([]time.Time, len(slots))
	for i, s := range slots {
		starts[i] = s.Start
		if got := s.End.Sub(s.Start); got != time.Hour {
			t.Errorf("slot %s lasts %s", s.Start.Format("15:04"), got)
		}
	}
	got := clock(t, starts)
	if len(got) != len(want) {
		t.Fatalf("Slots() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSlotsStayInsideWindowsAndClearOfBookings(t *testing.T) {
	e, farriers, bookings, id := newSlotFixture(t, 15*time.Minute)
	farriers.window(id, 0, "16:30", "19:00")
	farriers.window(id, 0, "06:15", "07:00")
	monday := mustTime(t, 2024, 6, 3, 0, 0)
	bookings.add(id, mustTime(t, 2024, 6, 3, 9, 0), 45, "Uppsala", booking.StatusPending)
	bookings.add(id, mustTime(t, 2024, 6, 3, 14, 0), 90, "Knivsta", booking.StatusInProgress)
	bookings.add(id, mustTime(t, 2024, 6, 3, 12, 0), 60, "Uppsala", booking.StatusCancelled)

	ctx := context.Background()
	plan, err := e.Plan(ctx, id, monday)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if len(plan.Windows) != 2 {
		t.Fatalf("windows = %v, want overlapping windows merged into two", plan.Windows)
	}

	slots, err := e.Slots(ctx, id, monday, 60, 15)
	if err != nil {
		t.Fatalf("Slots() error = %v", err)
	}
	if len(slots) == 0 {
		t.Fatal("expected slots")
	}

	for _, s := range slots {
		inside := false
		for _, w := range plan.Windows {
			if w.Contains(s.Start, time.Hour) {
				inside = true
			}
		}
		if !inside {
			t.Errorf("slot %s escapes the weekly windows", s.Start.Format("15:04"))
		}
		for _, b := range plan.Busy {
			if (TimeRange{s.Start, s.End}).Overlaps(b) {
				t.Errorf("slot %s overlaps busy %v", s.Start.Format("15:04"), b)
			}
		}
	}

	// cancelled bookings free their time
	found := false
	for _, s := range slots {
		if s.Start.Equal(mustTime(t, 2024, 6, 3, 12, 0)) {
			found = true
		}
	}
	if !found {
		t.Error("12:00 should be free after the booking there was cancelled")
	}

	// the buffer extends the pending booking to 10:00
	for _, s := range slots {
		if s.Start.Equal(mustTime(t, 2024, 6, 3, 9, 45)) {
			t.Error("09:45 falls inside the buffer after the 09:00 booking")
		}
	}
}

func TestSlotsLeaveBufferBeforeNextBooking(t *testing.T) {
	e, _, bookings, id := newSlotFixture(t, 15*time.Minute)
	monday := mustTime(t, 2024, 6, 3, 0, 0)
	bookings.add(id, mustTime(t, 2024, 6, 3, 10, 0), 60, "Uppsala", booking.StatusConfirmed)

	slots, err := e.Slots(context.Background(), id, monday, 60, 30)
	if err != nil {
		t.Fatalf("Slots() error = %v", err)
	}

	starts := make([]time.Time, len(slots))
	for i, s := range slots {
		starts[i] = s.Start
	}
	got := clock(t, starts)

	// 09:00 would run with its buffer into the 10:00 booking, and the
	// booking's own buffer holds the farrier until 11:15.
	want := []string{
		"08:00", "08:30",
		"11:15", "11:45", "12:15", "12:45", "13:15",
		"13:45", "14:15", "14:45", "15:15", "15:45",
	}
	if len(got) != len(want) {
		t.Fatalf("Slots() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("slot[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestSlotsIdempotent(t *testing.T) {
	e, _, bookings, id := newSlotFixture(t, 0)
	monday := mustTime(t, 2024, 6, 3, 0, 0)
	bookings.add(id, mustTime(t, 2024, 6, 3, 13, 15), 50, "Uppsala", booking.StatusConfirmed)

	ctx := context.Background()
	first, err := e.Slots(ctx, id, monday, 40, 20)
	if err != nil {
		t.Fatalf("Slots() error = %v", err)
	}
	second, err := e.Slots(ctx, id, monday, 40, 20)
	if err != nil {
		t.Fatalf("Slots() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("repeat call returned %d slots, first returned %d", len(second), len(first))
	}
	for i := range first {
		if !first[i].Start.Equal(second[i].Start) {
			t.Errorf("slot %d differs: %s vs %s", i, first[i].Start, second[i].Start)
		}
	}
}

func TestSlotsNoWindowOnWeekday(t *testing.T) {
	e, _, _, id := newSlotFixture(t, 0)
	tuesday := mustTime(t, 2024, 6, 4, 0, 0)

	slots, err := e.Slots(context.Background(), id, tuesday, 60, 30)
	if err != nil {
		t.Fatalf("Slots() error = %v", err)
	}
	if len(slots) != 0 {
		t.Errorf("Slots() = %v, want none", slots)
	}
}

func TestSlotsDefaultGranularity(t *testing.T) {
	e, _, _, id := newSlotFixture(t, 0)
	monday := mustTime(t, 2024, 6, 3, 0, 0)

	slots, err := e.Slots(context.Background(), id, monday, 60, 0)
	if err != nil {
		t.Fatalf("Slots() error = %v", err)
	}
	// 08:00 to 16:00 every 30 minutes
	if len(slots) != 17 {
		t.Errorf("len(Slots()) = %d, want 17", len(slots))
	}
}

func TestSlotsValidation(t *testing.T) {
	e, _, _, id := newSlotFixture(t, 0)
	monday := mustTime(t, 2024, 6, 3, 0, 0)

	tests := []struct {
		name        string
		duration    int
		granularity int
	}{
		{"zero duration", 0, 30},
		{"negative duration", -15, 30},
		{"longer than a day", 1441, 30},
		{"negative granularity", 60, -5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.Slots(context.Background(), id, monday, tt.duration, tt.granularity)
			if !errors.Is(err, apperr.ErrValidation) {
				t.Errorf("Slots() error = %v, want validation error", err)
			}
		})
	}
}

func TestSlotsUnknownFarrier(t *testing.T) {
	e, _, _, _ := newSlotFixture(t, 0)
	_, err := e.Slots(context.Background(), uuid.New(), mustTime(t, 2024, 6, 3, 0, 0), 60, 30)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Slots() error = %v, want not found", err)
	}
}

func TestSlotsAcrossDSTChange(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Stockholm")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	farriers := newFakeFarriers()
	id := farriers.add(15)
	// 2024-03-31 is a Sunday and the clocks skip 02:00 to 03:00
	farriers.window(id, 6, "08:00", "10:00")
	e := NewEngine(farriers, &fakeBookings{}, Settings{Location: loc})

	slots, err := e.Slots(context.Background(), id, time.Date(2024, 3, 31, 0, 0, 0, 0, loc), 60, 60)
	if err != nil {
		t.Fatalf("Slots() error = %v", err)
	}
	if len(slots) != 2 {
		t.Fatalf("len(Slots()) = %d, want 2", len(slots))
	}
	if got := slots[0].Start.In(loc).Format("15:04"); got != "08:00" {
		t.Errorf("first slot = %s, want 08:00 local", got)
	}
}

func TestParseDate(t *testing.T) {
	e := NewEngine(newFakeFarriers(), &fakeBookings{}, Settings{})
	d, err := e.ParseDate("2024-06-03")
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	if d.Weekday() != time.Monday {
		t.Errorf("2024-06-03 parsed as %s", d.Weekday())
	}
	if _, err := e.ParseDate("03/06/2024"); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("ParseDate() error = %v, want validation error", err)
	}
}
