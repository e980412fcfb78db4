package availability

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/apperr"
	"github.com/hovportalen/farrier-booking/internal/booking"
	"github.com/hovportalen/farrier-booking/internal/farrier"
	"github.com/hovportalen/farrier-booking/internal/geo"
)

// Knivsta is moved about 14 km south of Uppsala so it sits inside the 15 km
// radius. The real town (geo.DefaultGazetteer) is about 16 km away.
func newAreaFixture(t *testing.T) (*Engine, *fakeFarriers, *fakeBookings, uuid.UUID) {
	t.Helper()
	farriers := newFakeFarriers()
	bookings := &fakeBookings{}
	id := farriers.add(15)
	farriers.window(id, 0, "08:00", "17:00")
	farriers.area(id, "Uppsala", 59.8586, 17.6389)
	farriers.area(id, "Knivsta", 59.7300, 17.6389)
	farriers.area(id, "Göteborg", 57.7089, 11.9746)
	e := NewEngine(farriers, bookings, Settings{Location: time.UTC, Granularity: 30})
	return e, farriers, bookings, id
}

func TestAvailableExpandsAroundBookedArea(t *testing.T) {
	e, _, bookings, id := newAreaFixture(t)
	bookings.add(id, mustTime(t, 2024, 6, 3, 10, 0), 60, "Uppsala", booking.StatusConfirmed)

	got, err := e.Available(context.Background(), id, mustTime(t, 2024, 6, 3, 0, 0))
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if !reflect.DeepEqual(got.BookedAreas, []string{"Uppsala"}) {
		t.Errorf("BookedAreas = %v, want [Uppsala]", got.BookedAreas)
	}
	if !reflect.DeepEqual(got.AvailableNames(), []string{"Knivsta"}) {
		t.Errorf("AvailableAreas = %v, want [Knivsta]", got.AvailableNames())
	}
	if d := got.AvailableAreas[0].DistanceKm; d == nil || *d > 15 {
		t.Errorf("Knivsta distance = %v, want within radius", d)
	}
	if got.RadiusKm != 15 {
		t.Errorf("RadiusKm = %v, want 15", got.RadiusKm)
	}
}

func TestAvailableAgreesWithNeighborsForAreaWithoutCoordinates(t *testing.T) {
	farriers := newFakeFarriers()
	bookings := &fakeBookings{}
	id := farriers.add(15)
	farriers.area(id, "Sigtuna", 59.6167, 17.7167)
	farriers.place(id, "Märsta")
	farriers.place(id, "Atlantis")
	e := NewEngine(farriers, bookings, Settings{Location: time.UTC, Gazetteer: geo.DefaultGazetteer})
	bookings.add(id, mustTime(t, 2024, 6, 3, 10, 0), 60, "Sigtuna", booking.StatusConfirmed)

	got, err := e.Available(context.Background(), id, mustTime(t, 2024, 6, 3, 0, 0))
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}

	areas, _ := farriers.ListWorkAreas(context.Background(), id)
	var neighbors []string
	for _, n := range e.index(areas).Neighbors("Sigtuna", got.RadiusKm) {
		neighbors = append(neighbors, n.Area)
	}
	if !reflect.DeepEqual(got.AvailableNames(), neighbors) {
		t.Fatalf("available = %v, neighbors(Sigtuna) = %v", got.AvailableNames(), neighbors)
	}
	if !reflect.DeepEqual(neighbors, []string{"Märsta"}) {
		t.Errorf("neighbors(Sigtuna) = %v, want [Märsta] resolved from the gazetteer", neighbors)
	}
}

func TestAvailableWithoutBookingsOffersEveryArea(t *testing.T) {
	e, _, _, id := newAreaFixture(t)

	got, err := e.Available(context.Background(), id, mustTime(t, 2024, 6, 3, 0, 0))
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if len(got.BookedAreas) != 0 {
		t.Errorf("BookedAreas = %v, want none", got.BookedAreas)
	}
	want := []string{"Göteborg", "Knivsta", "Uppsala"}
	if !reflect.DeepEqual(got.AvailableNames(), want) {
		t.Errorf("AvailableAreas = %v, want %v", got.AvailableNames(), want)
	}
	for _, o := range got.AvailableAreas {
		if o.DistanceKm != nil {
			t.Errorf("%s has distance %v without anchors", o.Area, *o.DistanceKm)
		}
	}
}

func TestAvailableIgnoresInactiveAndOtherDays(t *testing.T) {
	e, _, bookings, id := newAreaFixture(t)
	bookings.add(id, mustTime(t, 2024, 6, 3, 9, 0), 60, "Uppsala", booking.StatusCancelled)
	bookings.add(id, mustTime(t, 2024, 6, 3, 11, 0), 60, "Uppsala", booking.StatusCompleted)
	bookings.add(id, mustTime(t, 2024, 6, 4, 9, 0), 60, "Göteborg", booking.StatusConfirmed)

	got, err := e.Available(context.Background(), id, mustTime(t, 2024, 6, 3, 0, 0))
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if len(got.BookedAreas) != 0 {
		t.Errorf("BookedAreas = %v, want none", got.BookedAreas)
	}
	if len(got.AvailableAreas) != 3 {
		t.Errorf("AvailableAreas = %v, want all three", got.AvailableNames())
	}
}

func TestAvailableBookedAndAvailableDisjoint(t *testing.T) {
	e, farriers, bookings, id := newAreaFixture(t)
	farriers.area(id, "Storvreta", 59.9580, 17.7050)
	bookings.add(id, mustTime(t, 2024, 6, 3, 8, 0), 60, "Uppsala", booking.StatusPending)
	bookings.add(id, mustTime(t, 2024, 6, 3, 13, 0), 60, "Knivsta", booking.StatusConfirmed)

	got, err := e.Available(context.Background(), id, mustTime(t, 2024, 6, 3, 0, 0))
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if !reflect.DeepEqual(got.BookedAreas, []string{"Uppsala", "Knivsta"}) {
		t.Errorf("BookedAreas = %v", got.BookedAreas)
	}
	booked := map[string]bool{}
	for _, a := range got.BookedAreas {
		booked[a] = true
	}
	for _, o := range got.AvailableAreas {
		if booked[o.Area] {
			t.Errorf("%s is both booked and available", o.Area)
		}
	}
	if !reflect.DeepEqual(got.AvailableNames(), []string{"Storvreta"}) {
		t.Errorf("AvailableAreas = %v, want [Storvreta]", got.AvailableNames())
	}
}

func TestAvailableUsesGazetteerForMissingCoordinates(t *testing.T) {
	farriers := newFakeFarriers()
	id := farriers.add(20)
	farriers.areas[id] = []farrier.WorkArea{
		{ID: uuid.New(), FarrierID: id, City: "Uppsala"},
		{ID: uuid.New(), FarrierID: id, City: "Knivsta"},
		{ID: uuid.New(), FarrierID: id, City: "Nowhere"},
	}
	bookings := &fakeBookings{}
	bookings.add(id, mustTime(t, 2024, 6, 3, 10, 0), 60, "uppsala", booking.StatusConfirmed)
	e := NewEngine(farriers, bookings, Settings{Location: time.UTC, Gazetteer: geo.DefaultGazetteer})

	got, err := e.Available(context.Background(), id, mustTime(t, 2024, 6, 3, 0, 0))
	if err != nil {
		t.Fatalf("Available() error = %v", err)
	}
	if !reflect.DeepEqual(got.AvailableNames(), []string{"Knivsta"}) {
		t.Errorf("AvailableAreas = %v, want [Knivsta]", got.AvailableNames())
	}
}

func TestAvailableUnknownFarrier(t *testing.T) {
	e, _, _, _ := newAreaFixture(t)
	_, err := e.Available(context.Background(), uuid.New(), mustTime(t, 2024, 6, 3, 0, 0))
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Available() error = %v, want not found", err)
	}
}

func TestAnchorsOrderedByStartAndDistinct(t *testing.T) {
	id := uuid.New()
	from := mustTime(t, 2024, 6, 3, 0, 0)
	to := from.Add(24 * time.Hour)
	bs := []booking.Booking{
		{ID: uuid.New(), FarrierID: id, City: "Knivsta", ScheduledStart: mustTime(t, 2024, 6, 3, 14, 0), Status: booking.StatusConfirmed},
		{ID: uuid.New(), FarrierID: id, City: "Uppsala", ScheduledStart: mustTime(t, 2024, 6, 3, 9, 0), Status: booking.StatusPending},
		{ID: uuid.New(), FarrierID: id, City: "UPPSALA", ScheduledStart: mustTime(t, 2024, 6, 3, 16, 0), Status: booking.StatusInProgress},
		{ID: uuid.New(), FarrierID: id, City: "", ScheduledStart: mustTime(t, 2024, 6, 3, 7, 0), Status: booking.StatusConfirmed},
		{ID: uuid.New(), FarrierID: id, City: "Enköping", ScheduledStart: mustTime(t, 2024, 6, 3, 8, 0), Status: booking.StatusCompleted},
		{ID: uuid.New(), FarrierID: id, City: "Göteborg", ScheduledStart: to, Status: booking.StatusConfirmed},
	}

	got := Anchors(bs, from, to)
	want := []string{"Uppsala", "Knivsta"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Anchors() = %v, want %v", got, want)
	}
}

func TestAreaAvailabilityListsBookedFarriers(t *testing.T) {
	e, farriers, bookings, first := newAreaFixture(t)
	second := farriers.add(10)
	farriers.area(second, "Göteborg", 57.7089, 11.9746)
	farriers.area(second, "Mölndal", 57.6554, 12.0138)
	idle := farriers.add(10)
	farriers.area(idle, "Uppsala", 59.8586, 17.6389)

	bookings.add(first, mustTime(t, 2024, 6, 3, 10, 0), 60, "Uppsala", booking.StatusConfirmed)
	bookings.add(second, mustTime(t, 2024, 6, 3, 9, 0), 90, "Göteborg", booking.StatusPending)
	bookings.add(second, mustTime(t, 2024, 6, 3, 13, 0), 60, "Göteborg", booking.StatusCancelled)

	got, err := e.AreaAvailability(context.Background(), mustTime(t, 2024, 6, 3, 0, 0))
	if err != nil {
		t.Fatalf("AreaAvailability() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(AreaAvailability()) = %d, want 2", len(got))
	}
	if got[0].FarrierID.String() > got[1].FarrierID.String() {
		t.Error("footprints are not ordered by farrier id")
	}

	byID := map[uuid.UUID]FarrierFootprint{}
	for _, fp := range got {
		byID[fp.FarrierID] = fp
	}
	if _, ok := byID[idle]; ok {
		t.Error("farrier without bookings listed")
	}
	if got := byID[second].AvailableNames(); !reflect.DeepEqual(got, []string{"Mölndal"}) {
		t.Errorf("second farrier available = %v, want [Mölndal]", got)
	}
	if n := len(byID[second].Bookings); n != 1 {
		t.Errorf("second farrier has %d bookings, want 1", n)
	}
}

func TestFarriersInArea(t *testing.T) {
	e, farriers, bookings, first := newAreaFixture(t)
	second := farriers.add(10)
	farriers.area(second, "Göteborg", 57.7089, 11.9746)
	bookings.add(first, mustTime(t, 2024, 6, 3, 10, 0), 60, "Uppsala", booking.StatusConfirmed)
	bookings.add(second, mustTime(t, 2024, 6, 3, 9, 0), 60, "Göteborg", booking.StatusConfirmed)

	ctx := context.Background()
	day := mustTime(t, 2024, 6, 3, 0, 0)

	got, err := e.FarriersInArea(ctx, "knivsta", day)
	if err != nil {
		t.Fatalf("FarriersInArea() error = %v", err)
	}
	if len(got) != 1 || got[0].FarrierID != first {
		t.Errorf("FarriersInArea(knivsta) = %v, want only the Uppsala farrier", got)
	}

	got, err = e.FarriersInArea(ctx, "Göteborg", day)
	if err != nil {
		t.Fatalf("FarriersInArea() error = %v", err)
	}
	if len(got) != 1 || got[0].FarrierID != second {
		t.Errorf("FarriersInArea(Göteborg) = %v, want only the Göteborg farrier", got)
	}

	if _, err := e.FarriersInArea(ctx, "  ", day); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("blank area error = %v, want validation error", err)
	}
}

func TestWeek(t *testing.T) {
	e, _, bookings, id := newAreaFixture(t)
	bookings.add(id, mustTime(t, 2024, 6, 3, 10, 0), 60, "Uppsala", booking.StatusConfirmed)
	bookings.add(id, mustTime(t, 2024, 6, 5, 10, 0), 60, "Göteborg", booking.StatusConfirmed)
	bookings.add(id, mustTime(t, 2024, 6, 5, 14, 0), 60, "Göteborg", booking.StatusPending)
	bookings.add(id, mustTime(t, 2024, 6, 10, 10, 0), 60, "Knivsta", booking.StatusConfirmed)

	days, err := e.Week(context.Background(), id, mustTime(t, 2024, 6, 3, 12, 0))
	if err != nil {
		t.Fatalf("Week() error = %v", err)
	}
	if len(days) != 7 {
		t.Fatalf("len(Week()) = %d, want 7", len(days))
	}
	for i, d := range days {
		if d.Weekday != i {
			t.Errorf("day %d has weekday %d", i, d.Weekday)
		}
	}

	if days[0].BookingsCount != 1 || !reflect.DeepEqual(days[0].AvailableAreas, []string{"Knivsta"}) {
		t.Errorf("Monday = %+v", days[0])
	}
	if days[1].BookingsCount != 0 || len(days[1].AvailableAreas) != 3 {
		t.Errorf("Tuesday = %+v", days[1])
	}
	if days[2].BookingsCount != 2 || !reflect.DeepEqual(days[2].BookedAreas, []string{"Göteborg"}) {
		t.Errorf("Wednesday = %+v", days[2])
	}
	if len(days[2].AvailableAreas) != 0 {
		t.Errorf("Wednesday available = %v, want none near Göteborg", days[2].AvailableAreas)
	}
	if days[6].BookingsCount != 0 {
		t.Errorf("Sunday counted %d bookings", days[6].BookingsCount)
	}
}
