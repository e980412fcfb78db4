package admission

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hovportalen/farrier-booking/internal/booking"
	"github.com/hovportalen/farrier-booking/internal/farrier"
	redisclient "github.com/hovportalen/farrier-booking/internal/redis"
)

type memFarriers struct {
	farriers map[uuid.UUID]farrier.Farrier
	horses   map[uuid.UUID]farrier.Horse
	windows  map[uuid.UUID][]farrier.WeeklyWindow
	areas    map[uuid.UUID][]farrier.WorkArea
}

func newMemFarriers() *memFarriers {
	return &memFarriers{
		farriers: make(map[uuid.UUID]farrier.Farrier),
		horses:   make(map[uuid.UUID]farrier.Horse),
		windows:  make(map[uuid.UUID][]farrier.WeeklyWindow),
		areas:    make(map[uuid.UUID][]farrier.WorkArea),
	}
}

func (m *memFarriers) GetFarrier(ctx context.Context, id uuid.UUID) (*farrier.Farrier, error) {
	f, ok := m.farriers[id]
	if !ok {
		return nil, farrier.ErrFarrierNotFound
	}
	return &f, nil
}

func (m *memFarriers) GetHorse(ctx context.Context, id uuid.UUID) (*farrier.Horse, error) {
	h, ok := m.horses[id]
	if !ok {
		return nil, farrier.ErrHorseNotFound
	}
	return &h, nil
}

func (m *memFarriers) ListWeeklyWindows(ctx context.Context, id uuid.UUID) ([]farrier.WeeklyWindow, error) {
	return m.windows[id], nil
}

func (m *memFarriers) ListWorkAreas(ctx context.Context, id uuid.UUID) ([]farrier.WorkArea, error) {
	return m.areas[id], nil
}

// memLedger is an in-memory booking ledger. RunInTx works on a copy that is
// applied on commit, and InsertBooking refuses overlapping active busy
// intervals the way the bookings_no_overlap constraint does. With
// unconstrained set neither the insert nor the commit checks overlaps.
type memLedger struct {
	mu            sync.Mutex
	bookings      map[uuid.UUID]booking.Booking
	events        []booking.EventLog
	parent        *memLedger
	txCount       int
	unconstrained bool
}

func newMemLedger() *memLedger {
	return &memLedger{bookings: make(map[uuid.UUID]booking.Booking)}
}

func (l *memLedger) put(b booking.Booking) booking.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.BusyUntil.IsZero() {
		b.BusyUntil = b.End()
	}
	l.bookings[b.ID] = b
	return b
}

func (l *memLedger) all() []booking.Booking {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]booking.Booking, 0, len(l.bookings))
	for _, b := range l.bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart.Before(out[j].ScheduledStart) })
	return out
}

func (l *memLedger) eventTypes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	for i, e := range l.events {
		out[i] = e.EventType
	}
	return out
}

func (l *memLedger) GetBooking(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return &b, nil
}

func (l *memLedger) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return l.GetBooking(ctx, id)
}

func (l *memLedger) ActiveBookings(ctx context.Context, farrierID uuid.UUID, from, to time.Time) ([]booking.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []booking.Booking
	for _, b := range l.bookings {
		if b.FarrierID == farrierID && b.Status.Active() && b.ScheduledStart.Before(to) && b.BusyUntil.After(from) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledStart.Before(out[j].ScheduledStart) })
	return out, nil
}

func (l *memLedger) ActiveBookingsStarting(ctx context.Context, from, to time.Time) ([]booking.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []booking.Booking
	for _, b := range l.bookings {
		if b.Status.Active() && !b.ScheduledStart.Before(from) && b.ScheduledStart.Before(to) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (l *memLedger) ListBookings(ctx context.Context, f booking.Filter) ([]booking.Booking, error) {
	var out []booking.Booking
	for _, b := range l.all() {
		if f.FarrierID != nil && b.FarrierID != *f.FarrierID {
			continue
		}
		if f.OwnerID != nil && b.HorseOwnerID != *f.OwnerID {
			continue
		}
		if f.Status != nil && b.Status != *f.Status {
			continue
		}
		out = append(out, b)
	}
	if f.Offset >= len(out) {
		return nil, nil
	}
	out = out[f.Offset:]
	if len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func overlapsActive(existing map[uuid.UUID]booking.Booking, b booking.Booking) bool {
	if !b.Status.Active() {
		return false
	}
	for _, o := range existing {
		if o.ID == b.ID || o.FarrierID != b.FarrierID || !o.Status.Active() {
			continue
		}
		if b.ScheduledStart.Before(o.BusyUntil) && o.ScheduledStart.Before(b.BusyUntil) {
			return true
		}
	}
	return false
}

func (l *memLedger) InsertBooking(ctx context.Context, b booking.Booking) (*booking.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if !l.unconstrained && overlapsActive(l.bookings, b) {
		return nil, booking.ErrOverlap
	}
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	l.bookings[b.ID] = b
	return &b, nil
}

func (l *memLedger) UpdateBookingStatus(ctx context.Context, id uuid.UUID, c booking.StatusChange) (*booking.Booking, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bookings[id]
	if !ok || b.Status != c.From {
		return nil, booking.ErrBookingNotFound
	}
	b.Status = c.To
	if c.CancelledBy != nil {
		b.CancelledBy = c.CancelledBy
	}
	if c.CancellationReason != nil {
		b.CancellationReason = c.CancellationReason
	}
	at := c.At
	switch c.To {
	case booking.StatusCancelled:
		b.CancelledAt = &at
	case booking.StatusCompleted:
		b.CompletedAt = &at
	}
	b.UpdatedAt = at
	l.bookings[id] = b
	return &b, nil
}

func (l *memLedger) InsertEvent(ctx context.Context, ev booking.EventLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	return nil
}

func (l *memLedger) RunInTx(ctx context.Context, fn func(ctx context.Context, tx booking.Repository) error) error {
	if l.parent != nil {
		return fn(ctx, l)
	}

	l.mu.Lock()
	l.txCount++
	base := make(map[uuid.UUID]booking.Booking, len(l.bookings))
	tx := &memLedger{bookings: make(map[uuid.UUID]booking.Booking, len(l.bookings)), parent: l, unconstrained: l.unconstrained}
	for id, b := range l.bookings {
		base[id] = b
		tx.bookings[id] = b
	}
	l.mu.Unlock()

	if err := fn(ctx, tx); err != nil {
		return err
	}

	var dirty []booking.Booking
	for id, b := range tx.bookings {
		if old, ok := base[id]; ok && old.Status == b.Status && old.UpdatedAt.Equal(b.UpdatedAt) {
			continue
		}
		dirty = append(dirty, b)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, b := range dirty {
		if !l.unconstrained && overlapsActive(l.bookings, b) {
			return booking.ErrOverlap
		}
	}
	for _, b := range dirty {
		l.bookings[b.ID] = b
	}
	l.events = append(l.events, tx.events...)
	return nil
}

// memLocker grants each farrier/day key to one holder at a time and fails
// immediately for everybody else, like SETNX.
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]bool)}
}

func (m *memLocker) WithDayLock(ctx context.Context, farrierID uuid.UUID, day time.Time, fn func(ctx context.Context) error) error {
	key := redisclient.DayLockKey(farrierID, day)

	m.mu.Lock()
	if m.held[key] {
		m.mu.Unlock()
		return redisclient.ErrLockNotAcquired
	}
	m.held[key] = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		delete(m.held, key)
		m.mu.Unlock()
	}()

	return fn(ctx)
}
