package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// exclusion_violation, raised by bookings_no_overlap.
const pgExclusionViolation = "23P01"

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	pool *pgxpool.Pool
	db   querier
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool, db: pool}
}

const bookingColumns = `
	id, farrier_id, horse_owner_id, horse_id, service, city, address,
	scheduled_start, duration_minutes, busy_until, travel_fee, status,
	notes_from_owner, cancelled_by, cancellation_reason, cancelled_at,
	completed_at, created_at, updated_at`

// Helpers

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking

	err := row.Scan(
		&b.ID,
		&b.FarrierID,
		&b.HorseOwnerID,
		&b.HorseID,
		&b.Service,
		&b.City,
		&b.Address,
		&b.ScheduledStart,
		&b.DurationMinutes,
		&b.BusyUntil,
		&b.TravelFee,
		&b.Status,
		&b.NotesFromOwner,
		&b.CancelledBy,
		&b.CancellationReason,
		&b.CancelledAt,
		&b.CompletedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}

	return &b, nil
}

func collectBookings(rows pgx.Rows, err error) ([]Booking, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func activeStatusArgs() []string {
	out := make([]string, len(ActiveStatuses))
	for i, s := range ActiveStatuses {
		out[i] = string(s)
	}
	return out
}

// Interface methods

func (r *PgRepository) GetBooking(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) GetBookingForUpdate(ctx context.Context, id uuid.UUID) (*Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id)
	return scanBooking(row)
}

func (r *PgRepository) ActiveBookings(ctx context.Context, farrierID uuid.UUID, from, to time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+`
		FROM bookings
		WHERE farrier_id = $1
		  AND status = ANY($2)
		  AND scheduled_start < $4
		  AND busy_until > $3
		ORDER BY scheduled_start, id
	`, farrierID, activeStatusArgs(), from, to)
	return collectBookings(rows, err)
}

func (r *PgRepository) ActiveBookingsStarting(ctx context.Context, from, to time.Time) ([]Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+`
		FROM bookings
		WHERE status = ANY($1)
		  AND scheduled_start >= $2
		  AND scheduled_start < $3
		ORDER BY farrier_id, scheduled_start, id
	`, activeStatusArgs(), from, to)
	return collectBookings(rows, err)
}

func (r *PgRepository) ListBookings(ctx context.Context, f Filter) ([]Booking, error) {
	var (
		where []string
		args  []any
	)
	if f.FarrierID != nil {
		args = append(args, *f.FarrierID)
		where = append(where, fmt.Sprintf("farrier_id = $%d", len(args)))
	}
	if f.OwnerID != nil {
		args = append(args, *f.OwnerID)
		where = append(where, fmt.Sprintf("horse_owner_id = $%d", len(args)))
	}
	if f.Status != nil {
		args = append(args, string(*f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	sql := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	sql += fmt.Sprintf(" ORDER BY scheduled_start DESC, id LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, sql, args...)
	return collectBookings(rows, err)
}

func (r *PgRepository) InsertBooking(ctx context.Context, b Booking) (*Booking, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO bookings (
			id, farrier_id, horse_owner_id, horse_id, service, city, address,
			scheduled_start, duration_minutes, busy_until, travel_fee, status,
			notes_from_owner, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		RETURNING `+bookingColumns,
		b.ID, b.FarrierID, b.HorseOwnerID, b.HorseID, b.Service, b.City, b.Address,
		b.ScheduledStart, b.DurationMinutes, b.BusyUntil, b.TravelFee, string(b.Status),
		b.NotesFromOwner,
	)

	created, err := scanBooking(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			return nil, ErrOverlap
		}
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateBookingStatus(ctx context.Context, id uuid.UUID, c StatusChange) (*Booking, error) {
	var completedAt *time.Time
	var cancelledAt *time.Time
	switch c.To {
	case StatusCompleted:
		completedAt = &c.At
	case StatusCancelled:
		cancelledAt = &c.At
	}

	row := r.db.QueryRow(ctx, `
		UPDATE bookings
		SET status = $2,
		    cancelled_by = COALESCE($4, cancelled_by),
		    cancellation_reason = COALESCE($5, cancellation_reason),
		    cancelled_at = COALESCE($6, cancelled_at),
		    completed_at = COALESCE($7, completed_at),
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING `+bookingColumns,
		id, string(c.To), string(c.From), c.CancelledBy, c.CancellationReason, cancelledAt, completedAt,
	)

	return scanBooking(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, booking_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.BookingID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func (r *PgRepository) RunInTx(ctx context.Context, fn func(ctx context.Context, tx Repository) error) error {
	if r.pool == nil {
		// Already inside a transaction.
		return fn(ctx, r)
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(ctx, &PgRepository{db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgExclusionViolation {
			return ErrOverlap
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
