package farrier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const microsPerMinute = int64(time.Minute / time.Microsecond)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanFarrier(row pgx.Row) (*Farrier, error) {
	var f Farrier
	var radius *float64

	err := row.Scan(
		&f.ID,
		&f.UserID,
		&f.BusinessName,
		&radius,
		&f.IsAvailable,
		&f.CreatedAt,
		&f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrFarrierNotFound
		}
		return nil, err
	}

	if radius != nil {
		f.TravelRadiusKm = *radius
	}
	return &f, nil
}

func scanWindow(row pgx.Row) (*WeeklyWindow, error) {
	var w WeeklyWindow
	var start, end pgtype.Time

	err := row.Scan(&w.ID, &w.FarrierID, &w.DayOfWeek, &start, &end)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	w.StartMinute = int(start.Microseconds / microsPerMinute)
	w.EndMinute = int(end.Microseconds / microsPerMinute)
	return &w, nil
}

func scanArea(row pgx.Row) (*WorkArea, error) {
	var a WorkArea

	err := row.Scan(
		&a.ID,
		&a.FarrierID,
		&a.City,
		&a.PostalCodePrefix,
		&a.Latitude,
		&a.Longitude,
		&a.TravelFee,
		&a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAreaNotFound
		}
		return nil, err
	}

	return &a, nil
}

func minuteToTime(m int) pgtype.Time {
	return pgtype.Time{Microseconds: int64(m) * microsPerMinute, Valid: true}
}

// Interface methods

func (r *PgRepository) GetFarrier(ctx context.Context, id uuid.UUID) (*Farrier, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, business_name, travel_radius_km, is_available, created_at, updated_at
		FROM farriers
		WHERE id = $1
	`, id)
	return scanFarrier(row)
}

func (r *PgRepository) GetHorse(ctx context.Context, id uuid.UUID) (*Horse, error) {
	var h Horse
	err := r.pool.QueryRow(ctx, `
		SELECT id, owner_id, name
		FROM horses
		WHERE id = $1
	`, id).Scan(&h.ID, &h.OwnerID, &h.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrHorseNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *PgRepository) ListWeeklyWindows(ctx context.Context, farrierID uuid.UUID) ([]WeeklyWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, farrier_id, day_of_week, start_time, end_time
		FROM weekly_windows
		WHERE farrier_id = $1
		ORDER BY day_of_week, start_time, id
	`, farrierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WeeklyWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) ListWorkAreas(ctx context.Context, farrierID uuid.UUID) ([]WorkArea, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, farrier_id, city, postal_code_prefix, latitude, longitude, travel_fee, created_at
		FROM work_areas
		WHERE farrier_id = $1
		ORDER BY city, id
	`, farrierID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []WorkArea
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertWeeklyWindow(ctx context.Context, w WeeklyWindow) (*WeeklyWindow, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO weekly_windows (id, farrier_id, day_of_week, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, farrier_id, day_of_week, start_time, end_time
	`, uuid.New(), w.FarrierID, w.DayOfWeek, minuteToTime(w.StartMinute), minuteToTime(w.EndMinute))
	return scanWindow(row)
}

func (r *PgRepository) DeleteWeeklyWindow(ctx context.Context, farrierID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM weekly_windows
		WHERE id = $1 AND farrier_id = $2
	`, id, farrierID)
	if err != nil {
		return fmt.Errorf("delete weekly window: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}

func (r *PgRepository) InsertWorkArea(ctx context.Context, a WorkArea) (*WorkArea, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO work_areas (id, farrier_id, city, postal_code_prefix, latitude, longitude, travel_fee, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		RETURNING id, farrier_id, city, postal_code_prefix, latitude, longitude, travel_fee, created_at
	`, uuid.New(), a.FarrierID, a.City, a.PostalCodePrefix, a.Latitude, a.Longitude, a.TravelFee)
	return scanArea(row)
}

func (r *PgRepository) DeleteWorkArea(ctx context.Context, farrierID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM work_areas
		WHERE id = $1 AND farrier_id = $2
	`, id, farrierID)
	if err != nil {
		return fmt.Errorf("delete work area: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAreaNotFound
	}
	return nil
}

func (r *PgRepository) UpdateTravelRadius(ctx context.Context, farrierID uuid.UUID, km float64) (*Farrier, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE farriers
		SET travel_radius_km = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING id, user_id, business_name, travel_radius_km, is_available, created_at, updated_at
	`, farrierID, km)
	return scanFarrier(row)
}
