package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hovportalen/farrier-booking/internal/db"
	"github.com/hovportalen/farrier-booking/internal/geo"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	if err := db.Migrate(context.Background(), pool); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	seed := uint64(time.Now().UnixNano())
	if v := os.Getenv("SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			seed = n
		}
	}
	faker := gofakeit.New(seed)
	log.Printf("seed=%d", seed)

	if err := seedFarriers(context.Background(), pool, faker, envInt("SEED_FARRIERS", 25)); err != nil {
		log.Fatalf("seed farriers: %v", err)
	}
	if err := seedHorses(context.Background(), pool, faker, envInt("SEED_OWNERS", 500)); err != nil {
		log.Fatalf("seed horses: %v", err)
	}

	log.Println("seed complete")
}

// shifts in minutes after midnight
var shifts = [][2]int{
	{7 * 60, 12 * 60},
	{8 * 60, 16 * 60},
	{9 * 60, 17 * 60},
	{13 * 60, 18 * 60},
}

// seedFarriers creates farriers with weekday windows and three to six work
// areas drawn from the gazetteer.
func seedFarriers(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, count int) error {
	log.Printf("seeding %d farriers", count)

	towns := geo.GazetteerNames()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i := 0; i < count; i++ {
		id := uuid.New()
		name := faker.LastName() + "s Hovslageri"
		radius := float64(faker.IntRange(0, 4) * 10)

		_, err := tx.Exec(ctx, `
			INSERT INTO farriers (id, user_id, business_name, travel_radius_km, is_available, created_at, updated_at)
			VALUES ($1, $1, $2, $3, true, now(), now())
		`, id, name, radius)
		if err != nil {
			return err
		}

		for day := 0; day < 5; day++ {
			if faker.IntRange(0, 9) == 0 {
				continue // the odd day off
			}
			shift := shifts[faker.IntRange(0, len(shifts)-1)]
			if _, err := tx.Exec(ctx, `
				INSERT INTO weekly_windows (id, farrier_id, day_of_week, start_time, end_time)
				VALUES ($1, $2, $3, $4, $5)
			`, uuid.New(), id, day, clock(shift[0]), clock(shift[1])); err != nil {
				return err
			}
		}

		picked := make([]string, len(towns))
		copy(picked, towns)
		faker.ShuffleStrings(picked)
		for _, town := range picked[:faker.IntRange(3, 6)] {
			if err := insertArea(ctx, tx, faker, id, town); err != nil {
				return err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("farriers seeded")
	return nil
}

func insertArea(ctx context.Context, tx pgx.Tx, faker *gofakeit.Faker, farrierID uuid.UUID, town string) error {
	var lat, lng *float64
	// leave some areas without coordinates so the gazetteer fallback is used
	if c, ok := geo.DefaultGazetteer[town]; ok && faker.Bool() {
		lat, lng = &c.Lat, &c.Lng
	}
	fee := float64(faker.IntRange(0, 6) * 50)

	_, err := tx.Exec(ctx, `
		INSERT INTO work_areas (id, farrier_id, city, latitude, longitude, travel_fee, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
	`, uuid.New(), farrierID, town, lat, lng, fee)
	return err
}

func seedHorses(ctx context.Context, pool *pgxpool.Pool, faker *gofakeit.Faker, owners int) error {
	log.Printf("seeding horses for %d owners", owners)

	const batchSize = 200

	for offset := 0; offset < owners; offset += batchSize {
		end := offset + batchSize
		if end > owners {
			end = owners
		}

		batch := &pgx.Batch{}
		for i := offset; i < end; i++ {
			ownerID := uuid.New()
			for h := faker.IntRange(1, 3); h > 0; h-- {
				batch.Queue(`INSERT INTO horses (id, owner_id, name) VALUES ($1, $2, $3)`,
					uuid.New(), ownerID, faker.PetName())
			}
		}

		if err := pool.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}

		log.Printf("owners seeded: %d/%d", end, owners)
	}

	log.Println("horses seeded")
	return nil
}

func clock(minute int) pgtype.Time {
	return pgtype.Time{Microseconds: int64(minute) * int64(time.Minute/time.Microsecond), Valid: true}
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
