package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hovportalen/farrier-booking/internal/api"
	"github.com/hovportalen/farrier-booking/internal/config"
	"github.com/hovportalen/farrier-booking/internal/db"
)

type SimConfig struct {
	APIBaseURL    string
	Duration      time.Duration
	Workers       int
	BookingRatio  float64
	ConfirmRatio  float64
	CancelRatio   float64
	ReadRatio     float64
	DaysAhead     int
	FarrierLimit  int
	HorseLimit    int
	ServiceLength int // minutes
	PostgresDSN   string
}

type farrierInfo struct {
	ID     uuid.UUID
	Cities []string
}

type horseInfo struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

type bookingRef struct {
	ID        uuid.UUID
	FarrierID uuid.UUID
	OwnerID   uuid.UUID
}

type DataPool struct {
	Farriers []farrierInfo
	Horses   []horseInfo
	mu       sync.RWMutex
	bookings []bookingRef
}

func (dp *DataPool) AddBooking(b bookingRef) {
	dp.mu.Lock()
	defer dp.mu.Unlock()
	dp.bookings = append(dp.bookings, b)
}

func (dp *DataPool) RandomBooking(rng *rand.Rand) (bookingRef, bool) {
	dp.mu.RLock()
	defer dp.mu.RUnlock()
	if len(dp.bookings) == 0 {
		return bookingRef{}, false
	}
	return dp.bookings[rng.Intn(len(dp.bookings))], true
}

type OperationMetrics struct {
	Total     int64
	Success   int64
	Conflict  int64
	Error     int64
	Latencies []time.Duration
	mu        sync.Mutex
}

func (om *OperationMetrics) Record(latency time.Duration, success bool, conflict bool) {
	atomic.AddInt64(&om.Total, 1)
	if success {
		atomic.AddInt64(&om.Success, 1)
	} else if conflict {
		atomic.AddInt64(&om.Conflict, 1)
	} else {
		atomic.AddInt64(&om.Error, 1)
	}

	om.mu.Lock()
	om.Latencies = append(om.Latencies, latency)
	om.mu.Unlock()
}

func (om *OperationMetrics) Stats() (avg, min, max, p50, p95 time.Duration) {
	om.mu.Lock()
	defer om.mu.Unlock()

	if len(om.Latencies) == 0 {
		return 0, 0, 0, 0, 0
	}

	latencies := make([]time.Duration, len(om.Latencies))
	copy(latencies, om.Latencies)

	sort.Slice(latencies, func(i, j int) bool {
		return latencies[i] < latencies[j]
	})

	var sum time.Duration
	for _, l := range latencies {
		sum += l
	}

	avg = sum / time.Duration(len(latencies))
	min = latencies[0]
	max = latencies[len(latencies)-1]
	p50 = latencies[min2(len(latencies)*50/100, len(latencies)-1)]
	p95 = latencies[min2(len(latencies)*95/100, len(latencies)-1)]

	return avg, min, max, p50, p95
}

type Metrics struct {
	Slots   OperationMetrics
	Booking OperationMetrics
	Confirm OperationMetrics
	Cancel  OperationMetrics
	Areas   OperationMetrics
}

type Simulator struct {
	config  SimConfig
	pool    *DataPool
	client  *http.Client
	metrics Metrics

	// slot_unavailable and conflict are both 409; tracked apart for the report
	slotUnavailable int64
	raceConflict    int64
}

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("simulator starting")

	cfg := loadConfig()
	if err := validateConfig(cfg); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	log.Printf("config: duration=%s workers=%d booking=%.2f confirm=%.2f cancel=%.2f read=%.2f",
		cfg.Duration, cfg.Workers, cfg.BookingRatio, cfg.ConfirmRatio, cfg.CancelRatio, cfg.ReadRatio)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pgPool, err := db.ConnectPostgres(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pgPool.Close()

	dataPool, err := loadDataPool(ctx, pgPool, cfg)
	if err != nil {
		log.Fatalf("load data pool: %v", err)
	}

	log.Printf("loaded: %d farriers, %d horses", len(dataPool.Farriers), len(dataPool.Horses))

	sim := &Simulator{
		config: cfg,
		pool:   dataPool,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	sim.Run()
	sim.PrintReport()

	overlaps, err := countOverlaps(context.Background(), pgPool)
	if err != nil {
		log.Fatalf("overlap check: %v", err)
	}
	if overlaps > 0 {
		log.Fatalf("found %d overlapping active booking pairs", overlaps)
	}
	log.Println("overlap check passed: no farrier is double booked")
}

func loadConfig() SimConfig {
	baseCfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load base config: %v", err)
	}

	cfg := SimConfig{
		APIBaseURL:    getEnv("SIM_API_BASE_URL", "http://localhost:8080"),
		Duration:      getDuration("SIM_DURATION", 30*time.Second),
		Workers:       getInt("SIM_WORKERS", 10),
		BookingRatio:  getFloat("SIM_BOOKING_RATIO", 0.5),
		ConfirmRatio:  getFloat("SIM_CONFIRM_RATIO", 0.15),
		CancelRatio:   getFloat("SIM_CANCEL_RATIO", 0.05),
		ReadRatio:     getFloat("SIM_READ_RATIO", 0.3),
		DaysAhead:     getInt("SIM_DAYS_AHEAD", 7),
		FarrierLimit:  getInt("SIM_FARRIER_LIMIT", 10),
		HorseLimit:    getInt("SIM_HORSE_LIMIT", 2000),
		ServiceLength: getInt("SIM_SERVICE_MINUTES", 60),
		PostgresDSN:   baseCfg.PostgresDSN,
	}

	total := cfg.BookingRatio + cfg.ConfirmRatio + cfg.CancelRatio + cfg.ReadRatio
	if total > 0 {
		cfg.BookingRatio /= total
		cfg.ConfirmRatio /= total
		cfg.CancelRatio /= total
		cfg.ReadRatio /= total
	}

	return cfg
}

func validateConfig(cfg SimConfig) error {
	if cfg.PostgresDSN == "" {
		return fmt.Errorf("POSTGRES_DSN is required (set in .env or environment)")
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("SIM_WORKERS must be > 0")
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("SIM_DURATION must be > 0")
	}
	if cfg.DaysAhead <= 0 {
		return fmt.Errorf("SIM_DAYS_AHEAD must be > 0")
	}
	return nil
}

// loadDataPool picks a few farriers so workers contend for the same days.
func loadDataPool(ctx context.Context, pool *pgxpool.Pool, cfg SimConfig) (*DataPool, error) {
	dataPool := &DataPool{}

	rows, err := pool.Query(ctx, `
		SELECT f.id, array_agg(a.city ORDER BY a.city)
		FROM farriers f
		JOIN work_areas a ON a.farrier_id = f.id
		WHERE f.is_available
		GROUP BY f.id
		ORDER BY f.id
		LIMIT $1
	`, cfg.FarrierLimit)
	if err != nil {
		return nil, fmt.Errorf("load farriers: %w", err)
	}
	for rows.Next() {
		var f farrierInfo
		if err := rows.Scan(&f.ID, &f.Cities); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Farriers = append(dataPool.Farriers, f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = pool.Query(ctx, `SELECT id, owner_id FROM horses LIMIT $1`, cfg.HorseLimit)
	if err != nil {
		return nil, fmt.Errorf("load horses: %w", err)
	}
	for rows.Next() {
		var h horseInfo
		if err := rows.Scan(&h.ID, &h.OwnerID); err != nil {
			rows.Close()
			return nil, err
		}
		dataPool.Horses = append(dataPool.Horses, h)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dataPool.Farriers) == 0 {
		return nil, fmt.Errorf("no farriers with work areas loaded")
	}
	if len(dataPool.Horses) == 0 {
		return nil, fmt.Errorf("no horses loaded")
	}

	return dataPool, nil
}

// countOverlaps counts pairs of active bookings of one farrier whose busy
// intervals intersect. Anything above zero is a double booking.
func countOverlaps(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	var n int
	err := pool.QueryRow(ctx, `
		SELECT count(*)
		FROM bookings a
		JOIN bookings b
		  ON a.farrier_id = b.farrier_id
		 AND a.id < b.id
		 AND a.scheduled_start < b.busy_until
		 AND b.scheduled_start < a.busy_until
		WHERE a.status IN ('pending', 'confirmed', 'in_progress')
		  AND b.status IN ('pending', 'confirmed', 'in_progress')
	`).Scan(&n)
	return n, err
}

func (s *Simulator) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.Duration)
	defer cancel()

	log.Printf("starting simulation for %s with %d workers", s.config.Duration, s.config.Workers)

	var wg sync.WaitGroup
	for i := 0; i < s.config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	wg.Wait()
	log.Println("simulation complete")
}

func (s *Simulator) worker(ctx context.Context, workerID int) {
	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(workerID)))

	for {
		select {
		case <-ctx.Done():
			return
		default:
			r := rng.Float64()
			switch {
			case r < s.config.BookingRatio:
				s.doBooking(ctx, rng)
			case r < s.config.BookingRatio+s.config.ConfirmRatio:
				s.doTransition(ctx, rng, "confirm", &s.metrics.Confirm)
			case r < s.config.BookingRatio+s.config.ConfirmRatio+s.config.CancelRatio:
				s.doTransition(ctx, rng, "cancel", &s.metrics.Cancel)
			default:
				s.doAreaRead(ctx, rng)
			}
		}
	}
}

func (s *Simulator) randomDate(rng *rand.Rand) string {
	return time.Now().AddDate(0, 0, 1+rng.Intn(s.config.DaysAhead)).Format("2006-01-02")
}

// doBooking fetches slots for a random farrier and day and then tries to
// admit one of them, the way a booking form would.
func (s *Simulator) doBooking(ctx context.Context, rng *rand.Rand) {
	f := s.pool.Farriers[rng.Intn(len(s.pool.Farriers))]
	h := s.pool.Horses[rng.Intn(len(s.pool.Horses))]
	date := s.randomDate(rng)

	start := time.Now()
	var slots api.SlotsResponse
	status, err := s.getJSON(ctx, fmt.Sprintf("%s/farriers/%s/slots?date=%s&duration=%d",
		s.config.APIBaseURL, f.ID, date, s.config.ServiceLength), &slots)
	s.metrics.Slots.Record(time.Since(start), err == nil && status == http.StatusOK, false)
	if err != nil || status != http.StatusOK || len(slots.Slots) == 0 {
		return
	}

	slot := slots.Slots[rng.Intn(len(slots.Slots))]
	reqBody := api.AdmitBookingRequest{
		FarrierID:       f.ID.String(),
		HorseID:         h.ID.String(),
		Start:           slot.Start.Format(time.RFC3339),
		DurationMinutes: s.config.ServiceLength,
		Service:         "trim",
		City:            f.Cities[rng.Intn(len(f.Cities))],
	}
	body, _ := json.Marshal(reqBody)

	start = time.Now()
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, s.config.APIBaseURL+"/bookings", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderActorRole, "owner")
	req.Header.Set(api.HeaderActorID, h.OwnerID.String())

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()
		bodyBytes, _ := io.ReadAll(resp.Body)

		switch resp.StatusCode {
		case http.StatusCreated:
			success = true
			var b api.BookingResponse
			if json.Unmarshal(bodyBytes, &b) == nil && b.ID != uuid.Nil {
				s.pool.AddBooking(bookingRef{ID: b.ID, FarrierID: f.ID, OwnerID: h.OwnerID})
			}
		case http.StatusConflict:
			conflict = true
			var e api.ErrorResponse
			if json.Unmarshal(bodyBytes, &e) == nil && e.Error == "conflict" {
				atomic.AddInt64(&s.raceConflict, 1)
			} else {
				atomic.AddInt64(&s.slotUnavailable, 1)
			}
		}
	}

	s.metrics.Booking.Record(latency, success, conflict)
}

func (s *Simulator) doTransition(ctx context.Context, rng *rand.Rand, action string, om *OperationMetrics) {
	b, ok := s.pool.RandomBooking(rng)
	if !ok {
		return
	}

	role, id := "farrier", b.FarrierID
	if action == "cancel" && rng.Intn(2) == 0 {
		role, id = "owner", b.OwnerID
	}

	body, _ := json.Marshal(api.TransitionRequest{Action: action})
	start := time.Now()

	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/bookings/%s/transitions", s.config.APIBaseURL, b.ID), bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.HeaderActorRole, role)
	req.Header.Set(api.HeaderActorID, id.String())

	resp, err := s.client.Do(req)
	latency := time.Since(start)

	success := false
	conflict := false

	if err == nil {
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		if resp.StatusCode == http.StatusOK {
			success = true
		} else if resp.StatusCode == http.StatusConflict {
			// already confirmed or cancelled by another worker
			conflict = true
		}
	}

	om.Record(latency, success, conflict)
}

func (s *Simulator) doAreaRead(ctx context.Context, rng *rand.Rand) {
	f := s.pool.Farriers[rng.Intn(len(s.pool.Farriers))]
	city := f.Cities[rng.Intn(len(f.Cities))]

	start := time.Now()
	var out []api.FootprintResponse
	status, err := s.getJSON(ctx, fmt.Sprintf("%s/availability/farriers?area=%s&date=%s",
		s.config.APIBaseURL, url.QueryEscape(city), s.randomDate(rng)), &out)
	s.metrics.Areas.Record(time.Since(start), err == nil && status == http.StatusOK, false)
}

func (s *Simulator) getJSON(ctx context.Context, target string, dst any) (int, error) {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	return resp.StatusCode, json.NewDecoder(resp.Body).Decode(dst)
}

func (s *Simulator) PrintReport() {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("SIMULATION REPORT")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Duration: %s\n", s.config.Duration)
	fmt.Printf("Workers: %d\n", s.config.Workers)
	fmt.Printf("Farriers: %d, days ahead: %d\n", len(s.pool.Farriers), s.config.DaysAhead)
	fmt.Println()

	printOperationReport("Slots", &s.metrics.Slots)
	printOperationReport("Booking", &s.metrics.Booking)
	if n := atomic.LoadInt64(&s.metrics.Booking.Conflict); n > 0 {
		fmt.Printf("  of which conflict=%d slot_unavailable=%d\n\n",
			atomic.LoadInt64(&s.raceConflict), atomic.LoadInt64(&s.slotUnavailable))
	}
	printOperationReport("Confirm", &s.metrics.Confirm)
	printOperationReport("Cancel", &s.metrics.Cancel)
	printOperationReport("Farriers in area", &s.metrics.Areas)
}

func printOperationReport(name string, om *OperationMetrics) {
	total := atomic.LoadInt64(&om.Total)
	if total == 0 {
		return
	}

	success := atomic.LoadInt64(&om.Success)
	conflict := atomic.LoadInt64(&om.Conflict)
	failed := atomic.LoadInt64(&om.Error)

	avg, min, max, p50, p95 := om.Stats()

	fmt.Printf("%s:\n", name)
	fmt.Printf("  Total: %d\n", total)
	fmt.Printf("  Success: %d (%.1f%%)\n", success, float64(success)/float64(total)*100)
	if conflict > 0 {
		fmt.Printf("  Conflicts: %d (%.1f%%)\n", conflict, float64(conflict)/float64(total)*100)
	}
	if failed > 0 {
		fmt.Printf("  Errors: %d (%.1f%%)\n", failed, float64(failed)/float64(total)*100)
	}
	fmt.Printf("  Latency: avg=%s min=%s max=%s p50=%s p95=%s\n",
		avg.Round(time.Millisecond), min.Round(time.Millisecond), max.Round(time.Millisecond),
		p50.Round(time.Millisecond), p95.Round(time.Millisecond))
	fmt.Println()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func min2(a, b int) int {
	if a < b {
		return a
	}
	return b
}
