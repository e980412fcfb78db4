package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hovportalen/farrier-booking/internal/admission"
	"github.com/hovportalen/farrier-booking/internal/api"
	"github.com/hovportalen/farrier-booking/internal/availability"
	"github.com/hovportalen/farrier-booking/internal/booking"
	"github.com/hovportalen/farrier-booking/internal/config"
	"github.com/hovportalen/farrier-booking/internal/db"
	"github.com/hovportalen/farrier-booking/internal/events"
	"github.com/hovportalen/farrier-booking/internal/farrier"
	"github.com/hovportalen/farrier-booking/internal/geo"
	redisclient "github.com/hovportalen/farrier-booking/internal/redis"
)

var version = "dev"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s timezone=%s", cfg.Env, cfg.HTTPPort, cfg.Location)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	if cfg.MigrateOnStart {
		if err := db.Migrate(rootCtx, pgPool); err != nil {
			log.Fatalf("migration error: %v", err)
		}
		log.Println("schema applied")
	}

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(rootCtx, cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	var publisher events.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			log.Fatalf("kafka publisher error: %v", err)
		}
		defer func() {
			if err := kp.Close(); err != nil {
				log.Printf("error closing kafka publisher: %v", err)
			}
		}()
		publisher = kp
		log.Printf("publishing booking events to topic=%s", cfg.KafkaTopic)
	} else {
		log.Println("KAFKA_BROKERS not set, booking events are only written to event_logs")
	}

	farrierRepo := farrier.NewPgRepository(pgPool)
	bookingRepo := booking.NewPgRepository(pgPool)

	engine := availability.NewEngine(farrierRepo, bookingRepo, availability.Settings{
		Location:        cfg.Location,
		Granularity:     cfg.SlotGranularity,
		Buffer:          cfg.BookingBuffer,
		DefaultRadiusKm: cfg.DefaultTravelRadiusKm,
		Gazetteer:       geo.DefaultGazetteer,
	})

	controller := admission.NewController(
		farrierRepo,
		bookingRepo,
		engine,
		redisclient.NewRedisDayLocker(rdb, cfg.LockTTL),
		publisher,
		admission.Options{CancelAfterStart: cfg.CancelAfterStart},
	)

	log.Printf("config: granularity=%dm buffer=%s default_radius_km=%g lock_ttl=%s shutdown_timeout=%s",
		cfg.SlotGranularity, cfg.BookingBuffer, cfg.DefaultTravelRadiusKm, cfg.LockTTL, cfg.ShutdownTimeout)

	router := api.NewRouter(api.RouterConfig{
		Availability: engine,
		Bookings:     controller,
		Schedule:     farrier.NewService(farrierRepo),
		Health:       api.NewHealthHandler(pgPool, rdb, cfg.Env, version),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("http server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown error: %v", err)
	}

	log.Println("api-server stopped")
}
