package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/pedalpost/rental-api/internal/app"
	"github.com/pedalpost/rental-api/internal/clock"
	"github.com/pedalpost/rental-api/internal/config"
	"github.com/pedalpost/rental-api/internal/notify"
	"github.com/pedalpost/rental-api/internal/payment"
	"github.com/pedalpost/rental-api/internal/schedule"
	"github.com/pedalpost/rental-api/internal/storage/postgres"
	transporthttp "github.com/pedalpost/rental-api/internal/transport/http"
	"github.com/pedalpost/rental-api/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := log.Default()

	cfg, err := config.Load(logger)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(startupCtx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	var notifier app.Notifier
	amqpConn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		logger.Printf("WARN: amqp dial failed, notifications disabled: %v", err)
	} else {
		defer amqpConn.Close()
		publisher, err := notify.NewAMQPPublisher(amqpConn, cfg.NotifyQueue)
		if err != nil {
			log.Fatalf("declare notify queue: %v", err)
		}
		defer publisher.Close()
		notifier = publisher
	}

	builder := schedule.NewBuilder(cfg.Timezone, cfg.ShopHours)
	clk := clock.NewSystem()

	reservationRepo := postgres.NewReservationRepository(pool)
	waiverRepo := postgres.NewWaiverRepository(pool)
	gateway := payment.NewClient(cfg.GatewayURL)
	reservationSvc := app.NewReservationService(
		reservationRepo, gateway, waiverRepo, notifier, builder, clk,
		app.WithHoldTTL(cfg.HoldTTL),
		app.WithLogger(logger),
	)

	availabilityRepo := postgres.NewAvailabilityRepository(pool)
	availabilitySvc := app.NewAvailabilityService(availabilityRepo, builder, clk)

	inventoryRepo := postgres.NewInventoryRepository(pool)
	inventorySvc := app.NewInventoryService(inventoryRepo)

	router := transporthttp.NewRouter(
		availabilitySvc,
		transporthttp.NewReservationHandler(reservationSvc),
		transporthttp.NewAdminHandler(inventorySvc, reservationSvc),
	)
	handler := transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, router), logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
