package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safarhub/ride-booking/internal/client"
	"github.com/safarhub/ride-booking/internal/handler"
	"github.com/safarhub/ride-booking/internal/metrics"
	"github.com/safarhub/ride-booking/internal/repository"
	"github.com/safarhub/ride-booking/internal/saga"
	"github.com/safarhub/ride-booking/pkg/breaker"
	"github.com/safarhub/ride-booking/pkg/config"
	"github.com/safarhub/ride-booking/pkg/database"
	"github.com/safarhub/ride-booking/pkg/httpclient"
	"github.com/safarhub/ride-booking/pkg/kafka"
	"github.com/safarhub/ride-booking/pkg/logger"
	"github.com/safarhub/ride-booking/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "booking-api",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting booking API...")

	ctx := context.Background()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "booking-api",
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Fatal(fmt.Sprintf("Telemetry init failed: %v", err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:          cfg.Database.Host,
		Port:          cfg.Database.Port,
		User:          cfg.Database.User,
		Password:      cfg.Database.Password,
		Database:      cfg.Database.DBName,
		SSLMode:       cfg.Database.SSLMode,
		MaxConns:      cfg.Database.MaxConns,
		MinConns:      cfg.Database.MinConns,
		EnableTracing: cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Kafka connection failed: %v", err))
	}
	defer producer.Close()

	// Each upstream gets its own breaker so a wallet outage cannot trip
	// calls to the ride service.
	rideHTTP := httpclient.New(&httpclient.Config{
		Timeout: cfg.Services.CallTimeout,
		Breaker: breaker.New(breaker.DefaultConfig()),
	})
	walletHTTP := httpclient.New(&httpclient.Config{
		Timeout: cfg.Services.CallTimeout,
		Breaker: breaker.New(breaker.DefaultConfig()),
	})

	rideClient := client.NewRideClient(cfg.Services.RideServiceURL, cfg.Services.InternalToken, rideHTTP)
	walletClient := client.NewWalletClient(cfg.Services.WalletServiceURL, cfg.Services.InternalToken, walletHTTP)

	recorder, err := metrics.NewOTelRecorder()
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Metrics init failed: %v", err))
	}

	bookingRepo := repository.NewPostgresBookingRepository(db.Pool())
	orchestrator := saga.NewOrchestrator(&saga.OrchestratorConfig{
		Rides:    rideClient,
		Wallet:   walletClient,
		Repo:     bookingRepo,
		Bus:      producer,
		Recorder: recorder,
	})

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	healthHandler := handler.NewHealthHandler(map[string]handler.Pinger{
		"postgres": db,
	})
	router.GET("/health", healthHandler.Health)

	v1 := router.Group("/api/v1")
	handler.NewBookingHandler(orchestrator).RegisterRoutes(v1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		appLog.Info(fmt.Sprintf("Booking API listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Fatal(fmt.Sprintf("Server forced to shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
