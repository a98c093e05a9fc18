package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/safarhub/ride-booking/internal/client"
	"github.com/safarhub/ride-booking/internal/consumer"
	"github.com/safarhub/ride-booking/internal/metrics"
	"github.com/safarhub/ride-booking/internal/repository"
	"github.com/safarhub/ride-booking/pkg/breaker"
	"github.com/safarhub/ride-booking/pkg/config"
	"github.com/safarhub/ride-booking/pkg/database"
	"github.com/safarhub/ride-booking/pkg/httpclient"
	"github.com/safarhub/ride-booking/pkg/idempotency"
	"github.com/safarhub/ride-booking/pkg/kafka"
	"github.com/safarhub/ride-booking/pkg/logger"
	pkgredis "github.com/safarhub/ride-booking/pkg/redis"
	"github.com/safarhub/ride-booking/pkg/retry"
	"github.com/safarhub/ride-booking/pkg/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: "payment-worker",
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting payment worker...")

	ctx := context.Background()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    "payment-worker",
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

	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Redis connection failed: %v", err))
	}
	defer redisClient.Close()

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID + "-dlq",
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Kafka producer connection failed: %v", err))
	}
	defer producer.Close()

	rideHTTP := httpclient.New(&httpclient.Config{
		Timeout: cfg.Services.CallTimeout,
		Breaker: breaker.New(breaker.DefaultConfig()),
	})
	rideClient := client.NewRideClient(cfg.Services.RideServiceURL, cfg.Services.InternalToken, rideHTTP)

	recorder, err := metrics.NewOTelRecorder()
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Metrics init failed: %v", err))
	}

	reactor := consumer.NewReactor(&consumer.ReactorConfig{
		Repo:     repository.NewPostgresBookingRepository(db.Pool()),
		Rides:    rideClient,
		Recorder: recorder,
	})

	dlq := retry.NewDLQHandler(producer, &retry.DLQHandlerConfig{
		Source: "payment-worker",
		OnDLQ: func(msg *retry.DLQMessage) {
			recorder.EventDeadLettered(context.Background(), msg.OriginalTopic)
			appLog.Error("event moved to DLQ",
				zap.String("topic", msg.OriginalTopic),
				zap.String("key", msg.OriginalKey),
				zap.String("error", msg.Error),
				zap.Int("attempts", msg.Attempts))
		},
	})

	paymentConsumer := consumer.NewPaymentConsumer(&consumer.PaymentConsumerConfig{
		Reactor:  reactor,
		Guard:    idempotency.New(redisClient, idempotency.DefaultTTL),
		DLQ:      dlq,
		Recorder: recorder,
	})

	kafkaConsumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:  cfg.Kafka.Brokers,
		GroupID:  cfg.Kafka.ConsumerGroup,
		ClientID: cfg.Kafka.ClientID,
		Topics:   consumer.PaymentTopics,
	}, paymentConsumer.Handle, func(err error) {
		appLog.Error(fmt.Sprintf("Consumer error: %v", err))
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Kafka consumer connection failed: %v", err))
	}

	runCtx, stop := context.WithCancel(ctx)
	go func() {
		if err := kafkaConsumer.Run(runCtx); err != nil && err != context.Canceled {
			appLog.Error(fmt.Sprintf("Consumer stopped: %v", err))
		}
	}()
	appLog.Info(fmt.Sprintf("Consuming payment events from %v", consumer.PaymentTopics))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down payment worker...")

	stop()
	kafkaConsumer.Stop()

	appLog.Info("Payment worker exited gracefully")
}
