package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/robertarktes/studio-bookings/internal/adapters/rabbit"
	"github.com/robertarktes/studio-bookings/internal/config"
	"github.com/robertarktes/studio-bookings/internal/notify"
	"github.com/robertarktes/studio-bookings/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, cfg.NotifyQueue, []string{
		notify.RKBookingCreated,
		notify.RKOrderCreated,
		notify.RKOrderPaymentStatus,
	}, logger)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}
	defer consumer.Close()

	handler := notify.NewHandler(notify.NewLogSink(logger), logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.WithField("queue", cfg.NotifyQueue).Info("Notification worker started")
	if err := consumer.Run(ctx, handler.Handle); err != nil {
		logger.WithError(err).Error("consumer stopped")
	}
	logger.Info("Shutdown notification worker")
}
