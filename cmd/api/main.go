package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/studio-bookings/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/studio-bookings/internal/adapters/mongo"
	"github.com/robertarktes/studio-bookings/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/studio-bookings/internal/adapters/redis"
	"github.com/robertarktes/studio-bookings/internal/booking"
	"github.com/robertarktes/studio-bookings/internal/config"
	"github.com/robertarktes/studio-bookings/internal/domain"
	httphandler "github.com/robertarktes/studio-bookings/internal/http"
	"github.com/robertarktes/studio-bookings/internal/idempotency"
	"github.com/robertarktes/studio-bookings/internal/notify"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/orders"
	"github.com/robertarktes/studio-bookings/internal/rateLimit"
	"github.com/robertarktes/studio-bookings/internal/report"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdown, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdown()

	logger := observability.NewLogger()
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		log.Fatalf("failed to connect to crdb: %v", err)
	}
	defer pool.Close()
	orderRepo := crdb.NewRepository(pool, metrics)
	if err := orderRepo.Migrate(ctx); err != nil {
		log.Fatalf("failed to migrate crdb: %v", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	mongoDB := mongoClient.Database(cfg.MongoDatabase)
	bookingRepo := mongoadapter.NewBookingRepository(mongoDB, logger)
	if err := bookingRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("failed to create mongo indexes: %v", err)
	}
	packageRepo := mongoadapter.NewPackageRepository(mongoDB, logger)
	auditLog := mongoadapter.NewAuditLogger(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	defer func() { _ = redisClient.Close() }()
	redisCache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), cfg.IdempotencyTTL)
	rl := rateLimit.NewRateLimiter(redisCache, logger)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}
	defer rabbitPub.Close()

	opts := []booking.Option{
		booking.WithNotifier(notify.NewPublisher(rabbitPub, metrics)),
		booking.WithAuditor(auditLog),
		booking.WithMetrics(metrics),
		booking.WithLocation(cfg.Location()),
		booking.WithCapacity(cfg.DailyCapacity, cfg.AdvertisedDailyCapacity),
	}
	if cfg.CapacityGuard {
		opts = append(opts, booking.WithDateLocker(redisCache, cfg.CapacityGuardTTL))
	}
	if cfg.StrictTransitions {
		opts = append(opts, booking.WithPolicy(domain.DefaultMatrix))
	}
	bookingSvc := booking.NewService(bookingRepo, packageRepo, logger, opts...)
	orderSvc := orders.NewService(orderRepo, logger, orders.WithAuditor(auditLog))
	transactions := report.NewTransactions(orderRepo, bookingRepo, packageRepo, logger)
	dashboard := report.NewDashboard(orderRepo, bookingRepo, packageRepo, logger)

	handlers := httphandler.NewHandlers(bookingSvc, orderSvc, transactions, dashboard, packageRepo, map[string]httphandler.Pinger{
		"crdb":  orderRepo,
		"mongo": bookingRepo,
		"redis": redisCache,
	}, logger)

	r := httphandler.SetupRouter(handlers, httphandler.RouterConfig{
		JWTSecret:      []byte(cfg.JWTSecret),
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
		Metrics:        metrics,
		Limiter:        rl,
		Idempotency:    idemp,
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
