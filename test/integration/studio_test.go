package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/robertarktes/studio-bookings/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/studio-bookings/internal/adapters/mongo"
	"github.com/robertarktes/studio-bookings/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/studio-bookings/internal/adapters/redis"
	"github.com/robertarktes/studio-bookings/internal/booking"
	"github.com/robertarktes/studio-bookings/internal/domain"
	httphandler "github.com/robertarktes/studio-bookings/internal/http"
	"github.com/robertarktes/studio-bookings/internal/idempotency"
	"github.com/robertarktes/studio-bookings/internal/notify"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/robertarktes/studio-bookings/internal/orders"
	"github.com/robertarktes/studio-bookings/internal/outbox"
	"github.com/robertarktes/studio-bookings/internal/rateLimit"
	"github.com/robertarktes/studio-bookings/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{ContainerRequest: req, Started: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(ctx) })
	return c
}

func endpoint(t *testing.T, c testcontainers.Container, port nat.Port) string {
	t.Helper()
	ctx := context.Background()
	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, port)
	require.NoError(t, err)
	return host + ":" + mapped.Port()
}

type delivery struct {
	key  string
	body []byte
}

func TestIntegration_BookingConfirmPayAndOrderEvents(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	ctx := context.Background()

	crdbC := startContainer(t, testcontainers.ContainerRequest{
		Image:        "cockroachdb/cockroach:v24.1.1",
		Cmd:          []string{"start-single-node", "--insecure"},
		ExposedPorts: []string{"26257/tcp", "8080/tcp"},
		WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
	})
	mongoC := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForListeningPort("27017/tcp"),
	})
	redisC := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
	})
	rabbitC := startContainer(t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13-management",
		ExposedPorts: []string{"5672/tcp", "15672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(2 * time.Minute),
	})

	logger := observability.NewDiscardLogger()
	reg := prometheus.NewRegistry()
	metrics := observability.NewMetrics(reg)

	pool, err := pgxpool.New(ctx, "postgresql://root@"+endpoint(t, crdbC, "26257")+"/defaultdb?sslmode=disable")
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	orderRepo := crdb.NewRepository(pool, metrics)
	require.NoError(t, orderRepo.Migrate(ctx))

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://"+endpoint(t, mongoC, "27017")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = mongoClient.Disconnect(ctx) })
	db := mongoClient.Database("studio_it")
	bookingRepo := mongoadapter.NewBookingRepository(db, logger)
	require.NoError(t, bookingRepo.EnsureIndexes(ctx))
	packageRepo := mongoadapter.NewPackageRepository(db, logger)
	auditLog := mongoadapter.NewAuditLogger(db, logger)
	require.NoError(t, packageRepo.Upsert(ctx, domain.Package{ID: "akad", Name: "Akad Nikah", Price: 5_000_000}))

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: endpoint(t, redisC, "6379")})
	t.Cleanup(func() { _ = redisClient.Close() })
	cache := redisadapter.NewCache(redisClient)

	rabbitConn, err := amqp.Dial("amqp://guest:guest@" + endpoint(t, rabbitC, "5672") + "/")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rabbitConn.Close() })
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	require.NoError(t, err)

	consumer, err := rabbit.NewConsumer(rabbitConn, "studio.it.q", []string{notify.RKBookingCreated, notify.RKOrderCreated, notify.RKOrderPaymentStatus}, logger)
	require.NoError(t, err)
	received := make(chan delivery, 16)
	consumeCtx, stopConsumer := context.WithCancel(ctx)
	t.Cleanup(stopConsumer)
	go func() {
		_ = consumer.Run(consumeCtx, func(_ context.Context, key string, body []byte) error {
			received <- delivery{key: key, body: body}
			return nil
		})
	}()

	bookingSvc := booking.NewService(bookingRepo, packageRepo, logger,
		booking.WithNotifier(notify.NewPublisher(rabbitPub, metrics)),
		booking.WithAuditor(auditLog),
		booking.WithDateLocker(cache, 5*time.Second),
		booking.WithMetrics(metrics),
	)
	orderSvc := orders.NewService(orderRepo, logger, orders.WithAuditor(auditLog))
	handlers := httphandler.NewHandlers(bookingSvc, orderSvc, report.NewTransactions(orderRepo, bookingRepo, packageRepo, logger),
		report.NewDashboard(orderRepo, bookingRepo, packageRepo, logger), packageRepo,
		map[string]httphandler.Pinger{"crdb": orderRepo, "mongo": bookingRepo, "redis": cache}, logger)
	secret := []byte("integration-secret")
	srv := httptest.NewServer(httphandler.SetupRouter(handlers, httphandler.RouterConfig{
		JWTSecret:   secret,
		Logger:      logger,
		Metrics:     metrics,
		Gatherer:    reg,
		Limiter:     rateLimit.NewRateLimiter(cache, logger),
		Idempotency: idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour),
	}))
	t.Cleanup(srv.Close)
	token, err := httphandler.NewStaffToken(secret, "Rina", "ADMIN", time.Hour)
	require.NoError(t, err)

	call := func(method, path string, body interface{}, headers ...string) (int, []byte) {
		t.Helper()
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		if body == nil {
			raw = nil
		}
		req, err := http.NewRequest(method, srv.URL+path, bytes.NewReader(raw))
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		for i := 0; i+1 < len(headers); i += 2 {
			req.Header.Set(headers[i], headers[i+1])
		}
		resp, err := srv.Client().Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		var buf bytes.Buffer
		_, err = buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		return resp.StatusCode, buf.Bytes()
	}
	staff := func(method, path string, body interface{}) (int, []byte) {
		return call(method, path, body, "Authorization", "Bearer "+token)
	}
	waitFor := func(key string) delivery {
		t.Helper()
		timeout := time.After(15 * time.Second)
		for {
			select {
			case d := <-received:
				if d.key == key {
					return d
				}
			case <-timeout:
				t.Fatalf("no %s message received", key)
			}
		}
	}

	status, _ := call(http.MethodGet, "/v1/readyz", nil)
	require.Equal(t, http.StatusOK, status)

	// Public submission, retried with the same key.
	date := time.Now().AddDate(0, 1, 0).Format(domain.DateLayout)
	form := map[string]interface{}{"clientName": "Nadia", "clientPhone": "081234", "date": date, "time": "10:00", "selectedPackage": "akad"}
	status, body := call(http.MethodPost, "/v1/bookings?lang=en", form, "Idempotency-Key", "it-key-0000000000001")
	require.Equal(t, http.StatusCreated, status, string(body))
	var b domain.Booking
	require.NoError(t, json.Unmarshal(body, &b))
	status, replay := call(http.MethodPost, "/v1/bookings?lang=en", form, "Idempotency-Key", "it-key-0000000000001")
	require.Equal(t, http.StatusCreated, status)
	assert.JSONEq(t, string(body), string(replay))

	ev := waitFor(notify.RKBookingCreated)
	var created notify.BookingCreated
	require.NoError(t, json.Unmarshal(ev.body, &created))
	assert.Equal(t, b.ID, created.BookingID)
	assert.Equal(t, "en", created.Lang)

	// Staff confirm, price snapshot, down payment, invoice.
	base := "/v1/admin/bookings/" + b.ID
	status, body = staff(http.MethodPut, base+"/status", map[string]string{"status": "Confirmed"})
	require.Equal(t, http.StatusOK, status, string(body))
	require.NoError(t, json.Unmarshal(body, &b))
	assert.Equal(t, int64(5_000_000), b.PackagePrice)

	require.NoError(t, packageRepo.Upsert(ctx, domain.Package{ID: "akad", Name: "Akad Nikah", Price: 6_000_000}))

	status, _ = staff(http.MethodPost, base+"/payments", map[string]interface{}{"amount": 1_000_000, "type": "dp"})
	require.Equal(t, http.StatusCreated, status)

	status, body = staff(http.MethodGet, base+"/invoice", nil)
	require.Equal(t, http.StatusOK, status)
	var inv domain.Invoice
	require.NoError(t, json.Unmarshal(body, &inv))
	assert.Equal(t, domain.PaymentPartial, inv.Status)
	assert.Equal(t, int64(4_000_000), inv.Remaining, "snapshot survives a catalogue price change")
	assert.True(t, strings.HasSuffix(inv.Number, strings.ToUpper(b.ID[len(b.ID)-6:])))

	history, err := auditLog.History(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	// Orders go through the outbox.
	status, body = staff(http.MethodPost, "/v1/admin/orders", map[string]interface{}{
		"clientName": "Dewi", "clientPhone": "0813", "totalAmount": 750_000, "dpAmount": 250_000, "paymentStatus": "Partial",
	})
	require.Equal(t, http.StatusCreated, status, string(body))
	var o domain.Order
	require.NoError(t, json.Unmarshal(body, &o))
	history, err = auditLog.History(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	n, err := outbox.NewPublisher(orderRepo, rabbitPub, logger, metrics).RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	ev = waitFor(notify.RKOrderCreated)
	assert.Contains(t, string(ev.body), o.ID)

	status, body = staff(http.MethodGet, "/v1/admin/transactions", nil)
	require.Equal(t, http.StatusOK, status)
	var tx struct {
		Items  []json.RawMessage        `json:"items"`
		Totals domain.TransactionTotals `json:"totals"`
	}
	require.NoError(t, json.Unmarshal(body, &tx))
	assert.Len(t, tx.Items, 2)
	assert.Equal(t, int64(5_750_000), tx.Totals.Revenue)
	assert.Equal(t, int64(1_250_000), tx.Totals.Paid)
}
