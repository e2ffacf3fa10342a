package mongo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	mongoadapter "github.com/robertarktes/studio-bookings/internal/adapters/mongo"
	"github.com/robertarktes/studio-bookings/internal/domain"
	"github.com/robertarktes/studio-bookings/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func setupMongo(t *testing.T) *mongo.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("container test")
	}
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	endpoint, err := container.Endpoint(ctx, "mongodb")
	require.NoError(t, err)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(endpoint))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(ctx) })

	return client.Database("studio_test")
}

func newBooking(date string) domain.Booking {
	return domain.NewBooking(domain.BookingDraft{
		ClientName:      "Maya",
		ClientPhone:     "0812",
		Date:            date,
		Time:            "10:00",
		SelectedPackage: "akad",
	}, domain.StatusPending, "", time.Now().UTC())
}

func TestBookingRepository_Lifecycle(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	repo := mongoadapter.NewBookingRepository(db, observability.NewDiscardLogger())
	require.NoError(t, repo.EnsureIndexes(ctx))

	b := newBooking("2025-03-10")
	require.NoError(t, repo.Insert(ctx, b))

	st := domain.Stamp{By: "Rina", At: time.Now().UTC()}
	require.NoError(t, repo.SetStatus(ctx, b.ID, domain.StatusConfirmed, st))
	require.NoError(t, repo.SnapshotPrice(ctx, b.ID, 5_000_000))
	require.NoError(t, repo.SnapshotPrice(ctx, b.ID, 9_999_999))

	p := domain.NewPayment(domain.PaymentInput{Amount: 1_000_000, Type: domain.PaymentDownPayment, Method: "transfer", Note: "dp"}, time.Now().UTC())
	require.NoError(t, repo.PushPayment(ctx, b.ID, p, st))
	require.NoError(t, repo.PullPayment(ctx, b.ID, "missing", st))

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Status)
	assert.Equal(t, int64(5_000_000), got.PackagePrice, "snapshot must not overwrite")
	assert.Equal(t, "Rina", got.LastUpdatedBy)
	require.Len(t, got.Payments, 1)
	assert.Equal(t, p.Amount, got.Payments[0].Amount)
	assert.Equal(t, p.Method, got.Payments[0].Method)
	assert.Equal(t, p.Note, got.Payments[0].Note)

	n := domain.NewNote("call back", "Rina", st.At)
	require.NoError(t, repo.PushNote(ctx, b.ID, n, st))
	require.NoError(t, repo.EditNote(ctx, b.ID, n.ID, "called", st))
	err = repo.EditNote(ctx, b.ID, "nope", "x", st)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	got, err = repo.Get(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got.Notes, 1)
	assert.Equal(t, "called", got.Notes[0].Body)

	require.NoError(t, repo.PullNote(ctx, b.ID, n.ID, st))
	require.NoError(t, repo.Delete(ctx, b.ID))

	_, err = repo.Get(ctx, b.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	err = repo.PushPayment(ctx, b.ID, p, st)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBookingRepository_ConcurrentPaymentsAreNotLost(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	repo := mongoadapter.NewBookingRepository(db, observability.NewDiscardLogger())

	b := newBooking("2025-04-01")
	require.NoError(t, repo.Insert(ctx, b))

	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p := domain.NewPayment(domain.PaymentInput{Amount: 100_000, Type: domain.PaymentInstallment}, time.Now().UTC())
			assert.NoError(t, repo.PushPayment(ctx, b.ID, p, domain.Stamp{By: "staff", At: time.Now().UTC()}))
		}()
	}
	wg.Wait()

	got, err := repo.Get(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, got.Payments, writers)
	assert.Equal(t, int64(writers*100_000), domain.TotalPaid(got.Payments))
}

func TestBookingRepository_ListFilters(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	repo := mongoadapter.NewBookingRepository(db, observability.NewDiscardLogger())

	a := newBooking("2025-05-02")
	a.Time = "14:00"
	b := newBooking("2025-05-02")
	b.Time = "09:00"
	c := newBooking("2025-05-20")
	c.Status = domain.StatusCancelled
	for _, bk := range []domain.Booking{a, b, c} {
		require.NoError(t, repo.Insert(ctx, bk))
	}

	day, err := repo.List(ctx, domain.BookingFilter{Date: "2025-05-02"})
	require.NoError(t, err)
	require.Len(t, day, 2)
	assert.Equal(t, b.ID, day[0].ID, "ordered by time")

	month, err := repo.List(ctx, domain.BookingFilter{From: "2025-05-01", To: "2025-05-31", ExcludeStatus: domain.StatusCancelled})
	require.NoError(t, err)
	assert.Len(t, month, 2)

	cancelled, err := repo.List(ctx, domain.BookingFilter{Status: domain.StatusCancelled})
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, c.ID, cancelled[0].ID)
}

func TestPackageRepository(t *testing.T) {
	db := setupMongo(t)
	ctx := context.Background()
	repo := mongoadapter.NewPackageRepository(db, observability.NewDiscardLogger())

	require.NoError(t, repo.Upsert(ctx, domain.Package{ID: "akad", Name: "Akad", Price: 4_500_000}))
	pkg, err := repo.Package(ctx, "akad")
	require.NoError(t, err)
	assert.Equal(t, "Akad", pkg.Name)

	_, err = repo.Package(ctx, "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	audit := mongoadapter.NewAuditLogger(db, observability.NewDiscardLogger())
	require.NoError(t, audit.LogEvent(ctx, "payment.added", "Rina", "bk-1", map[string]interface{}{"amount": 10}))
	logs, err := audit.History(ctx, "bk-1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "Rina", logs[0].Actor)
}
