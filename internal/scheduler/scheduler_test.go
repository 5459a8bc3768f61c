package scheduler

import (
	"context"
	"sync"
	"testing"

	"github.com/store177/shop-backend/internal/app/repository"
	"github.com/store177/shop-backend/internal/app/service"
	"github.com/store177/shop-backend/internal/db"
	"github.com/store177/shop-backend/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu   sync.Mutex
	sent map[int64][]notify.Message
}

func (r *recorder) Notify(ctx context.Context, recipientID int64, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = make(map[int64][]notify.Message)
	}
	r.sent[recipientID] = append(r.sent[recipientID], msg)
	return nil
}

type countingWarmer struct {
	calls int
}

func (w *countingWarmer) WarmCatalog(ctx context.Context) error {
	w.calls++
	return nil
}

func setupSchedulerTest(t *testing.T) (*Scheduler, service.ProductService, *recorder) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	products := service.NewProductService(repository.NewProductRepository(testDB), nil, nil)
	rec := &recorder{}
	s := NewScheduler(Config{LowStockThreshold: 2, AdminIDs: []int64{10, 20}}, products,
		repository.NewVariantRepository(testDB), rec)
	return s, products, rec
}

func TestSendLowStockDigest_NothingLow(t *testing.T) {
	s, products, rec := setupSchedulerTest(t)
	ctx := context.Background()

	_, err := products.CreateProduct(ctx, service.CreateProductInput{Title: "iPhone 15", Price: 79990, Stock: 10})
	require.NoError(t, err)

	n, err := s.SendLowStockDigest(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, rec.sent)
}

func TestSendLowStockDigest_NotifiesAdmins(t *testing.T) {
	s, products, rec := setupSchedulerTest(t)
	ctx := context.Background()

	_, err := products.CreateProduct(ctx, service.CreateProductInput{Title: "iPhone 15", Price: 79990, Stock: 1})
	require.NoError(t, err)
	_, err = products.CreateProduct(ctx, service.CreateProductInput{Title: "Pixel 8", Price: 59990, Stock: 2})
	require.NoError(t, err)
	_, err = products.CreateProduct(ctx, service.CreateProductInput{Title: "AirPods Pro", Price: 19990, Stock: 9})
	require.NoError(t, err)

	n, err := s.SendLowStockDigest(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, rec.sent, 2)
	for _, id := range []int64{10, 20} {
		require.Len(t, rec.sent[id], 1)
		msg := rec.sent[id][0]
		assert.Equal(t, notify.EventLowStock, msg.Event)
		assert.Contains(t, msg.Text, "iPhone 15")
		assert.Contains(t, msg.Text, "Pixel 8")
		assert.NotContains(t, msg.Text, "AirPods")
	}
}

func TestScheduler_StartRejectsBadSpec(t *testing.T) {
	warmer := &countingWarmer{}
	s := NewScheduler(Config{CatalogWarmSpec: "every now and then"}, warmer, nil, &recorder{})
	assert.Error(t, s.Start())
}

func TestScheduler_StartAndStop(t *testing.T) {
	warmer := &countingWarmer{}
	s := NewScheduler(Config{CatalogWarmSpec: "@every 1h", LowStockSpec: "0 9 * * *"}, warmer, nil, &recorder{})
	require.NoError(t, s.Start())
	assert.Len(t, s.cron.Entries(), 2)
	s.Stop()

	s.warmCatalog()
	assert.Equal(t, 1, warmer.calls)
}
