package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"groupbuy-backend/internal/domain"
	"groupbuy-backend/internal/infrastructure/repo"
)

func newAdminFixture(t *testing.T) (*AdminService, *repo.MemoryRepo, *fakePlatform, *recordedEvents) {
	t.Helper()
	r := repo.NewMemoryRepo()
	p := &fakePlatform{configured: true}
	ev := &recordedEvents{}
	sync := &SyncService{Orders: r, Platform: p}
	return &AdminService{Orders: r, Merchants: r, Assets: &memAssets{}, Sync: sync, Events: ev}, r, p, ev
}

func TestAdminListOrdersPaging(t *testing.T) {
	s, r, _, _ := newAdminFixture(t)
	ctx := context.Background()
	proof := "/uploads/p.png"
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.CreateOrder(ctx, &domain.Order{
			ID: id, Phone: "0400", PaymentProofRef: &proof,
			Items: []domain.LineItem{{Title: "x", Price: "2.50", Quantity: 2}},
		}))
	}

	page, err := s.ListOrders(ctx, domain.OrderFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Orders, 2)
	assert.Equal(t, "5.00", page.Orders[0].Total)
	assert.Equal(t, "https://cdn.test/uploads/p.png", page.Orders[0].ProofURL)

	page, err = s.ListOrders(ctx, domain.OrderFilter{Limit: 1000})
	require.NoError(t, err)
	assert.Equal(t, 100, page.Limit)
}

func TestAdminUpdateStatus(t *testing.T) {
	s, r, _, ev := newAdminFixture(t)
	ctx := context.Background()
	require.NoError(t, r.CreateOrder(ctx, &domain.Order{ID: "o1", Status: domain.OrderNew}))

	o, err := s.UpdateStatus(ctx, "o1", "delivering")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivering, o.Status)

	_, err = s.UpdateStatus(ctx, "o1", "delivering")
	assert.NoError(t, err, "same status")

	var conflict ErrConflict
	_, err = s.UpdateStatus(ctx, "o1", "preparing")
	assert.ErrorAs(t, err, &conflict)

	var bad ErrBadRequest
	_, err = s.UpdateStatus(ctx, "o1", "lost")
	assert.ErrorAs(t, err, &bad)

	_, err = s.UpdateStatus(ctx, "o1", "completed")
	require.NoError(t, err)
	_, err = s.UpdateStatus(ctx, "o1", "cancelled")
	assert.ErrorAs(t, err, &conflict, "completed is final")

	require.Len(t, ev.evs, 2)
	assert.Equal(t, "new", ev.evs[0].Data["from"])
}

func TestAdminLogsChanges(t *testing.T) {
	s, r, _, _ := newAdminFixture(t)
	core, logs := observer.New(zap.InfoLevel)
	s.Log = zap.New(core)
	ctx := context.Background()
	require.NoError(t, r.CreateOrder(ctx, &domain.Order{ID: "o1", Status: domain.OrderNew}))

	_, err := s.UpdateStatus(ctx, "o1", "delivering")
	require.NoError(t, err)
	require.NoError(t, s.DeleteOrder(ctx, "o1"))

	changed := logs.FilterMessage("order status changed").All()
	require.Len(t, changed, 1)
	assert.Equal(t, "delivering", changed[0].ContextMap()["to"])
	assert.Equal(t, 1, logs.FilterMessage("order deleted").Len())
}

// racingOrders calls after once each read returns, standing in for a second
// admin editing the same order.
type racingOrders struct {
	OrderRepo
	after func()
}

func (r racingOrders) GetOrder(ctx context.Context, id string) (*domain.Order, bool, error) {
	o, ok, err := r.OrderRepo.GetOrder(ctx, id)
	if r.after != nil {
		r.after()
	}
	return o, ok, err
}

func TestAdminUpdateStatusLosesRace(t *testing.T) {
	s, r, _, ev := newAdminFixture(t)
	ctx := context.Background()
	require.NoError(t, r.CreateOrder(ctx, &domain.Order{ID: "o1", Status: domain.OrderNew}))
	s.Orders = racingOrders{OrderRepo: r, after: func() {
		_, _ = r.UpdateStatus(ctx, "o1", domain.OrderNew, domain.OrderCompleted)
	}}

	var conflict ErrConflict
	_, err := s.UpdateStatus(ctx, "o1", "cancelled")
	assert.ErrorAs(t, err, &conflict)

	o, _, _ := r.GetOrder(ctx, "o1")
	assert.Equal(t, domain.OrderCompleted, o.Status)
	assert.Empty(t, ev.evs)
}

func TestAdminDeleteAndResync(t *testing.T) {
	s, r, p, _ := newAdminFixture(t)
	ctx := context.Background()
	ext := "900"
	require.NoError(t, r.CreateOrder(ctx, &domain.Order{ID: "synced", ExternalOrderID: &ext}))
	require.NoError(t, r.CreateOrder(ctx, &domain.Order{ID: "local"}))

	var conflict ErrConflict
	_, err := s.ResyncOrder(ctx, "synced")
	assert.ErrorAs(t, err, &conflict)

	out, err := s.ResyncOrder(ctx, "local")
	require.NoError(t, err)
	assert.Equal(t, RemoteSynced, out.Remote.State)

	p.deleteErr = errors.New("boom")
	var up ErrUpstream
	assert.ErrorAs(t, s.DeleteOrder(ctx, "synced"), &up)
	_, ok, _ := r.GetOrder(ctx, "synced")
	assert.True(t, ok)

	p.deleteErr = nil
	require.NoError(t, s.DeleteOrder(ctx, "synced"))
	_, ok, _ = r.GetOrder(ctx, "synced")
	assert.False(t, ok)

	var nf ErrNotFound
	assert.ErrorAs(t, s.DeleteOrder(ctx, "synced"), &nf)
}

func TestAdminMerchants(t *testing.T) {
	s, _, _, _ := newAdminFixture(t)
	ctx := context.Background()

	m, key, err := s.CreateMerchant(ctx, MerchantInput{Name: " Sparkle "})
	require.NoError(t, err)
	assert.Equal(t, "Sparkle", m.Name)
	assert.Len(t, key, 32)
	assert.True(t, m.Active)

	m, err = s.SetMerchantActive(ctx, m.ID, false)
	require.NoError(t, err)
	assert.False(t, m.Active)

	var bad ErrBadRequest
	_, _, err = s.CreateMerchant(ctx, MerchantInput{})
	assert.ErrorAs(t, err, &bad)

	all, err := s.ListMerchants(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
