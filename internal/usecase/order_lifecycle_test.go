package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/aq2208/storefront-api/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (h *harness) place(t *testing.T, p domain.Principal) *domain.Order {
	t.Helper()
	h.add(t, p, "p1", 2)
	h.add(t, p, "p2", 1)
	o, err := h.checkout.PlaceOrder(context.Background(), p, placeInput(""))
	require.NoError(t, err)
	return o
}

func TestSetStatus_ForwardPath(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	o := h.place(t, alice)

	for _, st := range []string{"processing", "shipped", "delivered"} {
		got, err := h.lifecycle.SetStatus(ctx, admin, o.ID, st)
		require.NoError(t, err)
		assert.Equal(t, domain.Status(st), got.Status)
	}

	stored := h.store.orders[o.ID]
	assert.Equal(t, domain.StatusDelivered, stored.Status)
	assert.Equal(t, int64(2500), stored.Subtotal)
	assert.Equal(t, int64(60), stored.DeliveryCharge)
	assert.Equal(t, int64(2560), stored.GrandTotal)

	require.Len(t, h.pub.changed, 3)
	assert.Equal(t, "shipped", h.pub.changed[2].From)
	assert.Equal(t, "delivered", h.pub.changed[2].Status)
	assert.Equal(t, "alice", h.pub.changed[2].UserID)
	assert.Equal(t, CachedStatus{UserID: "alice", Status: domain.StatusDelivered}, h.cache.entries[o.ID])
}

func TestSetStatus_Rejections(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	o := h.place(t, alice)

	_, err := h.lifecycle.SetStatus(ctx, alice, o.ID, "processing")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = h.lifecycle.SetStatus(ctx, admin, o.ID, "teleported")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.lifecycle.SetStatus(ctx, admin, "missing", "processing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = h.lifecycle.SetStatus(ctx, admin, o.ID, "shipped")
	require.NoError(t, err)
	_, err = h.lifecycle.SetStatus(ctx, admin, o.ID, "processing")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = h.lifecycle.SetStatus(ctx, admin, o.ID, "cancelled")
	require.NoError(t, err)
	_, err = h.lifecycle.SetStatus(ctx, admin, o.ID, "delivered")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, domain.StatusCancelled, h.store.orders[o.ID].Status)
}

func TestSetStatus_SameStatusIsNoop(t *testing.T) {
	h := newHarness(t, true)
	o := h.place(t, alice)

	got, err := h.lifecycle.SetStatus(context.Background(), admin, o.ID, "cod_pending")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCODPending, got.Status)
	assert.Empty(t, h.pub.changed)
}

// racingOrders moves the order to shipped between the read and the guarded write.
type racingOrders struct{ memOrders }

func (r racingOrders) UpdateStatusIf(ctx context.Context, id string, from, to domain.Status) (bool, error) {
	if _, err := r.memOrders.UpdateStatusIf(ctx, id, from, domain.StatusShipped); err != nil {
		return false, err
	}
	return r.memOrders.UpdateStatusIf(ctx, id, from, to)
}

func TestSetStatus_LostRaceIsConflict(t *testing.T) {
	h := newHarness(t, true)
	o := h.place(t, alice)
	lc := NewOrderLifecycle(racingOrders{memOrders{h.store}}, nil, h.cache, h.pub)

	_, err := lc.SetStatus(context.Background(), admin, o.ID, "processing")
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, domain.StatusShipped, h.store.orders[o.ID].Status)
	assert.Empty(t, h.pub.changed)
}

func TestSetStatus_CacheFailureInvalidates(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	o := h.place(t, alice)
	h.cache.entries[o.ID] = CachedStatus{UserID: "alice", Status: domain.StatusCODPending}
	h.cache.setErr = errors.New("redis down")

	_, err := h.lifecycle.SetStatus(ctx, admin, o.ID, "processing")
	require.NoError(t, err)
	_, cached, _ := h.cache.GetStatus(ctx, o.ID)
	assert.False(t, cached)
}

func TestSetStatus_PublishFailureDoesNotFail(t *testing.T) {
	h := newHarness(t, true)
	o := h.place(t, alice)
	h.pub.err = errors.New("kafka down")

	got, err := h.lifecycle.SetStatus(context.Background(), admin, o.ID, "processing")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusProcessing, got.Status)
}

func TestGetOrder_Ownership(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	o := h.place(t, alice)

	d, err := h.lifecycle.GetOrder(ctx, alice, o.ID)
	require.NoError(t, err)
	require.NotNil(t, d.Payment)
	assert.Equal(t, d.GrandTotal, d.Payment.Amount)

	_, err = h.lifecycle.GetOrder(ctx, bob, o.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = h.lifecycle.GetOrder(ctx, admin, o.ID)
	assert.NoError(t, err)

	_, err = h.lifecycle.GetOrder(ctx, alice, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetStatus_CacheThenStore(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	o := h.place(t, alice)

	st, err := h.lifecycle.GetStatus(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCODPending, st)
	assert.Equal(t, CachedStatus{UserID: "alice", Status: domain.StatusCODPending}, h.cache.entries[o.ID])

	h.cache.entries[o.ID] = CachedStatus{UserID: "alice", Status: domain.StatusShipped}
	st, err = h.lifecycle.GetStatus(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusShipped, st)

	_, err = h.lifecycle.GetStatus(ctx, bob, o.ID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListMyOrders_NewestFirst(t *testing.T) {
	h := newHarness(t, true)
	first := h.place(t, alice)
	second := h.place(t, alice)
	h.place(t, bob)

	orders, err := h.lifecycle.ListMyOrders(context.Background(), alice)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.ID, orders[0].ID)
	assert.Equal(t, first.ID, orders[1].ID)
	assert.True(t, orders[0].CreatedAt.After(orders[1].CreatedAt))
}

func TestAdminOrders_ListFilters(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	a := h.place(t, alice)
	b := h.place(t, bob)
	_, err := h.lifecycle.SetStatus(ctx, admin, b.ID, "processing")
	require.NoError(t, err)

	all, err := h.admin.List(ctx, admin, AdminOrderFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, b.ID, all[0].ID)

	byEmail, err := h.admin.List(ctx, admin, AdminOrderFilter{Search: " alice@EXAMPLE "})
	require.NoError(t, err)
	require.Len(t, byEmail, 1)
	assert.Equal(t, a.ID, byEmail[0].ID)
	assert.Equal(t, "Alice@Example.com", byEmail[0].CustomerEmail)

	byPhone, err := h.admin.List(ctx, admin, AdminOrderFilter{Search: "0170"})
	require.NoError(t, err)
	assert.Len(t, byPhone, 2)

	byStatus, err := h.admin.List(ctx, admin, AdminOrderFilter{Status: domain.StatusProcessing})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, b.ID, byStatus[0].ID)

	_, err = h.admin.List(ctx, admin, AdminOrderFilter{Status: "lost"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = h.admin.List(ctx, alice, AdminOrderFilter{})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestAdminOrders_StatsExportAndStatus(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	o := h.place(t, alice)
	h.place(t, bob)

	_, err := h.admin.Stats(ctx, bob)
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = h.admin.Stats(ctx, admin)
	assert.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.admin.Export(ctx, admin, AdminOrderFilter{}, &buf))
	assert.Equal(t, 2, h.sheet.rows)
	assert.Equal(t, "2 orders", buf.String())
	assert.ErrorIs(t, h.admin.Export(ctx, alice, AdminOrderFilter{}, &buf), ErrUnauthorized)

	got, err := h.admin.SetStatus(ctx, admin, o.ID, "cancelled")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, got.Status)
	assert.WithinDuration(t, got.CreatedAt, got.UpdatedAt, time.Hour)
}
