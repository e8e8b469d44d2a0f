package services_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apotek/internal/domain"
	"apotek/internal/events"
	"apotek/internal/services"
)

func placeOrder(t *testing.T, e *env) domain.Order {
	t.Helper()
	ctx := context.Background()
	_, err := e.carts.Add(ctx, "sid-o", "termometer-digital", 1)
	require.NoError(t, err)
	o, _, err := e.checkout.PlaceCartOrder(ctx, e.user(t, "u-budi"), "sid-o", homeAddress, "transfer")
	require.NoError(t, err)
	return o
}

func TestSetStatusFollowsTransitions(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin := e.user(t, "u-admin")
	o := placeOrder(t, e)

	_, err := e.orders.SetStatus(ctx, admin, o.ID, "delivered")
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	_, err = e.orders.SetStatus(ctx, admin, o.ID, "teleported")
	var verr *services.ValidationError
	assert.ErrorAs(t, err, &verr)

	for _, step := range []string{"diproses", "dikirim", "selesai"} {
		_, err = e.orders.SetStatus(ctx, admin, o.ID, step)
		require.NoError(t, err, step)
	}
	got, _, err := e.orders.Get(ctx, nil, true, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivered, got.Status)

	_, err = e.orders.SetStatus(ctx, admin, o.ID, "cancelled")
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	types := e.events.Types()
	require.Len(t, types, 4)
	assert.Equal(t, events.OrderCreated, types[0])
	assert.Equal(t, events.OrderStatusChanged, types[3])
}

func TestTrackOrder(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	budi, admin := e.user(t, "u-budi"), e.user(t, "u-admin")
	o := placeOrder(t, e)

	tr, err := e.orders.Track(ctx, budi, false, o.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(10), tr.Progress)
	assert.True(t, tr.Steps[0].Done)
	assert.False(t, tr.Steps[1].Done)

	_, err = e.orders.Track(ctx, e.user(t, "u-siti"), false, o.ID)
	assert.ErrorIs(t, err, services.ErrNotOwner)

	_, err = e.orders.SetStatus(ctx, admin, o.ID, "processing")
	require.NoError(t, err)
	_, err = e.orders.SetStatus(ctx, admin, o.ID, "shipped")
	require.NoError(t, err)
	tr, err = e.orders.Track(ctx, budi, false, o.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, tr.Progress, float64(60))
	assert.LessOrEqual(t, tr.Progress, float64(90))

	_, err = e.orders.SetStatus(ctx, admin, o.ID, "cancelled")
	require.NoError(t, err)
	tr, err = e.orders.Track(ctx, budi, false, o.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(0), tr.Progress)
}

func TestHistoryMergesNewestFirst(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	budi := e.user(t, "u-budi")

	o := placeOrder(t, e)
	p, err := e.rx.Upload(ctx, budi, bytesReader(), "")
	require.NoError(t, err)

	h, err := e.orders.History(ctx, budi.ID)
	require.NoError(t, err)
	require.Len(t, h, 2)
	assert.Equal(t, "prescription", h[0].Kind)
	assert.Equal(t, p.ID, h[0].ID)
	assert.Nil(t, h[0].Total)
	assert.Equal(t, o.ID, h[1].ID)

	list, err := e.orders.AdminList(ctx, "pending")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].ItemCount)
}

// Rows written with older spellings must filter, count and move like the
// canonical status they read as.
func TestLegacyStatusSpellings(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	admin, budi := e.user(t, "u-admin"), e.user(t, "u-budi")
	paid, sent, odd := placeOrder(t, e), placeOrder(t, e), placeOrder(t, e)

	for id, raw := range map[string]string{paid.ID: "paid", sent.ID: " Dikirim", odd.ID: "whatever"} {
		_, err := e.db.Exec(`UPDATE orders SET status = ? WHERE id = ?`, raw, id)
		require.NoError(t, err)
	}

	c, err := e.dashboard.Counters(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, c.PendingOrders)

	shipped, err := e.orders.AdminList(ctx, "shipped")
	require.NoError(t, err)
	require.Len(t, shipped, 1)
	assert.Equal(t, sent.ID, shipped[0].ID)
	pending, err := e.orders.AdminList(ctx, "pending")
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	got, err := e.orders.SetStatus(ctx, admin, sent.ID, "delivered")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderDelivered, got.Status)
	_, err = e.orders.SetStatus(ctx, admin, paid.ID, "processing")
	require.NoError(t, err)

	p, err := e.rx.Upload(ctx, budi, bytes.NewReader(pngBytes), "")
	require.NoError(t, err)
	_, err = e.db.Exec(`UPDATE prescriptions SET status = 'approved', price = 20000 WHERE id = ?`, p.ID)
	require.NoError(t, err)

	quoted, err := e.rx.List(ctx, "processing")
	require.NoError(t, err)
	require.Len(t, quoted, 1)
	_, _, err = e.checkout.PayPrescription(ctx, budi, p.ID, homeAddress, "transfer")
	require.NoError(t, err)
}
