package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	paracetamol = Line{ProductID: "paracetamol-500", Name: "Paracetamol", Price: 10000}
	masker      = Line{ProductID: "masker", Name: "Masker", Price: 5000}
)

func TestAddMergesSameProduct(t *testing.T) {
	var c Cart
	c.Add(paracetamol, 2)
	c.Add(paracetamol, 3)

	require.Len(t, c.Lines, 1)
	assert.Equal(t, 5, c.Quantity(paracetamol.ProductID))
}

func TestAddTreatsNonPositiveQtyAsOne(t *testing.T) {
	var c Cart
	c.Add(masker, 0)
	c.Add(masker, -4)
	assert.Equal(t, 2, c.Quantity(masker.ProductID))
}

func TestUpdateQuantityBelowOneRemoves(t *testing.T) {
	for _, qty := range []int{0, -1} {
		var c Cart
		c.Add(paracetamol, 1)
		c.Add(masker, 1)
		c.UpdateQuantity(paracetamol.ProductID, qty)

		assert.Equal(t, 0, c.Quantity(paracetamol.ProductID), "qty %d", qty)
		assert.Len(t, c.Lines, 1)
	}
}

func TestUpdateQuantitySets(t *testing.T) {
	var c Cart
	c.Add(masker, 1)
	c.UpdateQuantity(masker.ProductID, 7)
	assert.Equal(t, 7, c.Quantity(masker.ProductID))
}

func TestTotals(t *testing.T) {
	var c Cart
	c.Add(paracetamol, 2)
	c.Add(masker, 1)

	assert.Equal(t, 3, c.TotalItems())
	assert.Equal(t, int64(25000), c.Subtotal())

	c.Remove(masker.ProductID)
	assert.Equal(t, int64(20000), c.Subtotal())

	c.Clear()
	assert.True(t, c.Empty())
	assert.Equal(t, 0, c.TotalItems())
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	c, err := s.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.True(t, c.Empty())

	c.Add(paracetamol, 2)
	require.NoError(t, s.Save(ctx, "sid-1", c))

	// mutating the caller's copy must not leak into the store
	c.Lines[0].Quantity = 99
	got, err := s.Load(ctx, "sid-1")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity(paracetamol.ProductID))

	require.NoError(t, s.Delete(ctx, "sid-1"))
	got, _ = s.Load(ctx, "sid-1")
	assert.True(t, got.Empty())

	_, err = s.Load(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)
}

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client, time.Hour), mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	var c Cart
	c.Add(paracetamol, 2)
	c.Add(masker, 1)
	require.NoError(t, store.Save(ctx, "abc", c))

	assert.True(t, mr.Exists("cart:abc"))
	assert.Equal(t, time.Hour, mr.TTL("cart:abc"))

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, c, got)
}

func TestRedisStoreMissIsEmptyCart(t *testing.T) {
	store, _ := setupTestRedis(t)
	got, err := store.Load(context.Background(), "nobody")
	require.NoError(t, err)
	assert.True(t, got.Empty())
}

func TestRedisStoreEmptySaveDeletes(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	var c Cart
	c.Add(masker, 1)
	require.NoError(t, store.Save(ctx, "abc", c))
	c.Clear()
	require.NoError(t, store.Save(ctx, "abc", c))
	assert.False(t, mr.Exists("cart:abc"))
}

func TestRedisStoreInvalidJSON(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:bad", "{not json"))

	_, err := store.Load(context.Background(), "bad")
	assert.Error(t, err)
}

func TestRedisStoreExpires(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	var c Cart
	c.Add(masker, 1)
	require.NoError(t, store.Save(ctx, "abc", c))
	mr.FastForward(2 * time.Hour)

	got, err := store.Load(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, got.Empty())
}
