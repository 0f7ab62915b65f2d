package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedisBackend(client), mr
}

func TestRedisBackend_Get(t *testing.T) {
	backend, mr := setupTestRedis(t)

	cart := sampleCart(7, fixedNow.Add(15*time.Minute))
	data, err := json.Marshal(cart)
	require.NoError(t, err)
	require.NoError(t, mr.Set(cacheKey(7), string(data)))

	result, err := backend.Get(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), result.UserID)
	require.Equal(t, 1, result.Len())
	item, ok := result.Item("booking", 1)
	require.True(t, ok)
	assert.Equal(t, "10", item.Price.String())
}

func TestRedisBackend_GetMiss(t *testing.T) {
	backend, _ := setupTestRedis(t)

	result, err := backend.Get(context.Background(), 404)
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestRedisBackend_GetInvalidJSON(t *testing.T) {
	backend, mr := setupTestRedis(t)
	require.NoError(t, mr.Set(cacheKey(7), `{"user_id":`))

	_, err := backend.Get(context.Background(), 7)
	require.ErrorContains(t, err, "unmarshal cart failed")
}

func TestRedisBackend_SetWithTTL(t *testing.T) {
	backend, mr := setupTestRedis(t)

	err := backend.Set(context.Background(), 7, domain.NewCart(7), 20*time.Minute)
	require.NoError(t, err)

	assert.True(t, mr.Exists(cacheKey(7)))
	assert.Equal(t, 20*time.Minute, mr.TTL(cacheKey(7)))
}

func TestRedisBackend_Delete(t *testing.T) {
	backend, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, 7, domain.NewCart(7), time.Minute))
	require.NoError(t, backend.Delete(ctx, 7))
	assert.False(t, mr.Exists(cacheKey(7)))

	assert.NoError(t, backend.Delete(ctx, 7))
}

func TestRedisBackend_StorageTTLExpiresCart(t *testing.T) {
	backend, mr := setupTestRedis(t)
	now := fixedNow
	store := NewCartStore(backend, WithClock(func() time.Time { return now }), WithGracePeriod(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, 7, sampleCart(7, now.Add(time.Minute))))
	mr.FastForward(time.Hour)

	cart, err := store.Get(ctx, 7)
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}
