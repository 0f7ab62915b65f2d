package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestMongo(t *testing.T) *MongoBackend {
	if testing.Short() {
		t.Skip("skipping MongoDB container test in short mode")
	}
	ctx := context.Background()

	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := ConnectMongoDB(ctx, uri, "testdb")
	require.NoError(t, err)

	backend := NewMongoBackend(db)
	require.NoError(t, backend.CreateIndexes(ctx))
	return backend
}

func TestMongoBackend_RoundTrip(t *testing.T) {
	backend := setupTestMongo(t)
	ctx := context.Background()

	_, err := backend.Get(ctx, 3)
	assert.ErrorIs(t, err, ErrCacheMiss)

	expiration := time.Now().Add(15 * time.Minute).UTC().Truncate(time.Second)
	require.NoError(t, backend.Set(ctx, 3, sampleCart(3, expiration), time.Hour))

	cart, err := backend.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Len())
	assert.True(t, expiration.Equal(cart.ExpirationDate))

	require.NoError(t, backend.Set(ctx, 3, sampleCart(3, expiration), time.Hour))
	require.NoError(t, backend.Delete(ctx, 3))

	_, err = backend.Get(ctx, 3)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMongoBackend_ElapsedTTLReadsAsMiss(t *testing.T) {
	backend := setupTestMongo(t)
	ctx := context.Background()

	require.NoError(t, backend.Set(ctx, 4, sampleCart(4, time.Now()), -time.Second))

	_, err := backend.Get(ctx, 4)
	assert.ErrorIs(t, err, ErrCacheMiss)
}
