package itemsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

func setupTestCatalog(t *testing.T) *Catalog {
	catalog, err := NewCatalog(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = catalog.Close() })

	require.NoError(t, catalog.RunMigrations("./migrations"))
	return catalog
}

func TestCatalog_Item(t *testing.T) {
	catalog := setupTestCatalog(t)

	item, err := catalog.Item(context.Background(), "booking", 2)
	require.NoError(t, err)
	assert.Equal(t, "Pottery workshop", item.ItemName)
	assert.Equal(t, "89.9", item.Price.String())
	assert.Equal(t, "EUR", item.Currency)
	assert.Equal(t, "B", item.TaxCategory)
}

func TestCatalog_ItemNotFound(t *testing.T) {
	catalog := setupTestCatalog(t)

	_, err := catalog.Item(context.Background(), "booking", -1)
	assert.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestCatalog_Components(t *testing.T) {
	catalog := setupTestCatalog(t)

	components, err := catalog.Components(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"booking", "entities"}, components)
}

func TestCatalog_CancelledContext(t *testing.T) {
	catalog := setupTestCatalog(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := catalog.Item(ctx, "booking", 1)
	assert.Error(t, err)
}

func TestCatalog_RegisterAll(t *testing.T) {
	catalog := setupTestCatalog(t)
	registry := NewRegistry(DefaultBreakerSettings(), zaptest.NewLogger(t))

	require.NoError(t, catalog.RegisterAll(context.Background(), registry))
	assert.ElementsMatch(t, []string{"booking", "entities"}, registry.Components())

	item, err := registry.Resolve(context.Background(), "entities", 1)
	require.NoError(t, err)
	assert.Equal(t, "Room rental", item.ItemName)
}
