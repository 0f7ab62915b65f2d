package history

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

func setupTestDB(t *testing.T) *Repository {
	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations(creds))

	t.Cleanup(func() {
		_ = repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	return repo
}

func checkoutFixture(identifier string, status domain.PaymentStatus, at time.Time) ([]domain.HistoryRecord, domain.PaymentRecord, domain.CheckoutCompleted) {
	records := []domain.HistoryRecord{
		{
			Identifier:    identifier,
			UserID:        1,
			Component:     "booking",
			ItemID:        1,
			ItemName:      "Yoga course",
			Price:         decimal.RequireFromString("108.00"),
			Discount:      decimal.RequireFromString("10.00"),
			Tax:           decimal.RequireFromString("18.00"),
			TaxPercentage: decimal.NewFromInt(20),
			Currency:      "EUR",
			Payment:       domain.PaymentMethodCashierCash,
			PaymentStatus: status,
			UserModified:  2,
			TimeCreated:   at,
			TimeModified:  at,
		},
		{
			Identifier:    identifier,
			UserID:        1,
			Component:     "booking",
			ItemID:        2,
			ItemName:      "Pottery workshop",
			Price:         decimal.RequireFromString("89.90"),
			Currency:      "EUR",
			Payment:       domain.PaymentMethodCashierCash,
			PaymentStatus: status,
			UserModified:  2,
			TimeCreated:   at,
			TimeModified:  at,
		},
	}
	payment := domain.PaymentRecord{
		Identifier: identifier,
		UserID:     1,
		Gateway:    "cashier",
		OrderID:    "DESK-" + identifier,
		Amount:     decimal.RequireFromString("197.90"),
		Currency:   "EUR",
		Status:     status,
	}
	event := domain.CheckoutCompleted{
		Identifier:  identifier,
		UserID:      1,
		PaidBy:      2,
		Items:       records,
		Price:       payment.Amount,
		Currency:    "EUR",
		CompletedAt: at,
	}
	return records, payment, event
}

func TestSaveCheckout_PersistsRowsAndEvent(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	records, payment, event := checkoutFixture("c-1", domain.PaymentSuccess, at)
	require.NoError(t, repo.SaveCheckout(ctx, records, payment, event))

	stored, err := repo.ListByIdentifier(ctx, "c-1")
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, "Yoga course", stored[0].ItemName)
	assert.True(t, decimal.RequireFromString("108").Equal(stored[0].Price))
	assert.Equal(t, domain.PaymentMethodCashierCash, stored[0].Payment)
	assert.Equal(t, domain.PaymentSuccess, stored[0].PaymentStatus)

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "c-1", events[0].AggregateID)
	assert.Equal(t, domain.EventCheckoutCompleted.String(), events[0].EventType)

	var decoded domain.CheckoutCompleted
	require.NoError(t, json.Unmarshal(events[0].Payload, &decoded))
	assert.Equal(t, int64(2), decoded.PaidBy)
	assert.Len(t, decoded.Items, 2)
}

func TestSaveCheckout_DuplicateIsRolledBack(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	at := time.Now().UTC()

	records, payment, event := checkoutFixture("c-2", domain.PaymentSuccess, at)
	require.NoError(t, repo.SaveCheckout(ctx, records, payment, event))

	err := repo.SaveCheckout(ctx, records, payment, event)
	assert.ErrorIs(t, err, ErrDuplicateCheckout)

	stored, err := repo.ListByIdentifier(ctx, "c-2")
	require.NoError(t, err)
	assert.Len(t, stored, 2, "second attempt must not leave partial rows")

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestMarkEventAsProcessed(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	rebook := domain.PaymentRebooked{CashierID: 2, AffectedUserID: 1, Identifier: "c-3", Annotation: "paid cash", OccurredAt: time.Now()}
	require.NoError(t, repo.OnManualRebook(ctx, rebook))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventPaymentRebooked.String(), events[0].EventType)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCashReport_OnlySuccessfulPayments(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()
	at := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.UpsertUser(ctx, 1, "Ada", "Lovelace", "ada@example.com"))
	require.NoError(t, repo.UpsertUser(ctx, 2, "Grace", "Hopper", "grace@example.com"))

	records, payment, event := checkoutFixture("paid", domain.PaymentSuccess, at)
	require.NoError(t, repo.SaveCheckout(ctx, records, payment, event))
	records, payment, event = checkoutFixture("failed", domain.PaymentError, at)
	require.NoError(t, repo.SaveCheckout(ctx, records, payment, event))

	total, err := repo.CountCashReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	rows, err := repo.CashReport(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, "paid", row.Identifier)
		assert.Equal(t, "Lovelace", row.LastName)
		assert.Equal(t, "Ada", row.FirstName)
		assert.Equal(t, "Grace Hopper", row.UserModified)
		assert.Equal(t, "cashier", row.Gateway)
		assert.Equal(t, "DESK-paid", row.OrderID)
	}

	page, err := repo.CashReport(ctx, 1, 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}

func TestDeleteProcessedEvents(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveEvent(ctx, "c-4", domain.EventPaymentRebooked, map[string]string{"identifier": "c-4"}))
	require.NoError(t, repo.SaveEvent(ctx, "c-5", domain.EventPaymentRebooked, map[string]string{"identifier": "c-5"}))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))

	deleted, err := repo.DeleteProcessedEvents(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
