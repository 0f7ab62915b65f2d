package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/zeebo/errs"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

var (
	// Error is the class of history storage failures.
	Error = errs.Class("history")

	ErrDuplicateCheckout = errors.New("checkout already recorded")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OutboxEvent struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type Repository struct {
	db *sql.DB
}

func NewRepository(cred *Credentials) (*Repository, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "shopping_cart_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveCheckout stores the purchased lines, the payment and the
// CheckoutCompleted outbox event in one transaction.
func (r *Repository) SaveCheckout(ctx context.Context, records []domain.HistoryRecord, payment domain.PaymentRecord, event domain.CheckoutCompleted) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Error.Wrap(err)
	}
	defer func() {
		if err != nil {
			err = errs.Combine(err, tx.Rollback())
		}
	}()

	historyQuery := `INSERT INTO shopping_cart_history
		(identifier, user_id, component, item_id, item_name, price, discount, tax, tax_percentage,
		 currency, payment, payment_status, user_modified, time_created, time_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	for _, rec := range records {
		if _, err = tx.ExecContext(ctx, historyQuery,
			rec.Identifier,
			rec.UserID,
			rec.Component,
			rec.ItemID,
			rec.ItemName,
			rec.Price,
			rec.Discount,
			rec.Tax,
			rec.TaxPercentage,
			rec.Currency,
			string(rec.Payment),
			int(rec.PaymentStatus),
			rec.UserModified,
			rec.TimeCreated,
			rec.TimeModified,
		); err != nil {
			return Error.Wrap(fmt.Errorf("insert history row: %w", err))
		}
	}

	paymentQuery := `INSERT INTO payments (identifier, user_id, gateway, order_id, amount, currency, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	if _, err = tx.ExecContext(ctx, paymentQuery,
		payment.Identifier,
		payment.UserID,
		payment.Gateway,
		payment.OrderID,
		payment.Amount,
		payment.Currency,
		int(payment.Status),
	); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			err = ErrDuplicateCheckout
			return err
		}
		return Error.Wrap(fmt.Errorf("insert payment: %w", err))
	}

	if err = insertEvent(ctx, tx, event.Identifier, domain.EventCheckoutCompleted, event); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return Error.Wrap(err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertEvent(ctx context.Context, db execer, aggregateID string, eventType domain.EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return Error.Wrap(fmt.Errorf("marshal %s event: %w", eventType, err))
	}

	query := `INSERT INTO outbox_events (id, aggregate_id, event_type, payload) VALUES ($1, $2, $3, $4)`
	if _, err := db.ExecContext(ctx, query, uuid.New(), aggregateID, eventType.String(), data); err != nil {
		return Error.Wrap(fmt.Errorf("insert outbox event: %w", err))
	}
	return nil
}

// SaveEvent appends a standalone event to the outbox.
func (r *Repository) SaveEvent(ctx context.Context, aggregateID string, eventType domain.EventType, payload any) error {
	return insertEvent(ctx, r.db, aggregateID, eventType, payload)
}

// OnManualRebook records the rebooking so the publisher can announce it.
func (r *Repository) OnManualRebook(ctx context.Context, event domain.PaymentRebooked) error {
	return r.SaveEvent(ctx, event.Identifier, domain.EventPaymentRebooked, event)
}

func (r *Repository) GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error) {
	query := `SELECT id, aggregate_id, event_type, payload, created_at
		FROM outbox_events
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("query outbox events: %w", err))
	}
	defer rows.Close()

	var events []*OutboxEvent
	for rows.Next() {
		e := &OutboxEvent{}
		if err := rows.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, Error.Wrap(fmt.Errorf("scan outbox event: %w", err))
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, Error.Wrap(fmt.Errorf("row iteration error: %w", err))
	}
	return events, nil
}

func (r *Repository) MarkEventAsProcessed(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE outbox_events SET processed_at = NOW() WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return Error.Wrap(fmt.Errorf("mark event processed: %w", err))
	}
	return nil
}

// UpsertUser maintains the users read model the cash report joins against.
func (r *Repository) UpsertUser(ctx context.Context, id int64, firstName, lastName, email string) error {
	query := `INSERT INTO users (id, first_name, last_name, email) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name, email = EXCLUDED.email`
	if _, err := r.db.ExecContext(ctx, query, id, firstName, lastName, email); err != nil {
		return Error.Wrap(fmt.Errorf("upsert user: %w", err))
	}
	return nil
}

func (r *Repository) ListByIdentifier(ctx context.Context, identifier string) ([]domain.HistoryRecord, error) {
	query := `SELECT id, identifier, user_id, component, item_id, item_name, price, discount, tax, tax_percentage,
		currency, payment, payment_status, user_modified, time_created, time_modified
		FROM shopping_cart_history WHERE identifier = $1 ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, identifier)
	if err != nil {
		return nil, Error.Wrap(fmt.Errorf("query history: %w", err))
	}
	defer rows.Close()

	var records []domain.HistoryRecord
	for rows.Next() {
		var rec domain.HistoryRecord
		var payment string
		var status int
		if err := rows.Scan(
			&rec.ID,
			&rec.Identifier,
			&rec.UserID,
			&rec.Component,
			&rec.ItemID,
			&rec.ItemName,
			&rec.Price,
			&rec.Discount,
			&rec.Tax,
			&rec.TaxPercentage,
			&rec.Currency,
			&payment,
			&status,
			&rec.UserModified,
			&rec.TimeCreated,
			&rec.TimeModified,
		); err != nil {
			return nil, Error.Wrap(fmt.Errorf("scan history row: %w", err))
		}
		rec.Payment = domain.PaymentMethod(payment)
		rec.PaymentStatus = domain.PaymentStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, Error.Wrap(fmt.Errorf("row iteration error: %w", err))
	}
	return records, nil
}

// DeleteProcessedEvents drops published outbox rows older than before.
func (r *Repository) DeleteProcessedEvents(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM outbox_events WHERE processed_at IS NOT NULL AND processed_at < $1`
	res, err := r.db.ExecContext(ctx, query, before)
	if err != nil {
		return 0, Error.Wrap(fmt.Errorf("delete processed events: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, Error.Wrap(err)
	}
	return n, nil
}
