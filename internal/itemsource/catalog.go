package itemsource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"

	"github.com/fjod/go_cart/shopping-cart/internal/domain"
)

// Catalog is a SQLite table of purchasable items, keyed by component and id.
type Catalog struct {
	db *sql.DB
}

func NewCatalog(dbPath string) (*Catalog, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// :memory: databases live per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Catalog{db: db}, nil
}

func (c *Catalog) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(c.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
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

func (c *Catalog) Components(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT DISTINCT component FROM cart_items ORDER BY component`)
	if err != nil {
		return nil, fmt.Errorf("failed to query components: %w", err)
	}
	defer rows.Close()

	var components []string
	for rows.Next() {
		var component string
		if err := rows.Scan(&component); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		components = append(components, component)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return components, nil
}

func (c *Catalog) Item(ctx context.Context, component string, itemID int64) (domain.CartItem, error) {
	query := `
		SELECT item_name, description, price, currency, tax_category
		FROM cart_items
		WHERE component = ? AND item_id = ?
	`

	item := domain.CartItem{Component: component, ItemID: itemID}
	err := c.db.QueryRowContext(ctx, query, component, itemID).Scan(
		&item.ItemName,
		&item.Description,
		&item.Price,
		&item.Currency,
		&item.TaxCategory,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CartItem{}, &domain.ItemNotFoundError{Component: component, ItemID: itemID}
	}
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("failed to query item: %w", err)
	}
	return item, nil
}

// Provider returns a Provider bound to one component of the catalog.
func (c *Catalog) Provider(component string) Provider {
	return ProviderFunc(func(ctx context.Context, itemID int64) (domain.CartItem, error) {
		return c.Item(ctx, component, itemID)
	})
}

// RegisterAll registers every component present in the catalog.
func (c *Catalog) RegisterAll(ctx context.Context, r *Registry) error {
	components, err := c.Components(ctx)
	if err != nil {
		return err
	}
	for _, component := range components {
		r.Register(component, c.Provider(component))
	}
	return nil
}

func (c *Catalog) Close() error {
	return c.db.Close()
}
