package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/m-mizutani/goerr/v2"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS products (
	id          TEXT PRIMARY KEY,
	seq         SERIAL,
	name        TEXT NOT NULL,
	price       DOUBLE PRECISION NOT NULL CHECK (price >= 0),
	category    TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	stock       INTEGER NOT NULL CHECK (stock >= 0),
	colors      TEXT[] NOT NULL DEFAULT '{}',
	sizes       TEXT[] NOT NULL DEFAULT '{}'
);

CREATE TABLE IF NOT EXISTS cart_items (
	cart_id  TEXT NOT NULL,
	item_id  TEXT NOT NULL REFERENCES products(id),
	quantity INTEGER NOT NULL CHECK (quantity > 0),
	added_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (cart_id, item_id)
);
`

const productColumns = `id, name, price, category, description, stock, colors, sizes`

// Connect opens a connection pool and checks that the database answers.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse database URL")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create connection pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, goerr.Wrap(err, "failed to ping database")
	}
	return pool, nil
}

// PostgresStore keeps the catalog and carts in PostgreSQL.
type PostgresStore struct {
	db *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate creates the tables when they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return goerr.Wrap(err, "failed to migrate catalog schema")
	}
	return nil
}

// Seed inserts products that are not in the table yet. Existing rows keep
// their stock.
func (s *PostgresStore) Seed(ctx context.Context, products []Product) error {
	batch := &pgx.Batch{}
	for _, p := range products {
		batch.Queue(`
			INSERT INTO products (id, name, price, category, description, stock, colors, sizes)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
			ON CONFLICT (id) DO NOTHING
		`, p.ID, p.Name, p.Price, p.Category, p.Description, p.Stock, nonNil(p.Colors), nonNil(p.Sizes))
	}

	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		return goerr.Wrap(err, "failed to seed products", goerr.V("count", len(products)))
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	if err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Category, &p.Description, &p.Stock, &p.Colors, &p.Sizes); err != nil {
		return p, err
	}
	if len(p.Colors) == 0 {
		p.Colors = nil
	}
	if len(p.Sizes) == 0 {
		p.Sizes = nil
	}
	return p, nil
}

func (s *PostgresStore) queryProducts(ctx context.Context, where string, args ...any) ([]Product, error) {
	rows, err := s.db.Query(ctx, `SELECT `+productColumns+` FROM products `+where+` ORDER BY seq`, args...)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query products")
	}
	defer rows.Close()

	out := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to scan product")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read products")
	}
	return out, nil
}

func (s *PostgresStore) ListItems(ctx context.Context) ([]Product, error) {
	return s.queryProducts(ctx, "")
}

func (s *PostgresStore) GetItem(ctx context.Context, id string) (*Product, error) {
	p, err := scanProduct(s.db.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, itemNotFound(id)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get product", goerr.V("id", id))
	}
	return &p, nil
}

func (s *PostgresStore) SearchItems(ctx context.Context, query string) ([]Product, error) {
	return s.queryProducts(ctx,
		`WHERE strpos(lower(name), lower($1)) > 0 OR strpos(lower(category), lower($1)) > 0`, query)
}

func (s *PostgresStore) ItemsByCategory(ctx context.Context, category string) ([]Product, error) {
	return s.queryProducts(ctx, `WHERE lower(category) = lower($1)`, category)
}

func (s *PostgresStore) Categories(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT category FROM products ORDER BY category`)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query categories")
	}
	categories, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read categories")
	}
	return categories, nil
}

func (s *PostgresStore) Availability(ctx context.Context, id string) (*Availability, error) {
	p, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Availability{
		Name:       p.Name,
		InStock:    p.Stock > 0,
		StockCount: p.Stock,
	}, nil
}

// AddToCart locks the product row so concurrent adds cannot exceed stock.
func (s *PostgresStore) AddToCart(ctx context.Context, cartID, itemID string, quantity int) (*Cart, error) {
	if err := validateCartRequest(cartID, quantity); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stock int
	err = tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, itemID).Scan(&stock)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, itemNotFound(itemID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to lock product", goerr.V("item_id", itemID))
	}

	var inCart int
	err = tx.QueryRow(ctx, `SELECT quantity FROM cart_items WHERE cart_id = $1 AND item_id = $2`, cartID, itemID).Scan(&inCart)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, goerr.Wrap(err, "failed to read cart line", goerr.V("cart_id", cartID))
	}

	if inCart+quantity > stock {
		return nil, insufficientStock(stock - inCart)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO cart_items (cart_id, item_id, quantity)
		VALUES ($1,$2,$3)
		ON CONFLICT (cart_id, item_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, cartID, itemID, quantity); err != nil {
		return nil, goerr.Wrap(err, "failed to add cart line", goerr.V("cart_id", cartID), goerr.V("item_id", itemID))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, goerr.Wrap(err, "failed to commit cart update")
	}

	return s.GetCart(ctx, cartID)
}

func (s *PostgresStore) RemoveFromCart(ctx context.Context, cartID, itemID string) (*Cart, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1 AND item_id = $2`, cartID, itemID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to remove cart line", goerr.V("cart_id", cartID), goerr.V("item_id", itemID))
	}
	if tag.RowsAffected() == 0 {
		return nil, notInCart(itemID)
	}
	return s.GetCart(ctx, cartID)
}

func (s *PostgresStore) GetCart(ctx context.Context, cartID string) (*Cart, error) {
	rows, err := s.db.Query(ctx, `
		SELECT p.id, p.name, p.price, ci.quantity, p.category, p.description
		FROM cart_items ci
		JOIN products p ON p.id = ci.item_id
		WHERE ci.cart_id = $1
		ORDER BY ci.added_at, p.seq
	`, cartID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to query cart", goerr.V("cart_id", cartID))
	}
	defer rows.Close()

	var items []CartItem
	for rows.Next() {
		var it CartItem
		if err := rows.Scan(&it.ItemID, &it.Name, &it.Price, &it.Quantity, &it.Category, &it.Description); err != nil {
			return nil, goerr.Wrap(err, "failed to scan cart line")
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, goerr.Wrap(err, "failed to read cart", goerr.V("cart_id", cartID))
	}

	return NewCart(cartID, items), nil
}

func (s *PostgresStore) ClearCart(ctx context.Context, cartID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID); err != nil {
		return goerr.Wrap(err, "failed to clear cart", goerr.V("cart_id", cartID))
	}
	return nil
}
