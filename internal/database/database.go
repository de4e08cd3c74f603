package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/threadscan/threadscan/internal/models"
)

// DB persists completed scan results. The engine itself never touches the
// database; the API layer writes a scan's records once the scan finishes.
type DB struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS scan_products (
	id           BIGSERIAL PRIMARY KEY,
	scan_id      TEXT        NOT NULL,
	site         TEXT        NOT NULL,
	name         TEXT        NOT NULL,
	price        TEXT,
	url          TEXT        NOT NULL,
	sizes        TEXT[]      NOT NULL DEFAULT '{}',
	availability TEXT,
	description  TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS scan_products_scan_id_idx ON scan_products (scan_id);
CREATE INDEX IF NOT EXISTS scan_products_site_idx ON scan_products (site);
`

func New(ctx context.Context, databaseURL string) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	poolConfig.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{pool: pool}
	if err := db.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return db, nil
}

func (db *DB) Close() {
	db.pool.Close()
}

func (db *DB) ensureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// SaveScanResults stores every record of a finished scan in one
// transaction.
func (db *DB) SaveScanResults(ctx context.Context, scanID string, products []models.Product) error {
	if len(products) == 0 {
		return nil
	}
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const query = `
		INSERT INTO scan_products (scan_id, site, name, price, url, sizes, availability, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	for _, p := range products {
		sizes := p.Sizes
		if sizes == nil {
			sizes = []string{}
		}
		if _, err := tx.Exec(ctx, query,
			scanID, p.Site, p.Name, p.Price, p.URL, sizes, p.Availability, p.Description,
		); err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListScanResults returns a scan's stored records in insertion order.
func (db *DB) ListScanResults(ctx context.Context, scanID string) ([]models.Product, error) {
	const query = `
		SELECT site, name, COALESCE(price, ''), url, sizes, COALESCE(availability, ''), COALESCE(description, '')
		FROM scan_products
		WHERE scan_id = $1
		ORDER BY id`
	rows, err := db.pool.Query(ctx, query, scanID)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan results: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var p models.Product
		if err := rows.Scan(&p.Site, &p.Name, &p.Price, &p.URL, &p.Sizes, &p.Availability, &p.Description); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read scan results: %w", err)
	}
	return products, nil
}
