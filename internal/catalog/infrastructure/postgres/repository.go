package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopline-labs/commerce-core/internal/catalog/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	)`)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS variations (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL REFERENCES products(id),
		name TEXT NOT NULL,
		unit_price BIGINT NOT NULL,
		sale_price BIGINT,
		available_quantity INT NOT NULL CHECK (available_quantity >= 0)
	)`)
	return err
}

func (r *Repository) GetVariation(ctx context.Context, id string) (domain.Variation, error) {
	var v domain.Variation
	err := r.pool.QueryRow(ctx, `SELECT id, product_id, name, unit_price, sale_price, available_quantity
		FROM variations WHERE id=$1`, id).
		Scan(&v.ID, &v.ProductID, &v.Name, &v.UnitPrice, &v.SalePrice, &v.AvailableQuantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Variation{}, domain.ErrVariationNotFound
	}
	if err != nil {
		return domain.Variation{}, err
	}
	return v, nil
}

func (r *Repository) GetProductForVariation(ctx context.Context, variationID string) (domain.Product, error) {
	var p domain.Product
	err := r.pool.QueryRow(ctx, `SELECT p.id, p.name, p.description
		FROM products p JOIN variations v ON v.product_id = p.id
		WHERE v.id=$1`, variationID).
		Scan(&p.ID, &p.Name, &p.Description)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, err
	}
	return p, nil
}
