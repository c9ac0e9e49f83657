package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	catalogdomain "github.com/shopline-labs/commerce-core/internal/catalog/domain"
	"github.com/shopline-labs/commerce-core/internal/inventory/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

// DecrementIfAvailable is a single conditional update, so the
// check-then-decrement pair cannot race with a concurrent reservation.
func (r *Repository) DecrementIfAvailable(ctx context.Context, variationID string, qty int) (int, error) {
	var remaining int
	err := r.pool.QueryRow(ctx, `UPDATE variations
		SET available_quantity = available_quantity - $2
		WHERE id = $1 AND available_quantity >= $2
		RETURNING available_quantity`, variationID, qty).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	// No row matched: either the variation is unknown or stock is short.
	var available int
	err = r.pool.QueryRow(ctx, `SELECT available_quantity FROM variations WHERE id=$1`, variationID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, catalogdomain.ErrVariationNotFound
	}
	if err != nil {
		return 0, err
	}
	return 0, &domain.InsufficientStockError{VariationID: variationID, Requested: qty, Available: available}
}

func (r *Repository) Increment(ctx context.Context, variationID string, qty int) error {
	ct, err := r.pool.Exec(ctx, `UPDATE variations
		SET available_quantity = available_quantity + $2
		WHERE id = $1`, variationID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return catalogdomain.ErrVariationNotFound
	}
	return nil
}
