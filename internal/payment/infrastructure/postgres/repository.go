package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopline-labs/commerce-core/internal/payment/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS payment_methods (
		name TEXT PRIMARY KEY,
		enabled BOOLEAN NOT NULL DEFAULT TRUE
	)`)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO payment_methods (name, enabled) VALUES ($1, TRUE), ($2, TRUE)
		ON CONFLICT (name) DO NOTHING`,
		string(domain.MethodCashOnDelivery), string(domain.MethodGateway))
	return err
}

func (r *Repository) IsEnabled(ctx context.Context, method domain.Method) (bool, error) {
	var enabled bool
	err := r.pool.QueryRow(ctx, `SELECT enabled FROM payment_methods WHERE name=$1`, string(method)).
		Scan(&enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return enabled, nil
}

func (r *Repository) SetEnabled(ctx context.Context, method domain.Method, enabled bool) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO payment_methods (name, enabled) VALUES ($1,$2)
		ON CONFLICT (name) DO UPDATE SET enabled=$2`, string(method), enabled)
	return err
}
