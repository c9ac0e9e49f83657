package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopline-labs/commerce-core/internal/cart/domain"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS carts (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		items JSONB NOT NULL DEFAULT '[]',
		version BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`)
	return err
}

func (r *Repository) FindByUser(ctx context.Context, userID string) (*domain.Cart, error) {
	var c domain.Cart
	var items []byte
	err := r.pool.QueryRow(ctx, `SELECT id, user_id, items, version, created_at, updated_at
		FROM carts WHERE user_id=$1`, userID).
		Scan(&c.ID, &c.UserID, &items, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &c.Items); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) Create(ctx context.Context, cart *domain.Cart) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `INSERT INTO carts (id, user_id, items, version, created_at, updated_at)
		VALUES ($1,$2,$3,0,$4,$5)`,
		cart.ID, cart.UserID, items, cart.CreatedAt, cart.UpdatedAt)
	return err
}

// Update is conditional on the version the caller loaded; losing the race
// surfaces ErrCartConflict instead of silently overwriting the other session.
func (r *Repository) Update(ctx context.Context, cart *domain.Cart) error {
	items, err := json.Marshal(cart.Items)
	if err != nil {
		return err
	}
	ct, err := r.pool.Exec(ctx, `UPDATE carts
		SET items=$2, version=version+1, updated_at=$3
		WHERE id=$1 AND version=$4`,
		cart.ID, items, cart.UpdatedAt, cart.Version)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrCartConflict
	}
	cart.Version++
	return nil
}
