package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shopline-labs/commerce-core/internal/reporting/domain"
)

// deliveredCond matches orders whose *current* status, the last element of
// the history, is DELIVERED. Cancelled orders never match even if they were
// delivered-adjacent earlier.
const deliveredCond = "status_history[array_length(status_history, 1)] = 'DELIVERED'"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) SumDeliveredRevenue(ctx context.Context, from, to *time.Time) (int64, error) {
	cond, args := rangeCond(from, to, 0)
	var total int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(total_price), 0) FROM orders WHERE `+deliveredCond+cond, args...).
		Scan(&total)
	return total, err
}

func (r *Repository) CountOrdersBetween(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE created_at >= $1 AND created_at < $2`, from, to).
		Scan(&count)
	return count, err
}

func (r *Repository) VariationSales(ctx context.Context, from, to *time.Time, offset, limit int) ([]domain.VariationSales, int, error) {
	cond, args := rangeCond(from, to, 0)
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT oi.variation_id, v.name, p.id, p.name,
			MIN(oi.price_at_purchase) AS price_at_purchase,
			SUM(oi.quantity) AS total_sold,
			COUNT(*) OVER () AS total_docs
		FROM orders o
		JOIN order_items oi ON oi.order_id = o.id
		JOIN variations v ON v.id = oi.variation_id
		JOIN products p ON p.id = v.product_id
		WHERE %s%s
		GROUP BY oi.variation_id, v.name, p.id, p.name
		ORDER BY total_sold DESC, oi.variation_id ASC
		LIMIT $%d OFFSET $%d`,
		deliveredCond, cond, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	// Non-nil so an empty page serializes as [] rather than null.
	items := []domain.VariationSales{}
	var totalDocs int
	for rows.Next() {
		var it domain.VariationSales
		if err := rows.Scan(&it.VariationID, &it.VariationName, &it.ProductID, &it.ProductName,
			&it.PriceAtPurchase, &it.TotalSold, &totalDocs); err != nil {
			return nil, 0, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, totalDocs, nil
}

func rangeCond(from, to *time.Time, argOffset int) (string, []any) {
	cond := ""
	var args []any
	if from != nil {
		args = append(args, *from)
		cond += fmt.Sprintf(" AND created_at >= $%d", argOffset+len(args))
	}
	if to != nil {
		args = append(args, *to)
		cond += fmt.Sprintf(" AND created_at <= $%d", argOffset+len(args))
	}
	return cond, args
}
