package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	invdomain "github.com/shopline-labs/commerce-core/internal/inventory/domain"
	"github.com/shopline-labs/commerce-core/internal/order/domain"
	paymentdomain "github.com/shopline-labs/commerce-core/internal/payment/domain"
)

const uniqueViolation = "23505"

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log, pool: pool}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS orders (
		id TEXT PRIMARY KEY,
		order_code TEXT NOT NULL UNIQUE,
		user_id TEXT NOT NULL,
		status_history TEXT[] NOT NULL,
		payment_method TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		receiver_name TEXT NOT NULL DEFAULT '',
		phone_number TEXT NOT NULL DEFAULT '',
		shipping_address TEXT NOT NULL DEFAULT '',
		total_price BIGINT NOT NULL,
		shipping_fee BIGINT NOT NULL,
		shipping_fee_percentage DOUBLE PRECISION NOT NULL,
		total_amount BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS order_items (
		order_id TEXT NOT NULL REFERENCES orders(id),
		variation_id TEXT NOT NULL,
		price_at_purchase BIGINT NOT NULL,
		quantity INT NOT NULL,
		position INT NOT NULL,
		PRIMARY KEY (order_id, variation_id)
	)`)
	return err
}

// CreateWithEvent writes the order, its item snapshot and the outbox event in
// one transaction, so the event exists exactly when the order does.
func (r *Repository) CreateWithEvent(ctx context.Context, o *domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO orders
		(id, order_code, user_id, status_history, payment_method, payment_status,
		 receiver_name, phone_number, shipping_address,
		 total_price, shipping_fee, shipping_fee_percentage, total_amount,
		 created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		o.ID, o.OrderCode, o.UserID, statusStrings(o.StatusHistory),
		string(o.Payment.Method), string(o.Payment.Status),
		o.ReceiverName, o.PhoneNumber, o.ShippingAddress,
		o.TotalPrice, o.ShippingFee, o.ShippingFeePercentage, o.TotalAmount,
		o.CreatedAt, o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && strings.Contains(pgErr.ConstraintName, "order_code") {
			return domain.ErrOrderCodeTaken
		}
		return err
	}

	batch := &pgx.Batch{}
	for i, item := range o.Items {
		batch.Queue(`INSERT INTO order_items (order_id, variation_id, price_at_purchase, quantity, position)
			VALUES ($1,$2,$3,$4,$5)`,
			o.ID, item.VariationID, item.PriceAtPurchase, item.Quantity, i)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		"order", o.ID, eventType, payload, headers, traceparent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return r.getOne(ctx, `WHERE id=$1`, id)
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Order, error) {
	return r.getOne(ctx, `WHERE order_code=$1`, code)
}

func (r *Repository) getOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, order_code, user_id, status_history, payment_method, payment_status,
		receiver_name, phone_number, shipping_address,
		total_price, shipping_fee, shipping_fee_percentage, total_amount,
		created_at, updated_at
		FROM orders `+where, arg)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, []*domain.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

// List pages orders with the milestone filter semantics documented on
// domain.ListQuery.
func (r *Repository) List(ctx context.Context, q domain.ListQuery) (*domain.OrderPage, error) {
	var where []string
	var args []any

	if q.UserID != "" {
		args = append(args, q.UserID)
		where = append(where, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if q.CodeContains != "" {
		args = append(args, "%"+q.CodeContains+"%")
		where = append(where, fmt.Sprintf("order_code ILIKE $%d", len(args)))
	}
	if q.StatusMilestone != nil {
		if *q.StatusMilestone == domain.StatusCancelled {
			where = append(where, "status_history @> ARRAY['CANCELLED']::text[]")
		} else if prefix := domain.MilestonePrefix(*q.StatusMilestone); prefix != nil {
			args = append(args, statusStrings(prefix))
			where = append(where, fmt.Sprintf("status_history = $%d::text[]", len(args)))
		}
	}

	cond := ""
	if len(where) > 0 {
		cond = " WHERE " + strings.Join(where, " AND ")
	}

	var totalDocs int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM orders"+cond, args...).Scan(&totalDocs); err != nil {
		return nil, err
	}

	dir := "DESC"
	if q.SortAsc {
		dir = "ASC"
	}
	args = append(args, q.Limit, (q.Page-1)*q.Limit)
	query := fmt.Sprintf(`SELECT id, order_code, user_id, status_history, payment_method, payment_status,
		receiver_name, phone_number, shipping_address,
		total_price, shipping_fee, shipping_fee_percentage, total_amount,
		created_at, updated_at
		FROM orders%s ORDER BY created_at %s LIMIT $%d OFFSET $%d`,
		cond, dir, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}

	totalPage := 0
	if q.Limit > 0 {
		totalPage = (totalDocs + q.Limit - 1) / q.Limit
	}
	return &domain.OrderPage{Orders: orders, TotalDocs: totalDocs, TotalPage: totalPage}, nil
}

// UpdateWithEvent rewrites the mutable order fields (status history, payment
// status) together with the outbox event.
func (r *Repository) UpdateWithEvent(ctx context.Context, o *domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	return r.updateInTx(ctx, o, nil, eventType, payload, headers, traceparent)
}

// CancelWithEvent additionally returns the order's quantities to the
// variations, in the same transaction as the status update. Either the order
// flips to CANCELLED and the stock comes back, or neither happens.
func (r *Repository) CancelWithEvent(ctx context.Context, o *domain.Order, restocks []invdomain.Reservation, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	return r.updateInTx(ctx, o, restocks, eventType, payload, headers, traceparent)
}

func (r *Repository) updateInTx(ctx context.Context, o *domain.Order, restocks []invdomain.Reservation, eventType string, payload []byte, headers map[string]string, traceparent string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	ct, err := tx.Exec(ctx, `UPDATE orders
		SET status_history=$2, payment_status=$3, updated_at=$4
		WHERE id=$1`,
		o.ID, statusStrings(o.StatusHistory), string(o.Payment.Status), o.UpdatedAt)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}

	if len(restocks) > 0 {
		batch := &pgx.Batch{}
		for _, rs := range restocks {
			batch.Queue(`UPDATE variations
				SET available_quantity = available_quantity + $2
				WHERE id = $1`, rs.VariationID, rs.Quantity)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `INSERT INTO outbox (aggregate_type, aggregate_id, type, payload, headers, traceparent, status)
		VALUES ($1,$2,$3,$4,$5,$6,'pending')`,
		"order", o.ID, eventType, payload, headers, traceparent)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repository) loadItems(ctx context.Context, orders []*domain.Order) error {
	for _, o := range orders {
		rows, err := r.pool.Query(ctx, `SELECT variation_id, price_at_purchase, quantity
			FROM order_items WHERE order_id=$1 ORDER BY position`, o.ID)
		if err != nil {
			return err
		}
		for rows.Next() {
			var item domain.OrderItem
			if err := rows.Scan(&item.VariationID, &item.PriceAtPurchase, &item.Quantity); err != nil {
				rows.Close()
				return err
			}
			o.Items = append(o.Items, item)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var history []string
	var method, status string
	err := row.Scan(&o.ID, &o.OrderCode, &o.UserID, &history, &method, &status,
		&o.ReceiverName, &o.PhoneNumber, &o.ShippingAddress,
		&o.TotalPrice, &o.ShippingFee, &o.ShippingFeePercentage, &o.TotalAmount,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	o.StatusHistory = make([]domain.Status, len(history))
	for i, s := range history {
		o.StatusHistory[i] = domain.Status(s)
	}
	o.Payment = domain.Payment{
		Method: paymentdomain.Method(method),
		Status: paymentdomain.PaymentStatus(status),
	}
	return &o, nil
}

func statusStrings(history []domain.Status) []string {
	out := make([]string, len(history))
	for i, s := range history {
		out[i] = string(s)
	}
	return out
}
