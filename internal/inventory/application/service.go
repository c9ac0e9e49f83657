package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopline-labs/commerce-core/internal/inventory/domain"
)

var ErrInvalidQuantity = errors.New("quantity must be positive")

// Ledger tracks available quantity per variation. Reservation and release are
// delegated to the store as atomic conditional mutations, so two concurrent
// reservations can never jointly overdraw stock.
type Ledger struct {
	log   *slog.Logger
	store StockStore
}

func NewLedger(log *slog.Logger, store StockStore) *Ledger {
	return &Ledger{log: log, store: store}
}

// Reserve decrements available stock for one variation and returns the
// remaining quantity. Fails with *domain.InsufficientStockError when the
// variation cannot cover qty.
func (l *Ledger) Reserve(ctx context.Context, variationID string, qty int) (int, error) {
	if qty <= 0 {
		return 0, ErrInvalidQuantity
	}
	remaining, err := l.store.DecrementIfAvailable(ctx, variationID, qty)
	if err != nil {
		return 0, err
	}
	l.log.Debug("stock reserved", "variation_id", variationID, "qty", qty, "remaining", remaining)
	return remaining, nil
}

// Release returns qty units to the variation. The ledger does not track which
// release matches which reservation; callers release each quantity exactly once.
func (l *Ledger) Release(ctx context.Context, variationID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	if err := l.store.Increment(ctx, variationID, qty); err != nil {
		return err
	}
	l.log.Debug("stock released", "variation_id", variationID, "qty", qty)
	return nil
}

// ReserveAll reserves every item or none. On the first failure it releases
// the quantities already reserved, then returns the failure.
func (l *Ledger) ReserveAll(ctx context.Context, items []domain.Reservation) error {
	reserved := make([]domain.Reservation, 0, len(items))
	for _, item := range items {
		if _, err := l.Reserve(ctx, item.VariationID, item.Quantity); err != nil {
			l.rollback(ctx, reserved)
			return err
		}
		reserved = append(reserved, item)
	}
	return nil
}

// ReleaseAll returns every item's quantity, continuing past individual
// failures so one bad row cannot strand the rest.
func (l *Ledger) ReleaseAll(ctx context.Context, items []domain.Reservation) error {
	var firstErr error
	for _, item := range items {
		if err := l.Release(ctx, item.VariationID, item.Quantity); err != nil {
			l.log.Error("stock release failed", "variation_id", item.VariationID, "qty", item.Quantity, "err", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (l *Ledger) rollback(ctx context.Context, reserved []domain.Reservation) {
	for _, item := range reserved {
		if err := l.store.Increment(ctx, item.VariationID, item.Quantity); err != nil {
			// The compensator must not mask the original failure; log and move on.
			l.log.Error("reservation rollback failed", "variation_id", item.VariationID, "qty", item.Quantity, "err", err)
		}
	}
}
