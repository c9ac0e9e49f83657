package application

import "context"

type StockStore interface {
	// DecrementIfAvailable atomically decrements available stock and returns
	// the remaining quantity, or *domain.InsufficientStockError without
	// changing anything.
	DecrementIfAvailable(ctx context.Context, variationID string, qty int) (int, error)
	Increment(ctx context.Context, variationID string, qty int) error
}
