package application

import (
	"context"
	"time"

	"github.com/shopline-labs/commerce-core/internal/reporting/domain"
)

type SalesStore interface {
	// SumDeliveredRevenue sums totalPrice over orders whose current status is
	// DELIVERED, created within [from, to]; nil bounds are open-ended.
	SumDeliveredRevenue(ctx context.Context, from, to *time.Time) (int64, error)
	// CountOrdersBetween counts orders created in [from, to), any status.
	CountOrdersBetween(ctx context.Context, from, to time.Time) (int, error)
	// VariationSales groups delivered orders' items by variation, summing
	// quantity, ranked by total sold descending then variation id.
	VariationSales(ctx context.Context, from, to *time.Time, offset, limit int) ([]domain.VariationSales, int, error)
}
