package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopline-labs/commerce-core/internal/reporting/domain"
)

const defaultPageSize = 5

// Service computes sales statistics over committed orders, entirely off the
// write path.
type Service struct {
	log   *slog.Logger
	store SalesStore
	now   func() time.Time
}

func NewService(log *slog.Logger, store SalesStore) *Service {
	return &Service{log: log, store: store, now: time.Now}
}

// TotalRevenue sums totalPrice over delivered orders in the range. Either
// bound may be nil for an open end.
func (s *Service) TotalRevenue(ctx context.Context, from, to *time.Time) (int64, error) {
	return s.store.SumDeliveredRevenue(ctx, from, to)
}

// OrdersToday counts orders created during the current calendar day,
// midnight to midnight in the server's local time.
func (s *Service) OrdersToday(ctx context.Context) (int, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return s.store.CountOrdersBetween(ctx, start, start.AddDate(0, 0, 1))
}

// TopVariationSales pages the ranked per-variation sales aggregation.
// Ranking is part of the contract: total quantity sold descending, ties
// broken by variation id ascending.
func (s *Service) TopVariationSales(ctx context.Context, page, limit int, from, to *time.Time) (*domain.SalesPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	items, totalDocs, err := s.store.VariationSales(ctx, from, to, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}
	return &domain.SalesPage{
		Items:      items,
		TotalDocs:  totalDocs,
		TotalPages: (totalDocs + limit - 1) / limit,
	}, nil
}
