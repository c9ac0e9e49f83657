package application

import (
	"context"

	catalogdomain "github.com/shopline-labs/commerce-core/internal/catalog/domain"
	"github.com/shopline-labs/commerce-core/internal/cart/domain"
)

type CartRepository interface {
	// FindByUser returns (nil, nil) when the user has no cart yet.
	FindByUser(ctx context.Context, userID string) (*domain.Cart, error)
	Create(ctx context.Context, cart *domain.Cart) error
	// Update is conditional on cart.Version and bumps it; a stale version
	// fails with domain.ErrCartConflict.
	Update(ctx context.Context, cart *domain.Cart) error
}

type Catalog interface {
	GetVariation(ctx context.Context, id string) (catalogdomain.Variation, error)
	GetProductForVariation(ctx context.Context, variationID string) (catalogdomain.Product, error)
}
