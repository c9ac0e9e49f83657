package application

import (
	"context"

	cartdomain "github.com/shopline-labs/commerce-core/internal/cart/domain"
	catalogdomain "github.com/shopline-labs/commerce-core/internal/catalog/domain"
	invdomain "github.com/shopline-labs/commerce-core/internal/inventory/domain"
	"github.com/shopline-labs/commerce-core/internal/order/domain"
	paymentdomain "github.com/shopline-labs/commerce-core/internal/payment/domain"
	userdomain "github.com/shopline-labs/commerce-core/internal/user/domain"
)

type OrderRepository interface {
	// CreateWithEvent persists the order, its items and the outbox event in
	// one transaction. An order-code collision fails with
	// domain.ErrOrderCodeTaken.
	CreateWithEvent(ctx context.Context, o *domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByCode(ctx context.Context, code string) (*domain.Order, error)
	List(ctx context.Context, q domain.ListQuery) (*domain.OrderPage, error)
	// UpdateWithEvent rewrites status history and payment status plus the
	// outbox event in one transaction. Everything else is immutable.
	UpdateWithEvent(ctx context.Context, o *domain.Order, eventType string, payload []byte, headers map[string]string, traceparent string) error
	// CancelWithEvent is UpdateWithEvent plus the variation quantity restores,
	// all in one transaction: the status flip and the stock release commit or
	// fail together, so a retried cancel can never release twice.
	CancelWithEvent(ctx context.Context, o *domain.Order, restocks []invdomain.Reservation, eventType string, payload []byte, headers map[string]string, traceparent string) error
}

type InventoryLedger interface {
	ReserveAll(ctx context.Context, items []invdomain.Reservation) error
	ReleaseAll(ctx context.Context, items []invdomain.Reservation) error
}

type Carts interface {
	GetOrCreate(ctx context.Context, userID string) (*cartdomain.Cart, error)
	PriceSnapshot(ctx context.Context, userID string) (*cartdomain.Snapshot, error)
	Clear(ctx context.Context, userID string) (*cartdomain.Snapshot, error)
}

type Catalog interface {
	GetVariation(ctx context.Context, id string) (catalogdomain.Variation, error)
}

type Users interface {
	GetByID(ctx context.Context, id string) (userdomain.User, error)
}

type PaymentMethods interface {
	CheckAvailable(ctx context.Context, method paymentdomain.Method) error
}
