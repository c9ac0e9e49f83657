package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	invdomain "github.com/shopline-labs/commerce-core/internal/inventory/domain"
	"github.com/shopline-labs/commerce-core/internal/order/domain"
	paymentdomain "github.com/shopline-labs/commerce-core/internal/payment/domain"
	userdomain "github.com/shopline-labs/commerce-core/internal/user/domain"
	"github.com/shopline-labs/commerce-core/pkg/tracing"
)

var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrInvalidStatus        = errors.New("unknown order status")
)

const codeRetries = 5

// Actor scopes an operation. Customers only see and mutate their own orders;
// admins bypass the ownership check.
type Actor struct {
	UserID string
	Admin  bool
}

type CheckoutRequest struct {
	PaymentMethod   paymentdomain.Method `json:"paymentMethod"`
	ReceiverName    string               `json:"receiverName"`
	PhoneNumber     string               `json:"phoneNumber"`
	ShippingAddress string               `json:"shippingAddress"`
}

// CheckoutResult pairs the created order with its owner's profile. The
// password hash never serializes from the user type.
type CheckoutResult struct {
	Order *domain.Order   `json:"order"`
	User  userdomain.User `json:"user"`
}

// Service is the order engine: it converts carts into orders and drives the
// status machine, coordinating stock reservation and release with the ledger.
type Service struct {
	log      *slog.Logger
	repo     OrderRepository
	carts    Carts
	catalog  Catalog
	users    Users
	ledger   InventoryLedger
	payments PaymentMethods
}

func NewService(log *slog.Logger, repo OrderRepository, carts Carts, catalog Catalog, users Users, ledger InventoryLedger, payments PaymentMethods) *Service {
	return &Service{
		log:      log,
		repo:     repo,
		carts:    carts,
		catalog:  catalog,
		users:    users,
		ledger:   ledger,
		payments: payments,
	}
}

// Checkout converts the user's cart into an order. The whole operation is
// all-or-nothing: any stale cart line fails with StockChangedError before
// anything is reserved, and a reservation that fails partway is compensated
// by releasing what was already taken.
func (s *Service) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*CheckoutResult, error) {
	method := req.PaymentMethod
	if method == "" {
		method = paymentdomain.MethodCashOnDelivery
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if err := s.payments.CheckAvailable(ctx, method); err != nil {
		return nil, err
	}

	cart, err := s.carts.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(cart.Items) == 0 {
		return nil, ErrEmptyCart
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	snapshot, err := s.carts.PriceSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Re-validate every line against live stock. The snapshot's
	// clamp-and-drop is a display simplification; checkout must not truncate.
	var conflicts []domain.StockConflict
	items := make([]domain.OrderItem, 0, len(cart.Items))
	reservations := make([]invdomain.Reservation, 0, len(cart.Items))
	for _, line := range cart.Items {
		variation, err := s.catalog.GetVariation(ctx, line.VariationID)
		if err != nil {
			return nil, err
		}
		if line.Quantity > variation.AvailableQuantity {
			conflicts = append(conflicts, domain.StockConflict{
				VariationID: line.VariationID,
				Requested:   line.Quantity,
				Available:   variation.AvailableQuantity,
			})
			continue
		}
		items = append(items, domain.OrderItem{
			VariationID:     line.VariationID,
			PriceAtPurchase: variation.EffectivePrice(),
			Quantity:        line.Quantity,
		})
		reservations = append(reservations, invdomain.Reservation{
			VariationID: line.VariationID,
			Quantity:    line.Quantity,
		})
	}
	if len(conflicts) > 0 {
		return nil, &domain.StockChangedError{Conflicts: conflicts}
	}

	if err := s.ledger.ReserveAll(ctx, reservations); err != nil {
		return nil, err
	}

	o := domain.NewOrder(uuid.NewString(), domain.NewOrderCode(), userID, items, method)
	o.ReceiverName = orDefault(req.ReceiverName, user.FullName())
	o.PhoneNumber = orDefault(req.PhoneNumber, user.PhoneNumber)
	o.ShippingAddress = orDefault(req.ShippingAddress, user.Address)
	o.TotalPrice = snapshot.TotalPrice
	o.ShippingFee = snapshot.ShippingFee
	o.ShippingFeePercentage = snapshot.ShippingFeePercentage
	o.TotalAmount = snapshot.TotalAmount

	if err := s.persistNew(ctx, o); err != nil {
		// Reserved stock must not survive a failed checkout.
		_ = s.ledger.ReleaseAll(ctx, reservations)
		return nil, err
	}

	if _, err := s.carts.Clear(ctx, userID); err != nil {
		s.log.Error("cart clear after checkout failed", "user_id", userID, "order_id", o.ID, "err", err)
	}
	s.log.Info("order created", "order_id", o.ID, "order_code", o.OrderCode, "user_id", userID, "total_amount", o.TotalAmount)
	return &CheckoutResult{Order: o, User: user}, nil
}

// persistNew writes the order, regenerating the code on a uniqueness
// conflict.
func (s *Service) persistNew(ctx context.Context, o *domain.Order) error {
	payload, err := json.Marshal(domain.OrderCreated{
		OrderID:     o.ID,
		OrderCode:   o.OrderCode,
		UserID:      o.UserID,
		TotalAmount: o.TotalAmount,
		Items:       o.Items,
	})
	if err != nil {
		return err
	}
	headers := map[string]string{"source": "commerce-server"}

	for attempt := 0; attempt < codeRetries; attempt++ {
		err = s.repo.CreateWithEvent(ctx, o, domain.EventOrderCreated, payload, headers, tracing.Traceparent(ctx))
		if !errors.Is(err, domain.ErrOrderCodeTaken) {
			return err
		}
		s.log.Warn("order code collision, regenerating", "order_code", o.OrderCode)
		o.OrderCode = domain.NewOrderCode()
		if payload, err = json.Marshal(domain.OrderCreated{
			OrderID:     o.ID,
			OrderCode:   o.OrderCode,
			UserID:      o.UserID,
			TotalAmount: o.TotalAmount,
			Items:       o.Items,
		}); err != nil {
			return err
		}
	}
	return err
}

// GetByID returns the order, scoped by actor. A customer asking for someone
// else's order gets ErrOrderNotFound, not a permission error.
func (s *Service) GetByID(ctx context.Context, actor Actor, orderID string) (*domain.Order, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !actor.Admin && o.UserID != actor.UserID {
		return nil, domain.ErrOrderNotFound
	}
	return o, nil
}

// List pages orders. Non-admin actors are always scoped to their own orders.
func (s *Service) List(ctx context.Context, actor Actor, q domain.ListQuery) (*domain.OrderPage, error) {
	if !actor.Admin {
		q.UserID = actor.UserID
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	if q.StatusMilestone != nil && !q.StatusMilestone.Valid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.List(ctx, q)
}

// UpdateStatus appends a status to the order's history. Cancellation restores
// every item's reserved quantity exactly once; delivery marks the payment
// paid regardless of method.
func (s *Service) UpdateStatus(ctx context.Context, actor Actor, orderID string, next domain.Status) (*domain.Order, error) {
	o, err := s.GetByID(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	from := o.CurrentStatus()
	if err := o.AppendStatus(next); err != nil {
		return nil, err
	}
	if next == domain.StatusDelivered {
		o.Payment.Status = paymentdomain.StatusPaid
	}

	payload, err := json.Marshal(domain.OrderStatusChanged{
		OrderID:   o.ID,
		OrderCode: o.OrderCode,
		From:      from,
		To:        next,
	})
	if err != nil {
		return nil, err
	}
	headers := map[string]string{"source": "commerce-server"}

	if next == domain.StatusCancelled {
		restocks := make([]invdomain.Reservation, 0, len(o.Items))
		for _, item := range o.Items {
			restocks = append(restocks, invdomain.Reservation{
				VariationID: item.VariationID,
				Quantity:    item.Quantity,
			})
		}
		// The status flip and the stock restore commit together. A failed
		// cancel leaves the order unchanged and the stock still held, so the
		// caller can retry without double-releasing.
		if err := s.repo.CancelWithEvent(ctx, o, restocks, domain.EventOrderStatusChanged, payload, headers, tracing.Traceparent(ctx)); err != nil {
			return nil, err
		}
	} else if err := s.repo.UpdateWithEvent(ctx, o, domain.EventOrderStatusChanged, payload, headers, tracing.Traceparent(ctx)); err != nil {
		return nil, err
	}
	s.log.Info("order status updated", "order_id", o.ID, "from", string(from), "to", string(next))
	return o, nil
}

// ConfirmPaymentByCode marks the order paid, used by the gateway callback
// path which only knows the human-readable code.
func (s *Service) ConfirmPaymentByCode(ctx context.Context, userID, orderCode string) (*domain.Order, error) {
	o, err := s.repo.GetByCode(ctx, orderCode)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrOrderNotFound
	}
	if o.Payment.Status == paymentdomain.StatusPaid {
		return o, nil
	}
	o.Payment.Status = paymentdomain.StatusPaid

	payload, err := json.Marshal(domain.OrderPaymentConfirmed{OrderID: o.ID, OrderCode: o.OrderCode})
	if err != nil {
		return nil, err
	}
	headers := map[string]string{"source": "commerce-server"}
	if err := s.repo.UpdateWithEvent(ctx, o, domain.EventOrderPaymentConfirmed, payload, headers, tracing.Traceparent(ctx)); err != nil {
		return nil, err
	}
	s.log.Info("order payment confirmed", "order_id", o.ID, "order_code", o.OrderCode)
	return o, nil
}

func orDefault(v, def string) string {
	if v != "" {
		return v
	}
	return def
}
