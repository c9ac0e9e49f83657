package application

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartapp "github.com/shopline-labs/commerce-core/internal/cart/application"
	cartdomain "github.com/shopline-labs/commerce-core/internal/cart/domain"
	catalogdomain "github.com/shopline-labs/commerce-core/internal/catalog/domain"
	invapp "github.com/shopline-labs/commerce-core/internal/inventory/application"
	invdomain "github.com/shopline-labs/commerce-core/internal/inventory/domain"
	"github.com/shopline-labs/commerce-core/internal/order/domain"
	paymentapp "github.com/shopline-labs/commerce-core/internal/payment/application"
	paymentdomain "github.com/shopline-labs/commerce-core/internal/payment/domain"
	userdomain "github.com/shopline-labs/commerce-core/internal/user/domain"
)

// world is the shared catalog-and-stock backing for a test: the same quantity
// that the catalog reports is the one the stock store decrements, so a
// checkout's re-validation and its reservation see a single source of truth.
type world struct {
	mu         sync.Mutex
	variations map[string]catalogdomain.Variation
	products   map[string]catalogdomain.Product
}

func (w *world) GetVariation(_ context.Context, id string) (catalogdomain.Variation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.variations[id]
	if !ok {
		return catalogdomain.Variation{}, catalogdomain.ErrVariationNotFound
	}
	return v, nil
}

func (w *world) GetProductForVariation(_ context.Context, variationID string) (catalogdomain.Product, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	p, ok := w.products[variationID]
	if !ok {
		return catalogdomain.Product{}, catalogdomain.ErrProductNotFound
	}
	return p, nil
}

func (w *world) DecrementIfAvailable(_ context.Context, variationID string, qty int) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.variations[variationID]
	if !ok {
		return 0, catalogdomain.ErrVariationNotFound
	}
	if v.AvailableQuantity < qty {
		return 0, &invdomain.InsufficientStockError{VariationID: variationID, Requested: qty, Available: v.AvailableQuantity}
	}
	v.AvailableQuantity -= qty
	w.variations[variationID] = v
	return v.AvailableQuantity, nil
}

func (w *world) Increment(_ context.Context, variationID string, qty int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	v, ok := w.variations[variationID]
	if !ok {
		return catalogdomain.ErrVariationNotFound
	}
	v.AvailableQuantity += qty
	w.variations[variationID] = v
	return nil
}

func (w *world) stock(variationID string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.variations[variationID].AvailableQuantity
}

func (w *world) setStock(variationID string, qty int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	v := w.variations[variationID]
	v.AvailableQuantity = qty
	w.variations[variationID] = v
}

type memCartRepo struct {
	mu    sync.Mutex
	carts map[string]*cartdomain.Cart
}

func (m *memCartRepo) FindByUser(_ context.Context, userID string) (*cartdomain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.carts[userID]
	if !ok {
		return nil, nil
	}
	cp := *stored
	cp.Items = append([]cartdomain.CartItem(nil), stored.Items...)
	return &cp, nil
}

func (m *memCartRepo) Create(_ context.Context, cart *cartdomain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *cart
	cp.Items = append([]cartdomain.CartItem(nil), cart.Items...)
	m.carts[cart.UserID] = &cp
	return nil
}

func (m *memCartRepo) Update(_ context.Context, cart *cartdomain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.carts[cart.UserID]
	if !ok || stored.Version != cart.Version {
		return cartdomain.ErrCartConflict
	}
	cp := *cart
	cp.Version++
	cp.Items = append([]cartdomain.CartItem(nil), cart.Items...)
	m.carts[cart.UserID] = &cp
	cart.Version++
	return nil
}

type recordedEvent struct {
	Type    string
	Payload []byte
}

type fakeOrderRepo struct {
	mu             sync.Mutex
	byID           map[string]*domain.Order
	codes          map[string]string
	events         []recordedEvent
	createCalls    int
	codeClashes    int
	failCreate     error
	failNextUpdate error
	restock        func([]invdomain.Reservation)
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{byID: map[string]*domain.Order{}, codes: map[string]string{}}
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.OrderItem(nil), o.Items...)
	cp.StatusHistory = append([]domain.Status(nil), o.StatusHistory...)
	return &cp
}

func (f *fakeOrderRepo) CreateWithEvent(_ context.Context, o *domain.Order, eventType string, payload []byte, _ map[string]string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.failCreate != nil {
		return f.failCreate
	}
	if f.codeClashes > 0 {
		f.codeClashes--
		return domain.ErrOrderCodeTaken
	}
	if _, taken := f.codes[o.OrderCode]; taken {
		return domain.ErrOrderCodeTaken
	}
	f.byID[o.ID] = cloneOrder(o)
	f.codes[o.OrderCode] = o.ID
	f.events = append(f.events, recordedEvent{Type: eventType, Payload: payload})
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, id string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (f *fakeOrderRepo) GetByCode(_ context.Context, code string) (*domain.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.codes[code]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	return cloneOrder(f.byID[id]), nil
}

func (f *fakeOrderRepo) List(_ context.Context, q domain.ListQuery) (*domain.OrderPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*domain.Order
	for _, o := range f.byID {
		if q.UserID != "" && o.UserID != q.UserID {
			continue
		}
		matched = append(matched, cloneOrder(o))
	}
	total := len(matched)
	start := (q.Page - 1) * q.Limit
	if start > total {
		start = total
	}
	end := start + q.Limit
	if end > total {
		end = total
	}
	totalPage := (total + q.Limit - 1) / q.Limit
	return &domain.OrderPage{Orders: matched[start:end], TotalDocs: total, TotalPage: totalPage}, nil
}

func (f *fakeOrderRepo) UpdateWithEvent(_ context.Context, o *domain.Order, eventType string, payload []byte, _ map[string]string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.update(o, nil, eventType, payload)
}

func (f *fakeOrderRepo) CancelWithEvent(_ context.Context, o *domain.Order, restocks []invdomain.Reservation, eventType string, payload []byte, _ map[string]string, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.update(o, restocks, eventType, payload)
}

// update mirrors the single-transaction semantics of the postgres repository:
// a failure applies neither the order change nor the restocks.
func (f *fakeOrderRepo) update(o *domain.Order, restocks []invdomain.Reservation, eventType string, payload []byte) error {
	if f.failNextUpdate != nil {
		err := f.failNextUpdate
		f.failNextUpdate = nil
		return err
	}
	if _, ok := f.byID[o.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	f.byID[o.ID] = cloneOrder(o)
	if len(restocks) > 0 && f.restock != nil {
		f.restock(restocks)
	}
	f.events = append(f.events, recordedEvent{Type: eventType, Payload: payload})
	return nil
}

func (f *fakeOrderRepo) eventTypes() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	types := make([]string, len(f.events))
	for i, e := range f.events {
		types[i] = e.Type
	}
	return types
}

type fakeUsers struct {
	users map[string]userdomain.User
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (userdomain.User, error) {
	u, ok := f.users[id]
	if !ok {
		return userdomain.User{}, userdomain.ErrUserNotFound
	}
	return u, nil
}

type fakeMethodRepo struct {
	mu      sync.Mutex
	enabled map[paymentdomain.Method]bool
}

func (f *fakeMethodRepo) IsEnabled(_ context.Context, method paymentdomain.Method) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled[method], nil
}

func (f *fakeMethodRepo) SetEnabled(_ context.Context, method paymentdomain.Method, enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled[method] = enabled
	return nil
}

type fixture struct {
	svc     *Service
	orders  *fakeOrderRepo
	carts   *cartapp.Service
	world   *world
	methods *fakeMethodRepo
}

func newFixture() *fixture {
	log := slog.New(slog.DiscardHandler)
	w := &world{
		variations: map[string]catalogdomain.Variation{
			"var-a": {ID: "var-a", ProductID: "prod-1", Name: "Size M", UnitPrice: 100, AvailableQuantity: 5},
			"var-b": {ID: "var-b", ProductID: "prod-2", Name: "Size L", UnitPrice: 200, AvailableQuantity: 10},
		},
		products: map[string]catalogdomain.Product{
			"var-a": {ID: "prod-1", Name: "T-Shirt"},
			"var-b": {ID: "prod-2", Name: "Hoodie"},
		},
	}
	orders := newFakeOrderRepo()
	orders.restock = func(items []invdomain.Reservation) {
		for _, it := range items {
			_ = w.Increment(context.Background(), it.VariationID, it.Quantity)
		}
	}
	cartSvc := cartapp.NewService(log, &memCartRepo{carts: map[string]*cartdomain.Cart{}}, w)
	ledger := invapp.NewLedger(log, w)
	methods := &fakeMethodRepo{enabled: map[paymentdomain.Method]bool{
		paymentdomain.MethodCashOnDelivery: true,
		paymentdomain.MethodGateway:        true,
	}}
	paymentSvc := paymentapp.NewService(log, methods)
	users := &fakeUsers{users: map[string]userdomain.User{
		"user-1": {ID: "user-1", FirstName: "Linh", LastName: "Tran", PhoneNumber: "0901234567", Address: "12 Nguyen Hue"},
		"user-2": {ID: "user-2", FirstName: "Minh", LastName: "Pham", PhoneNumber: "0907654321", Address: "34 Le Loi"},
	}}
	svc := NewService(log, orders, cartSvc, w, users, ledger, paymentSvc)
	return &fixture{svc: svc, orders: orders, carts: cartSvc, world: w, methods: methods}
}

func (f *fixture) fillCart(t *testing.T, userID, variationID string, qty int) {
	t.Helper()
	_, err := f.carts.AddItem(context.Background(), userID, variationID, qty)
	require.NoError(t, err)
}

var orderCodePattern = regexp.MustCompile(`^ORDER-[A-Za-z0-9]{10}$`)

func TestCheckout(t *testing.T) {
	f := newFixture()
	f.fillCart(t, "user-1", "var-a", 3)

	result, err := f.svc.Checkout(context.Background(), "user-1", CheckoutRequest{})
	require.NoError(t, err)
	o := result.Order

	assert.Regexp(t, orderCodePattern, o.OrderCode)
	assert.Equal(t, []domain.Status{domain.StatusPending}, o.StatusHistory)
	assert.Equal(t, paymentdomain.MethodCashOnDelivery, o.Payment.Method)
	assert.Equal(t, paymentdomain.StatusUnpaid, o.Payment.Status)
	require.Len(t, o.Items, 1)
	assert.Equal(t, domain.OrderItem{VariationID: "var-a", PriceAtPurchase: 100, Quantity: 3}, o.Items[0])
	assert.Equal(t, int64(300), o.TotalPrice)
	assert.Equal(t, int64(15), o.ShippingFee)
	assert.Equal(t, int64(315), o.TotalAmount)

	// Shipping details fall back to the profile.
	assert.Equal(t, "Linh Tran", o.ReceiverName)
	assert.Equal(t, "0901234567", o.PhoneNumber)
	assert.Equal(t, "12 Nguyen Hue", o.ShippingAddress)
	assert.Equal(t, "user-1", result.User.ID)

	// Stock was decremented and the cart emptied.
	assert.Equal(t, 2, f.world.stock("var-a"))
	cart, err := f.carts.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	require.Equal(t, []string{domain.EventOrderCreated}, f.orders.eventTypes())
	var evt domain.OrderCreated
	require.NoError(t, json.Unmarshal(f.orders.events[0].Payload, &evt))
	assert.Equal(t, o.OrderCode, evt.OrderCode)
	assert.Equal(t, o.TotalAmount, evt.TotalAmount)
}

func TestCheckoutOverridesShippingDetails(t *testing.T) {
	f := newFixture()
	f.fillCart(t, "user-1", "var-a", 1)

	result, err := f.svc.Checkout(context.Background(), "user-1", CheckoutRequest{
		ReceiverName:    "Someone Else",
		PhoneNumber:     "0999999999",
		ShippingAddress: "56 Hai Ba Trung",
	})
	require.NoError(t, err)
	assert.Equal(t, "Someone Else", result.Order.ReceiverName)
	assert.Equal(t, "0999999999", result.Order.PhoneNumber)
	assert.Equal(t, "56 Hai Ba Trung", result.Order.ShippingAddress)
}

func TestCheckoutStockChanged(t *testing.T) {
	f := newFixture()
	f.fillCart(t, "user-1", "var-a", 5)

	// Stock moved between carting and checkout.
	f.world.setStock("var-a", 2)

	_, err := f.svc.Checkout(context.Background(), "user-1", CheckoutRequest{})
	var changedErr *domain.StockChangedError
	require.ErrorAs(t, err, &changedErr)
	require.Len(t, changedErr.Conflicts, 1)
	assert.Equal(t, domain.StockConflict{VariationID: "var-a", Requested: 5, Available: 2}, changedErr.Conflicts[0])

	// Nothing was reserved, nothing was cleared.
	assert.Equal(t, 2, f.world.stock("var-a"))
	cart, err := f.carts.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 1)
	assert.Empty(t, f.orders.eventTypes())
}

func TestCheckoutReleasesStockWhenPersistFails(t *testing.T) {
	f := newFixture()
	f.fillCart(t, "user-1", "var-a", 3)
	f.fillCart(t, "user-1", "var-b", 2)
	dbDown := errors.New("connection refused")
	f.orders.failCreate = dbDown

	_, err := f.svc.Checkout(context.Background(), "user-1", CheckoutRequest{})
	require.ErrorIs(t, err, dbDown)

	// Every reservation was compensated and the cart survived.
	assert.Equal(t, 5, f.world.stock("var-a"))
	assert.Equal(t, 10, f.world.stock("var-b"))
	cart, err := f.carts.GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
}

func TestCheckoutRetriesOnCodeCollision(t *testing.T) {
	f := newFixture()
	f.fillCart(t, "user-1", "var-a", 1)
	f.orders.codeClashes = 2

	result, err := f.svc.Checkout(context.Background(), "user-1", CheckoutRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, f.orders.createCalls)

	// The outbox payload carries the code that finally stuck.
	var evt domain.OrderCreated
	require.NoError(t, json.Unmarshal(f.orders.events[0].Payload, &evt))
	assert.Equal(t, result.Order.OrderCode, evt.OrderCode)
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Checkout(context.Background(), "user-1", CheckoutRequest{})
	assert.ErrorIs(t, err, ErrEmptyCart)
}

func TestCheckoutUnknownMethod(t *testing.T) {
	f := newFixture()
	f.fillCart(t, "user-1", "var-a", 1)
	_, err := f.svc.Checkout(context.Background(), "user-1", CheckoutRequest{PaymentMethod: "BARTER"})
	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
}

func TestCheckoutGatewayDisabled(t *testing.T) {
	f := newFixture()
	f.fillCart(t, "user-1", "var-a", 3)
	require.NoError(t, f.methods.SetEnabled(context.Background(), paymentdomain.MethodGateway, false))

	_, err := f.svc.Checkout(context.Background(), "user-1", CheckoutRequest{PaymentMethod: paymentdomain.MethodGateway})
	assert.ErrorIs(t, err, paymentdomain.ErrPaymentMethodDisabled)
	assert.Equal(t, 5, f.world.stock("var-a"))
}

// Two buyers race for the same 5 units, each wanting 3. Exactly one checkout
// may win; the loser must not leave a partial decrement behind.
func TestConcurrentCheckout(t *testing.T) {
	f := newFixture()
	f.fillCart(t, "user-1", "var-a", 3)
	f.fillCart(t, "user-2", "var-a", 3)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, userID := range []string{"user-1", "user-2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.Checkout(context.Background(), userID, CheckoutRequest{})
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 2, f.world.stock("var-a"))
	assert.Len(t, f.orders.byID, 1)
}

func checkoutOrder(t *testing.T, f *fixture, userID, variationID string, qty int) *domain.Order {
	t.Helper()
	f.fillCart(t, userID, variationID, qty)
	result, err := f.svc.Checkout(context.Background(), userID, CheckoutRequest{})
	require.NoError(t, err)
	return result.Order
}

func TestUpdateStatusCancellationRestoresStock(t *testing.T) {
	f := newFixture()
	o := checkoutOrder(t, f, "user-1", "var-a", 3)
	require.Equal(t, 2, f.world.stock("var-a"))

	admin := Actor{UserID: "ops", Admin: true}
	updated, err := f.svc.UpdateStatus(context.Background(), admin, o.ID, domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, []domain.Status{domain.StatusPending, domain.StatusCancelled}, updated.StatusHistory)
	assert.Equal(t, 5, f.world.stock("var-a"))
	assert.Equal(t, []string{domain.EventOrderCreated, domain.EventOrderStatusChanged}, f.orders.eventTypes())

	// Cancelled is terminal, so the release can never run twice.
	_, err = f.svc.UpdateStatus(context.Background(), admin, o.ID, domain.StatusCancelled)
	var transitionErr *domain.InvalidStatusTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, 5, f.world.stock("var-a"))
}

// A cancel whose persist fails must leave the order pending and the stock
// still held, so that retrying the cancel releases the quantities exactly
// once overall.
func TestCancelPersistFailureKeepsStockReserved(t *testing.T) {
	f := newFixture()
	o := checkoutOrder(t, f, "user-1", "var-a", 3)
	require.Equal(t, 2, f.world.stock("var-a"))

	admin := Actor{UserID: "ops", Admin: true}
	dbDown := errors.New("connection reset")
	f.orders.failNextUpdate = dbDown

	_, err := f.svc.UpdateStatus(context.Background(), admin, o.ID, domain.StatusCancelled)
	require.ErrorIs(t, err, dbDown)

	stored, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Status{domain.StatusPending}, stored.StatusHistory)
	assert.Equal(t, 2, f.world.stock("var-a"))

	// The retry both cancels and restores, once.
	updated, err := f.svc.UpdateStatus(context.Background(), admin, o.ID, domain.StatusCancelled)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, updated.CurrentStatus())
	assert.Equal(t, 5, f.world.stock("var-a"))
}

func TestUpdateStatusDeliveredMarksPaid(t *testing.T) {
	f := newFixture()
	o := checkoutOrder(t, f, "user-1", "var-a", 2)

	admin := Actor{UserID: "ops", Admin: true}
	for _, next := range []domain.Status{domain.StatusProcessing, domain.StatusShipping} {
		_, err := f.svc.UpdateStatus(context.Background(), admin, o.ID, next)
		require.NoError(t, err)
	}
	updated, err := f.svc.UpdateStatus(context.Background(), admin, o.ID, domain.StatusDelivered)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDelivered, updated.CurrentStatus())
	assert.Equal(t, paymentdomain.StatusPaid, updated.Payment.Status)
	// Delivery keeps the decrement in place.
	assert.Equal(t, 3, f.world.stock("var-a"))
}

func TestUpdateStatusRejectsSkippedStep(t *testing.T) {
	f := newFixture()
	o := checkoutOrder(t, f, "user-1", "var-a", 1)

	_, err := f.svc.UpdateStatus(context.Background(), Actor{UserID: "ops", Admin: true}, o.ID, domain.StatusDelivered)
	var transitionErr *domain.InvalidStatusTransitionError
	require.ErrorAs(t, err, &transitionErr)
	assert.Equal(t, domain.StatusPending, transitionErr.From)

	stored, err := f.orders.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Status{domain.StatusPending}, stored.StatusHistory)
	assert.Equal(t, []string{domain.EventOrderCreated}, f.orders.eventTypes())
}

func TestGetByIDScopesToOwner(t *testing.T) {
	f := newFixture()
	o := checkoutOrder(t, f, "user-1", "var-a", 1)

	got, err := f.svc.GetByID(context.Background(), Actor{UserID: "user-1"}, o.ID)
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)

	// A stranger sees not-found, not forbidden.
	_, err = f.svc.GetByID(context.Background(), Actor{UserID: "user-2"}, o.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.svc.GetByID(context.Background(), Actor{UserID: "user-2", Admin: true}, o.ID)
	assert.NoError(t, err)
}

func TestListScopesNonAdmins(t *testing.T) {
	f := newFixture()
	checkoutOrder(t, f, "user-1", "var-a", 1)
	checkoutOrder(t, f, "user-2", "var-b", 1)

	page, err := f.svc.List(context.Background(), Actor{UserID: "user-1"}, domain.ListQuery{UserID: "user-2"})
	require.NoError(t, err)
	require.Len(t, page.Orders, 1)
	assert.Equal(t, "user-1", page.Orders[0].UserID)
	assert.Equal(t, 1, page.TotalDocs)

	adminPage, err := f.svc.List(context.Background(), Actor{UserID: "ops", Admin: true}, domain.ListQuery{})
	require.NoError(t, err)
	assert.Equal(t, 2, adminPage.TotalDocs)

	bogus := domain.Status("SHIPPED")
	_, err = f.svc.List(context.Background(), Actor{UserID: "user-1"}, domain.ListQuery{StatusMilestone: &bogus})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestConfirmPaymentByCode(t *testing.T) {
	f := newFixture()
	o := checkoutOrder(t, f, "user-1", "var-a", 1)

	updated, err := f.svc.ConfirmPaymentByCode(context.Background(), "user-1", o.OrderCode)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPaid, updated.Payment.Status)
	assert.Equal(t, []string{domain.EventOrderCreated, domain.EventOrderPaymentConfirmed}, f.orders.eventTypes())

	// Confirming again is a no-op, not a second event.
	again, err := f.svc.ConfirmPaymentByCode(context.Background(), "user-1", o.OrderCode)
	require.NoError(t, err)
	assert.Equal(t, paymentdomain.StatusPaid, again.Payment.Status)
	assert.Len(t, f.orders.eventTypes(), 2)

	_, err = f.svc.ConfirmPaymentByCode(context.Background(), "user-2", o.OrderCode)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.svc.ConfirmPaymentByCode(context.Background(), "user-1", "ORDER-missing123")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}
