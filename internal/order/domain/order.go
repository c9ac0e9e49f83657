package domain

import (
	"errors"
	"fmt"
	"time"

	paymentdomain "github.com/shopline-labs/commerce-core/internal/payment/domain"
)

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipping   Status = "SHIPPING"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipping, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// transitions is the adjacency table of the status machine. Forward movement
// is strictly one step at a time; cancellation is allowed from any state not
// yet delivered. Delivered and cancelled are terminal.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipping, StatusCancelled},
	StatusShipping:   {StatusDelivered, StatusCancelled},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var ErrOrderNotFound = errors.New("order not found")

// ErrOrderCodeTaken reports an order-code uniqueness conflict; the caller
// regenerates and retries.
var ErrOrderCodeTaken = errors.New("order code already exists")

type InvalidStatusTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition %s -> %s", e.From, e.To)
}

// StockConflict is one cart line whose quantity no longer fits live stock.
type StockConflict struct {
	VariationID string `json:"variationId"`
	Requested   int    `json:"requested"`
	Available   int    `json:"available"`
}

// StockChangedError fails checkout as a whole when any line exceeds live
// stock; no partial orders, no silent truncation.
type StockChangedError struct {
	Conflicts []StockConflict
}

func (e *StockChangedError) Error() string {
	return fmt.Sprintf("stock changed for %d cart item(s), re-check the cart", len(e.Conflicts))
}

type Payment struct {
	Method paymentdomain.Method        `json:"paymentMethod"`
	Status paymentdomain.PaymentStatus `json:"paymentStatus"`
}

// OrderItem is an immutable snapshot taken at checkout. PriceAtPurchase
// decouples the order from future price changes.
type OrderItem struct {
	VariationID     string `json:"variationId"`
	PriceAtPurchase int64  `json:"priceAtPurchase"`
	Quantity        int    `json:"quantity"`
}

// Order is created once at checkout and afterwards mutated only by appending
// to StatusHistory and updating Payment.Status. Cancellation is a status, not
// a deletion.
type Order struct {
	ID                    string      `json:"id"`
	OrderCode             string      `json:"orderCode"`
	UserID                string      `json:"userId"`
	Items                 []OrderItem `json:"orderItems"`
	StatusHistory         []Status    `json:"orderStatus"`
	Payment               Payment     `json:"payment"`
	ReceiverName          string      `json:"receiverName"`
	PhoneNumber           string      `json:"phoneNumber"`
	ShippingAddress       string      `json:"shippingAddress"`
	TotalPrice            int64       `json:"totalPrice"`
	ShippingFee           int64       `json:"shippingFee"`
	ShippingFeePercentage float64     `json:"shippingFeePercentage"`
	TotalAmount           int64       `json:"totalAmount"`
	CreatedAt             time.Time   `json:"createdAt"`
	UpdatedAt             time.Time   `json:"updatedAt"`
}

// CurrentStatus is the last element of the history.
func (o *Order) CurrentStatus() Status {
	if len(o.StatusHistory) == 0 {
		return ""
	}
	return o.StatusHistory[len(o.StatusHistory)-1]
}

// AppendStatus validates the transition against the adjacency table and
// appends to the history. The history only ever grows.
func (o *Order) AppendStatus(next Status) error {
	if !next.Valid() {
		return &InvalidStatusTransitionError{From: o.CurrentStatus(), To: next}
	}
	if !CanTransition(o.CurrentStatus(), next) {
		return &InvalidStatusTransitionError{From: o.CurrentStatus(), To: next}
	}
	o.StatusHistory = append(o.StatusHistory, next)
	o.UpdatedAt = time.Now().UTC()
	return nil
}

func NewOrder(id, code, userID string, items []OrderItem, method paymentdomain.Method) *Order {
	now := time.Now().UTC()
	return &Order{
		ID:            id,
		OrderCode:     code,
		UserID:        userID,
		Items:         items,
		StatusHistory: []Status{StatusPending},
		Payment: Payment{
			Method: method,
			Status: paymentdomain.StatusUnpaid,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
