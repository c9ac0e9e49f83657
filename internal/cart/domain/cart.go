package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrItemNotFound    = errors.New("item not in cart")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrCartConflict signals a lost optimistic-concurrency race between two
	// sessions writing the same user's cart; the caller should re-read.
	ErrCartConflict = errors.New("cart was modified concurrently")
)

// QuantityExceedsStockError rejects adding more of a variation than the
// catalog currently has available.
type QuantityExceedsStockError struct {
	VariationID string
	Requested   int
	Available   int
}

func (e *QuantityExceedsStockError) Error() string {
	return fmt.Sprintf("quantity %d for variation %s exceeds available stock %d",
		e.Requested, e.VariationID, e.Available)
}

type CartItem struct {
	VariationID string `json:"variationId"`
	Quantity    int    `json:"quantity"`
}

// Cart is the per-user working set of items. It is mutable until checkout
// converts it into an order, and is emptied rather than deleted. Version
// backs the conditional write guarding concurrent sessions.
type Cart struct {
	ID        string
	UserID    string
	Items     []CartItem
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (c *Cart) ItemIndex(variationID string) int {
	for i, item := range c.Items {
		if item.VariationID == variationID {
			return i
		}
	}
	return -1
}

func (c *Cart) RemoveAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// SnapshotItem is one priced line of the cart response. Quantity is clamped
// to live stock at snapshot time.
type SnapshotItem struct {
	VariationID   string `json:"variationId"`
	VariationName string `json:"variationName"`
	ProductID     string `json:"productId"`
	ProductName   string `json:"productName"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unitPrice"`
	SalePrice     *int64 `json:"salePrice,omitempty"`
	SubTotal      int64  `json:"subTotal"`
}

// Snapshot is the priced view of a cart, always recomputed from live stock
// and never persisted.
type Snapshot struct {
	Items                 []SnapshotItem `json:"items"`
	TotalPrice            int64          `json:"totalPrice"`
	ShippingFee           int64          `json:"shippingFee"`
	ShippingFeePercentage float64        `json:"shippingFeePercentage"`
	TotalAmount           int64          `json:"totalAmount"`
}
