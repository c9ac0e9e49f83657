package domain

import "errors"

var (
	ErrVariationNotFound = errors.New("variation not found")
	ErrProductNotFound   = errors.New("product not found")
)

type Product struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Variation is a purchasable SKU. The inventory ledger is the only writer of
// AvailableQuantity; everything else is catalog-owned.
type Variation struct {
	ID                string `json:"id"`
	ProductID         string `json:"productId"`
	Name              string `json:"name"`
	UnitPrice         int64  `json:"unitPrice"`
	SalePrice         *int64 `json:"salePrice,omitempty"`
	AvailableQuantity int    `json:"availableQuantity"`
}

// EffectivePrice is the sale price when one is set, otherwise the unit price.
func (v Variation) EffectivePrice() int64 {
	if v.SalePrice != nil && *v.SalePrice > 0 {
		return *v.SalePrice
	}
	return v.UnitPrice
}
