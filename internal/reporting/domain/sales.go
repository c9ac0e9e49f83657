package domain

// VariationSales is one row of the ranked sales aggregation: a variation, its
// product metadata, and the summed quantity sold across delivered orders.
type VariationSales struct {
	VariationID     string `json:"variationId"`
	VariationName   string `json:"variationName"`
	ProductID       string `json:"productId"`
	ProductName     string `json:"productName"`
	PriceAtPurchase int64  `json:"priceAtPurchase"`
	TotalSold       int    `json:"totalSaleQuantity"`
}

type SalesPage struct {
	Items      []VariationSales `json:"items"`
	TotalDocs  int              `json:"totalDocs"`
	TotalPages int              `json:"totalPages"`
}
