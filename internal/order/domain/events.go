package domain

const (
	EventOrderCreated          = "OrderCreated"
	EventOrderStatusChanged    = "OrderStatusChanged"
	EventOrderPaymentConfirmed = "OrderPaymentConfirmed"
)

type OrderCreated struct {
	OrderID     string      `json:"orderId"`
	OrderCode   string      `json:"orderCode"`
	UserID      string      `json:"userId"`
	TotalAmount int64       `json:"totalAmount"`
	Items       []OrderItem `json:"items"`
}

type OrderStatusChanged struct {
	OrderID   string `json:"orderId"`
	OrderCode string `json:"orderCode"`
	From      Status `json:"from"`
	To        Status `json:"to"`
}

type OrderPaymentConfirmed struct {
	OrderID   string `json:"orderId"`
	OrderCode string `json:"orderCode"`
}
