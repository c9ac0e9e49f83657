package domain

import "errors"

type Method string

const (
	MethodCashOnDelivery Method = "CASH_ON_DELIVERY"
	MethodGateway        Method = "GATEWAY"
)

type PaymentStatus string

const (
	StatusUnpaid PaymentStatus = "UNPAID"
	StatusPaid   PaymentStatus = "PAID"
)

// ErrPaymentMethodDisabled rejects checkout when the requested gateway method
// is switched off in the registry.
var ErrPaymentMethodDisabled = errors.New("payment method is disabled")

func (m Method) Valid() bool {
	return m == MethodCashOnDelivery || m == MethodGateway
}

// RequiresGateway reports whether the method depends on an upstream gateway
// and therefore on the enabled flag.
func (m Method) RequiresGateway() bool {
	return m == MethodGateway
}
