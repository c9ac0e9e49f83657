package domain

import "fmt"

// InsufficientStockError reports a reservation that would overdraw a
// variation. It carries the conflicting quantities so callers can retry with
// corrected input.
type InsufficientStockError struct {
	VariationID string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variation %s: requested %d, available %d",
		e.VariationID, e.Requested, e.Available)
}

// Reservation is one (variation, quantity) pair to reserve or release.
type Reservation struct {
	VariationID string
	Quantity    int
}
