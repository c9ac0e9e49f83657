// Package shipping maps a cart subtotal to a shipping fee through an ordered
// table of price breakpoints.
package shipping

// Tier applies to subtotals of at least MinTotal. The fee is Percentage of
// the subtotal, rounded down.
type Tier struct {
	MinTotal   int64
	Percentage float64
}

// DefaultTiers must stay sorted ascending by MinTotal.
var DefaultTiers = []Tier{
	{MinTotal: 0, Percentage: 5},
	{MinTotal: 200_000, Percentage: 3},
	{MinTotal: 500_000, Percentage: 1},
	{MinTotal: 1_000_000, Percentage: 0},
}

// Calculate returns the fee and the applied percentage for totalPrice. The
// last tier whose MinTotal does not exceed totalPrice wins.
func Calculate(totalPrice int64, tiers []Tier) (fee int64, percentage float64) {
	for _, t := range tiers {
		if totalPrice >= t.MinTotal {
			percentage = t.Percentage
		}
	}
	fee = int64(float64(totalPrice) * percentage / 100)
	return fee, percentage
}
