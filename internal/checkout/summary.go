package checkout

import "github.com/shopspring/decimal"

const (
	// Orders at or above the threshold ship free.
	FreeShippingThreshold = 100.00
	FlatShippingFee       = 9.99
	TaxRate               = 0.085
)

// Summary is the monetary view derived from the cart. It is recomputed on
// read, never stored.
type Summary struct {
	Subtotal  float64 `json:"subtotal"`
	Shipping  float64 `json:"shipping"`
	Tax       float64 `json:"tax"`
	Total     float64 `json:"total"`
	ItemCount int     `json:"itemCount"`
}

// Summarize derives the summary from the cart value and item count. The
// results are deliberately unrounded: display may show raw sums, and
// rounding happens exactly once, at the submission boundary.
func Summarize(subtotal float64, itemCount int) Summary {
	shipping := FlatShippingFee
	if subtotal >= FreeShippingThreshold {
		shipping = 0
	}
	tax := subtotal * TaxRate
	return Summary{
		Subtotal:  subtotal,
		Shipping:  shipping,
		Tax:       tax,
		Total:     subtotal + shipping + tax,
		ItemCount: itemCount,
	}
}

// Rounded rounds each component to two decimals and recomputes the total as
// the exact sum of the rounded components, so the persisted record always
// satisfies total = subtotal + shipping + tax.
func (s Summary) Rounded() Summary {
	subtotal := decimal.NewFromFloat(s.Subtotal).Round(2)
	shipping := decimal.NewFromFloat(s.Shipping).Round(2)
	tax := decimal.NewFromFloat(s.Tax).Round(2)
	total := subtotal.Add(shipping).Add(tax)

	return Summary{
		Subtotal:  subtotal.InexactFloat64(),
		Shipping:  shipping.InexactFloat64(),
		Tax:       tax.InexactFloat64(),
		Total:     total.InexactFloat64(),
		ItemCount: s.ItemCount,
	}
}
