// Package checkout prices the cart and submits orders.
package checkout

import (
	"github.com/shopspring/decimal"
)

// Default pricing: orders above 300 ship free, everything else pays a flat 25.
var (
	DefaultFreeShippingThreshold = decimal.NewFromInt(300)
	DefaultFlatShippingRate      = decimal.NewFromInt(25)
)

var hundred = decimal.NewFromInt(100)

// Pricing holds the shipping rules.
type Pricing struct {
	FreeShippingThreshold decimal.Decimal
	FlatShippingRate      decimal.Decimal
}

// DefaultPricing returns the canonical shipping rules.
func DefaultPricing() Pricing {
	return Pricing{
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		FlatShippingRate:      DefaultFlatShippingRate,
	}
}

// Result is the derived price breakdown. It is never stored.
type Result struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingCost   decimal.Decimal `json:"shippingCost"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	Total          decimal.Decimal `json:"total"`
}

// Compute derives the breakdown for subtotal. A nil coupon means no
// discount. The discount is taken from the subtotal only, never from
// shipping.
func (p Pricing) Compute(subtotal decimal.Decimal, c *Coupon) Result {
	shipping := p.FlatShippingRate
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	discount := decimal.Zero
	if c.Valid() {
		discount = subtotal.Mul(c.DiscountPercentage).Div(hundred).Round(2)
	}

	total := subtotal.Add(shipping).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Result{
		Subtotal:       subtotal.Round(2),
		ShippingCost:   shipping.Round(2),
		DiscountAmount: discount,
		Total:          total.Round(2),
	}
}
