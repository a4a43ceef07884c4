package checkout

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidCoupon is returned when the remote service rejects a code or
// answers with an unusable percentage.
var ErrInvalidCoupon = errors.New("invalid coupon code")

// Coupon is a code accepted by the remote service. Only the server-returned
// percentage is ever used for pricing.
type Coupon struct {
	Code               string          `json:"code"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	ExpiryDate         string          `json:"expiryDate,omitempty"`
}

// Valid reports whether the percentage lies in (0, 100].
func (c *Coupon) Valid() bool {
	if c == nil {
		return false
	}
	return c.DiscountPercentage.IsPositive() && c.DiscountPercentage.LessThanOrEqual(hundred)
}

// CouponValidator validates a raw code against the remote service.
type CouponValidator interface {
	ValidateCoupon(ctx context.Context, code string) (*Coupon, error)
}
