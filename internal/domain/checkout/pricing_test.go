package checkout

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestCompute(t *testing.T) {
	p := DefaultPricing()

	tests := []struct {
		name     string
		subtotal string
		coupon   *Coupon
		shipping string
		discount string
		total    string
	}{
		{
			name:     "below threshold pays flat rate",
			subtotal: "20",
			shipping: "25",
			discount: "0",
			total:    "45",
		},
		{
			name:     "at threshold still pays",
			subtotal: "300",
			shipping: "25",
			discount: "0",
			total:    "325",
		},
		{
			name:     "above threshold ships free",
			subtotal: "300.01",
			shipping: "0",
			discount: "0",
			total:    "300.01",
		},
		{
			name:     "percentage coupon",
			subtotal: "400",
			coupon:   &Coupon{Code: "SAVE20", DiscountPercentage: d("20")},
			shipping: "0",
			discount: "80",
			total:    "320",
		},
		{
			name:     "discount rounded to cents",
			subtotal: "33.33",
			coupon:   &Coupon{Code: "TEN", DiscountPercentage: d("10")},
			shipping: "25",
			discount: "3.33",
			total:    "55",
		},
		{
			name:     "out of range coupon ignored",
			subtotal: "50",
			coupon:   &Coupon{Code: "BAD", DiscountPercentage: d("150")},
			shipping: "25",
			discount: "0",
			total:    "75",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Compute(d(tt.subtotal), tt.coupon)
			assert.True(t, d(tt.shipping).Equal(got.ShippingCost), "shipping %s", got.ShippingCost)
			assert.True(t, d(tt.discount).Equal(got.DiscountAmount), "discount %s", got.DiscountAmount)
			assert.True(t, d(tt.total).Equal(got.Total), "total %s", got.Total)
		})
	}
}

func TestCompute_TwentyPercentOffHundredFreeShipping(t *testing.T) {
	p := Pricing{FreeShippingThreshold: d("50"), FlatShippingRate: d("25")}

	got := p.Compute(d("100"), &Coupon{Code: "SAVE20", DiscountPercentage: d("20")})

	assert.Equal(t, "0.00", got.ShippingCost.StringFixed(2))
	assert.Equal(t, "20.00", got.DiscountAmount.StringFixed(2))
	assert.Equal(t, "80.00", got.Total.StringFixed(2))
}

func TestCoupon_Valid(t *testing.T) {
	var nilCoupon *Coupon
	assert.False(t, nilCoupon.Valid())
	assert.False(t, (&Coupon{DiscountPercentage: d("0")}).Valid())
	assert.False(t, (&Coupon{DiscountPercentage: d("-5")}).Valid())
	assert.False(t, (&Coupon{DiscountPercentage: d("100.01")}).Valid())
	assert.True(t, (&Coupon{DiscountPercentage: d("100")}).Valid())
	assert.True(t, (&Coupon{DiscountPercentage: d("0.5")}).Valid())
}
