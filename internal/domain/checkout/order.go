package checkout

import (
	"strings"
	"time"

	"github.com/xenking/medsupply-storefront/internal/domain/cart"
)

// ShippingAddress is where the order ships.
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a ShippingAddress) complete() bool {
	return strings.TrimSpace(a.Address) != "" &&
		strings.TrimSpace(a.City) != "" &&
		strings.TrimSpace(a.PostalCode) != "" &&
		strings.TrimSpace(a.Country) != ""
}

// PaymentResult is the payment provider's confirmation, if any.
type PaymentResult struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time,omitempty"`
	EmailAddress string `json:"email_address,omitempty"`
}

// PlaceOrderRequest holds the shopper's checkout input.
type PlaceOrderRequest struct {
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentResult   *PaymentResult  `json:"paymentResult,omitempty"`
}

// Validate checks the required fields.
func (r PlaceOrderRequest) Validate() error {
	if !r.ShippingAddress.complete() {
		return ErrShippingAddressRequired
	}
	if strings.TrimSpace(r.PaymentMethod) == "" {
		return ErrPaymentMethodRequired
	}
	return nil
}

// OrderItem is one line of the order payload.
type OrderItem struct {
	Name      string  `json:"name"`
	Quantity  int     `json:"qty"`
	Image     string  `json:"image"`
	Price     float64 `json:"price"`
	ProductID string  `json:"product"`
}

// OrderPayload is the body sent to the remote order service.
type OrderPayload struct {
	OrderItems      []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentResult   *PaymentResult  `json:"paymentResult,omitempty"`
	ItemsPrice      float64         `json:"itemsPrice"`
	ShippingPrice   float64         `json:"shippingPrice"`
	DiscountAmount  float64         `json:"discountAmount"`
	CouponCode      string          `json:"couponCode,omitempty"`
	TotalPrice      float64         `json:"totalPrice"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
}

// PlacedOrder is the outcome of a confirmed submission.
type PlacedOrder struct {
	ID         string `json:"id"`
	Pricing    Result `json:"pricing"`
	CouponCode string `json:"couponCode,omitempty"`
}

func newPayload(lines []cart.Line, req PlaceOrderRequest, r Result, c *Coupon, now time.Time) OrderPayload {
	items := make([]OrderItem, len(lines))
	for i, l := range lines {
		items[i] = OrderItem{
			Name:      l.Name,
			Quantity:  l.Quantity,
			Image:     l.Image,
			Price:     l.Price.InexactFloat64(),
			ProductID: l.ID,
		}
	}

	p := OrderPayload{
		OrderItems:      items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   strings.TrimSpace(req.PaymentMethod),
		PaymentResult:   req.PaymentResult,
		ItemsPrice:      r.Subtotal.InexactFloat64(),
		ShippingPrice:   r.ShippingCost.InexactFloat64(),
		DiscountAmount:  r.DiscountAmount.InexactFloat64(),
		TotalPrice:      r.Total.InexactFloat64(),
	}
	if c != nil && r.DiscountAmount.IsPositive() {
		p.CouponCode = c.Code
	}
	if req.PaymentResult != nil && strings.EqualFold(req.PaymentResult.Status, "COMPLETED") {
		p.IsPaid = true
		p.PaidAt = &now
	}
	return p
}
