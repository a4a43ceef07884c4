package checkout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/medsupply-storefront/internal/domain/cart"
)

// Sentinel errors for order validation.
var (
	ErrEmptyCart               = errors.New("cart is empty")
	ErrShippingAddressRequired = errors.New("shipping address required")
	ErrPaymentMethodRequired   = errors.New("payment method required")
)

const msgOrderFailed = "Failed to place order. Please try again."

// Cart is the part of the cart engine checkout reads and clears.
type Cart interface {
	Lines() []cart.Line
	Subtotal() decimal.Decimal
	Clear(ctx context.Context) error
}

var _ Cart = (*cart.Engine)(nil)

// OrderSubmitter hands a payload to the remote order service and returns
// the created order id.
type OrderSubmitter interface {
	CreateOrder(ctx context.Context, payload OrderPayload) (string, error)
}

// OrderError reports a failed submission. Message is shown to the shopper.
type OrderError struct {
	Message string
	Err     error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("place order: %s", e.Message)
}

func (e *OrderError) Unwrap() error { return e.Err }

// Options configures a Service.
type Options struct {
	Pricing Pricing
	Logger  *zap.Logger
	Tracer  trace.Tracer
}

// Service runs the coupon protocol and order submission for one session.
type Service struct {
	cart      Cart
	coupons   CouponValidator
	orders    OrderSubmitter
	pricing   Pricing
	lg        *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
	mu        sync.Mutex
	coupon    *Coupon
	couponSeq uint64
}

// NewService creates a checkout Service.
func NewService(c Cart, coupons CouponValidator, orders OrderSubmitter, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Tracer == nil {
		opts.Tracer = noop.NewTracerProvider().Tracer("")
	}
	if opts.Pricing.FlatShippingRate.IsZero() && opts.Pricing.FreeShippingThreshold.IsZero() {
		opts.Pricing = DefaultPricing()
	}
	return &Service{
		cart:    c,
		coupons: coupons,
		orders:  orders,
		pricing: opts.Pricing,
		lg:      opts.Logger,
		tracer:  opts.Tracer,
		now:     time.Now,
	}
}

// ApplyCoupon validates code remotely and, on success, applies the
// server-returned percentage. Any failure clears the applied coupon. When
// several applications overlap, only the latest one takes effect and the
// others return the state it left.
func (s *Service) ApplyCoupon(ctx context.Context, code string) (*Coupon, error) {
	code = strings.TrimSpace(code)

	s.mu.Lock()
	s.couponSeq++
	tag := s.couponSeq
	if code == "" {
		s.coupon = nil
		s.mu.Unlock()
		return nil, ErrInvalidCoupon
	}
	s.mu.Unlock()

	c, err := s.coupons.ValidateCoupon(ctx, code)
	if err == nil && !c.Valid() {
		err = ErrInvalidCoupon
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if tag != s.couponSeq {
		s.lg.Debug("Dropping superseded coupon response", zap.String("code", code))
		return cloneCoupon(s.coupon), nil
	}
	if err != nil {
		s.coupon = nil
		s.lg.Info("Coupon rejected", zap.String("code", code), zap.Error(err))
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "validate coupon")
	}

	applied := *c
	if applied.Code == "" {
		applied.Code = code
	}
	s.coupon = &applied
	return cloneCoupon(s.coupon), nil
}

// RemoveCoupon clears the applied coupon and supersedes any in-flight
// application.
func (s *Service) RemoveCoupon() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.couponSeq++
	s.coupon = nil
}

// AppliedCoupon returns the applied coupon, or nil.
func (s *Service) AppliedCoupon() *Coupon {
	s.mu.Lock()
	defer s.mu.Unlock()

	return cloneCoupon(s.coupon)
}

// Quote prices the current cart.
func (s *Service) Quote() Result {
	return s.pricing.Compute(s.cart.Subtotal(), s.AppliedCoupon())
}

// PlaceOrder submits the cart once. The cart is cleared and the coupon
// reset only after the remote service confirms the order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*PlacedOrder, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()

	lines := s.cart.Lines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := s.AppliedCoupon()
	pricing := s.pricing.Compute(s.cart.Subtotal(), c)
	payload := newPayload(lines, req, pricing, c, s.now())

	span.SetAttributes(
		attribute.Int("checkout.items", len(lines)),
		attribute.String("checkout.total", pricing.Total.String()),
	)

	id, err := s.orders.CreateOrder(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create order")
		s.lg.Warn("Order submission failed", zap.Error(err))
		return nil, &OrderError{Message: orderMessage(err), Err: err}
	}

	if err := s.cart.Clear(ctx); err != nil {
		s.lg.Error("Clear cart after order", zap.String("order_id", id), zap.Error(err))
	}
	s.RemoveCoupon()

	s.lg.Info("Order placed",
		zap.String("order_id", id),
		zap.String("total", pricing.Total.String()),
	)
	return &PlacedOrder{ID: id, Pricing: pricing, CouponCode: payload.CouponCode}, nil
}

// orderMessage returns the server's message verbatim when it sent one.
func orderMessage(err error) string {
	var sm interface{ ServerMessage() string }
	if errors.As(err, &sm) {
		if msg := sm.ServerMessage(); msg != "" {
			return msg
		}
	}
	return msgOrderFailed
}

func cloneCoupon(c *Coupon) *Coupon {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}
