package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-faster/errors"

	"github.com/xenking/medsupply-storefront/internal/domain/catalog"
	"github.com/xenking/medsupply-storefront/internal/domain/checkout"
	"github.com/xenking/medsupply-storefront/internal/domain/product"
	"github.com/xenking/medsupply-storefront/internal/domain/wishlist"
)

var (
	_ catalog.Source           = (*Client)(nil)
	_ wishlist.Remote          = (*Client)(nil)
	_ checkout.CouponValidator = (*Client)(nil)
	_ checkout.OrderSubmitter  = (*Client)(nil)
)

// ListProducts runs a catalog query.
func (c *Client) ListProducts(ctx context.Context, query url.Values) ([]product.Product, error) {
	var out []product.Product
	if err := c.do(ctx, http.MethodGet, "/api/products", query, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches a single product with its reviews.
func (c *Client) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	var out product.Product
	if err := c.do(ctx, http.MethodGet, "/api/products/"+url.PathEscape(id), nil, nil, &out); err != nil {
		if statusIs(err, http.StatusNotFound) {
			return nil, product.ErrNotFound
		}
		return nil, err
	}
	if out.ID == "" {
		out.ID = id
	}
	return &out, nil
}

// ListWishlist returns the session's wishlist products.
func (c *Client) ListWishlist(ctx context.Context) ([]product.Product, error) {
	var out []product.Product
	if err := c.do(ctx, http.MethodGet, "/api/users/wishlist", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddToWishlist adds productID to the session's wishlist.
func (c *Client) AddToWishlist(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodPost, "/api/users/wishlist", nil, encodeField("productId", productID), nil)
}

// RemoveFromWishlist removes productID from the session's wishlist.
func (c *Client) RemoveFromWishlist(ctx context.Context, productID string) error {
	return c.do(ctx, http.MethodDelete, "/api/users/wishlist/"+url.PathEscape(productID), nil, nil, nil)
}

// ValidateCoupon asks the service whether code is usable. A client error
// response means the code is invalid or expired.
func (c *Client) ValidateCoupon(ctx context.Context, code string) (*checkout.Coupon, error) {
	var out checkout.Coupon
	if err := c.do(ctx, http.MethodPost, "/api/coupons/validate", nil, encodeField("code", code), &out); err != nil {
		var serr *StatusError
		if errors.As(err, &serr) && rejectsCoupon(serr.StatusCode) {
			if serr.Message == "" {
				return nil, checkout.ErrInvalidCoupon
			}
			return nil, errors.Wrap(checkout.ErrInvalidCoupon, serr.Message)
		}
		return nil, err
	}
	return &out, nil
}

// CreateOrder submits an order and returns its id.
func (c *Client) CreateOrder(ctx context.Context, payload checkout.OrderPayload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "encode order")
	}
	var out struct {
		ID    string `json:"_id"`
		AltID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/orders", nil, body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		out.ID = out.AltID
	}
	if out.ID == "" {
		return "", errors.New("order created without id")
	}
	return out.ID, nil
}

func statusIs(err error, code int) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.StatusCode == code
}

func rejectsCoupon(code int) bool {
	switch code {
	case http.StatusBadRequest, http.StatusNotFound, http.StatusGone, http.StatusUnprocessableEntity:
		return true
	default:
		return false
	}
}
