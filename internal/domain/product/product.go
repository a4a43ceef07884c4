package product

import (
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// PlaceholderImage is used when a product carries no image at all.
const PlaceholderImage = "/images/placeholder.png"

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product is a catalog item as returned by the remote catalog service.
type Product struct {
	ID           string          `json:"_id"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Image        string          `json:"image,omitempty"`
	Images       []string        `json:"images,omitempty"`
	Brand        string          `json:"brand,omitempty"`
	Category     string          `json:"category,omitempty"`
	Description  string          `json:"description,omitempty"`
	Rating       float64         `json:"rating"`
	NumReviews   int             `json:"numReviews"`
	CountInStock int             `json:"countInStock"`
	Reviews      []Review        `json:"reviews,omitempty"`
	CreatedAt    time.Time       `json:"createdAt,omitzero"`
}

// Review is a single customer review attached to a product detail response.
type Review struct {
	Name      string    `json:"name"`
	Rating    float64   `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

// UnmarshalJSON accepts both "_id" and "id" as the product identifier.
func (p *Product) UnmarshalJSON(data []byte) error {
	type plain Product
	var raw struct {
		plain
		AltID string `json:"id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Product(raw.plain)
	if p.ID == "" {
		p.ID = raw.AltID
	}
	return nil
}

// PrimaryImage resolves the display image: the explicit image field, then
// the first of the images array, then the placeholder.
func (p Product) PrimaryImage() string {
	if p.Image != "" {
		return p.Image
	}
	for _, img := range p.Images {
		if img != "" {
			return img
		}
	}
	return PlaceholderImage
}

// InStock reports whether at least one unit is available.
func (p Product) InStock() bool {
	return p.CountInStock > 0
}
