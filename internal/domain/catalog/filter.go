package catalog

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Sort is the catalog ordering requested from the remote service.
type Sort string

const (
	SortDefault   Sort = ""
	SortNewest    Sort = "newest"
	SortPriceAsc  Sort = "priceAsc"
	SortPriceDesc Sort = "priceDesc"
)

// MaxRating is the highest selectable minimum rating.
const MaxRating = 5

// Filter is the shopper's catalog filter. It is the only input to the remote
// query and is never derived from fetched results.
//
// A zero PriceMax means "no price limit" and is equivalent to the ceiling.
type Filter struct {
	Search      string          `json:"searchText,omitempty"`
	Category    string          `json:"category,omitempty"`
	Sort        Sort            `json:"sort,omitempty"`
	InStockOnly bool            `json:"inStockOnly,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	MinRating   int             `json:"minRating,omitempty"`
	PriceMax    decimal.Decimal `json:"priceMax"`
}

// Normalize trims text fields and clamps numeric fields into their ranges.
// Unknown sort values fall back to the default order, and a price limit at
// or above the ceiling becomes zero (no limit).
func (f Filter) Normalize(ceiling decimal.Decimal) Filter {
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.TrimSpace(f.Category)
	f.Brand = strings.TrimSpace(f.Brand)

	switch f.Sort {
	case SortDefault, SortNewest, SortPriceAsc, SortPriceDesc:
	default:
		f.Sort = SortDefault
	}

	f.MinRating = min(max(f.MinRating, 0), MaxRating)

	if f.PriceMax.IsNegative() {
		f.PriceMax = decimal.Zero
	}
	if !ceiling.IsZero() && f.PriceMax.GreaterThanOrEqual(ceiling) {
		f.PriceMax = decimal.Zero
	}
	return f
}

// Equal reports whether two filters select the same results.
func (f Filter) Equal(o Filter) bool {
	return f.Search == o.Search &&
		f.Category == o.Category &&
		f.Sort == o.Sort &&
		f.InStockOnly == o.InStockOnly &&
		f.Brand == o.Brand &&
		f.MinRating == o.MinRating &&
		f.PriceMax.Equal(o.PriceMax)
}

// Query builds the remote catalog query. Only fields holding a non-default
// value are included. The filter should be normalized first.
func (f Filter) Query() url.Values {
	q := url.Values{}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Sort != SortDefault {
		q.Set("sort", string(f.Sort))
	}
	if f.InStockOnly {
		q.Set("inStock", "true")
	}
	if f.Brand != "" {
		q.Set("brand", f.Brand)
	}
	if f.MinRating > 0 {
		q.Set("rating", strconv.Itoa(f.MinRating))
	}
	if f.PriceMax.IsPositive() {
		q.Set("minPrice", "0")
		q.Set("maxPrice", f.PriceMax.String())
	}
	return q
}
