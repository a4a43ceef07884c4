package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFilter_Query(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   string
	}{
		{
			name:   "default filter sends nothing",
			filter: Filter{},
			want:   "",
		},
		{
			name:   "search and category",
			filter: Filter{Search: "gloves", Category: "PPE"},
			want:   "category=PPE&search=gloves",
		},
		{
			name:   "in stock only",
			filter: Filter{InStockOnly: true},
			want:   "inStock=true",
		},
		{
			name:   "sort brand rating",
			filter: Filter{Sort: SortPriceAsc, Brand: "3M", MinRating: 4},
			want:   "brand=3M&rating=4&sort=priceAsc",
		},
		{
			name:   "price limit adds both bounds",
			filter: Filter{PriceMax: decimal.RequireFromString("150.5")},
			want:   "maxPrice=150.5&minPrice=0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Query().Encode())
		})
	}
}

func TestFilter_Normalize(t *testing.T) {
	ceiling := decimal.NewFromInt(1000)

	tests := []struct {
		name string
		in   Filter
		want Filter
	}{
		{
			name: "trims text",
			in:   Filter{Search: "  masks ", Brand: " Acme"},
			want: Filter{Search: "masks", Brand: "Acme"},
		},
		{
			name: "unknown sort falls back",
			in:   Filter{Sort: "popular"},
			want: Filter{},
		},
		{
			name: "rating clamped high",
			in:   Filter{MinRating: 9},
			want: Filter{MinRating: MaxRating},
		},
		{
			name: "rating clamped low",
			in:   Filter{MinRating: -1},
			want: Filter{},
		},
		{
			name: "price at ceiling means no limit",
			in:   Filter{PriceMax: decimal.NewFromInt(1000)},
			want: Filter{},
		},
		{
			name: "negative price means no limit",
			in:   Filter{PriceMax: decimal.NewFromInt(-3)},
			want: Filter{},
		},
		{
			name: "price below ceiling kept",
			in:   Filter{PriceMax: decimal.NewFromInt(200)},
			want: Filter{PriceMax: decimal.NewFromInt(200)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in.Normalize(ceiling)
			assert.True(t, tt.want.Equal(got), "got %+v", got)
		})
	}
}

func TestFilter_Equal(t *testing.T) {
	a := Filter{Search: "x", PriceMax: decimal.RequireFromString("10.0")}
	b := Filter{Search: "x", PriceMax: decimal.RequireFromString("10")}
	assert.True(t, a.Equal(b))

	b.InStockOnly = true
	assert.False(t, a.Equal(b))
}
