package catalog

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type Product struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Slug         string          `json:"slug"`
	Description  string          `json:"description"`
	Image        string          `json:"image"`
	Price        decimal.Decimal `json:"price"`
	Discount     decimal.Decimal `json:"discount"`
	Quantity     int             `json:"quantity"`
	CategorySlug string          `json:"category"`
}

// DiscountedPrice returns the unit price after the percentage discount,
// rounded to cents. Without a discount the list price is returned as is.
func (p Product) DiscountedPrice() decimal.Decimal {
	return DiscountedPrice(p.Price, p.Discount)
}

func (p Product) DisplayID() string {
	return fmt.Sprintf("%05d", p.ID)
}

func DiscountedPrice(price, discount decimal.Decimal) decimal.Decimal {
	if discount.IsZero() {
		return price
	}
	return price.Sub(price.Mul(discount).Div(hundred)).Round(2)
}

type Filter struct {
	Query        string
	CategorySlug string
	OnSale       bool
	OrderBy      string
}
