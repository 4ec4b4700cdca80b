package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContactInfo is the checkout form input.
type ContactInfo struct {
	FirstName         string `json:"firstName"`
	LastName          string `json:"lastName"`
	Phone             string `json:"phoneNumber"`
	RequiresDelivery  bool   `json:"requiresDelivery"`
	DeliveryAddress   string `json:"deliveryAddress"`
	PaymentOnDelivery bool   `json:"paymentOnGet"`
}

type Item struct {
	ID int64 `json:"id"`
	// ProductID is nil once the product has been deleted from the catalog.
	ProductID *int64          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

type Order struct {
	ID        int64       `json:"id"`
	AccountID int64       `json:"accountId"`
	Contact   ContactInfo `json:"contact"`
	Status    Status      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	Items     []Item      `json:"items"`

	// Depleted lists products whose stock this order brought to zero.
	Depleted []int64 `json:"-"`
}

func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

func (o *Order) TotalQuantity() int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}
