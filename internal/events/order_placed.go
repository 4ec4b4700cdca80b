package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

const (
	EventTypeOrderPlaced = "OrderPlaced"
	orderPlacedSchema    = "contracts/events/order/OrderPlaced.v1.payload.schema.json"
)

type OrderPlacedLine struct {
	ProductID *int64          `json:"productId"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

type OrderPlacedPayload struct {
	OrderID           int64             `json:"orderId"`
	AccountID         int64             `json:"accountId"`
	Items             []OrderPlacedLine `json:"items"`
	TotalAmount       decimal.Decimal   `json:"totalAmount"`
	RequiresDelivery  bool              `json:"requiresDelivery"`
	PaymentOnDelivery bool              `json:"paymentOnDelivery"`
	PlacedAt          time.Time         `json:"placedAt"`
}

type OrderPlacedEvent struct {
	EventEnvelope
	Payload OrderPlacedPayload `json:"payload"`
}

func newOrderPlacedPayload(o *order.Order) OrderPlacedPayload {
	p := OrderPlacedPayload{
		OrderID:           o.ID,
		AccountID:         o.AccountID,
		TotalAmount:       o.Total(),
		RequiresDelivery:  o.Contact.RequiresDelivery,
		PaymentOnDelivery: o.Contact.PaymentOnDelivery,
		PlacedAt:          o.CreatedAt.UTC(),
	}
	for _, it := range o.Items {
		p.Items = append(p.Items, OrderPlacedLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			Price:     it.Price,
		})
	}
	return p
}
