package events

import "time"

const (
	EventTypeStockDepleted = "StockDepleted"
	stockDepletedSchema    = "contracts/events/inventory/StockDepleted.v1.payload.schema.json"
)

// StockDepletedPayload lists products an order sold out.
type StockDepletedPayload struct {
	OrderID    int64     `json:"orderId"`
	ProductIDs []int64   `json:"productIds"`
	Timestamp  time.Time `json:"timestamp"`
}

type StockDepletedEvent struct {
	EventEnvelope
	Payload StockDepletedPayload `json:"payload"`
}
