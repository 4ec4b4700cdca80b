package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
)

// Channel is the part of *amqp.Channel the publisher needs.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch       Channel
	seq      Sequencer
	producer string
	timeout  time.Duration
	now      func() time.Time
}

type PublisherOptions struct {
	Producer       string
	PublishTimeout time.Duration
}

// NewPublisher opens a channel on conn and declares the events exchange.
func NewPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}
	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch Channel, seq Sequencer, opts PublisherOptions) *Publisher {
	if opts.Producer == "" {
		opts.Producer = storefrontServiceName
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = 3 * time.Second
	}
	return &Publisher{
		ch:       ch,
		seq:      seq,
		producer: opts.Producer,
		timeout:  opts.PublishTimeout,
		now:      time.Now,
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

// Events of one order share a partition, so consumers can order them by sequence.
func orderPartition(orderID int64) string {
	return "order-" + strconv.FormatInt(orderID, 10)
}

func (p *Publisher) PublishOrderPlaced(ctx context.Context, o *order.Order) error {
	env, err := p.envelope(ctx, EventTypeOrderPlaced, orderPlacedSchema, orderPartition(o.ID))
	if err != nil {
		return err
	}
	body, err := json.Marshal(OrderPlacedEvent{EventEnvelope: env, Payload: newOrderPlacedPayload(o)})
	if err != nil {
		return fmt.Errorf("marshal OrderPlaced envelope: %w", err)
	}
	return p.publishJSON(ctx, OrderPlacedRoutingKey, env.EventID, body)
}

func (p *Publisher) PublishStockDepleted(ctx context.Context, o *order.Order) error {
	if len(o.Depleted) == 0 {
		return nil
	}
	env, err := p.envelope(ctx, EventTypeStockDepleted, stockDepletedSchema, orderPartition(o.ID))
	if err != nil {
		return err
	}
	payload := StockDepletedPayload{
		OrderID:    o.ID,
		ProductIDs: o.Depleted,
		Timestamp:  env.OccurredAt,
	}
	body, err := json.Marshal(StockDepletedEvent{EventEnvelope: env, Payload: payload})
	if err != nil {
		return fmt.Errorf("marshal StockDepleted envelope: %w", err)
	}
	return p.publishJSON(ctx, StockDepletedRoutingKey, env.EventID, body)
}

func (p *Publisher) envelope(ctx context.Context, name, schema, partitionKey string) (EventEnvelope, error) {
	seq, err := p.seq.NextSequence(ctx, partitionKey)
	if err != nil {
		return EventEnvelope{}, fmt.Errorf("reserve sequence: %w", err)
	}
	return EventEnvelope{
		EventName:     name,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: CorrelationID(ctx),
		Producer:      p.producer,
		PartitionKey:  partitionKey,
		Sequence:      seq,
		OccurredAt:    p.now().UTC(),
		Schema:        schema,
	}, nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Timestamp:    p.now().UTC(),
			Body:         body,
		},
	)
}

// NopPublisher drops every event. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, *order.Order) error   { return nil }
func (NopPublisher) PublishStockDepleted(context.Context, *order.Order) error { return nil }

var (
	_ order.EventPublisher = (*Publisher)(nil)
	_ order.EventPublisher = NopPublisher{}
)
