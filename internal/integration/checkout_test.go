package integration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/cart"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/testutil"
)

var contact = order.ContactInfo{
	FirstName: "Ann",
	LastName:  "Lee",
	Phone:     "5551234567",
}

type stack struct {
	pool   *pgxpool.Pool
	carts  *cart.Service
	orders *order.Service
}

func newStack(t *testing.T, publisher order.EventPublisher) *stack {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test")
	}

	pool, _ := testutil.StartPostgres(t)
	logger := log.New(io.Discard, "", 0)
	m := metrics.New()

	engine := order.NewEngine(pool, order.EngineOptions{CheckoutTimeout: 5 * time.Second, LockTimeout: 2 * time.Second})
	return &stack{
		pool:   pool,
		carts:  cart.NewService(cart.NewPostgresRepository(pool), logger, m),
		orders: order.NewService(engine, order.NewPostgresRepository(pool), publisher, logger, m),
	}
}

func TestCheckoutIsAtomic(t *testing.T) {
	s := newStack(t, events.NopPublisher{})
	ctx := context.Background()

	chair := testutil.SeedProduct(t, s.pool, "chair", "100.00", 5)
	lamp := testutil.SeedProduct(t, s.pool, "lamp", "20.00", 1)
	acct := testutil.SeedAccount(t, s.pool, "ann")
	owner := cart.AccountOwner(acct)

	_, err := s.carts.Add(ctx, owner, chair)
	require.NoError(t, err)
	_, err = s.carts.Add(ctx, owner, lamp)
	require.NoError(t, err)
	res, err := s.carts.Add(ctx, owner, lamp)
	require.NoError(t, err)
	require.Equal(t, 2, res.Line.Quantity)

	_, err = s.orders.Checkout(ctx, acct, contact)
	var stockErr *order.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	require.Len(t, stockErr.Shortages, 1)
	assert.Equal(t, "lamp", stockErr.Shortages[0].Name)

	// nothing moved
	assert.Equal(t, 5, testutil.ProductQuantity(t, s.pool, chair))
	assert.Equal(t, 1, testutil.ProductQuantity(t, s.pool, lamp))
	lines, err := s.carts.Lines(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, lines, 2)
	orders, err := s.orders.List(ctx, acct)
	require.NoError(t, err)
	assert.Empty(t, orders)

	_, _, err = s.carts.Change(ctx, owner, res.Line.ID, 1)
	require.NoError(t, err)

	o, err := s.orders.Checkout(ctx, acct, contact)
	require.NoError(t, err)
	assert.Equal(t, order.StatusPending, o.Status)
	assert.Equal(t, "120.00", o.Total().StringFixed(2))
	assert.Equal(t, []int64{lamp}, o.Depleted)

	assert.Equal(t, 4, testutil.ProductQuantity(t, s.pool, chair))
	assert.Equal(t, 0, testutil.ProductQuantity(t, s.pool, lamp))
	lines, err = s.carts.Lines(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, lines)

	stored, err := s.orders.Get(ctx, acct, o.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Items, 2)

	_, err = s.orders.Checkout(ctx, acct, contact)
	assert.ErrorIs(t, err, order.ErrEmptyCart)
}

func TestMergeSessionSumsQuantities(t *testing.T) {
	s := newStack(t, events.NopPublisher{})
	ctx := context.Background()

	chair := testutil.SeedProduct(t, s.pool, "chair", "10.00", 10)
	acct := testutil.SeedAccount(t, s.pool, "ann")
	session := cart.SessionOwner("5f0c8a2e-0d7b-4f7c-9a35-7c1b0f6e2d11")

	_, err := s.carts.Add(ctx, cart.AccountOwner(acct), chair)
	require.NoError(t, err)
	_, err = s.carts.Add(ctx, session, chair)
	require.NoError(t, err)
	_, err = s.carts.Add(ctx, session, chair)
	require.NoError(t, err)

	merged, err := s.carts.MergeSession(ctx, session.SessionKey, acct)
	require.NoError(t, err)
	assert.Equal(t, 1, merged)

	lines, err := s.carts.Lines(ctx, cart.AccountOwner(acct))
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)

	left, err := s.carts.Lines(ctx, session)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestConcurrentAddsKeepOneLine(t *testing.T) {
	s := newStack(t, events.NopPublisher{})
	ctx := context.Background()

	chair := testutil.SeedProduct(t, s.pool, "chair", "10.00", 100)
	owner := cart.SessionOwner("0d6f3c1a-9b2e-4a8d-8f4c-3e2a1b0c9d8e")

	const adds = 8
	var wg sync.WaitGroup
	errs := make(chan error, adds)
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.carts.Add(ctx, owner, chair)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	lines, err := s.carts.Lines(ctx, owner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, adds, lines[0].Quantity)
}

func TestConcurrentCheckoutsForLastUnit(t *testing.T) {
	s := newStack(t, events.NopPublisher{})
	ctx := context.Background()

	lamp := testutil.SeedProduct(t, s.pool, "lamp", "20.00", 1)
	const buyers = 4
	accounts := make([]int64, buyers)
	for i := range accounts {
		accounts[i] = testutil.SeedAccount(t, s.pool, fmt.Sprintf("buyer%d", i))
		_, err := s.carts.Add(ctx, cart.AccountOwner(accounts[i]), lamp)
		require.NoError(t, err)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		placed   int
		shortage int
	)
	for _, acct := range accounts {
		wg.Add(1)
		go func(acct int64) {
			defer wg.Done()
			_, err := s.orders.Checkout(ctx, acct, contact)
			var stockErr *order.InsufficientStockError
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				placed++
			case errors.As(err, &stockErr):
				shortage++
			default:
				t.Errorf("unexpected checkout error: %v", err)
			}
		}(acct)
	}
	wg.Wait()

	assert.Equal(t, 1, placed)
	assert.Equal(t, buyers-1, shortage)
	assert.Equal(t, 0, testutil.ProductQuantity(t, s.pool, lamp))
}

func TestOrderPlacedIsPublished(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	_, conn := testutil.StartRabbitMQ(t)

	listener, err := conn.Channel()
	require.NoError(t, err)
	defer listener.Close()
	require.NoError(t, listener.ExchangeDeclare(events.EventsExchange, "topic", true, false, false, false, nil))
	q, err := listener.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, listener.QueueBind(q.Name, "#", events.EventsExchange, false, nil))
	deliveries, err := listener.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	pool, _ := testutil.StartPostgres(t)
	pub, err := events.NewPublisher(conn, events.NewSequenceRepository(pool), events.PublisherOptions{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pub.Close() })

	logger := log.New(io.Discard, "", 0)
	s := &stack{
		pool:   pool,
		carts:  cart.NewService(cart.NewPostgresRepository(pool), logger, nil),
		orders: order.NewService(order.NewEngine(pool, order.EngineOptions{}), order.NewPostgresRepository(pool), pub, logger, nil),
	}

	ctx := context.Background()
	lamp := testutil.SeedProduct(t, s.pool, "lamp", "20.00", 1)
	acct := testutil.SeedAccount(t, s.pool, "ann")
	_, err = s.carts.Add(ctx, cart.AccountOwner(acct), lamp)
	require.NoError(t, err)

	o, err := s.orders.Checkout(events.WithCorrelationID(ctx, "corr-1"), acct, contact)
	require.NoError(t, err)

	got := map[string]json.RawMessage{}
	timeout := time.After(15 * time.Second)
	for len(got) < 2 {
		select {
		case d := <-deliveries:
			got[d.RoutingKey] = d.Body
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %d", len(got))
		}
	}

	var placed events.OrderPlacedEvent
	require.NoError(t, json.Unmarshal(got[events.OrderPlacedRoutingKey], &placed))
	require.NoError(t, placed.Validate(events.EventTypeOrderPlaced, 1))
	assert.Equal(t, o.ID, placed.Payload.OrderID)
	assert.Equal(t, "corr-1", placed.CorrelationID)
	assert.EqualValues(t, 1, placed.Sequence)

	var depleted events.StockDepletedEvent
	require.NoError(t, json.Unmarshal(got[events.StockDepletedRoutingKey], &depleted))
	assert.Equal(t, []int64{lamp}, depleted.Payload.ProductIDs)
	assert.EqualValues(t, 2, depleted.Sequence)
}
