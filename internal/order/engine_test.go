package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
)

var validContact = ContactInfo{
	FirstName:        "Ann",
	LastName:         "Lee",
	Phone:            "+1 (555) 123-4567",
	RequiresDelivery: true,
	DeliveryAddress:  "1 Main St",
}

func newEngineMock(t *testing.T) (pgxmock.PgxPoolIface, *Engine) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewEngine(mock, EngineOptions{CheckoutTimeout: time.Second, LockTimeout: 500 * time.Millisecond})
}

func expectLocks(mock pgxmock.PgxPoolIface, lines *pgxmock.Rows) {
	mock.ExpectBegin()
	mock.ExpectExec("set_config").
		WithArgs("500ms").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	mock.ExpectQuery("FROM cart_lines").
		WithArgs(int64(3)).
		WillReturnRows(lines)
}

func cartRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "product_id", "quantity"}).
		AddRow(int64(10), int64(5), 2).
		AddRow(int64(11), int64(6), 1)
}

func productRows(chairStock, lampStock int) *pgxmock.Rows {
	return pgxmock.NewRows([]string{"id", "name", "price", "discount", "quantity"}).
		AddRow(int64(5), "Chair", decimal.RequireFromString("100.00"), decimal.RequireFromString("15"), chairStock).
		AddRow(int64(6), "Lamp", decimal.RequireFromString("20.00"), decimal.Zero, lampStock)
}

func TestPlaceOrderCommitsEverything(t *testing.T) {
	mock, engine := newEngineMock(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	expectLocks(mock, cartRows())
	mock.ExpectQuery("FROM products").
		WithArgs([]int64{5, 6}).
		WillReturnRows(productRows(2, 9))
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(int64(3), "Ann", "Lee", "15551234567", true, "1 Main St", false, "pending", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(100), created))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(int64(100), int64(5), "Chair", pgxmock.AnyArg(), 2).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec("UPDATE products").
		WithArgs(int64(5), 2).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectQuery("INSERT INTO order_items").
		WithArgs(int64(100), int64(6), "Lamp", pgxmock.AnyArg(), 1).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(2)))
	mock.ExpectExec("UPDATE products").
		WithArgs(int64(6), 1).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("DELETE FROM cart_lines").
		WithArgs([]int64{10, 11}).
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectCommit()

	o, err := engine.PlaceOrder(context.Background(), 3, validContact)
	require.NoError(t, err)
	assert.Equal(t, int64(100), o.ID)
	assert.Equal(t, StatusPending, o.Status)
	assert.Equal(t, created, o.CreatedAt)
	require.Len(t, o.Items, 2)
	assert.True(t, o.Items[0].Price.Equal(decimal.RequireFromString("85")))
	assert.True(t, o.Total().Equal(decimal.RequireFromString("190")), "total %s", o.Total())
	assert.Equal(t, []int64{5}, o.Depleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderInsufficientStockWritesNothing(t *testing.T) {
	mock, engine := newEngineMock(t)

	expectLocks(mock, cartRows())
	mock.ExpectQuery("FROM products").
		WithArgs([]int64{5, 6}).
		WillReturnRows(productRows(1, 0))
	mock.ExpectRollback()

	_, err := engine.PlaceOrder(context.Background(), 3, validContact)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, []Shortage{
		{ProductID: 5, Name: "Chair", Requested: 2, Available: 1},
		{ProductID: 6, Name: "Lamp", Requested: 1, Available: 0},
	}, stockErr.Shortages)
	assert.Contains(t, err.Error(), "Chair, available: 1")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderMissingProductIsShort(t *testing.T) {
	mock, engine := newEngineMock(t)

	expectLocks(mock, pgxmock.NewRows([]string{"id", "product_id", "quantity"}).AddRow(int64(10), int64(42), 1))
	mock.ExpectQuery("FROM products").
		WithArgs([]int64{42}).
		WillReturnRows(pgxmock.NewRows([]string{"id", "name", "price", "discount", "quantity"}))
	mock.ExpectRollback()

	_, err := engine.PlaceOrder(context.Background(), 3, validContact)

	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "#00042", stockErr.Shortages[0].Name)
	assert.Zero(t, stockErr.Shortages[0].Available)
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	mock, engine := newEngineMock(t)

	expectLocks(mock, pgxmock.NewRows([]string{"id", "product_id", "quantity"}))
	mock.ExpectRollback()

	_, err := engine.PlaceOrder(context.Background(), 3, validContact)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderValidationBeforeStore(t *testing.T) {
	mock, engine := newEngineMock(t)

	contact := validContact
	contact.DeliveryAddress = "  "
	_, err := engine.PlaceOrder(context.Background(), 3, contact)

	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Contains(t, vErr.Fields, "delivery_address")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderLockTimeoutIsTransient(t *testing.T) {
	mock, engine := newEngineMock(t)

	expectLocks(mock, cartRows())
	mock.ExpectQuery("FROM products").
		WithArgs([]int64{5, 6}).
		WillReturnError(&pgconn.PgError{Code: "55P03", Message: "canceling statement due to lock timeout"})
	mock.ExpectRollback()

	_, err := engine.PlaceOrder(context.Background(), 3, validContact)
	assert.ErrorIs(t, err, db.ErrTransient)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlaceOrderFailureMidwayRollsBack(t *testing.T) {
	mock, engine := newEngineMock(t)

	expectLocks(mock, cartRows())
	mock.ExpectQuery("FROM products").
		WithArgs([]int64{5, 6}).
		WillReturnRows(productRows(5, 5))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(100), time.Now()))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec("UPDATE products").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := engine.PlaceOrder(context.Background(), 3, validContact)
	require.Error(t, err)
	assert.NotErrorIs(t, err, db.ErrTransient)
	assert.NoError(t, mock.ExpectationsWereMet())
}
