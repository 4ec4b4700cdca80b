package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
)

// Querier matches the read methods from *pgxpool.Pool that we use.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Repository interface {
	GetByID(ctx context.Context, accountID, orderID int64) (*Order, error)
	ListByAccount(ctx context.Context, accountID int64) ([]*Order, error)
}

type PostgresRepository struct {
	pool Querier
}

func NewPostgresRepository(pool Querier) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectOrder = `
	SELECT id, account_id, first_name, last_name, phone_number, requires_delivery,
	       delivery_address, payment_on_get, status, created_at
	FROM orders
`

// GetByID loads an order with its items. Orders of other accounts are reported
// as not found.
func (r *PostgresRepository) GetByID(ctx context.Context, accountID, orderID int64) (*Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, selectOrder+` WHERE id = $1 AND account_id = $2`, orderID, accountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Classify(fmt.Errorf("select order: %w", err))
	}

	items, err := r.itemsFor(ctx, []int64{o.ID})
	if err != nil {
		return nil, err
	}
	o.Items = items[o.ID]
	return o, nil
}

// ListByAccount returns the account's orders, newest first.
func (r *PostgresRepository) ListByAccount(ctx context.Context, accountID int64) ([]*Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+` WHERE account_id = $1 ORDER BY created_at DESC, id DESC`, accountID)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list orders: %w", err))
	}
	defer rows.Close()

	orders := []*Order{}
	ids := []int64{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	if len(orders) == 0 {
		return orders, nil
	}

	items, err := r.itemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		o.Items = items[o.ID]
	}
	return orders, nil
}

func (r *PostgresRepository) itemsFor(ctx context.Context, orderIDs []int64) (map[int64][]Item, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT order_id, id, product_id, name, price, quantity
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, id
	`, orderIDs)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list order items: %w", err))
	}
	defer rows.Close()

	items := make(map[int64][]Item, len(orderIDs))
	for rows.Next() {
		var (
			orderID int64
			it      Item
		)
		if err := rows.Scan(&orderID, &it.ID, &it.ProductID, &it.Name, &it.Price, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		items[orderID] = append(items[orderID], it)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return items, nil
}

func scanOrder(row pgx.Row) (*Order, error) {
	var (
		o      Order
		status string
	)
	err := row.Scan(&o.ID, &o.AccountID, &o.Contact.FirstName, &o.Contact.LastName, &o.Contact.Phone,
		&o.Contact.RequiresDelivery, &o.Contact.DeliveryAddress, &o.Contact.PaymentOnDelivery, &status, &o.CreatedAt)
	if err != nil {
		return nil, err
	}
	o.Status = Status(status)
	return &o, nil
}
