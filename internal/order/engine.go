package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
)

// TxStarter matches the transactional part of *pgxpool.Pool.
type TxStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Engine turns an account's cart into an order in a single transaction.
type Engine struct {
	pool            TxStarter
	checkoutTimeout time.Duration
	lockTimeout     time.Duration
	now             func() time.Time
}

type EngineOptions struct {
	CheckoutTimeout time.Duration
	LockTimeout     time.Duration
}

func NewEngine(pool TxStarter, opts EngineOptions) *Engine {
	if opts.CheckoutTimeout <= 0 {
		opts.CheckoutTimeout = 5 * time.Second
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = 2 * time.Second
	}
	return &Engine{
		pool:            pool,
		checkoutTimeout: opts.CheckoutTimeout,
		lockTimeout:     opts.LockTimeout,
		now:             time.Now,
	}
}

type lockedLine struct {
	id        int64
	productID int64
	quantity  int
}

type lockedProduct struct {
	name      string
	price     decimal.Decimal
	discount  decimal.Decimal
	available int
}

// PlaceOrder checks out the account's whole cart. Either the order, its items,
// the stock decrements and the cart clearing are all committed, or nothing is.
//
// Product rows are locked in ascending id order so two checkouts touching the
// same products queue behind each other instead of deadlocking.
func (e *Engine) PlaceOrder(ctx context.Context, accountID int64, contact ContactInfo) (*Order, error) {
	if err := ValidateContact(contact); err != nil {
		return nil, err
	}
	phone, _ := NormalizePhone(contact.Phone)
	contact.Phone = phone
	contact.FirstName = strings.TrimSpace(contact.FirstName)
	contact.LastName = strings.TrimSpace(contact.LastName)
	contact.DeliveryAddress = strings.TrimSpace(contact.DeliveryAddress)
	if !contact.RequiresDelivery {
		contact.DeliveryAddress = ""
	}

	ctx, cancel := context.WithTimeout(ctx, e.checkoutTimeout)
	defer cancel()

	tx, err := e.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, db.Classify(fmt.Errorf("begin checkout: %w", err))
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	ord, err := e.placeWithTx(ctx, tx, accountID, contact)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, db.Classify(fmt.Errorf("commit checkout: %w", err))
	}
	return ord, nil
}

func (e *Engine) placeWithTx(ctx context.Context, tx pgx.Tx, accountID int64, contact ContactInfo) (*Order, error) {
	if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, fmt.Sprintf("%dms", e.lockTimeout.Milliseconds())); err != nil {
		return nil, db.Classify(fmt.Errorf("set lock timeout: %w", err))
	}

	lines, err := lockCartLines(ctx, tx, accountID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	productIDs := make([]int64, 0, len(lines))
	lineIDs := make([]int64, 0, len(lines))
	for _, l := range lines {
		productIDs = append(productIDs, l.productID)
		lineIDs = append(lineIDs, l.id)
	}

	products, err := lockProducts(ctx, tx, productIDs)
	if err != nil {
		return nil, err
	}

	var shortages []Shortage
	for _, l := range lines {
		p, ok := products[l.productID]
		if !ok {
			shortages = append(shortages, Shortage{
				ProductID: l.productID,
				Name:      "#" + catalog.Product{ID: l.productID}.DisplayID(),
				Requested: l.quantity,
			})
			continue
		}
		if p.available < l.quantity {
			shortages = append(shortages, Shortage{
				ProductID: l.productID,
				Name:      p.name,
				Requested: l.quantity,
				Available: p.available,
			})
		}
	}
	if len(shortages) > 0 {
		return nil, &InsufficientStockError{Shortages: shortages}
	}

	ord := &Order{
		AccountID: accountID,
		Contact:   contact,
		Status:    StatusPending,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO orders (account_id, first_name, last_name, phone_number, requires_delivery, delivery_address, payment_on_get, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`, accountID, contact.FirstName, contact.LastName, contact.Phone, contact.RequiresDelivery,
		contact.DeliveryAddress, contact.PaymentOnDelivery, string(StatusPending), e.now().UTC()).Scan(&ord.ID, &ord.CreatedAt)
	if err != nil {
		if db.HasCode(err, db.CodeForeignKeyViolation) {
			return nil, fmt.Errorf("account %d: %w", accountID, ErrNotFound)
		}
		return nil, db.Classify(fmt.Errorf("insert order: %w", err))
	}

	for _, l := range lines {
		p := products[l.productID]
		productID := l.productID
		item := Item{
			ProductID: &productID,
			Name:      p.name,
			Price:     catalog.DiscountedPrice(p.price, p.discount),
			Quantity:  l.quantity,
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO order_items (order_id, product_id, name, price, quantity)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, ord.ID, l.productID, item.Name, item.Price, item.Quantity).Scan(&item.ID)
		if err != nil {
			return nil, db.Classify(fmt.Errorf("insert order item: %w", err))
		}

		if _, err := tx.Exec(ctx, `
			UPDATE products
			SET quantity = quantity - $2, updated_at = now()
			WHERE id = $1
		`, l.productID, l.quantity); err != nil {
			return nil, db.Classify(fmt.Errorf("decrement stock: %w", err))
		}
		if p.available == l.quantity {
			ord.Depleted = append(ord.Depleted, l.productID)
		}
		ord.Items = append(ord.Items, item)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE id = ANY($1)`, lineIDs); err != nil {
		return nil, db.Classify(fmt.Errorf("clear cart: %w", err))
	}
	return ord, nil
}

// lockCartLines locks the account's lines in product order. A cart holds at
// most one line per product, so the product ids come back sorted and unique.
func lockCartLines(ctx context.Context, tx pgx.Tx, accountID int64) ([]lockedLine, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, product_id, quantity
		FROM cart_lines
		WHERE account_id = $1
		ORDER BY product_id
		FOR UPDATE
	`, accountID)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("lock cart lines: %w", err))
	}
	defer rows.Close()

	var lines []lockedLine
	for rows.Next() {
		var l lockedLine
		if err := rows.Scan(&l.id, &l.productID, &l.quantity); err != nil {
			return nil, db.Classify(fmt.Errorf("scan cart line: %w", err))
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(fmt.Errorf("lock cart lines: %w", err))
	}
	return lines, nil
}

func lockProducts(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]lockedProduct, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, name, price, discount, quantity
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("lock products: %w", err))
	}
	defer rows.Close()

	products := make(map[int64]lockedProduct, len(ids))
	for rows.Next() {
		var (
			id int64
			p  lockedProduct
		)
		if err := rows.Scan(&id, &p.name, &p.price, &p.discount, &p.available); err != nil {
			return nil, db.Classify(fmt.Errorf("scan product: %w", err))
		}
		products[id] = p
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(fmt.Errorf("lock products: %w", err))
	}
	return products, nil
}
