package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

type Repository interface {
	AddOrIncrement(ctx context.Context, owner Owner, productID int64) (Line, bool, error)
	SetQuantity(ctx context.Context, owner Owner, lineID int64, quantity int) (Line, error)
	Remove(ctx context.Context, owner Owner, lineID int64) (int, error)
	ListFor(ctx context.Context, owner Owner) ([]Line, error)
	ListDetailed(ctx context.Context, owner Owner) (View, error)
	MergeSession(ctx context.Context, sessionKey string, accountID int64) (int, error)
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const (
	upsertAccountLine = `
		INSERT INTO cart_lines (account_id, product_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (account_id, product_id) WHERE account_id IS NOT NULL
		DO UPDATE SET quantity = cart_lines.quantity + 1
		RETURNING id, product_id, quantity, (xmax = 0)
	`
	upsertSessionLine = `
		INSERT INTO cart_lines (session_key, product_id, quantity)
		VALUES ($1, $2, 1)
		ON CONFLICT (session_key, product_id) WHERE session_key IS NOT NULL
		DO UPDATE SET quantity = cart_lines.quantity + 1
		RETURNING id, product_id, quantity, (xmax = 0)
	`
)

// AddOrIncrement puts one unit of the product in the owner's cart. The insert
// and the increment are a single statement, so concurrent adds for the same
// owner and product never produce two lines. created reports whether a new
// line was inserted.
func (r *PostgresRepository) AddOrIncrement(ctx context.Context, owner Owner, productID int64) (Line, bool, error) {
	if err := owner.Validate(); err != nil {
		return Line{}, false, err
	}
	query := upsertSessionLine
	if owner.IsAccount() {
		query = upsertAccountLine
	}
	_, ownerValue := owner.column()

	var (
		line    Line
		created bool
	)
	err := r.pool.QueryRow(ctx, query, ownerValue, productID).Scan(&line.ID, &line.ProductID, &line.Quantity, &created)
	if err != nil {
		if db.HasCode(err, db.CodeForeignKeyViolation) {
			return Line{}, false, fmt.Errorf("product %d: %w", productID, catalog.ErrNotFound)
		}
		return Line{}, false, db.Classify(fmt.Errorf("upsert cart line: %w", err))
	}
	return line, created, nil
}

func (r *PostgresRepository) SetQuantity(ctx context.Context, owner Owner, lineID int64, quantity int) (Line, error) {
	if !validQuantity(quantity) {
		return Line{}, ErrInvalidQuantity
	}
	if err := owner.Validate(); err != nil {
		return Line{}, err
	}
	col, ownerValue := owner.column()

	var line Line
	err := r.pool.QueryRow(ctx, `
		UPDATE cart_lines SET quantity = $3
		WHERE id = $1 AND `+col+` = $2
		RETURNING id, product_id, quantity
	`, lineID, ownerValue, quantity).Scan(&line.ID, &line.ProductID, &line.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Line{}, ErrNotFound
		}
		return Line{}, db.Classify(fmt.Errorf("update cart line: %w", err))
	}
	return line, nil
}

// Remove deletes the line and returns the quantity it held.
func (r *PostgresRepository) Remove(ctx context.Context, owner Owner, lineID int64) (int, error) {
	if err := owner.Validate(); err != nil {
		return 0, err
	}
	col, ownerValue := owner.column()

	var quantity int
	err := r.pool.QueryRow(ctx, `
		DELETE FROM cart_lines
		WHERE id = $1 AND `+col+` = $2
		RETURNING quantity
	`, lineID, ownerValue).Scan(&quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, db.Classify(fmt.Errorf("delete cart line: %w", err))
	}
	return quantity, nil
}

func (r *PostgresRepository) ListFor(ctx context.Context, owner Owner) ([]Line, error) {
	if err := owner.Validate(); err != nil {
		return nil, err
	}
	col, ownerValue := owner.column()

	rows, err := r.pool.Query(ctx, `
		SELECT id, product_id, quantity
		FROM cart_lines
		WHERE `+col+` = $1
		ORDER BY id
	`, ownerValue)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("list cart lines: %w", err))
	}
	defer rows.Close()

	lines := []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(err)
	}
	return lines, nil
}

// ListDetailed returns the owner's lines joined with product display data and totals.
func (r *PostgresRepository) ListDetailed(ctx context.Context, owner Owner) (View, error) {
	if err := owner.Validate(); err != nil {
		return View{}, err
	}
	col, ownerValue := owner.column()

	rows, err := r.pool.Query(ctx, `
		SELECT l.id, l.product_id, l.quantity, p.name, COALESCE(p.slug, ''), p.image, p.price, p.discount
		FROM cart_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.`+col+` = $1
		ORDER BY l.id
	`, ownerValue)
	if err != nil {
		return View{}, db.Classify(fmt.Errorf("list cart view: %w", err))
	}
	defer rows.Close()

	var lines []DetailedLine
	for rows.Next() {
		var (
			d        DetailedLine
			discount decimal.Decimal
		)
		if err := rows.Scan(&d.ID, &d.ProductID, &d.Quantity, &d.Name, &d.Slug, &d.Image, &d.UnitPrice, &discount); err != nil {
			return View{}, fmt.Errorf("scan cart view: %w", err)
		}
		d.DiscountedPrice = catalog.DiscountedPrice(d.UnitPrice, discount)
		d.Subtotal = d.DiscountedPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
		lines = append(lines, d)
	}
	if err := rows.Err(); err != nil {
		return View{}, db.Classify(err)
	}
	return newView(lines), nil
}

// MergeSession moves every line of an anonymous session into the account's
// cart. A product already in the account cart gets the session quantity added
// to it. Returns the number of session lines merged.
func (r *PostgresRepository) MergeSession(ctx context.Context, sessionKey string, accountID int64) (int, error) {
	if sessionKey == "" {
		return 0, nil
	}
	if accountID <= 0 {
		return 0, ErrInvalidOwner
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, db.Classify(fmt.Errorf("begin merge: %w", err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		INSERT INTO cart_lines (account_id, product_id, quantity)
		SELECT $2::bigint, product_id, quantity
		FROM cart_lines
		WHERE session_key = $1
		ORDER BY product_id
		ON CONFLICT (account_id, product_id) WHERE account_id IS NOT NULL
		DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity
	`, sessionKey, accountID)
	if err != nil {
		return 0, db.Classify(fmt.Errorf("merge session lines: %w", err))
	}
	merged := int(tag.RowsAffected())
	if merged == 0 {
		return 0, nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE session_key = $1`, sessionKey); err != nil {
		return 0, db.Classify(fmt.Errorf("delete session lines: %w", err))
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, db.Classify(fmt.Errorf("commit merge: %w", err))
	}
	return merged, nil
}
