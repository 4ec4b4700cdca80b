package catalog

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrInvalidQuantity = errors.New("stock quantity must be between 0 and 2147483647")
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	Get(ctx context.Context, id int64) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	Search(ctx context.Context, f Filter) ([]Product, error)
	SetStock(ctx context.Context, id int64, quantity int) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectProduct = `
	SELECT p.id, p.name, COALESCE(p.slug, ''), p.description, p.image, p.price, p.discount, p.quantity, COALESCE(c.slug, '')
	FROM products p
	JOIN categories c ON c.id = p.category_id
`

// orderings whitelists the order_by values accepted from clients.
var orderings = map[string]string{
	"price":  "p.price ASC, p.id",
	"-price": "p.price DESC, p.id",
	"name":   "p.name ASC, p.id",
	"-name":  "p.name DESC, p.id",
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (Product, error) {
	return r.getOne(ctx, selectProduct+` WHERE p.id = $1`, id)
}

func (r *PostgresRepository) GetBySlug(ctx context.Context, slug string) (Product, error) {
	return r.getOne(ctx, selectProduct+` WHERE p.slug = $1`, slug)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, db.Classify(fmt.Errorf("select product: %w", err))
	}
	return p, nil
}

// Search lists products matching f. A short all-digit query is treated as a
// product id; any other query matches name or description.
func (r *PostgresRepository) Search(ctx context.Context, f Filter) ([]Product, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	q := strings.TrimSpace(f.Query)
	switch {
	case q == "":
	case isProductID(q):
		id, _ := strconv.ParseInt(q, 10, 64)
		where = append(where, "p.id = "+arg(id))
	default:
		pattern := arg("%" + q + "%")
		where = append(where, "(p.name ILIKE "+pattern+" OR p.description ILIKE "+pattern+")")
	}
	if f.CategorySlug != "" && f.CategorySlug != "all" {
		where = append(where, "c.slug = "+arg(f.CategorySlug))
	}
	if f.OnSale {
		where = append(where, "p.discount > 0")
	}

	query := selectProduct
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	order, ok := orderings[f.OrderBy]
	if !ok {
		order = "p.id"
	}
	query += " ORDER BY " + order

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, db.Classify(fmt.Errorf("search products: %w", err))
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, db.Classify(fmt.Errorf("rows: %w", err))
	}
	return products, nil
}

func (r *PostgresRepository) SetStock(ctx context.Context, id int64, quantity int) error {
	if quantity < 0 || quantity > math.MaxInt32 {
		return ErrInvalidQuantity
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE products SET quantity = $2, updated_at = now()
		WHERE id = $1
	`, id, quantity)
	if err != nil {
		return db.Classify(fmt.Errorf("update stock: %w", err))
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func isProductID(q string) bool {
	if len(q) > 5 {
		return false
	}
	for _, c := range q {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Image, &p.Price, &p.Discount, &p.Quantity, &p.CategorySlug)
	return p, err
}
