package testutil

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
)

// StartPostgres launches a Postgres container, applies the embedded migrations
// and returns a pool. The container is terminated via t.Cleanup.
func StartPostgres(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16",
		Env:          map[string]string{"POSTGRES_PASSWORD": "postgres", "POSTGRES_USER": "postgres", "POSTGRES_DB": "storefront"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		terminateCtx, terminateCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer terminateCancel()
		_ = container.Terminate(terminateCtx)
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://postgres:postgres@%s:%s/storefront?sslmode=disable", host, mappedPort.Port())
	require.NoError(t, db.RunMigrations(dsn, log.New(io.Discard, "", 0)))

	pool, err := db.NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return pool, dsn
}

// SeedProduct inserts a product (and its category when missing) and returns its id.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, name, price string, quantity int) int64 {
	t.Helper()
	ctx := context.Background()

	var categoryID int64
	err := pool.QueryRow(ctx, `
		INSERT INTO categories (name, slug) VALUES ('General', 'general')
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`).Scan(&categoryID)
	require.NoError(t, err)

	var id int64
	err = pool.QueryRow(ctx, `
		INSERT INTO products (name, slug, price, quantity, category_id)
		VALUES ($1, $2, $3::numeric, $4, $5)
		RETURNING id`, name, name, price, quantity, categoryID).Scan(&id)
	require.NoError(t, err)
	return id
}

// SeedAccount inserts an account with a throwaway password hash.
func SeedAccount(t *testing.T, pool *pgxpool.Pool, username string) int64 {
	t.Helper()

	var id int64
	err := pool.QueryRow(context.Background(), `
		INSERT INTO accounts (username, password_hash) VALUES ($1, 'x')
		RETURNING id`, username).Scan(&id)
	require.NoError(t, err)
	return id
}

// ProductQuantity reads the current stock of a product.
func ProductQuantity(t *testing.T, pool *pgxpool.Pool, id int64) int {
	t.Helper()

	var q int
	require.NoError(t, pool.QueryRow(context.Background(), `SELECT quantity FROM products WHERE id = $1`, id).Scan(&q))
	return q
}
