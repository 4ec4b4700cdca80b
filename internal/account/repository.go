package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
)

type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id int64) (*Account, error)
	GetByUsername(ctx context.Context, username string) (*Account, error)
	UpdateProfile(ctx context.Context, a *Account) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectAccount = `
	SELECT id, username, email, first_name, last_name, COALESCE(phone_number, ''), password_hash, created_at
	FROM accounts
`

func (r *PostgresRepository) Create(ctx context.Context, a *Account) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO accounts (username, email, first_name, last_name, password_hash)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, a.Username, a.Email, a.FirstName, a.LastName, a.PasswordHash).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if db.HasCode(err, db.CodeUniqueViolation) {
			return ErrUsernameTaken
		}
		return db.Classify(fmt.Errorf("insert account: %w", err))
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*Account, error) {
	return r.getOne(ctx, selectAccount+` WHERE username = $1`, username)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, query, arg).Scan(&a.ID, &a.Username, &a.Email, &a.FirstName, &a.LastName, &a.PhoneNumber, &a.PasswordHash, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, db.Classify(fmt.Errorf("select account: %w", err))
	}
	return &a, nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, a *Account) error {
	var phone *string
	if a.PhoneNumber != "" {
		phone = &a.PhoneNumber
	}
	err := r.pool.QueryRow(ctx, `
		UPDATE accounts
		SET username = $2, email = $3, first_name = $4, last_name = $5, phone_number = $6
		WHERE id = $1
		RETURNING created_at
	`, a.ID, a.Username, a.Email, a.FirstName, a.LastName, phone).Scan(&a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if db.HasCode(err, db.CodeUniqueViolation) {
			return ErrUsernameTaken
		}
		return db.Classify(fmt.Errorf("update account: %w", err))
	}
	return nil
}
