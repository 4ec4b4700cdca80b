package account

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
)

func TestPostgresRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	repo := NewPostgresRepository(mock)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
		WithArgs("ann", "ann@example.com", "Ann", "Lee", "hash").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), now))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO accounts")).
		WithArgs("ann", "ann@example.com", "Ann", "Lee", "hash").
		WillReturnError(&pgconn.PgError{Code: db.CodeUniqueViolation})

	a := &Account{Username: "ann", Email: "ann@example.com", FirstName: "Ann", LastName: "Lee", PasswordHash: "hash"}
	require.NoError(t, repo.Create(context.Background(), a))
	assert.Equal(t, int64(7), a.ID)

	dup := &Account{Username: "ann", Email: "ann@example.com", FirstName: "Ann", LastName: "Lee", PasswordHash: "hash"}
	assert.ErrorIs(t, repo.Create(context.Background(), dup), ErrUsernameTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepositoryGetByUsernameMissing(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE username = $1")).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresRepository(mock).GetByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}
