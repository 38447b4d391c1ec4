package accounts

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresRepository(db), mock
}

var accountCols = []string{"id", "user_id", "name", "type", "currency", "is_active", "created_at"}

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	now := time.Now()
	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+accounts\s*\(user_id,\s*name,\s*type,\s*currency,\s*is_active\)`).
		WithArgs("u-1", "Main", "bank", "INR", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("a-1", now))

	got, err := repo.Create(context.Background(), &models.Account{UserID: "u-1", Name: "Main", Type: "bank",
		Currency: "INR", IsActive: true})
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)
	assert.Equal(t, now, got.CreatedAt)
}

func TestCreate_ForeignKey(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`INSERT\s+INTO\s+accounts`).WillReturnError(&pgconn.PgError{Code: "23503"})

	_, err := repo.Create(context.Background(), &models.Account{UserID: "missing"})
	require.ErrorIs(t, err, common.ErrConstraintViolation)
}

func TestGetByID(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`(?s)FROM\s+accounts\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2`).
		WithArgs("a-1", "u-1").
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow("a-1", "u-1", "Main", "bank", "USD", true, time.Now()))

	got, err := repo.GetByID(context.Background(), "u-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, "USD", got.Currency)
	assert.True(t, got.IsActive)
}

func TestGetByID_OtherUser(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+accounts`).WithArgs("a-1", "u-2").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "u-2", "a-1")
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestFirstActive(t *testing.T) {
	repo, mock := newRepoWithMock(t)

	q := `(?s)FROM\s+accounts\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+is_active\s+ORDER\s+BY\s+created_at\s+ASC\s+LIMIT\s+1`
	mock.ExpectQuery(q).WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows(accountCols).AddRow("a-old", "u-1", "First", "bank", "INR", true, time.Now()))

	got, err := repo.FirstActive(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "a-old", got.ID)

	mock.ExpectQuery(q).WithArgs("u-2").WillReturnError(sql.ErrNoRows)
	_, err = repo.FirstActive(context.Background(), "u-2")
	require.ErrorIs(t, err, common.ErrorNotFound)

	mock.ExpectQuery(q).WithArgs("u-3").WillReturnError(errors.New("boom"))
	_, err = repo.FirstActive(context.Background(), "u-3")
	require.ErrorContains(t, err, "db error: boom")
}
