// Package accounts stores the user's destination accounts.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/dmitrijs2005/finsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, user_id, name, type, currency, is_active, created_at`

func (r *PostgresRepository) Create(ctx context.Context, a *models.Account) (*models.Account, error) {
	query := `INSERT INTO accounts (user_id, name, type, currency, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, a.UserID, a.Name, a.Type, a.Currency, a.IsActive).
		Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		if dbx.IsConstraintViolation(err) {
			return nil, fmt.Errorf("%w: %v", common.ErrConstraintViolation, err)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return a, nil
}

// GetByID returns the account only when it belongs to userID.
func (r *PostgresRepository) GetByID(ctx context.Context, userID, id string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts WHERE id = $1 AND user_id = $2`
	return r.getOne(ctx, query, id, userID)
}

// FirstActive returns the earliest-created active account of the user.
func (r *PostgresRepository) FirstActive(ctx context.Context, userID string) (*models.Account, error) {
	query := `SELECT ` + selectColumns + ` FROM accounts
		WHERE user_id = $1 AND is_active
		ORDER BY created_at ASC
		LIMIT 1`
	return r.getOne(ctx, query, userID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.Account, error) {
	var a models.Account
	err := r.db.QueryRowContext(ctx, query, args...).
		Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.Currency, &a.IsActive, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &a, nil
}
