// Package loanhints persists recurring-payment suggestions raised by loan
// and EMI notices.
package loanhints

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/dmitrijs2005/finsync/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, h *models.LoanHint) error {
	query := `INSERT INTO loan_hints (user_id, lender, hint)
		VALUES ($1, $2, $3)
		RETURNING id, created_at`

	if err := r.db.QueryRowContext(ctx, query, h.UserID, dbx.NullString(h.Lender), h.Hint).
		Scan(&h.ID, &h.CreatedAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByUser returns the user's hints, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.LoanHint, error) {
	query := `SELECT id, user_id, lender, hint, created_at FROM loan_hints
		WHERE user_id = $1
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to select loan hints: %w", err)
	}
	defer rows.Close()

	var result []*models.LoanHint
	for rows.Next() {
		var (
			h      models.LoanHint
			lender sql.NullString
		)
		if err := rows.Scan(&h.ID, &h.UserID, &lender, &h.Hint, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Lender = lender.String
		result = append(result, &h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
