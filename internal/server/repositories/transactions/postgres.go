// Package transactions provides the PostgreSQL ledger used by the import
// reconciler and the e-mail webhook.
package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/dmitrijs2005/finsync/internal/server/models"
)

// PostgresRepository implements ledger storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectColumns = `id, user_id, account_id, client_id, amount_minor, currency, category,
	merchant, note, metadata, raw_text, is_deleted, created_at, synced_at, updated_at`

// FindByClientID looks a row up by its idempotency key.
func (r *PostgresRepository) FindByClientID(ctx context.Context, userID, clientID string) (*models.Transaction, error) {
	query := `SELECT ` + selectColumns + ` FROM transactions
		WHERE user_id = $1 AND client_id = $2`

	t, err := scan(r.db.QueryRowContext(ctx, query, userID, clientID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

// Insert stores a new row and fills in the generated id and timestamps.
func (r *PostgresRepository) Insert(ctx context.Context, t *models.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, account_id, client_id, amount_minor, currency, category,
			merchant, note, metadata, raw_text, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, synced_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		t.UserID, t.AccountID, dbx.NullString(t.ClientID), t.AmountMinor, t.Currency, t.Category,
		dbx.NullString(t.Merchant), dbx.NullString(t.Note), metadata(t.Metadata), dbx.NullString(t.RawText),
		t.CreatedAt,
	).Scan(&t.ID, &t.SyncedAt, &t.UpdatedAt)
	if err != nil {
		return wrapWriteError("insert", err)
	}
	return nil
}

// Update overwrites the mutable fields of the row with t.ID owned by
// t.UserID. The soft-delete flag is left as is.
func (r *PostgresRepository) Update(ctx context.Context, t *models.Transaction) error {
	query := `
		UPDATE transactions SET
			account_id = $3,
			amount_minor = $4,
			currency = $5,
			category = $6,
			merchant = $7,
			note = $8,
			metadata = $9,
			raw_text = COALESCE($10, raw_text),
			created_at = $11,
			synced_at = now(),
			updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING synced_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.UserID, t.AccountID, t.AmountMinor, t.Currency, t.Category,
		dbx.NullString(t.Merchant), dbx.NullString(t.Note), metadata(t.Metadata), dbx.NullString(t.RawText),
		t.CreatedAt,
	).Scan(&t.SyncedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrorNotFound
		}
		return wrapWriteError("update", err)
	}
	return nil
}

// FindRecentDuplicate returns the newest row of the user with the same amount,
// created at or after since, whose stored alert text contains rawPrefix.
func (r *PostgresRepository) FindRecentDuplicate(ctx context.Context, userID string, amountMinor int64,
	since time.Time, rawPrefix string) (*models.Transaction, error) {

	query := `SELECT ` + selectColumns + ` FROM transactions
		WHERE user_id = $1 AND amount_minor = $2 AND created_at >= $3
			AND strpos(COALESCE(raw_text, metadata->>'raw', ''), $4) > 0
		ORDER BY created_at DESC
		LIMIT 1`

	t, err := scan(r.db.QueryRowContext(ctx, query, userID, amountMinor, since, rawPrefix))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func wrapWriteError(op string, err error) error {
	if dbx.IsConstraintViolation(err) {
		return fmt.Errorf("%w: %s: %v", common.ErrConstraintViolation, op, err)
	}
	return fmt.Errorf("db error: %w", err)
}

func metadata(s string) string {
	if s == "" {
		return "{}"
	}
	return s
}

func scan(row *sql.Row) (*models.Transaction, error) {
	var (
		t                   models.Transaction
		clientID, merchant  sql.NullString
		note, rawText, meta sql.NullString
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &clientID, &t.AmountMinor, &t.Currency, &t.Category,
		&merchant, &note, &meta, &rawText, &t.IsDeleted, &t.CreatedAt, &t.SyncedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	t.ClientID = clientID.String
	t.Merchant = merchant.String
	t.Note = note.String
	t.Metadata = meta.String
	t.RawText = rawText.String
	return &t, nil
}
