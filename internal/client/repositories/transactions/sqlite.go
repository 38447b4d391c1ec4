package transactions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/models"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/google/uuid"
)

// SQLiteRepository implements Repository over a DBTX (*sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectColumns = `id, client_id, account_id, amount_minor, currency, category,
	merchant, note, metadata, created_at, synced`

// Add fills in a missing ID and metadata before inserting.
func (r *SQLiteRepository) Add(ctx context.Context, t *models.PendingTransaction) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Metadata == "" {
		t.Metadata = models.EmptyMetadata
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	query := `INSERT INTO pending_transactions (id, client_id, account_id, amount_minor, currency,
			category, merchant, note, metadata, created_at, synced)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`

	_, err := r.db.ExecContext(ctx, query,
		t.ID, nullable(t.ClientID), t.AccountID, t.AmountMinor, t.Currency,
		t.Category, nullable(t.Merchant), nullable(t.Note), t.Metadata, formatTime(t.CreatedAt))
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("%w: transaction %s", common.ErrDuplicateKey, t.ID)
		}
		return fmt.Errorf("failed to insert transaction: %w", err)
	}

	t.Synced = false
	return nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context) ([]*models.PendingTransaction, error) {
	query := `SELECT ` + selectColumns + ` FROM pending_transactions WHERE synced = 0`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending transactions: %w", err)
	}
	defer rows.Close()

	var pending []*models.PendingTransaction
	for rows.Next() {
		t, err := scan(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return pending, nil
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, clientID string) error {
	if clientID == "" {
		return nil
	}
	query := `UPDATE pending_transactions SET synced = 1 WHERE client_id = ? AND synced = 0`
	if _, err := r.db.ExecContext(ctx, query, clientID); err != nil {
		return fmt.Errorf("failed to mark %s synced: %w", clientID, err)
	}
	return nil
}

// ClearSynced is a single statement; rows inserted concurrently are
// unsynced and therefore untouched.
func (r *SQLiteRepository) ClearSynced(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM pending_transactions WHERE synced = 1`)
	if err != nil {
		return 0, fmt.Errorf("failed to clear synced transactions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.PendingTransaction, error) {
	query := `SELECT ` + selectColumns + ` FROM pending_transactions WHERE id = ?`
	t, err := scan(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *SQLiteRepository) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pending_transactions WHERE synced = 0`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending transactions: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) DeleteByClientID(ctx context.Context, clientID string) error {
	query := `DELETE FROM pending_transactions WHERE client_id = ? AND synced = 0`
	res, err := r.db.ExecContext(ctx, query, clientID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.PendingTransaction, error) {
	var (
		t                        models.PendingTransaction
		clientID, merchant, note sql.NullString
		createdAt                string
		synced                   int
	)
	err := s.Scan(&t.ID, &clientID, &t.AccountID, &t.AmountMinor, &t.Currency, &t.Category,
		&merchant, &note, &t.Metadata, &createdAt, &synced)
	if err != nil {
		return nil, err
	}

	t.ClientID = clientID.String
	t.Merchant = merchant.String
	t.Note = note.String
	t.Synced = synced != 0

	t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("bad created_at %q on %s: %w", createdAt, t.ID, err)
	}
	return &t, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
