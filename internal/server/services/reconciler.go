// Package services contains server-side business logic: the batch import
// reconciler, e-mail ingestion and user enrollment.
package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/server/models"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/finsync/internal/syncrpc"
	"github.com/google/uuid"
	"golang.org/x/text/currency"
)

// BatchSize is the number of records handled per chunk of an import.
const BatchSize = 200

// Outcome tells how a keyed write landed.
type Outcome int

const (
	OutcomeInserted Outcome = iota + 1
	OutcomeUpdated
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInserted:
		return "inserted"
	case OutcomeUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// Reconciler applies client records to the ledger. Writes are keyed by
// (user, client id) so replaying a batch only turns inserts into updates.
type Reconciler struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewReconciler(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *Reconciler {
	return &Reconciler{
		db:          db,
		repomanager: m,
		logger:      l.With("module", "reconciler"),
	}
}

// UpsertBatch writes every record in its own transaction. A failing record is
// reported in Errors and counted as skipped; it never aborts the batch.
// Accepted lists the client ids that were stored.
func (r *Reconciler) UpsertBatch(ctx context.Context, userID string, inputs []syncrpc.TransactionInput) *syncrpc.ImportResult {
	res := &syncrpc.ImportResult{
		Errors:   []syncrpc.RecordError{},
		Accepted: []string{},
	}

	for start := 0; start < len(inputs); start += BatchSize {
		end := min(start+BatchSize, len(inputs))

		for _, in := range inputs[start:end] {
			outcome, err := r.Upsert(ctx, userID, in, "")
			if err != nil {
				res.Errors = append(res.Errors, syncrpc.RecordError{ClientID: in.ClientID, Error: err.Error()})
				res.Skipped++
				continue
			}

			switch outcome {
			case OutcomeInserted:
				res.Inserted++
			case OutcomeUpdated:
				res.Updated++
			}
			if in.ClientID != "" {
				res.Accepted = append(res.Accepted, in.ClientID)
			}
		}

		r.logger.Debug(ctx, "chunk processed", "user_id", userID, "from", start, "to", end)
	}

	r.logger.Info(ctx, "batch reconciled", "user_id", userID, "total", len(inputs),
		"inserted", res.Inserted, "updated", res.Updated, "skipped", res.Skipped)
	return res
}

// Upsert validates one record and writes it. With a client id the existing
// row of the user is updated, otherwise a new row is inserted. raw, when
// set, is kept as the bounded alert text.
func (r *Reconciler) Upsert(ctx context.Context, userID string, in syncrpc.TransactionInput, raw string) (Outcome, error) {
	t, err := toModel(userID, in, raw)
	if err != nil {
		return 0, err
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var outcome Outcome
	err = dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := r.checkAccount(ctx, tx, userID, t.AccountID); err != nil {
			return err
		}

		repo := r.repomanager.Transactions(tx)

		if t.ClientID != "" {
			existing, err := repo.FindByClientID(ctx, userID, t.ClientID)
			switch {
			case err == nil:
				t.ID = existing.ID
				if err := repo.Update(ctx, t); err != nil {
					return err
				}
				outcome = OutcomeUpdated
				return nil
			case !errors.Is(err, common.ErrorNotFound):
				return err
			}
		}

		if err := repo.Insert(ctx, t); err != nil {
			return err
		}
		outcome = OutcomeInserted
		return nil
	})
	if err != nil {
		return 0, err
	}
	return outcome, nil
}

// Insert stores the record as a new row without the client id lookup. The
// caller decides whether the row keeps its client id.
func (r *Reconciler) Insert(ctx context.Context, userID string, in syncrpc.TransactionInput, raw string) (*models.Transaction, error) {
	t, err := toModel(userID, in, raw)
	if err != nil {
		return nil, err
	}
	if err := r.checkAccount(ctx, r.db, userID, t.AccountID); err != nil {
		return nil, err
	}
	if err := r.repomanager.Transactions(r.db).Insert(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// FindRecentDuplicate looks for a row of the user with the same amount
// created since the given time whose alert text contains rawPrefix.
func (r *Reconciler) FindRecentDuplicate(ctx context.Context, userID string, amountMinor int64, since time.Time,
	rawPrefix string) (*models.Transaction, error) {
	return r.repomanager.Transactions(r.db).FindRecentDuplicate(ctx, userID, amountMinor, since, rawPrefix)
}

func (r *Reconciler) checkAccount(ctx context.Context, db dbx.DBTX, userID, accountID string) error {
	_, err := r.repomanager.Accounts(db).GetByID(ctx, userID, accountID)
	if errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("%w: unknown account %s", common.ErrValidation, accountID)
	}
	return err
}

// toModel validates the wire record: uuid account, ISO 4217 currency,
// non-empty category and a creation time.
func toModel(userID string, in syncrpc.TransactionInput, raw string) (*models.Transaction, error) {
	if _, err := uuid.Parse(in.AccountID); err != nil {
		return nil, fmt.Errorf("%w: accountId must be a uuid", common.ErrValidation)
	}

	code := strings.TrimSpace(in.Currency)
	if len(code) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", common.ErrValidation)
	}
	unit, err := currency.ParseISO(code)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown currency %q", common.ErrValidation, in.Currency)
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", common.ErrValidation)
	}

	if in.CreatedAt.IsZero() {
		return nil, fmt.Errorf("%w: createdAt is required", common.ErrValidation)
	}

	metadata := "{}"
	if len(in.Metadata) > 0 && string(in.Metadata) != "null" {
		var obj map[string]any
		if err := json.Unmarshal(in.Metadata, &obj); err != nil {
			return nil, fmt.Errorf("%w: metadata must be a JSON object", common.ErrValidation)
		}
		metadata = string(in.Metadata)
		if raw == "" {
			raw, _ = obj["raw"].(string)
		}
	}

	return &models.Transaction{
		UserID:      userID,
		AccountID:   in.AccountID,
		ClientID:    in.ClientID,
		AmountMinor: in.AmountMinor,
		Currency:    unit.String(),
		Category:    category,
		Merchant:    in.Merchant,
		Note:        in.Note,
		Metadata:    metadata,
		RawText:     truncateRunes(raw, models.MaxRawText),
		CreatedAt:   in.CreatedAt,
	}, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
