package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/server/models"
	"github.com/dmitrijs2005/finsync/internal/syncrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testUserID    = "u1"
	testAccountID = "11111111-1111-1111-1111-111111111111"
)

var testCreatedAt = time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC)

func newTestReconciler(t *testing.T) (*Reconciler, *fakeRepoManager, sqlmock.Sqlmock) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	rm.a.accounts = []*models.Account{{ID: testAccountID, UserID: testUserID, IsActive: true}}
	return NewReconciler(db, rm, logging.Nop()), rm, mock
}

func input(clientID string, amount int64) syncrpc.TransactionInput {
	return syncrpc.TransactionInput{
		ClientID:    clientID,
		AccountID:   testAccountID,
		AmountMinor: amount,
		Currency:    "INR",
		Category:    "Expense",
		Merchant:    "Cafe",
		CreatedAt:   testCreatedAt,
	}
}

func expectCommits(mock sqlmock.Sqlmock, n int) {
	for i := 0; i < n; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}
}

/************* UpsertBatch *************/

func TestReconciler_UpsertBatch_ReplayTurnsInsertsIntoUpdates(t *testing.T) {
	r, rm, mock := newTestReconciler(t)
	ctx := context.Background()

	batch := []syncrpc.TransactionInput{input("c1", -1500), input("c2", 25000)}

	expectCommits(mock, 4)

	first := r.UpsertBatch(ctx, testUserID, batch)
	assert.Equal(t, 2, first.Inserted)
	assert.Equal(t, 0, first.Updated)
	assert.Equal(t, 0, first.Skipped)
	assert.Empty(t, first.Errors)
	assert.Equal(t, []string{"c1", "c2"}, first.Accepted)
	stored := rm.t.snapshot()

	second := r.UpsertBatch(ctx, testUserID, batch)
	assert.Equal(t, 0, second.Inserted)
	assert.Equal(t, 2, second.Updated)
	assert.Equal(t, []string{"c1", "c2"}, second.Accepted)
	assert.Equal(t, stored, rm.t.snapshot())

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciler_UpsertBatch_RecordsWithoutClientIDAreAppended(t *testing.T) {
	r, rm, mock := newTestReconciler(t)

	expectCommits(mock, 2)

	res := r.UpsertBatch(context.Background(), testUserID, []syncrpc.TransactionInput{input("", -100), input("", -100)})

	assert.Equal(t, 2, res.Inserted)
	assert.Empty(t, res.Accepted)
	assert.Len(t, rm.t.snapshot(), 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciler_UpsertBatch_InvalidRecordsAreSkipped(t *testing.T) {
	r, _, mock := newTestReconciler(t)

	badAccount := input("bad-account", 1)
	badAccount.AccountID = "not-a-uuid"
	badCurrency := input("bad-currency", 1)
	badCurrency.Currency = "RUPEES"
	unknownCurrency := input("unknown-currency", 1)
	unknownCurrency.Currency = "QQQ"
	noCategory := input("no-category", 1)
	noCategory.Category = "  "
	noDate := input("no-date", 1)
	noDate.CreatedAt = time.Time{}
	badMetadata := input("bad-metadata", 1)
	badMetadata.Metadata = json.RawMessage(`[1,2]`)

	expectCommits(mock, 1)

	res := r.UpsertBatch(context.Background(), testUserID, []syncrpc.TransactionInput{
		badAccount, badCurrency, unknownCurrency, noCategory, noDate, badMetadata, input("ok", 1),
	})

	assert.Equal(t, 1, res.Inserted)
	assert.Equal(t, 6, res.Skipped)
	assert.Equal(t, []string{"ok"}, res.Accepted)
	require.Len(t, res.Errors, 6)
	for i, id := range []string{"bad-account", "bad-currency", "unknown-currency", "no-category", "no-date", "bad-metadata"} {
		assert.Equal(t, id, res.Errors[i].ClientID)
		assert.Contains(t, res.Errors[i].Error, common.ErrValidation.Error())
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciler_UpsertBatch_ChunksLargeBatches(t *testing.T) {
	r, rm, mock := newTestReconciler(t)

	n := BatchSize + 5
	batch := make([]syncrpc.TransactionInput, n)
	for i := range batch {
		batch[i] = input(fmt.Sprintf("c%03d", i), int64(i+1))
	}
	expectCommits(mock, n)

	res := r.UpsertBatch(context.Background(), testUserID, batch)

	assert.Equal(t, n, res.Inserted)
	assert.Len(t, res.Accepted, n)
	assert.Len(t, rm.t.snapshot(), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciler_UpsertBatch_CanceledContext(t *testing.T) {
	r, rm, _ := newTestReconciler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := r.UpsertBatch(ctx, testUserID, []syncrpc.TransactionInput{input("c1", 1)})

	assert.Equal(t, 1, res.Skipped)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "c1", res.Errors[0].ClientID)
	assert.Empty(t, res.Accepted)
	assert.Empty(t, rm.t.snapshot())
}

func TestReconciler_UpsertBatch_EmptyInput(t *testing.T) {
	r, _, mock := newTestReconciler(t)

	res := r.UpsertBatch(context.Background(), testUserID, nil)

	require.NotNil(t, res)
	assert.Zero(t, res.Inserted+res.Updated+res.Skipped)
	assert.NotNil(t, res.Errors)
	assert.NotNil(t, res.Accepted)
	require.NoError(t, mock.ExpectationsWereMet())
}

/************* Upsert *************/

func TestReconciler_Upsert_UnknownAccountRollsBack(t *testing.T) {
	r, rm, mock := newTestReconciler(t)

	in := input("c1", 1)
	in.AccountID = "22222222-2222-2222-2222-222222222222"

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := r.Upsert(context.Background(), testUserID, in, "")

	require.ErrorIs(t, err, common.ErrValidation)
	assert.Contains(t, err.Error(), "unknown account")
	assert.Empty(t, rm.t.snapshot())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciler_Upsert_AccountOfAnotherUser(t *testing.T) {
	r, _, mock := newTestReconciler(t)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := r.Upsert(context.Background(), "u2", input("c1", 1), "")

	require.ErrorIs(t, err, common.ErrValidation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciler_Upsert_ConstraintViolation(t *testing.T) {
	r, rm, mock := newTestReconciler(t)
	rm.t.insertErr = fmt.Errorf("%w: insert transaction: unique", common.ErrConstraintViolation)

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := r.Upsert(context.Background(), testUserID, input("c1", 1), "")

	require.ErrorIs(t, err, common.ErrConstraintViolation)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciler_Upsert_UpdateErrorRollsBack(t *testing.T) {
	r, rm, mock := newTestReconciler(t)
	rm.t.rows = []*models.Transaction{{ID: "tx-1", UserID: testUserID, ClientID: "c1"}}
	rm.t.updateErr = errors.New("db error: boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	_, err := r.Upsert(context.Background(), testUserID, input("c1", 1), "")

	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciler_Upsert_NormalizesFields(t *testing.T) {
	r, rm, mock := newTestReconciler(t)

	in := input("c1", -4200)
	in.Currency = " usd "
	in.Category = "  Groceries "
	in.Metadata = json.RawMessage(`{"raw":"` + strings.Repeat("é", models.MaxRawText+20) + `"}`)

	expectCommits(mock, 1)

	outcome, err := r.Upsert(context.Background(), testUserID, in, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeInserted, outcome)

	rows := rm.t.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, "USD", rows[0].Currency)
	assert.Equal(t, "Groceries", rows[0].Category)
	assert.Equal(t, models.MaxRawText, len([]rune(rows[0].RawText)))
	assert.JSONEq(t, string(in.Metadata), rows[0].Metadata)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReconciler_Upsert_DefaultsMetadataAndPrefersRawArgument(t *testing.T) {
	r, rm, mock := newTestReconciler(t)

	expectCommits(mock, 1)

	_, err := r.Upsert(context.Background(), testUserID, input("c1", 1), "alert text")
	require.NoError(t, err)

	rows := rm.t.snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, "{}", rows[0].Metadata)
	assert.Equal(t, "alert text", rows[0].RawText)
	require.NoError(t, mock.ExpectationsWereMet())
}

/************* Insert *************/

func TestReconciler_Insert_AppendsWithoutLookup(t *testing.T) {
	r, rm, mock := newTestReconciler(t)

	in := input("", -100)
	tx, err := r.Insert(context.Background(), testUserID, in, "raw")
	require.NoError(t, err)
	assert.Equal(t, "tx-1", tx.ID)

	_, err = r.Insert(context.Background(), testUserID, in, "raw")
	require.NoError(t, err)

	assert.Len(t, rm.t.snapshot(), 2)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "inserted", OutcomeInserted.String())
	assert.Equal(t, "updated", OutcomeUpdated.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}
