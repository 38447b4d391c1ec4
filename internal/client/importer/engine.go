// Package importer drains the local queue to the server. One import runs
// at a time; the whole batch is retried as a unit because the server side
// is idempotent by client id.
package importer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/avast/retry-go"
	"github.com/dmitrijs2005/finsync/internal/client/client"
	"github.com/dmitrijs2005/finsync/internal/client/models"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/syncrpc"
)

const (
	DefaultAttempts  = 3
	DefaultBaseDelay = time.Second
)

// Queue is the part of the local store the engine needs.
type Queue interface {
	ListPending(ctx context.Context) ([]*models.PendingTransaction, error)
	MarkSynced(ctx context.Context, clientID string) error
}

// Importer submits one batch to the server.
type Importer interface {
	Import(ctx context.Context, batch []syncrpc.TransactionInput) (*syncrpc.ImportResult, error)
}

type Options struct {
	Attempts  uint
	BaseDelay time.Duration
}

// ImportFailedError is returned once the retry budget is spent. It matches
// common.ErrImportFailed and the last transport error.
type ImportFailedError struct {
	Attempts uint
	Err      error
}

func (e *ImportFailedError) Error() string {
	return fmt.Sprintf("import failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ImportFailedError) Unwrap() []error {
	return []error{common.ErrImportFailed, e.Err}
}

// Summary is the outcome of a completed import.
type Summary struct {
	Total    int
	Inserted int
	Updated  int
	Skipped  int
	Errors   []syncrpc.RecordError
	Attempts uint

	// MarkedSynced counts local records flagged after the server accepted
	// them; LocalErrors holds MarkSynced failures.
	MarkedSynced int
	LocalErrors  []string

	// Unkeyed counts records sent without a client id. The server cannot
	// confirm them, so they stay queued and go out again on every import.
	Unkeyed int
}

// Partial reports whether some records still need attention.
func (s *Summary) Partial() bool {
	return len(s.Errors) > 0 || len(s.LocalErrors) > 0 || s.Unkeyed > 0
}

type Engine struct {
	queue    Queue
	importer Importer
	logger   logging.Logger
	opts     Options

	running atomic.Bool

	mu       sync.RWMutex
	progress Progress
}

func NewEngine(q Queue, imp Importer, l logging.Logger, opts Options) *Engine {
	if opts.Attempts == 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	return &Engine{
		queue:    q,
		importer: imp,
		logger:   l.With("module", "importer"),
		opts:     opts,
	}
}

// StartImport uploads a snapshot of the pending records. It returns
// common.ErrNothingToImport when the queue is empty, common.ErrImportInProgress
// when another import is running and *ImportFailedError when every attempt
// failed. On failure the queue is left untouched.
func (e *Engine) StartImport(ctx context.Context) (*Summary, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, common.ErrImportInProgress
	}
	defer e.running.Store(false)

	pending, err := e.queue.ListPending(ctx)
	if err != nil {
		e.finish(err)
		return nil, fmt.Errorf("failed to list pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil, common.ErrNothingToImport
	}

	batch := toInputs(pending)
	e.begin(len(batch))
	e.logger.Info(ctx, "import started", "records", len(batch))

	var (
		attempts uint
		result   *syncrpc.ImportResult
	)
	err = retry.Do(
		func() error {
			attempts++
			res, err := e.importer.Import(ctx, batch)
			if err != nil {
				return err
			}
			result = res
			return nil
		},
		retry.Attempts(e.opts.Attempts),
		retry.DelayType(e.linearDelay),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			e.logger.Warn(ctx, "import attempt failed", "attempt", n+1, "error", err)
		}),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
	if err != nil {
		failed := &ImportFailedError{Attempts: attempts, Err: err}
		e.finish(failed)
		e.logger.Error(ctx, "import failed", "attempts", attempts, "error", err)
		return nil, failed
	}

	summary := &Summary{
		Total:    len(batch),
		Inserted: result.Inserted,
		Updated:  result.Updated,
		Skipped:  result.Skipped,
		Errors:   result.Errors,
		Attempts: attempts,
	}
	for _, in := range batch {
		if in.ClientID == "" {
			summary.Unkeyed++
		}
	}
	if summary.Unkeyed > 0 {
		e.logger.Warn(ctx, "records without client id stay queued", "count", summary.Unkeyed)
	}
	e.record(summary)

	// Only ids the server confirmed are flagged; rejected records stay queued.
	for _, clientID := range result.Accepted {
		if clientID == "" {
			continue
		}
		if err := e.queue.MarkSynced(ctx, clientID); err != nil {
			e.logger.Error(ctx, "failed to mark transaction synced", "client_id", clientID, "error", err)
			summary.LocalErrors = append(summary.LocalErrors, fmt.Sprintf("%s: %v", clientID, err))
			continue
		}
		summary.MarkedSynced++
	}

	e.finish(nil)
	e.logger.Info(ctx, "import finished",
		"inserted", summary.Inserted, "updated", summary.Updated, "skipped", summary.Skipped,
		"marked_synced", summary.MarkedSynced, "attempts", attempts)

	return summary, nil
}

// linearDelay waits base, 2*base, 3*base... between attempts.
func (e *Engine) linearDelay(n uint, _ error, _ *retry.Config) time.Duration {
	return time.Duration(n+1) * e.opts.BaseDelay
}

// isRetryable treats auth failures as final; a retry cannot fix a token.
func isRetryable(err error) bool {
	return !errors.Is(err, client.ErrUnauthorized)
}

func toInputs(pending []*models.PendingTransaction) []syncrpc.TransactionInput {
	batch := make([]syncrpc.TransactionInput, 0, len(pending))
	for _, p := range pending {
		in := syncrpc.TransactionInput{
			ClientID:    p.ClientID,
			AccountID:   p.AccountID,
			AmountMinor: p.AmountMinor,
			Currency:    p.Currency,
			Category:    p.Category,
			Merchant:    p.Merchant,
			Note:        p.Note,
			CreatedAt:   p.CreatedAt,
		}
		if p.Metadata != "" && p.Metadata != models.EmptyMetadata && json.Valid([]byte(p.Metadata)) {
			in.Metadata = json.RawMessage(p.Metadata)
		}
		batch = append(batch, in)
	}
	return batch
}
