// Package transactions is the device-side durable queue of captured
// transactions. Records stay until the server confirms them and a later
// ClearSynced reclaims the space.
package transactions

import (
	"context"

	"github.com/dmitrijs2005/finsync/internal/client/models"
)

type Repository interface {
	// Add stores t as unsynced. An id or client id collision returns an
	// error matching common.ErrDuplicateKey. A record without a client id
	// is accepted but can never be marked synced: the importer resends it
	// on every run until it is deleted.
	Add(ctx context.Context, t *models.PendingTransaction) error

	// ListPending returns a snapshot of every unsynced record, in no
	// particular order.
	ListPending(ctx context.Context) ([]*models.PendingTransaction, error)

	// MarkSynced flags the record with clientID. Unknown or already synced
	// ids are a no-op.
	MarkSynced(ctx context.Context, clientID string) error

	// ClearSynced deletes synced records and reports how many went.
	ClearSynced(ctx context.Context) (int64, error)

	Get(ctx context.Context, id string) (*models.PendingTransaction, error)
	CountPending(ctx context.Context) (int64, error)

	// DeleteByClientID drops an unsynced record. common.ErrorNotFound when
	// nothing unsynced has that id.
	DeleteByClientID(ctx context.Context, clientID string) error
}
