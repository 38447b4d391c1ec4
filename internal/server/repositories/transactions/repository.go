package transactions

import (
	"context"
	"time"

	"github.com/dmitrijs2005/finsync/internal/server/models"
)

type Repository interface {
	FindByClientID(ctx context.Context, userID, clientID string) (*models.Transaction, error)
	Insert(ctx context.Context, t *models.Transaction) error
	Update(ctx context.Context, t *models.Transaction) error
	FindRecentDuplicate(ctx context.Context, userID string, amountMinor int64, since time.Time, rawPrefix string) (*models.Transaction, error)
}
