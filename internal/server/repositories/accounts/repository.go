package accounts

import (
	"context"

	"github.com/dmitrijs2005/finsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, userID, id string) (*models.Account, error)
	FirstActive(ctx context.Context, userID string) (*models.Account, error)
}
