package loanhints

import (
	"context"

	"github.com/dmitrijs2005/finsync/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, h *models.LoanHint) error
	ListByUser(ctx context.Context, userID string) ([]*models.LoanHint, error)
}
