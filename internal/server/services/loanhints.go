package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/server/models"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/repomanager"
)

// LoanHintStore persists loan hints in the loan_hints table.
type LoanHintStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewLoanHintStore(db *sql.DB, m repomanager.RepositoryManager, l logging.Logger) *LoanHintStore {
	return &LoanHintStore{db: db, repomanager: m, logger: l.With("module", "loan_hints")}
}

func (s *LoanHintStore) Record(ctx context.Context, userID string, hint models.LoanHint) error {
	hint.UserID = userID
	if err := s.repomanager.LoanHints(s.db).Create(ctx, &hint); err != nil {
		return err
	}
	s.logger.Info(ctx, "loan hint recorded", "user_id", userID, "lender", hint.Lender)
	return nil
}

// List returns the user's hints, newest first.
func (s *LoanHintStore) List(ctx context.Context, userID string) ([]*models.LoanHint, error) {
	return s.repomanager.LoanHints(s.db).ListByUser(ctx, userID)
}
