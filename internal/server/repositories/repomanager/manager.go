package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/loanhints"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/transactions"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Accounts(db dbx.DBTX) accounts.Repository
	Transactions(db dbx.DBTX) transactions.Repository
	LoanHints(db dbx.DBTX) loanhints.Repository
}
