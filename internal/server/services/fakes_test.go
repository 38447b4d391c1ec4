package services

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/dmitrijs2005/finsync/internal/server/models"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/accounts"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/loanhints"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/transactions"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/users"
)

/************* sqlmock *************/

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

/************* repositories *************/

type fakeUsersRepo struct {
	users.Repository

	mu      sync.Mutex
	byEmail map[string]*models.User
	getErr  error
	created int
}

func newFakeUsersRepo(us ...*models.User) *fakeUsersRepo {
	r := &fakeUsersRepo{byEmail: map[string]*models.User{}}
	for _, u := range us {
		r.byEmail[u.Email] = u
	}
	return r
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	out := *u
	out.ID = fmt.Sprintf("user-%d", f.created)
	f.byEmail[u.Email] = &out
	return &out, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byEmail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type fakeAccountsRepo struct {
	accounts.Repository

	mu       sync.Mutex
	accounts []*models.Account
	created  int
}

func (f *fakeAccountsRepo) Create(_ context.Context, a *models.Account) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	out := *a
	out.ID = fmt.Sprintf("00000000-0000-0000-0000-%012d", 900+f.created)
	f.accounts = append(f.accounts, &out)
	return &out, nil
}

func (f *fakeAccountsRepo) GetByID(_ context.Context, userID, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.ID == id && a.UserID == userID {
			return a, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeAccountsRepo) FirstActive(_ context.Context, userID string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.accounts {
		if a.UserID == userID && a.IsActive {
			return a, nil
		}
	}
	return nil, common.ErrorNotFound
}

// fakeTxRepo keeps rows in memory and enforces the (user, client id) key.
type fakeTxRepo struct {
	transactions.Repository

	mu        sync.Mutex
	rows      []*models.Transaction
	insertErr error
	updateErr error
	dupOut    *models.Transaction
	dupErr    error
	dupArgs   []any
}

func (f *fakeTxRepo) FindByClientID(_ context.Context, userID, clientID string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.UserID == userID && r.ClientID == clientID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTxRepo) Insert(_ context.Context, t *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	for _, r := range f.rows {
		if t.ClientID != "" && r.UserID == t.UserID && r.ClientID == t.ClientID {
			return fmt.Errorf("%w: insert transaction: duplicate", common.ErrConstraintViolation)
		}
	}
	t.ID = fmt.Sprintf("tx-%d", len(f.rows)+1)
	cp := *t
	f.rows = append(f.rows, &cp)
	return nil
}

func (f *fakeTxRepo) Update(_ context.Context, t *models.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	for i, r := range f.rows {
		if r.ID == t.ID && r.UserID == t.UserID {
			cp := *t
			f.rows[i] = &cp
			return nil
		}
	}
	return common.ErrorNotFound
}

func (f *fakeTxRepo) FindRecentDuplicate(_ context.Context, userID string, amountMinor int64, since time.Time,
	rawPrefix string) (*models.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dupArgs = []any{userID, amountMinor, since, rawPrefix}
	if f.dupErr != nil {
		return nil, f.dupErr
	}
	if f.dupOut == nil {
		return nil, common.ErrorNotFound
	}
	return f.dupOut, nil
}

func (f *fakeTxRepo) snapshot() []models.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Transaction, len(f.rows))
	for i, r := range f.rows {
		out[i] = *r
	}
	return out
}

type fakeLoanHintsRepo struct {
	loanhints.Repository

	hints     []*models.LoanHint
	createErr error
}

func (f *fakeLoanHintsRepo) Create(_ context.Context, h *models.LoanHint) error {
	if f.createErr != nil {
		return f.createErr
	}
	h.ID = fmt.Sprintf("hint-%d", len(f.hints)+1)
	cp := *h
	f.hints = append(f.hints, &cp)
	return nil
}

func (f *fakeLoanHintsRepo) ListByUser(_ context.Context, userID string) ([]*models.LoanHint, error) {
	var out []*models.LoanHint
	for i := len(f.hints) - 1; i >= 0; i-- {
		if f.hints[i].UserID == userID {
			out = append(out, f.hints[i])
		}
	}
	return out, nil
}

type fakeRepoManager struct {
	repomanager.RepositoryManager
	u *fakeUsersRepo
	a *fakeAccountsRepo
	t *fakeTxRepo
	l *fakeLoanHintsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{u: newFakeUsersRepo(), a: &fakeAccountsRepo{}, t: &fakeTxRepo{}, l: &fakeLoanHintsRepo{}}
}

func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository { return m.u }
func (m *fakeRepoManager) Accounts(dbx.DBTX) accounts.Repository { return m.a }
func (m *fakeRepoManager) Transactions(dbx.DBTX) transactions.Repository { return m.t }
func (m *fakeRepoManager) LoanHints(dbx.DBTX) loanhints.Repository { return m.l }
