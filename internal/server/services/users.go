package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/dbx"
	"github.com/dmitrijs2005/finsync/internal/server/auth"
	"github.com/dmitrijs2005/finsync/internal/server/config"
	"github.com/dmitrijs2005/finsync/internal/server/models"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/repomanager"
)

// Enrollment describes a user and, optionally, the first ledger account.
type Enrollment struct {
	Email       string
	Name        string
	Phone       string
	AccountName string
	AccountType string
	Currency    string
}

// UserService enrolls users and mints the access tokens sync clients use.
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
}

func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
	}
}

// Enroll returns the user registered under e.Email, creating it when absent.
// When e.AccountName is set and the user has no active account, an account
// is created in the same transaction.
func (s *UserService) Enroll(ctx context.Context, e Enrollment) (*models.User, *models.Account, error) {
	email := strings.ToLower(strings.TrimSpace(e.Email))
	if email == "" {
		return nil, nil, fmt.Errorf("%w: email is required", common.ErrValidation)
	}

	var (
		user    *models.User
		account *models.Account
	)

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)

		u, err := users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			user = u
		case errors.Is(err, common.ErrorNotFound):
			user, err = users.Create(ctx, &models.User{Email: email, Name: e.Name, Phone: e.Phone})
			if err != nil {
				return fmt.Errorf("error creating user: %w", err)
			}
		default:
			return err
		}

		if e.AccountName == "" {
			return nil
		}

		accounts := s.repomanager.Accounts(tx)
		a, err := accounts.FirstActive(ctx, user.ID)
		if err == nil {
			account = a
			return nil
		}
		if !errors.Is(err, common.ErrorNotFound) {
			return err
		}

		account, err = accounts.Create(ctx, &models.Account{
			UserID:   user.ID,
			Name:     e.AccountName,
			Type:     defaultString(e.AccountType, "bank"),
			Currency: strings.ToUpper(defaultString(e.Currency, "INR")),
			IsActive: true,
		})
		if err != nil {
			return fmt.Errorf("error creating account: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return user, account, nil
}

// IssueToken mints an access token for the user registered under email.
func (s *UserService) IssueToken(ctx context.Context, email string) (string, error) {
	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return "", common.ErrorUnauthorized
		}
		return "", common.ErrorInternal
	}

	token, err := auth.GenerateToken(user.ID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", common.ErrorInternal
	}
	return token, nil
}

func defaultString(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
