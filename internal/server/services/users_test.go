package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/server/auth"
	"github.com/dmitrijs2005/finsync/internal/server/config"
	"github.com/dmitrijs2005/finsync/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUserService(t *testing.T) (*UserService, *fakeRepoManager, func(commit bool)) {
	t.Helper()
	db, mock := newSQLMockDB(t)
	rm := newFakeRepoManager()
	cfg := &config.Config{SecretKey: "k", AccessTokenValidityDuration: time.Hour}

	expect := func(commit bool) {
		mock.ExpectBegin()
		if commit {
			mock.ExpectCommit()
		} else {
			mock.ExpectRollback()
		}
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("sqlmock expectations: %v", err)
		}
	})
	return NewUserService(db, rm, cfg), rm, expect
}

func TestUserService_Enroll_CreatesUserAndAccount(t *testing.T) {
	s, rm, expect := newTestUserService(t)
	expect(true)

	u, a, err := s.Enroll(context.Background(), Enrollment{
		Email: " Jane@Example.com ", Name: "Jane", Phone: "+15550001111", AccountName: "Salary", Currency: "usd",
	})

	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, "+15550001111", u.Phone)
	require.NotNil(t, a)
	assert.Equal(t, u.ID, a.UserID)
	assert.Equal(t, "Salary", a.Name)
	assert.Equal(t, "bank", a.Type)
	assert.Equal(t, "USD", a.Currency)
	assert.True(t, a.IsActive)
	assert.Equal(t, 1, rm.u.created)
	assert.Equal(t, 1, rm.a.created)
}

func TestUserService_Enroll_IsIdempotent(t *testing.T) {
	s, rm, expect := newTestUserService(t)
	expect(true)
	expect(true)

	e := Enrollment{Email: "jane@example.com", AccountName: "Cash", AccountType: "cash"}

	u1, a1, err := s.Enroll(context.Background(), e)
	require.NoError(t, err)
	u2, a2, err := s.Enroll(context.Background(), e)
	require.NoError(t, err)

	assert.Equal(t, u1.ID, u2.ID)
	assert.Equal(t, a1.ID, a2.ID)
	assert.Equal(t, 1, rm.u.created)
	assert.Equal(t, 1, rm.a.created)
}

func TestUserService_Enroll_WithoutAccount(t *testing.T) {
	s, rm, expect := newTestUserService(t)
	expect(true)

	u, a, err := s.Enroll(context.Background(), Enrollment{Email: "jane@example.com"})

	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Nil(t, a)
	assert.Zero(t, rm.a.created)
}

func TestUserService_Enroll_Errors(t *testing.T) {
	t.Run("empty email", func(t *testing.T) {
		s, _, _ := newTestUserService(t)

		_, _, err := s.Enroll(context.Background(), Enrollment{Email: "  "})
		require.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("lookup failure rolls back", func(t *testing.T) {
		s, rm, expect := newTestUserService(t)
		rm.u.getErr = errors.New("db error: down")
		expect(false)

		_, _, err := s.Enroll(context.Background(), Enrollment{Email: "jane@example.com"})
		require.Error(t, err)
	})
}

func TestUserService_IssueToken(t *testing.T) {
	s, rm, _ := newTestUserService(t)
	rm.u = newFakeUsersRepo(&models.User{ID: "u-42", Email: "jane@example.com"})

	token, err := s.IssueToken(context.Background(), "JANE@example.com")
	require.NoError(t, err)

	userID, err := auth.GetUserIDFromToken(token, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, "u-42", userID)
}

func TestUserService_IssueToken_Errors(t *testing.T) {
	s, rm, _ := newTestUserService(t)

	_, err := s.IssueToken(context.Background(), "nobody@example.com")
	require.ErrorIs(t, err, common.ErrorUnauthorized)

	rm.u.getErr = errors.New("db error: down")
	_, err = s.IssueToken(context.Background(), "jane@example.com")
	require.ErrorIs(t, err, common.ErrorInternal)
}
