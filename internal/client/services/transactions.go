package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dmitrijs2005/finsync/internal/client/mailbox"
	"github.com/dmitrijs2005/finsync/internal/client/models"
	"github.com/dmitrijs2005/finsync/internal/client/repositories/transactions"
	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/emailparse"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/money"
	"github.com/google/uuid"
	"golang.org/x/text/currency"
)

// mboxNamespace scopes client ids derived from Message-IDs.
var mboxNamespace = uuid.MustParse("6f1c2a4e-3b57-4e0d-9a55-2c0f4d1e8b11")

// ManualInput is a transaction typed in by the user. Amount is a signed
// decimal literal, negative for spending.
type ManualInput struct {
	AccountID string
	Amount    string
	Currency  string
	Category  string
	Merchant  string
	Note      string
	CreatedAt time.Time
}

// EmailCapture is what one alert e-mail produced. Transaction is nil when
// the text was not actionable; the signals are independent of it.
type EmailCapture struct {
	Transaction *models.PendingTransaction
	CardPayment *emailparse.CardPayment
	LoanNotice  *emailparse.LoanNotice
}

type MboxReport struct {
	Messages     int
	Captured     int
	Duplicates   int
	Unparsed     int
	Failed       int
	CardPayments int
	LoanNotices  int
}

type TransactionService interface {
	Capture(ctx context.Context, in ManualInput) (*models.PendingTransaction, error)
	CaptureEmail(ctx context.Context, subject, body string) (*EmailCapture, error)
	CaptureMbox(ctx context.Context, r io.Reader) (*MboxReport, error)
	Pending(ctx context.Context) ([]*models.PendingTransaction, error)
	CountPending(ctx context.Context) (int64, error)
	Delete(ctx context.Context, clientID string) error
	ClearSynced(ctx context.Context) (int64, error)
}

type transactionService struct {
	repo           transactions.Repository
	parser         *emailparse.Parser
	defaultAccount string
	logger         logging.Logger
	now            func() time.Time
}

func NewTransactionService(repo transactions.Repository, parser *emailparse.Parser, defaultAccount string, l logging.Logger) TransactionService {
	return &transactionService{
		repo:           repo,
		parser:         parser,
		defaultAccount: defaultAccount,
		logger:         l.With("module", "transactions"),
		now:            time.Now,
	}
}

func (s *transactionService) Capture(ctx context.Context, in ManualInput) (*models.PendingTransaction, error) {
	accountID := strings.TrimSpace(in.AccountID)
	if accountID == "" {
		accountID = s.defaultAccount
	}
	if accountID == "" {
		return nil, fmt.Errorf("%w: account is required", common.ErrValidation)
	}

	amount, err := money.ParseMinorUnits(in.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	code, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(in.Currency)))
	if err != nil {
		return nil, fmt.Errorf("%w: currency %q", common.ErrValidation, in.Currency)
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, fmt.Errorf("%w: category is required", common.ErrValidation)
	}

	createdAt := in.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	t := &models.PendingTransaction{
		ID:          uuid.NewString(),
		ClientID:    "manual-" + uuid.NewString(),
		AccountID:   accountID,
		AmountMinor: amount,
		Currency:    code.String(),
		Category:    category,
		Merchant:    strings.TrimSpace(in.Merchant),
		Note:        strings.TrimSpace(in.Note),
		Metadata:    metadataJSON(map[string]any{"source": "manual"}),
		CreatedAt:   createdAt,
	}

	if err := s.repo.Add(ctx, t); err != nil {
		return nil, fmt.Errorf("saving error: %w", err)
	}
	return t, nil
}

func (s *transactionService) CaptureEmail(ctx context.Context, subject, body string) (*EmailCapture, error) {
	return s.captureEmail(ctx, subject, body, "", "email", "")
}

func (s *transactionService) captureEmail(ctx context.Context, subject, body, from, source, clientID string) (*EmailCapture, error) {
	res := &EmailCapture{
		CardPayment: s.parser.DetectCreditCardPayment(subject, body),
		LoanNotice:  s.parser.DetectLoanNotice(subject, body),
	}

	c := s.parser.Parse(subject, body)
	if c == nil {
		return res, nil
	}
	if s.defaultAccount == "" {
		return res, fmt.Errorf("%w: no default account configured", common.ErrValidation)
	}
	if clientID == "" {
		clientID = c.ClientID
	}

	createdAt := c.OccurredAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	meta := map[string]any{"parsed": true, "raw": c.Raw, "source": source}
	if from != "" {
		meta["from"] = from
	}

	t := &models.PendingTransaction{
		ID:          uuid.NewString(),
		ClientID:    clientID,
		AccountID:   s.defaultAccount,
		AmountMinor: c.SignedAmount(),
		Currency:    c.Currency,
		Category:    c.Category(),
		Merchant:    c.Merchant,
		Note:        c.Note,
		Metadata:    metadataJSON(meta),
		CreatedAt:   createdAt,
	}
	if err := s.repo.Add(ctx, t); err != nil {
		return res, fmt.Errorf("saving error: %w", err)
	}

	res.Transaction = t
	return res, nil
}

// CaptureMbox enqueues every actionable message of an mbox export. Messages
// with a Message-ID get a stable client id, so importing the same export
// twice only counts duplicates.
func (s *transactionService) CaptureMbox(ctx context.Context, r io.Reader) (*MboxReport, error) {
	report := &MboxReport{}

	err := mailbox.Walk(r, func(m mailbox.Message) error {
		report.Messages++

		var clientID string
		if m.ID != "" {
			clientID = "mbox-" + uuid.NewSHA1(mboxNamespace, []byte(m.ID)).String()
		}

		res, err := s.captureEmail(ctx, m.Subject, m.Body, m.From, "mbox", clientID)
		if res != nil {
			if res.CardPayment != nil {
				report.CardPayments++
			}
			if res.LoanNotice != nil {
				report.LoanNotices++
			}
		}

		switch {
		case errors.Is(err, common.ErrDuplicateKey):
			report.Duplicates++
		case errors.Is(err, common.ErrValidation):
			return err
		case err != nil:
			report.Failed++
			s.logger.Warn(ctx, "failed to capture message", "message_id", m.ID, "error", err)
		case res.Transaction == nil:
			report.Unparsed++
		default:
			report.Captured++
		}
		return ctx.Err()
	}, func(i int, err error) {
		report.Messages++
		report.Failed++
		s.logger.Warn(ctx, "skipping unreadable message", "index", i, "error", err)
	})
	if err != nil {
		return report, err
	}

	s.logger.Info(ctx, "mbox captured", "messages", report.Messages, "captured", report.Captured,
		"duplicates", report.Duplicates)
	return report, nil
}

func (s *transactionService) Pending(ctx context.Context) ([]*models.PendingTransaction, error) {
	return s.repo.ListPending(ctx)
}

func (s *transactionService) CountPending(ctx context.Context) (int64, error) {
	return s.repo.CountPending(ctx)
}

func (s *transactionService) Delete(ctx context.Context, clientID string) error {
	return s.repo.DeleteByClientID(ctx, strings.TrimSpace(clientID))
}

func (s *transactionService) ClearSynced(ctx context.Context) (int64, error) {
	return s.repo.ClearSynced(ctx)
}

func metadataJSON(v map[string]any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return models.EmptyMetadata
	}
	return string(b)
}
