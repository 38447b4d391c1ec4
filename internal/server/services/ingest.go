package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/emailparse"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/server/models"
	"github.com/dmitrijs2005/finsync/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/finsync/internal/syncrpc"
)

const (
	ReasonNoMatchingUser = "no matching user"
	ReasonNoAccount      = "no account"
	ReasonDuplicate      = "duplicate"
	ReasonUnparsed       = "no transaction found"
)

const (
	duplicateWindow    = 24 * time.Hour
	duplicatePrefixLen = 100
)

// InboundEmail is a decoded alert e-mail, independent of the provider payload.
type InboundEmail struct {
	To      string
	From    string
	Subject string
	Text    string
	HTML    string
}

// IngestResult is the outcome of one inbound e-mail.
type IngestResult struct {
	OK                 bool   `json:"ok"`
	Parsed             bool   `json:"parsed"`
	CreatedCount       int    `json:"createdCount"`
	CCPaymentDetected  bool   `json:"ccPaymentDetected"`
	LoanNoticeDetected bool   `json:"loanNoticeDetected"`
	Reason             string `json:"reason,omitempty"`
}

// Soft reports an accepted request that could not be routed to a ledger.
func (r *IngestResult) Soft() bool {
	return r.Reason == ReasonNoMatchingUser || r.Reason == ReasonNoAccount
}

// Notifier alerts a user about a detected card payment.
type Notifier interface {
	NotifyCardPayment(ctx context.Context, user *models.User, cp *emailparse.CardPayment) error
}

// LoanHintSink stores loan and EMI reminders.
type LoanHintSink interface {
	Record(ctx context.Context, userID string, hint models.LoanHint) error
}

// LedgerWriter is the part of the Reconciler used by ingestion.
type LedgerWriter interface {
	Upsert(ctx context.Context, userID string, in syncrpc.TransactionInput, raw string) (Outcome, error)
	Insert(ctx context.Context, userID string, in syncrpc.TransactionInput, raw string) (*models.Transaction, error)
	FindRecentDuplicate(ctx context.Context, userID string, amountMinor int64, since time.Time, rawPrefix string) (*models.Transaction, error)
}

type IngestService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	parser      *emailparse.Parser
	ledger      LedgerWriter
	notifier    Notifier
	loanHints   LoanHintSink
	logger      logging.Logger
	now         func() time.Time
}

func NewIngestService(db *sql.DB, m repomanager.RepositoryManager, parser *emailparse.Parser, ledger LedgerWriter,
	notifier Notifier, loanHints LoanHintSink, l logging.Logger) *IngestService {
	return &IngestService{
		db:          db,
		repomanager: m,
		parser:      parser,
		ledger:      ledger,
		notifier:    notifier,
		loanHints:   loanHints,
		logger:      l.With("module", "ingest"),
		now:         time.Now,
	}
}

// Ingest routes an alert to its user, records the parsed transaction and
// runs the card and loan detectors. Only storage failures are returned as
// errors; everything else is described by the result.
func (s *IngestService) Ingest(ctx context.Context, msg InboundEmail) (*IngestResult, error) {
	address := RecipientAddress(msg.To)

	user, err := s.repomanager.Users(s.db).GetByEmail(ctx, address)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.logger.Info(ctx, "no user for recipient", "to", address)
			return &IngestResult{OK: true, Reason: ReasonNoMatchingUser}, nil
		}
		return nil, err
	}

	res := &IngestResult{OK: true}
	body := msg.Text
	if body == "" {
		body = msg.HTML
	}

	s.runDetectors(ctx, user, msg.Subject, body, res)

	cand := s.parser.Parse(msg.Subject, body)
	if cand == nil {
		res.Reason = ReasonUnparsed
		return res, nil
	}
	res.Parsed = true

	account, err := s.repomanager.Accounts(s.db).FirstActive(ctx, user.ID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			res.Reason = ReasonNoAccount
			return res, nil
		}
		return nil, err
	}

	in, err := s.toInput(cand, account.ID, msg.From)
	if err != nil {
		return nil, err
	}

	_, err = s.ledger.Upsert(ctx, user.ID, in, cand.Raw)
	switch {
	case err == nil:
		res.CreatedCount = 1
	case errors.Is(err, common.ErrConstraintViolation):
		created, err := s.fallbackInsert(ctx, user.ID, in, cand.Raw)
		if err != nil {
			return nil, err
		}
		if created {
			res.CreatedCount = 1
		} else {
			res.Reason = ReasonDuplicate
		}
	default:
		return nil, err
	}

	s.logger.Info(ctx, "alert ingested", "user_id", user.ID, "created", res.CreatedCount, "reason", res.Reason)
	return res, nil
}

// fallbackInsert handles a keyed write rejected by a constraint. A recent row
// carrying the same alert is treated as a replay; otherwise the record is
// stored as an append-only row without its client id.
func (s *IngestService) fallbackInsert(ctx context.Context, userID string, in syncrpc.TransactionInput, raw string) (bool, error) {
	since := s.now().Add(-duplicateWindow)

	_, err := s.ledger.FindRecentDuplicate(ctx, userID, in.AmountMinor, since, truncateRunes(raw, duplicatePrefixLen))
	if err == nil {
		s.logger.Info(ctx, "duplicate alert skipped", "user_id", userID, "client_id", in.ClientID)
		return false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return false, err
	}

	in.ClientID = ""
	if _, err := s.ledger.Insert(ctx, userID, in, raw); err != nil {
		return false, err
	}
	return true, nil
}

func (s *IngestService) runDetectors(ctx context.Context, user *models.User, subject, body string, res *IngestResult) {
	if cp := s.parser.DetectCreditCardPayment(subject, body); cp != nil {
		res.CCPaymentDetected = true
		if cp.Amount != nil && s.notifier != nil {
			if err := s.notifier.NotifyCardPayment(ctx, user, cp); err != nil {
				s.logger.Warn(ctx, "card payment notification failed", "user_id", user.ID, "error", err)
			}
		}
	}

	if ln := s.parser.DetectLoanNotice(subject, body); ln != nil {
		res.LoanNoticeDetected = true
		if s.loanHints != nil {
			hint := models.LoanHint{UserID: user.ID, Lender: ln.Lender, Hint: ln.Hint}
			if err := s.loanHints.Record(ctx, user.ID, hint); err != nil {
				s.logger.Warn(ctx, "loan hint not recorded", "user_id", user.ID, "error", err)
			}
		}
	}
}

type emailMetadata struct {
	Parsed bool   `json:"parsed"`
	Raw    string `json:"raw"`
	Source string `json:"source"`
	From   string `json:"from,omitempty"`
}

func (s *IngestService) toInput(c *emailparse.Candidate, accountID, from string) (syncrpc.TransactionInput, error) {
	meta, err := json.Marshal(emailMetadata{Parsed: true, Raw: c.Raw, Source: "email", From: from})
	if err != nil {
		return syncrpc.TransactionInput{}, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	createdAt := c.OccurredAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}

	return syncrpc.TransactionInput{
		ClientID:    c.ClientID,
		AccountID:   accountID,
		AmountMinor: c.SignedAmount(),
		Currency:    c.Currency,
		Category:    c.Category(),
		Merchant:    c.Merchant,
		Note:        c.Note,
		Metadata:    meta,
		CreatedAt:   createdAt,
	}, nil
}

// RecipientAddress extracts the bare lower-cased address from a header value
// such as `Jane <Jane@Example.com>`.
func RecipientAddress(to string) string {
	to = strings.TrimSpace(to)
	if addr, err := mail.ParseAddress(to); err == nil {
		return strings.ToLower(addr.Address)
	}
	if i := strings.LastIndex(to, "<"); i >= 0 {
		if j := strings.Index(to[i:], ">"); j > 0 {
			to = to[i+1 : i+j]
		}
	}
	return strings.ToLower(strings.TrimSpace(to))
}
