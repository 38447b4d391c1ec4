// Package notify delivers card payment alerts to users by e-mail and SMS.
//
// E-mail goes through the configured mailers in order, the first success
// wins. SMS is sent only when the user has a phone number.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/finsync/internal/emailparse"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/money"
	"github.com/dmitrijs2005/finsync/internal/server/models"
)

const cardPaymentSubject = "Alert: Credit card payment detected"

var (
	ErrNoMailer = errors.New("no email provider configured")
	ErrNoSMS    = errors.New("sms provider not configured")
)

// Mailer sends a plain text message with an HTML alternative.
type Mailer interface {
	Name() string
	Send(ctx context.Context, to, subject, text, html string) error
}

// SMSSender sends a text message and returns the provider message id.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (string, error)
}

// EmailResult reports one e-mail delivery.
type EmailResult struct {
	OK       bool
	Provider string
	Error    string
}

// SMSResult reports one SMS delivery.
type SMSResult struct {
	OK    bool
	SID   string
	Error string
}

type Service struct {
	mailers []Mailer
	sms     SMSSender
	logger  logging.Logger
}

// NewService builds a notifier. sms may be nil.
func NewService(l logging.Logger, sms SMSSender, mailers ...Mailer) *Service {
	return &Service{mailers: mailers, sms: sms, logger: l.With("module", "notify")}
}

// SendEmail tries every mailer in order.
func (s *Service) SendEmail(ctx context.Context, to, subject, text, html string) EmailResult {
	if len(s.mailers) == 0 {
		return EmailResult{Error: ErrNoMailer.Error()}
	}

	var last error
	for _, m := range s.mailers {
		if err := m.Send(ctx, to, subject, text, html); err != nil {
			s.logger.Warn(ctx, "mailer failed", "provider", m.Name(), "error", err)
			last = err
			continue
		}
		s.logger.Info(ctx, "email sent", "provider", m.Name(), "to", to)
		return EmailResult{OK: true, Provider: m.Name()}
	}
	return EmailResult{Error: last.Error()}
}

func (s *Service) SendSMS(ctx context.Context, to, body string) SMSResult {
	if s.sms == nil {
		return SMSResult{Error: ErrNoSMS.Error()}
	}
	sid, err := s.sms.SendSMS(ctx, to, body)
	if err != nil {
		s.logger.Warn(ctx, "sms failed", "error", err)
		return SMSResult{Error: err.Error()}
	}
	s.logger.Info(ctx, "sms sent", "sid", sid)
	return SMSResult{OK: true, SID: sid}
}

// NotifyCardPayment alerts the user about a detected card payment. It fails
// only when no channel delivered.
func (s *Service) NotifyCardPayment(ctx context.Context, user *models.User, cp *emailparse.CardPayment) error {
	if cp == nil || cp.Amount == nil {
		return nil
	}

	text, html := CardPaymentEmail(cp)
	er := s.SendEmail(ctx, user.Email, cardPaymentSubject, text, html)
	if er.OK {
		if user.Phone != "" && s.sms != nil {
			s.SendSMS(ctx, user.Phone, CardPaymentSMS(cp))
		}
		return nil
	}

	if user.Phone != "" && s.sms != nil {
		if sr := s.SendSMS(ctx, user.Phone, CardPaymentSMS(cp)); sr.OK {
			return nil
		}
	}
	return fmt.Errorf("card payment alert not delivered: %s", er.Error)
}

// CardPaymentEmail renders the alert body as text and HTML.
func CardPaymentEmail(cp *emailparse.CardPayment) (string, string) {
	amount := money.Format(cp.Amount.Minor, cp.Amount.Currency)
	if cp.CardLast4 == "" {
		return fmt.Sprintf("A credit card payment of %s was detected.", amount),
			fmt.Sprintf("<p>A credit card payment of <strong>%s</strong> was detected.</p>", amount)
	}
	return fmt.Sprintf("A credit card payment of %s was detected on card ending %s.", amount, cp.CardLast4),
		fmt.Sprintf("<p>A credit card payment of <strong>%s</strong> was detected on card ending <strong>%s</strong>.</p>",
			amount, cp.CardLast4)
}

func CardPaymentSMS(cp *emailparse.CardPayment) string {
	amount := money.Format(cp.Amount.Minor, cp.Amount.Currency)
	if cp.CardLast4 == "" {
		return "Credit card payment alert: " + amount
	}
	return fmt.Sprintf("Credit card payment alert: %s on card ending %s", amount, cp.CardLast4)
}
