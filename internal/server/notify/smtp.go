package notify

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"time"
)

// sendMail is replaced in tests.
var sendMail = smtp.SendMail

// SMTPSender delivers mail through an authenticated SMTP relay.
type SMTPSender struct {
	addr string
	auth smtp.Auth
	from string
	now  func() time.Time
}

func NewSMTPSender(host string, port int, user, password, from string) *SMTPSender {
	var auth smtp.Auth
	if user != "" {
		auth = smtp.PlainAuth("", user, password, host)
	}
	return &SMTPSender{
		addr: net.JoinHostPort(host, strconv.Itoa(port)),
		auth: auth,
		from: from,
		now:  time.Now,
	}
}

func (s *SMTPSender) Name() string { return "smtp" }

// Send ignores ctx cancellation once the SMTP exchange has started.
func (s *SMTPSender) Send(ctx context.Context, to, subject, text, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := buildMessage(s.from, to, subject, text, html, s.now())
	if err != nil {
		return err
	}
	if err := sendMail(s.addr, s.auth, s.from, []string{to}, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}
