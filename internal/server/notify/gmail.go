package notify

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailSender sends mail through the Gmail API as the authorized account.
type GmailSender struct {
	svc  *gmail.Service
	from string
	now  func() time.Time
}

// NewGmailSender authorizes with an OAuth client and a stored refresh token.
// Extra options are passed to the Gmail client.
func NewGmailSender(ctx context.Context, clientID, clientSecret, refreshToken, from string,
	opts ...option.ClientOption) (*GmailSender, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailSendScope},
	}
	httpClient := conf.Client(ctx, &oauth2.Token{RefreshToken: refreshToken})

	svc, err := gmail.NewService(ctx, append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("creating gmail service: %w", err)
	}
	return NewGmailSenderWithService(svc, from), nil
}

func NewGmailSenderWithService(svc *gmail.Service, from string) *GmailSender {
	return &GmailSender{svc: svc, from: from, now: time.Now}
}

func (g *GmailSender) Name() string { return "gmail" }

func (g *GmailSender) Send(ctx context.Context, to, subject, text, html string) error {
	raw, err := buildMessage(g.from, to, subject, text, html, g.now())
	if err != nil {
		return err
	}

	msg := &gmail.Message{Raw: base64.URLEncoding.EncodeToString(raw)}
	if _, err := g.svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("gmail send: %w", err)
	}
	return nil
}
