package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/finsync/internal/netx"
)

const twilioBaseURL = "https://api.twilio.com"

// TwilioSender sends SMS through the Twilio Messages REST resource.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	client     *http.Client
}

func NewTwilioSender(accountSID, authToken, from string, client *http.Client) *TwilioSender {
	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    twilioBaseURL,
		client:     client,
	}
}

type twilioMessage struct {
	SID     string `json:"sid"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (t *TwilioSender) SendSMS(ctx context.Context, to, body string) (string, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.accountSID))
	form := url.Values{"To": {to}, "From": {t.from}, "Body": {body}}

	resp, err := netx.PostForm(ctx, t.client, endpoint, t.accountSID, t.authToken, form)
	if err != nil {
		return "", fmt.Errorf("twilio send: %w", err)
	}

	var m twilioMessage
	if err := json.Unmarshal(resp, &m); err != nil {
		return "", fmt.Errorf("twilio response: %w", err)
	}
	if m.SID == "" {
		return "", fmt.Errorf("twilio response without sid: %s", m.Message)
	}
	return m.SID, nil
}
