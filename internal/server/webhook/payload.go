package webhook

import (
	"encoding/json"
	"errors"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/server/services"
)

// Kind names the provider payload shape an e-mail arrived in.
type Kind int

const (
	KindUnknown Kind = iota
	// KindDirect is {to, from, subject, text, html?}.
	KindDirect
	// KindAlternate is {recipient, sender, subject, body-plain, body-html?}.
	KindAlternate
	// KindNested is {email: {to, from, subject, text, html?}}.
	KindNested
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindAlternate:
		return "alternate"
	case KindNested:
		return "nested"
	default:
		return "unknown"
	}
}

var ErrInvalidJSON = errors.New("invalid JSON")

// recipients accepts a single address or a list; the first entry wins.
type recipients string

func (r *recipients) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*r = recipients(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err == nil && len(many) > 0 {
		*r = recipients(many[0])
		return nil
	}
	// any other shape leaves the field empty and fails discrimination
	*r = ""
	return nil
}

type directFields struct {
	To      recipients `json:"to"`
	From    string     `json:"from"`
	Subject string     `json:"subject"`
	Text    string     `json:"text"`
	HTML    string     `json:"html"`
}

func (d *directFields) complete() bool {
	return d != nil && d.To != "" && d.From != "" && d.Subject != "" && d.Text != ""
}

func (d *directFields) email() services.InboundEmail {
	return services.InboundEmail{To: string(d.To), From: d.From, Subject: d.Subject, Text: d.Text, HTML: d.HTML}
}

type envelope struct {
	directFields

	Recipient string `json:"recipient"`
	Sender    string `json:"sender"`
	BodyPlain string `json:"body-plain"`
	BodyHTML  string `json:"body-html"`

	Email *directFields `json:"email"`
}

// Decode recognizes the payload shape and returns the e-mail it carries.
// Shapes are tried in the order direct, alternate, nested.
func Decode(body []byte) (Kind, services.InboundEmail, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return KindUnknown, services.InboundEmail{}, ErrInvalidJSON
	}

	switch {
	case env.directFields.complete():
		return KindDirect, env.directFields.email(), nil
	case env.Recipient != "" && env.Sender != "" && env.Subject != "" && env.BodyPlain != "":
		return KindAlternate, services.InboundEmail{
			To:      env.Recipient,
			From:    env.Sender,
			Subject: env.Subject,
			Text:    env.BodyPlain,
			HTML:    env.BodyHTML,
		}, nil
	case env.Email.complete():
		return KindNested, env.Email.email(), nil
	default:
		return KindUnknown, services.InboundEmail{}, common.ErrMalformedPayload
	}
}
