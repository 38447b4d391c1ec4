// Package mailbox reads alert e-mails out of an mbox export so they can be
// fed to the parser.
package mailbox

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"
	"time"

	"github.com/emersion/go-mbox"
)

// maxBody bounds how much of one message body is kept.
const maxBody = 1 << 20

type Message struct {
	ID      string // Message-ID without angle brackets
	From    string
	To      string
	Subject string
	Date    time.Time
	Body    string // text/plain part, or the raw body when there is none
}

var wordDecoder = &mime.WordDecoder{}

// Walk calls fn for every message in the mbox stream r. A message that
// cannot be parsed is passed to onErr (when set) and skipped; an error from
// fn stops the walk.
func Walk(r io.Reader, fn func(Message) error, onErr func(index int, err error)) error {
	mr := mbox.NewReader(r)
	for i := 0; ; i++ {
		raw, err := mr.NextMessage()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading mbox message %d: %w", i, err)
		}

		msg, err := parse(raw)
		if err != nil {
			if onErr != nil {
				onErr(i, err)
			}
			continue
		}

		if err := fn(msg); err != nil {
			return err
		}
	}
}

func parse(r io.Reader) (Message, error) {
	m, err := mail.ReadMessage(r)
	if err != nil {
		return Message{}, err
	}

	out := Message{
		ID:      strings.Trim(strings.TrimSpace(m.Header.Get("Message-Id")), "<>"),
		From:    decodeHeader(m.Header.Get("From")),
		To:      decodeHeader(m.Header.Get("To")),
		Subject: decodeHeader(m.Header.Get("Subject")),
	}
	if d, err := m.Header.Date(); err == nil {
		out.Date = d
	}

	body, err := textBody(m.Header.Get("Content-Type"), m.Header.Get("Content-Transfer-Encoding"), m.Body)
	if err != nil {
		return Message{}, err
	}
	out.Body = body
	return out, nil
}

func decodeHeader(v string) string {
	if dec, err := wordDecoder.DecodeHeader(v); err == nil {
		return dec
	}
	return v
}

// textBody returns the first text/plain part, falling back to the first
// text/* part of a multipart message.
func textBody(contentType, encoding string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if !strings.HasPrefix(mediaType, "multipart/") {
		b, err := io.ReadAll(io.LimitReader(decode(encoding, body), maxBody))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}

	mr := multipart.NewReader(body, params["boundary"])
	var fallback string
	for {
		p, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return fallback, nil
		}
		if err != nil {
			return "", err
		}

		partType, _, _ := mime.ParseMediaType(p.Header.Get("Content-Type"))
		if strings.HasPrefix(partType, "multipart/") {
			nested, err := textBody(p.Header.Get("Content-Type"), "", p)
			if err != nil {
				return "", err
			}
			if nested != "" {
				return nested, nil
			}
			continue
		}

		// multipart.Reader already undoes quoted-printable.
		b, err := io.ReadAll(io.LimitReader(decode(p.Header.Get("Content-Transfer-Encoding"), p), maxBody))
		if err != nil {
			return "", err
		}
		switch {
		case partType == "text/plain" || partType == "":
			return string(b), nil
		case strings.HasPrefix(partType, "text/") && fallback == "":
			fallback = string(b)
		}
	}
}

func decode(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}
