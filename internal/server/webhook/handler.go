// Package webhook exposes the inbound e-mail webhook over HTTP.
package webhook

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/finsync/internal/common"
	"github.com/dmitrijs2005/finsync/internal/logging"
	"github.com/dmitrijs2005/finsync/internal/server/services"
)

const (
	EmailPath  = "/webhooks/email"
	HealthPath = "/health"

	maxBodyBytes = 1 << 20
)

type Ingester interface {
	Ingest(ctx context.Context, msg services.InboundEmail) (*services.IngestResult, error)
}

// Archiver stores raw accepted payloads.
type Archiver interface {
	Store(ctx context.Context, body []byte) (string, error)
}

type Handler struct {
	ingester Ingester
	archiver Archiver
	secret   []byte
	logger   logging.Logger
}

// NewHandler builds the e-mail webhook. An empty secret disables the
// x-inbound-secret check; a nil archiver disables archiving.
func NewHandler(ing Ingester, archiver Archiver, secret string, l logging.Logger) *Handler {
	h := &Handler{ingester: ing, archiver: archiver, logger: l.With("module", "webhook")}
	if secret != "" {
		h.secret = []byte(secret)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if !h.authorized(r) {
		h.logger.Warn(ctx, "rejected webhook call", "request_id", RequestIDFromContext(ctx))
		WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		WriteError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	kind, msg, err := Decode(body)
	if err != nil {
		if errors.Is(err, common.ErrMalformedPayload) {
			WriteError(w, http.StatusBadRequest, common.ErrMalformedPayload.Error())
			return
		}
		WriteError(w, http.StatusBadRequest, ErrInvalidJSON.Error())
		return
	}

	h.archive(ctx, body)

	res, err := h.ingester.Ingest(ctx, msg)
	if err != nil {
		h.logger.Error(ctx, "ingest failed", "kind", kind.String(), "error", err)
		WriteError(w, http.StatusInternalServerError, common.ErrorInternal.Error())
		return
	}

	status := http.StatusOK
	if res.Soft() {
		status = http.StatusAccepted
	}
	WriteJSON(w, status, res)
}

func (h *Handler) authorized(r *http.Request) bool {
	if h.secret == nil {
		return true
	}
	got := []byte(r.Header.Get(common.InboundSecretHeaderName))
	return subtle.ConstantTimeCompare(got, h.secret) == 1
}

func (h *Handler) archive(ctx context.Context, body []byte) {
	if h.archiver == nil {
		return
	}
	key, err := h.archiver.Store(ctx, body)
	if err != nil {
		h.logger.Warn(ctx, "payload not archived", "error", err)
		return
	}
	h.logger.Debug(ctx, "payload archived", "key", key)
}

// NewMux routes the webhook and a health probe behind the middleware chain.
func NewMux(h http.Handler, l logging.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.Handle(EmailPath, h)
	mux.HandleFunc(HealthPath, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return Recovery(l)(
		Logger(l)(
			RequestID(mux),
		),
	)
}
