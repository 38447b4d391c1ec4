package syncrpc

import (
	"encoding/json"
	"time"
)

// TransactionInput is one record of an import batch. An empty ClientID
// means the record carries no idempotency key.
type TransactionInput struct {
	ClientID    string          `json:"clientId,omitempty"`
	AccountID   string          `json:"accountId"`
	AmountMinor int64           `json:"amountMinor"`
	Currency    string          `json:"currency"`
	Category    string          `json:"category"`
	Merchant    string          `json:"merchant,omitempty"`
	Note        string          `json:"note,omitempty"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

type ImportRequest struct {
	Transactions []TransactionInput `json:"transactions"`
}

// RecordError describes a record the server skipped.
type RecordError struct {
	ClientID string `json:"clientId,omitempty"`
	Error    string `json:"error"`
}

// ImportResult aggregates per-record outcomes. Accepted lists the client ids
// that were inserted or updated; only those may be marked synced.
type ImportResult struct {
	Inserted int           `json:"inserted"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	Errors   []RecordError `json:"errors"`
	Accepted []string      `json:"accepted"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
