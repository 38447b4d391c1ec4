// Package models defines the records kept in the device-side queue.
package models

import "time"

// PendingTransaction is a locally captured transaction awaiting upload.
//
// ID is the local queue identity and is never reused. ClientID is the
// idempotency key sent to the server; empty means the record has none.
type PendingTransaction struct {
	ID          string
	ClientID    string
	AccountID   string
	AmountMinor int64 // signed, negative for debits
	Currency    string
	Category    string
	Merchant    string
	Note        string
	Metadata    string // JSON object text
	CreatedAt   time.Time
	Synced      bool
}

// EmptyMetadata is stored when a record carries no metadata.
const EmptyMetadata = "{}"
