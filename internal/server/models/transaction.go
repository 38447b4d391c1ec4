package models

import "time"

// Transaction is the server copy of a ledger row. ClientID is empty for
// append-only rows; otherwise (UserID, ClientID) is unique. Rows are never
// hard-deleted, IsDeleted marks a soft delete.
type Transaction struct {
	ID          string
	UserID      string
	AccountID   string
	ClientID    string
	AmountMinor int64
	Currency    string
	Category    string
	Merchant    string
	Note        string
	Metadata    string
	RawText     string
	IsDeleted   bool
	CreatedAt   time.Time
	SyncedAt    time.Time
	UpdatedAt   time.Time
}

// MaxRawText bounds the stored alert text.
const MaxRawText = 500
