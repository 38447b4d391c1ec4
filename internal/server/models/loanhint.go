package models

import "time"

// LoanHint is a recurring-payment suggestion raised by a loan or EMI notice.
type LoanHint struct {
	ID        string
	UserID    string
	Lender    string
	Hint      string
	CreatedAt time.Time
}
