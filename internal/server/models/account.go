package models

import "time"

type Account struct {
	ID        string
	UserID    string
	Name      string
	Type      string
	Currency  string
	IsActive  bool
	CreatedAt time.Time
}
