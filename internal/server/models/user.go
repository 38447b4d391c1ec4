package models

import "time"

// User owns accounts and transactions. Inbound alert e-mails are routed to a
// user by Email; Phone, when known, receives SMS alerts.
type User struct {
	ID        string
	Email     string
	Name      string
	Phone     string
	CreatedAt time.Time
}
