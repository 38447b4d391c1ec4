// Package common defines shared constants and sentinel errors used across
// client and server layers of finsync. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound          = errors.New("not found")
	ErrDuplicateKey        = errors.New("duplicate key")
	ErrConstraintViolation = errors.New("constraint violation")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrValidation     = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Import lifecycle.
	ErrNothingToImport  = errors.New("no pending transactions to import")
	ErrImportInProgress = errors.New("import already in progress")
	ErrImportFailed     = errors.New("import failed")

	// Webhook payloads.
	ErrMalformedPayload = errors.New("invalid email payload format")
)
