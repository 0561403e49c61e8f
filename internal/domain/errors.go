// internal/domain/errors.go
package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrProviderNotFound = errors.New("payment provider not found")
	ErrAttemptNotFound  = errors.New("payment attempt not found")
	ErrRetryNotAllowed  = errors.New("retry requires a failed attempt with a known invoice")
	ErrTrackingClosed   = errors.New("tracking session already closed")
	ErrMissingPaymentID = errors.New("payment id required")
	ErrUnknownResource  = errors.New("unknown resource")
)
