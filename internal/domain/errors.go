package domain

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrUnauthorized          = errors.New("unauthorized")
	ErrForbidden             = errors.New("forbidden")
	ErrNotFound              = errors.New("not found")
	ErrAlreadyExtended       = errors.New("session already extended")
	ErrAlreadyProcessed      = errors.New("already processed")
	ErrAuthenticationFailure = errors.New("authentication failure")
	ErrMalformedBlob         = errors.New("malformed blob")
	ErrSessionExpired        = errors.New("session expired")
	ErrVaultLocked           = errors.New("vault locked")
)
