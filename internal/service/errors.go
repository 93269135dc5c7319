package service

import "errors"

var (
	ErrUnauthenticated     = errors.New("authentication required")
	ErrQuotaExhausted      = errors.New("free generation attempt already used")
	ErrDuplicateEmail      = errors.New("email already registered")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrGenerationFailed    = errors.New("content generation failed")
	ErrProviderUnavailable = errors.New("content generation is not available")
)
