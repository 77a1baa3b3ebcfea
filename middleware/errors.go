package middleware

import "errors"

var (
	// ErrInvalidInput indicates request validation failed
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmptyResponse indicates the provider returned no text
	ErrEmptyResponse = errors.New("empty response")

	// ErrInvalidContext indicates middleware context is invalid
	ErrInvalidContext = errors.New("invalid middleware context")
)
