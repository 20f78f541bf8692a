package model

import "errors"

// Domain errors surfaced by the persistence layer and mapped to API error
// codes by the handlers.
var (
	ErrCodeNotFound     = errors.New("invitation code not found")
	ErrCodeAlreadyUsed  = errors.New("invitation code already used")
	ErrSessionNotFound  = errors.New("test session not found")
	ErrSessionNotActive = errors.New("test session is not in progress")
)
