package domain

import "errors"

var (
	// ErrNotFound is returned when a topic, question or result id does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the admin gate rejects a request.
	ErrForbidden = errors.New("forbidden")
	// ErrAttemptNotFound is returned when a submission arrives without a sampled attempt.
	ErrAttemptNotFound = errors.New("quiz attempt not found")
	// ErrSessionNotFound is returned when a player token has no stored session.
	ErrSessionNotFound = errors.New("player session not found")
	// ErrInvalidInput is returned for malformed or missing request fields.
	ErrInvalidInput = errors.New("invalid input")
	// ErrInvalidCredentials is returned when an admin login does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrStorageUnavailable wraps connection or query failures of the backing store.
	ErrStorageUnavailable = errors.New("storage unavailable")
)
