package domain

import "errors"

var (
	// ErrInvalidRoom is returned for room identifiers outside the configured set.
	ErrInvalidRoom = errors.New("unknown room")
	// ErrUnauthorized is returned when no verified sender identity is present.
	ErrUnauthorized = errors.New("no verified sender identity")
	// ErrInvalidSender is returned for an empty sender identity.
	ErrInvalidSender = errors.New("sender must not be empty")
	// ErrInvalidBody is returned for an empty or oversized message body.
	ErrInvalidBody = errors.New("message body must be 1-1000 bytes")

	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUsernameExists     = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
)
