package storage

import "errors"

// Common storage errors
var (
	// ErrUserNotFound indicates that user was not found in storage
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates that user with this username already exists
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrEmailAlreadyExists indicates that user with this email already exists
	ErrEmailAlreadyExists = errors.New("email already registered")

	// ErrSessionNotFound indicates that session token is unknown
	ErrSessionNotFound = errors.New("session not found")

	// ErrPropertyNotFound indicates that property was not found
	ErrPropertyNotFound = errors.New("property not found")
)
