// Package services defines the business logic for user accounts.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

// User-related errors.
var (
	// ErrUserNotFound indicates that the requested user does not exist or has
	// been archived.
	ErrUserNotFound = errors.New("user not found")

	// ErrEmptyName is returned when a create or rename request carries a
	// blank name after normalization.
	ErrEmptyName = errors.New("name is empty")

	// ErrNameTooLong is returned when a name exceeds the configured maximum
	// rune length.
	ErrNameTooLong = errors.New("name too long")

	// ErrInvalidEmail is returned when an email address fails syntactic
	// validation.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrDuplicateEmail is returned when a create request collides with an
	// existing live or archived account on the same address.
	ErrDuplicateEmail = errors.New("email already registered")
)
