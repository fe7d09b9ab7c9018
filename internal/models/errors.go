package models

import "errors"

var (
	ErrNoRecord = errors.New("models: no matching record found")

	// ErrInvalidCredentials is returned when a user logs in with an incorrect email or password.
	ErrInvalidCredentials = errors.New("models: invalid credentials")

	// ErrDuplicateEmail is returned when a user signs up with an email address that is already in use.
	ErrDuplicateEmail = errors.New("models: duplicate email")
)
