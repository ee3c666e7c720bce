// Package common defines shared constants and sentinel errors used across
// the client packages. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// ErrTokenExpired is the status message the identity provider uses when
	// the id token must be refreshed.
	ErrTokenExpired = errors.New("token expired")

	// ErrValidation reports malformed input caught before reaching a collaborator.
	ErrValidation = errors.New("validation error")

	// ErrAuth reports that the identity provider rejected credentials or
	// account creation.
	ErrAuth = errors.New("authentication error")

	// ErrNotSignedIn is returned by mutations that need a current identity.
	ErrNotSignedIn = errors.New("not signed in")

	// ErrStorage reports a durable persistence read/write failure.
	ErrStorage = errors.New("storage error")

	// ErrDelivery reports a transactional email that could not be sent.
	ErrDelivery = errors.New("delivery error")
)
