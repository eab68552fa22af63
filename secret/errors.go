package secret

import "errors"

var (
	// ErrProviderNotRegistered is returned for a reference to an unknown provider.
	ErrProviderNotRegistered = errors.New("secret: provider not registered")

	// ErrEmptySecret is returned by a strict resolver when a secret is empty.
	ErrEmptySecret = errors.New("secret: empty value")

	// ErrMissingEnv is returned when ${VAR} names an unset variable.
	ErrMissingEnv = errors.New("secret: missing environment variable")

	// ErrNotFound is returned when a provider has no secret for a ref.
	ErrNotFound = errors.New("secret: not found")
)
