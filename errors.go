package shrike

import "errors"

var (
	// ErrInvalidEmail indicates the input failed syntactic validation.
	// No network lookups are performed for invalid input.
	ErrInvalidEmail = errors.New("shrike: invalid email address")

	// ErrResolverUnavailable indicates every DNS query for the domain
	// failed with a resolver-level error and no cached facts were
	// available to fall back on.
	ErrResolverUnavailable = errors.New("shrike: dns resolver unavailable")

	// ErrServerClosed is returned by Server.ListenAndServe after Shutdown.
	ErrServerClosed = errors.New("shrike: server closed")
)
