package errors

import (
	"errors"
	"fmt"
)

// Failure kinds surfaced by the identity gateway. Handlers switch on these
// with errors.Is to pick a response; anything else is an internal error.
var (
	// Authentication errors
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTwoFactorRequired = errors.New("second factor required")

	// Upstream account service errors
	ErrUpstreamUnavailable = errors.New("account service unavailable")

	// OAuth2 request errors
	ErrInvalidClient    = errors.New("invalid client")
	ErrMalformedRequest = errors.New("malformed request")

	// Session errors. A decode failure is never fatal - callers fall back
	// to an anonymous session.
	ErrSessionDecode = errors.New("session decode failure")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
