package shared

import "errors"

var (
	// ErrInvalidAssertion indicates an identity assertion failed verification.
	ErrInvalidAssertion = errors.New("invalid identity assertion")
	// ErrCSRFTokenMissing occurs when the CSRF token is missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
