package auth

import "errors"

var (
	// ErrServiceUnavailable means tokens cannot be checked right now.
	ErrServiceUnavailable = errors.New("identity provider is not available")
	// ErrTokenMissing means no ID token was supplied.
	ErrTokenMissing = errors.New("idToken is required")
	// ErrTokenMalformed means the ID token is not a compact JWS.
	ErrTokenMalformed = errors.New("malformed ID token")
	// ErrTokenInvalid means the ID token failed verification.
	ErrTokenInvalid = errors.New("invalid ID token")
	// ErrClaimsIncomplete means a verified token carried no email.
	ErrClaimsIncomplete = errors.New("email not provided by identity provider")
	// ErrSessionUnrecognized means the session credential is garbled.
	ErrSessionUnrecognized = errors.New("invalid session token")
)
