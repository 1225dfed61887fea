package domain

import (
	"errors"
	"fmt"
)

var (
	ErrAccountNotFound = errors.New("account not found")
	ErrSecretNotFound  = errors.New("secret not found")
	ErrNotSignedIn     = errors.New("not signed in")
	ErrDivisionByZero  = errors.New("division by zero")
	// ErrQuotaRejected means the portal refused the quota query, usually because the session is no longer valid.
	ErrQuotaRejected = errors.New("quota query rejected")
)

type AuthErrorKind int

const (
	AuthUnknown AuthErrorKind = iota
	AuthInvalidCredentials
	AuthRateLimited
)

func (k AuthErrorKind) String() string {
	switch k {
	case AuthInvalidCredentials:
		return "invalid_credentials"
	case AuthRateLimited:
		return "rate_limited"
	default:
		return "unknown"
	}
}

// AuthError is returned when the portal rejects a login with a non-zero retCode.
type AuthError struct {
	Kind AuthErrorKind
	Code string
}

var (
	ErrInvalidCredentials = &AuthError{Kind: AuthInvalidCredentials}
	ErrRateLimited        = &AuthError{Kind: AuthRateLimited}
	ErrAuthUnknown        = &AuthError{Kind: AuthUnknown}
)

func (e *AuthError) Error() string {
	switch e.Kind {
	case AuthInvalidCredentials:
		return "service number or password is incorrect"
	case AuthRateLimited:
		return "maximum number of incorrect login attempts reached, try again after 15 minutes"
	default:
		if e.Code != "" {
			return fmt.Sprintf("unknown login error (code %s)", e.Code)
		}
		return "unknown login error"
	}
}

// Is matches any AuthError of the same kind, so errors.Is(err, ErrRateLimited) works.
func (e *AuthError) Is(target error) bool {
	t, ok := target.(*AuthError)
	return ok && t.Kind == e.Kind
}

type MappingErrorKind int

const (
	MappingSchemaMismatch MappingErrorKind = iota
	MappingEmptyPayload
)

func (k MappingErrorKind) String() string {
	if k == MappingEmptyPayload {
		return "empty_payload"
	}
	return "schema_mismatch"
}

// MappingError reports a provider payload that does not fit the expected schema.
type MappingError struct {
	Kind  MappingErrorKind
	Field string
	Err   error
}

var (
	ErrEmptyPayload   = &MappingError{Kind: MappingEmptyPayload}
	ErrSchemaMismatch = &MappingError{Kind: MappingSchemaMismatch}
)

func (e *MappingError) Error() string {
	if e.Kind == MappingEmptyPayload {
		return "quota payload has no entries"
	}

	msg := "quota payload schema mismatch"
	if e.Field != "" {
		msg += fmt.Sprintf(" at %q", e.Field)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MappingError) Is(target error) bool {
	t, ok := target.(*MappingError)
	return ok && t.Kind == e.Kind
}

func (e *MappingError) Unwrap() error {
	return e.Err
}

// TransportError wraps a connection failure that survived every retry.
type TransportError struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempt(s): %v", e.Method, e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
