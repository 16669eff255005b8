package freebox

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthorizationDenied is returned when the user refused the request on the router display.
	ErrAuthorizationDenied = errors.New("authorization denied on the router")
	// ErrAuthorizationTimedOut is returned when nobody answered the request in time,
	// either on the router side or within the local poll bound.
	ErrAuthorizationTimedOut = errors.New("authorization timed out")
	// ErrAuthorizationRevoked is returned when the router no longer knows the app token.
	ErrAuthorizationRevoked = errors.New("app token unknown or revoked")
	// ErrEmptyResult is returned when a successful envelope carries no result.
	ErrEmptyResult = errors.New("response envelope has no result")
)

// DiscoveryError is returned when the bootstrap address is unreachable or
// answers with something that is not an API descriptor.
type DiscoveryError struct {
	URL string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery at %s failed: %v", e.URL, e.Err)
}

func (e *DiscoveryError) Unwrap() error { return e.Err }

// InvalidVersionError is returned when the advertised api_version has no
// dot-delimited major component.
type InvalidVersionError struct {
	Version string
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid api version %q", e.Version)
}

// AuthorizationError wraps any failure of the device authorization grant.
type AuthorizationError struct {
	Op  string
	Err error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization %s: %v", e.Op, e.Err)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// PersistError is returned when the app token could not be written to disk.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("failed to persist configuration to %s: %v", e.Path, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// SessionError wraps any failure of the challenge/session exchange.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// RequestError wraps a failed authenticated call.
type RequestError struct {
	Method string
	URL    string
	Err    error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// RemoteError is the router's own failure report, decoded from a
// success:false envelope.
type RemoteError struct {
	StatusCode int
	ErrorCode  string
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("router error %s (http %d)", e.ErrorCode, e.StatusCode)
	}
	return fmt.Sprintf("router error %s (http %d): %s", e.ErrorCode, e.StatusCode, e.Message)
}

// AuthRejected reports whether the router refused the session credential.
func (e *RemoteError) AuthRejected() bool {
	switch e.ErrorCode {
	case "auth_required", "invalid_session", "invalid_token":
		return true
	}
	return e.StatusCode == 401 || e.StatusCode == 403
}

// IsAuthRejected reports whether err carries a RemoteError rejecting the session.
func IsAuthRejected(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.AuthRejected()
}
