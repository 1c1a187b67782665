package auth

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrAuthExchangeFailed is matched by errors from a rejected authorization-code exchange.
	// The code is single use; the user has to restart the authorize flow.
	ErrAuthExchangeFailed = errors.New("authorization code exchange failed")

	// ErrAuthRefreshFailed is matched by errors from a rejected token refresh.
	ErrAuthRefreshFailed = errors.New("token refresh failed")

	// ErrUnauthenticated means no usable credential is available.
	ErrUnauthenticated = errors.New("not signed in")

	// ErrStateMismatch is returned when a callback carries an unknown or expired state.
	ErrStateMismatch = errors.New("state mismatch - possible CSRF attack")
)

// Token endpoint operations
const (
	OpExchange = "exchange"
	OpRefresh  = "refresh"
)

// AuthError describes a failed call to the token endpoint
type AuthError struct {
	Op         string // OpExchange or OpRefresh
	StatusCode int    // 0 when no response was received
	Body       string // provider error payload
	Err        error
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("token %s: status %d: %s", e.Op, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("token %s: %v", e.Op, e.Err)
}

// Unwrap exposes both the operation sentinel and the underlying cause.
func (e *AuthError) Unwrap() []error {
	sentinel := ErrAuthRefreshFailed
	if e.Op == OpExchange {
		sentinel = ErrAuthExchangeFailed
	}
	if e.Err == nil {
		return []error{sentinel}
	}
	return []error{sentinel, e.Err}
}

// Revoked reports whether the provider rejected the grant itself. Retrying
// with the same code or refresh token would fail the same way.
func (e *AuthError) Revoked() bool {
	switch e.StatusCode {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// IsRevoked reports whether err carries a revoked-grant AuthError.
func IsRevoked(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr) && authErr.Revoked()
}
