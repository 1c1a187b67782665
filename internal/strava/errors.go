package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorKind buckets remote failures into what the user can act on
type ErrorKind string

const (
	KindUnauthorized ErrorKind = "unauthorized"
	KindForbidden    ErrorKind = "forbidden"
	KindNotFound     ErrorKind = "not_found"
	KindRateLimited  ErrorKind = "rate_limited"
	KindProviderDown ErrorKind = "provider_down"
	KindTimeout      ErrorKind = "timeout"
	KindOther        ErrorKind = "other"
)

// APIError is returned for non-2xx responses and transport failures of the
// resource endpoints. StatusCode is 0 when no response arrived.
type APIError struct {
	StatusCode int
	Kind       ErrorKind
	Message    string
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("strava API error %d (%s): %s", e.StatusCode, e.Kind, e.Message)
	}
	return fmt.Sprintf("strava API %s: %v", e.Kind, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// UserMessage is a short explanation suitable for the UI
func (e *APIError) UserMessage() string {
	switch e.Kind {
	case KindUnauthorized:
		return "Strava no longer accepts this session. Please sign in again."
	case KindForbidden:
		return "Strava denied access. Re-authorize with activity:read_all."
	case KindNotFound:
		return "That item was not found on Strava."
	case KindRateLimited:
		return "Strava rate limit reached. Try again in a few minutes."
	case KindProviderDown:
		return "Strava is having trouble right now. Try again later."
	case KindTimeout:
		return "Strava took too long to answer. Try again."
	default:
		return "Strava returned an unexpected error. Try again."
	}
}

// IsKind reports whether err is an APIError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func kindForStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindProviderDown
	default:
		return KindOther
	}
}

// newAPIError builds an APIError from a response, lifting Strava's
// {"message": ...} field when present
func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Kind:       kindForStatus(status),
		Body:       string(body),
	}

	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	} else {
		apiErr.Message = strings.TrimSpace(http.StatusText(status))
	}
	return apiErr
}

// transportError classifies a failed round trip. Cancellation by the
// caller is passed through unchanged.
func transportError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &APIError{Kind: KindTimeout, Message: "request timed out", Err: err}
	}
	return &APIError{Kind: KindProviderDown, Message: "request failed", Err: err}
}
