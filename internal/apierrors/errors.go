// Package apierrors defines the errors returned by the tickora API client and the
// mapping from those errors to user-visible messages.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Messages shown when the server did not supply a reason of its own.
const (
	MsgNetwork        = "Network error. Please check your connection and try again."
	MsgSessionExpired = "Your session has expired. Please log in again."
	MsgUnexpected     = "An unexpected error occurred"
)

// Kind classifies an API failure
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalid
	KindUnauthorized
	KindPermission
	KindNotFound
	KindRateLimited
	KindServer
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnauthorized:
		return "unauthorized"
	case KindPermission:
		return "permission"
	case KindNotFound:
		return "not_found"
	case KindRateLimited:
		return "rate_limited"
	case KindServer:
		return "server"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// APIError represents a non-2xx response from the API
type APIError struct {
	StatusCode int    `json:"status_code"`
	Reason     string `json:"reason"`
	Body       string `json:"body,omitempty"`
	RetryAfter string `json:"retry_after,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Reason)
}

// Kind classifies the error by status code.
func (e *APIError) Kind() Kind {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return KindUnauthorized
	case e.StatusCode == http.StatusForbidden:
		return KindPermission
	case e.StatusCode == http.StatusNotFound:
		return KindNotFound
	case e.StatusCode == http.StatusTooManyRequests:
		return KindRateLimited
	case e.StatusCode == http.StatusBadRequest,
		e.StatusCode == http.StatusConflict,
		e.StatusCode == http.StatusUnprocessableEntity:
		return KindInvalid
	case e.StatusCode >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// NewAPIError creates a new API error
func NewAPIError(statusCode int, reason, body string) *APIError {
	if reason == "" {
		reason = MsgUnexpected
	}
	return &APIError{
		StatusCode: statusCode,
		Reason:     reason,
		Body:       body,
	}
}

// NetworkError represents a request for which no response was received
type NetworkError struct {
	Operation string `json:"operation"`
	URL       string `json:"url"`
	Err       error  `json:"error"`
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s to %s: %v", e.Operation, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ErrSessionExpired is returned when a 401 could not be recovered by refreshing the token.
var ErrSessionExpired = errors.New(MsgSessionExpired)

// ErrNotAuthenticated is returned by operations that need a logged-in session.
var ErrNotAuthenticated = errors.New("not logged in")

// KindOf returns the Kind of err, KindUnknown for errors that did not come from the API.
func KindOf(err error) Kind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind()
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	if errors.Is(err, ErrSessionExpired) {
		return KindUnauthorized
	}
	return KindUnknown
}

// IsPermission checks if an error is a permission error
func IsPermission(err error) bool { return KindOf(err) == KindPermission }

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsNetwork checks if an error is a connectivity failure
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// Retryable reports whether repeating the same request with the same identity could succeed.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindNetwork, KindRateLimited, KindServer:
		return true
	default:
		return false
	}
}

// UserMessage returns the text to show the user for err. Server reasons are returned
// verbatim; connectivity failures get a generic message.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Kind() == KindRateLimited {
			retry := apiErr.RetryAfter
			if retry == "" {
				retry = "60"
			}
			return fmt.Sprintf("Rate limit exceeded. Please try again in %s seconds.", retry)
		}
		return apiErr.Reason
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return MsgNetwork
	}
	return err.Error()
}
