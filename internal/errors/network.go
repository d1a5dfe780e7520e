//nolint:revive // Package name intentionally shadows stdlib errors for convenience.
package errors

import (
	"fmt"
	"net/http"
)

// NetworkError is a failed call to the descriptor service: the request never
// got a response, the response had an unexpected status, or the service
// speaks an API version this client does not understand.
type NetworkError struct {
	Base Error `json:"error"`

	URL        string `json:"url,omitempty"`
	StatusCode int    `json:"statusCode,omitempty"`
}

// NewNetworkError creates a NetworkError for a request to url that failed
// without a usable response.
func NewNetworkError(url string, cause error) *NetworkError {
	return &NetworkError{
		Base: Error{
			Category: CategoryNetwork,
			Code:     CodeNetworkFailed,
			Message:  "descriptor service request failed",
			Cause:    cause,
		},
		URL: url,
	}
}

// NewHTTPError creates a NetworkError for a descriptor service response
// whose status is neither 200 nor 404.
func NewHTTPError(url string, statusCode int) *NetworkError {
	return &NetworkError{
		Base: Error{
			Category: CategoryNetwork,
			Code:     CodeHTTPError,
			Message:  fmt.Sprintf("HTTP %d", statusCode),
			Hint:     statusHint(statusCode),
		},
		URL:        url,
		StatusCode: statusCode,
	}
}

// Retryable reports whether the next scheduled check may succeed without
// any change on this side.
func (e *NetworkError) Retryable() bool {
	if e.Base.Code == CodeNetworkFailed {
		return true
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

func statusHint(statusCode int) string {
	switch {
	case statusCode == http.StatusUnauthorized, statusCode == http.StatusForbidden:
		return "Check the token in PROBEKIT_API_TOKEN."
	case statusCode == http.StatusTooManyRequests, statusCode >= http.StatusInternalServerError:
		return "The descriptor service is unavailable. The next check retries it."
	default:
		return ""
	}
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return e.Base.Error()
}

// Unwrap returns the transport or version error, if any.
func (e *NetworkError) Unwrap() error {
	return e.Base.Cause
}

// Is matches on code only, so callers can test for "any HTTP error".
func (e *NetworkError) Is(target error) bool {
	t, ok := target.(*NetworkError)
	if !ok {
		return false
	}
	return e.Base.Code == t.Base.Code
}
