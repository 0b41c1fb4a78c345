package graph

import (
	"errors"
	"fmt"
)

// ErrMissingToken is returned before any request is attempted.
var ErrMissingToken = errors.New("access token missing")

// APIError is a non-2xx or malformed upstream response. Transient errors
// (rate limit, 5xx, non-JSON bodies) are retried by the client within its
// attempt budget; permanent errors abort the account immediately.
type APIError struct {
	StatusCode int
	Message    string
	transient  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph call failed (HTTP %d): %s", e.StatusCode, e.Message)
}

// IsTransient reports whether err is an upstream error worth retrying.
func IsTransient(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.transient
}

func retryableStatus(status int) bool {
	switch status {
	case 429, 500, 502, 503, 504:
		return true
	}
	return false
}
