package client

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is returned by the source and target clients for transport
// failures and non-2xx responses. StatusCode is zero when no response was
// received.
type APIError struct {
	StatusCode   int
	Method       string
	URL          string
	ResponseBody string
	Err          error
}

func (e *APIError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
	}
	if e.StatusCode == http.StatusNotFound {
		return fmt.Sprintf("%s %s: not found: %s", e.Method, e.URL, e.ResponseBody)
	}
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, e.ResponseBody)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err carries a 404 from the remote system.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}
