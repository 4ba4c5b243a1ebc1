package client

import (
	"errors"
	"fmt"
)

var ErrMalformedResponse = errors.New("client: malformed response")

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("client: %s %s: %s", e.Method, e.Path, e.Status)
	}
	return fmt.Sprintf("client: %s %s: %s: %s", e.Method, e.Path, e.Status, e.Body)
}
