package provider

import (
	"errors"
	"fmt"
)

var ErrInvalidServerURL = errors.New("provider: invalid opencode server url")

// DependencyError reports that the opencode backend could not be loaded.
type DependencyError struct {
	BaseURL string
	Err     error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf(
		"opencode backend unavailable at %s: %v (install opencode and start it with `opencode serve`, then retry)",
		e.BaseURL, e.Err,
	)
}

func (e *DependencyError) Unwrap() error { return e.Err }
