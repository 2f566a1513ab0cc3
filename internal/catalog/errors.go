package catalog

import (
	"errors"
	"fmt"
)

// ErrNetwork marks failures to reach the catalog service at all.
var ErrNetwork = errors.New("catalog service unreachable")

// ErrDecode marks responses that could not be decoded.
var ErrDecode = errors.New("malformed catalog response")

// APIError is a response the catalog service answered with success=false
// or a non-2xx status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("catalog service returned status %d", e.Status)
	}
	return fmt.Sprintf("catalog service returned status %d: %s", e.Status, e.Message)
}

// ValidationError reports a record that lacks the fields needed to build
// a result page route. It signals a data or programming error, not a
// transient failure.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cannot open result page: missing %s", e.Field)
}
