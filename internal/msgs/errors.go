package msgs

import (
	"errors"
	"fmt"
)

// ErrNotObject is returned for payloads that do not encode to a JSON object
var ErrNotObject = errors.New("payload is not a JSON object")

// ValidationError reports a payload that does not match its declared type
type ValidationError struct {
	Type string
	Err  error
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s payload: %v", e.Type, e.Err)
}

// Unwrap returns the underlying error
func (e *ValidationError) Unwrap() error {
	return e.Err
}
