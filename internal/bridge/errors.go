package bridge

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned by operations attempted without an open
	// connection
	ErrNotConnected = errors.New("bridge: not connected")

	// ErrConnectionClosed fails service calls still pending when the
	// connection goes away
	ErrConnectionClosed = errors.New("bridge: connection closed")

	// ErrTypeMismatch is returned when a topic is subscribed again with a
	// different message type
	ErrTypeMismatch = errors.New("bridge: topic already subscribed with another type")
)

// ServiceError is a failure reported by the server for one service call.
// It does not affect the connection or other calls.
type ServiceError struct {
	Service string
	Message string
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("service %s failed", e.Service)
	}
	return fmt.Sprintf("service %s failed: %s", e.Service, e.Message)
}
