package session

import "github.com/duckielink/duckie/internal/bridge"

// Status is the coarse connection status of a session
type Status int

const (
	StatusIdle       Status = iota // No device selected, or the connection was closed
	StatusSearching                // Selected device not discovered yet
	StatusConnecting               // Connect issued, no answer yet
	StatusConnected
	StatusFailed // The last connection attempt or connection failed
)

// String returns the status name
func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusSearching:
		return "searching"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func statusFromBridge(s bridge.State) Status {
	switch s {
	case bridge.StateConnecting:
		return StatusConnecting
	case bridge.StateConnected:
		return StatusConnected
	case bridge.StateFailed:
		return StatusFailed
	default:
		return StatusIdle
	}
}
