package discovery

import (
	"fmt"
	"time"
)

const (
	// UnknownName is used when a reply does not carry a name
	UnknownName = "Unknown"

	// DefaultType is used when a reply does not carry a device type
	DefaultType = "Duckiebot"

	// DefaultConfiguration is the configuration assumed for mDNS records
	// that do not advertise one
	DefaultConfiguration = "DB21M"
)

// Device represents one responding Duckiebot
type Device struct {
	// IP is the IPv4 address the reply came from
	IP string `json:"ip"`

	// Name is the robot's logical name, also its topic namespace
	Name string `json:"name"`

	// Type is the device class (e.g., "Duckiebot", "Watchtower")
	Type string `json:"type"`

	// Configuration is the hardware variant tag (e.g., "DB21M")
	Configuration string `json:"configuration,omitempty"`

	// Hardware is a free-text hardware descriptor (e.g., "Raspberry Pi 4")
	Hardware string `json:"hardware,omitempty"`

	// DiscoveredAt is when the reply was parsed
	DiscoveredAt time.Time `json:"discovered_at"`
}

// String returns a human-readable string representation of the device
func (d Device) String() string {
	return fmt.Sprintf("%s %s (%s) at %s", d.Type, d.Name, d.Configuration, d.IP)
}

// Namespace returns the topic prefix for this device (e.g., "/duck1")
func (d Device) Namespace() string {
	return "/" + d.Name
}
