package config

import (
	"sort"
	"time"
)

// Preference defaults. They mirror the protocol constants of the discovery
// and bridge packages.
const (
	DefaultBrokerPort      = 9090
	DefaultListenPort      = 44444
	DefaultRemotePort      = 11411
	DefaultSettleTimeoutMs = 2000
	DefaultPaceEvery       = 10
	DefaultPaceDelayMs     = 2

	BackendUDP  = "udp"
	BackendMDNS = "mdns"
)

// Registry represents the entire user configuration file.
// This stores known Duckiebots and application preferences.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by robot name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device represents what we remember about one Duckiebot.
// This is keyed by the robot's name in the Registry.
type Device struct {
	Nickname      string    `yaml:"nickname,omitempty"`      // User-friendly name
	LastIP        string    `yaml:"last_ip,omitempty"`       // Last known IP address
	LastSeen      time.Time `yaml:"last_seen,omitempty"`     // Last discovery/connection time
	Type          string    `yaml:"type,omitempty"`          // e.g., "Duckiebot"
	Configuration string    `yaml:"configuration,omitempty"` // e.g., "DB21M"
	Hardware      string    `yaml:"hardware,omitempty"`      // e.g., "jetson_nano"
}

// Preferences represents application-wide settings, including the wire
// constants used for discovery and the bridge connection.
type Preferences struct {
	BrokerPort       int    `yaml:"broker_port"`       // rosbridge websocket port
	ListenPort       int    `yaml:"listen_port"`       // Local UDP port pongs are sent to
	RemotePort       int    `yaml:"remote_port"`       // UDP port Duckiebots listen for pings on
	SettleTimeoutMs  int    `yaml:"settle_timeout_ms"` // Wait for late replies after the sweep
	PaceEvery        int    `yaml:"pace_every"`        // Pings between pauses
	PaceDelayMs      int    `yaml:"pace_delay_ms"`     // Pause length
	DiscoveryBackend string `yaml:"discovery_backend"` // "udp" or "mdns"
}

// DefaultPreferences returns the built-in preferences
func DefaultPreferences() *Preferences {
	return &Preferences{
		BrokerPort:       DefaultBrokerPort,
		ListenPort:       DefaultListenPort,
		RemotePort:       DefaultRemotePort,
		SettleTimeoutMs:  DefaultSettleTimeoutMs,
		PaceEvery:        DefaultPaceEvery,
		PaceDelayMs:      DefaultPaceDelayMs,
		DiscoveryBackend: BackendUDP,
	}
}

// applyDefaults fills unset fields, so a config file only needs to name the
// settings it changes.
func (p *Preferences) applyDefaults() {
	d := DefaultPreferences()
	if p.BrokerPort <= 0 {
		p.BrokerPort = d.BrokerPort
	}
	if p.ListenPort <= 0 {
		p.ListenPort = d.ListenPort
	}
	if p.RemotePort <= 0 {
		p.RemotePort = d.RemotePort
	}
	if p.SettleTimeoutMs <= 0 {
		p.SettleTimeoutMs = d.SettleTimeoutMs
	}
	if p.PaceEvery <= 0 {
		p.PaceEvery = d.PaceEvery
	}
	if p.PaceDelayMs <= 0 {
		p.PaceDelayMs = d.PaceDelayMs
	}
	if p.DiscoveryBackend == "" {
		p.DiscoveryBackend = d.DiscoveryBackend
	}
}

// SettleTimeout returns SettleTimeoutMs as a duration
func (p *Preferences) SettleTimeout() time.Duration {
	return time.Duration(p.SettleTimeoutMs) * time.Millisecond
}

// PaceDelay returns PaceDelayMs as a duration
func (p *Preferences) PaceDelay() time.Duration {
	return time.Duration(p.PaceDelayMs) * time.Millisecond
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version:     1,
		Devices:     make(map[string]*Device),
		Preferences: DefaultPreferences(),
	}
}

// GetDevice retrieves device metadata by robot name.
// Returns nil if the device doesn't exist in the registry.
func (r *Registry) GetDevice(name string) *Device {
	return r.Devices[name]
}

// EnsureDevice ensures a device entry exists in the registry.
// Returns the device entry (existing or newly created).
func (r *Registry) EnsureDevice(name string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}

	if device, exists := r.Devices[name]; exists {
		return device
	}

	device := &Device{}
	r.Devices[name] = device
	return device
}

// UpdateDeviceLastSeen updates the last seen timestamp and IP for a device.
func (r *Registry) UpdateDeviceLastSeen(name, ip string) {
	device := r.EnsureDevice(name)
	device.LastSeen = time.Now()
	device.LastIP = ip
}

// SetDeviceInfo records the hardware description reported by a device.
// Empty values leave the stored ones untouched.
func (r *Registry) SetDeviceInfo(name, typ, configuration, hardware string) {
	device := r.EnsureDevice(name)
	if typ != "" {
		device.Type = typ
	}
	if configuration != "" {
		device.Configuration = configuration
	}
	if hardware != "" {
		device.Hardware = hardware
	}
}

// SetDeviceNickname sets a user-friendly nickname for a device.
func (r *Registry) SetDeviceNickname(name, nickname string) {
	device := r.EnsureDevice(name)
	device.Nickname = nickname
}

// ResolveName maps a robot name or nickname to the robot name. Unknown
// input is returned unchanged.
func (r *Registry) ResolveName(nameOrNickname string) string {
	if _, ok := r.Devices[nameOrNickname]; ok {
		return nameOrNickname
	}
	for name, device := range r.Devices {
		if device.Nickname != "" && device.Nickname == nameOrNickname {
			return name
		}
	}
	return nameOrNickname
}

// DeviceNames returns the known robot names in sorted order
func (r *Registry) DeviceNames() []string {
	names := make([]string, 0, len(r.Devices))
	for name := range r.Devices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
