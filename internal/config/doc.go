// Package config provides user configuration management for duckie.
//
// This package manages a YAML-based configuration file that remembers the
// Duckiebots seen on the network (last address, hardware, nickname) and
// the connection preferences: broker port, discovery ports, pacing and
// backend. The configuration follows OS-specific conventions for storage
// location.
//
// # Configuration File Location
//
// The configuration file is stored in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/duckie/config.yaml or $HOME/.config/duckie/config.yaml
//   - macOS: $HOME/.config/duckie/config.yaml
//   - Windows: %LOCALAPPDATA%\duckie\config.yaml
//
// # Example File
//
//	version: 1
//	devices:
//	  duck1:
//	    nickname: lab bot
//	    last_ip: 192.168.1.20
//	    type: Duckiebot
//	    configuration: DB21M
//	preferences:
//	  broker_port: 9090
//	  discovery_backend: udp
//
// Unset preferences take their defaults.
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.UpdateDeviceLastSeen("duck1", "192.168.1.20")
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
