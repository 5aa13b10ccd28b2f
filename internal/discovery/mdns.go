package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/duckielink/duckie/internal/logging"
)

const (
	// ServiceType is the mDNS service type Duckietown devices advertise
	ServiceType = "_duckietown._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultMDNSTimeout is how long an mDNS browse runs
	DefaultMDNSTimeout = 5 * time.Second

	// robotConfigPrefix marks the one advertisement per robot that carries
	// its configuration: "DT::ROBOT_CONFIGURATION::<name>"
	robotConfigPrefix = "DT::ROBOT_CONFIGURATION"
)

// MDNSBackend discovers devices from their Duckietown mDNS advertisements
type MDNSBackend struct {
	// Timeout is the maximum time to browse
	Timeout time.Duration
}

// NewMDNSBackend creates an mDNS backend with default settings
func NewMDNSBackend() *MDNSBackend {
	return &MDNSBackend{
		Timeout: DefaultMDNSTimeout,
	}
}

// Scan implements Backend
func (b *MDNSBackend) Scan(ctx context.Context, onFound func(Device)) error {
	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry, 16)
	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	logging.Info("Browsing mDNS", zap.String("service", ServiceType), zap.Duration("timeout", b.Timeout))

	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, ok := <-entries:
			if !ok {
				return nil
			}
			if device, ok := parseServiceEntry(entry); ok {
				onFound(device)
			}
		}
	}
}

// parseServiceEntry converts a zeroconf entry to a Device.
// It reports false for entries that are not robot configuration records.
func parseServiceEntry(entry *zeroconf.ServiceEntry) (Device, bool) {
	if entry == nil || !strings.HasPrefix(entry.Instance, robotConfigPrefix) {
		return Device{}, false
	}

	name := entry.Instance
	if parts := strings.Split(entry.Instance, "::"); len(parts) >= 3 {
		name = parts[2]
	}

	// Prefer IPv4, fall back to the advertised host name
	ip := ""
	for _, addr := range entry.AddrIPv4 {
		ip = addr.String()
		break
	}
	if ip == "" {
		ip = strings.TrimSuffix(entry.HostName, ".")
	}
	if ip == "" {
		return Device{}, false
	}

	device := Device{
		IP:            ip,
		Name:          name,
		Type:          DefaultType,
		Configuration: DefaultConfiguration,
		DiscoveredAt:  time.Now(),
	}
	applyTXT(&device, entry.Text)
	return device, true
}

type txtPayload struct {
	Type          string `json:"type"`
	Configuration string `json:"configuration"`
	Hardware      string `json:"hardware"`
}

// applyTXT reads TXT records. The Duckietown agent publishes a single JSON
// record; plain key=value records are accepted too.
func applyTXT(device *Device, records []string) {
	for _, txt := range records {
		if strings.HasPrefix(strings.TrimSpace(txt), "{") {
			var payload txtPayload
			if err := json.Unmarshal([]byte(txt), &payload); err != nil {
				logging.Debug("Failed to parse JSON TXT record", zap.String("txt", txt), zap.Error(err))
				continue
			}
			setIfPresent(&device.Type, payload.Type)
			setIfPresent(&device.Configuration, payload.Configuration)
			setIfPresent(&device.Hardware, payload.Hardware)
			continue
		}

		key, value, _ := strings.Cut(txt, "=")
		switch key {
		case "type":
			setIfPresent(&device.Type, value)
		case "configuration":
			setIfPresent(&device.Configuration, value)
		case "hardware":
			setIfPresent(&device.Hardware, value)
		}
	}
}

func setIfPresent(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}
