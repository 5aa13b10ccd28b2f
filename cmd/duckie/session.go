package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/duckielink/duckie/internal/bridge"
	"github.com/duckielink/duckie/internal/config"
	"github.com/duckielink/duckie/internal/discovery"
	"github.com/duckielink/duckie/internal/logging"
	"github.com/duckielink/duckie/internal/session"
)

// Connection flags shared by every robot command
var (
	deviceIP       string
	brokerPort     int
	connectTimeout time.Duration
	lastKnown      bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceIP, "device-ip", "", "Robot IP address (skips discovery)")
	rootCmd.PersistentFlags().IntVar(&brokerPort, "broker-port", 0, "rosbridge port (defaults to the configured one)")
	rootCmd.PersistentFlags().DurationVar(&connectTimeout, "connect-timeout", bridge.DefaultDialTimeout, "rosbridge connection timeout")
	rootCmd.PersistentFlags().BoolVar(&lastKnown, "last-known", false, "Use the robot's last known address instead of scanning")
}

// errDeviceNotFound is returned when a scan finishes without the robot
var errDeviceNotFound = errors.New("device not found on the network")

// robotSession is a connected session with one robot
type robotSession struct {
	name     string
	service  *discovery.Service
	client   *bridge.Client
	coord    *session.Coordinator
	registry *config.Registry

	lost     chan struct{}
	lostOnce sync.Once
	stopLost func()
}

// openSession finds the robot named nameOrNickname and connects to its
// rosbridge server. onStatus, if non-nil, sees every status change.
func openSession(ctx context.Context, nameOrNickname string, onStatus func(session.Status)) (*robotSession, error) {
	registry, err := config.LoadRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	name := registry.ResolveName(nameOrNickname)

	backend, err := sessionBackend(registry, name)
	if err != nil {
		return nil, err
	}

	port := registry.Preferences.BrokerPort
	if brokerPort > 0 {
		port = brokerPort
	}

	s := &robotSession{
		name:     name,
		service:  discovery.NewService(backend),
		client:   bridge.NewClient(bridge.Config{Port: port, DialTimeout: connectTimeout}),
		registry: registry,
		lost:     make(chan struct{}),
	}
	s.coord = session.New(s.service.List(), s.client)

	changed := make(chan struct{}, 1)
	stopWait := s.coord.OnStatusChange(func(st session.Status) {
		if onStatus != nil {
			onStatus(st)
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer stopWait()

	s.coord.Select(name)
	scan := s.service.Refresh(ctx)

	if err := s.waitConnected(ctx, scan, changed); err != nil {
		s.Close()
		return nil, err
	}

	if d, ok := s.coord.Device(); ok {
		rememberDevices(registry, []discovery.Device{d})
	}

	s.stopLost = s.coord.OnStatusChange(func(st session.Status) {
		if st != session.StatusConnected {
			s.lostOnce.Do(func() { close(s.lost) })
		}
	})
	if s.coord.Status() != session.StatusConnected {
		s.lostOnce.Do(func() { close(s.lost) })
	}
	return s, nil
}

func (s *robotSession) waitConnected(ctx context.Context, scan *discovery.Scan, changed <-chan struct{}) error {
	scanDone := scan.Done()
	scanned := false

	for {
		switch s.coord.Status() {
		case session.StatusConnected:
			return nil
		case session.StatusFailed:
			return fmt.Errorf("could not connect to rosbridge at %s", s.client.URL())
		case session.StatusSearching:
			// The device list reaches the coordinator asynchronously, so a
			// finished scan only means "not found" once the list agrees.
			if scanned {
				if _, ok := s.service.List().Lookup(s.name); !ok {
					return fmt.Errorf("%s: %w", s.name, errDeviceNotFound)
				}
			}
		}

		select {
		case <-changed:
		case <-scanDone:
			scanned = true
			scanDone = nil
			if err := scan.Err(); err != nil {
				return fmt.Errorf("discovery failed: %w", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// sessionBackend picks how the robot is found: an explicit address, the
// registry's last known address, or a live scan.
func sessionBackend(registry *config.Registry, name string) (discovery.Backend, error) {
	ip := deviceIP
	if ip == "" && lastKnown {
		d := registry.GetDevice(name)
		if d == nil || d.LastIP == "" {
			return nil, fmt.Errorf("no last known address for %s, run 'duckie scan' first", name)
		}
		ip = d.LastIP
	}

	if ip != "" {
		device := discovery.Device{
			IP:            ip,
			Name:          name,
			Type:          discovery.DefaultType,
			Configuration: discovery.DefaultConfiguration,
		}
		if d := registry.GetDevice(name); d != nil {
			if d.Type != "" {
				device.Type = d.Type
			}
			if d.Configuration != "" {
				device.Configuration = d.Configuration
			}
			device.Hardware = d.Hardware
		}
		logging.Debug("Skipping discovery", zap.String("name", name), zap.String("ip", ip))
		return &discovery.StaticBackend{Devices: []discovery.Device{device}}, nil
	}

	return newBackend(registry.Preferences, registry.Preferences.DiscoveryBackend, 0)
}

// Lost is closed when the connection drops after it was established
func (s *robotSession) Lost() <-chan struct{} {
	return s.lost
}

// Close disconnects from the robot and stops discovery
func (s *robotSession) Close() {
	if s.stopLost != nil {
		s.stopLost()
	}
	s.coord.Close()
	s.service.Close()
}
