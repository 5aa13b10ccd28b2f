package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/duckielink/duckie/internal/bridge"
	"github.com/duckielink/duckie/internal/discovery"
	"github.com/duckielink/duckie/internal/logging"
)

// ErrNoDevice is returned by operations that need a bound device
var ErrNoDevice = errors.New("session: no device bound")

// DeviceSource publishes device list snapshots. *discovery.List satisfies
// it.
type DeviceSource interface {
	Watch() (<-chan []discovery.Device, func())
}

// Bridge is the connection manager a Coordinator drives. *bridge.Client
// satisfies it.
type Bridge interface {
	Connect(ip string)
	Disconnect()
	State() bridge.State
	OnStateChange(fn func(bridge.State)) func()
	Publish(topic, typ string, payload any) error
	Subscribe(topic, typ string, handler bridge.Handler) (func(), error)
	CallService(ctx context.Context, service, typ string, args any) (json.RawMessage, error)
}

// Coordinator binds a selected device name to a Bridge
type Coordinator struct {
	bridge Bridge

	mu       sync.Mutex
	selector string
	devices  []discovery.Device
	device   *discovery.Device

	obsMu     sync.Mutex
	observers map[int]func(Status)
	nextObsID int
	last      Status

	wake        chan struct{}
	quit        chan struct{}
	done        chan struct{}
	closeOnce   sync.Once
	stopWatch   func()
	stopObserve func()
}

// New creates a Coordinator and starts watching source. Call Close when
// done.
func New(source DeviceSource, b Bridge) *Coordinator {
	c := &Coordinator{
		bridge:    b,
		observers: make(map[int]func(Status)),
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	devices, stopWatch := source.Watch()
	c.stopWatch = stopWatch
	c.stopObserve = b.OnStateChange(func(bridge.State) { c.poke() })

	go c.run(devices)
	return c
}

// Select binds the session to the device named name, dropping the current
// device and connection if the name changes. An empty name unbinds.
func (c *Coordinator) Select(name string) {
	c.mu.Lock()
	if name == c.selector {
		c.mu.Unlock()
		return
	}

	if c.device != nil {
		c.bridge.Disconnect()
		logging.Info("Device released", zap.String("name", c.device.Name))
	}
	c.selector = name
	c.device = nil
	c.reconcileLocked()
	c.mu.Unlock()

	c.poke()
}

// Selected returns the current selector
func (c *Coordinator) Selected() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selector
}

// Device returns the bound device, if any
func (c *Coordinator) Device() (discovery.Device, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return discovery.Device{}, false
	}
	return *c.device, true
}

// Status returns the current session status
func (c *Coordinator) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.selector == "":
		return StatusIdle
	case c.device == nil:
		return StatusSearching
	default:
		return statusFromBridge(c.bridge.State())
	}
}

// OnStatusChange registers fn to be called when the status changes. Calls
// come from the Coordinator's goroutine in order; quick successive changes
// may be reported as the latest one only. The returned function removes
// the observer.
func (c *Coordinator) OnStatusChange(fn func(Status)) func() {
	c.obsMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	c.obsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.obsMu.Lock()
			delete(c.observers, id)
			c.obsMu.Unlock()
		})
	}
}

// Retry reconnects to the bound device
func (c *Coordinator) Retry() error {
	c.mu.Lock()
	if c.device == nil {
		c.mu.Unlock()
		return ErrNoDevice
	}
	logging.Info("Retrying connection", zap.String("name", c.device.Name), zap.String("ip", c.device.IP))
	c.bridge.Connect(c.device.IP)
	c.mu.Unlock()

	c.poke()
	return nil
}

// Qualify prefixes a topic or service name with the bound device's
// namespace: "/cam" becomes "/duck1/cam"
func (c *Coordinator) Qualify(name string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return "", ErrNoDevice
	}
	return qualify(c.device.Name, name), nil
}

func qualify(namespace, name string) string {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return "/" + namespace + name
}

// Publish publishes on the device-qualified topic
func (c *Coordinator) Publish(topic, typ string, payload any) error {
	full, err := c.Qualify(topic)
	if err != nil {
		return err
	}
	return c.bridge.Publish(full, typ, payload)
}

// Subscribe subscribes to the device-qualified topic. Without a bound
// device it returns a no-op function and ErrNoDevice.
func (c *Coordinator) Subscribe(topic, typ string, handler bridge.Handler) (func(), error) {
	full, err := c.Qualify(topic)
	if err != nil {
		return func() {}, err
	}
	return c.bridge.Subscribe(full, typ, handler)
}

// CallService calls the device-qualified service
func (c *Coordinator) CallService(ctx context.Context, service, typ string, args any) (json.RawMessage, error) {
	full, err := c.Qualify(service)
	if err != nil {
		return nil, err
	}
	return c.bridge.CallService(ctx, full, typ, args)
}

// Close stops watching, disconnects the bridge and waits for the
// Coordinator's goroutine to exit. It is idempotent.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		close(c.quit)
		<-c.done

		c.stopObserve()
		c.stopWatch()

		c.mu.Lock()
		c.device = nil
		c.selector = ""
		c.bridge.Disconnect()
		c.mu.Unlock()
	})
}

func (c *Coordinator) poke() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Coordinator) run(devices <-chan []discovery.Device) {
	defer close(c.done)

	for {
		select {
		case <-c.quit:
			return

		case snap, ok := <-devices:
			if !ok {
				devices = nil
				continue
			}
			c.mu.Lock()
			c.devices = snap
			c.reconcileLocked()
			c.mu.Unlock()
			c.notify()

		case <-c.wake:
			c.notify()
		}
	}
}

// reconcileLocked binds the selected device once it is listed and
// reconnects when its address changes. A device that drops out of the list
// stays bound.
func (c *Coordinator) reconcileLocked() {
	if c.selector == "" {
		return
	}

	found, ok := findLatest(c.devices, c.selector)
	if !ok {
		return
	}

	if c.device != nil && c.device.IP == found.IP {
		c.device = &found
		return
	}

	c.device = &found
	logging.Info("Device selected", zap.String("name", found.Name), zap.String("ip", found.IP))
	c.bridge.Connect(found.IP)
}

// findLatest returns the most recently discovered device named name
func findLatest(devices []discovery.Device, name string) (discovery.Device, bool) {
	for i := len(devices) - 1; i >= 0; i-- {
		if devices[i].Name == name {
			return devices[i], true
		}
	}
	return discovery.Device{}, false
}

// notify reports the current status to observers if it changed. Only the
// run goroutine calls it.
func (c *Coordinator) notify() {
	s := c.Status()
	if s == c.last {
		return
	}
	c.last = s

	c.obsMu.Lock()
	observers := make([]func(Status), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.obsMu.Unlock()

	logging.Debug("Session status", zap.String("status", s.String()))
	for _, fn := range observers {
		fn(s)
	}
}
