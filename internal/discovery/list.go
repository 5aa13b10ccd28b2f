package discovery

import "sync"

// List is the ordered, IP-deduplicated collection of devices found by a
// scan session. Insertion order is discovery order; a later reply from a
// known IP replaces that entry in place.
type List struct {
	mu       sync.RWMutex
	devices  []Device
	byIP     map[string]int
	watchers map[int]chan []Device
	nextID   int
}

// NewList creates an empty list
func NewList() *List {
	return &List{
		byIP:     make(map[string]int),
		watchers: make(map[int]chan []Device),
	}
}

// Upsert adds a device or updates the entry with the same IP.
// It reports whether a new entry was created.
func (l *List) Upsert(d Device) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	added := false
	if idx, ok := l.byIP[d.IP]; ok {
		l.devices[idx] = d
	} else {
		l.byIP[d.IP] = len(l.devices)
		l.devices = append(l.devices, d)
		added = true
	}
	l.notifyLocked()
	return added
}

// Clear removes every device
func (l *List) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.devices = nil
	l.byIP = make(map[string]int)
	l.notifyLocked()
}

// Len returns the number of devices
func (l *List) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.devices)
}

// Snapshot returns a copy of the devices in discovery order
func (l *List) Snapshot() []Device {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.snapshotLocked()
}

// Lookup returns the first device with the given name
func (l *List) Lookup(name string) (Device, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, d := range l.devices {
		if d.Name == name {
			return d, true
		}
	}
	return Device{}, false
}

// Watch returns a channel that receives the current snapshot immediately
// and again after every change. Intermediate snapshots are dropped when the
// receiver is slow; the latest one is always delivered. Call cancel to stop
// watching; the channel is closed.
func (l *List) Watch() (<-chan []Device, func()) {
	l.mu.Lock()
	defer l.mu.Unlock()

	id := l.nextID
	l.nextID++
	ch := make(chan []Device, 1)
	ch <- l.snapshotLocked()
	l.watchers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.watchers, id)
			close(ch)
			l.mu.Unlock()
		})
	}
	return ch, cancel
}

func (l *List) snapshotLocked() []Device {
	out := make([]Device, len(l.devices))
	copy(out, l.devices)
	return out
}

// notifyLocked replaces any undelivered snapshot with the current one.
// Only notifyLocked sends on watcher channels, and it holds the lock, so the
// send after draining never blocks.
func (l *List) notifyLocked() {
	if len(l.watchers) == 0 {
		return
	}
	snap := l.snapshotLocked()
	for _, ch := range l.watchers {
		select {
		case <-ch:
		default:
		}
		ch <- snap
	}
}
