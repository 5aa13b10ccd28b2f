package discovery

import (
	"context"
	"sync"
	"time"
)

// Backend finds devices. Scan blocks until the scan completes or ctx is
// cancelled and calls onFound once per accepted reply, always from a single
// goroutine. Deduplication is left to the caller (see List).
type Backend interface {
	Scan(ctx context.Context, onFound func(Device)) error
}

// Scan is a handle on one running scan session
type Scan struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu  sync.Mutex
	err error
}

// StartScan runs backend in the background and returns immediately
func StartScan(ctx context.Context, backend Backend, onFound func(Device)) *Scan {
	return startScan(ctx, backend, onFound, nil)
}

// startScan is StartScan with a hook that sees the backend error before
// Done is closed
func startScan(ctx context.Context, backend Backend, onFound func(Device), onFinish func(error)) *Scan {
	ctx, cancel := context.WithCancel(ctx)
	s := &Scan{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		defer cancel()

		err := backend.Scan(ctx, onFound)
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		if onFinish != nil {
			onFinish(err)
		}
	}()

	return s
}

// Stop ends the scan immediately. It is safe to call more than once and
// after the scan has completed.
func (s *Scan) Stop() {
	s.cancel()
}

// Done is closed once the backend has returned
func (s *Scan) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the scan is over and returns the backend error, if any
func (s *Scan) Wait() error {
	<-s.done
	return s.Err()
}

// Err returns the backend error once the scan is done
func (s *Scan) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// StaticBackend reports a fixed set of devices. It replaces live discovery
// in tests and demos.
type StaticBackend struct {
	Devices []Device

	// Delay is waited between reports
	Delay time.Duration
}

// Scan implements Backend
func (b *StaticBackend) Scan(ctx context.Context, onFound func(Device)) error {
	for _, d := range b.Devices {
		if b.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(b.Delay):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
		if d.DiscoveredAt.IsZero() {
			d.DiscoveredAt = time.Now()
		}
		onFound(d)
	}
	return nil
}
