package discovery

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/duckielink/duckie/internal/logging"
)

// ScanState tells "still searching" apart from "searched and done"
type ScanState int

const (
	ScanIdle      ScanState = iota // No scan started yet
	ScanSearching                  // A scan is running
	ScanDone                       // The last scan finished or was stopped
)

// String returns the state name
func (s ScanState) String() string {
	switch s {
	case ScanIdle:
		return "idle"
	case ScanSearching:
		return "searching"
	case ScanDone:
		return "done"
	default:
		return "unknown"
	}
}

// Service owns a backend and the device list it fills. It is the explicitly
// constructed replacement for a shared, import-time discovery singleton.
type Service struct {
	backend Backend
	list    *List

	// mu serializes Refresh and Close
	mu   sync.Mutex
	scan *Scan

	stateMu sync.Mutex
	gen     int
	state   ScanState
	err     error
}

// NewService creates a discovery service over backend
func NewService(backend Backend) *Service {
	return &Service{
		backend: backend,
		list:    NewList(),
	}
}

// List returns the device collection filled by scans
func (s *Service) List() *List {
	return s.list
}

// Refresh stops any running scan, clears the list and starts a new scan.
// State and Err reflect the scan's outcome by the time its Done channel is
// closed.
func (s *Service) Refresh(ctx context.Context) *Scan {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scan != nil {
		s.scan.Stop()
		<-s.scan.Done()
	}
	s.list.Clear()

	s.stateMu.Lock()
	s.gen++
	gen := s.gen
	s.state = ScanSearching
	s.err = nil
	s.stateMu.Unlock()

	s.scan = startScan(ctx, s.backend, func(d Device) {
		if s.list.Upsert(d) {
			logging.Info("Device discovered",
				zap.String("name", d.Name),
				zap.String("ip", d.IP),
				zap.String("type", d.Type),
			)
		}
	}, func(err error) {
		if err != nil {
			logging.Warn("Scan ended with error", zap.Error(err))
		}

		s.stateMu.Lock()
		defer s.stateMu.Unlock()
		if gen != s.gen {
			return
		}
		s.state = ScanDone
		s.err = err
	})

	return s.scan
}

// State returns the current scan state
func (s *Service) State() ScanState {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Scanning reports whether a scan is in progress
func (s *Service) Scanning() bool {
	return s.State() == ScanSearching
}

// Err returns the error of the last finished scan
func (s *Service) Err() error {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.err
}

// Close stops the running scan, if any
func (s *Service) Close() {
	s.mu.Lock()
	scan := s.scan
	s.mu.Unlock()

	if scan != nil {
		scan.Stop()
		<-scan.Done()
	}
}
