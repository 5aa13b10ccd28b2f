package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/duckielink/duckie/internal/logging"
)

const (
	// DefaultListenPort is the local port pongs are sent back to
	DefaultListenPort = 44444

	// DefaultRemotePort is the port Duckiebots listen for pings on
	DefaultRemotePort = 11411

	// DefaultSettleTimeout is how long to wait for straggler replies
	// after the last ping
	DefaultSettleTimeout = 2000 * time.Millisecond

	// DefaultPaceEvery is the number of pings sent between pauses
	DefaultPaceEvery = 10

	// DefaultPaceDelay is the pause taken every DefaultPaceEvery pings
	DefaultPaceDelay = 2 * time.Millisecond

	maxDatagramSize = 64 * 1024
)

// ListenFunc opens the scanner's UDP socket on port
type ListenFunc func(port int) (net.PacketConn, error)

func listenUDP4(port int) (net.PacketConn, error) {
	return net.ListenPacket("udp4", fmt.Sprintf(":%d", port))
}

// UDPBackend sweeps the local /24 with ping datagrams
type UDPBackend struct {
	ListenPort    int
	RemotePort    int
	SettleTimeout time.Duration
	PaceEvery     int
	PaceDelay     time.Duration

	IPs    IPProvider
	Codec  Codec
	Listen ListenFunc
}

// NewUDPBackend creates a backend with the protocol defaults
func NewUDPBackend() *UDPBackend {
	return &UDPBackend{
		ListenPort:    DefaultListenPort,
		RemotePort:    DefaultRemotePort,
		SettleTimeout: DefaultSettleTimeout,
		PaceEvery:     DefaultPaceEvery,
		PaceDelay:     DefaultPaceDelay,
		IPs:           InterfaceIP{},
		Codec:         JSONCodec{},
		Listen:        listenUDP4,
	}
}

// Scan implements Backend.
//
// A missing local IP or a bind failure ends the scan with zero discoveries;
// only the bind failure is reported as an error. Individual send failures
// are logged and skipped.
func (b *UDPBackend) Scan(ctx context.Context, onFound func(Device)) error {
	localIP, err := b.IPs.LocalIPv4()
	if err != nil {
		logging.Warn("Local IP unavailable, skipping UDP scan", zap.Error(err))
		return nil
	}

	targets := TargetAddresses(localIP)
	if len(targets) == 0 {
		logging.Warn("No scan targets for local IP", zap.String("local_ip", localIP))
		return nil
	}

	ping, err := b.Codec.EncodePing(Ping{Version: ProtocolVersion, Port: b.ListenPort})
	if err != nil {
		return fmt.Errorf("failed to encode ping: %w", err)
	}

	conn, err := b.Listen(b.ListenPort)
	if err != nil {
		return fmt.Errorf("failed to bind UDP port %d: %w", b.ListenPort, err)
	}

	var closeOnce sync.Once
	closeConn := func() {
		closeOnce.Do(func() {
			_ = conn.Close()
			logging.Debug("Scanner socket closed", zap.Int("port", b.ListenPort))
		})
	}
	defer closeConn()
	stopClose := context.AfterFunc(ctx, closeConn)
	defer stopClose()

	logging.Info("Scanner listening",
		zap.Int("port", b.ListenPort),
		zap.String("local_ip", localIP),
		zap.Int("targets", len(targets)),
	)

	// The reader runs before the first ping goes out so early replies are
	// not lost.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		b.readReplies(ctx, conn, onFound)
	}()

	b.sendPings(ctx, conn, targets, ping)

	if ctx.Err() == nil {
		logging.Debug("Pings sent, waiting for replies", zap.Duration("settle", b.SettleTimeout))
		timer := time.NewTimer(b.SettleTimeout)
		select {
		case <-ctx.Done():
		case <-timer.C:
		}
		timer.Stop()
	}

	closeConn()
	<-readerDone
	return nil
}

func (b *UDPBackend) sendPings(ctx context.Context, conn net.PacketConn, targets []string, ping []byte) {
	sent := 0
	for _, target := range targets {
		if ctx.Err() != nil {
			return
		}

		addr := &net.UDPAddr{IP: net.ParseIP(target), Port: b.RemotePort}
		if _, err := conn.WriteTo(ping, addr); err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Debug("Ping send failed", zap.String("target", target), zap.Error(err))
		} else {
			logging.LogDatagram("sent", addr.String(), ping)
		}
		sent++

		if b.PaceEvery > 0 && sent%b.PaceEvery == 0 && b.PaceDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(b.PaceDelay):
			}
		}
	}
}

func (b *UDPBackend) readReplies(ctx context.Context, conn net.PacketConn, onFound func(Device)) {
	buf := make([]byte, maxDatagramSize)
	for {
		n, addr, err := conn.ReadFrom(buf)
		if err != nil {
			if !errors.Is(err, net.ErrClosed) && ctx.Err() == nil {
				logging.Warn("Scanner read failed", zap.Error(err))
			}
			return
		}
		if ctx.Err() != nil {
			return
		}

		data := buf[:n]
		logging.LogDatagram("received", addr.String(), data)

		device, ok := b.parseReply(data, addr)
		if !ok {
			continue
		}
		onFound(device)
	}
}

// parseReply decodes one reply datagram. Garbage from unrelated traffic is
// dropped silently.
func (b *UDPBackend) parseReply(data []byte, addr net.Addr) (Device, bool) {
	ip := sourceIP(addr)
	if ip == "" {
		return Device{}, false
	}

	pong, err := b.Codec.DecodePong(data)
	if err != nil {
		logging.Debug("Discarding invalid reply", zap.String("addr", addr.String()), zap.Error(err))
		return Device{}, false
	}

	device := deviceFromPong(pong, ip)
	device.DiscoveredAt = time.Now()
	return device, true
}

func sourceIP(addr net.Addr) string {
	switch a := addr.(type) {
	case *net.UDPAddr:
		if a == nil || len(a.IP) == 0 {
			return ""
		}
		if ip4 := a.IP.To4(); ip4 != nil {
			return ip4.String()
		}
		return a.IP.String()
	case nil:
		return ""
	default:
		host, _, err := net.SplitHostPort(addr.String())
		if err != nil {
			return ""
		}
		return host
	}
}
