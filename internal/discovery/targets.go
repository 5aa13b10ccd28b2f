package discovery

import (
	"errors"
	"fmt"
	"net"
)

// ErrNoLocalIP is returned when no usable IPv4 address is configured
var ErrNoLocalIP = errors.New("no local IPv4 address available")

// IPProvider reports the IPv4 address of this machine on the robot network
type IPProvider interface {
	LocalIPv4() (string, error)
}

// IPProviderFunc adapts a function to IPProvider
type IPProviderFunc func() (string, error)

// LocalIPv4 implements IPProvider
func (f IPProviderFunc) LocalIPv4() (string, error) {
	return f()
}

// StaticIP is an IPProvider that always returns the same address
type StaticIP string

// LocalIPv4 implements IPProvider
func (s StaticIP) LocalIPv4() (string, error) {
	if s == "" {
		return "", ErrNoLocalIP
	}
	return string(s), nil
}

// InterfaceIP returns the first IPv4 address of an up, non-loopback interface
type InterfaceIP struct{}

// LocalIPv4 implements IPProvider
func (InterfaceIP) LocalIPv4() (string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "", fmt.Errorf("failed to list interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if !ok {
				continue
			}
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4.String(), nil
			}
		}
	}

	return "", ErrNoLocalIP
}

// TargetAddresses returns the hosts of localIP's /24 in ascending order,
// excluding the network (.0) and broadcast (.255) addresses. The local
// address itself is kept; a simulator may be running on this machine.
// It returns nil when localIP is not a usable IPv4 address.
func TargetAddresses(localIP string) []string {
	ip := net.ParseIP(localIP).To4()
	if ip == nil || ip.IsUnspecified() {
		return nil
	}

	targets := make([]string, 0, 254)
	for host := 1; host < 255; host++ {
		targets = append(targets, fmt.Sprintf("%d.%d.%d.%d", ip[0], ip[1], ip[2], host))
	}
	return targets
}
