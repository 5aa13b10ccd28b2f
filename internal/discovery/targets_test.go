package discovery

import (
	"fmt"
	"testing"
)

func TestTargetAddresses(t *testing.T) {
	targets := TargetAddresses("192.168.1.35")

	if len(targets) != 254 {
		t.Fatalf("len(targets) = %d, want 254", len(targets))
	}
	for i, got := range targets {
		want := fmt.Sprintf("192.168.1.%d", i+1)
		if got != want {
			t.Fatalf("targets[%d] = %s, want %s", i, got, want)
		}
	}
}

func TestTargetAddresses_Unusable(t *testing.T) {
	tests := []string{"", "0.0.0.0", "not-an-ip", "fe80::1", "192.168.1"}

	for _, ip := range tests {
		t.Run(ip, func(t *testing.T) {
			if got := TargetAddresses(ip); len(got) != 0 {
				t.Errorf("TargetAddresses(%q) returned %d targets, want 0", ip, len(got))
			}
		})
	}
}

func TestStaticIP(t *testing.T) {
	if _, err := StaticIP("").LocalIPv4(); err != ErrNoLocalIP {
		t.Errorf("StaticIP(\"\").LocalIPv4() error = %v, want ErrNoLocalIP", err)
	}

	ip, err := StaticIP("10.0.0.2").LocalIPv4()
	if err != nil || ip != "10.0.0.2" {
		t.Errorf("StaticIP.LocalIPv4() = %q, %v", ip, err)
	}
}
