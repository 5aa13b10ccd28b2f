package main

import (
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/duckielink/duckie/internal/config"
	"github.com/duckielink/duckie/internal/discovery"
	"github.com/duckielink/duckie/internal/logging"
	"github.com/duckielink/duckie/internal/msgs"
)

func TestParseVelocity(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"0.3", 0.3, false},
		{"-1", -1, false},
		{"1.5", 0, true},
		{"fast", 0, true},
	}

	for _, tt := range tests {
		got, err := parseVelocity(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVelocity(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseVelocity(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFormatMessage(t *testing.T) {
	types := msgs.DefaultRegistry()

	tests := []struct {
		name string
		typ  string
		raw  string
		want string
	}{
		{"string", msgs.TypeString, `{"data":"hello"}`, "hello"},
		{"image", msgs.TypeCompressedImage, `{"header":{"stamp":{"secs":5,"nsecs":7}},"format":"jpeg","data":"AQID"}`, "[5.000000007] jpeg image, 3 bytes"},
		{"unknown", "custom_msgs/Thing", `{ "a" : 1 }`, `{"a":1}`},
		{"undecodable", msgs.TypeString, `[1]`, `[1]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatMessage(types, tt.typ, json.RawMessage(tt.raw)); got != tt.want {
				t.Errorf("formatMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNewBackend(t *testing.T) {
	prefs := config.DefaultPreferences()
	prefs.ListenPort = 45000
	prefs.SettleTimeoutMs = 500

	b, err := newBackend(prefs, config.BackendUDP, 0)
	if err != nil {
		t.Fatalf("newBackend(udp) error = %v", err)
	}
	udp, ok := b.(*discovery.UDPBackend)
	if !ok {
		t.Fatalf("newBackend(udp) = %T", b)
	}
	if udp.ListenPort != 45000 || udp.SettleTimeout != 500*time.Millisecond {
		t.Errorf("udp backend = port %d settle %v", udp.ListenPort, udp.SettleTimeout)
	}

	b, err = newBackend(prefs, config.BackendMDNS, 3*time.Second)
	if err != nil {
		t.Fatalf("newBackend(mdns) error = %v", err)
	}
	if m, ok := b.(*discovery.MDNSBackend); !ok || m.Timeout != 3*time.Second {
		t.Errorf("newBackend(mdns) = %#v", b)
	}

	if _, err := newBackend(prefs, "carrier-pigeon", 0); err == nil {
		t.Error("newBackend(unknown) succeeded")
	}
}

func TestSessionBackend(t *testing.T) {
	registry := config.NewRegistry()
	registry.UpdateDeviceLastSeen("duck1", "10.0.0.5")
	registry.SetDeviceInfo("duck1", "Duckiebot", "DB19", "")

	t.Cleanup(func() {
		deviceIP = ""
		lastKnown = false
	})

	deviceIP = "192.168.1.42"
	b, err := sessionBackend(registry, "duck1")
	if err != nil {
		t.Fatalf("sessionBackend() error = %v", err)
	}
	static, ok := b.(*discovery.StaticBackend)
	if !ok || len(static.Devices) != 1 {
		t.Fatalf("sessionBackend() = %#v", b)
	}
	if d := static.Devices[0]; d.IP != "192.168.1.42" || d.Name != "duck1" || d.Configuration != "DB19" {
		t.Errorf("static device = %+v", d)
	}

	deviceIP = ""
	lastKnown = true
	b, err = sessionBackend(registry, "duck1")
	if err != nil {
		t.Fatalf("sessionBackend(last known) error = %v", err)
	}
	if ip := b.(*discovery.StaticBackend).Devices[0].IP; ip != "10.0.0.5" {
		t.Errorf("last known IP = %q, want 10.0.0.5", ip)
	}

	if _, err := sessionBackend(registry, "duck9"); err == nil {
		t.Error("sessionBackend() without a last known address succeeded")
	}

	lastKnown = false
	if _, ok := mustBackend(t, registry, "duck1").(*discovery.UDPBackend); !ok {
		t.Error("default backend is not UDP")
	}
}

func mustBackend(t *testing.T, registry *config.Registry, name string) discovery.Backend {
	t.Helper()
	b, err := sessionBackend(registry, name)
	if err != nil {
		t.Fatalf("sessionBackend(%q) error = %v", name, err)
	}
	return b
}

func TestKnownType(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	logging.SetLogger(zap.New(core))
	defer logging.SetLogger(nil)

	types := msgs.DefaultRegistry()
	if !knownType(types, msgs.TypeWheelsCmdStamped) {
		t.Error("knownType(WheelsCmdStamped) = false")
	}
	if !knownType(types, msgs.TypeSetFSMState) {
		t.Error("knownType(SetFSMState) = false")
	}
	if logs.Len() != 0 {
		t.Errorf("got %d warnings for known types, want 0", logs.Len())
	}

	if knownType(types, "custom_msgs/Thing") {
		t.Error("knownType(custom_msgs/Thing) = true")
	}
	entries := logs.All()
	if len(entries) != 1 || entries[0].ContextMap()["type"] != "custom_msgs/Thing" {
		t.Errorf("warnings = %v, want one for custom_msgs/Thing", entries)
	}
}

func TestCommandPath(t *testing.T) {
	tests := []struct {
		args []string
		want string
	}{
		{[]string{"scan", "--json"}, "duckie scan"},
		{[]string{"fsm", "duck1", "LANE_FOLLOWING"}, "duckie fsm"},
		{nil, "duckie"},
	}

	for _, tt := range tests {
		if got := commandPath(tt.args); got != tt.want {
			t.Errorf("commandPath(%v) = %q, want %q", tt.args, got, tt.want)
		}
	}
}
