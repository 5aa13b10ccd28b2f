package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/duckielink/duckie/internal/discovery"
	"github.com/duckielink/duckie/internal/session"
)

func TestRenderDeviceTable(t *testing.T) {
	out := RenderDeviceTable([]discovery.Device{
		{Name: "duck1", IP: "10.0.0.5", Type: "Duckiebot", Configuration: "DB21M"},
		{Name: "watchtower01", IP: "10.0.0.17", Type: "Watchtower"},
	})

	for _, want := range []string{"NAME", "duck1", "10.0.0.5", "DB21M", "watchtower01", "Watchtower"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 2 {
		t.Errorf("table has %d line breaks, want 2", lines)
	}
}

func TestRenderDeviceTable_Empty(t *testing.T) {
	if out := RenderDeviceTable(nil); !strings.Contains(out, "No devices found") {
		t.Errorf("RenderDeviceTable(nil) = %q", out)
	}
}

func TestRenderKnownDevices(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	out := RenderKnownDevices([]KnownDevice{
		{Name: "duck1", Nickname: "lab bot", LastIP: "10.0.0.5", LastSeen: now.Add(-2 * time.Hour)},
		{Name: "duck2"},
	}, now)

	for _, want := range []string{"lab bot", "2h ago", "never"} {
		if !strings.Contains(out, want) {
			t.Errorf("known devices missing %q:\n%s", want, out)
		}
	}
}

func TestHumanizeAge(t *testing.T) {
	tests := []struct {
		age  time.Duration
		want string
	}{
		{10 * time.Second, "just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{50 * time.Hour, "2d ago"},
	}

	for _, tt := range tests {
		if got := humanizeAge(tt.age); got != tt.want {
			t.Errorf("humanizeAge(%v) = %q, want %q", tt.age, got, tt.want)
		}
	}
}

func TestResult_Render(t *testing.T) {
	out := NewFailureResult("Connection failed", errors.New("dial tcp: refused"), "Check the robot is on").
		SetWidth(80).
		Render()

	for _, want := range []string{"FAILED", "Connection failed", "dial tcp: refused", "Troubleshooting", "Check the robot is on"} {
		if !strings.Contains(out, want) {
			t.Errorf("failure box missing %q", want)
		}
	}

	out = NewSuccessResult("Connected", Param{Key: "IP", Value: "10.0.0.5"}).SetWidth(80).Render()
	if !strings.Contains(out, "SUCCESS") || !strings.Contains(out, "10.0.0.5") {
		t.Errorf("success box = %s", out)
	}
}

func TestHeader_ParamOrder(t *testing.T) {
	out := NewHeader("Device Scan", "duckie scan",
		Param{Key: "Backend", Value: "udp"},
		Param{Key: "Timeout", Value: "2s"},
	).SetWidth(80).Render()

	if !strings.Contains(out, "DEVICE SCAN") {
		t.Errorf("header title not upper-cased:\n%s", out)
	}
	if strings.Index(out, "Backend") > strings.Index(out, "Timeout") {
		t.Error("header params out of order")
	}
}

func TestRenderStatus(t *testing.T) {
	out := RenderStatus("duck1", session.StatusConnected, "ws://10.0.0.5:9090")
	for _, want := range []string{SuccessMarker, "duck1", "connected", "ws://10.0.0.5:9090"} {
		if !strings.Contains(out, want) {
			t.Errorf("status line missing %q: %s", want, out)
		}
	}
	if out := RenderStatus("duck1", session.StatusFailed, ""); !strings.Contains(out, FailureMarker) {
		t.Errorf("failed status line = %s", out)
	}
}

func TestScanView_Update(t *testing.T) {
	backend := &discovery.StaticBackend{Devices: []discovery.Device{{IP: "10.0.0.5", Name: "duck1"}}}
	scan := discovery.StartScan(context.Background(), backend, func(discovery.Device) {})
	defer scan.Stop()

	updates := make(chan []discovery.Device, 1)
	var model tea.Model = NewScanView(scan, updates)

	model, cmd := model.Update(devicesMsg{{IP: "10.0.0.5", Name: "duck1"}})
	if cmd == nil {
		t.Error("device update did not wait for more devices")
	}
	view := model.(ScanView)
	if len(view.Devices) != 1 || !strings.Contains(view.View(), "duck1") {
		t.Errorf("view after update = %s", view.View())
	}
	if !strings.Contains(view.View(), "Scanning") {
		t.Error("running view does not say it is scanning")
	}

	model, cmd = model.Update(scanDoneMsg{})
	view = model.(ScanView)
	if !view.Done || cmd == nil {
		t.Errorf("scan completion not handled: done=%v", view.Done)
	}
	if !strings.Contains(view.View(), "1 device(s)") {
		t.Errorf("final view = %s", view.View())
	}
}

func TestScanView_QuitStopsScan(t *testing.T) {
	backend := &discovery.StaticBackend{
		Devices: []discovery.Device{{IP: "10.0.0.5", Name: "duck1"}},
		Delay:   time.Minute,
	}
	scan := discovery.StartScan(context.Background(), backend, func(discovery.Device) {})

	var model tea.Model = NewScanView(scan, make(chan []discovery.Device))
	model, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})

	if !model.(ScanView).Cancelled {
		t.Error("q did not cancel the view")
	}
	select {
	case <-scan.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("scan still running after q")
	}
}
