package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/duckielink/duckie/internal/discovery"
)

type devicesMsg []discovery.Device

type scanDoneMsg struct {
	err error
}

// ScanView is a Bubble Tea model that shows devices as a scan finds them.
// It exits when the scan completes or the user quits.
type ScanView struct {
	scan    *discovery.Scan
	updates <-chan []discovery.Device

	Devices   []discovery.Device
	Done      bool
	Cancelled bool
	Err       error

	spinner spinner.Model
	started time.Time
	now     func() time.Time
}

// NewScanView creates a view over a running scan and a device feed such as
// discovery.List.Watch
func NewScanView(scan *discovery.Scan, updates <-chan []discovery.Device) ScanView {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return ScanView{
		scan:    scan,
		updates: updates,
		spinner: s,
		started: time.Now(),
		now:     time.Now,
	}
}

// Init implements tea.Model
func (m ScanView) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForDevices, m.waitForScan)
}

func (m ScanView) waitForDevices() tea.Msg {
	devices, ok := <-m.updates
	if !ok {
		return nil
	}
	return devicesMsg(devices)
}

func (m ScanView) waitForScan() tea.Msg {
	return scanDoneMsg{err: m.scan.Wait()}
}

// Update implements tea.Model
func (m ScanView) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.Cancelled = true
			m.scan.Stop()
			return m, nil
		}

	case devicesMsg:
		m.Devices = msg
		return m, m.waitForDevices

	case scanDoneMsg:
		m.Done = true
		m.Err = msg.err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m ScanView) View() string {
	var b strings.Builder

	if m.Done {
		b.WriteString(fmt.Sprintf("  %s Scan finished, %d device(s)\n\n", SuccessMarker, len(m.Devices)))
	} else {
		elapsed := m.now().Sub(m.started).Truncate(100 * time.Millisecond)
		b.WriteString(fmt.Sprintf("  %s Scanning for Duckiebots... %s\n\n", m.spinner.View(), elapsed))
	}

	b.WriteString(RenderDeviceTable(m.Devices))
	b.WriteString("\n")

	if !m.Done {
		b.WriteString("\n" + HintStyle.Render("  q to stop") + "\n")
	}
	return b.String()
}
