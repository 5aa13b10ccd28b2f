package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/duckielink/duckie/internal/discovery"
)

var deviceColumns = []string{"NAME", "IP", "TYPE", "CONFIG", "HARDWARE"}

// RenderDeviceTable renders discovered devices as an aligned table
func RenderDeviceTable(devices []discovery.Device) string {
	if len(devices) == 0 {
		return HintStyle.Render("  No devices found")
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, []string{d.Name, d.IP, d.Type, orDash(d.Configuration), orDash(d.Hardware)})
	}
	return renderTable(deviceColumns, rows)
}

// KnownDevice is one entry of the known-device registry as shown by the CLI
type KnownDevice struct {
	Name     string
	Nickname string
	LastIP   string
	LastSeen time.Time
	Config   string
}

// RenderKnownDevices renders the known-device registry
func RenderKnownDevices(devices []KnownDevice, now time.Time) string {
	if len(devices) == 0 {
		return HintStyle.Render("  No known devices, run 'duckie scan' first")
	}

	rows := make([][]string, 0, len(devices))
	for _, d := range devices {
		seen := "never"
		if !d.LastSeen.IsZero() {
			seen = humanizeAge(now.Sub(d.LastSeen))
		}
		rows = append(rows, []string{d.Name, orDash(d.Nickname), orDash(d.LastIP), orDash(d.Config), seen})
	}
	return renderTable([]string{"NAME", "NICKNAME", "LAST IP", "CONFIG", "LAST SEEN"}, rows)
}

func renderTable(columns []string, rows [][]string) string {
	widths := make([]int, len(columns))
	for i, c := range columns {
		widths[i] = lipgloss.Width(c)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	b.WriteString(renderRow(columns, widths, TableHeaderStyle))
	for _, row := range rows {
		b.WriteString("\n")
		b.WriteString(renderRow(row, widths, TableCellStyle))
	}
	return b.String()
}

func renderRow(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		parts[i] = style.Width(widths[i]).Render(cell)
	}
	return "  " + strings.Join(parts, "  ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func humanizeAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
