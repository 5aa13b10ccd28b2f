package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/duckielink/duckie/internal/session"
)

// RenderStatus renders one session status line, e.g.
// "● duck1  connecting  ws://10.0.0.5:9090"
func RenderStatus(name string, status session.Status, detail string) string {
	marker, color := statusMarker(status)

	line := lipgloss.NewStyle().Foreground(color).Render(marker) + " " +
		lipgloss.NewStyle().Foreground(TextColor).Bold(true).Render(name) + "  " +
		lipgloss.NewStyle().Foreground(color).Render(status.String())
	if detail != "" {
		line += "  " + HintStyle.Render(detail)
	}
	return "  " + line
}

func statusMarker(status session.Status) (string, lipgloss.Color) {
	switch status {
	case session.StatusConnected:
		return SuccessMarker, SuccessColor
	case session.StatusFailed:
		return FailureMarker, ErrorColor
	case session.StatusConnecting, session.StatusSearching:
		return PendingMarker, WarningColor
	default:
		return IdleMarker, MutedColor
	}
}
