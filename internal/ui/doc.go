// Package ui provides terminal UI components for the duckie CLI.
//
// This package uses Bubble Tea and Lipgloss to render terminal output.
// Most components follow a "print and move on" pattern; ScanView is the one
// live view, showing devices as a scan discovers them.
//
// # Components
//
//   - Header: Command banner showing operation name and parameters
//   - Result: Success/failure/warning boxes with details and tips
//   - RenderDeviceTable / RenderKnownDevices: aligned device tables
//   - RenderStatus: one-line session status with a colored marker
//   - ScanView: spinner plus live device table, exits when the scan ends
//
// Example:
//
//	p := ui.NewPrinter(os.Stdout)
//	p.PrintHeader("Device Scan", "duckie scan", ui.Param{Key: "Backend", Value: "udp"})
//
//	view := ui.NewScanView(scan, updates)
//	final, err := tea.NewProgram(view).Run()
//
// # Logging Integration
//
// This package expects logging to be controlled via the DUCKIE_LOG_LEVEL
// environment variable. When unset or empty, zap logging is silent, allowing
// the curated UI output to be displayed cleanly.
package ui
