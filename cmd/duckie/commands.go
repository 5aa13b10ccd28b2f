package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/duckielink/duckie/internal/config"
	"github.com/duckielink/duckie/internal/discovery"
	"github.com/duckielink/duckie/internal/logging"
	"github.com/duckielink/duckie/internal/ui"
)

// Discovery command flags
var (
	scanTimeout time.Duration
	scanBackend string
	jsonOutput  bool
)

func init() {
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(aliasCmd)
}

// scanCmd discovers Duckiebots on the local network
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the local network for Duckiebots",
	Long: `Scan for Duckiebots by sending a discovery ping to every address of the
local /24 network and collecting the replies. With --backend mdns the scan
browses Duckietown mDNS advertisements instead.

Every robot found is remembered in the configuration file, so later commands
can fall back to its last known address with --last-known.`,
	Example: `  # Sweep the local network
  duckie scan

  # Browse mDNS for 10 seconds
  duckie scan --backend mdns --timeout 10s

  # Machine-readable output
  duckie scan --json`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 0, "Maximum scan duration (0 uses the backend default)")
	scanCmd.Flags().StringVar(&scanBackend, "backend", "", "Discovery backend (udp, mdns); defaults to the configured one")
	scanCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print discovered devices as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	registry, err := config.LoadRegistry()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	kind := scanBackend
	if kind == "" {
		kind = registry.Preferences.DiscoveryBackend
	}
	backend, err := newBackend(registry.Preferences, kind, scanTimeout)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if scanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, scanTimeout)
		defer cancel()
	}

	service := discovery.NewService(backend)
	defer service.Close()

	printer := ui.NewPrinter(cmd.OutOrStdout())
	interactive := !jsonOutput && ui.IsTerminal()

	if interactive {
		params := []ui.Param{{Key: "Backend", Value: kind}}
		if scanTimeout > 0 {
			params = append(params, ui.Param{Key: "Timeout", Value: scanTimeout.String()})
		}
		printer.PrintHeader("Device Scan", "duckie scan", params...)

		updates, stopWatch := service.List().Watch()
		scan := service.Refresh(ctx)
		_, err = tea.NewProgram(ui.NewScanView(scan, updates), tea.WithContext(ctx)).Run()
		scan.Stop()
		<-scan.Done()
		stopWatch()
		if err != nil && ctx.Err() == nil {
			return fmt.Errorf("scan view failed: %w", err)
		}
	} else {
		scan := service.Refresh(ctx)
		_ = scan.Wait()
	}

	devices := service.List().Snapshot()
	if scanErr := service.Err(); scanErr != nil {
		printer.PrintError("Scan failed", scanErr,
			"Check that UDP port "+strconv.Itoa(registry.Preferences.ListenPort)+" is not in use",
			"Try the mDNS backend: duckie scan --backend mdns",
		)
		return scanErr
	}

	rememberDevices(registry, devices)

	if jsonOutput {
		data, err := json.MarshalIndent(devices, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		printer.Println(string(data))
		return nil
	}

	if len(devices) == 0 {
		result := ui.NewWarningResult("No devices found")
		result.Troubleshooting = []string{
			"Ensure the Duckiebot is powered on and its discovery service is running",
			"Verify this computer is on the same network as the robot",
			"Use --device-ip to connect to a robot directly",
		}
		printer.Println(result.Render())
		return nil
	}

	if !interactive {
		printer.Println(ui.RenderDeviceTable(devices))
	}
	printer.Newline()
	printer.Println(ui.HintStyle.Render("  Use 'duckie status <name>' to connect to a robot"))
	return nil
}

// newBackend builds the discovery backend named kind from the preferences
func newBackend(prefs *config.Preferences, kind string, timeout time.Duration) (discovery.Backend, error) {
	switch kind {
	case "", config.BackendUDP:
		b := discovery.NewUDPBackend()
		b.ListenPort = prefs.ListenPort
		b.RemotePort = prefs.RemotePort
		b.SettleTimeout = prefs.SettleTimeout()
		b.PaceEvery = prefs.PaceEvery
		b.PaceDelay = prefs.PaceDelay()
		return b, nil
	case config.BackendMDNS:
		b := discovery.NewMDNSBackend()
		if timeout > 0 {
			b.Timeout = timeout
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown discovery backend %q (want %s or %s)", kind, config.BackendUDP, config.BackendMDNS)
	}
}

// rememberDevices records devices in the registry and saves it. A failed
// save is logged and otherwise ignored.
func rememberDevices(registry *config.Registry, devices []discovery.Device) {
	if len(devices) == 0 {
		return
	}
	for _, d := range devices {
		registry.UpdateDeviceLastSeen(d.Name, d.IP)
		registry.SetDeviceInfo(d.Name, d.Type, d.Configuration, d.Hardware)
	}
	if err := registry.Save(); err != nil {
		logging.Warn("Failed to save device registry", zap.Error(err))
	}
}

// devicesCmd lists remembered devices
var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List remembered Duckiebots",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		known := make([]ui.KnownDevice, 0, len(registry.Devices))
		for _, name := range registry.DeviceNames() {
			d := registry.GetDevice(name)
			known = append(known, ui.KnownDevice{
				Name:     name,
				Nickname: d.Nickname,
				LastIP:   d.LastIP,
				LastSeen: d.LastSeen,
				Config:   d.Configuration,
			})
		}

		ui.NewPrinter(cmd.OutOrStdout()).Println(ui.RenderKnownDevices(known, time.Now()))
		return nil
	},
}

// aliasCmd sets a nickname usable wherever a robot name is expected
var aliasCmd = &cobra.Command{
	Use:     "alias <name> <nickname>",
	Short:   "Give a Duckiebot a nickname",
	Example: `  duckie alias duck1 lab-bot`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		registry, err := config.LoadRegistry()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		registry.SetDeviceNickname(args[0], args[1])
		if err := registry.Save(); err != nil {
			return fmt.Errorf("failed to save configuration: %w", err)
		}

		ui.NewPrinter(cmd.OutOrStdout()).PrintSuccess("Nickname saved",
			ui.Param{Key: "Robot", Value: args[0]},
			ui.Param{Key: "Nickname", Value: args[1]},
		)
		return nil
	},
}
