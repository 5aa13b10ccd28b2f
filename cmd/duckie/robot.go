package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/duckielink/duckie/internal/bridge"
	"github.com/duckielink/duckie/internal/logging"
	"github.com/duckielink/duckie/internal/msgs"
	"github.com/duckielink/duckie/internal/session"
	"github.com/duckielink/duckie/internal/ui"
	"github.com/duckielink/duckie/internal/urls"
)

const (
	wheelsTopic     = "wheels_driver_node/wheels_cmd"
	fsmStateService = "fsm_node/set_state"
)

// Robot command flags
var (
	pubCount     int
	pubInterval  time.Duration
	echoCount    int
	callTimeout  time.Duration
	driveFor     time.Duration
	driveRateHz  float64
	fsmStateList = []string{msgs.StateLaneFollowing, msgs.StateNormalJoystickControl}
)

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(pubCmd)
	rootCmd.AddCommand(echoCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(fsmCmd)
	rootCmd.AddCommand(driveCmd)

	pubCmd.Flags().IntVar(&pubCount, "count", 1, "Number of messages to publish")
	pubCmd.Flags().DurationVar(&pubInterval, "interval", 100*time.Millisecond, "Delay between messages")

	echoCmd.Flags().IntVar(&echoCount, "count", 0, "Exit after this many messages (0 runs until interrupted)")

	callCmd.Flags().DurationVar(&callTimeout, "timeout", 10*time.Second, "Service call timeout")
	fsmCmd.Flags().DurationVar(&callTimeout, "timeout", 10*time.Second, "Service call timeout")

	driveCmd.Flags().DurationVar(&driveFor, "duration", time.Second, "How long to drive before stopping")
	driveCmd.Flags().Float64Var(&driveRateHz, "rate", 10, "Command rate in Hz")
}

// statusCmd connects to a robot and reports the session status
var statusCmd = &cobra.Command{
	Use:   "status <name>",
	Short: "Connect to a Duckiebot and report its status",
	Example: `  duckie status duck1
  duckie status duck1 --device-ip 192.168.1.42`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		printer := ui.NewPrinter(cmd.OutOrStdout())

		s, err := openSession(cmd.Context(), args[0], func(st session.Status) {
			printer.Println(ui.RenderStatus(args[0], st, ""))
		})
		if err != nil {
			printConnectError(printer, args[0], err)
			return err
		}
		defer s.Close()

		d, _ := s.coord.Device()
		printer.Newline()
		printer.PrintSuccess("Connected to "+d.Name,
			ui.Param{Key: "IP", Value: d.IP},
			ui.Param{Key: "Bridge", Value: s.client.URL()},
			ui.Param{Key: "Type", Value: d.Type},
			ui.Param{Key: "Configuration", Value: d.Configuration},
			ui.Param{Key: "Namespace", Value: d.Namespace()},
		)
		return nil
	},
}

// pubCmd publishes a JSON message to a robot topic
var pubCmd = &cobra.Command{
	Use:   "pub <name> <topic> <type> <json>",
	Short: "Publish a message to a robot topic",
	Long: `Publish a JSON message to a topic under the robot's namespace.

Payloads for known message types are checked before they are sent; an
unknown field or a wrong value type is rejected.`,
	Example: `  duckie pub duck1 chatter std_msgs/String '{"data":"hello"}'
  duckie pub duck1 chatter std_msgs/String '{"data":"tick"}' --count 10 --interval 1s`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		topic, typ, payload := args[1], args[2], json.RawMessage(args[3])
		knownType(msgs.DefaultRegistry(), typ)

		s, err := openSession(cmd.Context(), args[0], nil)
		if err != nil {
			printConnectError(ui.NewPrinter(cmd.OutOrStdout()), args[0], err)
			return err
		}
		defer s.Close()

		for i := 0; i < pubCount; i++ {
			if i > 0 {
				if err := sleep(cmd.Context(), s, pubInterval); err != nil {
					return err
				}
			}
			if err := s.coord.Publish(topic, typ, payload); err != nil {
				return fmt.Errorf("publish failed: %w", err)
			}
		}

		full, _ := s.coord.Qualify(topic)
		fmt.Fprintf(cmd.OutOrStdout(), "published %d message(s) to %s\n", pubCount, full)
		return nil
	},
}

// echoCmd prints messages received on a robot topic
var echoCmd = &cobra.Command{
	Use:   "echo <name> <topic> <type>",
	Short: "Print messages from a robot topic",
	Example: `  duckie echo duck1 camera_node/image/compressed sensor_msgs/CompressedImage --count 5
  duckie echo duck1 chatter std_msgs/String`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		topic, typ := args[1], args[2]
		out := cmd.OutOrStdout()

		s, err := openSession(cmd.Context(), args[0], nil)
		if err != nil {
			printConnectError(ui.NewPrinter(out), args[0], err)
			return err
		}
		defer s.Close()

		received := make(chan json.RawMessage, 64)
		unsubscribe, err := s.coord.Subscribe(topic, typ, func(msg json.RawMessage) {
			select {
			case received <- msg:
			default:
			}
		})
		if err != nil {
			return fmt.Errorf("subscribe failed: %w", err)
		}
		defer unsubscribe()

		types := msgs.DefaultRegistry()
		knownType(types, typ)
		for n := 0; echoCount == 0 || n < echoCount; n++ {
			select {
			case raw := <-received:
				fmt.Fprintln(out, formatMessage(types, typ, raw))
			case <-s.Lost():
				return bridge.ErrConnectionClosed
			case <-cmd.Context().Done():
				return nil
			}
		}
		return nil
	},
}

// knownType reports whether typ is a registered message type and warns
// when it is not, since its payloads are passed through unchecked
func knownType(types *msgs.Registry, typ string) bool {
	if types.Known(typ) {
		return true
	}
	logging.Warn("Unknown message type, payloads are not checked", zap.String("type", typ))
	return false
}

// formatMessage renders one received message on a single line
func formatMessage(types *msgs.Registry, typ string, raw json.RawMessage) string {
	v, err := types.Decode(typ, raw)
	if err != nil {
		return string(raw)
	}

	switch m := v.(type) {
	case *msgs.String:
		return m.Data
	case *msgs.CompressedImage:
		return fmt.Sprintf("[%d.%09d] %s image, %d bytes", m.Header.Stamp.Secs, m.Header.Stamp.Nsecs, m.Format, len(m.Data))
	case *msgs.WheelsCmdStamped:
		return fmt.Sprintf("[%d.%09d] left=%.3f right=%.3f", m.Header.Stamp.Secs, m.Header.Stamp.Nsecs, m.VelLeft, m.VelRight)
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// callCmd calls a robot service
var callCmd = &cobra.Command{
	Use:   "call <name> <service> <type> [json]",
	Short: "Call a robot service",
	Example: `  duckie call duck1 fsm_node/set_state duckietown_msgs/SetFSMState '{"state":"LANE_FOLLOWING"}'`,
	Args:    cobra.RangeArgs(3, 4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		service, typ := args[1], args[2]
		var request any
		if len(args) == 4 {
			request = json.RawMessage(args[3])
		}

		printer := ui.NewPrinter(cmd.OutOrStdout())
		s, err := openSession(cmd.Context(), args[0], nil)
		if err != nil {
			printConnectError(printer, args[0], err)
			return err
		}
		defer s.Close()

		values, err := callService(cmd.Context(), s, service, typ, request)
		if err != nil {
			printCallError(printer, service, err)
			return err
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, values, "", "  "); err != nil {
			printer.Println(string(values))
			return nil
		}
		printer.Println(pretty.String())
		return nil
	},
}

// fsmCmd switches the robot's finite state machine
var fsmCmd = &cobra.Command{
	Use:   "fsm <name> <state>",
	Short: "Set the robot's FSM state",
	Long: fmt.Sprintf(`Set the state of the robot's fsm_node.

Common states: %s, %s.`, msgs.StateLaneFollowing, msgs.StateNormalJoystickControl),
	Example:   `  duckie fsm duck1 LANE_FOLLOWING`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: fsmStateList,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		printer := ui.NewPrinter(cmd.OutOrStdout())

		s, err := openSession(cmd.Context(), args[0], nil)
		if err != nil {
			printConnectError(printer, args[0], err)
			return err
		}
		defer s.Close()

		request := msgs.SetFSMStateRequest{State: args[1]}
		if _, err := callService(cmd.Context(), s, fsmStateService, msgs.TypeSetFSMState, request); err != nil {
			printCallError(printer, fsmStateService, err)
			return err
		}

		printer.PrintSuccess("FSM state set", ui.Param{Key: "State", Value: args[1]})
		return nil
	},
}

func callService(ctx context.Context, s *robotSession, service, typ string, request any) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()
	return s.coord.CallService(ctx, service, typ, request)
}

// driveCmd streams wheel commands and then stops the robot
var driveCmd = &cobra.Command{
	Use:   "drive <name> <left> <right>",
	Short: "Drive the robot's wheels for a while",
	Long: `Publish wheel velocity commands at a fixed rate, then a stop command.

Velocities are normalized to [-1, 1].`,
	Example: `  # Forward for two seconds
  duckie drive duck1 0.3 0.3 --duration 2s

  # Spin in place
  duckie drive duck1 -0.2 0.2`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		left, err := parseVelocity(args[1])
		if err != nil {
			return err
		}
		right, err := parseVelocity(args[2])
		if err != nil {
			return err
		}
		if driveRateHz <= 0 {
			return fmt.Errorf("--rate must be positive")
		}
		cmd.SilenceUsage = true

		s, err := openSession(cmd.Context(), args[0], nil)
		if err != nil {
			printConnectError(ui.NewPrinter(cmd.OutOrStdout()), args[0], err)
			return err
		}
		defer s.Close()

		frameID := s.name + "/base"
		send := func(l, r float64) error {
			return s.coord.Publish(wheelsTopic, msgs.TypeWheelsCmdStamped, msgs.WheelsCmdStamped{
				Header:   msgs.NewHeader(frameID, time.Now()),
				VelLeft:  l,
				VelRight: r,
			})
		}

		err = drive(cmd.Context(), s, time.Duration(float64(time.Second)/driveRateHz), driveFor, func() error {
			return send(left, right)
		})
		if stopErr := send(0, 0); stopErr != nil && err == nil {
			err = stopErr
		}
		return err
	},
}

// drive calls step every interval until d has passed
func drive(ctx context.Context, s *robotSession, interval, d time.Duration, step func() error) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	deadline := time.After(d)

	if err := step(); err != nil {
		return err
	}
	for {
		select {
		case <-ticker.C:
			if err := step(); err != nil {
				return err
			}
		case <-deadline:
			return nil
		case <-s.Lost():
			return bridge.ErrConnectionClosed
		case <-ctx.Done():
			return nil
		}
	}
}

func parseVelocity(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid velocity %q: %w", s, err)
	}
	if v < -1 || v > 1 {
		return 0, fmt.Errorf("velocity %v out of range [-1, 1]", v)
	}
	return v, nil
}

func sleep(ctx context.Context, s *robotSession, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-s.Lost():
		return bridge.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func printConnectError(printer *ui.Printer, name string, err error) {
	if errors.Is(err, context.Canceled) {
		return
	}
	if errors.Is(err, errDeviceNotFound) {
		printer.PrintError("Device not found", err,
			"Check the name with 'duckie scan'",
			"Use --device-ip if the robot does not answer discovery",
			"Use --last-known to reuse the address from the last scan",
			"Network setup: "+urls.DuckietownDocs,
		)
		return
	}
	printer.PrintError("Connection to "+name+" failed", err,
		"Ensure rosbridge is running on the robot",
		"Check the port with --broker-port",
		"Use 'duckie status "+name+"' to retry",
		"rosbridge server: "+urls.RosbridgeSuite,
	)
}

func printCallError(printer *ui.Printer, service string, err error) {
	var svcErr *bridge.ServiceError
	if errors.As(err, &svcErr) {
		printer.PrintError("Service "+service+" failed", err,
			"Check the request fields for the service type",
			"Protocol reference: "+urls.RosbridgeProtocol,
		)
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		printer.PrintError("Service "+service+" timed out", err, "Increase --timeout", "Check that the service exists on the robot")
		return
	}
	printer.PrintError("Service "+service+" failed", err)
}
