// Duckie is a command-line client for Duckiebots.
//
// It finds robots on the local network with the Duckietown UDP ping or
// mDNS, and talks to a chosen robot's rosbridge server to publish,
// subscribe and call services under the robot's namespace.
//
// Usage:
//
//	duckie [command] [flags]
//
// Set DUCKIE_LOG_LEVEL=debug (or pass --log-level) for wire-level logs.
// See 'duckie --help' for available commands.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/duckielink/duckie/internal/logging"
	"github.com/duckielink/duckie/internal/version"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logging.Error("Command failed", zap.String("command", commandPath(os.Args[1:])), zap.Error(err))
	}
	logging.Sync()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commandPath names the subcommand args resolve to, e.g. "duckie scan"
func commandPath(args []string) string {
	cmd, _, err := rootCmd.Find(args)
	if err != nil || cmd == nil {
		return rootCmd.Name()
	}
	return cmd.CommandPath()
}

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "duckie",
	Short: "Duckiebot discovery and rosbridge client",
	Long: `A command-line client for Duckiebots.

Discovers robots on the local /24 network and connects to a robot's
rosbridge websocket server to publish, subscribe and call services.
Topic and service names are relative to the robot's namespace, so
"camera_node/image/compressed" on duck1 means "/duck1/camera_node/image/compressed".`,
	Version: version.Full(),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return logging.Initialize(logLevel)
	},
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); defaults to $"+logging.LogLevelEnvVar)

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "duckie %s\n", version.Full())
	},
}
