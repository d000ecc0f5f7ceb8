// Package main provides the entry point for the mudra hand tracking service.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ayusman/mudra/cmd/mudra/commands"
)

// Set via -ldflags at build time.
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mudra",
		Short: "Mudra - real-time hand pose tracking and gesture recognition",
		Long: `Mudra reads camera frames, detects hand landmarks and publishes
per-finger state and recognized gestures over HTTP and WebSocket.

Commands:
  run       Start the tracking service
  config    Print the effective configuration`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(commands.NewRunCommand())
	rootCmd.AddCommand(commands.NewConfigCommand())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "mudra %s (commit: %s)\n", version, commit)
		},
	}
}
