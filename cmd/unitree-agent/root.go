package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version    = "dev"
	configPath string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "unitree-agent",
	Short: "UniTree agent - campus WiFi connection-time tracker",
	Long: `UniTree agent tracks time connected to the campus WiFi network and
converts it into points on the UniTree backend. It detects campus presence by
SSID, BSSID or geofence, keeps a durable session clock across restarts, and
reconciles accrued time with the remote point ledger exactly once per
interval.`,
	Version: version,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Default to agent command when no subcommand is provided
		return runAgent(cmd, args)
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "/etc/unitree/config.yaml", "Path to configuration file")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
