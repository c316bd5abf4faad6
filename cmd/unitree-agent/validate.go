package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/greenity-lab/unitree-agent/internal/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the agent configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Configuration validation failed: %v\n", err)
		return err
	}

	color.New(color.FgGreen, color.Bold).Printf("Configuration is valid: %s\n", configPath)
	fmt.Printf("  Campus SSIDs:        %d\n", len(cfg.Campus.SSIDs))
	fmt.Printf("  Campus BSSIDs:       %d\n", len(cfg.Campus.BSSIDs))
	fmt.Printf("  Geofence radius:     %.0fm\n", cfg.Campus.GeofenceRadius)
	fmt.Printf("  Foreground interval: %s\n", cfg.Agent.ForegroundInterval)
	fmt.Printf("  Background interval: %s\n", cfg.Agent.BackgroundInterval)
	fmt.Printf("  Daily cap:           %d minutes\n", cfg.Agent.DailyCapMinutes)
	fmt.Printf("  Backend URL:         %s\n", cfg.Backend.URL)
	fmt.Printf("  Redis:               %s:%d\n", cfg.Storage.Redis.Host, cfg.Storage.Redis.Port)
	fmt.Printf("  Notify backend:      %s\n", cfg.Notify.Backend)
	return nil
}
