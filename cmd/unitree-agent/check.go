package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/greenity-lab/unitree-agent/internal/config"
	"github.com/greenity-lab/unitree-agent/internal/netwatch"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	checkSSID  string
	checkBSSID string
	checkLat   float64
	checkLon   float64
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check campus detection interactively",
	Long:  `Check whether the agent would consider the device connected to the campus network, and by which method.`,
	Example: `  unitree-agent check
  unitree-agent check --ssid Gre_Student
  unitree-agent check --bssid c0:74:ad:3d:55:dd
  unitree-agent check --lat 21.0239 --lon 105.7904`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringVar(&checkSSID, "ssid", "", "Check a hypothetical SSID instead of sampling the device")
	checkCmd.Flags().StringVar(&checkBSSID, "bssid", "", "Check a hypothetical BSSID instead of sampling the device")
	checkCmd.Flags().Float64Var(&checkLat, "lat", 0, "Check a hypothetical latitude for the geofence fallback")
	checkCmd.Flags().Float64Var(&checkLon, "lon", 0, "Check a hypothetical longitude for the geofence fallback")
	rootCmd.AddCommand(checkCmd)
}

// fixedSampler reports a WiFi state supplied on the command line.
type fixedSampler struct {
	state netwatch.WifiState
}

func (s *fixedSampler) Sample(ctx context.Context) (netwatch.WifiState, error) {
	return s.state, nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Quiet logger for check mode
	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()

	var sampler netwatch.Sampler
	if checkSSID != "" || checkBSSID != "" {
		sampler = &fixedSampler{state: netwatch.WifiState{
			Connected: true,
			SSID:      checkSSID,
			BSSID:     checkBSSID,
		}}
	} else {
		sampler = &netwatch.IWSampler{Interface: cfg.Campus.WifiInterface}
	}

	var locator netwatch.Locator
	if checkLat != 0 || checkLon != 0 {
		locator = &netwatch.StaticLocator{Position: netwatch.Position{Latitude: checkLat, Longitude: checkLon}}
	} else if cfg.Campus.DeviceLatitude != 0 || cfg.Campus.DeviceLongitude != 0 {
		locator = &netwatch.StaticLocator{Position: netwatch.Position{
			Latitude:  cfg.Campus.DeviceLatitude,
			Longitude: cfg.Campus.DeviceLongitude,
		}}
	}

	detector := netwatch.NewDetector(cfg.Campus, sampler, locator, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result := detector.Detect(ctx)
	printCheckResult(cfg, result)
	return nil
}

// printCheckResult prints the detection verdict with colors
func printCheckResult(cfg *config.Config, result netwatch.Result) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	red := color.New(color.FgRed, color.Bold)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Println("CAMPUS DETECTION CHECK")
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Campus SSIDs:    %d configured\n", len(cfg.Campus.SSIDs))
	fmt.Printf("Campus BSSIDs:   %d configured\n", len(cfg.Campus.BSSIDs))
	fmt.Printf("Geofence:        %.6f, %.6f (radius %.0fm)\n",
		cfg.Campus.Latitude, cfg.Campus.Longitude, cfg.Campus.GeofenceRadius)
	fmt.Println()

	cyan.Print("Verdict:         ")
	if result.Connected {
		green.Println("ON CAMPUS")
		fmt.Printf("Method:          %s\n", result.Method)
		if result.Label != "" {
			fmt.Printf("Matched:         %s\n", result.Label)
		}
		fmt.Println("                 → Connection time will accrue")
	} else {
		red.Println("OFF CAMPUS")
		fmt.Println("                 → No connection time will accrue")
	}

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
}
