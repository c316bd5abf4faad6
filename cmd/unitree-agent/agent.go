package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/greenity-lab/unitree-agent/internal/backend"
	"github.com/greenity-lab/unitree-agent/internal/config"
	"github.com/greenity-lab/unitree-agent/internal/metrics"
	"github.com/greenity-lab/unitree-agent/internal/monitor"
	"github.com/greenity-lab/unitree-agent/internal/netwatch"
	"github.com/greenity-lab/unitree-agent/internal/notify"
	"github.com/greenity-lab/unitree-agent/internal/session"
	redisstore "github.com/greenity-lab/unitree-agent/internal/storage/redis"
	"github.com/greenity-lab/unitree-agent/internal/systemd"
	"github.com/greenity-lab/unitree-agent/internal/timesync"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var agentCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the tracking agent",
	Long:  `Run the UniTree agent daemon: detect campus WiFi, track the connection session, and credit connected time to the backend.`,
	RunE:  runAgent,
}

func init() {
	rootCmd.AddCommand(agentCmd)
}

func runAgent(cmd *cobra.Command, args []string) error {
	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	log.Logger = logger

	logger.Info().
		Str("version", version).
		Str("config", configPath).
		Msg("Starting UniTree agent")

	// Initialize storage
	store, err := redisstore.Open(cfg.Storage.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error().Err(err).Msg("Failed to close storage")
		}
	}()

	logger.Info().
		Str("redis_host", cfg.Storage.Redis.Host).
		Int("redis_port", cfg.Storage.Redis.Port).
		Msg("Storage initialized")

	// Initialize backend client and trusted clock
	client := backend.New(cfg.Backend, store.Auth(), logger)
	trusted := timesync.New(client, cfg.Campus.UTCOffsetHours, logger)

	logger.Info().
		Str("url", cfg.Backend.URL).
		Int("utc_offset_hours", cfg.Campus.UTCOffsetHours).
		Msg("Backend client initialized")

	// Initialize campus detector
	sampler := &netwatch.IWSampler{Interface: cfg.Campus.WifiInterface}
	var locator netwatch.Locator
	if cfg.Campus.DeviceLatitude != 0 || cfg.Campus.DeviceLongitude != 0 {
		locator = &netwatch.StaticLocator{Position: netwatch.Position{
			Latitude:  cfg.Campus.DeviceLatitude,
			Longitude: cfg.Campus.DeviceLongitude,
		}}
		logger.Info().
			Float64("latitude", cfg.Campus.DeviceLatitude).
			Float64("longitude", cfg.Campus.DeviceLongitude).
			Msg("Geofence fallback enabled with static device position")
	}

	detector := netwatch.NewDetector(cfg.Campus, sampler, locator, logger)

	logger.Info().
		Int("ssids", len(cfg.Campus.SSIDs)).
		Int("bssids", len(cfg.Campus.BSSIDs)).
		Msg("Campus detector initialized")

	// Initialize session tracking
	reconciler := session.NewReconciler(store, client, trusted, session.Config{
		MinCreditInterval: config.ParseDuration(cfg.Agent.MinCreditInterval, 0),
		DailyCap:          time.Duration(cfg.Agent.DailyCapMinutes) * time.Minute,
		LockTTL:           config.ParseDuration(cfg.Agent.ReconcileLockTTL, 0),
	}, logger)

	sessions := session.NewClock(store.Sessions(), trusted, reconciler, logger)
	notifier := notify.ForBackend(cfg.Notify.Backend, logger)

	mon := monitor.New(store.Auth(), detector, sessions, reconciler, notifier, logger)
	scheduler := monitor.NewScheduler(
		mon,
		config.ParseDuration(cfg.Agent.ForegroundInterval, 0),
		config.ParseDuration(cfg.Agent.BackgroundInterval, 0),
		logger,
	)

	logger.Info().Msg("Session tracking initialized")

	// Initialize Metrics Server
	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metricsAddr := fmt.Sprintf("%s:%d", cfg.Metrics.BindAddress, cfg.Metrics.Port)
		metricsServer = metrics.NewServer(metricsAddr, logger)

		if err := metricsServer.Start(); err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}

		logger.Info().Str("addr", metricsAddr).Msg("Metrics server started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	if err := systemd.NotifyReady(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd readiness")
	}

	logger.Info().Msg("UniTree agent startup complete")

	// SIGUSR1/SIGUSR2 switch between foreground and background cadence,
	// standing in for an app moving between active and suspended
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)

	for {
		sig := <-sigChan
		switch sig {
		case syscall.SIGUSR1:
			scheduler.SetForeground(true)
			continue
		case syscall.SIGUSR2:
			scheduler.SetForeground(false)
			continue
		}

		break
	}

	logger.Info().Msg("Shutdown signal received, gracefully stopping...")

	if err := systemd.NotifyStopping(); err != nil {
		logger.Warn().Err(err).Msg("Failed to notify systemd stopping")
	}

	cancel()
	<-done

	if metricsServer != nil {
		if err := metricsServer.Stop(); err != nil {
			logger.Error().Err(err).Msg("Error stopping metrics server")
		}
	}

	logger.Info().Msg("UniTree agent stopped")
	return nil
}
