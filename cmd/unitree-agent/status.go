package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/greenity-lab/unitree-agent/internal/backend"
	"github.com/greenity-lab/unitree-agent/internal/config"
	"github.com/greenity-lab/unitree-agent/internal/notify"
	"github.com/greenity-lab/unitree-agent/internal/session"
	"github.com/greenity-lab/unitree-agent/internal/storage"
	redisstore "github.com/greenity-lab/unitree-agent/internal/storage/redis"
	"github.com/greenity-lab/unitree-agent/internal/timesync"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session, points and tree status",
	Long:  `Show the current connection session, today's connected time, the point balance and the virtual tree.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := zerolog.New(os.Stderr).Level(zerolog.ErrorLevel).With().Timestamp().Logger()

	store, err := redisstore.Open(cfg.Storage.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	creds, err := store.Auth().Current(ctx)
	if err == storage.ErrNotFound {
		fmt.Println("Not signed in. Run `unitree-agent login` first.")
		return nil
	}
	if err != nil {
		return err
	}

	client := backend.New(cfg.Backend, store.Auth(), logger)
	trusted := timesync.New(client, cfg.Campus.UTCOffsetHours, logger)
	accumulator := session.NewAccumulator(store.DailyLogs(), logger)

	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	cyan.Println("UNITREE STATUS")
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()

	fmt.Printf("Signed in as:    %s\n", creds.Email)
	fmt.Println()

	// Session: device time is fine here, this surface is display only
	now := trusted.DeviceNow()
	if sess, err := store.Sessions().Get(ctx, creds.UserID); err == nil {
		green.Println("Session:         ACTIVE")
		fmt.Printf("Connected for:   %s\n", notify.FormatDuration(sess.Elapsed(now)))
		fmt.Printf("Un-credited:     %s\n", notify.FormatDuration(sess.SinceCheckpoint(now)))
	} else {
		fmt.Println("Session:         none")
	}

	// Today's total, rolled to the trusted date when reachable
	today, err := trusted.Today(ctx)
	if err != nil {
		today = trusted.DeviceToday()
	}
	if log, err := accumulator.Today(ctx, creds.UserID, today); err == nil {
		fmt.Printf("Today:           %s (%d points)\n",
			notify.FormatDuration(time.Duration(log.AccumulatedMs)*time.Millisecond), log.PointsToday())
	}
	fmt.Println()

	// Authoritative balance and the tree it grows
	profile, err := client.GetProfile(ctx)
	if err != nil {
		fmt.Printf("Backend:         unreachable (%v)\n", err)
	} else {
		cost, err := client.TreeCost(ctx)
		if err != nil {
			cost = 0
		}

		level := session.TreeLevel(profile.Points, cost)
		fmt.Printf("Points:          %d (lifetime %d)\n", profile.Points, profile.TotalPoints)
		fmt.Printf("Tree:            level %d/10, %s (%.0f%% toward a real tree)\n",
			level, session.StageOf(level), session.TreeProgress(profile.Points, cost)*100)
	}

	fmt.Println()
	cyan.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println()
	return nil
}
